package entity

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWalletErrorMatchesSentinelByKind(t *testing.T) {
	err := fmt.Errorf("connect: %w", NewError(KindUserRejected, "eth_requestAccounts", errors.New("user denied")))

	assert.True(t, errors.Is(err, ErrUserRejected))
	assert.False(t, errors.Is(err, ErrRPCFailure))
	assert.Equal(t, KindUserRejected, KindOf(err))
	assert.Contains(t, err.Error(), "eth_requestAccounts: UserRejected: user denied")
}

func TestKindOfUnclassifiedIsRPCFailure(t *testing.T) {
	assert.Equal(t, KindRPCFailure, KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(ErrProviderAbsent))
	assert.True(t, IsRecoverable(ErrUserRejected))
	assert.True(t, IsRecoverable(NewError(KindRPCFailure, "eth_call", nil)))
}

func TestNewErrorRecord(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rec := NewErrorRecord(Errorf(KindUnsupportedNetwork, "switch", "chain %s", "0x99"), now)

	assert.Equal(t, KindUnsupportedNetwork, rec.Kind)
	assert.Equal(t, now, rec.At)
	assert.Nil(t, NewErrorRecord(nil, now))
}
