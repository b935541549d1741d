package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"wallet_session/internal/app/port"
	"wallet_session/internal/app/provider"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/infrastructure/wallet/memprovider"
	"wallet_session/internal/pkg/logger"
)

type sessionFixture struct {
	wallet     *memprovider.Wallet
	gateway    *provider.Gateway
	classifier *networkdefinition.Classifier
	session    *SessionService
}

func newSessionFixture(t *testing.T, cfg memprovider.Config) *sessionFixture {
	t.Helper()

	classifier := networkdefinition.NewClassifier(logger.NewNop(), nil)
	f := &sessionFixture{classifier: classifier}

	var wp port.WalletProvider
	if cfg.ChainID != "absent" {
		f.wallet = memprovider.MustNew(cfg)
		wp = f.wallet
	}
	f.gateway = provider.NewGateway(wp, classifier, logger.NewNop(), nil)
	f.session = NewSessionService(f.gateway, classifier, logger.NewNop(), nil)

	if wp != nil {
		sub, err := f.session.Start(context.Background())
		require.NoError(t, err)
		t.Cleanup(sub.Unsubscribe)
	}
	return f
}

func (f *sessionFixture) connect(t *testing.T) {
	t.Helper()
	_, err := f.session.Connect(context.Background())
	require.NoError(t, err)
}
