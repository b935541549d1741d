package memprovider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_session/internal/domain/entity"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

func TestSignRecoversToWalletAddress(t *testing.T) {
	w := MustNew(Config{PrivateKeyHex: testKey, Authorized: true})
	ctx := context.Background()

	sigHex, err := w.Sign(ctx, "hello", w.Address())
	require.NoError(t, err)

	sig, err := hexutil.Decode(sigHex)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte("hello")), sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()))
}

func TestRequestAccountsAndRejection(t *testing.T) {
	w := MustNew(Config{})
	ctx := context.Background()

	accs, err := w.Accounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accs)

	w.SetRejectConnect(true)
	_, err = w.RequestAccounts(ctx)
	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, CodeUserRejected, rpcErr.ErrorCode())

	w.SetRejectConnect(false)
	accs, err = w.RequestAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{w.Address()}, accs)
	assert.Equal(t, 2, w.RequestCount())
}

func TestSwitchChainUnknownThenAdded(t *testing.T) {
	w := MustNew(Config{ChainID: "0x1"})
	ctx := context.Background()

	ch := make(chan string, 1)
	sub := w.SubscribeChainChanged(ch)
	defer sub.Unsubscribe()

	err := w.SwitchChain(ctx, "0xaef3")
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CodeUnrecognizedChain, pe.Code)

	require.NoError(t, w.AddChain(ctx, entity.AddChainParams{ChainID: "0xaef3", RPCURLs: []string{"https://alfajores-forno.celo-testnet.org"}}))
	require.NoError(t, w.SwitchChain(ctx, "0xaef3"))
	assert.Equal(t, "0xaef3", <-ch)
	assert.Equal(t, "0xaef3", w.CurrentChain())
}

func TestSendTransactionRequiresAuthorizedSender(t *testing.T) {
	w := MustNew(Config{Authorized: true})
	ctx := context.Background()

	_, err := w.SendTransaction(ctx, entity.TransactionRequest{From: "0x0000000000000000000000000000000000000001", To: "0x2"})
	assert.Error(t, err)

	hash, err := w.SendTransaction(ctx, entity.TransactionRequest{From: w.Address(), To: "0x2", Value: "0x1"})
	require.NoError(t, err)
	assert.Len(t, hash, 66)
	assert.Len(t, w.SentTransactions(), 1)
}

func TestDisconnectedWallet(t *testing.T) {
	w := MustNew(Config{})
	w.SetDisconnected(true)

	_, err := w.ChainID(context.Background())
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CodeDisconnected, pe.Code)
}
