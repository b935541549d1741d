package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_session/internal/pkg/logger"
)

type codedError struct {
	code int
	msg  string
}

func (e codedError) Error() string  { return e.msg }
func (e codedError) ErrorCode() int { return e.code }

type fakeEthAPI struct {
	mu       sync.Mutex
	accounts []string
	chain    string
}

func (a *fakeEthAPI) Accounts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.accounts...)
}

func (a *fakeEthAPI) RequestAccounts() ([]string, error) {
	return nil, codedError{4001, "User rejected the request."}
}

func (a *fakeEthAPI) ChainId() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.chain
}

func (a *fakeEthAPI) Call(args map[string]string, block string) string {
	return "0x00000000000000000000000000000000000000000000000000000000000003e8"
}

func (a *fakeEthAPI) set(accounts []string, chain string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.accounts, a.chain = accounts, chain
}

type fakeWalletAPI struct{}

func (fakeWalletAPI) SwitchEthereumChain(params map[string]string) error {
	if params["chainId"] != "0xa4ec" {
		return codedError{4902, "Unrecognized chain ID"}
	}
	return nil
}

type fakePersonalAPI struct{}

func (fakePersonalAPI) Sign(data hexutil.Bytes, address string) string {
	return "signed:" + string(data)
}

func newTestWallet(t *testing.T) (*EVMWallet, *fakeEthAPI) {
	t.Helper()

	eth := &fakeEthAPI{accounts: []string{"0xabc"}, chain: "0x1"}
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", eth))
	require.NoError(t, srv.RegisterName("wallet", fakeWalletAPI{}))
	require.NoError(t, srv.RegisterName("personal", fakePersonalAPI{}))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	t.Cleanup(srv.Stop)

	w, err := NewEVMWallet([]string{ts.URL}, time.Second, time.Second, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(w.Close)
	return w, eth
}

func TestEVMWalletCalls(t *testing.T) {
	w, _ := newTestWallet(t)
	ctx := context.Background()

	accounts, err := w.Accounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0xabc"}, accounts)

	chain, err := w.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0x1", chain)

	out, err := w.Call(ctx, "0xdef", "0x70a08231")
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000000000000000000000000003e8", out)

	sig, err := w.Sign(ctx, "hello", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "signed:hello", sig)

	require.NoError(t, w.SwitchChain(ctx, "0xa4ec"))
}

func TestEVMWalletKeepsProviderCodes(t *testing.T) {
	w, _ := newTestWallet(t)
	ctx := context.Background()

	err := w.SwitchChain(ctx, "0xaef3")
	var rpcErr rpc.Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 4902, rpcErr.ErrorCode())

	_, err = w.RequestAccounts(ctx)
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, 4001, rpcErr.ErrorCode())
}

func TestEVMWalletWatcherPublishesChanges(t *testing.T) {
	w, eth := newTestWallet(t)

	chainCh := make(chan string, 4)
	accountsCh := make(chan []string, 4)
	defer w.SubscribeChainChanged(chainCh).Unsubscribe()
	defer w.SubscribeAccountsChanged(accountsCh).Unsubscribe()

	w.StartWatcher(context.Background(), 5*time.Millisecond, 1)
	time.Sleep(30 * time.Millisecond)
	eth.set([]string{"0xdef"}, "0xa4ec")

	select {
	case id := <-chainCh:
		assert.Equal(t, "0xa4ec", id)
	case <-time.After(2 * time.Second):
		t.Fatal("no chain change published")
	}
	select {
	case accounts := <-accountsCh:
		assert.Equal(t, []string{"0xdef"}, accounts)
	case <-time.After(2 * time.Second):
		t.Fatal("no accounts change published")
	}
}

func TestNewEVMWalletWithoutURLs(t *testing.T) {
	_, err := NewEVMWallet(nil, time.Second, time.Second, logger.NewNop())
	assert.Error(t, err)
}
