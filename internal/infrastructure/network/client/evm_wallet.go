package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
)

// EVMWallet implements port.WalletProvider over an EIP-1193 capable JSON-RPC endpoint
// (a wallet bridge or a dev node exposing unlocked accounts). Provider errors keep their
// JSON-RPC codes through rpc.Error.
type EVMWallet struct {
	rpcClient      *rpc.Client
	url            string
	rpcCallTimeout time.Duration
	logger         port.Logger

	accountsFeed event.Feed
	chainFeed    event.Feed

	limiter   *rate.Limiter
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewEVMWallet dials the first reachable URL out of primary + fallbacks.
func NewEVMWallet(urls []string, connectionTimeout, rpcCallTimeout time.Duration, log port.Logger) (*EVMWallet, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no wallet RPC URLs configured")
	}
	var lastErr error

	for _, rpcURL := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		c, err := rpc.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			log.Info("Connected to wallet RPC", "url", rpcURL)
			return &EVMWallet{
				rpcClient:      c,
				url:            rpcURL,
				rpcCallTimeout: rpcCallTimeout,
				logger:         log,
				stop:           make(chan struct{}),
			}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
		log.Warn("Wallet RPC dial failed, trying next URL", "url", rpcURL, "error", err)
	}

	return nil, fmt.Errorf("all wallet RPC connection attempts failed: %w", lastErr)
}

func (w *EVMWallet) call(ctx context.Context, result any, method string, args ...any) error {
	callCtx, cancel := context.WithTimeout(ctx, w.rpcCallTimeout)
	defer cancel()
	if err := w.rpcClient.CallContext(callCtx, result, method, args...); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (w *EVMWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := w.call(ctx, &accounts, "eth_requestAccounts")
	return accounts, err
}

func (w *EVMWallet) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	err := w.call(ctx, &accounts, "eth_accounts")
	return accounts, err
}

func (w *EVMWallet) ChainID(ctx context.Context) (string, error) {
	var id string
	err := w.call(ctx, &id, "eth_chainId")
	return id, err
}

func (w *EVMWallet) SwitchChain(ctx context.Context, chainID string) error {
	return w.call(ctx, nil, "wallet_switchEthereumChain", map[string]string{"chainId": chainID})
}

func (w *EVMWallet) AddChain(ctx context.Context, params entity.AddChainParams) error {
	return w.call(ctx, nil, "wallet_addEthereumChain", params)
}

func (w *EVMWallet) Call(ctx context.Context, to string, data string) (string, error) {
	var out string
	err := w.call(ctx, &out, "eth_call", map[string]string{"to": to, "data": data}, "latest")
	return out, err
}

func (w *EVMWallet) SendTransaction(ctx context.Context, tx entity.TransactionRequest) (string, error) {
	var hash string
	err := w.call(ctx, &hash, "eth_sendTransaction", tx)
	return hash, err
}

func (w *EVMWallet) EstimateGas(ctx context.Context, tx entity.TransactionRequest) (string, error) {
	var gas string
	err := w.call(ctx, &gas, "eth_estimateGas", tx)
	return gas, err
}

func (w *EVMWallet) GasPrice(ctx context.Context) (string, error) {
	var price string
	err := w.call(ctx, &price, "eth_gasPrice")
	return price, err
}

func (w *EVMWallet) GetBalance(ctx context.Context, address string) (string, error) {
	var balance string
	err := w.call(ctx, &balance, "eth_getBalance", address, "latest")
	return balance, err
}

// Sign asks the wallet for a personal_sign (EIP-191) signature over message.
func (w *EVMWallet) Sign(ctx context.Context, message string, address string) (string, error) {
	var sig string
	err := w.call(ctx, &sig, "personal_sign", hexutil.Encode([]byte(message)), address)
	return sig, err
}

func (w *EVMWallet) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return w.accountsFeed.Subscribe(ch)
}

func (w *EVMWallet) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return w.chainFeed.Subscribe(ch)
}

// Close stops the watcher and closes the RPC connection.
func (w *EVMWallet) Close() {
	w.closeOnce.Do(func() {
		close(w.stop)
		w.wg.Wait()
		w.rpcClient.Close()
	})
}

func sameAccounts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
