// Package memprovider is a scriptable in-process wallet used for local runs and tests.
package memprovider

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"

	"wallet_session/internal/domain/entity"
)

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
	CodeInternal          = -32603
)

// ProviderError carries an EIP-1193 code; it satisfies rpc.Error.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string  { return e.Message }
func (e *ProviderError) ErrorCode() int { return e.Code }

// Config seeds a Wallet.
type Config struct {
	PrivateKeyHex    string
	ChainID          string
	KnownChains      []string
	NativeBalanceWei string
	Authorized       bool
}

// Wallet is an in-memory wallet holding one secp256k1 key.
type Wallet struct {
	mu          sync.Mutex
	key         *ecdsa.PrivateKey
	address     string
	authorized  bool
	chainID     string
	knownChains map[string]bool
	balances    map[string]*big.Int
	calls       map[string]string
	gasEstimate *big.Int
	gasPrice    *big.Int

	rejectConnect bool
	rejectSign    bool
	rejectSend    bool
	rejectSwitch  bool
	disconnected  bool
	sendErr       error
	connectGate   <-chan struct{}
	beforeSend    func(entity.TransactionRequest)

	requestCount int
	sent         []entity.TransactionRequest

	accountsFeed event.Feed
	chainFeed    event.Feed
}

// New builds a wallet; a fresh key is generated when cfg.PrivateKeyHex is empty.
func New(cfg Config) (*Wallet, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if cfg.PrivateKeyHex != "" {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	} else {
		key, err = crypto.GenerateKey()
	}
	if err != nil {
		return nil, fmt.Errorf("memory wallet key: %w", err)
	}

	chainID := strings.ToLower(cfg.ChainID)
	if chainID == "" {
		chainID = "0x1"
	}

	w := &Wallet{
		key:         key,
		address:     strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex()),
		authorized:  cfg.Authorized,
		chainID:     chainID,
		knownChains: map[string]bool{chainID: true},
		balances:    make(map[string]*big.Int),
		calls:       make(map[string]string),
		gasEstimate: big.NewInt(21000),
		gasPrice:    big.NewInt(5_000_000_000),
	}
	for _, c := range cfg.KnownChains {
		w.knownChains[strings.ToLower(c)] = true
	}
	if cfg.NativeBalanceWei != "" {
		v, ok := new(big.Int).SetString(cfg.NativeBalanceWei, 10)
		if !ok {
			return nil, fmt.Errorf("memory wallet balance %q is not a decimal integer", cfg.NativeBalanceWei)
		}
		w.balances[chainID] = v
	}
	return w, nil
}

// MustNew is New for tests and fixed configs.
func MustNew(cfg Config) *Wallet {
	w, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return w
}

func rejected(msg string) error {
	return &ProviderError{Code: CodeUserRejected, Message: msg}
}

func (w *Wallet) checkConnected() error {
	if w.disconnected {
		return &ProviderError{Code: CodeDisconnected, Message: "The provider is disconnected from all chains."}
	}
	return nil
}

func (w *Wallet) RequestAccounts(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	w.requestCount++
	gate := w.connectGate
	w.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return nil, err
	}
	if w.rejectConnect {
		return nil, rejected("User rejected the request.")
	}
	w.authorized = true
	return []string{w.address}, nil
}

func (w *Wallet) Accounts(context.Context) ([]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return nil, err
	}
	if !w.authorized {
		return []string{}, nil
	}
	return []string{w.address}, nil
}

func (w *Wallet) ChainID(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	return w.chainID, nil
}

// SwitchChain switches to a known chain and then emits chainChanged, like a browser wallet.
func (w *Wallet) SwitchChain(_ context.Context, chainID string) error {
	chainID = strings.ToLower(chainID)

	w.mu.Lock()
	if err := w.checkConnected(); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.rejectSwitch {
		w.mu.Unlock()
		return rejected("User rejected the request.")
	}
	if !w.knownChains[chainID] {
		w.mu.Unlock()
		return &ProviderError{Code: CodeUnrecognizedChain, Message: fmt.Sprintf("Unrecognized chain ID %q.", chainID)}
	}
	changed := w.chainID != chainID
	w.chainID = chainID
	w.mu.Unlock()

	if changed {
		w.chainFeed.Send(chainID)
	}
	return nil
}

func (w *Wallet) AddChain(_ context.Context, params entity.AddChainParams) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return err
	}
	if w.rejectSwitch {
		return rejected("User rejected the request.")
	}
	if params.ChainID == "" || len(params.RPCURLs) == 0 {
		return &ProviderError{Code: -32602, Message: "Invalid chain parameters."}
	}
	w.knownChains[strings.ToLower(params.ChainID)] = true
	return nil
}

func (w *Wallet) Call(_ context.Context, to string, _ string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	if out, ok := w.calls[strings.ToLower(to)]; ok {
		return out, nil
	}
	return "0x", nil
}

func (w *Wallet) SendTransaction(_ context.Context, tx entity.TransactionRequest) (string, error) {
	w.mu.Lock()
	if err := w.checkConnected(); err != nil {
		w.mu.Unlock()
		return "", err
	}
	if !w.authorized || !strings.EqualFold(tx.From, w.address) {
		w.mu.Unlock()
		return "", &ProviderError{Code: CodeUnauthorized, Message: "The requested account has not been authorized."}
	}
	if w.rejectSend {
		w.mu.Unlock()
		return "", rejected("User denied transaction signature.")
	}
	if w.sendErr != nil {
		err := w.sendErr
		w.mu.Unlock()
		return "", err
	}
	hook := w.beforeSend
	w.mu.Unlock()

	if hook != nil {
		hook(tx)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sent = append(w.sent, tx)
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%d:%s:%s:%s", w.chainID, len(w.sent), tx.To, tx.Value, tx.Data)))
	return hash.Hex(), nil
}

func (w *Wallet) EstimateGas(context.Context, entity.TransactionRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	return hexutil.EncodeBig(w.gasEstimate), nil
}

func (w *Wallet) GasPrice(context.Context) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	return hexutil.EncodeBig(w.gasPrice), nil
}

func (w *Wallet) GetBalance(_ context.Context, address string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	if !strings.EqualFold(address, w.address) {
		return "0x0", nil
	}
	if b, ok := w.balances[w.chainID]; ok {
		return hexutil.EncodeBig(b), nil
	}
	return "0x0", nil
}

// Sign produces an EIP-191 personal_sign signature (V in {27, 28}).
func (w *Wallet) Sign(_ context.Context, message string, address string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkConnected(); err != nil {
		return "", err
	}
	if !strings.EqualFold(address, w.address) {
		return "", &ProviderError{Code: CodeUnauthorized, Message: "The requested account has not been authorized."}
	}
	if w.rejectSign {
		return "", rejected("User denied message signature.")
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	if err != nil {
		return "", &ProviderError{Code: CodeInternal, Message: err.Error()}
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

func (w *Wallet) SubscribeAccountsChanged(ch chan<- []string) event.Subscription {
	return w.accountsFeed.Subscribe(ch)
}

func (w *Wallet) SubscribeChainChanged(ch chan<- string) event.Subscription {
	return w.chainFeed.Subscribe(ch)
}
