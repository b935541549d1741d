package port

import (
	"context"
	"math/big"

	"wallet_session/internal/domain/entity"

	"github.com/ethereum/go-ethereum/event"
)

// WalletProvider is the single injected wallet (EIP-1193 style). Implementations report
// provider failures as errors carrying the numeric provider code (rpc.Error).
type WalletProvider interface {
	RequestAccounts(ctx context.Context) ([]string, error)
	Accounts(ctx context.Context) ([]string, error)
	ChainID(ctx context.Context) (string, error)
	SwitchChain(ctx context.Context, chainID string) error
	AddChain(ctx context.Context, params entity.AddChainParams) error
	Call(ctx context.Context, to string, data string) (string, error)
	SendTransaction(ctx context.Context, tx entity.TransactionRequest) (string, error)
	EstimateGas(ctx context.Context, tx entity.TransactionRequest) (string, error)
	GasPrice(ctx context.Context) (string, error)
	GetBalance(ctx context.Context, address string) (string, error)
	Sign(ctx context.Context, message string, address string) (string, error)

	// SubscribeAccountsChanged delivers every new account list pushed by the wallet.
	SubscribeAccountsChanged(ch chan<- []string) event.Subscription
	// SubscribeChainChanged delivers every new chain id pushed by the wallet.
	SubscribeChainChanged(ch chan<- string) event.Subscription
}

// ProviderEventHandler receives provider push notifications in delivery order.
type ProviderEventHandler interface {
	HandleAccountsChanged(accounts []string)
	HandleChainChanged(chainID string)
}

// WalletGateway is the classified, provider-agnostic view of the wallet used by services.
// Every returned error is an *entity.WalletError.
type WalletGateway interface {
	Available() bool
	GetActiveAccount(ctx context.Context) (string, bool, error)
	GetActiveChain(ctx context.Context) (string, bool, error)
	RequestConnection(ctx context.Context) ([]string, error)
	SwitchNetwork(ctx context.Context, chainID string) error
	AddNetwork(ctx context.Context, desc entity.NetworkDescriptor) error
	RawCall(ctx context.Context, to, data string) (string, error)
	SendTransaction(ctx context.Context, tx entity.TransactionRequest) (string, error)
	EstimateGas(ctx context.Context, tx entity.TransactionRequest) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	GetBalance(ctx context.Context, address string) (string, error)
	SignMessage(ctx context.Context, message, address string) (string, error)
	Listen(ctx context.Context, handler ProviderEventHandler) (event.Subscription, error)
}
