package port

import (
	"context"

	"github.com/ethereum/go-ethereum/event"

	"wallet_session/internal/domain/entity"
)

// SessionView is the read side of the wallet session used by dependent services.
type SessionView interface {
	// Active returns the connected account context or a NotConnected error.
	Active() (entity.ActiveContext, error)
	Generation() uint64
	// CacheBalance stores a formatted native balance if gen and address are still current.
	CacheBalance(gen uint64, address, balance string) bool
}

// SessionManager owns the wallet session state machine.
type SessionManager interface {
	SessionView
	ProviderEventHandler

	Snapshot() entity.SessionState
	Connect(ctx context.Context) (entity.SessionState, error)
	Restore(ctx context.Context) (entity.SessionState, error)
	Disconnect()
	SwitchNetwork(ctx context.Context, chainID string) (entity.SessionState, error)
	AttachIdentityLink(gen uint64, address string, link *entity.IdentityLink) error
	UpdateIdentityLink(fn func(link *entity.IdentityLink) error) (*entity.IdentityLink, error)
	SubscribeResets(ch chan<- entity.ResetSignal) event.Subscription
}

// BalanceService reads balances and submits transfers for the connected account.
type BalanceService interface {
	GetNativeBalance(ctx context.Context, address string) (string, error)
	GetTokenBalance(ctx context.Context, tokenAddress string, decimals uint8) (string, bool, error)
	GetFeeTokenBalances(ctx context.Context) ([]entity.Balance, error)
	TransferNative(ctx context.Context, to, amount string) (string, error)
	TransferToken(ctx context.Context, token entity.TokenInfo, to, amount string) (string, error)
	EstimateFee(ctx context.Context, to, amount string) (string, error)
}

// IdentityService manages the decentralized identity link of the connected account.
type IdentityService interface {
	LinkIdentity(ctx context.Context) (*entity.IdentityLink, error)
	GetProfile(ctx context.Context) (map[string]any, error)
	SetProfile(ctx context.Context, doc map[string]any) (map[string]any, error)
}

// Orchestrator runs verify-then-pay attempts.
type Orchestrator interface {
	Run(ctx context.Context, userID string) (entity.OrchestrationResult, error)
	Latest() (entity.AttemptSnapshot, bool)
}
