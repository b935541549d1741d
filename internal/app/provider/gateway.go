package provider

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/pkg/metrics"
	"wallet_session/internal/pkg/utils"
)

// EIP-1193 provider error codes.
const (
	codeUserRejected      = 4001
	codeUnauthorized      = 4100
	codeDisconnected      = 4900
	codeChainDisconnected = 4901
	codeUnrecognizedChain = 4902
)

const eventBufferSize = 16

// Gateway is the only component that talks to the wallet provider. Every failure it
// returns is an *entity.WalletError.
type Gateway struct {
	provider   port.WalletProvider
	classifier port.NetworkClassifier
	logger     port.Logger
	metrics    metrics.Recorder

	mu        sync.Mutex
	listening bool
}

// NewGateway wraps p; a nil p means no wallet is installed and every call fails with
// ProviderAbsent.
func NewGateway(p port.WalletProvider, classifier port.NetworkClassifier, log port.Logger, rec metrics.Recorder) *Gateway {
	if rec == nil {
		rec = metrics.NewNoopRecorder()
	}
	return &Gateway{provider: p, classifier: classifier, logger: log, metrics: rec}
}

// Available reports whether a provider is installed.
func (g *Gateway) Available() bool { return g.provider != nil }

// GetActiveAccount returns the first authorised account, lowercased, or ok=false when
// the wallet exposes none.
func (g *Gateway) GetActiveAccount(ctx context.Context) (string, bool, error) {
	const op = "GetActiveAccount"
	if err := g.ensure(op); err != nil {
		return "", false, err
	}
	var accounts []string
	err := g.observe(op, func() (err error) {
		accounts, err = g.provider.Accounts(ctx)
		return err
	})
	if err != nil {
		return "", false, g.classify(op, err)
	}
	if len(accounts) == 0 || accounts[0] == "" {
		return "", false, nil
	}
	return strings.ToLower(accounts[0]), true, nil
}

// GetActiveChain returns the wallet's chain id in canonical hex, or ok=false when the
// wallet reports none.
func (g *Gateway) GetActiveChain(ctx context.Context) (string, bool, error) {
	const op = "GetActiveChain"
	if err := g.ensure(op); err != nil {
		return "", false, err
	}
	var chainID string
	err := g.observe(op, func() (err error) {
		chainID, err = g.provider.ChainID(ctx)
		return err
	})
	if err != nil {
		return "", false, g.classify(op, err)
	}
	if chainID == "" {
		return "", false, nil
	}
	if id, ok := networkdefinition.NormalizeChainID(chainID); ok {
		return id, true, nil
	}
	return strings.ToLower(chainID), true, nil
}

// RequestConnection prompts the user to authorise accounts.
func (g *Gateway) RequestConnection(ctx context.Context) ([]string, error) {
	const op = "RequestConnection"
	if err := g.ensure(op); err != nil {
		return nil, err
	}
	var accounts []string
	err := g.observe(op, func() (err error) {
		accounts, err = g.provider.RequestAccounts(ctx)
		return err
	})
	if err != nil {
		return nil, g.classify(op, err)
	}
	if len(accounts) == 0 {
		return nil, g.classify(op, entity.Errorf(entity.KindUserRejected, op, "wallet returned no accounts"))
	}
	out := make([]string, len(accounts))
	for i, a := range accounts {
		out[i] = strings.ToLower(a)
	}
	return out, nil
}

// SwitchNetwork asks the wallet to change chain. When the wallet does not know the chain
// it is registered from the network table and the switch is retried once.
func (g *Gateway) SwitchNetwork(ctx context.Context, chainID string) error {
	const op = "SwitchNetwork"
	if err := g.ensure(op); err != nil {
		return err
	}
	id, ok := networkdefinition.NormalizeChainID(chainID)
	if !ok {
		return g.classify(op, entity.Errorf(entity.KindUnsupportedNetwork, op, "invalid chain id %q", chainID))
	}

	err := g.classify(op, g.observe(op, func() error { return g.provider.SwitchChain(ctx, id) }))
	if !errors.Is(err, entity.ErrUnsupportedNetwork) {
		return err
	}

	desc := g.classifier.Classify(id)
	if !desc.Known {
		return err
	}
	g.logger.Info("Wallet does not know network, registering it", "chainId", id, "name", desc.DisplayName)
	if addErr := g.AddNetwork(ctx, desc); addErr != nil {
		return addErr
	}
	return g.classify(op, g.observe(op, func() error { return g.provider.SwitchChain(ctx, id) }))
}

// AddNetwork registers desc with the wallet (wallet_addEthereumChain).
func (g *Gateway) AddNetwork(ctx context.Context, desc entity.NetworkDescriptor) error {
	const op = "AddNetwork"
	if err := g.ensure(op); err != nil {
		return err
	}
	params := networkdefinition.AddChainParams(desc)
	return g.classify(op, g.observe(op, func() error { return g.provider.AddChain(ctx, params) }))
}

// RawCall performs a read-only contract call and returns the raw hex payload.
func (g *Gateway) RawCall(ctx context.Context, to, data string) (string, error) {
	const op = "RawCall"
	if err := g.ensure(op); err != nil {
		return "", err
	}
	var out string
	err := g.observe(op, func() (err error) {
		out, err = g.provider.Call(ctx, to, data)
		return err
	})
	return out, g.classify(op, err)
}

// SendTransaction submits tx and returns its hash as soon as the wallet accepts it.
func (g *Gateway) SendTransaction(ctx context.Context, tx entity.TransactionRequest) (string, error) {
	const op = "SendTransaction"
	if err := g.ensure(op); err != nil {
		return "", err
	}
	var hash string
	err := g.observe(op, func() (err error) {
		hash, err = g.provider.SendTransaction(ctx, tx)
		return err
	})
	return hash, g.classify(op, err)
}

// EstimateGas returns the gas units needed for tx.
func (g *Gateway) EstimateGas(ctx context.Context, tx entity.TransactionRequest) (*big.Int, error) {
	const op = "EstimateGas"
	if err := g.ensure(op); err != nil {
		return nil, err
	}
	var raw string
	err := g.observe(op, func() (err error) {
		raw, err = g.provider.EstimateGas(ctx, tx)
		return err
	})
	if err != nil {
		return nil, g.classify(op, err)
	}
	v, err := utils.ParseHexQuantity(raw)
	if err != nil {
		return nil, g.classify(op, err)
	}
	return v, nil
}

// GasPrice returns the current gas price in base units.
func (g *Gateway) GasPrice(ctx context.Context) (*big.Int, error) {
	const op = "GasPrice"
	if err := g.ensure(op); err != nil {
		return nil, err
	}
	var raw string
	err := g.observe(op, func() (err error) {
		raw, err = g.provider.GasPrice(ctx)
		return err
	})
	if err != nil {
		return nil, g.classify(op, err)
	}
	v, err := utils.ParseHexQuantity(raw)
	if err != nil {
		return nil, g.classify(op, err)
	}
	return v, nil
}

// GetBalance returns the raw hex native balance of address.
func (g *Gateway) GetBalance(ctx context.Context, address string) (string, error) {
	const op = "GetBalance"
	if err := g.ensure(op); err != nil {
		return "", err
	}
	var raw string
	err := g.observe(op, func() (err error) {
		raw, err = g.provider.GetBalance(ctx, address)
		return err
	})
	return raw, g.classify(op, err)
}

// SignMessage asks the wallet to sign message with address (personal_sign).
func (g *Gateway) SignMessage(ctx context.Context, message, address string) (string, error) {
	const op = "SignMessage"
	if err := g.ensure(op); err != nil {
		return "", err
	}
	var sig string
	err := g.observe(op, func() (err error) {
		sig, err = g.provider.Sign(ctx, message, address)
		return err
	})
	return sig, g.classify(op, err)
}

// Listen registers the single handler for provider notifications. Events are delivered
// on one goroutine in arrival order per stream until ctx is done or the returned
// subscription is cancelled. A second registration fails.
func (g *Gateway) Listen(ctx context.Context, handler port.ProviderEventHandler) (event.Subscription, error) {
	const op = "Listen"
	if err := g.ensure(op); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.listening {
		g.mu.Unlock()
		return nil, entity.Errorf(entity.KindRPCFailure, op, "a provider event handler is already registered")
	}
	g.listening = true
	g.mu.Unlock()

	accountsCh := make(chan []string, eventBufferSize)
	chainCh := make(chan string, eventBufferSize)
	accountsSub := g.provider.SubscribeAccountsChanged(accountsCh)
	chainSub := g.provider.SubscribeChainChanged(chainCh)

	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer accountsSub.Unsubscribe()
		defer chainSub.Unsubscribe()
		defer func() {
			g.mu.Lock()
			g.listening = false
			g.mu.Unlock()
		}()

		for {
			select {
			case accounts := <-accountsCh:
				handler.HandleAccountsChanged(accounts)
			case chainID := <-chainCh:
				handler.HandleChainChanged(chainID)
			case err := <-accountsSub.Err():
				return err
			case err := <-chainSub.Err():
				return err
			case <-ctx.Done():
				return nil
			case <-quit:
				return nil
			}
		}
	}), nil
}

func (g *Gateway) ensure(op string) error {
	if g.provider == nil {
		return g.classify(op, entity.Errorf(entity.KindProviderAbsent, op, "no wallet provider installed"))
	}
	return nil
}

func (g *Gateway) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	g.metrics.ObserveLatency(op, time.Since(start), nil)
	return err
}

// classify maps a provider failure onto the error taxonomy.
func (g *Gateway) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	we := toWalletError(op, err)
	g.metrics.IncCounter(metrics.ProviderError, map[string]string{"kind": string(we.Kind)})
	g.logger.Debug("Wallet provider call failed", "op", op, "kind", we.Kind, "code", we.Code, "error", err)
	return we
}

func toWalletError(op string, err error) *entity.WalletError {
	var we *entity.WalletError
	if errors.As(err, &we) {
		return we
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code := rpcErr.ErrorCode()
		kind := entity.KindRPCFailure
		switch code {
		case codeUserRejected, codeUnauthorized:
			kind = entity.KindUserRejected
		case codeUnrecognizedChain:
			kind = entity.KindUnsupportedNetwork
		case codeDisconnected, codeChainDisconnected:
			// Installed but offline; a later call may succeed.
			kind = entity.KindRPCFailure
		}
		return &entity.WalletError{Kind: kind, Op: op, Code: code, Err: err}
	}

	return &entity.WalletError{Kind: entity.KindRPCFailure, Op: op, Err: err}
}
