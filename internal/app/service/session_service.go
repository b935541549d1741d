package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/event"
	"golang.org/x/sync/singleflight"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"
)

const (
	connectKey            = "connect"
	defaultConnectTimeout = 2 * time.Minute
)

// SessionService implements port.SessionManager. All state changes go through the named
// transitions below under mu; provider calls are made without holding it.
type SessionService struct {
	gateway    port.WalletGateway
	classifier port.NetworkClassifier
	logger     port.Logger
	metrics    metrics.Recorder
	now        func() time.Time
	// connectTimeout bounds a shared Connect attempt, which outlives any single caller.
	connectTimeout time.Duration

	mu    sync.Mutex
	state entity.SessionState
	// accountSeq and chainSeq count applied notifications so a slow Connect never
	// overwrites a newer account or network with the one it fetched.
	accountSeq     uint64
	chainSeq       uint64
	absentReported bool

	resetFeed    event.Feed
	connectGroup singleflight.Group
}

// NewSessionService creates a disconnected session.
func NewSessionService(
	gw port.WalletGateway,
	classifier port.NetworkClassifier,
	l port.Logger,
	rec metrics.Recorder,
) *SessionService {
	if rec == nil {
		rec = metrics.NewNoopRecorder()
	}
	return &SessionService{
		gateway:        gw,
		classifier:     classifier,
		logger:         l,
		metrics:        rec,
		now:            time.Now,
		connectTimeout: defaultConnectTimeout,
		state:          entity.SessionState{Status: entity.StatusDisconnected},
	}
}

// SetConnectTimeout bounds how long one connect attempt may wait on the wallet.
func (s *SessionService) SetConnectTimeout(d time.Duration) {
	if d > 0 {
		s.connectTimeout = d
	}
}

// Start registers the session as the gateway's notification handler.
func (s *SessionService) Start(ctx context.Context) (event.Subscription, error) {
	return s.gateway.Listen(ctx, s)
}

// Snapshot returns a deep copy of the current state.
func (s *SessionService) Snapshot() entity.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionService) snapshotLocked() entity.SessionState {
	out := s.state
	out.Account = s.state.Account.Clone()
	if s.state.Network != nil {
		n := *s.state.Network
		out.Network = &n
	}
	if s.state.LastError != nil {
		e := *s.state.LastError
		out.LastError = &e
	}
	return out
}

// Generation returns the current session generation.
func (s *SessionService) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Generation
}

// Active returns the connected account context.
func (s *SessionService) Active() (entity.ActiveContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsConnected() {
		return entity.ActiveContext{}, entity.Errorf(entity.KindNotConnected, "Active", "wallet is not connected")
	}
	return entity.ActiveContext{
		Address:    s.state.Account.Address,
		Network:    *s.state.Network,
		Generation: s.state.Generation,
	}, nil
}

// SubscribeResets delivers a ResetSignal on every major network change. Send blocks until
// every subscriber has received, so ch should be buffered or drained promptly.
func (s *SessionService) SubscribeResets(ch chan<- entity.ResetSignal) event.Subscription {
	return s.resetFeed.Subscribe(ch)
}

// Connect prompts the wallet for an account. Concurrent callers share one attempt; a
// caller that gives up returns early without cancelling it for the others.
func (s *SessionService) Connect(ctx context.Context) (entity.SessionState, error) {
	ch := s.connectGroup.DoChan(connectKey, func() (any, error) {
		attemptCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.connectTimeout)
		defer cancel()
		return s.connect(attemptCtx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("Connect call joined an in-flight attempt")
		}
		return res.Val.(entity.SessionState), res.Err
	case <-ctx.Done():
		return s.Snapshot(), entity.NewError(entity.KindRPCFailure, "Connect", ctx.Err())
	}
}

func (s *SessionService) connect(ctx context.Context) (entity.SessionState, error) {
	const op = "Connect"

	s.mu.Lock()
	if s.state.IsConnected() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}
	if s.absentReported {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, entity.Errorf(entity.KindProviderAbsent, op, "no wallet provider installed")
	}
	s.setStatusLocked(entity.StatusConnecting)
	s.state.LastError = nil
	accountSeq, chainSeq := s.accountSeq, s.chainSeq
	s.mu.Unlock()

	accounts, err := s.gateway.RequestConnection(ctx)
	if err != nil {
		return s.failConnect(op, err)
	}
	chainID, ok, err := s.gateway.GetActiveChain(ctx)
	if err != nil {
		return s.failConnect(op, err)
	}
	if !ok {
		return s.failConnect(op, entity.Errorf(entity.KindRPCFailure, op, "wallet reported no active chain"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status != entity.StatusConnecting {
		// Disconnected while the prompt was open.
		s.logger.Info("Discarding connect result for a superseded session", "account", accounts[0])
		return s.snapshotLocked(), entity.Errorf(entity.KindSessionReset, op, "session changed while connecting")
	}

	if s.accountSeq == accountSeq {
		s.replaceAccountLocked(accounts[0])
	}
	if s.chainSeq == chainSeq {
		desc := s.classifier.Classify(chainID)
		s.state.Network = &desc
	}
	if s.state.Account == nil || s.state.Network == nil {
		s.setStatusLocked(entity.StatusDisconnected)
		err := entity.Errorf(entity.KindRPCFailure, op, "wallet state incomplete after connect")
		s.state.LastError = entity.NewErrorRecord(err, s.now())
		return s.snapshotLocked(), err
	}

	s.setStatusLocked(entity.StatusConnected)
	s.state.LastError = nil
	s.logger.Info("Wallet connected", "account", s.state.Account.Address, "network", s.state.Network.DisplayName)
	return s.snapshotLocked(), nil
}

func (s *SessionService) failConnect(op string, err error) (entity.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Status == entity.StatusConnecting {
		s.setStatusLocked(entity.StatusDisconnected)
		s.state.LastError = entity.NewErrorRecord(err, s.now())
	}
	if !s.gateway.Available() {
		s.absentReported = true
		s.logger.Error("No wallet provider available", "op", op, "error", err)
	} else {
		s.logger.Warn("Wallet connect failed", "op", op, "kind", entity.KindOf(err), "error", err)
	}
	return s.snapshotLocked(), err
}

// Restore reconnects silently to an account the wallet has already authorised, without
// prompting. It leaves the session disconnected when there is none.
func (s *SessionService) Restore(ctx context.Context) (entity.SessionState, error) {
	const op = "Restore"

	if !s.gateway.Available() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.absentReported {
			s.absentReported = true
			err := entity.Errorf(entity.KindProviderAbsent, op, "no wallet provider installed")
			s.state.LastError = entity.NewErrorRecord(err, s.now())
			s.logger.Error("No wallet provider available", "op", op)
		}
		return s.snapshotLocked(), nil
	}

	s.mu.Lock()
	accountSeq, chainSeq := s.accountSeq, s.chainSeq
	s.mu.Unlock()

	address, ok, err := s.gateway.GetActiveAccount(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	if !ok {
		s.logger.Info("No pre-authorised wallet account to restore")
		return s.Snapshot(), nil
	}
	chainID, ok, err := s.gateway.GetActiveChain(ctx)
	if err != nil {
		return s.Snapshot(), err
	}
	if !ok {
		return s.Snapshot(), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != entity.StatusDisconnected || s.accountSeq != accountSeq || s.chainSeq != chainSeq {
		return s.snapshotLocked(), nil
	}
	s.replaceAccountLocked(address)
	desc := s.classifier.Classify(chainID)
	s.state.Network = &desc
	s.setStatusLocked(entity.StatusConnected)
	s.logger.Info("Wallet session restored", "account", address, "network", desc.DisplayName)
	return s.snapshotLocked(), nil
}

// Disconnect clears account, network, identity link and error in one step and bumps
// the generation.
func (s *SessionService) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
	s.logger.Info("Wallet disconnected")
}

func (s *SessionService) clearLocked() {
	s.state.Account = nil
	s.state.Network = nil
	s.state.LastError = nil
	s.state.Generation++
	s.setStatusLocked(entity.StatusDisconnected)
}

// HandleAccountsChanged applies an accountsChanged notification.
func (s *SessionService) HandleAccountsChanged(accounts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountSeq++

	if len(accounts) == 0 || accounts[0] == "" {
		if s.state.Status != entity.StatusDisconnected {
			s.clearLocked()
			s.logger.Info("Wallet revoked all accounts, session disconnected")
		}
		return
	}
	if s.state.Status == entity.StatusDisconnected {
		s.logger.Debug("Ignoring accountsChanged while disconnected", "account", accounts[0])
		return
	}

	address := strings.ToLower(accounts[0])
	if s.state.Account != nil && s.state.Account.Address == address {
		return
	}
	previous := ""
	if s.state.Account != nil {
		previous = s.state.Account.Address
		s.state.Generation++
	}
	s.replaceAccountLocked(address)
	s.logger.Info("Wallet account changed", "from", previous, "to", address)
}

// HandleChainChanged applies a chainChanged notification.
func (s *SessionService) HandleChainChanged(chainID string) {
	s.mu.Lock()
	s.chainSeq++

	if s.state.Status == entity.StatusDisconnected {
		s.mu.Unlock()
		s.logger.Debug("Ignoring chainChanged while disconnected", "chainId", chainID)
		return
	}

	desc := s.classifier.Classify(chainID)
	if s.state.Network != nil && s.state.Network.ChainID == desc.ChainID {
		s.mu.Unlock()
		return
	}

	from := s.state.Network
	s.state.Network = &desc
	if s.state.Account != nil {
		s.state.Account.CachedNativeBalance = nil
	}

	var signal *entity.ResetSignal
	if from != nil && s.classifier.IsMajorBoundary(*from, desc) {
		s.state.Generation++
		signal = &entity.ResetSignal{From: *from, To: desc, Generation: s.state.Generation, At: s.now()}
	}
	s.mu.Unlock()

	if signal == nil {
		s.logger.Info("Wallet network changed", "chainId", desc.ChainID, "network", desc.DisplayName)
		return
	}
	s.logger.Warn("Major network change, resetting in-flight work",
		"from", signal.From.DisplayName, "to", signal.To.DisplayName, "generation", signal.Generation)
	s.metrics.IncCounter(metrics.NetworkReset, map[string]string{"network": desc.ChainID})
	s.resetFeed.Send(*signal)
}

// SwitchNetwork asks the wallet to change network and applies the resulting chain.
func (s *SessionService) SwitchNetwork(ctx context.Context, chainID string) (entity.SessionState, error) {
	const op = "SwitchNetwork"
	if _, err := s.Active(); err != nil {
		return s.Snapshot(), err
	}

	if err := s.gateway.SwitchNetwork(ctx, chainID); err != nil {
		s.recordError(err)
		return s.Snapshot(), err
	}

	current, ok, err := s.gateway.GetActiveChain(ctx)
	if err != nil {
		s.recordError(err)
		return s.Snapshot(), err
	}
	if ok {
		s.HandleChainChanged(current)
	}

	snap := s.Snapshot()
	want := s.classifier.Classify(chainID)
	if snap.Network == nil || snap.Network.ChainID != want.ChainID {
		err := entity.Errorf(entity.KindUnsupportedNetwork, op, "wallet stayed on %s", current)
		s.recordError(err)
		return s.Snapshot(), err
	}
	return snap, nil
}

// AttachIdentityLink stores link on the account it was created for. It fails with
// SessionReset when the session moved on since gen.
func (s *SessionService) AttachIdentityLink(gen uint64, address string, link *entity.IdentityLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != gen || s.state.Account == nil || s.state.Account.Address != address {
		return entity.Errorf(entity.KindSessionReset, "AttachIdentityLink", "account changed while linking")
	}
	s.state.Account.IdentityLink = link.Clone()
	return nil
}

// UpdateIdentityLink applies fn to a copy of the current link and stores it.
func (s *SessionService) UpdateIdentityLink(fn func(link *entity.IdentityLink) error) (*entity.IdentityLink, error) {
	const op = "UpdateIdentityLink"
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.IsConnected() {
		return nil, entity.Errorf(entity.KindNotConnected, op, "wallet is not connected")
	}
	if s.state.Account.IdentityLink == nil {
		return nil, entity.Errorf(entity.KindLinkAbsent, op, "no identity linked to %s", s.state.Account.Address)
	}
	link := s.state.Account.IdentityLink.Clone()
	if err := fn(link); err != nil {
		return nil, err
	}
	s.state.Account.IdentityLink = link
	return link.Clone(), nil
}

// CacheBalance stores balance on the account if gen and address are still current.
func (s *SessionService) CacheBalance(gen uint64, address, balance string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Generation != gen || s.state.Account == nil || s.state.Account.Address != address {
		return false
	}
	b := balance
	s.state.Account.CachedNativeBalance = &b
	return true
}

func (s *SessionService) recordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = entity.NewErrorRecord(err, s.now())
}

func (s *SessionService) replaceAccountLocked(address string) {
	s.state.Account = &entity.WalletAccount{Address: strings.ToLower(address)}
}

func (s *SessionService) setStatusLocked(status entity.ConnectionStatus) {
	if s.state.Status == status {
		return
	}
	s.state.Status = status
	s.metrics.IncCounter(metrics.SessionTransition, map[string]string{"kind": string(status)})
}
