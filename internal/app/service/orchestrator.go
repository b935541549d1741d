package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/metrics"
)

// OrchestratorService runs verify-then-pay attempts. Each Run is a fresh attempt;
// nothing from an earlier attempt is resumed.
type OrchestratorService struct {
	session    port.SessionManager
	balances   port.BalanceService
	verifier   port.IdentityVerifier
	tokens     port.TokenProvider
	classifier port.NetworkClassifier
	sink       port.RecordSink
	logger     port.Logger
	metrics    metrics.Recorder
	now        func() time.Time

	feeChainID  string
	callbackURL string

	mu     sync.Mutex
	seq    uint64
	latest *attempt
}

// OrchestratorDeps groups the collaborators of an OrchestratorService.
type OrchestratorDeps struct {
	Session    port.SessionManager
	Balances   port.BalanceService
	Verifier   port.IdentityVerifier
	Tokens     port.TokenProvider
	Classifier port.NetworkClassifier
	Sink       port.RecordSink
	Logger     port.Logger
	Metrics    metrics.Recorder
}

type attempt struct {
	id      uint64
	userID  string
	state   entity.OrchestrationState
	history []entity.StateTransition
	result  *entity.OrchestrationResult
	err     *entity.ErrorRecord
}

// NewOrchestrator creates an orchestrator that pays fees on feeChainID when the wallet
// is not on a fee-capable network already.
func NewOrchestrator(deps OrchestratorDeps, feeChainID, callbackURL string) *OrchestratorService {
	rec := deps.Metrics
	if rec == nil {
		rec = metrics.NewNoopRecorder()
	}
	return &OrchestratorService{
		session:     deps.Session,
		balances:    deps.Balances,
		verifier:    deps.Verifier,
		tokens:      deps.Tokens,
		classifier:  deps.Classifier,
		sink:        deps.Sink,
		logger:      deps.Logger,
		metrics:     rec,
		now:         time.Now,
		feeChainID:  feeChainID,
		callbackURL: callbackURL,
	}
}

// Latest returns the state and history of the most recent attempt.
func (o *OrchestratorService) Latest() (entity.AttemptSnapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.latest == nil {
		return entity.AttemptSnapshot{}, false
	}
	a := o.latest
	snap := entity.AttemptSnapshot{
		ID:      a.id,
		UserID:  a.userID,
		State:   a.state,
		History: append([]entity.StateTransition(nil), a.history...),
	}
	if a.result != nil {
		r := *a.result
		snap.Result = &r
	}
	if a.err != nil {
		e := *a.err
		snap.Error = &e
	}
	return snap, true
}

// Run performs one attempt for userID and always ends in Completed. The returned error
// is non-nil only when the attempt could not start.
func (o *OrchestratorService) Run(ctx context.Context, userID string) (entity.OrchestrationResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entity.OrchestrationResult{}, entity.Errorf(entity.KindVerificationFailed, "Run", "user id is required")
	}

	a := o.begin(userID)
	o.logger.Info("Verification attempt started", "attempt", a.id, "userId", userID)

	o.transition(a, entity.StateAwaitingVerification)
	outcome, err := o.verifier.Verify(ctx, entity.VerificationRequest{UserID: userID, CallbackURL: o.callbackURL})
	if err != nil {
		err = entity.NewError(entity.KindVerificationFailed, "Verify", err)
		return o.failVerification(ctx, a, err.Error(), err), nil
	}
	if !outcome.Verified {
		reason := outcome.Reason
		if reason == "" {
			reason = "Identity verification failed"
		}
		return o.failVerification(ctx, a, reason, entity.Errorf(entity.KindVerificationFailed, "Verify", "%s", reason)), nil
	}

	directive := outcome.Directive
	if directive == nil || !directive.Required {
		return o.complete(ctx, a, entity.OrchestrationResult{UserID: userID, Verified: true}, nil), nil
	}

	txID, err := o.pay(ctx, a, *directive)
	result := entity.OrchestrationResult{
		UserID:          userID,
		Verified:        true,
		PaymentRequired: true,
		Directive:       directive,
	}
	if err != nil {
		// Connect and switch failures complete directly; only a failed submit passes
		// through PaymentFailed.
		if o.stateOf(a) == entity.StateSubmittingPayment {
			o.transition(a, entity.StatePaymentFailed)
		}
		result.PaymentStatus = entity.PaymentFailed
		result.Reason = paymentReason(err)
		return o.complete(ctx, a, result, err), nil
	}
	o.transition(a, entity.StatePaymentSucceeded)
	result.PaymentStatus = entity.PaymentSucceeded
	result.TxID = txID
	return o.complete(ctx, a, result, nil), nil
}

// pay drives the wallet through connection, network switch and fee transfer.
func (o *OrchestratorService) pay(ctx context.Context, a *attempt, d entity.PaymentDirective) (string, error) {
	const op = "Pay"

	if !o.session.Snapshot().IsConnected() {
		o.transition(a, entity.StateAwaitingWalletConnection)
		if _, err := o.session.Connect(ctx); err != nil {
			return "", err
		}
	}

	o.transition(a, entity.StateAwaitingNetworkSwitch)
	snap := o.session.Snapshot()
	if !snap.IsConnected() {
		return "", entity.Errorf(entity.KindNotConnected, op, "wallet disconnected before payment")
	}
	if !snap.Network.IsFeeCapableNetwork {
		target := o.classifier.Classify(o.feeChainID)
		o.logger.Info("Switching to fee network", "attempt", a.id, "from", snap.Network.ChainID, "to", target.ChainID)
		var err error
		if snap, err = o.session.SwitchNetwork(ctx, target.ChainID); err != nil {
			return "", err
		}
		if !snap.IsConnected() || !snap.Network.IsFeeCapableNetwork {
			return "", entity.Errorf(entity.KindUnsupportedNetwork, op, "wallet did not move to a fee-capable network")
		}
	}
	gen := snap.Generation
	network := *snap.Network

	o.transition(a, entity.StateSubmittingPayment)
	if o.session.Generation() != gen {
		return "", entity.Errorf(entity.KindSessionReset, op, "session changed before payment")
	}

	var (
		txID string
		err  error
	)
	if d.Currency == "" || strings.EqualFold(d.Currency, network.NativeSymbol) {
		txID, err = o.balances.TransferNative(ctx, d.RecipientAddress, d.Amount)
	} else {
		token, ok := o.tokens.FindToken(network, d.Currency)
		if !ok {
			return "", entity.Errorf(entity.KindPaymentFailed, op, "fee currency %s is not available on %s", d.Currency, network.DisplayName)
		}
		txID, err = o.balances.TransferToken(ctx, token, d.RecipientAddress, d.Amount)
	}
	if err != nil {
		return "", err
	}
	o.logger.Info("Verification fee paid", "attempt", a.id, "txId", txID, "amount", d.Amount, "currency", d.Currency, "network", network.ChainID)
	return txID, nil
}

func (o *OrchestratorService) failVerification(ctx context.Context, a *attempt, reason string, err error) entity.OrchestrationResult {
	o.transition(a, entity.StateVerificationFailed)
	return o.complete(ctx, a, entity.OrchestrationResult{UserID: a.userID, Reason: reason}, err)
}

// complete moves the attempt to Completed and hands the result to the record sink.
func (o *OrchestratorService) complete(ctx context.Context, a *attempt, result entity.OrchestrationResult, cause error) entity.OrchestrationResult {
	result.CompletedAt = o.now().UTC()

	o.mu.Lock()
	if a.state == entity.StateCompleted {
		done := *a.result
		o.mu.Unlock()
		return done
	}
	o.transitionLocked(a, entity.StateCompleted)
	r := result
	a.result = &r
	a.err = entity.NewErrorRecord(cause, result.CompletedAt)
	o.mu.Unlock()

	o.metrics.IncCounter(metrics.OrchestrationOutcome, map[string]string{"kind": outcomeLabel(result)})
	o.logger.Info("Verification attempt completed",
		"attempt", a.id, "userId", a.userID, "verified", result.Verified,
		"paymentRequired", result.PaymentRequired, "paymentStatus", string(result.PaymentStatus), "txId", result.TxID)

	if o.sink != nil {
		rec := entity.VerificationRecord{
			UserID:          result.UserID,
			Verified:        result.Verified,
			PaymentRequired: result.PaymentRequired,
			PaymentStatus:   result.PaymentStatus,
			TxID:            result.TxID,
			RecordedAt:      result.CompletedAt,
		}
		if err := o.sink.Save(context.WithoutCancel(ctx), rec); err != nil {
			o.logger.Error("Failed to store verification record", "attempt", a.id, "userId", a.userID, "error", err)
		}
	}
	return result
}

func (o *OrchestratorService) begin(userID string) *attempt {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seq++
	a := &attempt{id: o.seq, userID: userID, state: entity.StateIdle}
	o.latest = a
	return a
}

func (o *OrchestratorService) stateOf(a *attempt) entity.OrchestrationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return a.state
}

func (o *OrchestratorService) transition(a *attempt, to entity.OrchestrationState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitionLocked(a, to)
}

func (o *OrchestratorService) transitionLocked(a *attempt, to entity.OrchestrationState) {
	a.history = append(a.history, entity.StateTransition{From: a.state, To: to, At: o.now().UTC()})
	a.state = to
}

func outcomeLabel(r entity.OrchestrationResult) string {
	switch {
	case !r.Verified:
		return "verification_failed"
	case !r.PaymentRequired:
		return "verified"
	case r.PaymentStatus == entity.PaymentSucceeded:
		return "paid"
	default:
		return "payment_failed"
	}
}

func paymentReason(err error) string {
	switch entity.KindOf(err) {
	case entity.KindUserRejected:
		return "Payment failed: the wallet request was rejected"
	case entity.KindProviderAbsent:
		return "Payment failed: no wallet provider available"
	case entity.KindUnsupportedNetwork:
		return "Payment failed: could not switch to a fee-capable network"
	case entity.KindSessionReset:
		return "Payment failed: the wallet session changed during payment"
	default:
		return "Payment failed: " + err.Error()
	}
}
