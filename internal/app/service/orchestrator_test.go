package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_session/internal/domain/entity"
	"wallet_session/internal/infrastructure/recordstore"
	"wallet_session/internal/infrastructure/tokenloader"
	"wallet_session/internal/infrastructure/wallet/memprovider"
	"wallet_session/internal/pkg/logger"
)

type stubVerifier struct {
	outcome entity.VerificationOutcome
	err     error
	calls   int
}

func (v *stubVerifier) Verify(_ context.Context, req entity.VerificationRequest) (entity.VerificationOutcome, error) {
	v.calls++
	return v.outcome, v.err
}

type failingSink struct{}

func (failingSink) Save(context.Context, entity.VerificationRecord) error {
	return errors.New("backend down")
}

type orchestratorFixture struct {
	*sessionFixture
	verifier *stubVerifier
	records  *recordstore.MemoryStore
	orch     *OrchestratorService
}

func celoDirective(currency string) *entity.PaymentDirective {
	return &entity.PaymentDirective{
		Required:         true,
		Amount:           "0.001",
		Currency:         currency,
		RecipientAddress: recipient,
	}
}

func newOrchestratorFixture(t *testing.T, cfg memprovider.Config, outcome entity.VerificationOutcome) *orchestratorFixture {
	t.Helper()
	f := newSessionFixture(t, cfg)
	tokens := tokenloader.NewTokenLoader(logger.NewNop(), t.TempDir(), []entity.TokenInfo{
		{ChainID: 42220, Address: cUSDAddress, Symbol: "cUSD", Decimals: 18},
	})
	balances := NewBalanceService(f.gateway, f.session, tokens, logger.NewNop(), time.Minute, time.Minute, 2)
	verifier := &stubVerifier{outcome: outcome}
	records := recordstore.NewMemoryStore(logger.NewNop())
	orch := NewOrchestrator(OrchestratorDeps{
		Session:    f.session,
		Balances:   balances,
		Verifier:   verifier,
		Tokens:     tokens,
		Classifier: f.classifier,
		Sink:       records,
		Logger:     logger.NewNop(),
	}, "0xaef3", "")
	return &orchestratorFixture{sessionFixture: f, verifier: verifier, records: records, orch: orch}
}

func states(snap entity.AttemptSnapshot) []entity.OrchestrationState {
	out := make([]entity.OrchestrationState, 0, len(snap.History))
	for _, tr := range snap.History {
		out = append(out, tr.To)
	}
	return out
}

func TestRunPaysWhenConnectedOnFeeNetwork(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true, Directive: celoDirective("CELO")})
	f.connect(t)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, res.PaymentRequired)
	assert.Equal(t, entity.PaymentSucceeded, res.PaymentStatus)
	assert.NotEmpty(t, res.TxID)

	sent := f.wallet.SentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, recipient, sent[0].To)

	snap, ok := f.orch.Latest()
	require.True(t, ok)
	assert.Equal(t, entity.StateCompleted, snap.State)
	assert.Equal(t, []entity.OrchestrationState{
		entity.StateAwaitingVerification,
		entity.StateAwaitingNetworkSwitch,
		entity.StateSubmittingPayment,
		entity.StatePaymentSucceeded,
		entity.StateCompleted,
	}, states(snap))
	assert.Equal(t, entity.StateIdle, snap.History[0].From)

	recs := f.records.List()
	require.Len(t, recs, 1)
	assert.Equal(t, res.TxID, recs[0].TxID)
	assert.True(t, recs[0].Verified)
}

func TestRunWithoutRequiredPaymentSkipsWallet(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0x1"}, entity.VerificationOutcome{Verified: true, Directive: &entity.PaymentDirective{Required: false}})

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.False(t, res.PaymentRequired)
	assert.Equal(t, entity.PaymentNone, res.PaymentStatus)

	assert.Zero(t, f.wallet.RequestCount())
	assert.Empty(t, f.wallet.SentTransactions())
	assert.Equal(t, entity.StatusDisconnected, f.session.Snapshot().Status)
}

func TestRunConnectRejectedKeepsVerification(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true, Directive: celoDirective("CELO")})
	f.wallet.SetRejectConnect(true)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, res.PaymentRequired)
	assert.Equal(t, entity.PaymentFailed, res.PaymentStatus)
	assert.NotEmpty(t, res.Reason)
	assert.Empty(t, res.TxID)

	snap, _ := f.orch.Latest()
	assert.Equal(t, []entity.OrchestrationState{
		entity.StateAwaitingVerification,
		entity.StateAwaitingWalletConnection,
		entity.StateCompleted,
	}, states(snap))
	require.NotNil(t, snap.Error)
	assert.Equal(t, entity.KindUserRejected, snap.Error.Kind)
}

func TestRunVerificationFailedSkipsPayment(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: false, Reason: "document expired"})
	f.connect(t)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.False(t, res.PaymentRequired)
	assert.Equal(t, "document expired", res.Reason)
	assert.Empty(t, f.wallet.SentTransactions())

	snap, _ := f.orch.Latest()
	assert.Equal(t, []entity.OrchestrationState{
		entity.StateAwaitingVerification,
		entity.StateVerificationFailed,
		entity.StateCompleted,
	}, states(snap))

	recs := f.records.List()
	require.Len(t, recs, 1)
	assert.False(t, recs[0].Verified)
}

func TestRunVerifierErrorCompletes(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{})
	f.verifier.err = errors.New("verification for u timed out")

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Contains(t, res.Reason, "timed out")

	snap, _ := f.orch.Latest()
	assert.Equal(t, entity.StateCompleted, snap.State)
	require.NotNil(t, snap.Error)
	assert.Equal(t, entity.KindVerificationFailed, snap.Error.Kind)
}

func TestRunSwitchesToFeeNetwork(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0x1", KnownChains: []string{"0xaef3"}},
		entity.VerificationOutcome{Verified: true, Directive: celoDirective("CELO")})
	f.connect(t)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSucceeded, res.PaymentStatus)
	assert.Equal(t, "0xaef3", f.wallet.CurrentChain())
	assert.Equal(t, "0xaef3", f.session.Snapshot().Network.ChainID)
}

func TestRunSwitchRejectedFailsPayment(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0x1", KnownChains: []string{"0xaef3"}},
		entity.VerificationOutcome{Verified: true, Directive: celoDirective("CELO")})
	f.connect(t)
	f.wallet.SetRejectSwitch(true)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, entity.PaymentFailed, res.PaymentStatus)
	assert.Empty(t, f.wallet.SentTransactions())

	snap, _ := f.orch.Latest()
	assert.Equal(t, []entity.OrchestrationState{
		entity.StateAwaitingVerification,
		entity.StateAwaitingNetworkSwitch,
		entity.StateCompleted,
	}, states(snap))
}

func TestRunPaysInToken(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true, Directive: celoDirective("cusd")})
	f.connect(t)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSucceeded, res.PaymentStatus)

	sent := f.wallet.SentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, cUSDAddress, sent[0].To)
}

func TestRunUnknownCurrencyFailsPayment(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true, Directive: celoDirective("DOGE")})
	f.connect(t)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, entity.PaymentFailed, res.PaymentStatus)
	assert.Contains(t, res.Reason, "DOGE")
}

func TestRunTransferRejectedKeepsVerification(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true, Directive: celoDirective("CELO")})
	f.connect(t)
	f.wallet.SetRejectSend(true)

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, entity.PaymentFailed, res.PaymentStatus)

	snap, _ := f.orch.Latest()
	assert.Equal(t, []entity.OrchestrationState{
		entity.StateAwaitingVerification,
		entity.StateAwaitingNetworkSwitch,
		entity.StateSubmittingPayment,
		entity.StatePaymentFailed,
		entity.StateCompleted,
	}, states(snap))
	assert.Equal(t, entity.StateCompleted, snap.State)
}

func TestRunSinkFailureDoesNotChangeResult(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true})
	f.orch.sink = failingSink{}

	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	snap, _ := f.orch.Latest()
	assert.Nil(t, snap.Error)
}

func TestRetryStartsFreshAttempt(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: false, Reason: "blurry"})

	_, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	first, _ := f.orch.Latest()

	f.verifier.outcome = entity.VerificationOutcome{Verified: true}
	res, err := f.orch.Run(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Empty(t, res.Reason)

	second, _ := f.orch.Latest()
	assert.Equal(t, first.ID+1, second.ID)
	assert.Len(t, second.History, 2)
	assert.Nil(t, second.Error)
	assert.Equal(t, 2, f.verifier.calls)
}

func TestRunRequiresUserID(t *testing.T) {
	f := newOrchestratorFixture(t, memprovider.Config{ChainID: "0xa4ec"}, entity.VerificationOutcome{Verified: true})

	_, err := f.orch.Run(context.Background(), "  ")
	assert.Error(t, err)
	_, ok := f.orch.Latest()
	assert.False(t, ok)
	assert.Zero(t, f.verifier.calls)
}
