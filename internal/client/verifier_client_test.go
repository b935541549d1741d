package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"wallet_session/internal/domain/entity"
)

var defaultDirective = &entity.PaymentDirective{
	Required:         true,
	Amount:           "0.001",
	Currency:         "CELO",
	RecipientAddress: "0xBDDd946e2B547496Ddb0e507ECCCde35D1AF9597",
}

func TestFormatUserID(t *testing.T) {
	id, typ := FormatUserID("0xBDDd946e2B547496Ddb0e507ECCCde35D1AF9597")
	assert.Equal(t, "0xbddd946e2b547496ddb0e507ecccde35d1af9597", id)
	assert.Equal(t, UserIDTypeHex, typ)

	id, typ = FormatUserID("3F2504E0-4F89-41D3-9A0C-0305E82C3301")
	assert.Equal(t, "3f2504e0-4f89-41d3-9a0c-0305e82c3301", id)
	assert.Equal(t, UserIDTypeUUID, typ)

	id, typ = FormatUserID("alice@example.com")
	assert.Equal(t, UserIDTypeUUID, typ)
	assert.Len(t, id, 36)
}

func TestOutcomeFromPayload(t *testing.T) {
	yes, no := true, false

	out := OutcomeFromPayload(CallbackPayload{Verified: &yes}, defaultDirective)
	assert.True(t, out.Verified)
	require.NotNil(t, out.Directive)
	assert.Equal(t, "0.001", out.Directive.Amount)
	assert.NotSame(t, defaultDirective, out.Directive)

	custom := &entity.PaymentDirective{Required: true, Amount: "0.5", Currency: "cUSD", RecipientAddress: defaultDirective.RecipientAddress}
	out = OutcomeFromPayload(CallbackPayload{Status: "success", CeloPayment: custom}, defaultDirective)
	assert.True(t, out.Verified)
	assert.Equal(t, "cUSD", out.Directive.Currency)

	out = OutcomeFromPayload(CallbackPayload{Verified: &no, Reason: "missing field `status`"}, defaultDirective)
	assert.False(t, out.Verified)
	assert.Nil(t, out.Directive)
	assert.Equal(t, "Server communication error: API endpoint configuration issue", out.Reason)

	out = OutcomeFromPayload(CallbackPayload{Status: "proof_generation_failed"}, defaultDirective)
	assert.False(t, out.Verified)
	assert.Equal(t, "Proof generation failed: Please try again", out.Reason)
}

func TestNormalizeReason(t *testing.T) {
	assert.Equal(t, "Server communication error: Unable to process verification response",
		NormalizeReason("error decoding response body: eof", "", ""))
	assert.Equal(t, "Verification error: document expired", NormalizeReason("document expired", "", ""))
	assert.Equal(t, "Verifier encountered an unknown error", NormalizeReason("", "", "UNKNOWN_ERROR"))
	assert.Equal(t, "Identity verification failed", NormalizeReason("", "", ""))
}

func TestCallbackVerifierRoundTrip(t *testing.T) {
	var v *CallbackVerifier
	var got startRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
		go func(user string) {
			yes := true
			_, _ = v.Deliver(CallbackPayload{UserIdentifier: user, Verified: &yes})
		}(got.UserID)
	}))
	defer srv.Close()

	v = NewCallbackVerifier(CallbackConfig{
		StartURL:         srv.URL,
		CallbackURL:      "https://example.org/api/self-callback",
		Scope:            "wallet-session",
		Timeout:          2 * time.Second,
		RequestTimeout:   time.Second,
		DefaultDirective: defaultDirective,
	}, zaptest.NewLogger(t))

	out, err := v.Verify(context.Background(), entity.VerificationRequest{UserID: "0xBDDd946e2B547496Ddb0e507ECCCde35D1AF9597"})
	require.NoError(t, err)
	assert.True(t, out.Verified)
	require.NotNil(t, out.Directive)
	assert.Equal(t, "CELO", out.Directive.Currency)

	assert.Equal(t, "0xbddd946e2b547496ddb0e507ecccde35d1af9597", got.UserID)
	assert.Equal(t, UserIDTypeHex, got.UserIDType)
	assert.Equal(t, "https://example.org/api/self-callback", got.Endpoint)
	assert.Equal(t, "wallet-session", got.Scope)
}

func TestCallbackVerifierTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	v := NewCallbackVerifier(CallbackConfig{StartURL: srv.URL, Timeout: 50 * time.Millisecond, RequestTimeout: time.Second}, zaptest.NewLogger(t))

	_, err := v.Verify(context.Background(), entity.VerificationRequest{UserID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	_, err = v.Deliver(CallbackPayload{UserID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301"})
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func TestCallbackVerifierStartFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewCallbackVerifier(CallbackConfig{StartURL: srv.URL, Timeout: time.Second, RequestTimeout: time.Second}, zaptest.NewLogger(t))
	_, err := v.Verify(context.Background(), entity.VerificationRequest{UserID: "3f2504e0-4f89-41d3-9a0c-0305e82c3301"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestMockVerifierAppliesDefaultDirective(t *testing.T) {
	m := NewMockVerifier(entity.VerificationOutcome{Verified: true}, defaultDirective, zaptest.NewLogger(t))
	out, err := m.Verify(context.Background(), entity.VerificationRequest{UserID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, out.Directive)
	assert.Equal(t, "0.001", out.Directive.Amount)

	m = NewMockVerifier(entity.VerificationOutcome{Reason: "underage"}, defaultDirective, zaptest.NewLogger(t))
	out, err = m.Verify(context.Background(), entity.VerificationRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.False(t, out.Verified)
	assert.Nil(t, out.Directive)
}

func TestRecordClientSave(t *testing.T) {
	var calls atomic.Int32
	var got entity.VerificationRecord
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		if got.UserID == "bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewRecordClient(srv.URL, time.Second, zaptest.NewLogger(t))
	require.NoError(t, c.Save(context.Background(), entity.VerificationRecord{UserID: "u1", Verified: true, PaymentStatus: entity.PaymentSucceeded}))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, entity.PaymentSucceeded, got.PaymentStatus)

	assert.Error(t, c.Save(context.Background(), entity.VerificationRecord{UserID: "bad"}))
	assert.Equal(t, int32(2), calls.Load())
}
