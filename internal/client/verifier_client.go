package client

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"wallet_session/internal/domain/entity"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

const (
	UserIDTypeHex  = "hex"
	UserIDTypeUUID = "uuid"
)

var (
	// ErrNoPendingVerification is returned by Deliver when nobody waits for the user id.
	ErrNoPendingVerification = errors.New("no verification pending for user")
	// ErrVerificationPending is returned by Verify when the user id already has a session in flight.
	ErrVerificationPending = errors.New("verification already pending for user")
)

// CallbackPayload is what the identity verifier posts to the callback endpoint.
type CallbackPayload struct {
	VerificationID string                   `json:"verificationId"`
	UserIdentifier string                   `json:"userIdentifier"`
	UserID         string                   `json:"userId"`
	Verified       *bool                    `json:"verified"`
	Status         string                   `json:"status"`
	Reason         string                   `json:"reason"`
	ErrorCode      string                   `json:"error_code"`
	CeloPayment    *entity.PaymentDirective `json:"celoPayment"`
}

// User returns the identifier the payload is addressed to.
func (p CallbackPayload) User() string {
	if p.UserIdentifier != "" {
		return p.UserIdentifier
	}
	return p.UserID
}

// CallbackConfig configures a CallbackVerifier.
type CallbackConfig struct {
	StartURL         string
	CallbackURL      string
	Scope            string
	Timeout          time.Duration
	RequestTimeout   time.Duration
	DefaultDirective *entity.PaymentDirective
}

type startRequest struct {
	UserID     string `json:"userId"`
	UserIDType string `json:"userIdType"`
	Scope      string `json:"scope,omitempty"`
	Endpoint   string `json:"endpoint"`
}

// CallbackVerifier starts a verification session over HTTP and waits for the verifier
// to report the outcome through Deliver.
type CallbackVerifier struct {
	client  *fasthttp.Client
	cfg     CallbackConfig
	logger  *zap.Logger
	mu      sync.Mutex
	pending map[string]chan entity.VerificationOutcome
}

// NewCallbackVerifier creates a new instance of CallbackVerifier.
func NewCallbackVerifier(cfg CallbackConfig, logger *zap.Logger) *CallbackVerifier {
	return &CallbackVerifier{
		client:  &fasthttp.Client{},
		cfg:     cfg,
		logger:  logger.Named("CallbackVerifier"),
		pending: make(map[string]chan entity.VerificationOutcome),
	}
}

// FormatUserID picks the verifier user id type: wallet addresses are sent lowercased as
// hex, UUIDs as is, anything else is replaced by a fresh random UUID.
func FormatUserID(userID string) (string, string) {
	userID = strings.TrimSpace(userID)
	if addressPattern.MatchString(userID) {
		return strings.ToLower(userID), UserIDTypeHex
	}
	if id, err := uuid.Parse(userID); err == nil && len(userID) == 36 {
		return id.String(), UserIDTypeUUID
	}
	return uuid.NewString(), UserIDTypeUUID
}

// Verify implements port.IdentityVerifier.
func (v *CallbackVerifier) Verify(ctx context.Context, req entity.VerificationRequest) (entity.VerificationOutcome, error) {
	userID, userType := FormatUserID(req.UserID)
	if req.UserIDType != "" && req.UserIDType != userType {
		v.logger.Debug("Overriding requested user id type", zap.String("requested", req.UserIDType), zap.String("used", userType))
	}
	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = v.cfg.CallbackURL
	}

	ch, err := v.register(userID)
	if err != nil {
		return entity.VerificationOutcome{}, err
	}
	defer v.unregister(userID, ch)

	if err := v.start(ctx, startRequest{UserID: userID, UserIDType: userType, Scope: v.cfg.Scope, Endpoint: callbackURL}); err != nil {
		return entity.VerificationOutcome{}, err
	}

	timer := time.NewTimer(v.cfg.Timeout)
	defer timer.Stop()
	select {
	case outcome := <-ch:
		return outcome, nil
	case <-timer.C:
		v.logger.Warn("Verification timed out", zap.String("userId", userID), zap.Duration("timeout", v.cfg.Timeout))
		return entity.VerificationOutcome{}, fmt.Errorf("verification for %s timed out after %s", userID, v.cfg.Timeout)
	case <-ctx.Done():
		return entity.VerificationOutcome{}, ctx.Err()
	}
}

// Deliver hands a callback payload to the waiting Verify call and returns the outcome it
// was converted to.
func (v *CallbackVerifier) Deliver(p CallbackPayload) (entity.VerificationOutcome, error) {
	outcome := OutcomeFromPayload(p, v.cfg.DefaultDirective)
	user := strings.ToLower(p.User())

	v.mu.Lock()
	ch, ok := v.pending[user]
	if ok {
		delete(v.pending, user)
	}
	v.mu.Unlock()

	if !ok {
		v.logger.Warn("Callback for unknown verification", zap.String("userId", user), zap.String("verificationId", p.VerificationID))
		return outcome, ErrNoPendingVerification
	}
	ch <- outcome
	v.logger.Info("Verification outcome delivered", zap.String("userId", user), zap.Bool("verified", outcome.Verified))
	return outcome, nil
}

func (v *CallbackVerifier) register(userID string) (chan entity.VerificationOutcome, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, busy := v.pending[userID]; busy {
		return nil, ErrVerificationPending
	}
	ch := make(chan entity.VerificationOutcome, 1)
	v.pending[userID] = ch
	return ch, nil
}

func (v *CallbackVerifier) unregister(userID string, ch chan entity.VerificationOutcome) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending[userID] == ch {
		delete(v.pending, userID)
	}
}

func (v *CallbackVerifier) start(ctx context.Context, body startRequest) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode verification start request: %w", err)
	}

	v.logger.Debug("Starting verification session", zap.String("url", v.cfg.StartURL), zap.String("userIdType", body.UserIDType))

	status, rawBody, err := postJSON(ctx, v.client, v.cfg.StartURL, payload, v.cfg.RequestTimeout)
	if err != nil {
		v.logger.Error("Failed to execute request to verifier", zap.String("url", v.cfg.StartURL), zap.Error(err))
		return err
	}
	if status < 200 || status >= 300 {
		v.logger.Error("Verifier start request failed",
			zap.String("url", v.cfg.StartURL),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody),
		)
		return fmt.Errorf("verifier start request to %s failed with status %d: %s", v.cfg.StartURL, status, string(rawBody))
	}
	return nil
}

// OutcomeFromPayload converts a callback payload. A verified outcome without a fee
// directive gets a copy of def.
func OutcomeFromPayload(p CallbackPayload, def *entity.PaymentDirective) entity.VerificationOutcome {
	verified := p.Status == "" || p.Status == "success"
	if p.Verified != nil {
		verified = *p.Verified
	}
	if !verified {
		return entity.VerificationOutcome{Reason: NormalizeReason(p.Reason, p.Status, p.ErrorCode)}
	}
	return WithDefaultDirective(entity.VerificationOutcome{Verified: true, Directive: p.CeloPayment}, def)
}

// WithDefaultDirective fills in def for verified outcomes that carry no directive.
func WithDefaultDirective(o entity.VerificationOutcome, def *entity.PaymentDirective) entity.VerificationOutcome {
	if o.Verified && o.Directive == nil && def != nil {
		d := *def
		o.Directive = &d
	}
	return o
}

// NormalizeReason maps raw verifier failures to user-facing messages.
func NormalizeReason(reason, status, errorCode string) string {
	switch {
	case strings.Contains(reason, "missing field") || strings.Contains(reason, "invalid type"):
		return "Server communication error: API endpoint configuration issue"
	case strings.Contains(reason, "error decoding response body"):
		return "Server communication error: Unable to process verification response"
	case reason != "":
		return "Verification error: " + reason
	case status == "proof_generation_failed":
		return "Proof generation failed: Please try again"
	case errorCode == "UNKNOWN_ERROR":
		return "Verifier encountered an unknown error"
	default:
		return "Identity verification failed"
	}
}

// postJSON sends payload and returns the status code and a copy of the body. The ctx
// deadline wins over timeout when present.
func postJSON(ctx context.Context, c *fasthttp.Client, url string, payload []byte, timeout time.Duration) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	req.SetBodyRaw(payload)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := c.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, fmt.Errorf("failed to execute request to %s: %w", url, err)
		}
	} else {
		if err := c.DoTimeout(req, resp, timeout); err != nil {
			return 0, nil, fmt.Errorf("failed to execute request to %s with default timeout: %w", url, err)
		}
	}
	return resp.StatusCode(), append([]byte(nil), resp.Body()...), nil
}
