package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wallet_session/internal/app/port"
	"wallet_session/internal/client"
	"wallet_session/internal/domain/entity"
)

// CallbackReceiver accepts outcomes posted by the identity verifier.
type CallbackReceiver interface {
	Deliver(p client.CallbackPayload) (entity.VerificationOutcome, error)
}

// RecordLister exposes stored verification records.
type RecordLister interface {
	List() []entity.VerificationRecord
}

// Deps groups the services behind the HTTP API. Callback and Records are optional.
type Deps struct {
	Session      port.SessionManager
	Classifier   port.NetworkClassifier
	Balances     port.BalanceService
	Tokens       port.TokenProvider
	Identity     port.IdentityService
	Orchestrator port.Orchestrator
	Callback     CallbackReceiver
	Records      RecordLister
	Logger       port.Logger
}

// Handler serves the wallet session API.
type Handler struct {
	session      port.SessionManager
	classifier   port.NetworkClassifier
	balances     port.BalanceService
	tokens       port.TokenProvider
	identity     port.IdentityService
	orchestrator port.Orchestrator
	callback     CallbackReceiver
	records      RecordLister
	logger       port.Logger
}

// NewHandler creates a new instance of Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		session:      d.Session,
		classifier:   d.Classifier,
		balances:     d.Balances,
		tokens:       d.Tokens,
		identity:     d.Identity,
		orchestrator: d.Orchestrator,
		callback:     d.Callback,
		records:      d.Records,
		logger:       d.Logger,
	}
}

// kindInvalidRequest marks malformed API input; it never leaves the HTTP layer.
const kindInvalidRequest entity.ErrorKind = "InvalidRequest"

// APIError is the error body of every failed request.
type APIError struct {
	Kind        entity.ErrorKind `json:"kind"`
	Message     string           `json:"message"`
	Recoverable bool             `json:"recoverable"`
}

type errorResponse struct {
	Error APIError `json:"error"`
}

func statusForKind(kind entity.ErrorKind) int {
	switch kind {
	case entity.KindInvalidAddress, entity.KindInvalidAmount, entity.KindVerificationFailed:
		return http.StatusBadRequest
	case entity.KindUserRejected, entity.KindSignatureDeclined:
		return http.StatusForbidden
	case entity.KindLinkAbsent:
		return http.StatusNotFound
	case entity.KindNotConnected, entity.KindSessionReset:
		return http.StatusConflict
	case entity.KindUnsupportedNetwork:
		return http.StatusUnprocessableEntity
	case entity.KindPaymentFailed:
		return http.StatusPaymentRequired
	case entity.KindProviderAbsent:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	kind := entity.KindOf(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "kind", string(kind), "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", c.FullPath(), "kind", string(kind), "error", err)
	}
	c.AbortWithStatusJSON(status, errorResponse{Error: APIError{
		Kind:        kind,
		Message:     err.Error(),
		Recoverable: entity.IsRecoverable(err),
	}})
}

// badRequest rejects a malformed request body or query.
func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("Malformed request", "path", c.FullPath(), "error", err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: APIError{
		Kind:    kindInvalidRequest,
		Message: err.Error(),
	}})
}
