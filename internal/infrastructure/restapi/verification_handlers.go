package restapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wallet_session/internal/client"
	"wallet_session/internal/domain/entity"
)

const callbackPath = "/api/self-callback"

type verificationRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// callbackEnvelope is the response shape the verifier expects from the callback endpoint.
type callbackEnvelope struct {
	Status  string         `json:"status"`
	Result  map[string]any `json:"result"`
	Message string         `json:"message"`
}

// RunVerification runs one verify-then-pay attempt and returns its combined result.
func (h *Handler) RunVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	res, err := h.orchestrator.Run(c.Request.Context(), req.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// LatestVerification returns the state and history of the last attempt.
func (h *Handler) LatestVerification(c *gin.Context) {
	snap, ok := h.orchestrator.Latest()
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: APIError{Kind: entity.KindVerificationFailed, Message: "no verification attempt yet", Recoverable: true}})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListRecords returns stored verification records.
func (h *Handler) ListRecords(c *gin.Context) {
	if h.records == nil {
		c.JSON(http.StatusNotImplemented, errorResponse{Error: APIError{Kind: entity.KindRPCFailure, Message: "record listing is not available for this backend"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": h.records.List()})
}

// CallbackReady answers readiness probes of the verifier.
func (h *Handler) CallbackReady(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"message":   "Verification callback endpoint is ready",
		"endpoint":  callbackPath,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Callback receives a verification outcome. Failures are reported inside a 200 envelope.
func (h *Handler) Callback(c *gin.Context) {
	now := time.Now().UnixMilli()
	failed := func(msg string, err error) {
		c.JSON(http.StatusOK, callbackEnvelope{
			Status:  "error",
			Result:  map[string]any{"verified": false, "error": err.Error(), "timestamp": now},
			Message: msg,
		})
	}

	var payload client.CallbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		failed("Identity verification failed", err)
		return
	}
	if h.callback == nil {
		failed("Identity verification failed", errors.New("callback verification is not enabled"))
		return
	}

	outcome, err := h.callback.Deliver(payload)
	if err != nil {
		failed("Identity verification failed", err)
		return
	}

	result := map[string]any{
		"verified":       outcome.Verified,
		"verificationId": payload.VerificationID,
		"userIdentifier": payload.User(),
		"timestamp":      now,
	}
	msg := "Identity verification completed successfully"
	if outcome.Verified {
		if outcome.Directive != nil {
			result["celoPayment"] = outcome.Directive
		}
	} else {
		result["reason"] = outcome.Reason
		msg = "Identity verification failed"
	}
	c.JSON(http.StatusOK, callbackEnvelope{Status: "success", Result: result, Message: msg})
}
