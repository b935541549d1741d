package entity

import "time"

// PaymentDirective is the verifier's instruction about a verification fee.
type PaymentDirective struct {
	Required         bool   `json:"required" yaml:"required"`
	Amount           string `json:"amount,omitempty" yaml:"amount" validate:"required_if=Required true"`
	Currency         string `json:"currency,omitempty" yaml:"currency" validate:"required_if=Required true"`
	RecipientAddress string `json:"recipient,omitempty" yaml:"recipient" validate:"required_if=Required true"`
	Description      string `json:"description,omitempty" yaml:"description"`
}

// VerificationRequest starts one identity verification session.
type VerificationRequest struct {
	UserID      string `json:"userId" validate:"required"`
	UserIDType  string `json:"userIdType"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// VerificationOutcome is what the external verifier reports back.
type VerificationOutcome struct {
	Verified  bool              `json:"verified"`
	Reason    string            `json:"reason,omitempty"`
	Directive *PaymentDirective `json:"paymentDirective,omitempty"`
}

// OrchestrationState is a step of the verify-then-pay workflow.
type OrchestrationState string

const (
	StateIdle                     OrchestrationState = "idle"
	StateAwaitingVerification     OrchestrationState = "awaiting_verification"
	StateVerificationFailed       OrchestrationState = "verification_failed"
	StateAwaitingWalletConnection OrchestrationState = "awaiting_wallet_connection"
	StateAwaitingNetworkSwitch    OrchestrationState = "awaiting_network_switch"
	StateSubmittingPayment        OrchestrationState = "submitting_payment"
	StatePaymentSucceeded         OrchestrationState = "payment_succeeded"
	StatePaymentFailed            OrchestrationState = "payment_failed"
	StateCompleted                OrchestrationState = "completed"
)

// PaymentStatus is the fee outcome of a completed orchestration.
type PaymentStatus string

const (
	PaymentNone      PaymentStatus = ""
	PaymentSucceeded PaymentStatus = "Succeeded"
	PaymentFailed    PaymentStatus = "Failed"
)

// OrchestrationResult is the combined outcome carried by the Completed state. Verified
// is never revoked by a payment failure.
type OrchestrationResult struct {
	UserID          string            `json:"userId"`
	Verified        bool              `json:"verified"`
	PaymentRequired bool              `json:"paymentRequired"`
	PaymentStatus   PaymentStatus     `json:"paymentStatus,omitempty"`
	TxID            string            `json:"txId,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Directive       *PaymentDirective `json:"payment,omitempty"`
	CompletedAt     time.Time         `json:"completedAt"`
}

// StateTransition records one step of an orchestration attempt.
type StateTransition struct {
	From OrchestrationState `json:"from"`
	To   OrchestrationState `json:"to"`
	At   time.Time          `json:"at"`
}

// VerificationRecord is what the record backend persists for a completed attempt.
type VerificationRecord struct {
	UserID          string        `json:"userId"`
	Verified        bool          `json:"verified"`
	PaymentRequired bool          `json:"paymentRequired"`
	PaymentStatus   PaymentStatus `json:"paymentStatus,omitempty"`
	TxID            string        `json:"txId,omitempty"`
	RecordedAt      time.Time     `json:"recordedAt"`
}

// AttemptSnapshot is the observable state of the most recent orchestration attempt.
type AttemptSnapshot struct {
	ID      uint64               `json:"id"`
	UserID  string               `json:"userId"`
	State   OrchestrationState   `json:"state"`
	History []StateTransition    `json:"history"`
	Result  *OrchestrationResult `json:"result,omitempty"`
	Error   *ErrorRecord         `json:"error,omitempty"`
}
