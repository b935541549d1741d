package port

import (
	"context"

	"wallet_session/internal/domain/entity"
)

// IdentityVerifier runs one external identity verification round trip.
// A non-nil error means the verifier could not produce an outcome at all.
type IdentityVerifier interface {
	Verify(ctx context.Context, req entity.VerificationRequest) (entity.VerificationOutcome, error)
}

// RecordSink persists the terminal result of a verification attempt.
type RecordSink interface {
	Save(ctx context.Context, rec entity.VerificationRecord) error
}
