package client

import (
	"context"

	"go.uber.org/zap"

	"wallet_session/internal/domain/entity"
)

// MockVerifier returns a fixed outcome for every request.
type MockVerifier struct {
	outcome          entity.VerificationOutcome
	defaultDirective *entity.PaymentDirective
	logger           *zap.Logger
}

func NewMockVerifier(outcome entity.VerificationOutcome, defaultDirective *entity.PaymentDirective, logger *zap.Logger) *MockVerifier {
	return &MockVerifier{outcome: outcome, defaultDirective: defaultDirective, logger: logger.Named("MockVerifier")}
}

// Verify implements port.IdentityVerifier.
func (m *MockVerifier) Verify(ctx context.Context, req entity.VerificationRequest) (entity.VerificationOutcome, error) {
	if err := ctx.Err(); err != nil {
		return entity.VerificationOutcome{}, err
	}
	out := WithDefaultDirective(m.outcome, m.defaultDirective)
	if out.Directive != nil {
		d := *out.Directive
		out.Directive = &d
	}
	m.logger.Debug("Mock verification", zap.String("userId", req.UserID), zap.Bool("verified", out.Verified))
	return out, nil
}
