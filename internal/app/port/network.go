package port

import "wallet_session/internal/domain/entity"

// NetworkClassifier maps chain identifiers to network descriptors.
type NetworkClassifier interface {
	// Classify never fails; unknown chains yield a fallback descriptor.
	Classify(chainID string) entity.NetworkDescriptor

	// IsMajorBoundary reports whether moving between the two networks invalidates
	// in-flight session work.
	IsMajorBoundary(from, to entity.NetworkDescriptor) bool

	// All returns every known descriptor.
	All() []entity.NetworkDescriptor
}
