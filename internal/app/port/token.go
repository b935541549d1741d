package port

import "wallet_session/internal/domain/entity"

// TokenProvider resolves fee-currency token definitions per network.
type TokenProvider interface {
	// TokensForNetwork returns the configured tokens of the given network.
	TokensForNetwork(network entity.NetworkDescriptor) []entity.TokenInfo

	// FindToken looks up a token by symbol (case-insensitive) on the given network.
	FindToken(network entity.NetworkDescriptor, symbol string) (entity.TokenInfo, bool)
}
