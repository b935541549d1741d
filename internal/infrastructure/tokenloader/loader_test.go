package tokenloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_session/internal/domain/entity"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/pkg/logger"
)

const alfajoresTokens = `[
  {"chainId": 44787, "address": "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1", "name": "Celo Dollar", "symbol": "cUSD", "decimals": 18},
  {"chainId": 1, "address": "0xdAC17F958D2ee523a2206206994597C13D831ec7", "name": "Tether", "symbol": "USDT", "decimals": 6}
]`

func TestTokensForNetwork(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "celo-alfajores.json"), []byte(alfajoresTokens), 0o600))

	configured := []entity.TokenInfo{
		{ChainID: 44787, Address: "0x10c892A6EC43a53E45D0B916B4b7D383B1b78C0F", Symbol: "cEUR", Decimals: 18},
		{ChainID: 44787, Address: "0x874069fa1eb16d44d622f2e0ca25eea172369bc1", Symbol: "cUSD", Decimals: 18},
	}
	l := NewTokenLoader(logger.NewNop(), dir, configured)

	tokens := l.TokensForNetwork(networkdefinition.CeloAlfajores)
	require.Len(t, tokens, 2)
	assert.Equal(t, "cUSD", tokens[0].Symbol)
	assert.Equal(t, "cEUR", tokens[1].Symbol)

	token, ok := l.FindToken(networkdefinition.CeloAlfajores, "cusd")
	require.True(t, ok)
	assert.Equal(t, "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1", token.Address)

	_, ok = l.FindToken(networkdefinition.CeloAlfajores, "USDT")
	assert.False(t, ok)
}

func TestTokensForNetworkWithoutFile(t *testing.T) {
	l := NewTokenLoader(logger.NewNop(), t.TempDir(), nil)
	assert.Empty(t, l.TokensForNetwork(networkdefinition.Celo))
}
