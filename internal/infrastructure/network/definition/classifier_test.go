package networkdefinition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/logger"
)

func newTestClassifier(extra ...entity.NetworkDescriptor) *Classifier {
	return NewClassifier(logger.NewNop(), extra)
}

func TestClassifyKnownNetworks(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		chainID    string
		name       string
		symbol     string
		feeCapable bool
		testnet    bool
	}{
		{"0x1", "Ethereum Mainnet", "ETH", false, false},
		{"0xaa36a7", "Sepolia Testnet", "SEP", false, true},
		{"0x13882", "Polygon Amoy Testnet", "MATIC", false, true},
		{"0xa4ec", "Celo Mainnet", "CELO", true, false},
		{"0xaef3", "Celo Alfajores Testnet", "CELO", true, true},
		{"0xA4EC", "Celo Mainnet", "CELO", true, false},
		{"42220", "Celo Mainnet", "CELO", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.chainID, func(t *testing.T) {
			d := c.Classify(tt.chainID)
			assert.True(t, d.Known)
			assert.Equal(t, tt.name, d.DisplayName)
			assert.Equal(t, tt.symbol, d.NativeSymbol)
			assert.Equal(t, tt.feeCapable, d.IsFeeCapableNetwork)
			assert.Equal(t, tt.testnet, d.IsTestnet)
		})
	}
}

func TestClassifyUnknownFallsBack(t *testing.T) {
	c := newTestClassifier()

	for _, id := range []string{"0x539", "garbage", ""} {
		d := c.Classify(id)
		assert.False(t, d.Known, id)
		assert.Equal(t, "Unknown Network", d.DisplayName)
		assert.False(t, d.IsFeeCapableNetwork)
		assert.Equal(t, entity.FamilyUnknown, d.Family)
	}
	assert.Equal(t, "0x539", c.Classify("1337").ChainID)
}

func TestClassifierConfigExtension(t *testing.T) {
	c := newTestClassifier(
		entity.NetworkDescriptor{ChainID: "1337", DisplayName: "Local Devnet", NativeSymbol: "ETH", IsTestnet: true},
		entity.NetworkDescriptor{ChainID: "nope", DisplayName: "Broken"},
	)

	d := c.Classify("0x539")
	assert.True(t, d.Known)
	assert.Equal(t, "Local Devnet", d.DisplayName)
	assert.Equal(t, uint8(18), d.Decimals)
	assert.Len(t, c.All(), len(allKnownDescriptors)+1)
	assert.Equal(t, "0x1", c.All()[0].ChainID)
}

func TestIsMajorBoundary(t *testing.T) {
	unknown := newTestClassifier().Classify("0x539")

	tests := []struct {
		name     string
		from, to entity.NetworkDescriptor
		major    bool
	}{
		{"same chain", Celo, Celo, false},
		{"mainnet to sepolia", Ethereum, Sepolia, true},
		{"sepolia to mainnet", Sepolia, Ethereum, true},
		{"mainnet to amoy", Ethereum, PolygonAmoy, true},
		{"mainnet to celo", Ethereum, Celo, true},
		{"sepolia to amoy", Sepolia, PolygonAmoy, true},
		{"amoy to sepolia", PolygonAmoy, Sepolia, true},
		{"entering celo testnet", Sepolia, CeloAlfajores, true},
		{"leaving celo", Celo, Polygon, true},
		{"celo to alfajores", Celo, CeloAlfajores, false},
		{"unknown to sepolia", unknown, Sepolia, false},
		{"mainnet to polygon", Ethereum, Polygon, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.major, IsMajorBoundary(tt.from, tt.to))
		})
	}
}

func TestNormalizeChainID(t *testing.T) {
	id, ok := NormalizeChainID("0x00A4EC")
	require.True(t, ok)
	assert.Equal(t, "0xa4ec", id)

	_, ok = NormalizeChainID("0x")
	assert.False(t, ok)
	_, ok = NormalizeChainID("0")
	assert.False(t, ok)
	_, ok = NormalizeChainID("0x+a4ec")
	assert.False(t, ok)
	_, ok = ChainIDToUint("0x10000000000000000")
	assert.False(t, ok)

	n, ok := ChainIDToUint("0xaef3")
	require.True(t, ok)
	assert.Equal(t, uint64(44787), n)
	assert.Equal(t, "0xaef3", ChainIDFromUint(44787))
}

func TestFaucetInfoAndAddChainParams(t *testing.T) {
	info, ok := FaucetInfo(CeloAlfajores)
	require.True(t, ok)
	assert.Equal(t, "https://faucet.celo.org/alfajores", info.StableFaucet)

	_, ok = FaucetInfo(Celo)
	assert.False(t, ok)

	assert.True(t, IsCeloMainnet("42220"))
	assert.True(t, IsCeloTestnet("0xAEF3"))

	p := AddChainParams(CeloAlfajores)
	assert.Equal(t, "0xaef3", p.ChainID)
	assert.Equal(t, "Celo Alfajores Testnet", p.ChainName)
	assert.Equal(t, "CELO", p.NativeCurrency.Symbol)
	assert.Equal(t, uint8(18), p.NativeCurrency.Decimals)
	assert.Equal(t, []string{"https://alfajores-forno.celo-testnet.org"}, p.RPCURLs)
	assert.Equal(t, []string{"https://alfajores-blockscout.celo-testnet.org"}, p.BlockExplorerURLs)
}
