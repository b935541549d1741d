package networkdefinition

import "wallet_session/internal/domain/entity"

// Predefined network descriptors, keyed by normalised hex chain id.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDescriptor{
		ChainID:          "0x1",
		DisplayName:      "Ethereum Mainnet",
		Identifier:       "ethereum",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		Family:           entity.FamilyEthereum,
		Known:            true,
		RPCURLs:          []string{"https://ethereum-rpc.publicnode.com", "https://rpc.ankr.com/eth"},
		BlockExplorerURL: "https://etherscan.io",
	}
	Sepolia = entity.NetworkDescriptor{
		ChainID:          "0xaa36a7",
		DisplayName:      "Sepolia Testnet",
		Identifier:       "sepolia",
		NativeSymbol:     "SEP",
		NativeName:       "SepoliaETH",
		Decimals:         18,
		Family:           entity.FamilyEthereum,
		IsTestnet:        true,
		Known:            true,
		RPCURLs:          []string{"https://sepolia.infura.io/v3/"},
		BlockExplorerURL: "https://sepolia.etherscan.io/",
	}
	PolygonAmoy = entity.NetworkDescriptor{
		ChainID:          "0x13882",
		DisplayName:      "Polygon Amoy Testnet",
		Identifier:       "polygon-amoy",
		NativeSymbol:     "MATIC",
		NativeName:       "MATIC",
		Decimals:         18,
		Family:           entity.FamilyPolygon,
		IsTestnet:        true,
		Known:            true,
		RPCURLs:          []string{"https://rpc-amoy.polygon.technology/"},
		BlockExplorerURL: "https://amoy.polygonscan.com/",
	}
	Celo = entity.NetworkDescriptor{
		ChainID:             "0xa4ec",
		DisplayName:         "Celo Mainnet",
		Identifier:          "celo",
		NativeSymbol:        "CELO",
		NativeName:          "CELO",
		Decimals:            18,
		Family:              entity.FamilyCelo,
		IsFeeCapableNetwork: true,
		Known:               true,
		RPCURLs:             []string{"https://forno.celo.org"},
		BlockExplorerURL:    "https://explorer.celo.org",
	}
	CeloAlfajores = entity.NetworkDescriptor{
		ChainID:             "0xaef3",
		DisplayName:         "Celo Alfajores Testnet",
		Identifier:          "celo-alfajores",
		NativeSymbol:        "CELO",
		NativeName:          "CELO",
		Decimals:            18,
		Family:              entity.FamilyCelo,
		IsFeeCapableNetwork: true,
		IsTestnet:           true,
		Known:               true,
		RPCURLs:             []string{"https://alfajores-forno.celo-testnet.org"},
		BlockExplorerURL:    "https://alfajores-blockscout.celo-testnet.org",
	}
	BSC = entity.NetworkDescriptor{
		ChainID:          "0x38",
		DisplayName:      "BNB Smart Chain",
		Identifier:       "bsc",
		NativeSymbol:     "BNB",
		NativeName:       "BNB",
		Decimals:         18,
		Family:           entity.FamilyBSC,
		Known:            true,
		RPCURLs:          []string{"https://1rpc.io/bnb", "https://bsc-dataseed2.binance.org/"},
		BlockExplorerURL: "https://bscscan.com",
	}
	Polygon = entity.NetworkDescriptor{
		ChainID:          "0x89",
		DisplayName:      "Polygon PoS",
		Identifier:       "polygon",
		NativeSymbol:     "MATIC",
		NativeName:       "MATIC",
		Decimals:         18,
		Family:           entity.FamilyPolygon,
		Known:            true,
		RPCURLs:          []string{"https://polygon-rpc.com/", "https://polygon.publicnode.com"},
		BlockExplorerURL: "https://polygonscan.com",
	}
	Arbitrum = entity.NetworkDescriptor{
		ChainID:          "0xa4b1",
		DisplayName:      "Arbitrum One",
		Identifier:       "arbitrum",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		Family:           entity.FamilyArbitrum,
		Known:            true,
		RPCURLs:          []string{"https://arb1.arbitrum.io/rpc", "https://arbitrum.publicnode.com"},
		BlockExplorerURL: "https://arbiscan.io",
	}
	Base = entity.NetworkDescriptor{
		ChainID:          "0x2105",
		DisplayName:      "Base Mainnet",
		Identifier:       "base",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		Family:           entity.FamilyBase,
		Known:            true,
		RPCURLs:          []string{"https://1rpc.io/base", "https://base.publicnode.com"},
		BlockExplorerURL: "https://basescan.org",
	}
	Optimism = entity.NetworkDescriptor{
		ChainID:          "0xa",
		DisplayName:      "OP Mainnet",
		Identifier:       "optimism",
		NativeSymbol:     "ETH",
		NativeName:       "Ether",
		Decimals:         18,
		Family:           entity.FamilyOptimism,
		Known:            true,
		RPCURLs:          []string{"https://optimism.publicnode.com", "https://rpc.ankr.com/optimism"},
		BlockExplorerURL: "https://optimistic.etherscan.io",
	}
)

var allKnownDescriptors = []entity.NetworkDescriptor{
	Ethereum, Sepolia, PolygonAmoy, Celo, CeloAlfajores,
	BSC, Polygon, Arbitrum, Base, Optimism,
}

// FaucetInfo returns testnet funding links for the fee-capable testnet, or false for any
// other network.
func FaucetInfo(d entity.NetworkDescriptor) (entity.FaucetInfo, bool) {
	if !IsCeloTestnet(d.ChainID) {
		return entity.FaucetInfo{}, false
	}
	return entity.FaucetInfo{
		NativeFaucet: "https://faucet.celo.org",
		StableFaucet: "https://faucet.celo.org/alfajores",
		Instructions: "Visit the Celo faucet to get testnet tokens for development and testing.",
	}, true
}

// IsCeloMainnet reports whether chainID (any accepted notation) is Celo mainnet.
func IsCeloMainnet(chainID string) bool {
	id, ok := NormalizeChainID(chainID)
	return ok && id == Celo.ChainID
}

// IsCeloTestnet reports whether chainID (any accepted notation) is Celo Alfajores.
func IsCeloTestnet(chainID string) bool {
	id, ok := NormalizeChainID(chainID)
	return ok && id == CeloAlfajores.ChainID
}

// AddChainParams builds the wallet_addEthereumChain payload for d.
func AddChainParams(d entity.NetworkDescriptor) entity.AddChainParams {
	p := entity.AddChainParams{
		ChainID:   d.ChainID,
		ChainName: d.DisplayName,
		NativeCurrency: entity.NativeCurrency{
			Name:     d.NativeName,
			Symbol:   d.NativeSymbol,
			Decimals: d.Decimals,
		},
		RPCURLs: append([]string(nil), d.RPCURLs...),
	}
	if p.NativeCurrency.Name == "" {
		p.NativeCurrency.Name = d.NativeSymbol
	}
	if d.BlockExplorerURL != "" {
		p.BlockExplorerURLs = []string{d.BlockExplorerURL}
	}
	return p
}
