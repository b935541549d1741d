package entity

// NetworkFamily groups chains that share an ecosystem (mainnet and its testnets).
type NetworkFamily string

const (
	FamilyEthereum NetworkFamily = "ethereum"
	FamilyPolygon  NetworkFamily = "polygon"
	FamilyCelo     NetworkFamily = "celo"
	FamilyBSC      NetworkFamily = "bsc"
	FamilyArbitrum NetworkFamily = "arbitrum"
	FamilyBase     NetworkFamily = "base"
	FamilyOptimism NetworkFamily = "optimism"
	FamilyUnknown  NetworkFamily = "unknown"
)

// NetworkDescriptor is the logical description of a chain as seen by the session.
// Values are immutable and derived from the chain id alone.
type NetworkDescriptor struct {
	ChainID             string        `json:"chainId" yaml:"chainId" validate:"required"`
	DisplayName         string        `json:"displayName" yaml:"displayName" validate:"required"`
	Identifier          string        `json:"identifier" yaml:"identifier"` // e.g. "celo", "celo-alfajores"
	NativeSymbol        string        `json:"nativeSymbol" yaml:"nativeSymbol" validate:"required"`
	NativeName          string        `json:"nativeName,omitempty" yaml:"nativeName"`
	Decimals            uint8         `json:"decimals" yaml:"decimals"`
	Family              NetworkFamily `json:"family" yaml:"family"`
	IsFeeCapableNetwork bool          `json:"isFeeCapableNetwork" yaml:"feeCapable"`
	IsTestnet           bool          `json:"isTestnet" yaml:"testnet"`
	Known               bool          `json:"known" yaml:"-"`
	RPCURLs             []string      `json:"rpcUrls,omitempty" yaml:"rpcUrls"`
	BlockExplorerURL    string        `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl"`
}

// IsProduction reports whether the descriptor is a known mainnet.
func (d NetworkDescriptor) IsProduction() bool {
	return d.Known && !d.IsTestnet
}

// AddChainParams is the metadata a wallet needs to register a chain it does not know yet.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

// NativeCurrency describes the gas currency of a chain.
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// FaucetInfo points developers at testnet funding sources.
type FaucetInfo struct {
	NativeFaucet string `json:"celoFaucet"`
	StableFaucet string `json:"cUSDFaucet"`
	Instructions string `json:"instructions"`
}
