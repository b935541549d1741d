package entity

// TokenInfo holds the details of a specific token.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId" yaml:"chainId"`
	Address  string `json:"address" yaml:"address" validate:"required,eth_addr"`
	Name     string `json:"name" yaml:"name"`
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required"`
	Decimals uint8  `json:"decimals" yaml:"decimals"`
}
