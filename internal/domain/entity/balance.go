package entity

// NativeCurrencyAddress marks the native coin in balance listings.
const NativeCurrencyAddress = "0x0000000000000000000000000000000000000000"

// Balance is a display balance of one currency held by the connected account.
type Balance struct {
	WalletAddress    string `json:"walletAddress"`
	ChainID          string `json:"chainId"`
	TokenAddress     string `json:"tokenAddress"`
	TokenSymbol      string `json:"tokenSymbol"`
	Decimals         uint8  `json:"decimals"`
	IsNative         bool   `json:"isNative"`
	FormattedBalance string `json:"formattedBalance"`
}

// TransactionRequest is the wallet-facing transaction shape (hex quantities).
type TransactionRequest struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Value string `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
}
