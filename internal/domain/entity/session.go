package entity

import "time"

// ConnectionStatus is the connection phase of the wallet session.
type ConnectionStatus string

const (
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusConnected    ConnectionStatus = "connected"
)

// SessionState is a point-in-time copy of the wallet session.
type SessionState struct {
	Status     ConnectionStatus   `json:"status"`
	Account    *WalletAccount     `json:"account,omitempty"`
	Network    *NetworkDescriptor `json:"network,omitempty"`
	LastError  *ErrorRecord       `json:"lastError,omitempty"`
	Generation uint64             `json:"generation"`
}

// IsConnected reports whether an account and network are both present.
func (s SessionState) IsConnected() bool {
	return s.Status == StatusConnected && s.Account != nil && s.Network != nil
}

// ResetSignal tells the hosting application that all work started for the previous
// network is stale.
type ResetSignal struct {
	From       NetworkDescriptor `json:"from"`
	To         NetworkDescriptor `json:"to"`
	Generation uint64            `json:"generation"`
	At         time.Time         `json:"at"`
}

// ActiveContext is the account, network and generation an operation was launched under.
type ActiveContext struct {
	Address    string
	Network    NetworkDescriptor
	Generation uint64
}
