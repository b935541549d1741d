package memprovider

import (
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"wallet_session/internal/domain/entity"
)

// Address returns the wallet's lowercase hex address.
func (w *Wallet) Address() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.address
}

// SwitchAccount replaces the active key and emits accountsChanged when authorized.
func (w *Wallet) SwitchAccount(key *ecdsa.PrivateKey) string {
	w.mu.Lock()
	w.key = key
	w.address = strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
	addr, authorized := w.address, w.authorized
	w.mu.Unlock()

	if authorized {
		w.accountsFeed.Send([]string{addr})
	}
	return addr
}

// Revoke drops authorization and emits an empty accountsChanged.
func (w *Wallet) Revoke() {
	w.mu.Lock()
	w.authorized = false
	w.mu.Unlock()
	w.accountsFeed.Send([]string{})
}

// EmitAccountsChanged publishes an arbitrary accounts notification.
func (w *Wallet) EmitAccountsChanged(accounts []string) {
	w.accountsFeed.Send(accounts)
}

// EmitChainChanged moves the wallet to chainID and publishes chainChanged.
func (w *Wallet) EmitChainChanged(chainID string) {
	chainID = strings.ToLower(chainID)
	w.mu.Lock()
	w.chainID = chainID
	w.knownChains[chainID] = true
	w.mu.Unlock()
	w.chainFeed.Send(chainID)
}

func (w *Wallet) SetAuthorized(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authorized = v
}

func (w *Wallet) SetRejectConnect(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectConnect = v
}

func (w *Wallet) SetRejectSign(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectSign = v
}

func (w *Wallet) SetRejectSend(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectSend = v
}

func (w *Wallet) SetRejectSwitch(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rejectSwitch = v
}

// SetDisconnected makes every call fail with code 4900.
func (w *Wallet) SetDisconnected(v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnected = v
}

func (w *Wallet) SetSendError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sendErr = err
}

// SetConnectGate blocks RequestAccounts until gate is closed.
func (w *Wallet) SetConnectGate(gate <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connectGate = gate
}

// SetBeforeSend runs hook inside SendTransaction before the transaction is accepted.
func (w *Wallet) SetBeforeSend(hook func(entity.TransactionRequest)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beforeSend = hook
}

func (w *Wallet) SetNativeBalance(chainID string, wei *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balances[strings.ToLower(chainID)] = new(big.Int).Set(wei)
}

// SetCallResponse fixes the eth_call result for contract to.
func (w *Wallet) SetCallResponse(to, result string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls[strings.ToLower(to)] = result
}

func (w *Wallet) SetGas(estimate, price *big.Int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gasEstimate = new(big.Int).Set(estimate)
	w.gasPrice = new(big.Int).Set(price)
}

func (w *Wallet) AddKnownChain(chainID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.knownChains[strings.ToLower(chainID)] = true
}

// CurrentChain returns the active chain id without error handling.
func (w *Wallet) CurrentChain() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.chainID
}

// RequestCount is the number of RequestAccounts calls seen.
func (w *Wallet) RequestCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requestCount
}

// SentTransactions returns a copy of accepted transactions.
func (w *Wallet) SentTransactions() []entity.TransactionRequest {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]entity.TransactionRequest(nil), w.sent...)
}
