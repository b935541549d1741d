package entity

import (
	"maps"
	"time"
)

// WalletAccount is the active account of a connected session. It is replaced as a whole
// whenever the provider reports a different address.
type WalletAccount struct {
	Address             string        `json:"address"`
	CachedNativeBalance *string       `json:"cachedNativeBalance,omitempty"`
	IdentityLink        *IdentityLink `json:"identityLink,omitempty"`
}

// Clone returns a deep copy safe to hand out of the session lock.
func (a *WalletAccount) Clone() *WalletAccount {
	if a == nil {
		return nil
	}
	out := &WalletAccount{Address: a.Address}
	if a.CachedNativeBalance != nil {
		b := *a.CachedNativeBalance
		out.CachedNativeBalance = &b
	}
	out.IdentityLink = a.IdentityLink.Clone()
	return out
}

// IdentityLink associates a wallet address with an off-chain identity profile
// through a signature made by that address.
type IdentityLink struct {
	OwnerAddress   string         `json:"ownerAddress"`
	SignedMessage  string         `json:"signedMessage"`
	SignatureProof string         `json:"signatureProof"`
	LinkedAt       time.Time      `json:"linkedAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Profile        map[string]any `json:"profile"`
}

// Clone copies the link and its top-level profile map.
func (l *IdentityLink) Clone() *IdentityLink {
	if l == nil {
		return nil
	}
	out := *l
	out.Profile = maps.Clone(l.Profile)
	if out.Profile == nil {
		out.Profile = map[string]any{}
	}
	return &out
}
