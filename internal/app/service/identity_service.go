package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
)

// IdentityServiceImpl links the connected account to a self-sovereign identity profile.
type IdentityServiceImpl struct {
	gateway          port.WalletGateway
	session          port.SessionManager
	logger           port.Logger
	verifySignatures bool
	now              func() time.Time
}

// NewIdentityService creates a new instance of IdentityServiceImpl. With verifySignatures
// the recovered signer of every link must equal the connected address.
func NewIdentityService(gw port.WalletGateway, session port.SessionManager, l port.Logger, verifySignatures bool) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		gateway:          gw,
		session:          session,
		logger:           l,
		verifySignatures: verifySignatures,
		now:              time.Now,
	}
}

// LinkMessage is the canonical message signed to link address at ts.
func LinkMessage(address string, ts time.Time) string {
	return fmt.Sprintf("Connect Self onchain identity for %s at %s", address, ts.UTC().Format(time.RFC3339))
}

// LinkIdentity asks the wallet to sign the link message and stores the resulting link on
// the connected account.
func (s *IdentityServiceImpl) LinkIdentity(ctx context.Context) (*entity.IdentityLink, error) {
	const op = "LinkIdentity"
	active, err := s.session.Active()
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	message := LinkMessage(active.Address, now)
	sig, err := s.gateway.SignMessage(ctx, message, active.Address)
	if err != nil {
		if entity.KindOf(err) == entity.KindUserRejected {
			return nil, entity.NewError(entity.KindSignatureDeclined, op, err)
		}
		return nil, err
	}

	if s.verifySignatures {
		if err := checkSigner(message, sig, active.Address); err != nil {
			return nil, entity.NewError(entity.KindSignatureDeclined, op, err)
		}
	}

	link := &entity.IdentityLink{
		OwnerAddress:   active.Address,
		SignedMessage:  message,
		SignatureProof: sig,
		LinkedAt:       now,
		UpdatedAt:      now,
		Profile: map[string]any{
			"address":     active.Address,
			"selfId":      "self:" + active.Address,
			"network":     active.Network.Identifier,
			"timestamp":   now.Format(time.RFC3339),
			"lastUpdated": now.Format(time.RFC3339),
		},
	}
	if err := s.session.AttachIdentityLink(active.Generation, active.Address, link); err != nil {
		return nil, err
	}
	s.logger.Info("Identity linked", "address", active.Address, "network", active.Network.ChainID)
	return link.Clone(), nil
}

// GetProfile returns a copy of the linked profile document.
func (s *IdentityServiceImpl) GetProfile(_ context.Context) (map[string]any, error) {
	const op = "GetProfile"
	snap := s.session.Snapshot()
	if !snap.IsConnected() {
		return nil, entity.Errorf(entity.KindNotConnected, op, "wallet is not connected")
	}
	if snap.Account.IdentityLink == nil {
		return nil, entity.Errorf(entity.KindLinkAbsent, op, "no identity linked to %s", snap.Account.Address)
	}
	return snap.Account.IdentityLink.Profile, nil
}

// SetProfile merges doc into the linked profile and stamps the update time.
func (s *IdentityServiceImpl) SetProfile(_ context.Context, doc map[string]any) (map[string]any, error) {
	now := s.now().UTC()
	link, err := s.session.UpdateIdentityLink(func(link *entity.IdentityLink) error {
		for k, v := range doc {
			link.Profile[k] = v
		}
		link.Profile["lastUpdated"] = now.Format(time.RFC3339)
		link.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link.Profile, nil
}

// checkSigner recovers the EIP-191 signer of message and compares it with address.
func checkSigner(message, sig, address string) error {
	raw, err := hexutil.Decode(sig)
	if err != nil {
		return fmt.Errorf("malformed signature: %w", err)
	}
	if len(raw) != crypto.SignatureLength {
		return fmt.Errorf("signature has %d bytes, want %d", len(raw), crypto.SignatureLength)
	}
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), raw)
	if err != nil {
		return fmt.Errorf("recover signer: %w", err)
	}
	signer := crypto.PubkeyToAddress(*pub).Hex()
	if !strings.EqualFold(signer, address) {
		return fmt.Errorf("signature made by %s, not %s", signer, address)
	}
	return nil
}
