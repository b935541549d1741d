package networkdefinition

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
)

// Classifier implements port.NetworkClassifier over the predefined table plus config
// extensions.
type Classifier struct {
	logger port.Logger
	defs   map[string]entity.NetworkDescriptor
}

// NewClassifier builds the lookup table. Entries in extra replace predefined entries with
// the same chain id; entries with an unparsable chain id are skipped.
func NewClassifier(log port.Logger, extra []entity.NetworkDescriptor) *Classifier {
	c := &Classifier{
		logger: log,
		defs:   make(map[string]entity.NetworkDescriptor, len(allKnownDescriptors)+len(extra)),
	}
	for _, d := range allKnownDescriptors {
		c.defs[d.ChainID] = d
	}

	for _, d := range extra {
		id, ok := NormalizeChainID(d.ChainID)
		if !ok {
			c.logger.Warn("Skipping network definition with invalid chain id", "chainId", d.ChainID, "name", d.DisplayName)
			continue
		}
		d.ChainID = id
		d.Known = true
		if d.Decimals == 0 {
			d.Decimals = 18
		}
		if d.Family == "" {
			d.Family = entity.FamilyUnknown
		}
		if _, exists := c.defs[id]; exists {
			c.logger.Info("Overriding predefined network definition", "chainId", id, "name", d.DisplayName)
		}
		c.defs[id] = d
	}

	c.logger.Info(fmt.Sprintf("Network classifier initialized with %d networks", len(c.defs)))
	return c
}

// Classify returns the descriptor for chainID, or an "Unknown Network" fallback.
func (c *Classifier) Classify(chainID string) entity.NetworkDescriptor {
	id, ok := NormalizeChainID(chainID)
	if ok {
		if d, found := c.defs[id]; found {
			return d
		}
	} else {
		id = strings.ToLower(strings.TrimSpace(chainID))
	}
	return entity.NetworkDescriptor{
		ChainID:      id,
		DisplayName:  "Unknown Network",
		Identifier:   "unknown",
		NativeSymbol: "ETH",
		Decimals:     18,
		Family:       entity.FamilyUnknown,
	}
}

// IsMajorBoundary implements the reset rule for a network change:
// crossing in or out of the fee-capable family is always major, moves that stay
// fee-capable or involve an unclassified chain are benign, and any other move is major
// when it changes family or touches a production network.
func (c *Classifier) IsMajorBoundary(from, to entity.NetworkDescriptor) bool {
	return IsMajorBoundary(from, to)
}

// All returns every known descriptor ordered by chain id.
func (c *Classifier) All() []entity.NetworkDescriptor {
	out := make([]entity.NetworkDescriptor, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := ChainIDToUint(out[i].ChainID)
		b, _ := ChainIDToUint(out[j].ChainID)
		return a < b
	})
	return out
}

// IsMajorBoundary is the table-independent form of Classifier.IsMajorBoundary.
func IsMajorBoundary(from, to entity.NetworkDescriptor) bool {
	if from.ChainID == to.ChainID {
		return false
	}
	if from.IsFeeCapableNetwork != to.IsFeeCapableNetwork {
		return true
	}
	if from.IsFeeCapableNetwork {
		return false
	}
	if !from.Known || !to.Known {
		return false
	}
	return from.Family != to.Family || from.IsProduction() || to.IsProduction()
}

// NormalizeChainID accepts hex ("0xA4EC") or decimal ("42220") chain ids and returns the
// canonical lowercase minimal hex form.
func NormalizeChainID(chainID string) (string, bool) {
	s := strings.TrimSpace(chainID)
	if s == "" || strings.ContainsAny(s, "+-") {
		return "", false
	}
	v := new(big.Int)
	var ok bool
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		if len(s) == 2 {
			return "", false
		}
		_, ok = v.SetString(s[2:], 16)
	} else {
		_, ok = v.SetString(s, 10)
	}
	if !ok || v.Sign() <= 0 {
		return "", false
	}
	return "0x" + v.Text(16), true
}

// ChainIDToUint converts a chain id in any accepted notation to its numeric value.
func ChainIDToUint(chainID string) (uint64, bool) {
	id, ok := NormalizeChainID(chainID)
	if !ok {
		return 0, false
	}
	v, err := hexutil.DecodeUint64(id)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ChainIDFromUint formats a numeric chain id as canonical hex.
func ChainIDFromUint(id uint64) string {
	return hexutil.EncodeUint64(id)
}
