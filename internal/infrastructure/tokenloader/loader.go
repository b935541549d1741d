package tokenloader

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
	"wallet_session/internal/pkg/utils"
)

const defaultTokenDirectoryPath = "data/tokens"

// TokenFileLoader implements port.TokenProvider from <dir>/<network identifier>.json
// files plus tokens declared in config.
type TokenFileLoader struct {
	tokenDirPath string
	logger       port.Logger
	configured   []entity.TokenInfo

	mu     sync.Mutex
	loaded map[string][]entity.TokenInfo // by chain id
}

// NewTokenLoader creates a new TokenFileLoader.
func NewTokenLoader(log port.Logger, tokenDirPath string, configured []entity.TokenInfo) *TokenFileLoader {
	if tokenDirPath == "" {
		tokenDirPath = defaultTokenDirectoryPath
	}
	return &TokenFileLoader{
		tokenDirPath: tokenDirPath,
		logger:       log,
		configured:   configured,
		loaded:       make(map[string][]entity.TokenInfo),
	}
}

// TokensForNetwork returns file tokens followed by configured tokens for the network.
// Tokens whose chain id does not match the network are skipped.
func (l *TokenFileLoader) TokensForNetwork(network entity.NetworkDescriptor) []entity.TokenInfo {
	chainID, ok := networkdefinition.ChainIDToUint(network.ChainID)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if tokens, cached := l.loaded[network.ChainID]; cached {
		return append([]entity.TokenInfo(nil), tokens...)
	}

	var tokens []entity.TokenInfo
	seen := make(map[string]struct{})
	add := func(source string, list []entity.TokenInfo) {
		for _, token := range list {
			if token.ChainID != chainID {
				l.logger.Warn("Token has mismatched ChainID, skipping token.",
					"source", source, "token_symbol", token.Symbol, "token_address", token.Address,
					"token_chain_id", token.ChainID, "expected_chain_id", chainID)
				continue
			}
			key := strings.ToLower(token.Address)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			tokens = append(tokens, token)
		}
	}

	if network.Identifier != "" {
		filePath := filepath.Join(l.tokenDirPath, network.Identifier+".json")
		fromFile, err := utils.LoadTokensFromJSON(filePath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			l.logger.Debug("No token file for network", "network_identifier", network.Identifier, "path", filePath)
		case err != nil:
			l.logger.Warn("Failed to load tokens from file, skipping file.", "path", filePath, "error", err)
		default:
			add(filePath, fromFile)
		}
	}
	add("config", l.configured)

	l.loaded[network.ChainID] = tokens
	l.logger.Info("Loaded fee tokens for network", "network", network.DisplayName, "count", len(tokens))
	return append([]entity.TokenInfo(nil), tokens...)
}

// FindToken looks up a token by symbol on the network, ignoring case.
func (l *TokenFileLoader) FindToken(network entity.NetworkDescriptor, symbol string) (entity.TokenInfo, bool) {
	for _, token := range l.TokensForNetwork(network) {
		if strings.EqualFold(token.Symbol, symbol) {
			return token, true
		}
	}
	return entity.TokenInfo{}, false
}
