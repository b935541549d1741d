package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
	"wallet_session/internal/pkg/utils"
)

const (
	balancePlaces = 4
	feePlaces     = 6
	zeroBalance   = "0.0000"
)

// ERC20 ABI minimal part for balanceOf and transfer
const erc20ABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
	erc20MethodID   []byte
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
		balanceOfMethod, ok := parsedERC20ABI.Methods["balanceOf"]
		if !ok {
			panic("balanceOf method not found in parsed ERC20 ABI")
		}
		erc20MethodID = balanceOfMethod.ID
	})
}

// BalanceServiceImpl implements port.BalanceService.
type BalanceServiceImpl struct {
	gateway        port.WalletGateway
	session        port.SessionView
	tokenProvider  port.TokenProvider
	logger         port.Logger
	cache          *gocache.Cache
	maxConcurrency int
}

// NewBalanceService creates a new instance of BalanceServiceImpl.
func NewBalanceService(
	gw port.WalletGateway,
	session port.SessionView,
	tp port.TokenProvider,
	l port.Logger,
	cacheTTL time.Duration,
	cleanupInterval time.Duration,
	maxConcurrency int,
) *BalanceServiceImpl {
	initParsedERC20ABI()
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &BalanceServiceImpl{
		gateway:        gw,
		session:        session,
		tokenProvider:  tp,
		logger:         l,
		cache:          gocache.New(cacheTTL, cleanupInterval),
		maxConcurrency: maxConcurrency,
	}
}

// GetNativeBalance returns the native balance of address (the connected account when
// empty) with four decimals. The connected account's balance is cached on the session.
func (s *BalanceServiceImpl) GetNativeBalance(ctx context.Context, address string) (string, error) {
	const op = "GetNativeBalance"
	active, err := s.session.Active()
	if err != nil {
		return "", err
	}
	if address == "" {
		address = active.Address
	}
	if !common.IsHexAddress(address) {
		return "", entity.Errorf(entity.KindInvalidAddress, op, "invalid address %q", address)
	}
	address = strings.ToLower(address)

	raw, err := s.gateway.GetBalance(ctx, address)
	if err != nil {
		return "", err
	}
	formatted := decodeBalance(raw, active.Network.Decimals)

	if address == active.Address && !s.session.CacheBalance(active.Generation, address, formatted) {
		return "", entity.Errorf(entity.KindSessionReset, op, "session changed while reading balance")
	}
	return formatted, nil
}

// GetTokenBalance reads an ERC-20 balance of the connected account. ok is false for a
// malformed token address; undecodable payloads read as zero.
func (s *BalanceServiceImpl) GetTokenBalance(ctx context.Context, tokenAddress string, decimals uint8) (string, bool, error) {
	const op = "GetTokenBalance"
	active, err := s.session.Active()
	if err != nil {
		return "", false, err
	}
	if !isStrictHexAddress(tokenAddress) {
		s.logger.Warn("Invalid token address format", "token", tokenAddress)
		return "", false, nil
	}

	key := fmt.Sprintf("%d:%s:%s:%s", active.Generation, active.Network.ChainID, strings.ToLower(tokenAddress), active.Address)
	if cached, found := s.cache.Get(key); found {
		return cached.(string), true, nil
	}

	paddedWalletAddress := common.LeftPadBytes(common.HexToAddress(active.Address).Bytes(), 32)
	callData := append(append([]byte{}, erc20MethodID...), paddedWalletAddress...)

	raw, err := s.gateway.RawCall(ctx, strings.ToLower(tokenAddress), hexutil.Encode(callData))
	if err != nil {
		return "", false, err
	}
	formatted := decodeBalance(raw, decimals)

	if s.session.Generation() != active.Generation {
		return "", false, entity.Errorf(entity.KindSessionReset, op, "session changed while reading token balance")
	}
	s.cache.SetDefault(key, formatted)
	return formatted, true, nil
}

// GetFeeTokenBalances returns the native balance followed by every configured fee token of
// the active network, fetched in parallel. A failing token reads as zero.
func (s *BalanceServiceImpl) GetFeeTokenBalances(ctx context.Context) ([]entity.Balance, error) {
	active, err := s.session.Active()
	if err != nil {
		return nil, err
	}
	tokens := s.tokenProvider.TokensForNetwork(active.Network)

	balances := make([]entity.Balance, len(tokens)+1)
	balances[0] = entity.Balance{
		WalletAddress: active.Address,
		ChainID:       active.Network.ChainID,
		TokenAddress:  entity.NativeCurrencyAddress,
		TokenSymbol:   active.Network.NativeSymbol,
		Decimals:      active.Network.Decimals,
		IsNative:      true,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	g.Go(func() error {
		b, err := s.GetNativeBalance(gctx, active.Address)
		if err != nil {
			return err
		}
		balances[0].FormattedBalance = b
		return nil
	})
	for i, token := range tokens {
		i, token := i, token
		balances[i+1] = entity.Balance{
			WalletAddress: active.Address,
			ChainID:       active.Network.ChainID,
			TokenAddress:  token.Address,
			TokenSymbol:   token.Symbol,
			Decimals:      token.Decimals,
		}
		g.Go(func() error {
			b, ok, err := s.GetTokenBalance(gctx, token.Address, token.Decimals)
			if entity.KindOf(err) == entity.KindSessionReset {
				return err
			}
			if err != nil || !ok {
				s.logger.Warn("Failed to fetch fee token balance", "token", token.Symbol, "error", err)
				b = zeroBalance
			}
			balances[i+1].FormattedBalance = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return balances, nil
}

// TransferNative sends amount of the native coin to to and returns the transaction id as
// soon as the wallet accepts it.
func (s *BalanceServiceImpl) TransferNative(ctx context.Context, to, amount string) (string, error) {
	const op = "TransferNative"
	active, err := s.session.Active()
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(to) {
		return "", entity.Errorf(entity.KindInvalidAddress, op, "invalid recipient %q", to)
	}
	value, err := parsePositiveAmount(op, amount, active.Network.Decimals)
	if err != nil {
		return "", err
	}

	tx := entity.TransactionRequest{
		From:  active.Address,
		To:    strings.ToLower(to),
		Value: utils.ToHexQuantity(value),
	}
	return s.submit(ctx, op, active, tx)
}

// TransferToken sends amount of an ERC-20 token to to.
func (s *BalanceServiceImpl) TransferToken(ctx context.Context, token entity.TokenInfo, to, amount string) (string, error) {
	const op = "TransferToken"
	active, err := s.session.Active()
	if err != nil {
		return "", err
	}
	if !isStrictHexAddress(token.Address) {
		return "", entity.Errorf(entity.KindInvalidAddress, op, "invalid token address %q", token.Address)
	}
	if !common.IsHexAddress(to) {
		return "", entity.Errorf(entity.KindInvalidAddress, op, "invalid recipient %q", to)
	}
	value, err := parsePositiveAmount(op, amount, token.Decimals)
	if err != nil {
		return "", err
	}

	data, err := parsedERC20ABI.Pack("transfer", common.HexToAddress(to), value)
	if err != nil {
		return "", entity.NewError(entity.KindInvalidAmount, op, err)
	}
	tx := entity.TransactionRequest{
		From:  active.Address,
		To:    strings.ToLower(token.Address),
		Value: "0x0",
		Data:  hexutil.Encode(data),
	}
	return s.submit(ctx, op, active, tx)
}

func (s *BalanceServiceImpl) submit(ctx context.Context, op string, active entity.ActiveContext, tx entity.TransactionRequest) (string, error) {
	hash, err := s.gateway.SendTransaction(ctx, tx)
	if err != nil {
		return "", err
	}
	if s.session.Generation() != active.Generation {
		s.logger.Warn("Transaction accepted for a superseded session, result discarded",
			"op", op, "txId", hash, "network", active.Network.ChainID)
		return "", entity.Errorf(entity.KindSessionReset, op, "session changed while submitting")
	}
	s.logger.Info("Transaction submitted", "op", op, "txId", hash, "to", tx.To, "network", active.Network.ChainID)
	return hash, nil
}

// EstimateFee estimates the native-currency fee of sending amount to to, with six
// decimals: gas units times gas price.
func (s *BalanceServiceImpl) EstimateFee(ctx context.Context, to, amount string) (string, error) {
	const op = "EstimateFee"
	active, err := s.session.Active()
	if err != nil {
		return "", err
	}
	if !common.IsHexAddress(to) {
		return "", entity.Errorf(entity.KindInvalidAddress, op, "invalid recipient %q", to)
	}
	value, err := parsePositiveAmount(op, amount, active.Network.Decimals)
	if err != nil {
		return "", err
	}

	tx := entity.TransactionRequest{From: active.Address, To: strings.ToLower(to), Value: utils.ToHexQuantity(value)}
	gas, err := s.gateway.EstimateGas(ctx, tx)
	if err != nil {
		return "", err
	}
	price, err := s.gateway.GasPrice(ctx)
	if err != nil {
		return "", err
	}
	fee := new(big.Int).Mul(gas, price)
	return utils.FormatUnits(fee, active.Network.Decimals, feePlaces), nil
}

// decodeBalance turns a raw hex quantity into a display string; anything unparsable is zero.
func decodeBalance(raw string, decimals uint8) string {
	v, err := utils.ParseHexQuantity(raw)
	if err != nil {
		return zeroBalance
	}
	return utils.FormatUnits(v, decimals, balancePlaces)
}

func parsePositiveAmount(op, amount string, decimals uint8) (*big.Int, error) {
	v, err := utils.ParseUnits(amount, decimals)
	if err != nil {
		return nil, entity.NewError(entity.KindInvalidAmount, op, err)
	}
	if v.Sign() <= 0 {
		return nil, entity.Errorf(entity.KindInvalidAmount, op, "amount must be positive, got %q", amount)
	}
	return v, nil
}

func isStrictHexAddress(s string) bool {
	return len(s) == 42 && strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}
