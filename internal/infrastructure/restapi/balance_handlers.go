package restapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wallet_session/internal/domain/entity"
)

const defaultTokenDecimals = 18

type transferRequest struct {
	To       string `json:"to" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency"`
}

type balanceResponse struct {
	Address      string  `json:"address,omitempty"`
	TokenAddress string  `json:"tokenAddress,omitempty"`
	Balance      *string `json:"balance"`
}

// GetNativeBalance returns the native balance of ?address= or the connected account.
func (h *Handler) GetNativeBalance(c *gin.Context) {
	address := c.Query("address")
	b, err := h.balances.GetNativeBalance(c.Request.Context(), address)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceResponse{Address: address, Balance: &b})
}

// GetTokenBalance returns an ERC-20 balance; a malformed token address yields a null balance.
func (h *Handler) GetTokenBalance(c *gin.Context) {
	tokenAddress := c.Param("tokenAddress")
	decimals := uint8(defaultTokenDecimals)
	if raw := c.Query("decimals"); raw != "" {
		d, err := strconv.ParseUint(raw, 10, 8)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		decimals = uint8(d)
	}

	b, ok, err := h.balances.GetTokenBalance(c.Request.Context(), tokenAddress, decimals)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := balanceResponse{TokenAddress: tokenAddress}
	if ok {
		resp.Balance = &b
	}
	c.JSON(http.StatusOK, resp)
}

// GetFeeTokenBalances returns the native balance and every fee token of the active network.
func (h *Handler) GetFeeTokenBalances(c *gin.Context) {
	balances, err := h.balances.GetFeeTokenBalances(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

// Transfer submits a native or token transfer and returns the transaction id.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	snap := h.session.Snapshot()
	if !snap.IsConnected() {
		h.fail(c, entity.ErrNotConnected)
		return
	}

	var (
		txID string
		err  error
	)
	if req.Currency == "" || strings.EqualFold(req.Currency, snap.Network.NativeSymbol) {
		txID, err = h.balances.TransferNative(c.Request.Context(), req.To, req.Amount)
	} else {
		token, found := h.tokens.FindToken(*snap.Network, req.Currency)
		if !found {
			h.fail(c, entity.Errorf(entity.KindInvalidAmount, "Transfer", "currency %s is not available on %s", req.Currency, snap.Network.DisplayName))
			return
		}
		txID, err = h.balances.TransferToken(c.Request.Context(), token, req.To, req.Amount)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"txId": txID})
}

// EstimateFee returns the native fee for sending ?amount= to ?to=.
func (h *Handler) EstimateFee(c *gin.Context) {
	fee, err := h.balances.EstimateFee(c.Request.Context(), c.Query("to"), c.Query("amount"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee": fee})
}
