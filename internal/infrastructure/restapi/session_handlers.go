package restapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"wallet_session/internal/domain/entity"
	networkdefinition "wallet_session/internal/infrastructure/network/definition"
)

type switchNetworkRequest struct {
	ChainID string `json:"chainId" binding:"required"`
}

// NetworkResponse is a classified network plus faucet hints for test networks.
type NetworkResponse struct {
	entity.NetworkDescriptor
	Faucet *entity.FaucetInfo `json:"faucet,omitempty"`
}

func networkResponse(d entity.NetworkDescriptor) NetworkResponse {
	resp := NetworkResponse{NetworkDescriptor: d}
	if f, ok := networkdefinition.FaucetInfo(d); ok {
		resp.Faucet = &f
	}
	return resp
}

// GetSession returns the current session snapshot.
func (h *Handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// Connect asks the wallet for access. A failed attempt still returns the snapshot
// carrying lastError.
func (h *Handler) Connect(c *gin.Context) {
	snap, err := h.session.Connect(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) Disconnect(c *gin.Context) {
	h.session.Disconnect()
	c.JSON(http.StatusOK, h.session.Snapshot())
}

// SwitchNetwork moves the wallet to the requested chain.
func (h *Handler) SwitchNetwork(c *gin.Context) {
	var req switchNetworkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if _, ok := networkdefinition.NormalizeChainID(req.ChainID); !ok {
		h.badRequest(c, fmt.Errorf("malformed chain id %q", req.ChainID))
		return
	}
	snap, err := h.session.SwitchNetwork(c.Request.Context(), req.ChainID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListNetworks returns the known network table.
func (h *Handler) ListNetworks(c *gin.Context) {
	all := h.classifier.All()
	out := make([]NetworkResponse, 0, len(all))
	for _, d := range all {
		out = append(out, networkResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"networks": out})
}

// GetNetwork classifies any chain id; unknown chains yield the fallback descriptor.
func (h *Handler) GetNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, networkResponse(h.classifier.Classify(c.Param("chainId"))))
}
