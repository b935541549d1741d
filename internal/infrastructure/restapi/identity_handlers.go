package restapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) LinkIdentity(c *gin.Context) {
	link, err := h.identity.LinkIdentity(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (h *Handler) GetProfile(c *gin.Context) {
	profile, err := h.identity.GetProfile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// UpdateProfile merges the request document into the linked profile.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var doc map[string]any
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.badRequest(c, err)
		return
	}
	profile, err := h.identity.SetProfile(c.Request.Context(), doc)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}
