package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"novasport-checker/internal/store"
)

const (
	msgNoToken        = "No token available, it should be POSTed before"
	msgTokenAbsent    = "Token value absent from POSTed object (key 'token')"
	msgNeedJSONHeader = "Need Content-Type header to be application/json"
)

// GetToken serves the latest token POSTed by the userscript.
func (h *Handler) GetToken(c *gin.Context) {
	token, err := h.store.LatestToken(c.Request.Context())
	if errors.Is(err, store.ErrNoToken) {
		c.String(http.StatusBadRequest, msgNoToken)
		return
	}
	if err != nil {
		h.logger.Error("failed to load token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

type postTokenRequest struct {
	Token *string `json:"token"`
}

// PostToken replaces the stored token.
func (h *Handler) PostToken(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.String(http.StatusBadRequest, msgNeedJSONHeader)
		return
	}

	var req postTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid JSON body: %v", err)
		return
	}
	if req.Token == nil || *req.Token == "" {
		c.String(http.StatusBadRequest, msgTokenAbsent)
		return
	}

	if err := h.store.SaveToken(c.Request.Context(), *req.Token); err != nil {
		h.logger.Error("failed to save token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save token"})
		return
	}

	h.logger.Debug("token updated")
	c.JSON(http.StatusOK, gin.H{"updatedToken": *req.Token})
}
