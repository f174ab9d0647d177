package handler

import (
	"crypto/subtle"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (a *API) registerTerminal(c *gin.Context) {
	if a.EnrollKey != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader("X-Enroll-Key")), []byte(a.EnrollKey)) != 1 {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid enroll key"})
		return
	}

	var req struct {
		TerminalID string `json:"terminal_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if err := a.Terminals.UpsertTerminal(ctx, req.TerminalID); err != nil {
		log.Printf("register terminal %s failed: %v", req.TerminalID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	tokens, err := a.Issuer.Issue(req.TerminalID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	if err := a.Terminals.SaveRefreshToken(ctx, req.TerminalID, tokens.RefreshToken, tokens.RefreshExp); err != nil {
		log.Printf("save refresh token for %s failed: %v", req.TerminalID, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_at":    tokens.AccessExp.Unix(),
	})
}
