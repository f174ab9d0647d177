package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosk/internal/scan"
)

// runScan holds the single-flight lock for the whole recognition call even
// if the client disconnects.
func (a *API) runScan(c *gin.Context) {
	res, err := a.Scanner.RunScan(context.WithoutCancel(c.Request.Context()))
	if errors.Is(err, scan.ErrBusy) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *API) scanStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"busy": a.Scanner.Busy(), "phase": a.Scanner.Phase()})
}
