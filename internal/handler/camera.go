package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kiosk/internal/camera"
)

type cameraError struct {
	Kind        camera.ErrorKind `json:"kind"`
	Message     string           `json:"message"`
	Remediation string           `json:"remediation,omitempty"`
}

type cameraStatus struct {
	Phase   camera.Phase `json:"phase"`
	Active  bool         `json:"active"`
	Epoch   uint64       `json:"epoch"`
	Profile string       `json:"profile,omitempty"`
	Error   *cameraError `json:"error,omitempty"`
}

func toCameraStatus(st camera.Status) cameraStatus {
	out := cameraStatus{Phase: st.Phase, Active: st.Active, Epoch: st.Epoch, Profile: st.Profile}
	if st.Err != nil {
		out.Error = &cameraError{Kind: st.Err.Kind, Message: st.Err.Message, Remediation: st.Err.Remediation()}
	}
	return out
}

func (a *API) getCamera(c *gin.Context) {
	c.JSON(http.StatusOK, toCameraStatus(a.Camera.Status()))
}

func (a *API) setCamera(c *gin.Context) {
	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a.Camera.SetActive(*req.Active)
	c.JSON(http.StatusOK, toCameraStatus(a.Camera.Status()))
}

func (a *API) retryCamera(c *gin.Context) {
	a.Camera.Retry()
	c.JSON(http.StatusAccepted, toCameraStatus(a.Camera.Status()))
}

func (a *API) cameraFrame(c *gin.Context) {
	still := a.Camera.Capture()
	if still == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame available"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, still.MIMEType, still.Data)
}
