// Package handler exposes the terminal over HTTP.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kiosk/internal/attendance"
	"kiosk/internal/auth"
	"kiosk/internal/camera"
	"kiosk/internal/httpmiddleware"
	"kiosk/internal/scan"
)

// Camera is the capture session as seen by the API.
type Camera interface {
	Status() camera.Status
	SetActive(on bool)
	Retry()
	Capture() *camera.StillImage
}

// Scanner runs identification cycles.
type Scanner interface {
	RunScan(ctx context.Context) (scan.Result, error)
	Busy() bool
	Phase() scan.Phase
}

// Roster manages employees and reads the attendance log.
type Roster interface {
	RegisterEmployee(ctx context.Context, name string, photo []byte, mimeType string) (attendance.Employee, error)
	RemoveEmployee(ctx context.Context, id string) error
	Employees(ctx context.Context) ([]attendance.Employee, error)
	Events(ctx context.Context, f attendance.EventFilter) ([]attendance.Event, error)
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators the API is built from.
type Deps struct {
	Camera    Camera
	Scanner   Scanner
	Roster    Roster
	Terminals attendance.TerminalRegistry
	Issuer    *auth.Issuer
	EnrollKey string
	Limiter   *httpmiddleware.TokenBucket
	Metrics   http.Handler
	Health    map[string]HealthCheck
}

// API holds the route handlers.
type API struct {
	Deps
}

// New builds the gin engine with every route registered.
func New(d Deps) *gin.Engine {
	api := &API{Deps: d}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS(), httpmiddleware.SecurityHeaders())

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/healthz", api.health)

	public := r.Group("/v1")
	if d.Limiter != nil {
		public.Use(d.Limiter.GinMiddleware(nil))
	}
	public.POST("/terminals/register", api.registerTerminal)

	v1 := r.Group("/v1", auth.TerminalAuth(d.Issuer))
	if d.Limiter != nil {
		v1.Use(d.Limiter.GinMiddleware(terminalKey))
	}

	v1.GET("/camera", api.getCamera)
	v1.PUT("/camera", api.setCamera)
	v1.POST("/camera/retry", api.retryCamera)
	v1.GET("/camera/frame", api.cameraFrame)

	v1.POST("/scan", api.runScan)
	v1.GET("/scan", api.scanStatus)

	v1.GET("/employees", api.listEmployees)
	v1.POST("/employees", api.registerEmployee)
	v1.DELETE("/employees/:id", api.removeEmployee)

	v1.GET("/events", api.listEvents)
	v1.GET("/events.csv", api.exportEvents)

	return r
}

func terminalKey(c *gin.Context) string {
	if claims, ok := auth.ClaimsFrom(c); ok && claims.Subject != "" {
		return "terminal:" + claims.Subject
	}
	return ""
}

func (a *API) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range a.Health {
		ok := check(ctx)
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
