package handler

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"kiosk/internal/attendance"
	"kiosk/internal/export"
)

const maxExportRows = 10000

func parseFilter(c *gin.Context, defaultLimit int) (attendance.EventFilter, error) {
	f := attendance.EventFilter{EmployeeID: c.Query("employee_id"), Limit: defaultLimit}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("invalid offset %q", v)
		}
		f.Offset = n
	}
	for _, p := range []struct {
		key string
		dst *time.Time
	}{{"from", &f.From}, {"to", &f.To}} {
		v := c.Query(p.key)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, fmt.Errorf("invalid %s: want RFC 3339", p.key)
		}
		*p.dst = t
	}
	return f, nil
}

func (a *API) listEvents(c *gin.Context) {
	f, err := parseFilter(c, 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := a.Roster.Events(c.Request.Context(), f)
	if err != nil {
		log.Printf("list events failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list events failed"})
		return
	}
	if events == nil {
		events = []attendance.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (a *API) exportEvents(c *gin.Context) {
	f, err := parseFilter(c, maxExportRows)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	events, err := a.Roster.Events(c.Request.Context(), f)
	if err != nil {
		log.Printf("export events failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="attendance.csv"`)
	c.Status(http.StatusOK)
	if err := export.WriteEvents(c.Writer, events); err != nil {
		log.Printf("write csv failed: %v", err)
	}
}
