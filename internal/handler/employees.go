package handler

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"kiosk/internal/attendance"
)

const maxPhotoBytes = 10 << 20

type employeeView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ReferenceMIME string `json:"reference_mime"`
	PhotoURL      string `json:"photo_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toEmployeeView(e attendance.Employee) employeeView {
	return employeeView{
		ID:            e.ID,
		Name:          e.Name,
		ReferenceMIME: e.ReferenceMIME,
		PhotoURL:      e.PhotoURL,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (a *API) listEmployees(c *gin.Context) {
	employees, err := a.Roster.Employees(c.Request.Context())
	if err != nil {
		log.Printf("list employees failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list employees failed"})
		return
	}
	out := make([]employeeView, 0, len(employees))
	for _, e := range employees {
		out = append(out, toEmployeeView(e))
	}
	c.JSON(http.StatusOK, gin.H{"employees": out})
}

func (a *API) registerEmployee(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoBytes+1<<20)

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo field required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxPhotoBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read photo failed"})
		return
	}
	if len(data) > maxPhotoBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo too large"})
		return
	}

	e, err := a.Roster.RegisterEmployee(c.Request.Context(), c.PostForm("name"), data, header.Header.Get("Content-Type"))
	switch {
	case errors.Is(err, attendance.ErrNameRequired), errors.Is(err, attendance.ErrPhotoRequired),
		errors.Is(err, attendance.ErrInvalidPhoto):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("register employee failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register employee failed"})
		return
	}
	c.JSON(http.StatusCreated, toEmployeeView(e))
}

func (a *API) removeEmployee(c *gin.Context) {
	err := a.Roster.RemoveEmployee(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "employee not found"})
	case err != nil:
		log.Printf("remove employee %s failed: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "remove employee failed"})
	default:
		c.Status(http.StatusNoContent)
	}
}
