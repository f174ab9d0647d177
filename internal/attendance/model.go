package attendance

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Kind tells whether an event opens or closes a work period.
type Kind string

const (
	KindCheckIn  Kind = "check-in"
	KindCheckOut Kind = "check-out"
)

// Employee is a registered person with a reference photo.
type Employee struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ReferenceImage []byte    `json:"-"`
	ReferenceMIME  string    `json:"reference_mime"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Event represents a recorded attendance event.
type Event struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	Timestamp    time.Time `json:"timestamp"`
	Confidence   float64   `json:"confidence"`
	Kind         Kind      `json:"kind"`
}

// EventFilter narrows ListEvents. Zero values disable a filter.
type EventFilter struct {
	EmployeeID string
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

// Store persists employees and attendance events. Lists are append-only
// apart from RemoveEmployee.
type Store interface {
	ListEmployees(ctx context.Context) ([]Employee, error)
	// RecentEmployees returns at most n employees, most recently registered
	// first. A non-positive n returns all of them.
	RecentEmployees(ctx context.Context, n int) ([]Employee, error)
	ListEvents(ctx context.Context, f EventFilter) ([]Event, error)
	AppendEvent(ctx context.Context, evt Event) (Event, error)
	AppendEmployee(ctx context.Context, e Employee) (Employee, error)
	RemoveEmployee(ctx context.Context, id string) error
}

// TerminalRegistry records enrolled terminals and their refresh tokens.
type TerminalRegistry interface {
	UpsertTerminal(ctx context.Context, terminalID string) error
	SaveRefreshToken(ctx context.Context, terminalID, token string, expiresAt time.Time) error
}

func normalizeFilter(f EventFilter) EventFilter {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
