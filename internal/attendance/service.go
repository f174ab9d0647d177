package attendance

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"strings"
	"time"

	"kiosk/internal/recognition"
)

var (
	ErrNameRequired  = errors.New("employee name required")
	ErrPhotoRequired = errors.New("reference photo required")
	ErrInvalidPhoto  = errors.New("reference photo is not a decodable image")
	ErrNotMatched    = errors.New("outcome is not a match")
)

// PhotoArchive stores a copy of a reference photo and returns its URL.
type PhotoArchive interface {
	Archive(ctx context.Context, employeeID string, data []byte) (string, error)
}

// Service coordinates employee registration and check-in recording.
type Service struct {
	store   Store
	archive PhotoArchive
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithArchive uploads reference photos on registration.
func WithArchive(a PhotoArchive) Option {
	return func(s *Service) { s.archive = a }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service backed by a store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterEmployee adds an employee with a reference photo. The photo must
// decode as an image; its stored MIME type is the decoded format. An archive
// failure is logged and does not block registration.
func (s *Service) RegisterEmployee(ctx context.Context, name string, photo []byte, mimeType string) (Employee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Employee{}, ErrNameRequired
	}
	if len(photo) == 0 {
		return Employee{}, ErrPhotoRequired
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(photo))
	if err != nil {
		return Employee{}, fmt.Errorf("%w: %v", ErrInvalidPhoto, err)
	}
	if detected := "image/" + format; mimeType != detected {
		if mimeType != "" && mimeType != "application/octet-stream" {
			log.Printf("reference photo declared %s, decoded as %s", mimeType, detected)
		}
		mimeType = detected
	}

	e := Employee{
		Name:           name,
		ReferenceImage: photo,
		ReferenceMIME:  mimeType,
		CreatedAt:      s.now().UTC(),
	}
	e, err = s.store.AppendEmployee(ctx, e)
	if err != nil {
		return Employee{}, fmt.Errorf("append employee: %w", err)
	}

	if s.archive != nil {
		url, err := s.archive.Archive(ctx, e.ID, photo)
		if err != nil {
			log.Printf("archive photo failed employee=%s: %v", e.ID, err)
		} else {
			e.PhotoURL = url
		}
	}
	return e, nil
}

// RemoveEmployee deletes an employee.
func (s *Service) RemoveEmployee(ctx context.Context, id string) error {
	return s.store.RemoveEmployee(ctx, id)
}

// Employees lists every employee, most recently registered first.
func (s *Service) Employees(ctx context.Context) ([]Employee, error) {
	return s.store.ListEmployees(ctx)
}

// Gallery returns up to limit reference photos of the most recently
// registered employees. A non-positive limit returns all of them.
func (s *Service) Gallery(ctx context.Context, limit int) ([]recognition.Reference, error) {
	employees, err := s.store.RecentEmployees(ctx, limit)
	if err != nil {
		return nil, err
	}
	refs := make([]recognition.Reference, 0, len(employees))
	for _, e := range employees {
		refs = append(refs, recognition.Reference{
			Image:      recognition.Image{Data: e.ReferenceImage, MIMEType: e.ReferenceMIME},
			EmployeeID: e.ID,
			Name:       e.Name,
		})
	}
	return refs, nil
}

// RecordCheckIn appends a check-in event for a matched outcome.
func (s *Service) RecordCheckIn(ctx context.Context, o recognition.Outcome) (Event, error) {
	if !o.Matched || o.EmployeeID == "" {
		return Event{}, ErrNotMatched
	}
	return s.store.AppendEvent(ctx, Event{
		EmployeeID:   o.EmployeeID,
		EmployeeName: o.EmployeeName,
		Timestamp:    s.now().UTC(),
		Confidence:   o.Confidence,
		Kind:         KindCheckIn,
	})
}

// Events lists recorded events, newest first.
func (s *Service) Events(ctx context.Context, f EventFilter) ([]Event, error) {
	return s.store.ListEvents(ctx, f)
}
