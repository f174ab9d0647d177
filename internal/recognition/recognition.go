// Package recognition identifies a captured face against a gallery of
// labeled reference photos using an external service.
package recognition

import (
	"context"
	"errors"
)

// Failure classes every Recognizer maps its errors onto.
var (
	ErrCredentialMissing = errors.New("recognition credential missing or rejected")
	ErrQuotaExceeded     = errors.New("recognition quota exceeded")
	ErrMalformedResponse = errors.New("recognition response malformed")
	ErrTransport         = errors.New("recognition service unreachable")
)

// Image is an encoded image with its media type.
type Image struct {
	Data     []byte
	MIMEType string
}

// Reference is one labeled gallery entry.
type Reference struct {
	Image
	EmployeeID string
	Name       string
}

// Outcome is the decision returned by the service. EmployeeID and
// EmployeeName are set only when Matched is true.
type Outcome struct {
	Matched      bool    `json:"matched"`
	EmployeeID   string  `json:"employeeId,omitempty"`
	EmployeeName string  `json:"employeeName,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// Recognizer compares a target image against a gallery.
type Recognizer interface {
	Name() string
	Identify(ctx context.Context, target Image, gallery []Reference) (Outcome, error)
}
