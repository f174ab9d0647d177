package camera

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why an acquisition attempt failed.
type ErrorKind string

const (
	KindPermissionDenied   ErrorKind = "permission_denied"
	KindNoDevice           ErrorKind = "no_device"
	KindDeviceBusy         ErrorKind = "device_busy"
	KindUnsupportedContext ErrorKind = "unsupported_context"
	KindUnknown            ErrorKind = "unknown"
)

// CaptureError is the terminal state of one acquisition attempt.
type CaptureError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Remediation returns operator instructions for the failure.
func (e *CaptureError) Remediation() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Allow camera access for this terminal in the camera or browser settings, then press Retry."
	case KindUnsupportedContext:
		return "Open the terminal over HTTPS or from localhost."
	default:
		return "Press Retry to start the camera again."
	}
}

// NewPermissionDenied creates an error for a refused permission prompt.
func NewPermissionDenied(err error) *CaptureError {
	return &CaptureError{Kind: KindPermissionDenied, Message: "camera access was denied", Err: err}
}

// NewNoDevice creates an error for when no profile found a usable camera.
func NewNoDevice(err error) *CaptureError {
	return &CaptureError{Kind: KindNoDevice, Message: "no camera was found", Err: err}
}

// NewDeviceBusy creates an error for a camera held by another application.
func NewDeviceBusy(err error) *CaptureError {
	return &CaptureError{Kind: KindDeviceBusy, Message: "the camera is in use by another application", Err: err}
}

// NewUnsupportedContext creates an error for an insecure execution context.
func NewUnsupportedContext() *CaptureError {
	return &CaptureError{Kind: KindUnsupportedContext, Message: "camera access requires a secure connection"}
}

// NewUnknown creates an error for failures that match no other kind.
func NewUnknown(err error) *CaptureError {
	return &CaptureError{Kind: KindUnknown, Message: "the camera could not be started", Err: err}
}

// Is reports whether err is a CaptureError of the given kind.
func Is(err error, kind ErrorKind) bool {
	var cErr *CaptureError
	if errors.As(err, &cErr) {
		return cErr.Kind == kind
	}
	return false
}
