package scan

import (
	"errors"

	"kiosk/internal/attendance"
	"kiosk/internal/recognition"
)

// Kind classifies how a scan ended.
type Kind string

const (
	KindMatched            Kind = "matched"
	KindNoMatch            Kind = "no_match"
	KindEmptyGallery       Kind = "empty_gallery"
	KindCaptureUnavailable Kind = "capture_unavailable"
	KindCredentialMissing  Kind = "credential_missing"
	KindQuotaExceeded      Kind = "quota_exceeded"
	KindMalformedResponse  Kind = "malformed_response"
	KindTransportFailure   Kind = "transport_failure"
	KindStoreFailure       Kind = "store_failure"
)

var messages = map[Kind]string{
	KindNoMatch:            "Face not recognized. Please try again or register first.",
	KindEmptyGallery:       "No employees registered yet.",
	KindCaptureUnavailable: "Camera is not ready. Please wait for the camera to start or retry.",
	KindCredentialMissing:  "Recognition service is not configured. Check the API key.",
	KindQuotaExceeded:      "Recognition rate limit reached. Please try again in a minute.",
	KindMalformedResponse:  "Recognition service returned an unreadable answer. Please try again.",
	KindTransportFailure:   "Could not reach the recognition service. Check the network and try again.",
	KindStoreFailure:       "Could not read or save attendance records. Please try again.",
}

// Message returns the operator-facing text for a kind.
func (k Kind) Message() string {
	return messages[k]
}

// IsError reports whether the kind is a failure rather than an expected
// negative result.
func (k Kind) IsError() bool {
	switch k {
	case KindMatched, KindNoMatch, KindEmptyGallery:
		return false
	}
	return true
}

// Result is what one scan produced. Outcome is set when the recognizer
// answered; Event only when a check-in was recorded.
type Result struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Kind    Kind                 `json:"kind"`
	Outcome *recognition.Outcome `json:"outcome,omitempty"`
	Event   *attendance.Event    `json:"event,omitempty"`
}

func failure(k Kind) Result {
	return Result{Kind: k, Message: k.Message()}
}

// classify maps a recognizer error onto a result kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, recognition.ErrCredentialMissing):
		return KindCredentialMissing
	case errors.Is(err, recognition.ErrQuotaExceeded):
		return KindQuotaExceeded
	case errors.Is(err, recognition.ErrMalformedResponse):
		return KindMalformedResponse
	default:
		return KindTransportFailure
	}
}
