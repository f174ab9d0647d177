package camera

import (
	"context"
	"errors"
	"image"
)

// Device errors. Open implementations wrap one of these so the session can
// decide whether to try the next profile.
var (
	ErrPermission      = errors.New("camera permission refused")
	ErrNotFound        = errors.New("camera not found")
	ErrBusy            = errors.New("camera in use")
	ErrOverconstrained = errors.New("camera cannot satisfy constraints")
)

// Facing selects the camera direction.
type Facing string

const (
	FacingAny  Facing = ""
	FacingUser Facing = "user"
)

// Constraints describe the device a profile asks for. Zero values mean no preference.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// Profile is a named set of constraints tried during acquisition.
type Profile struct {
	Name        string
	Constraints Constraints
}

// DefaultProfiles returns the acquisition fallback order: front camera at 720p,
// front camera at any resolution, then any video input.
func DefaultProfiles() []Profile {
	return []Profile{
		{Name: "front-720p", Constraints: Constraints{Facing: FacingUser, Width: 1280, Height: 720}},
		{Name: "front", Constraints: Constraints{Facing: FacingUser}},
		{Name: "any"},
	}
}

// Device opens live video streams.
type Device interface {
	// Secure reports whether the device may be used from this context.
	Secure() bool
	// Open acquires a stream matching c. It may block until the device answers.
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired live feed.
type Stream interface {
	// Latest returns the most recent frame without blocking.
	Latest() (image.Image, bool)
	// Close releases the device. Calling it more than once is safe.
	Close() error
}
