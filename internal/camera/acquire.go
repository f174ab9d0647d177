package camera

import (
	"context"
	"errors"
	"log"
)

// acquire walks the profiles in order and returns the first stream a device
// grants. A permission refusal stops the walk: no other profile can change it.
func acquire(ctx context.Context, dev Device, profiles []Profile) (Stream, Profile, *CaptureError) {
	if !dev.Secure() {
		return nil, Profile{}, NewUnsupportedContext()
	}

	var lastErr error
	for _, p := range profiles {
		stream, err := dev.Open(ctx, p.Constraints)
		if err == nil {
			return stream, p, nil
		}
		if errors.Is(err, ErrPermission) {
			return nil, Profile{}, NewPermissionDenied(err)
		}
		log.Printf("camera profile %s failed: %v", p.Name, err)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, Profile{}, classifyExhausted(lastErr)
}

func classifyExhausted(err error) *CaptureError {
	switch {
	case err == nil:
		return NewNoDevice(nil)
	case errors.Is(err, ErrBusy):
		return NewDeviceBusy(err)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOverconstrained):
		return NewNoDevice(err)
	default:
		return NewUnknown(err)
	}
}
