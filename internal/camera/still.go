package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"
)

// DefaultQuality is the JPEG quality used for still images.
const DefaultQuality = 80

// StillImage is one encoded frame. It is never modified after creation.
type StillImage struct {
	Data       []byte
	MIMEType   string
	Width      int
	Height     int
	CapturedAt time.Time
}

func encodeStill(frame image.Image, quality int, at time.Time) (*StillImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	b := frame.Bounds()
	return &StillImage{
		Data:       buf.Bytes(),
		MIMEType:   "image/jpeg",
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: at,
	}, nil
}
