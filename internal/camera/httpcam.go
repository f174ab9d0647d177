package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

var errCameraStatus = errors.New("unexpected camera response")

// HTTPDevice is a camera exposing a JPEG or PNG snapshot URL, such as an IP
// camera or a USB capture gateway.
type HTTPDevice struct {
	SnapshotURL   string
	HTTP          *http.Client
	PollInterval  time.Duration
	AllowInsecure bool
}

// NewHTTPDevice creates a device polling snapshotURL.
func NewHTTPDevice(snapshotURL string, pollInterval time.Duration, allowInsecure bool) *HTTPDevice {
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	return &HTTPDevice{
		SnapshotURL:   snapshotURL,
		PollInterval:  pollInterval,
		AllowInsecure: allowInsecure,
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Secure reports whether frames travel over HTTPS or stay on the loopback
// interface. An unconfigured device transmits nothing and counts as secure so
// that Open can report it as missing.
func (d *HTTPDevice) Secure() bool {
	if d.AllowInsecure || d.SnapshotURL == "" {
		return true
	}
	u, err := url.Parse(d.SnapshotURL)
	if err != nil {
		return false
	}
	if u.Scheme == "https" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// Open fetches one frame with the requested constraints and starts polling.
func (d *HTTPDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if d.SnapshotURL == "" {
		return nil, fmt.Errorf("camera url not configured: %w", ErrNotFound)
	}
	u, err := d.snapshotURL(c)
	if err != nil {
		return nil, err
	}
	frame, err := d.fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return newHTTPStream(d, u, frame), nil
}

func (d *HTTPDevice) snapshotURL(c Constraints) (string, error) {
	u, err := url.Parse(d.SnapshotURL)
	if err != nil {
		return "", fmt.Errorf("invalid camera url: %w", err)
	}
	q := u.Query()
	if c.Facing != FacingAny {
		q.Set("facing", string(c.Facing))
	}
	if c.Width > 0 {
		q.Set("width", strconv.Itoa(c.Width))
	}
	if c.Height > 0 {
		q.Set("height", strconv.Itoa(c.Height))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *HTTPDevice) fetch(ctx context.Context, u string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("camera request failed: %v: %w", err, ErrNotFound)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("camera error %s: %s: %w", resp.Status, strings.TrimSpace(string(body)), statusError(resp.StatusCode))
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode camera frame: %w", err)
	}
	return img, nil
}

func statusError(code int) error {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict, http.StatusLocked, http.StatusServiceUnavailable:
		return ErrBusy
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrOverconstrained
	default:
		return errCameraStatus
	}
}

// httpStream keeps the most recent snapshot. Frames older than staleAfter
// are not served.
type httpStream struct {
	dev        *HTTPDevice
	url        string
	staleAfter time.Duration

	mu      sync.RWMutex
	frame   image.Image
	frameAt time.Time
	closed  bool

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func newHTTPStream(d *HTTPDevice, u string, first image.Image) *httpStream {
	ctx, cancel := context.WithCancel(context.Background())
	stale := 10 * d.PollInterval
	if stale < 5*time.Second {
		stale = 5 * time.Second
	}
	s := &httpStream{
		dev:        d,
		url:        u,
		staleAfter: stale,
		frame:      first,
		frameAt:    time.Now(),
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	go s.poll(ctx)
	return s
}

func (s *httpStream) poll(ctx context.Context) {
	defer close(s.done)
	interval := s.dev.PollInterval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := s.dev.fetch(ctx, s.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			if failures == 1 || failures%50 == 0 {
				log.Printf("camera poll failed (%d in a row): %v", failures, err)
			}
			continue
		}
		failures = 0

		s.mu.Lock()
		s.frame = frame
		s.frameAt = time.Now()
		s.mu.Unlock()
	}
}

func (s *httpStream) Latest() (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed || s.frame == nil {
		return nil, false
	}
	if time.Since(s.frameAt) > s.staleAfter {
		return nil, false
	}
	return s.frame, true
}

func (s *httpStream) Close() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.frame = nil
		s.mu.Unlock()
		s.cancel()
		<-s.done
	})
	return nil
}
