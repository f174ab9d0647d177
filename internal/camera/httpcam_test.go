package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.White)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHTTPDevice_Secure(t *testing.T) {
	tests := []struct {
		url      string
		insecure bool
		want     bool
	}{
		{"https://camera.example.com/snapshot.jpg", false, true},
		{"http://127.0.0.1:8554/snapshot", false, true},
		{"http://[::1]/snapshot", false, true},
		{"http://localhost/snapshot", false, true},
		{"http://192.168.1.20/snapshot", false, false},
		{"http://192.168.1.20/snapshot", true, true},
		{"://bad", false, false},
		{"", false, true},
	}
	for _, tt := range tests {
		dev := NewHTTPDevice(tt.url, 0, tt.insecure)
		assert.Equal(t, tt.want, dev.Secure(), tt.url)
	}
}

func TestHTTPDevice_OpenSendsConstraints(t *testing.T) {
	frame := pngFrame(t, 32, 24)
	var lastQuery atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(frame)
	}))
	defer srv.Close()

	dev := NewHTTPDevice(srv.URL+"/snapshot?channel=1", time.Hour, false)
	stream, err := dev.Open(context.Background(), Constraints{Facing: FacingUser, Width: 1280, Height: 720})
	require.NoError(t, err)
	defer stream.Close()

	q, err := url.ParseQuery(lastQuery.Load().(string))
	require.NoError(t, err)
	assert.Equal(t, "1", q.Get("channel"))
	assert.Equal(t, "user", q.Get("facing"))
	assert.Equal(t, "1280", q.Get("width"))
	assert.Equal(t, "720", q.Get("height"))

	img, ok := stream.Latest()
	require.True(t, ok)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestHTTPDevice_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrPermission},
		{http.StatusForbidden, ErrPermission},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrBusy},
		{http.StatusServiceUnavailable, ErrBusy},
		{http.StatusUnprocessableEntity, ErrOverconstrained},
		{http.StatusBadRequest, ErrOverconstrained},
		{http.StatusInternalServerError, errCameraStatus},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))
		dev := NewHTTPDevice(srv.URL, time.Hour, false)
		_, err := dev.Open(context.Background(), Constraints{})
		assert.True(t, errors.Is(err, tt.want), "status %d: %v", tt.status, err)
		srv.Close()
	}
}

func TestHTTPDevice_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	dev := NewHTTPDevice(addr, time.Hour, false)
	_, err := dev.Open(context.Background(), Constraints{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPDevice_UndecodableFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	dev := NewHTTPDevice(srv.URL, time.Hour, false)
	_, err := dev.Open(context.Background(), Constraints{})
	require.Error(t, err)
	assert.Equal(t, KindUnknown, classifyExhausted(err).Kind)
}

func TestHTTPStream_PollsAndCloses(t *testing.T) {
	small := pngFrame(t, 8, 8)
	large := pngFrame(t, 16, 16)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = w.Write(small)
			return
		}
		_, _ = w.Write(large)
	}))
	defer srv.Close()

	dev := NewHTTPDevice(srv.URL, 10*time.Millisecond, false)
	stream, err := dev.Open(context.Background(), Constraints{})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		img, ok := stream.Latest()
		return ok && img.Bounds().Dx() == 16
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	_, ok := stream.Latest()
	assert.False(t, ok)

	n := hits.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, n, hits.Load(), "poller kept running after close")
}

func TestSession_HTTPDeviceFallsBackWhenResolutionRejected(t *testing.T) {
	frame := pngFrame(t, 20, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("width") != "" {
			http.Error(w, "resolution not supported", http.StatusUnprocessableEntity)
			return
		}
		_, _ = w.Write(frame)
	}))
	defer srv.Close()

	s := NewSession(NewHTTPDevice(srv.URL, time.Hour, false))
	defer s.Close()

	s.SetActive(true)
	s.Wait()

	st := s.Status()
	assert.Equal(t, PhaseActive, st.Phase)
	assert.Equal(t, "front", st.Profile)
	still := s.Capture()
	require.NotNil(t, still)
	assert.Equal(t, 20, still.Width)
}

func TestSession_UnconfiguredHTTPDeviceReportsNoDevice(t *testing.T) {
	s := NewSession(NewHTTPDevice("", 0, false))
	defer s.Close()

	s.SetActive(true)
	s.Wait()

	st := s.Status()
	assert.Equal(t, PhaseFailed, st.Phase)
	require.NotNil(t, st.Err)
	assert.Equal(t, KindNoDevice, st.Err.Kind)
	assert.ErrorIs(t, st.Err, ErrNotFound)
	assert.Nil(t, s.Capture())
}
