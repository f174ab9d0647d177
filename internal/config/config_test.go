package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"APP_ENV", "GALLERY_LIMIT", "RECOGNIZER", "STORE_BACKEND", "CAMERA_POLL_INTERVAL", "QUEUE_BACKEND", "CAMERA_AUTOSTART"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, 10, cfg.GalleryLimit)
	assert.Equal(t, "gemini", cfg.Recognizer)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 200*time.Millisecond, cfg.CameraPollInterval)
	assert.True(t, cfg.CameraAutostart)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GALLERY_LIMIT", "25")
	t.Setenv("RECOGNIZER", "FaceService")
	t.Setenv("RECOGNITION_TIMEOUT", "5s")
	t.Setenv("CAMERA_ALLOW_INSECURE", "1")
	t.Setenv("FACE_SKIP", "true")

	cfg := Load()
	assert.Equal(t, 25, cfg.GalleryLimit)
	assert.Equal(t, "faceservice", cfg.Recognizer)
	assert.Equal(t, 5*time.Second, cfg.RecognitionTimeout)
	assert.True(t, cfg.CameraAllowInsecure)
	assert.True(t, cfg.FaceSkip)
}

func TestLoad_InvalidFallsBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GALLERY_LIMIT", "lots")
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("CAMERA_AUTOSTART", "maybe")

	cfg := Load()
	assert.Equal(t, 10, cfg.GalleryLimit)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.True(t, cfg.CameraAutostart)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SIGNING_KEY", "")
	t.Setenv("RATE_LIMIT_PER_MIN", "")

	err := Load().Validate()
	assert.ErrorContains(t, err, "STORE_BACKEND")
	assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
	assert.NotContains(t, err.Error(), "RATE_LIMIT_PER_MIN")
}

func TestValidate_RateLimit(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, k := range []string{"APP_ENV", "STORE_BACKEND", "QUEUE_BACKEND", "RECOGNIZER", "GALLERY_LIMIT"} {
		t.Setenv(k, "")
	}

	for _, v := range []string{"0", "-5"} {
		t.Setenv("RATE_LIMIT_PER_MIN", v)
		cfg := Load()
		err := cfg.Validate()
		assert.ErrorContains(t, err, "RATE_LIMIT_PER_MIN", v)
	}

	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	cfg := Load()
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.NoError(t, cfg.Validate())
}
