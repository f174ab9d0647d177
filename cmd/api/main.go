package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kiosk/internal/attendance"
	"kiosk/internal/auth"
	"kiosk/internal/camera"
	"kiosk/internal/cloudinary"
	"kiosk/internal/config"
	"kiosk/internal/export"
	"kiosk/internal/handler"
	"kiosk/internal/httpmiddleware"
	"kiosk/internal/metrics"
	"kiosk/internal/queue"
	"kiosk/internal/recognition"
	"kiosk/internal/scan"
	"kiosk/internal/store"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg); err != nil {
		log.Fatalf("terminal failed: %v", err)
	}
}

type backends struct {
	store     attendance.Store
	terminals attendance.TerminalRegistry
	queue     queue.Queue
	health    map[string]handler.HealthCheck
	closers   []func() error
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			log.Printf("close failed: %v", err)
		}
	}
}

func openBackends(ctx context.Context, cfg config.App) (*backends, error) {
	b := &backends{health: map[string]handler.HealthCheck{}}

	switch cfg.StoreBackend {
	case "postgres":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		repo := attendance.NewRepository(db.Client)
		b.store, b.terminals = repo, repo
		b.health["db"] = db.Healthy
	default:
		mem := attendance.NewMemoryStore()
		b.store, b.terminals = mem, mem
		log.Println("using in-memory store; records are lost on restart")
	}

	switch cfg.QueueBackend {
	case "redis":
		rdb := store.NewRedis(cfg.RedisAddr)
		b.closers = append(b.closers, rdb.Close)
		b.queue = queue.NewRedisQueue(rdb.Client, queue.DefaultKey)
		b.health["redis"] = rdb.Healthy
	default:
		mem := queue.NewInMemory(64)
		messages, err := mem.Consume(ctx)
		if err != nil {
			b.Close()
			return nil, err
		}
		go export.Drain(messages, export.NewFileAppender(cfg.ExportPath))
		b.queue = mem
		log.Printf("in-memory queue; exporting to %s in process", cfg.ExportPath)
	}
	return b, nil
}

func newRecognizer(ctx context.Context, cfg config.App) (recognition.Recognizer, error) {
	switch cfg.Recognizer {
	case "faceservice":
		fs := recognition.NewFaceService(cfg.FaceServiceURL, cfg.FaceServiceKey, cfg.RecognitionTimeout, cfg.FaceSkip)
		if err := fs.Health(ctx); err != nil {
			log.Printf("warning: face service not available: %v", err)
		}
		return fs, nil
	default:
		g, err := recognition.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.RecognitionTimeout)
		if err != nil {
			return nil, err
		}
		if cfg.GeminiAPIKey == "" {
			log.Println("warning: GEMINI_API_KEY not set; scans will report a missing credential")
		}
		return g, nil
	}
}

func run(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var svcOpts []attendance.Option
	cdn := cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
	if cdn.Configured() {
		svcOpts = append(svcOpts, attendance.WithArchive(cdn))
		log.Printf("cloudinary configured cloud=%s", cfg.CloudinaryCloudName)
	} else {
		log.Println("cloudinary not configured; reference photos are not archived")
	}
	svc := attendance.NewService(b.store, svcOpts...)

	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		return err
	}

	device := camera.NewHTTPDevice(cfg.CameraURL, cfg.CameraPollInterval, cfg.CameraAllowInsecure)
	session := camera.NewSession(device, camera.WithObserver(camera.InOrder(func(st camera.Status) {
		m.ObserveCamera(st)
		if st.Err != nil {
			log.Printf("camera phase=%s epoch=%d error=%s: %v", st.Phase, st.Epoch, st.Err.Kind, st.Err)
			return
		}
		log.Printf("camera phase=%s epoch=%d profile=%s", st.Phase, st.Epoch, st.Profile)
	})))
	defer session.Close()
	if cfg.CameraAutostart {
		session.SetActive(true)
	}

	orch := scan.NewOrchestrator(session, recognizer, svc,
		scan.WithGalleryLimit(cfg.GalleryLimit),
		scan.WithPublisher(b.queue),
		scan.WithRecorder(m),
	)

	router := handler.New(handler.Deps{
		Camera:    session,
		Scanner:   orch,
		Roster:    svc,
		Terminals: b.terminals,
		Issuer:    auth.NewIssuer(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		EnrollKey: cfg.EnrollKey,
		Limiter:   httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Health:    b.health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RecognitionTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("starting terminal api on :%s recognizer=%s", cfg.HTTPPort, recognizer.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down server...")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced shutdown: %v", err)
	}
	log.Println("server exited")
	return nil
}
