// Package scan runs identification cycles: capture a still, identify it
// against the employee gallery and record a check-in on a match.
package scan

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"kiosk/internal/attendance"
	"kiosk/internal/camera"
	"kiosk/internal/queue"
	"kiosk/internal/recognition"
)

// ErrBusy is returned by RunScan while another scan is in flight.
var ErrBusy = errors.New("scan already in progress")

// DefaultGalleryLimit bounds the references sent per identification.
const DefaultGalleryLimit = 10

// Phase is the orchestrator's progress through one cycle.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCapturing   Phase = "capturing"
	PhaseIdentifying Phase = "identifying"
	PhaseDone        Phase = "done"
)

// Capturer produces the still image to identify.
type Capturer interface {
	Capture() *camera.StillImage
}

// Ledger provides the gallery and records check-ins.
type Ledger interface {
	Gallery(ctx context.Context, limit int) ([]recognition.Reference, error)
	RecordCheckIn(ctx context.Context, o recognition.Outcome) (attendance.Event, error)
}

// Publisher announces recorded events.
type Publisher interface {
	Publish(ctx context.Context, msg queue.Message) error
}

// Recorder receives scan metrics.
type Recorder interface {
	ScanResult(kind string)
	ScanRejected()
	ObserveRecognition(d time.Duration)
}

// Orchestrator runs at most one scan at a time.
type Orchestrator struct {
	capturer   Capturer
	recognizer recognition.Recognizer
	ledger     Ledger

	galleryLimit int
	publisher    Publisher
	recorder     Recorder

	busy  atomic.Bool
	mu    sync.Mutex
	phase Phase
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithGalleryLimit sets how many recent employees are sent per scan.
func WithGalleryLimit(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.galleryLimit = n
		}
	}
}

// WithPublisher announces every recorded check-in.
func WithPublisher(p Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithRecorder reports scan metrics.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator wires a capturer, recognizer and ledger.
func NewOrchestrator(c Capturer, r recognition.Recognizer, l Ledger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		capturer:     c,
		recognizer:   r,
		ledger:       l,
		galleryLimit: DefaultGalleryLimit,
		phase:        PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Busy reports whether a scan is in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Phase returns the current or last reached phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// RunScan performs one identification cycle. It returns ErrBusy without
// touching any state when a scan is already running; otherwise every
// outcome, including failures, is reported through the Result.
func (o *Orchestrator) RunScan(ctx context.Context) (Result, error) {
	if !o.busy.CompareAndSwap(false, true) {
		if o.recorder != nil {
			o.recorder.ScanRejected()
		}
		return Result{}, ErrBusy
	}
	defer o.busy.Store(false)

	res := o.run(ctx)
	o.setPhase(PhaseDone)
	if o.recorder != nil {
		o.recorder.ScanResult(string(res.Kind))
	}
	log.Printf("scan finished kind=%s", res.Kind)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context) Result {
	o.setPhase(PhaseCapturing)

	gallery, err := o.ledger.Gallery(ctx, o.galleryLimit)
	if err != nil {
		log.Printf("scan gallery load failed: %v", err)
		return failure(KindStoreFailure)
	}
	if len(gallery) == 0 {
		return failure(KindEmptyGallery)
	}

	still := o.capturer.Capture()
	if still == nil {
		return failure(KindCaptureUnavailable)
	}

	o.setPhase(PhaseIdentifying)
	start := time.Now()
	outcome, err := o.recognizer.Identify(ctx, recognition.Image{Data: still.Data, MIMEType: still.MIMEType}, gallery)
	if o.recorder != nil {
		o.recorder.ObserveRecognition(time.Since(start))
	}
	if err != nil {
		log.Printf("scan identify failed recognizer=%s: %v", o.recognizer.Name(), err)
		return failure(classify(err))
	}

	if !outcome.Matched {
		res := failure(KindNoMatch)
		res.Outcome = &outcome
		return res
	}
	if outcome.EmployeeID == "" || outcome.EmployeeName == "" || !inGallery(gallery, outcome.EmployeeID) {
		log.Printf("scan match rejected employee=%q not in gallery", outcome.EmployeeID)
		return failure(KindMalformedResponse)
	}

	evt, err := o.ledger.RecordCheckIn(ctx, outcome)
	if err != nil {
		log.Printf("scan record failed employee=%s: %v", outcome.EmployeeID, err)
		res := failure(KindStoreFailure)
		res.Outcome = &outcome
		return res
	}
	o.publish(ctx, evt)

	return Result{
		Success: true,
		Kind:    KindMatched,
		Message: "Welcome, " + outcome.EmployeeName + "!",
		Outcome: &outcome,
		Event:   &evt,
	}
}

func (o *Orchestrator) publish(ctx context.Context, evt attendance.Event) {
	if o.publisher == nil {
		return
	}
	msg, err := queue.AttendanceRecorded(evt)
	if err != nil {
		log.Printf("encode attendance notification failed: %v", err)
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := o.publisher.Publish(pubCtx, msg); err != nil {
		log.Printf("publish attendance event %s failed: %v", evt.ID, err)
	}
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

func inGallery(gallery []recognition.Reference, id string) bool {
	for _, ref := range gallery {
		if ref.EmployeeID == id {
			return true
		}
	}
	return false
}
