// Package orchestrator runs the producer/consumer pipeline that ties an
// ingestion adapter, the mutation pipeline, the parameter registry, and a
// transport backend together into the running daemon (§4.H, §5).
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/discovery"
	"github.com/facetrackd/facetrackd/pkg/expression"
	"github.com/facetrackd/facetrackd/pkg/ingest"
	"github.com/facetrackd/facetrackd/pkg/pipeline"
	"github.com/facetrackd/facetrackd/pkg/registry"
	"github.com/facetrackd/facetrackd/pkg/transport"
)

const (
	producerIdleSleep = 5 * time.Millisecond
	consumerTimeout   = 100 * time.Millisecond
)

// Errors returned by Start/Stop.
var (
	ErrAlreadyRunning = errors.New("orchestrator: already running")
	ErrNotRunning     = errors.New("orchestrator: not running")
)

// Config configures an Orchestrator's wiring. Source, Pipeline, Registry,
// and Backend are required; Browser is optional (nil disables discovery-
// driven registry rebuilds, e.g. for the GenericUdp backend).
type Config struct {
	Source   ingest.Source
	Pipeline *pipeline.Pipeline
	Registry *registry.Registry
	Backend  transport.Backend
	Browser  *discovery.Browser
	MaxFPS   int
	Logger   *slog.Logger
}

// Orchestrator owns the producer goroutine (drives the ingestion adapter),
// the consumer goroutine (runs the mutation pipeline, resolves wire
// messages, and publishes them), and — when a Browser is configured — the
// discovery-rebuild goroutine that keeps the registry in sync with the
// currently-loaded avatar.
type Orchestrator struct {
	logger   *slog.Logger
	source   ingest.Source
	pipe     *pipeline.Pipeline
	registry *registry.Registry
	backend  transport.Backend
	browser  *discovery.Browser
	maxFPS   int

	frameCh chan *canonical.Frame

	debugOverrides atomic.Pointer[map[string]float64]
	running        atomic.Bool
	frameCount     atomic.Uint64

	mu        sync.RWMutex
	lastFrame *canonical.Frame
	lastTick  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an Orchestrator from cfg. Call Start to begin running.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		logger:   logger,
		source:   cfg.Source,
		pipe:     cfg.Pipeline,
		registry: cfg.Registry,
		backend:  cfg.Backend,
		browser:  cfg.Browser,
		maxFPS:   cfg.MaxFPS,
		frameCh:  make(chan *canonical.Frame, 1),
	}
}

// Start initializes the source and launches the producer, consumer, and
// (if configured) discovery-rebuild goroutines. Returns a Configuration-
// or Fatal-kind classified error if the adapter fails to initialize.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if err := o.source.Initialize(o.logger); err != nil {
		o.running.Store(false)
		if ClassifyOf(err) == Configuration {
			return err
		}
		return Classify(Fatal, err)
	}

	o.ctx, o.cancel = context.WithCancel(ctx)
	o.lastTick = time.Now()

	o.wg.Add(2)
	go o.producerLoop()
	go o.consumerLoop()

	if o.browser != nil {
		o.browser.Start(o.ctx)
		o.wg.Add(1)
		go o.rebuildLoop()
	}

	return nil
}

// Stop signals every goroutine to exit, waits for them, and releases the
// ingestion adapter's resources.
func (o *Orchestrator) Stop() error {
	if !o.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}

	o.cancel()
	if o.browser != nil {
		o.browser.Stop()
	}
	o.wg.Wait()

	return o.source.Unload()
}

// IsRunning reports whether the orchestrator is currently active.
func (o *Orchestrator) IsRunning() bool { return o.running.Load() }

// FrameCount reports the number of consumer ticks processed so far.
func (o *Orchestrator) FrameCount() uint64 { return o.frameCount.Load() }

// LastTick reports the timestamp of the most recently processed consumer
// tick, for the control surface's liveness check.
func (o *Orchestrator) LastTick() time.Time {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastTick
}

// LastFrame returns the most recently published frame, or nil if none has
// been produced yet.
func (o *Orchestrator) LastFrame() *canonical.Frame {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.lastFrame == nil {
		return nil
	}
	return o.lastFrame.Clone()
}

// SetDebugOverrides replaces the set of per-signal weight overrides applied
// to every frame before pipeline processing (§4.I /debug/params). A nil or
// empty map clears all overrides.
func (o *Orchestrator) SetDebugOverrides(overrides map[string]float64) {
	cp := make(map[string]float64, len(overrides))
	for k, v := range overrides {
		cp[k] = v
	}
	o.debugOverrides.Store(&cp)
}

// Pipeline exposes the underlying mutation pipeline, primarily so the
// control surface can reach the calibration step for status/start
// requests without the orchestrator needing to proxy every method.
func (o *Orchestrator) Pipeline() *pipeline.Pipeline { return o.pipe }

// Registry exposes the parameter registry, for the control surface's
// /metrics relevant/total gauges.
func (o *Orchestrator) Registry() *registry.Registry { return o.registry }

func (o *Orchestrator) producerLoop() {
	defer o.wg.Done()

	frame := canonical.New()
	for {
		select {
		case <-o.ctx.Done():
			return
		default:
		}

		updated, err := o.source.Update(frame)
		if err != nil {
			o.logReconnect(err)
			if kind := ClassifyOf(err); kind == Configuration || kind == Fatal {
				return
			}
			time.Sleep(producerIdleSleep)
			continue
		}

		if !updated {
			time.Sleep(producerIdleSleep)
			continue
		}

		select {
		case o.frameCh <- frame.Clone():
		default:
			// consumer hasn't drained the previous frame; freshness wins
			// over queuing, so the stale one is simply dropped.
		}
	}
}

func (o *Orchestrator) logReconnect(err error) {
	switch ClassifyOf(err) {
	case Transient:
		// not logged, per §7
	case Recoverable:
		o.logger.Warn("ingestion adapter recoverable error", "error", err)
	case Configuration, Fatal:
		o.logger.Error("ingestion adapter unrecoverable error", "error", err)
	}
}

func (o *Orchestrator) consumerLoop() {
	defer o.wg.Done()

	period := time.Duration(0)
	if o.maxFPS > 0 {
		period = time.Second / time.Duration(o.maxFPS)
	}

	for {
		tickStart := time.Now()

		var frame *canonical.Frame
		select {
		case <-o.ctx.Done():
			return
		case frame = <-o.frameCh:
		case <-time.After(consumerTimeout):
			frame = canonical.New()
		}

		o.applyDebugOverrides(frame)

		now := time.Now()
		o.mu.Lock()
		dt := now.Sub(o.lastTick).Seconds()
		o.lastTick = now
		o.mu.Unlock()
		if dt <= 0 {
			dt = 1.0 / 60.0
		}

		if o.pipe != nil {
			o.pipe.Run(frame, dt)
		}

		o.mu.Lock()
		o.lastFrame = frame
		o.mu.Unlock()
		o.frameCount.Add(1)

		if o.registry != nil && o.backend != nil {
			messages := o.registry.Process(frame)
			if err := o.backend.Send(messages); err != nil {
				o.logger.Warn("transport send failed", "error", err)
			}
		}

		if period > 0 {
			if remaining := period - time.Since(tickStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
}

func (o *Orchestrator) applyDebugOverrides(frame *canonical.Frame) {
	overrides := o.debugOverrides.Load()
	if overrides == nil {
		return
	}
	for name, value := range *overrides {
		if sig, ok := expression.Parse(name); ok {
			frame.SetShape(sig, value)
		}
	}
}

func (o *Orchestrator) rebuildLoop() {
	defer o.wg.Done()

	for {
		select {
		case <-o.ctx.Done():
			return
		case snapshot, ok := <-o.browser.Snapshots():
			if !ok {
				return
			}
			if snapshot == nil {
				snapshot = registry.Empty()
			}
			o.registry.Rebuild(snapshot)
		}
	}
}
