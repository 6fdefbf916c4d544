package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
	"github.com/facetrackd/facetrackd/pkg/registry"
)

type fakeSource struct {
	initErr   error
	updateErr error
	updates   atomic.Int32
	unloaded  atomic.Bool
}

func (f *fakeSource) Initialize(*slog.Logger) error { return f.initErr }

func (f *fakeSource) Update(frame *canonical.Frame) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	f.updates.Add(1)
	frame.Left.Openness = 0.5
	return true, nil
}

func (f *fakeSource) Unload() error {
	f.unloaded.Store(true)
	return nil
}

type fakeBackend struct {
	sends atomic.Int32
}

func (f *fakeBackend) Send(messages []registry.WireMessage) error {
	f.sends.Add(1)
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func TestOrchestratorProducesAndConsumesFrames(t *testing.T) {
	src := &fakeSource{}
	backend := &fakeBackend{}
	reg := registry.New(slog.Default())

	o := New(Config{Source: src, Registry: reg, Backend: backend})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer o.Stop()

	deadline := time.Now().Add(time.Second)
	for o.FrameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if o.FrameCount() == 0 {
		t.Fatal("expected at least one consumer tick")
	}

	frame := o.LastFrame()
	if frame == nil {
		t.Fatal("expected a last frame to be available")
	}
}

func TestOrchestratorStartTwiceErrors(t *testing.T) {
	o := New(Config{Source: &fakeSource{}, Registry: registry.New(nil)})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer o.Stop()

	if err := o.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestOrchestratorStopWithoutStartErrors(t *testing.T) {
	o := New(Config{Source: &fakeSource{}, Registry: registry.New(nil)})
	if err := o.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning, got %v", err)
	}
}

func TestOrchestratorConfigurationErrorStopsProducerWithoutRunningFlag(t *testing.T) {
	src := &fakeSource{initErr: Classify(Configuration, errors.New("bad config"))}
	o := New(Config{Source: src, Registry: registry.New(nil)})

	err := o.Start(context.Background())
	if err == nil {
		t.Fatal("expected start to fail")
	}
	if ClassifyOf(err) != Configuration {
		t.Errorf("expected Configuration kind, got %v", ClassifyOf(err))
	}
	if o.IsRunning() {
		t.Error("expected orchestrator not to be marked running after init failure")
	}
}

func TestOrchestratorConsumerSynthesizesDefaultFrameOnTimeout(t *testing.T) {
	src := &fakeSource{updateErr: errors.New("no data yet")}
	o := New(Config{Source: src, Registry: registry.New(nil)})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer o.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for o.FrameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	frame := o.LastFrame()
	if frame == nil {
		t.Fatal("expected a synthesised default frame")
	}
	if frame.Left.Openness != 1 {
		t.Errorf("expected default synthesised frame to report open eyes, got %v", frame.Left.Openness)
	}
}

func TestOrchestratorDebugOverridesApplied(t *testing.T) {
	src := &fakeSource{}
	o := New(Config{Source: src, Registry: registry.New(nil)})
	o.SetDebugOverrides(map[string]float64{"JawOpen": 0.77})
	if err := o.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer o.Stop()

	deadline := time.Now().Add(time.Second)
	for o.FrameCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	frame := o.LastFrame()
	if frame == nil {
		t.Fatal("expected a frame")
	}
	if got := frame.Shape(expression.JawOpen); got != 0.77 {
		t.Errorf("expected the JawOpen override 0.77 on the published frame, got %v", got)
	}
}
