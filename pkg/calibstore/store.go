// Package calibstore persists and restores the calibration mutation's
// per-signal statistics to a named JSON file. It is an opaque persister: it
// does not interpret the data, only sanitises and (de)serialises it. It
// implements pipeline.CalibrationStore, and — per Design Note 9 — owns no
// reference back to the mutation that owns it.
package calibstore

import (
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/facetrackd/facetrackd/pkg/expression"
	"github.com/facetrackd/facetrackd/pkg/pipeline"
)

// Record is the persisted, non-transient view of one pipeline.Parameter.
// Ring-buffer samples are never persisted (they're marked transient in
// §4.D/§6); only the derived statistics survive a save/load round trip.
type Record struct {
	Name          string  `json:"name"`
	Progress      float64 `json:"progress"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Confidence    float64 `json:"confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	Max           float64 `json:"max"`
}

// Store is a file-backed pipeline.CalibrationStore.
type Store struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	params []*pipeline.Parameter
	dirty  bool
}

// New returns a Store with one fresh Parameter per canonical expression
// signal, named after expression.Signal.String() so persisted records stay
// meaningful even if the enumeration's numeric values ever shift.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	params := make([]*pipeline.Parameter, expression.Count)
	for i := range params {
		params[i] = pipeline.NewParameter(expression.Signal(i).String())
	}
	return &Store{path: path, logger: logger, params: params}
}

// Parameters implements pipeline.CalibrationStore.
func (s *Store) Parameters() []*pipeline.Parameter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// MarkDirty implements pipeline.CalibrationStore.
func (s *Store) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Dirty reports whether any parameter has changed since the last save.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

func sanitise(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Save writes the current statistics to the store's file as pretty-printed
// JSON, replacing any non-finite field with 0 first.
func (s *Store) Save() error {
	s.mu.Lock()
	records := make([]Record, len(s.params))
	for i, p := range s.params {
		records[i] = Record{
			Name:          p.Name,
			Progress:      sanitise(p.Progress()),
			Mean:          sanitise(p.Mean),
			StdDev:        sanitise(p.StdDev),
			Confidence:    sanitise(p.Confidence),
			MaxConfidence: sanitise(p.MaxConfidence),
			Max:           sanitise(p.Max),
		}
	}
	s.dirty = false
	s.mu.Unlock()

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

// Load reads statistics from the store's file, if present. A missing file
// is not an error: load is a best-effort restore on startup. Fields
// absent from a record default to 0, and progress/mean/etc are applied
// onto a freshly-zeroed parameter so fixed_index is re-derived from
// progress rather than persisted directly.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		sig, ok := expression.Parse(rec.Name)
		if !ok {
			s.logger.Warn("calibration file references unknown signal, ignoring", "name", rec.Name)
			continue
		}
		p := s.params[sig]
		p.Mean = rec.Mean
		p.StdDev = rec.StdDev
		p.Confidence = rec.Confidence
		p.MaxConfidence = rec.MaxConfidence
		p.Max = rec.Max
		p.SetFixedIndexFromProgress(rec.Progress)
	}
	return nil
}

// AutoSaver periodically saves a Store while calibration is enabled and
// there is data to persist, per §4.D's "every 30s" cadence.
type AutoSaver struct {
	store    *Store
	interval time.Duration
	enabled  func() bool
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewAutoSaver returns an AutoSaver that checks enabled() on each tick and
// saves store when it reports true and the store has unsaved changes.
func NewAutoSaver(store *Store, interval time.Duration, enabled func() bool, logger *slog.Logger) *AutoSaver {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &AutoSaver{store: store, interval: interval, enabled: enabled, logger: logger}
}

// Start begins the periodic save loop in a new goroutine. Stop ends it.
func (a *AutoSaver) Start() {
	a.stop = make(chan struct{})
	a.done = make(chan struct{})
	go a.run()
}

func (a *AutoSaver) run() {
	defer close(a.done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			if a.enabled() && a.store.Dirty() {
				if err := a.store.Save(); err != nil {
					a.logger.Error("auto-save failed", "error", err)
				}
			}
		}
	}
}

// Stop ends the auto-save loop and waits for it to exit.
func (a *AutoSaver) Stop() {
	if a.stop == nil {
		return
	}
	close(a.stop)
	<-a.done
}
