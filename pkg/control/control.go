// Package control implements the daemon's local HTTP control surface
// (§4.I): calibration status/data/start, a debug per-signal override
// endpoint, and — beyond the distilled contract — liveness and Prometheus
// metrics endpoints in the style of 99souls-ariadne's plain net/http
// monitoring handlers.
package control

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/facetrackd/facetrackd/pkg/calibstore"
	"github.com/facetrackd/facetrackd/pkg/orchestrator"
	"github.com/facetrackd/facetrackd/pkg/pipeline"
)

const defaultCalibrationDuration = 10 * time.Second

// Server is the HTTP control surface. It holds no state of its own beyond
// the Prometheus registry: every endpoint reads live state off the
// Orchestrator and its pipeline on each request.
type Server struct {
	logger *slog.Logger
	orch   *orchestrator.Orchestrator
	store  *calibstore.Store
	http   *http.Server
	reg    *prometheus.Registry
}

// New builds a Server bound to orch, listening on addr once Start is
// called. store may be nil, in which case /calibration/data reports an
// empty list.
func New(addr string, orch *orchestrator.Orchestrator, store *calibstore.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{logger: logger, orch: orch, store: store, reg: prometheus.NewRegistry()}

	s.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "facetrackd_frames_processed_total", Help: "Consumer ticks processed since start."},
		func() float64 { return float64(orch.FrameCount()) },
	))
	s.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "facetrackd_registry_parameters_relevant", Help: "Parameters currently resolving to at least one wire address."},
		func() float64 {
			if orch.Registry() == nil {
				return 0
			}
			relevant, _ := orch.Registry().Stats()
			return float64(relevant)
		},
	))
	s.reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: "facetrackd_registry_parameters_total", Help: "Total declared parameters."},
		func() float64 {
			if orch.Registry() == nil {
				return 0
			}
			_, total := orch.Registry().Stats()
			return float64(total)
		},
	))

	mux := http.NewServeMux()
	mux.HandleFunc("/calibration/status", s.handleCalibrationStatus)
	mux.HandleFunc("/calibration/data", s.handleCalibrationData)
	mux.HandleFunc("/calibration/start", s.handleCalibrationStart)
	mux.HandleFunc("/debug/params", s.handleDebugParams)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in a background goroutine. Listen errors other than
// a clean shutdown are logged.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server stopped", "error", err)
		}
	}()
}

// Stop closes the server immediately via http.Server.Close: listeners and
// open connections are closed without waiting for in-flight requests.
func (s *Server) Stop() error {
	return s.http.Close()
}

func (s *Server) calibration() *pipeline.Calibration {
	if s.orch == nil || s.orch.Pipeline() == nil {
		return nil
	}
	for _, step := range s.orch.Pipeline().Steps() {
		if c, ok := step.(*pipeline.Calibration); ok {
			return c
		}
	}
	return nil
}

type calibrationStatusResponse struct {
	Calibrating bool    `json:"calibrating"`
	Elapsed     float64 `json:"elapsed"`
	Duration    float64 `json:"duration"`
	Progress    float64 `json:"progress"`
}

func (s *Server) handleCalibrationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := s.calibration()
	if c == nil {
		writeJSON(w, http.StatusOK, calibrationStatusResponse{})
		return
	}
	calibrating, elapsed, duration, progress := c.Status()
	writeJSON(w, http.StatusOK, calibrationStatusResponse{
		Calibrating: calibrating,
		Elapsed:     elapsed,
		Duration:    duration,
		Progress:    progress,
	})
}

type calibrationParameter struct {
	Name          string  `json:"name"`
	Progress      float64 `json:"progress"`
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Confidence    float64 `json:"confidence"`
	MaxConfidence float64 `json:"max_confidence"`
	Max           float64 `json:"max"`
}

func (s *Server) handleCalibrationData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.store == nil {
		writeJSON(w, http.StatusOK, []calibrationParameter{})
		return
	}

	params := s.store.Parameters()
	out := make([]calibrationParameter, len(params))
	for i, p := range params {
		out[i] = calibrationParameter{
			Name:          p.Name,
			Progress:      p.Progress(),
			Mean:          p.Mean,
			StdDev:        p.StdDev,
			Confidence:    p.Confidence,
			MaxConfidence: p.MaxConfidence,
			Max:           p.Max,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type calibrationStartRequest struct {
	Duration float64 `json:"duration"`
}

func (s *Server) handleCalibrationStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	c := s.calibration()
	if c == nil {
		http.Error(w, "calibration not available", http.StatusServiceUnavailable)
		return
	}

	if calibrating, _, _, _ := c.Status(); calibrating {
		writeJSON(w, http.StatusConflict, map[string]string{"status": "already_calibrating"})
		return
	}

	var req calibrationStartRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	duration := defaultCalibrationDuration.Seconds()
	if req.Duration > 0 {
		duration = req.Duration
	}

	c.RequestCollecting(duration)
	writeJSON(w, http.StatusOK, map[string]string{"status": "collecting"})
}

func (s *Server) handleDebugParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.orch == nil {
		http.Error(w, "orchestrator not available", http.StatusServiceUnavailable)
		return
	}

	var overrides map[string]float64
	if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.orch.SetDebugOverrides(overrides)
	writeJSON(w, http.StatusOK, map[string]int{"applied": len(overrides)})
}

type healthzResponse struct {
	Running     bool      `json:"running"`
	LastTick    time.Time `json:"last_tick"`
	FrameCount  uint64    `json:"frame_count"`
	Calibrating bool      `json:"calibrating"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := healthzResponse{}
	if s.orch != nil {
		resp.Running = s.orch.IsRunning()
		resp.LastTick = s.orch.LastTick()
		resp.FrameCount = s.orch.FrameCount()
	}
	if c := s.calibration(); c != nil {
		resp.Calibrating, _, _, _ = c.Status()
	}

	status := http.StatusOK
	if !resp.Running {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
