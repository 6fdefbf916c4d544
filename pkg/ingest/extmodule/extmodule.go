// Package extmodule implements the external-module-host IPC adapter (§6):
// a fixed-layout packed record shared between this process and an
// out-of-process tracking host, used when module.runtime == "external".
// Like nettrack, decoding is a checked, length-validated parser rather than
// an unsafe struct cast.
package extmodule

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

// Field offsets into the packed record, per §6's layout. f32 fields are
// little-endian IEEE-754; heartbeats are little-endian u64.
const (
	offLeftGaze      = 0
	offLeftPupilMM   = 12
	offLeftOpenness  = 16
	offRightGaze     = 20
	offRightPupilMM  = 32
	offRightOpenness = 36
	offMaxDilation   = 40
	offMinDilation   = 44
	offLeftDiameter  = 48
	offRightDiameter = 52
	offHeadYaw       = 56
	offHeadPitch     = 60
	offHeadRoll      = 64
	offHeadPos       = 68
	offShapes        = 80
	shapeSlotCount   = 200
	offMainHeartbeat = offShapes + shapeSlotCount*4 // 880
	offRuntimeHeartbeat = offMainHeartbeat + 8      // 888

	RecordSize = offRuntimeHeartbeat + 8 // 896 bytes

	heartbeatStaleTimeout = 5 * time.Second
	waitTimeout           = 50 * time.Millisecond
)

// ErrRuntimeStale reports that the host's runtime_heartbeat has not
// advanced within heartbeatStaleTimeout: a recoverable peer loss per §7,
// the caller should kill and respawn the host process.
var ErrRuntimeStale = errors.New("extmodule: runtime heartbeat stale, host presumed dead")

// Mapping is the minimal shared-memory surface this adapter needs: the
// live packed record bytes, and a way to wait for the host's
// frame-ready signal. The concrete named-shared-memory-plus-event-handle
// mechanism is platform/vendor specific and out of scope per §1; a
// Mapping implementation owns that handshake.
type Mapping interface {
	WaitForFrame(timeout time.Duration) (ready bool, err error)
	Bytes() []byte
	Close() error
}

// Source adapts a Mapping into the canonical frame.
type Source struct {
	logger               *slog.Logger
	mapping              Mapping
	lastRuntimeHeartbeat uint64
	lastHeartbeatChange  time.Time
	haveHeartbeat        bool
}

// New builds a Source over an already-opened Mapping.
func New(mapping Mapping) *Source {
	return &Source{mapping: mapping}
}

func (s *Source) Initialize(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	s.lastHeartbeatChange = time.Now()
	return nil
}

func (s *Source) Update(frame *canonical.Frame) (bool, error) {
	if s.mapping == nil {
		return false, nil
	}

	ready, err := s.mapping.WaitForFrame(waitTimeout)
	if err != nil {
		return false, err
	}
	if !ready {
		return false, nil
	}

	record := s.mapping.Bytes()
	if len(record) < RecordSize {
		return false, fmt.Errorf("extmodule: record too short: %d bytes, want %d", len(record), RecordSize)
	}

	runtimeHB := binary.LittleEndian.Uint64(record[offRuntimeHeartbeat:])
	now := time.Now()
	if !s.haveHeartbeat || runtimeHB != s.lastRuntimeHeartbeat {
		s.lastRuntimeHeartbeat = runtimeHB
		s.lastHeartbeatChange = now
		s.haveHeartbeat = true
	} else if now.Sub(s.lastHeartbeatChange) > heartbeatStaleTimeout {
		return false, ErrRuntimeStale
	}

	frame.EyeConvention = canonical.GazeVector
	frame.Left.Gaze = readVec3(record, offLeftGaze)
	frame.Left.PupilDiameterMM = readF32(record, offLeftPupilMM)
	frame.Left.Openness = readF32(record, offLeftOpenness)
	frame.Right.Gaze = readVec3(record, offRightGaze)
	frame.Right.PupilDiameterMM = readF32(record, offRightPupilMM)
	frame.Right.Openness = readF32(record, offRightOpenness)
	frame.Left.MaxDilation = readF32(record, offMaxDilation)
	frame.Left.MinDilation = readF32(record, offMinDilation)
	frame.Right.MaxDilation = readF32(record, offMaxDilation)
	frame.Right.MinDilation = readF32(record, offMinDilation)
	frame.Head.Yaw = readF32(record, offHeadYaw)
	frame.Head.Pitch = readF32(record, offHeadPitch)
	frame.Head.Roll = readF32(record, offHeadRoll)
	frame.Head.Position = readVec3(record, offHeadPos)

	for signal := expression.Signal(0); int(signal) < expression.Count && int(signal) < shapeSlotCount; signal++ {
		frame.SetShape(signal, float64(readF32(record, offShapes+int(signal)*4)))
	}

	incrementMainHeartbeat(record)
	return true, nil
}

func (s *Source) Unload() error {
	if s.mapping == nil {
		return nil
	}
	return s.mapping.Close()
}

func readF32(record []byte, offset int) float64 {
	bits := binary.LittleEndian.Uint32(record[offset:])
	return float64(math.Float32frombits(bits))
}

func readVec3(record []byte, offset int) canonical.Vec3 {
	return canonical.Vec3{
		X: readF32(record, offset),
		Y: readF32(record, offset+4),
		Z: readF32(record, offset+8),
	}
}

func incrementMainHeartbeat(record []byte) {
	current := binary.LittleEndian.Uint64(record[offMainHeartbeat:])
	binary.LittleEndian.PutUint64(record[offMainHeartbeat:], current+1)
}
