// Package nettrack implements the two-wire-version network tracking
// protocol adapter (§4.B bullet 1), grounded on
// experimental/pico_module/src/pico.rs and mapping.rs. Every packet carries
// a leading version byte: version 1 uses 5-byte name padding and
// little-endian floats; version 6 uses big-endian length-prefixed strings,
// a 16-byte frame-time header, a 1-byte blend-shape count that must equal
// blendShapeCountV6, then big-endian floats.
package nettrack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

const (
	portStandard = 29765
	portLegacy   = 29763

	namePaddingV1     = 5
	blendShapeCountV6 = 61
	frameTimeHeaderV6 = 16

	versionV1 = 1
	versionV6 = 6

	readTimeout = 50 * time.Millisecond
)

// Source listens for the proprietary UDP blend-shape protocol on the
// standard port, falling back to the legacy port if the standard one is
// unavailable. Which port it bound to is only informational (logged); the
// standard port is always tried first. The wire format of each received
// packet is determined solely by that packet's own leading version byte.
type Source struct {
	logger *slog.Logger
	conn   *net.UDPConn
	buf    [2048]byte
}

// New returns an unconnected Source. Call Initialize to bind.
func New() *Source {
	return &Source{}
}

func (s *Source) Initialize(logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger

	if conn, err := bind(portStandard); err == nil {
		s.conn = conn
		logger.Info("nettrack listening", "port", portStandard)
		return nil
	}

	conn, err := bind(portLegacy)
	if err != nil {
		return fmt.Errorf("nettrack: failed to bind standard or legacy port: %w", err)
	}
	s.conn = conn
	logger.Info("nettrack listening", "port", portLegacy)
	return nil
}

func bind(port int) (*net.UDPConn, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (s *Source) Update(frame *canonical.Frame) (bool, error) {
	if s.conn == nil {
		return false, nil
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	n, _, err := s.conn.ReadFromUDP(s.buf[:])
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return false, nil
		}
		return false, nil // transient I/O per §4.B: never propagate socket hiccups
	}

	weights, err := decodeVersioned(s.buf[:n])
	if err != nil {
		s.logger.Debug("nettrack dropped truncated packet", "error", err, "bytes", n)
		return false, nil
	}

	applyWeights(frame, weights)
	return true, nil
}

func (s *Source) Unload() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// decodeVersioned reads the leading version byte off packet and dispatches
// to the matching decoder. The port a packet arrived on carries no
// information about its format — only this byte does.
func decodeVersioned(packet []byte) ([]float64, error) {
	if len(packet) < 1 {
		return nil, errors.New("nettrack: empty packet")
	}
	version, body := packet[0], packet[1:]
	switch version {
	case versionV1:
		return decodeV1(body)
	case versionV6:
		return decodeV6(body)
	default:
		return nil, fmt.Errorf("nettrack: unrecognized wire version %d", version)
	}
}

// decodeV1 parses the legacy wire format: a fixed-width name field padded
// to namePaddingV1 bytes followed by little-endian float32 blend shapes.
func decodeV1(packet []byte) ([]float64, error) {
	if len(packet) <= namePaddingV1 {
		return nil, errors.New("nettrack v1: packet shorter than name padding")
	}
	body := packet[namePaddingV1:]
	if len(body)%4 != 0 {
		return nil, errors.New("nettrack v1: body not float32-aligned")
	}
	count := len(body) / 4
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(body[i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}

// decodeV6 parses the standard wire format: a big-endian length-prefixed
// name string, a fixed 16-byte frame-time header, a 1-byte blend-shape
// count that must equal blendShapeCountV6, then big-endian float32s.
func decodeV6(packet []byte) ([]float64, error) {
	if len(packet) < 2 {
		return nil, errors.New("nettrack v6: packet too short for name length")
	}
	nameLen := int(binary.BigEndian.Uint16(packet))
	offset := 2 + nameLen
	if offset+frameTimeHeaderV6+1 > len(packet) {
		return nil, errors.New("nettrack v6: packet too short for header")
	}
	offset += frameTimeHeaderV6

	blendCount := int(packet[offset])
	offset++
	if blendCount != blendShapeCountV6 {
		return nil, fmt.Errorf("nettrack v6: expected %d blend shapes, got %d", blendShapeCountV6, blendCount)
	}

	needed := offset + blendCount*4
	if needed > len(packet) {
		return nil, errors.New("nettrack v6: packet too short for blend shape payload")
	}

	out := make([]float64, blendCount)
	for i := 0; i < blendCount; i++ {
		bits := binary.BigEndian.Uint32(packet[offset+i*4:])
		out[i] = float64(math.Float32frombits(bits))
	}
	return out, nil
}

// blendShapeMap maps a subset of well-known blend-shape slot indices onto
// canonical signals, grounded on mapping.rs's macro-generated assignments.
var blendShapeMap = []struct {
	index  int
	signal expression.Signal
}{
	{0, expression.EyeWideLeft},
	{1, expression.EyeWideRight},
	{2, expression.EyeSquintLeft},
	{3, expression.EyeSquintRight},
	{4, expression.BrowInnerUpLeft},
	{4, expression.BrowInnerUpRight},
	{5, expression.BrowOuterUpLeft},
	{6, expression.BrowOuterUpRight},
	{7, expression.JawOpen},
	{8, expression.JawLeft},
	{9, expression.JawRight},
	{10, expression.MouthClosed},
	{11, expression.TongueOut},
}

func applyWeights(frame *canonical.Frame, weights []float64) {
	for _, m := range blendShapeMap {
		if m.index >= len(weights) {
			continue
		}
		frame.SetShape(m.signal, weights[m.index])
	}
}
