package nettrack

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/facetrackd/facetrackd/pkg/canonical"
	"github.com/facetrackd/facetrackd/pkg/expression"
)

func TestDecodeV1RoundTrip(t *testing.T) {
	packet := make([]byte, namePaddingV1+8)
	binary.LittleEndian.PutUint32(packet[namePaddingV1:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(packet[namePaddingV1+4:], math.Float32bits(0.75))

	weights, err := decodeV1(packet)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(weights) != 2 || weights[0] != float64(float32(0.25)) || weights[1] != float64(float32(0.75)) {
		t.Errorf("unexpected weights: %v", weights)
	}
}

func TestDecodeV1TruncatedIsError(t *testing.T) {
	if _, err := decodeV1([]byte{1, 2}); err == nil {
		t.Fatal("expected error for packet shorter than name padding")
	}
}

func TestDecodeV6RoundTrip(t *testing.T) {
	name := "x"
	packet := make([]byte, 0, 2+len(name)+frameTimeHeaderV6+1+blendShapeCountV6*4)
	lenBuf := make([]byte, 2)
	binary.BigEndian.PutUint16(lenBuf, uint16(len(name)))
	packet = append(packet, lenBuf...)
	packet = append(packet, name...)
	packet = append(packet, make([]byte, frameTimeHeaderV6)...)
	packet = append(packet, byte(blendShapeCountV6))
	for i := 0; i < blendShapeCountV6; i++ {
		var f [4]byte
		binary.BigEndian.PutUint32(f[:], math.Float32bits(float32(i)/100))
		packet = append(packet, f[:]...)
	}

	weights, err := decodeV6(packet)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(weights) != blendShapeCountV6 {
		t.Fatalf("expected %d weights, got %d", blendShapeCountV6, len(weights))
	}
	if weights[5] != float64(float32(5)/100) {
		t.Errorf("unexpected weight[5]: %v", weights[5])
	}
}

func TestDecodeV6WrongBlendCountIsError(t *testing.T) {
	packet := []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, byte(5)}
	if _, err := decodeV6(packet); err == nil {
		t.Fatal("expected error for mismatched blend shape count")
	}
}

func TestDecodeV6TruncatedIsError(t *testing.T) {
	if _, err := decodeV6([]byte{0, 1, 'a'}); err == nil {
		t.Fatal("expected error for packet too short for header")
	}
}

func TestDecodeVersionedDispatchesOnLeadingByte(t *testing.T) {
	v1Body := make([]byte, namePaddingV1+4)
	binary.LittleEndian.PutUint32(v1Body[namePaddingV1:], math.Float32bits(0.5))
	packet := append([]byte{versionV1}, v1Body...)

	weights, err := decodeVersioned(packet)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(weights) != 1 || weights[0] != float64(float32(0.5)) {
		t.Errorf("unexpected weights: %v", weights)
	}
}

func TestDecodeVersionedUnrecognizedVersionIsError(t *testing.T) {
	if _, err := decodeVersioned([]byte{42, 0, 0, 0}); err == nil {
		t.Fatal("expected error for unrecognized version byte")
	}
}

func TestDecodeVersionedEmptyPacketIsError(t *testing.T) {
	if _, err := decodeVersioned(nil); err == nil {
		t.Fatal("expected error for empty packet")
	}
}

func TestApplyWeightsMapsKnownIndices(t *testing.T) {
	frame := canonical.New()
	weights := make([]float64, 12)
	weights[7] = 0.9
	applyWeights(frame, weights)
	if got := frame.Shape(expression.JawOpen); got != 0.9 {
		t.Errorf("expected JawOpen shape set via mapping, got %v", got)
	}
}
