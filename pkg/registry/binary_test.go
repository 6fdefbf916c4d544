package registry

import (
	"testing"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

func binarySnapshot(name string, bits int, negative bool) *Snapshot {
	types := map[string]WireType{}
	for k := 0; k < bits; k++ {
		n := uint64(1) << uint(k)
		addr := "/avatar/parameters/" + name + itoa(n)
		types[addr] = Bool
	}
	if negative {
		types["/avatar/parameters/"+name+"Negative"] = Bool
	}
	return NewSnapshot(types)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func TestBinaryParamDiscoversBitsAsPowersOfTwo(t *testing.T) {
	p := NewBinaryParam("JawOpen", func(f *canonical.Frame) float64 { return 0 })
	snap := binarySnapshot("JawOpen", 8, true)
	n := p.Reset(snap)
	if n != 9 {
		t.Fatalf("expected 8 bits + 1 sign address = 9, got %d", n)
	}
	if !p.Relevant() {
		t.Fatal("expected relevant")
	}
}

func TestBinaryParamSaturatesAtThreshold(t *testing.T) {
	p := NewBinaryParam("JawOpen", func(f *canonical.Frame) float64 { return 1.0 })
	snap := binarySnapshot("JawOpen", 4, false)
	p.Reset(snap)

	msgs := p.Process(canonical.New())
	for _, m := range msgs {
		if set, ok := m.Value.(bool); !ok || !set {
			t.Errorf("saturated value should set every bit, got %+v", m)
		}
	}
}

func TestBinaryParamNegativeSignBit(t *testing.T) {
	p := NewBinaryParam("JawOpen", func(f *canonical.Frame) float64 { return -0.5 })
	snap := binarySnapshot("JawOpen", 4, true)
	p.Reset(snap)

	msgs := p.Process(canonical.New())
	var sawNegative bool
	for _, m := range msgs {
		if m.Address == "/avatar/parameters/JawOpenNegative" {
			sawNegative = true
			if v, _ := m.Value.(bool); !v {
				t.Error("expected negative sign bit to be true")
			}
		}
	}
	if !sawNegative {
		t.Fatal("expected a sign-bit message")
	}
}

func TestBinaryParamDeltaSuppression(t *testing.T) {
	v := 0.5
	p := NewBinaryParam("JawOpen", func(f *canonical.Frame) float64 { return v })
	snap := binarySnapshot("JawOpen", 8, false)
	p.Reset(snap)

	if msgs := p.Process(canonical.New()); len(msgs) == 0 {
		t.Fatal("expected initial send")
	}
	if msgs := p.Process(canonical.New()); msgs != nil {
		t.Errorf("unchanged encoded value should be suppressed, got %v", msgs)
	}

	v = 0.1
	if msgs := p.Process(canonical.New()); len(msgs) == 0 {
		t.Error("changed encoded value should produce messages")
	}
}

func TestBinaryParamIrrelevantWithoutBits(t *testing.T) {
	p := NewBinaryParam("JawOpen", func(f *canonical.Frame) float64 { return 0.5 })
	snap := NewSnapshot(map[string]WireType{})
	if n := p.Reset(snap); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if p.Relevant() {
		t.Fatal("expected irrelevant")
	}
}
