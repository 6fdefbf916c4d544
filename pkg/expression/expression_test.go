package expression

import "testing"

func TestCountMatchesTable(t *testing.T) {
	if Count != len(names) {
		t.Fatalf("Count=%d but names table has %d entries", Count, len(names))
	}
	if Count != len(All()) {
		t.Fatalf("All() returned %d signals, want %d", len(All()), Count)
	}
}

func TestIndexStability(t *testing.T) {
	// The ordering is the public contract: specific well-known entries must
	// sit at specific indices. A regression here silently corrupts persisted
	// calibration state.
	cases := []struct {
		sig   Signal
		index int
		name  string
	}{
		{EyeSquintRight, 0, "EyeSquintRight"},
		{JawOpen, 22, "JawOpen"},
		{TongueOut, 72, "TongueOut"},
		{NeckFlexLeft, 87, "NeckFlexLeft"},
	}
	for _, c := range cases {
		if int(c.sig) != c.index {
			t.Errorf("%s: got index %d, want %d", c.name, int(c.sig), c.index)
		}
		if got := c.sig.String(); got != c.name {
			t.Errorf("signal %d: got name %q, want %q", c.sig, got, c.name)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, s := range All() {
		name := s.String()
		got, ok := Parse(name)
		if !ok {
			t.Fatalf("Parse(%q) failed to find signal %d", name, s)
		}
		if got != s {
			t.Errorf("Parse(%q) = %d, want %d", name, got, s)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if _, ok := Parse("NotARealSignal"); ok {
		t.Error("Parse should fail for unknown names")
	}
}

func TestInvalidSignalString(t *testing.T) {
	var s Signal = -1
	if s.String() != "invalid" {
		t.Errorf("expected 'invalid', got %q", s.String())
	}
	if s.Valid() {
		t.Error("negative signal should not be valid")
	}
	over := Signal(Count)
	if over.Valid() {
		t.Error("out-of-range signal should not be valid")
	}
}
