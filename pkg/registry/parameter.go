package registry

import (
	"strings"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// WireMessage is one resolved OSC message ready for a transport backend to
// bundle and send.
type WireMessage struct {
	Address string
	Value   any // float64, bool, int32, or []float64 for a multi-argument native message
}

// FloatDeltaEpsilon is the delta-suppression threshold for Float
// parameters (§4.E): a value within this of the last sent value is not
// retransmitted.
const FloatDeltaEpsilon = 1e-5

// Parameter is one declarative entry in the registry: a name plus a
// closure from the canonical frame to a value, able to re-resolve its
// wire addresses against a new discovery snapshot and to produce the
// messages due for the current frame.
type Parameter interface {
	// Reset re-resolves addresses against snapshot, returns the number of
	// relevant addresses (0 if the parameter is now irrelevant).
	Reset(snapshot *Snapshot) int
	// Process returns the wire messages due this tick for frame.
	Process(frame *canonical.Frame) []WireMessage
	// Relevant reports whether Reset found at least one compatible address.
	Relevant() bool
}

func appendFTFallback(addresses []string, prefix, name string) []string {
	hasFT := false
	for _, a := range addresses {
		if strings.Contains(a, "FT/") {
			hasFT = true
			break
		}
	}
	if !hasFT {
		addresses = append(addresses, prefix+"FT/"+name)
	}
	return addresses
}

// FloatParam resolves a float-valued canonical signal.
type FloatParam struct {
	Name       string
	Get        func(*canonical.Frame) float64
	SendOnLoad bool

	addresses        []string
	relevant         bool
	lastValue        float64
	hasLastValue     bool
	needsInitialSend bool
}

// NewFloatParam returns a float parameter.
func NewFloatParam(name string, get func(*canonical.Frame) float64) *FloatParam {
	return &FloatParam{Name: name, Get: get}
}

// NewFloatParamSendOnLoad returns a float parameter that forces a send
// immediately after its first successful reset.
func NewFloatParamSendOnLoad(name string, get func(*canonical.Frame) float64) *FloatParam {
	return &FloatParam{Name: name, Get: get, SendOnLoad: true}
}

func (p *FloatParam) Reset(snapshot *Snapshot) int {
	p.hasLastValue = false
	p.needsInitialSend = false

	matches := snapshot.addressesFor(p.Name, Float)
	if len(matches) == 0 {
		p.relevant = false
		p.addresses = nil
		return 0
	}

	p.addresses = appendFTFallback(matches, DefaultPrefix, p.Name)
	p.relevant = true
	if p.SendOnLoad {
		p.needsInitialSend = true
	}
	return len(p.addresses)
}

func (p *FloatParam) Relevant() bool { return p.relevant }

func (p *FloatParam) Process(frame *canonical.Frame) []WireMessage {
	if !p.relevant {
		return nil
	}
	value := p.Get(frame)

	if p.needsInitialSend {
		p.needsInitialSend = false
		p.lastValue = value
		p.hasLastValue = true
		return messagesFor(p.addresses, value)
	}

	if p.hasLastValue && absFloat(value-p.lastValue) < FloatDeltaEpsilon {
		return nil
	}
	p.lastValue = value
	p.hasLastValue = true
	return messagesFor(p.addresses, value)
}

func messagesFor(addresses []string, value float64) []WireMessage {
	out := make([]WireMessage, len(addresses))
	for i, a := range addresses {
		out[i] = WireMessage{Address: a, Value: value}
	}
	return out
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// BoolParam resolves a bool-valued canonical signal.
type BoolParam struct {
	Name       string
	Get        func(*canonical.Frame) bool
	SendOnLoad bool

	addresses        []string
	relevant         bool
	lastValue        bool
	hasLastValue     bool
	needsInitialSend bool
}

// NewBoolParam returns a bool parameter.
func NewBoolParam(name string, get func(*canonical.Frame) bool) *BoolParam {
	return &BoolParam{Name: name, Get: get}
}

func (p *BoolParam) Reset(snapshot *Snapshot) int {
	p.hasLastValue = false
	p.needsInitialSend = false

	matches := snapshot.addressesFor(p.Name, Bool)
	if len(matches) == 0 {
		p.relevant = false
		p.addresses = nil
		return 0
	}
	p.addresses = appendFTFallback(matches, DefaultPrefix, p.Name)
	p.relevant = true
	if p.SendOnLoad {
		p.needsInitialSend = true
	}
	return len(p.addresses)
}

func (p *BoolParam) Relevant() bool { return p.relevant }

func (p *BoolParam) Process(frame *canonical.Frame) []WireMessage {
	if !p.relevant {
		return nil
	}
	value := p.Get(frame)

	if p.needsInitialSend {
		p.needsInitialSend = false
		p.lastValue = value
		p.hasLastValue = true
		return boolMessagesFor(p.addresses, value)
	}

	if p.hasLastValue && value == p.lastValue {
		return nil
	}
	p.lastValue = value
	p.hasLastValue = true
	return boolMessagesFor(p.addresses, value)
}

func boolMessagesFor(addresses []string, value bool) []WireMessage {
	out := make([]WireMessage, len(addresses))
	for i, a := range addresses {
		out[i] = WireMessage{Address: a, Value: value}
	}
	return out
}

// IntParam resolves an int-valued canonical signal.
type IntParam struct {
	Name       string
	Get        func(*canonical.Frame) int32
	SendOnLoad bool

	addresses        []string
	relevant         bool
	lastValue        int32
	hasLastValue     bool
	needsInitialSend bool
}

// NewIntParam returns an int parameter.
func NewIntParam(name string, get func(*canonical.Frame) int32) *IntParam {
	return &IntParam{Name: name, Get: get}
}

func (p *IntParam) Reset(snapshot *Snapshot) int {
	p.hasLastValue = false
	p.needsInitialSend = false

	matches := snapshot.addressesFor(p.Name, Int)
	if len(matches) == 0 {
		p.relevant = false
		p.addresses = nil
		return 0
	}
	p.addresses = appendFTFallback(matches, DefaultPrefix, p.Name)
	p.relevant = true
	if p.SendOnLoad {
		p.needsInitialSend = true
	}
	return len(p.addresses)
}

func (p *IntParam) Relevant() bool { return p.relevant }

func (p *IntParam) Process(frame *canonical.Frame) []WireMessage {
	if !p.relevant {
		return nil
	}
	value := p.Get(frame)

	if p.needsInitialSend {
		p.needsInitialSend = false
		p.lastValue = value
		p.hasLastValue = true
		return intMessagesFor(p.addresses, value)
	}

	if p.hasLastValue && value == p.lastValue {
		return nil
	}
	p.lastValue = value
	p.hasLastValue = true
	return intMessagesFor(p.addresses, value)
}

func intMessagesFor(addresses []string, value int32) []WireMessage {
	out := make([]WireMessage, len(addresses))
	for i, a := range addresses {
		out[i] = WireMessage{Address: a, Value: value}
	}
	return out
}
