package registry

import (
	"math"
	"strconv"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// BinarySaturation is the input magnitude above which every bit of a binary
// parameter is forced to 1 (§4.E binary encoding).
const BinarySaturation = 0.99999

// binaryBit is one discovered power-of-two address for a bit position.
type binaryBit struct {
	address string
	bit     int // bit k, value 2^k
}

// BinaryParam resolves a signed, binary-encoded float signal: the remote
// avatar exposes one bool address per bit of round(|v| * 2^bits), clamped
// to 2^bits - 1,
// discovered by probing "{name}{2^k}" addresses, plus an optional
// "{name}Negative" sign address.
type BinaryParam struct {
	Name string
	Get  func(*canonical.Frame) float64

	bits        []binaryBit // sorted ascending by bit position
	negativeAdr string
	hasNegative bool
	relevant    bool

	lastEncoded  uint32
	hasLastValue bool
	lastNegative bool
}

// NewBinaryParam returns a binary-encoded parameter.
func NewBinaryParam(name string, get func(*canonical.Frame) float64) *BinaryParam {
	return &BinaryParam{Name: name, Get: get}
}

// Reset probes the snapshot for "{name}{N}" bool addresses where N is a
// power of two, and for an optional "{name}Negative" sign address.
func (p *BinaryParam) Reset(snapshot *Snapshot) int {
	p.bits = nil
	p.hasNegative = false
	p.negativeAdr = ""
	p.hasLastValue = false

	for k := 0; k < 32; k++ {
		n := uint64(1) << uint(k)
		candidate := p.Name + strconv.FormatUint(n, 10)
		matches := snapshot.addressesFor(candidate, Bool)
		if len(matches) == 0 {
			continue
		}
		p.bits = append(p.bits, binaryBit{address: matches[0], bit: k})
	}

	negMatches := snapshot.addressesFor(p.Name+"Negative", Bool)
	if len(negMatches) > 0 {
		p.hasNegative = true
		p.negativeAdr = negMatches[0]
	}

	p.relevant = len(p.bits) > 0
	if !p.relevant {
		return 0
	}
	n := len(p.bits)
	if p.hasNegative {
		n++
	}
	return n
}

func (p *BinaryParam) Relevant() bool { return p.relevant }

// encode rounds |v| into a bits-wide integer, saturating to all-ones when
// |v| is at or above BinarySaturation.
func (p *BinaryParam) encode(v float64) (encoded uint32, negative bool) {
	if math.IsNaN(v) {
		v = 0
	}
	negative = v < 0
	mag := math.Abs(v)
	if mag >= BinarySaturation {
		return (uint32(1) << uint(len(p.bits))) - 1, negative
	}
	if mag > 1 {
		mag = 1
	}
	steps := uint32(1) << uint(len(p.bits))
	encoded = uint32(math.Round(mag * float64(steps)))
	if encoded > steps-1 {
		encoded = steps - 1
	}
	return encoded, negative
}

func (p *BinaryParam) Process(frame *canonical.Frame) []WireMessage {
	if !p.relevant {
		return nil
	}
	value := p.Get(frame)
	encoded, negative := p.encode(value)

	if p.hasLastValue && encoded == p.lastEncoded && negative == p.lastNegative {
		return nil
	}
	p.lastEncoded = encoded
	p.lastNegative = negative
	p.hasLastValue = true

	out := make([]WireMessage, 0, len(p.bits)+1)
	for _, b := range p.bits {
		set := encoded&(uint32(1)<<uint(b.bit)) != 0
		out = append(out, WireMessage{Address: b.address, Value: set})
	}
	if p.hasNegative {
		out = append(out, WireMessage{Address: p.negativeAdr, Value: negative})
	}
	return out
}
