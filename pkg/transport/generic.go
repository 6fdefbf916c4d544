package transport

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/facetrackd/facetrackd/pkg/registry"
)

// GenericFrame is the wire shape sent by GenericUdp: a flat JSON object of
// resolved address -> value, for consumers with no OSC Query presence to
// discover against and no OSC decoder of their own.
type GenericFrame struct {
	Values map[string]any `json:"values"`
}

// GenericUdp sends resolved wire messages as JSON over UDP, one JSON
// object per datagram with no trailing newline, for platforms without an OSC listener (§5 transport
// Non-goals don't exclude this: it's a fallback sink, not a new protocol).
type GenericUdp struct {
	mu   sync.Mutex
	conn *net.UDPConn
}

// NewGenericUdp dials a UDP socket at host:port.
func NewGenericUdp(host string, port int) (*GenericUdp, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("resolving generic udp address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dialing generic udp address: %w", err)
	}
	return &GenericUdp{conn: conn}, nil
}

// Send encodes every message as one JSON object and writes it as a single
// datagram.
func (g *GenericUdp) Send(messages []registry.WireMessage) error {
	if len(messages) == 0 {
		return nil
	}

	frame := GenericFrame{Values: make(map[string]any, len(messages))}
	for _, m := range messages {
		frame.Values[m.Address] = m.Value
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding generic udp frame: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, err := g.conn.Write(payload); err != nil {
		return fmt.Errorf("sending generic udp frame: %w", err)
	}
	return nil
}

// Close releases the underlying UDP socket.
func (g *GenericUdp) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn.Close()
}
