package transport

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hypebeast/go-osc/osc"

	"github.com/facetrackd/facetrackd/pkg/registry"
)

// OscUDP sends resolved wire messages as an OSC 1.0 bundle over UDP. It
// backs both the VRChat and Resonite transports (§5): the two platforms
// differ only in their discovered address namespace, which the registry
// has already resolved by the time messages reach here.
type OscUDP struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	client *osc.Client
}

// NewOscUDP dials an OSC/UDP client at host:port. name labels the backend
// in logs ("vrchat", "resonite", ...).
func NewOscUDP(name, host string, port int, logger *slog.Logger) *OscUDP {
	if logger == nil {
		logger = slog.Default()
	}
	return &OscUDP{
		name:   name,
		logger: logger,
		client: osc.NewClient(host, port),
	}
}

// Send bundles every message into a single OSC packet and writes it in one
// UDP datagram.
func (o *OscUDP) Send(messages []registry.WireMessage) error {
	if len(messages) == 0 {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	bundle := osc.NewBundle(time.Now())
	for _, m := range messages {
		msg := osc.NewMessage(m.Address)
		switch v := m.Value.(type) {
		case float64:
			msg.Append(float32(v))
		case bool:
			msg.Append(v)
		case int32:
			msg.Append(v)
		case []float64:
			for _, f := range v {
				msg.Append(float32(f))
			}
		default:
			return fmt.Errorf("%s transport: unsupported wire value type %T for %s", o.name, v, m.Address)
		}
		bundle.Append(msg)
	}

	if err := o.client.Send(bundle); err != nil {
		return fmt.Errorf("%s transport: sending bundle of %d messages: %w", o.name, len(messages), err)
	}
	return nil
}

// Close releases the backend. go-osc clients hold no persistent socket, so
// this is a no-op kept to satisfy Backend.
func (o *OscUDP) Close() error {
	return nil
}
