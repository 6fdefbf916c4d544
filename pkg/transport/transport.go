// Package transport sends resolved wire messages to a discovered social-VR
// target over OSC/UDP, or over a generic JSON/UDP sink for platforms with
// no OSC Query presence (§5).
package transport

import (
	"github.com/facetrackd/facetrackd/pkg/registry"
)

// Backend is the interface every transport implementation satisfies: send a
// batch of resolved wire messages for the current frame, and release its
// connection on shutdown.
type Backend interface {
	Send(messages []registry.WireMessage) error
	Close() error
}
