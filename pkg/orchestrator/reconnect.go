package orchestrator

import "errors"

// Kind classifies an ingestion/transport failure per §7, driving both the
// log level and whether the producer keeps calling the source's Update or
// stops.
type Kind int

const (
	// Transient is a one-off hiccup (a dropped UDP datagram, a single
	// read timeout): not logged, no reconnect.
	Transient Kind = iota
	// Recoverable is a peer loss the adapter can plausibly recover from
	// on its own (stale shared-memory heartbeat, socket reset): logged
	// at warn; the producer calls Update again after producerIdleSleep
	// while the consumer keeps synthesising default frames. The
	// orchestrator makes no separate reconnect or respawn step and does
	// not throttle these retries beyond that sleep.
	Recoverable
	// Configuration is a misconfigured adapter or target (bad port,
	// malformed config value): logged at error, the adapter is disabled
	// rather than retried.
	Configuration
	// Fatal is unrecoverable: logged at error, the producer loop stops.
	// The orchestrator does not exit the process or report the error
	// anywhere beyond that log line; consumer ticks continue with
	// synthesised default frames.
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Recoverable:
		return "recoverable"
	case Configuration:
		return "configuration"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an underlying error with its Kind so callers can
// recover it via errors.As without the producer loop needing to know about
// every adapter's concrete error types.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classify wraps err with kind. A nil err classifies to nil.
func Classify(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// ClassifyOf extracts the Kind of err, defaulting to Recoverable for any
// error an adapter returns without having classified itself — per §7,
// an adapter's unclassified error is treated as a peer loss, not silently
// ignored nor treated as fatal.
func ClassifyOf(err error) Kind {
	if err == nil {
		return Transient
	}
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return Recoverable
}
