// Package ingest defines the contract every tracking-source adapter
// implements, normalizing heterogeneous binary/OSC payloads onto the
// canonical frame (§4.B).
package ingest

import (
	"log/slog"

	"github.com/facetrackd/facetrackd/pkg/canonical"
)

// Source is the contract every concrete ingestion adapter satisfies.
// Initialize may block (SDK/socket setup) and is never called from the
// producer hot path. Update is called once per producer tick and must
// return promptly; it reports true only when it wrote new data into frame,
// so the orchestrator can gate publishing on genuinely fresh frames.
// Unload is idempotent and releases OS handles.
type Source interface {
	Initialize(logger *slog.Logger) error
	Update(frame *canonical.Frame) (updated bool, err error)
	Unload() error
}
