package synthesis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/logging"
	"github.com/54b3r/kscan/internal/store"
)

// Recorder persists every scan produced by the wrapped Synthesizer.
type Recorder struct {
	next   api.Synthesizer
	store  store.ScanStore
	strict bool
}

// NewRecorder wraps next. When strict is set a failed save fails the call;
// otherwise it is logged and the scan is still returned.
func NewRecorder(next api.Synthesizer, s store.ScanStore, strict bool) *Recorder {
	return &Recorder{next: next, store: s, strict: strict}
}

// Synthesize delegates to the wrapped Synthesizer and saves the result.
func (r *Recorder) Synthesize(ctx context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	scan, err := r.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	// Remote scans do not always carry these.
	if scan.ID == "" {
		scan.ID = uuid.NewString()
	}
	if scan.Query == "" {
		scan.Query = req.Query
	}
	if len(scan.DocIDs) == 0 {
		scan.DocIDs = req.Documents
	}

	if err := r.store.Save(ctx, scan); err != nil {
		if r.strict {
			return nil, fmt.Errorf("synthesis: save scan: %w", err)
		}
		logging.FromContext(ctx).Warn("synthesis: could not save scan",
			slog.String("scan_id", scan.ID),
			slog.String("error", err.Error()),
		)
	}
	return scan, nil
}
