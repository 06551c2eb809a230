package audit

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink appends one entry durably. The repository implementation uses its
// own database session so a failed log write cannot taint the primary
// request's transaction.
type Sink interface {
	Append(ctx context.Context, entry *Entry) error
}

// Recorder is the write side of the audit trail. Record never returns an
// error: failures are rolled back inside the sink and reported to the
// operational log only.
type Recorder struct {
	sink Sink
	log  zerolog.Logger
}

func NewRecorder(sink Sink, log zerolog.Logger) *Recorder {
	return &Recorder{
		sink: sink,
		log:  log.With().Str("component", "audit-recorder").Logger(),
	}
}

// Record writes one entry on a best-effort basis. The write survives
// cancellation of the originating request.
func (r *Recorder) Record(ctx context.Context, entry Entry) {
	if entry.Username == "" {
		entry.Username = "system"
	}
	if entry.Meta == nil {
		entry.Meta = map[string]any{}
	}

	if err := r.sink.Append(context.WithoutCancel(ctx), &entry); err != nil {
		r.log.Error().
			Err(err).
			Str("action", string(entry.Action)).
			Str("entity_type", string(entry.EntityType)).
			Int64("entity_id", entry.EntityID).
			Msg("failed to write audit log entry")
	}
}
