package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/getveridian/veridian/event"
	"github.com/getveridian/veridian/internal/logger"
)

// Recorder turns authentication notifications into persisted audit records.
// Persistence is best-effort: store errors are logged, never pushed back
// into the bus.
type Recorder struct {
	store Store
}

func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// Register subscribes the recorder to the authentication topics.
func (r *Recorder) Register(bus event.Bus) {
	bus.Subscribe(event.TopicAuthProgress, r.handle)
	bus.Subscribe(event.TopicAuthSucceeded, r.handle)
	bus.Subscribe(event.TopicAuthFailed, r.handle)
	bus.Subscribe(event.TopicAccountLocked, r.handle)
}

func (r *Recorder) handle(ctx context.Context, evt event.Event) {
	record := &Event{
		ID:        uuid.NewString(),
		Type:      evt.Topic,
		ActorID:   actorID(evt.Fields),
		CreatedAt: evt.CreatedAt,
	}

	switch evt.Topic {
	case event.TopicAuthSucceeded:
		record.Status = "success"
		record.Risk = RiskLow
		record.Message = "authentication succeeded"
	case event.TopicAuthProgress:
		record.Status = "progress"
		record.Risk = RiskLow
		record.Message = "additional authentication factor required"
	case event.TopicAuthFailed:
		record.Status = "failure"
		record.Risk = RiskMedium
		record.Message = "authentication failed"
	case event.TopicAccountLocked:
		record.Status = "blocked"
		record.Risk = RiskHigh
		record.Message = "account locked after repeated failures"
	default:
		record.Status = "unknown"
		record.Risk = RiskLow
	}

	if metadata, err := json.Marshal(evt.Fields); err == nil {
		record.Metadata = metadata
	}

	if err := r.store.SaveEvent(ctx, record); err != nil {
		logger.Log.Warn("failed to persist audit event",
			zap.String("type", record.Type),
			zap.Error(err),
		)
	}
}

func actorID(fields map[string]any) string {
	for _, key := range []string{"account_id", "identifier"} {
		if v, ok := fields[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
