// Package audit records compliance-relevant events. Sinks are best effort:
// callers log failures and carry on.
package audit

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Event types written by the engine.
const (
	EventCompliance = "compliance_log"
	EventDisclosure = "scripted_disclosure"
	EventDispatch   = "dispatch_notification"
	EventFeedback   = "feedback"
)

type Entry struct {
	EventType  string         `json:"event_type"`
	TenantID   string         `json:"tenant_id"`
	UserID     string         `json:"user_id"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Sink interface {
	Log(ctx context.Context, entry Entry) error
}

// Multi writes to every sink and joins their errors.
type Multi []Sink

func (m Multi) Log(ctx context.Context, entry Entry) error {
	var errs []error
	for _, s := range m {
		if err := s.Log(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Log(_ context.Context, entry Entry) error {
	s.logger.Info("audit",
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID),
		zap.String("user_id", entry.UserID),
		zap.Any("payload", entry.Payload),
		zap.Time("occurred_at", entry.OccurredAt),
	)
	return nil
}
