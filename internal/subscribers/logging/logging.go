package logging

import (
	"context"

	"go.uber.org/zap"

	"github.com/lonkyzooner/thunderfire-sub002/internal/types"
)

type Subscriber struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{logger: logger}
}

func (s *Subscriber) Name() string {
	return "logging"
}

func (s *Subscriber) Handle(_ context.Context, resp types.NormalizedResponse) error {
	s.logger.Info("response",
		zap.String("response_id", resp.ResponseID),
		zap.String("tenant_id", resp.TenantID),
		zap.String("user_id", resp.UserID),
		zap.String("response_kind", string(resp.ResponseKind)),
		zap.Int("content_len", len(resp.Content)),
	)
	return nil
}
