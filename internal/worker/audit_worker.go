package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
)

// StartAuditWorker subscribes audit handlers for session lifecycle events.
// Each event produces one structured audit line and bumps the matching
// counter.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) {
	if dispatcher == nil {
		return
	}

	audit := logger.Named("audit")

	dispatcher.Subscribe(events.EventSessionIssued, func(_ context.Context, event events.Event) error {
		metrics.RecordSessionIssued()
		audit.Info("session issued",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
		)
		return nil
	})

	dispatcher.Subscribe(events.EventSessionRevoked, func(_ context.Context, event events.Event) error {
		metrics.RecordSessionRevoked()
		audit.Info("session revoked",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
		)
		return nil
	})

	dispatcher.Subscribe(events.EventUserLoggedOut, func(_ context.Context, event events.Event) error {
		metrics.RecordLogoutAll()
		audit.Info("user logged out",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
		)
		return nil
	})

	dispatcher.Subscribe(events.EventUserRegistered, func(_ context.Context, event events.Event) error {
		audit.Info("user registered",
			zap.String("event_id", event.ID),
			zap.String("user_id", event.UserID),
		)
		return nil
	})
}
