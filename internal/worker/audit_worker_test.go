package worker

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
)

func TestAuditWorkerCountsLifecycleEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	StartAuditWorker(dispatcher, zap.NewNop(), metrics)

	ctx := context.Background()
	publish := func(eventType events.EventType) {
		t.Helper()
		err := dispatcher.Publish(ctx, events.Event{
			ID:        "evt-1",
			Type:      eventType,
			UserID:    "user-1",
			Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("Publish(%s): %v", eventType, err)
		}
	}

	publish(events.EventSessionIssued)
	publish(events.EventSessionIssued)
	publish(events.EventSessionRevoked)
	publish(events.EventUserLoggedOut)
	publish(events.EventUserRegistered)

	issued, revoked, logouts := metrics.SessionCounts()
	if issued != 2 {
		t.Errorf("issued = %d, want 2", issued)
	}
	if revoked != 1 {
		t.Errorf("revoked = %d, want 1", revoked)
	}
	if logouts != 1 {
		t.Errorf("logouts = %d, want 1", logouts)
	}
}
