package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/event"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

// EventPublisher delivers user lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, e event.UserEvent) error
}

// NopPublisher drops every event. Used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, event.UserEvent) error { return nil }

// publish is best effort: the user-facing operation has already succeeded.
func publish(ctx context.Context, pub EventPublisher, logger *logrus.Logger, e event.UserEvent) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, e); err != nil {
		helpers.LogError(logger, "publish user event failed", err, logrus.Fields{
			"event":   string(e.Type),
			"user_id": e.UserID,
		})
	}
}
