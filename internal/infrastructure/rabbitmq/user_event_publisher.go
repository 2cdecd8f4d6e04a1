package rabbitmq

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/oksasatya/go-auth-service/internal/domain/event"
)

const publishTimeout = 5 * time.Second

// JSONPublisher is satisfied by helpers.RabbitPublisher.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, msgType string, body any) error
}

// UserEventPublisher puts user lifecycle events on the user events queue.
type UserEventPublisher struct {
	pub JSONPublisher
}

func NewUserEventPublisher(pub JSONPublisher) *UserEventPublisher {
	return &UserEventPublisher{pub: pub}
}

func (p *UserEventPublisher) Publish(ctx context.Context, e event.UserEvent) error {
	c, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return errors.Wrapf(p.pub.PublishJSON(c, string(e.Type), e), "publish %s", e.Type)
}
