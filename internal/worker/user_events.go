// Package worker consumes user lifecycle events off the broker.
package worker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
	"github.com/oksasatya/go-auth-service/internal/domain/event"
	"github.com/oksasatya/go-auth-service/pkg/mailer"
)

const handleTimeout = 15 * time.Second

// Indexer maintains the user search index.
type Indexer interface {
	Index(ctx context.Context, u entity.UserSummary) error
	Delete(ctx context.Context, id string) error
}

// Sender delivers rendered emails.
type Sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// UserEventHandler applies user events to the search index and sends welcome mail.
// Either dependency may be nil to disable that side effect.
type UserEventHandler struct {
	index   Indexer
	mail    Sender
	appName string
	logger  *logrus.Logger
}

func NewUserEventHandler(index Indexer, mail Sender, appName string, logger *logrus.Logger) *UserEventHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &UserEventHandler{index: index, mail: mail, appName: appName, logger: logger}
}

func (h *UserEventHandler) Handle(ctx context.Context, e event.UserEvent) error {
	switch e.Type {
	case event.UserRegistered:
		if err := h.indexUser(ctx, e.User); err != nil {
			return err
		}
		return h.welcome(ctx, e.User)
	case event.UserUpdated:
		return h.indexUser(ctx, e.User)
	case event.UserDeleted:
		if h.index == nil {
			return nil
		}
		return h.index.Delete(ctx, e.UserID)
	default:
		h.logger.WithField("type", string(e.Type)).Warn("ignoring unknown user event")
		return nil
	}
}

func (h *UserEventHandler) indexUser(ctx context.Context, u entity.UserSummary) error {
	if h.index == nil {
		return nil
	}
	return h.index.Index(ctx, u)
}

func (h *UserEventHandler) welcome(ctx context.Context, u entity.UserSummary) error {
	if h.mail == nil {
		return nil
	}
	msg, err := mailer.WelcomeMessage(h.appName, u.Username, u.Email, u.CreatedAt)
	if err != nil {
		return err
	}
	return h.mail.Send(ctx, msg)
}

// Consume processes deliveries until ctx is done or the channel closes.
// Malformed messages are dropped; a failed message is requeued once.
func (h *UserEventHandler) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			h.process(ctx, d)
		}
	}
}

func (h *UserEventHandler) process(ctx context.Context, d amqp.Delivery) {
	var e event.UserEvent
	if err := json.Unmarshal(d.Body, &e); err != nil {
		h.logger.WithError(err).WithField("type", d.Type).Error("bad user event message")
		_ = d.Nack(false, false)
		return
	}

	c, cancel := context.WithTimeout(ctx, handleTimeout)
	err := h.Handle(c, e)
	cancel()

	log := h.logger.WithFields(logrus.Fields{"event": string(e.Type), "user_id": e.UserID})
	if err != nil {
		log.WithError(err).WithField("redelivered", d.Redelivered).Error("user event failed")
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
	log.Debug("user event handled")
}
