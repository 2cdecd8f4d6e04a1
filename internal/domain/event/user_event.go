package event

import (
	"time"

	"github.com/oksasatya/go-auth-service/internal/domain/entity"
)

type Type string

const (
	UserRegistered Type = "user.registered"
	UserUpdated    Type = "user.updated"
	UserDeleted    Type = "user.deleted"
)

// UserEvent is the message published on the user events queue.
// User is the zero value for deletions.
type UserEvent struct {
	Type       Type               `json:"type"`
	UserID     string             `json:"user_id"`
	User       entity.UserSummary `json:"user"`
	OccurredAt time.Time          `json:"occurred_at"`
}

func New(t Type, u *entity.User) UserEvent {
	return UserEvent{Type: t, UserID: u.ID, User: u.Summary(), OccurredAt: time.Now().UTC()}
}

func Deleted(userID string) UserEvent {
	return UserEvent{Type: UserDeleted, UserID: userID, OccurredAt: time.Now().UTC()}
}
