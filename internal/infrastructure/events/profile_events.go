// Package events publishes applied profile writes to a RabbitMQ queue.
package events

import (
	"context"
	"time"

	"github.com/oksasatya/fitness-onboarding/internal/application"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// Publisher is satisfied by helpers.RabbitPublisher.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// ProfileEvent is the message body on the profile queue.
type ProfileEvent struct {
	Type   string              `json:"type"`
	UserID string              `json:"user_id"`
	Fields repository.Document `json:"fields"`
	At     time.Time           `json:"at"`
}

type ProfileEvents struct {
	Pub Publisher
}

func NewProfileEvents(pub Publisher) *ProfileEvents { return &ProfileEvents{Pub: pub} }

func (e *ProfileEvents) Project(ctx context.Context, change application.ProfileChange) error {
	if e == nil || e.Pub == nil {
		return nil
	}
	return e.Pub.PublishJSON(ctx, ProfileEvent{
		Type:   "profile." + change.Op,
		UserID: change.Identity.String(),
		Fields: change.Fields,
		At:     change.At,
	})
}
