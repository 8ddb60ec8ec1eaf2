// Package event provides the publish/subscribe bus used by the
// authentication core to report progress, success, failure, and lockout, and
// to react to session lifecycle notifications.
//
// Topics are fixed strings. The authenticator publishes the AUTHENTICATION.*
// topics and subscribes its cache-clear reaction to the SESSION.* topics.
package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TopicAuthProgress  = "AUTHENTICATION.PROGRESS"
	TopicAuthSucceeded = "AUTHENTICATION.SUCCEEDED"
	TopicAuthFailed    = "AUTHENTICATION.FAILED"
	TopicAccountLocked = "AUTHENTICATION.ACCOUNT_LOCKED"

	TopicSessionExpire = "SESSION.EXPIRE"
	TopicSessionStop   = "SESSION.STOP"
)

// Event is a single published notification.
type Event struct {
	ID        uuid.UUID
	Topic     string
	CreatedAt time.Time
	Fields    map[string]any
}

// Handler consumes published events. Handlers must not panic; the bus makes
// no attempt to recover them.
type Handler func(ctx context.Context, evt Event)

// Bus is the notification transport contract consumed by the authenticator.
type Bus interface {
	// Publish delivers an event to all handlers subscribed to topic.
	Publish(ctx context.Context, topic string, fields map[string]any) error

	// Subscribe registers a handler for a topic.
	Subscribe(topic string, h Handler)
}
