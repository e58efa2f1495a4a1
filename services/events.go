package services

import (
	"context"

	"github.com/google/uuid"
)

// Типы событий, рассылаемых подписчикам турнира.
const (
	EventMatchCreated = "MATCH_CREATED"
	EventMatchUpdated = "MATCH_UPDATED"
	EventMatchDeleted = "MATCH_DELETED"
	EventRoundUpdated = "ROUND_UPDATED"
)

// EventPublisher fans a tournament event out to realtime subscribers.
// Publish must not block on slow subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, tournamentID uuid.UUID, eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, uuid.UUID, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
