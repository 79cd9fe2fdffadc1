package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripweave/tripweave-core/types"
)

// NewEvent assembles a publishable event envelope around the given payload.
func NewEvent(eventType types.EventType, tripID, userID string, payload any) (types.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return types.Event{}, fmt.Errorf("marshal payload for %s: %w", eventType, err)
	}

	return types.Event{
		BaseEvent: types.BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			TripID:    tripID,
			UserID:    userID,
			Timestamp: time.Now(),
			Version:   1,
		},
		Metadata: types.EventMetadata{
			Source: "tripweave-core",
		},
		Payload: data,
	}, nil
}

// NoopPublisher discards events. Useful for wiring the workflows without a
// Redis connection, and as a default in tests.
type NoopPublisher struct {
	mu   sync.Mutex
	subs map[string]chan types.Event
}

var _ types.EventPublisher = (*NoopPublisher)(nil)

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{subs: make(map[string]chan types.Event)}
}

func (p *NoopPublisher) Publish(ctx context.Context, tripID string, event types.Event) error {
	return nil
}

func (p *NoopPublisher) Subscribe(ctx context.Context, tripID string) (<-chan types.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.subs[tripID]; exists {
		return nil, fmt.Errorf("subscription already exists for trip %s", tripID)
	}
	ch := make(chan types.Event)
	p.subs[tripID] = ch
	return ch, nil
}

func (p *NoopPublisher) Unsubscribe(ctx context.Context, tripID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, exists := p.subs[tripID]
	if !exists {
		return fmt.Errorf("no subscription found for trip %s", tripID)
	}
	close(ch)
	delete(p.subs, tripID)
	return nil
}
