package types

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tripweave/tripweave-core/errors"
)

type EventType string

const (
	CategoryTrip       = "TRIP"
	CategoryActivity   = "ACTIVITY"
	CategoryInvitation = "INVITATION"
	CategoryRequest    = "REQUEST"
)

const (
	// Trip events
	EventTypeTripUpdated        EventType = CategoryTrip + "_UPDATED"
	EventTypeCollaboratorJoined EventType = CategoryTrip + "_COLLABORATOR_JOINED"
	EventTypeRolePromoted       EventType = CategoryTrip + "_ROLE_PROMOTED"

	// Activity events
	EventTypeActivityAdded     EventType = CategoryActivity + "_ADDED"
	EventTypeActivityUpdated   EventType = CategoryActivity + "_UPDATED"
	EventTypeActivityDeleted   EventType = CategoryActivity + "_DELETED"
	EventTypeActivityCheckedIn EventType = CategoryActivity + "_CHECKED_IN"

	// Invitation events
	EventTypeInvitationCreated  EventType = CategoryInvitation + "_CREATED"
	EventTypeInvitationAccepted EventType = CategoryInvitation + "_ACCEPTED"
	EventTypeInvitationDeclined EventType = CategoryInvitation + "_DECLINED"

	// Request events
	EventTypeEditRequestCreated          EventType = CategoryRequest + "_EDIT_CREATED"
	EventTypeEditRequestResolved         EventType = CategoryRequest + "_EDIT_RESOLVED"
	EventTypeActivityEditRequestCreated  EventType = CategoryRequest + "_ACTIVITY_CREATED"
	EventTypeActivityEditRequestResolved EventType = CategoryRequest + "_ACTIVITY_RESOLVED"
)

// BaseEvent carries the fields common to every published event.
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TripID    string    `json:"tripId"`
	UserID    string    `json:"userId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Version   int       `json:"version"`
}

// EventMetadata for tracking and debugging
type EventMetadata struct {
	CorrelationID string            `json:"correlationId,omitempty"`
	Source        string            `json:"source"`
	Tags          map[string]string `json:"tags,omitempty"`
}

type Event struct {
	BaseEvent
	Metadata EventMetadata   `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Validate checks the event carries the required envelope fields.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.ValidationFailed("invalid event", "event ID is required")
	}
	if e.Type == "" {
		return errors.ValidationFailed("invalid event", "event type is required")
	}
	if e.TripID == "" {
		return errors.ValidationFailed("invalid event", "trip ID is required")
	}
	if e.Timestamp.IsZero() {
		return errors.ValidationFailed("invalid event", "timestamp is required")
	}
	return nil
}

// EventPublisher delivers advisory change notifications. Delivery is
// best-effort: workflow correctness never depends on it.
type EventPublisher interface {
	Publish(ctx context.Context, tripID string, event Event) error
	Subscribe(ctx context.Context, tripID string) (<-chan Event, error)
	Unsubscribe(ctx context.Context, tripID string) error
}

type CollaboratorJoinedEvent struct {
	InvitationID string           `json:"invitationId"`
	UserID       string           `json:"userId"`
	Role         CollaboratorRole `json:"role"`
}

type RolePromotedEvent struct {
	RequestID string           `json:"requestId"`
	UserID    string           `json:"userId"`
	OldRole   CollaboratorRole `json:"oldRole"`
	NewRole   CollaboratorRole `json:"newRole"`
	UpdatedBy string           `json:"updatedBy"`
}

type ActivityEditResolvedEvent struct {
	RequestID   string              `json:"requestId"`
	RequestType ActivityRequestType `json:"requestType"`
	Decision    RequestDecision     `json:"decision"`
	ActivityID  string              `json:"activityId,omitempty"`
	ResolvedBy  string              `json:"resolvedBy"`
}
