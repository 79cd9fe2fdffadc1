package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ActivityType categorizes an itinerary entry.
type ActivityType string

const (
	ActivityTypeSightseeing   ActivityType = "SIGHTSEEING"
	ActivityTypeFood          ActivityType = "FOOD"
	ActivityTypeTransport     ActivityType = "TRANSPORT"
	ActivityTypeAccommodation ActivityType = "ACCOMMODATION"
	ActivityTypeNote          ActivityType = "NOTE"
	ActivityTypeOther         ActivityType = "OTHER"
)

// IsValid checks if the type is a known activity type.
func (at ActivityType) IsValid() bool {
	switch at {
	case ActivityTypeSightseeing, ActivityTypeFood, ActivityTypeTransport,
		ActivityTypeAccommodation, ActivityTypeNote, ActivityTypeOther:
		return true
	default:
		return false
	}
}

// Budget is the planned spend attached to an activity.
type Budget struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// Location is a resolved place attached to an activity.
type Location struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Activity is a single itinerary entry owned by a SharedTrip. StartTime and
// EndTime are optional; an activity with neither is an undated note and never
// participates in conflict detection.
type Activity struct {
	ID          string         `json:"id"`
	TripID      string         `json:"tripId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Type        ActivityType   `json:"type"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
	Budget      *Budget        `json:"budget,omitempty"`
	Location    *Location      `json:"location,omitempty"`
	CheckedIn   bool           `json:"checkedIn"`
}

// HasSchedule reports whether the activity occupies a concrete time window.
func (a *Activity) HasSchedule() bool {
	return a.StartTime != nil && a.EndTime != nil
}

// Validate enforces structural invariants. Zero-length windows are allowed
// for point-in-time activities such as notes.
func (a *Activity) Validate() error {
	if a.Title == "" {
		return ErrTitleRequired
	}
	if a.Type != "" && !a.Type.IsValid() {
		return ErrInvalidActivityType
	}
	if a.StartTime != nil && a.EndTime != nil && a.EndTime.Before(*a.StartTime) {
		return ErrEndBeforeStart
	}
	return nil
}
