package types

import (
	"errors"
	"time"
)

// Structural validation errors for activities and proposed changes.
var (
	ErrTitleRequired       = errors.New("activity title is required")
	ErrInvalidActivityType = errors.New("invalid activity type")
	ErrEndBeforeStart      = errors.New("activity end time cannot be before start time")
	ErrEmptyChange         = errors.New("proposed change contains no fields")
)

// ActivityChange is the partial activity payload carried by an
// ActivityEditRequest. Nil fields are left untouched on merge.
type ActivityChange struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Type        *ActivityType  `json:"type,omitempty"`
	StartTime   *time.Time     `json:"startTime,omitempty"`
	EndTime     *time.Time     `json:"endTime,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
	Budget      *Budget        `json:"budget,omitempty"`
	Location    *Location      `json:"location,omitempty"`
}

// IsEmpty reports whether no fields are set.
func (c *ActivityChange) IsEmpty() bool {
	return c.Title == nil && c.Description == nil && c.Type == nil &&
		c.StartTime == nil && c.EndTime == nil && c.Duration == nil &&
		c.Budget == nil && c.Location == nil
}

// ApplyTo merges the change into a copy of the given activity and returns
// the merged result. The input activity is not mutated.
func (c *ActivityChange) ApplyTo(a Activity) Activity {
	merged := a
	if c.Title != nil {
		merged.Title = *c.Title
	}
	if c.Description != nil {
		merged.Description = *c.Description
	}
	if c.Type != nil {
		merged.Type = *c.Type
	}
	if c.StartTime != nil {
		merged.StartTime = c.StartTime
	}
	if c.EndTime != nil {
		merged.EndTime = c.EndTime
	}
	if c.Duration != nil {
		merged.Duration = c.Duration
	}
	if c.Budget != nil {
		merged.Budget = c.Budget
	}
	if c.Location != nil {
		merged.Location = c.Location
	}
	return merged
}

// BuildActivity constructs a new activity from the change payload, for
// add-activity requests. The caller assigns the ID and trip ID.
func (c *ActivityChange) BuildActivity() (Activity, error) {
	if c.IsEmpty() {
		return Activity{}, ErrEmptyChange
	}
	a := Activity{Type: ActivityTypeOther}
	a = c.ApplyTo(a)
	if err := a.Validate(); err != nil {
		return Activity{}, err
	}
	return a, nil
}
