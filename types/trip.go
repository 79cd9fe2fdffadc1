package types

import (
	"strings"
	"time"
)

// SharedTrip is the canonical itinerary document and the unit of
// collaboration. It exclusively owns its activity list and collaborator map;
// UpdatedAt strictly increases on every accepted mutation and serves as a
// monotonic version proxy.
type SharedTrip struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Destination   string                  `json:"destination"`
	StartDate     time.Time               `json:"startDate"`
	EndDate       time.Time               `json:"endDate"`
	OwnerID       string                  `json:"ownerId"`
	Activities    []Activity              `json:"activities"`
	Collaborators map[string]Collaborator `json:"collaborators"` // keyed by userID
	ShareableLink *string                 `json:"shareableLink,omitempty"`
	CreatedAt     time.Time               `json:"createdAt"`
	UpdatedAt     time.Time               `json:"updatedAt"`
}

// ActiveCollaborator returns the active collaborator entry for userID, or
// nil when none exists. At most one active entry per user is maintained by
// the store layer.
func (t *SharedTrip) ActiveCollaborator(userID string) *Collaborator {
	c, ok := t.Collaborators[userID]
	if !ok || !c.IsActive() {
		return nil
	}
	return &c
}

// ActiveCollaboratorByEmail returns the active collaborator entry with the
// given email, or nil when none exists. Emails match case-insensitively.
func (t *SharedTrip) ActiveCollaboratorByEmail(email string) *Collaborator {
	for _, c := range t.Collaborators {
		if strings.EqualFold(c.Email, email) && c.IsActive() {
			collab := c
			return &collab
		}
	}
	return nil
}

// FindActivity returns the activity with the given ID and its index, or
// nil and -1 when absent.
func (t *SharedTrip) FindActivity(activityID string) (*Activity, int) {
	for i := range t.Activities {
		if t.Activities[i].ID == activityID {
			return &t.Activities[i], i
		}
	}
	return nil, -1
}
