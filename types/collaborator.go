package types

import "time"

// CollaboratorRole governs direct-edit rights on a shared trip.
type CollaboratorRole string

const (
	RoleOwner  CollaboratorRole = "OWNER"
	RoleEditor CollaboratorRole = "EDITOR"
	RoleViewer CollaboratorRole = "VIEWER"
)

// String provides a string representation of the role.
func (r CollaboratorRole) String() string {
	return string(r)
}

// IsValid checks if the role is a known collaborator role.
func (r CollaboratorRole) IsValid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// CanEdit reports whether the role permits direct mutation of the trip.
func (r CollaboratorRole) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// CanOnlyView reports whether the role is limited to read access.
func (r CollaboratorRole) CanOnlyView() bool {
	return r == RoleViewer
}

type CollaboratorStatus string

const (
	CollaboratorStatusActive   CollaboratorStatus = "ACTIVE"
	CollaboratorStatusInactive CollaboratorStatus = "INACTIVE"
)

// Collaborator is a participant entry on a shared trip. The owner is never
// stored as a Collaborator row; ownership is computed from SharedTrip.OwnerID.
type Collaborator struct {
	ID          string             `json:"id"`
	TripID      string             `json:"tripId"`
	UserID      string             `json:"userId"`
	Email       string             `json:"email"`
	DisplayName string             `json:"displayName"`
	Role        CollaboratorRole   `json:"role"`
	Status      CollaboratorStatus `json:"status"`
	AddedAt     time.Time          `json:"addedAt"`
}

// IsActive reports whether the collaborator entry currently grants access.
func (c *Collaborator) IsActive() bool {
	return c.Status == CollaboratorStatusActive
}
