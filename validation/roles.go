// Package validation holds the pure rule checks shared by every workflow:
// effective-role resolution and activity scheduling validation. Nothing in
// this package touches a store or has side effects.
package validation

import (
	"github.com/tripweave/tripweave-core/types"
)

// ResolveRole derives the caller's effective permission level on a trip.
// The owner's role is computed, never stored as a collaborator row. Callers
// without an active collaborator entry resolve to viewer; absence of access
// altogether is enforced by a separate membership check, not here.
func ResolveRole(trip *types.SharedTrip, userID string) types.CollaboratorRole {
	if userID == trip.OwnerID {
		return types.RoleOwner
	}
	if c := trip.ActiveCollaborator(userID); c != nil {
		return c.Role
	}
	return types.RoleViewer
}

// IsMember reports whether the caller has any standing on the trip: the
// owner or an active collaborator.
func IsMember(trip *types.SharedTrip, userID string) bool {
	return userID == trip.OwnerID || trip.ActiveCollaborator(userID) != nil
}
