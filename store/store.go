// Package store defines the persistence contracts for the collaboration
// core. Every mutating operation a workflow performs maps to a single method
// here, and every compound mutation (accept an invitation and add the
// member, approve a request and apply the change) is a single Tx method:
// implementations must make those all-or-nothing.
package store

import (
	"context"
	"time"

	"github.com/tripweave/tripweave-core/types"
)

// TripStore handles the canonical trip document and its collaborator map.
type TripStore interface {
	CreateTrip(ctx context.Context, trip *types.SharedTrip) (string, error)
	// GetTrip loads the trip with its activity list (chronological order)
	// and collaborator map.
	GetTrip(ctx context.Context, id string) (*types.SharedTrip, error)
	// UpdateTripActivities replaces the trip's activity list and bumps
	// UpdatedAt (strictly increasing) in one transaction.
	UpdateTripActivities(ctx context.Context, tripID string, activities []types.Activity) error
	GetCollaborator(ctx context.Context, tripID, userID string) (*types.Collaborator, error)
	UpdateCollaboratorRole(ctx context.Context, tripID, userID string, role types.CollaboratorRole) error
	SetCollaboratorStatus(ctx context.Context, tripID, userID string, status types.CollaboratorStatus) error
	SetShareableLink(ctx context.Context, tripID, link string) error
}

// InvitationStore handles trip invitation records.
type InvitationStore interface {
	CreateInvitation(ctx context.Context, invitation *types.TripInvitation) error
	GetInvitation(ctx context.Context, id string) (*types.TripInvitation, error)
	ListInvitationsByTrip(ctx context.Context, tripID string) ([]*types.TripInvitation, error)
	// UpdateInvitationStatus transitions a pending invitation to a terminal
	// status. Returns ErrAlreadyResolved if the invitation is not pending.
	UpdateInvitationStatus(ctx context.Context, id string, status types.InvitationStatus, respondedAt time.Time) error
	// AcceptInvitationTx atomically marks the invitation accepted, records
	// the resolved invitee ID, and inserts (or re-activates) the
	// collaborator entry. Partial application is a correctness violation.
	AcceptInvitationTx(ctx context.Context, invitationID, inviteeID string, collaborator *types.Collaborator) error
}

// RequestStore handles role-promotion and activity edit requests.
type RequestStore interface {
	CreateEditRequest(ctx context.Context, req *types.EditRequest) error
	GetEditRequest(ctx context.Context, id string) (*types.EditRequest, error)
	ListPendingEditRequests(ctx context.Context, tripID string) ([]*types.EditRequest, error)
	// ResolveEditRequestTx atomically marks the request resolved using the
	// status/responder fields on req and, when promote is true, updates the
	// requester's collaborator role to editor in the same transaction.
	// Returns ErrAlreadyResolved if the request is no longer pending.
	ResolveEditRequestTx(ctx context.Context, req *types.EditRequest, promote bool) error

	CreateActivityEditRequest(ctx context.Context, req *types.ActivityEditRequest) error
	GetActivityEditRequest(ctx context.Context, id string) (*types.ActivityEditRequest, error)
	ListPendingActivityEditRequests(ctx context.Context, tripID string) ([]*types.ActivityEditRequest, error)
	// MarkActivityEditRequestResolved records a rejection (or any terminal
	// status with no trip mutation). Returns ErrAlreadyResolved if the
	// request is no longer pending.
	MarkActivityEditRequestResolved(ctx context.Context, req *types.ActivityEditRequest) error
	// ApplyActivityEditRequestTx atomically persists the new activity list,
	// bumps the trip's UpdatedAt, and marks the request approved. If any
	// part fails, the request stays pending so a retry is safe; this is the
	// exactly-once guarantee for approved changes. Returns
	// ErrAlreadyResolved if the request is no longer pending.
	ApplyActivityEditRequestTx(ctx context.Context, req *types.ActivityEditRequest, activities []types.Activity) error
}

// Store aggregates the persistence contracts behind one constructor.
type Store interface {
	Trips() TripStore
	Invitations() InvitationStore
	Requests() RequestStore
}
