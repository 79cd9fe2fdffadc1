// Package memory provides a mutex-guarded in-memory implementation of the
// store contracts. It backs the service tests and is the isolated
// fake-data path for running the core without a database; business rules
// live in the services, never here.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
)

// Store holds every record type behind a single mutex. All returned values
// are deep copies so callers can never mutate canonical state in place.
type Store struct {
	mu sync.RWMutex

	trips            map[string]*types.SharedTrip
	invitations      map[string]*types.TripInvitation
	editRequests     map[string]*types.EditRequest
	activityRequests map[string]*types.ActivityEditRequest
}

var _ store.Store = (*Store)(nil)
var _ store.TripStore = (*Store)(nil)
var _ store.InvitationStore = (*Store)(nil)
var _ store.RequestStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		trips:            make(map[string]*types.SharedTrip),
		invitations:      make(map[string]*types.TripInvitation),
		editRequests:     make(map[string]*types.EditRequest),
		activityRequests: make(map[string]*types.ActivityEditRequest),
	}
}

func (s *Store) Trips() store.TripStore             { return s }
func (s *Store) Invitations() store.InvitationStore { return s }
func (s *Store) Requests() store.RequestStore       { return s }

// --- TripStore ---

func (s *Store) CreateTrip(ctx context.Context, trip *types.SharedTrip) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if trip.ID == "" {
		return "", fmt.Errorf("create trip: missing ID")
	}
	now := time.Now().UTC()
	stored := copyTrip(trip)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	if stored.Collaborators == nil {
		stored.Collaborators = make(map[string]types.Collaborator)
	}
	s.trips[stored.ID] = stored
	return stored.ID, nil
}

func (s *Store) GetTrip(ctx context.Context, id string) (*types.SharedTrip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, ok := s.trips[id]
	if !ok {
		return nil, fmt.Errorf("get trip %s: %w", id, store.ErrNotFound)
	}
	return copyTrip(trip), nil
}

func (s *Store) UpdateTripActivities(ctx context.Context, tripID string, activities []types.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateActivitiesLocked(tripID, activities)
}

func (s *Store) updateActivitiesLocked(tripID string, activities []types.Activity) error {
	trip, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("update activities for trip %s: %w", tripID, store.ErrNotFound)
	}
	trip.Activities = copyActivities(activities)
	trip.UpdatedAt = bumpUpdatedAt(trip.UpdatedAt)
	return nil
}

func (s *Store) GetCollaborator(ctx context.Context, tripID, userID string) (*types.Collaborator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return nil, fmt.Errorf("get collaborator: trip %s: %w", tripID, store.ErrNotFound)
	}
	c, ok := trip.Collaborators[userID]
	if !ok {
		return nil, fmt.Errorf("get collaborator %s: %w", userID, store.ErrNotFound)
	}
	collab := c
	return &collab, nil
}

func (s *Store) UpdateCollaboratorRole(ctx context.Context, tripID, userID string, role types.CollaboratorRole) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateCollaboratorRoleLocked(tripID, userID, role)
}

func (s *Store) updateCollaboratorRoleLocked(tripID, userID string, role types.CollaboratorRole) error {
	trip, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("update role: trip %s: %w", tripID, store.ErrNotFound)
	}
	c, ok := trip.Collaborators[userID]
	if !ok {
		return fmt.Errorf("update role: collaborator %s: %w", userID, store.ErrNotFound)
	}
	c.Role = role
	trip.Collaborators[userID] = c
	trip.UpdatedAt = bumpUpdatedAt(trip.UpdatedAt)
	return nil
}

func (s *Store) SetCollaboratorStatus(ctx context.Context, tripID, userID string, status types.CollaboratorStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("set status: trip %s: %w", tripID, store.ErrNotFound)
	}
	c, ok := trip.Collaborators[userID]
	if !ok {
		return fmt.Errorf("set status: collaborator %s: %w", userID, store.ErrNotFound)
	}
	c.Status = status
	trip.Collaborators[userID] = c
	trip.UpdatedAt = bumpUpdatedAt(trip.UpdatedAt)
	return nil
}

func (s *Store) SetShareableLink(ctx context.Context, tripID, link string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return fmt.Errorf("set shareable link: trip %s: %w", tripID, store.ErrNotFound)
	}
	trip.ShareableLink = &link
	trip.UpdatedAt = bumpUpdatedAt(trip.UpdatedAt)
	return nil
}

// --- InvitationStore ---

func (s *Store) CreateInvitation(ctx context.Context, invitation *types.TripInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invitations[invitation.ID]; exists {
		return fmt.Errorf("create invitation %s: %w", invitation.ID, store.ErrDuplicate)
	}
	inv := *invitation
	s.invitations[inv.ID] = &inv
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (*types.TripInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invitations[id]
	if !ok {
		return nil, fmt.Errorf("get invitation %s: %w", id, store.ErrNotFound)
	}
	copied := *inv
	return &copied, nil
}

func (s *Store) ListInvitationsByTrip(ctx context.Context, tripID string) ([]*types.TripInvitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.TripInvitation
	for _, inv := range s.invitations {
		if inv.TripID == tripID {
			copied := *inv
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *Store) UpdateInvitationStatus(ctx context.Context, id string, status types.InvitationStatus, respondedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[id]
	if !ok {
		return fmt.Errorf("update invitation %s: %w", id, store.ErrNotFound)
	}
	if inv.Status != types.InvitationStatusPending {
		return fmt.Errorf("update invitation %s: %w", id, store.ErrAlreadyResolved)
	}
	inv.Status = status
	inv.RespondedAt = &respondedAt
	return nil
}

func (s *Store) AcceptInvitationTx(ctx context.Context, invitationID, inviteeID string, collaborator *types.Collaborator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[invitationID]
	if !ok {
		return fmt.Errorf("accept invitation %s: %w", invitationID, store.ErrNotFound)
	}
	if inv.Status != types.InvitationStatusPending {
		return fmt.Errorf("accept invitation %s: %w", invitationID, store.ErrAlreadyResolved)
	}
	trip, ok := s.trips[inv.TripID]
	if !ok {
		return fmt.Errorf("accept invitation: trip %s: %w", inv.TripID, store.ErrNotFound)
	}

	// All checks passed; apply every write together under the lock.
	now := time.Now().UTC()
	inv.Status = types.InvitationStatusAccepted
	inv.RespondedAt = &now
	inv.InviteeID = &inviteeID

	collab := *collaborator
	trip.Collaborators[collab.UserID] = collab
	trip.UpdatedAt = bumpUpdatedAt(trip.UpdatedAt)
	return nil
}

// --- RequestStore ---

func (s *Store) CreateEditRequest(ctx context.Context, req *types.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.editRequests[req.ID]; exists {
		return fmt.Errorf("create edit request %s: %w", req.ID, store.ErrDuplicate)
	}
	copied := *req
	s.editRequests[copied.ID] = &copied
	return nil
}

func (s *Store) GetEditRequest(ctx context.Context, id string) (*types.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.editRequests[id]
	if !ok {
		return nil, fmt.Errorf("get edit request %s: %w", id, store.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (s *Store) ListPendingEditRequests(ctx context.Context, tripID string) ([]*types.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.EditRequest
	for _, req := range s.editRequests {
		if req.TripID == tripID && req.Status == types.RequestStatusPending {
			copied := *req
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *Store) ResolveEditRequestTx(ctx context.Context, req *types.EditRequest, promote bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.editRequests[req.ID]
	if !ok {
		return fmt.Errorf("resolve edit request %s: %w", req.ID, store.ErrNotFound)
	}
	if stored.Status != types.RequestStatusPending {
		return fmt.Errorf("resolve edit request %s: %w", req.ID, store.ErrAlreadyResolved)
	}

	if promote {
		if err := s.updateCollaboratorRoleLocked(stored.TripID, stored.RequesterID, types.RoleEditor); err != nil {
			return err
		}
	}
	stored.Status = req.Status
	stored.RespondedAt = req.RespondedAt
	stored.RespondedBy = req.RespondedBy
	stored.ResponseMessage = req.ResponseMessage
	return nil
}

func (s *Store) CreateActivityEditRequest(ctx context.Context, req *types.ActivityEditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.activityRequests[req.ID]; exists {
		return fmt.Errorf("create activity edit request %s: %w", req.ID, store.ErrDuplicate)
	}
	copied := *req
	s.activityRequests[copied.ID] = &copied
	return nil
}

func (s *Store) GetActivityEditRequest(ctx context.Context, id string) (*types.ActivityEditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.activityRequests[id]
	if !ok {
		return nil, fmt.Errorf("get activity edit request %s: %w", id, store.ErrNotFound)
	}
	copied := *req
	return &copied, nil
}

func (s *Store) ListPendingActivityEditRequests(ctx context.Context, tripID string) ([]*types.ActivityEditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*types.ActivityEditRequest
	for _, req := range s.activityRequests {
		if req.TripID == tripID && req.Status == types.RequestStatusPending {
			copied := *req
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *Store) MarkActivityEditRequestResolved(ctx context.Context, req *types.ActivityEditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.activityRequests[req.ID]
	if !ok {
		return fmt.Errorf("mark activity edit request %s: %w", req.ID, store.ErrNotFound)
	}
	if stored.Status != types.RequestStatusPending {
		return fmt.Errorf("mark activity edit request %s: %w", req.ID, store.ErrAlreadyResolved)
	}
	stored.Status = req.Status
	stored.RespondedAt = req.RespondedAt
	stored.RespondedBy = req.RespondedBy
	stored.ResponseMessage = req.ResponseMessage
	return nil
}

func (s *Store) ApplyActivityEditRequestTx(ctx context.Context, req *types.ActivityEditRequest, activities []types.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.activityRequests[req.ID]
	if !ok {
		return fmt.Errorf("apply activity edit request %s: %w", req.ID, store.ErrNotFound)
	}
	if stored.Status != types.RequestStatusPending {
		return fmt.Errorf("apply activity edit request %s: %w", req.ID, store.ErrAlreadyResolved)
	}

	// Trip update is checked before the request flips, so a failure leaves
	// the request pending and retryable.
	if err := s.updateActivitiesLocked(stored.TripID, activities); err != nil {
		return err
	}

	stored.Status = types.RequestStatusApproved
	stored.RespondedAt = req.RespondedAt
	stored.RespondedBy = req.RespondedBy
	stored.ResponseMessage = req.ResponseMessage
	return nil
}

// --- helpers ---

// bumpUpdatedAt guarantees a strictly increasing timestamp even when the
// clock has not advanced between two mutations.
func bumpUpdatedAt(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func copyTrip(trip *types.SharedTrip) *types.SharedTrip {
	copied := *trip
	copied.Activities = copyActivities(trip.Activities)
	copied.Collaborators = make(map[string]types.Collaborator, len(trip.Collaborators))
	for k, v := range trip.Collaborators {
		copied.Collaborators[k] = v
	}
	if trip.ShareableLink != nil {
		link := *trip.ShareableLink
		copied.ShareableLink = &link
	}
	return &copied
}

func copyActivities(activities []types.Activity) []types.Activity {
	if activities == nil {
		return nil
	}
	copied := make([]types.Activity, len(activities))
	copy(copied, activities)
	return copied
}
