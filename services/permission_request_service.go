package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"github.com/tripweave/tripweave-core/auth"
	"github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
	"github.com/tripweave/tripweave-core/validation"
)

// PermissionRequestService runs the viewer-to-editor promotion workflow:
// pending, then approved or rejected, both terminal.
type PermissionRequestService struct {
	store     store.Store
	publisher types.EventPublisher
}

func NewPermissionRequestService(s store.Store, publisher types.EventPublisher) *PermissionRequestService {
	return &PermissionRequestService{store: s, publisher: publisher}
}

// Request files a promotion request. Only viewers request promotion; a
// caller who can already edit gets Unauthorized.
func (s *PermissionRequestService) Request(ctx context.Context, tripID, message string) (*types.EditRequest, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, err
	}
	if !validation.IsMember(trip, identity.ID) {
		return nil, errors.Unauthorized("not_member", "caller is not a member of this trip")
	}
	if validation.ResolveRole(trip, identity.ID).CanEdit() {
		return nil, errors.Unauthorized("already_editor", "caller already has edit rights")
	}

	pending, err := s.store.Requests().ListPendingEditRequests(ctx, tripID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	for _, req := range pending {
		if req.RequesterID == identity.ID {
			conflictErr := errors.NewConflictError("a promotion request is already pending", req.ID)
			conflictErr.Code = "DUPLICATE_PENDING"
			return nil, conflictErr
		}
	}

	request := &types.EditRequest{
		ID:             uuid.New().String(),
		TripID:         tripID,
		RequesterID:    identity.ID,
		RequesterEmail: identity.Email,
		OwnerID:        trip.OwnerID,
		Status:         types.RequestStatusPending,
		Message:        message,
		RequestedAt:    time.Now().UTC(),
	}

	if err := s.store.Requests().CreateEditRequest(ctx, request); err != nil {
		if stderrors.Is(err, store.ErrDuplicate) {
			conflictErr := errors.NewConflictError("a promotion request is already pending", "")
			conflictErr.Code = "DUPLICATE_PENDING"
			return nil, conflictErr
		}
		return nil, errors.NewDatabaseError(err)
	}

	logger.GetLogger().Infow("Promotion request filed",
		"tripId", tripID, "requestId", request.ID, "requesterId", identity.ID)
	publishEvent(ctx, s.publisher, types.EventTypeEditRequestCreated, tripID, identity.ID, request)

	return request, nil
}

// Resolve records the owner's verdict. On approval with promote, the
// requester's role flips to editor in the same transaction that marks the
// request resolved.
func (s *PermissionRequestService) Resolve(ctx context.Context, requestID string, decision types.RequestDecision, promote bool, responseMessage string) (*types.EditRequest, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if decision != types.DecisionApproved && decision != types.DecisionRejected {
		return nil, errors.ValidationFailed("invalid decision", string(decision))
	}

	request, err := s.store.Requests().GetEditRequest(ctx, requestID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("Edit request", requestID)
		}
		return nil, errors.NewDatabaseError(err)
	}

	trip, err := loadTrip(ctx, s.store.Trips(), request.TripID)
	if err != nil {
		return nil, err
	}
	if identity.ID != trip.OwnerID {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can resolve promotion requests")
	}
	if request.Status.IsTerminal() {
		return nil, errors.InvalidState("request is already resolved", string(request.Status))
	}

	now := time.Now().UTC()
	request.Status = types.RequestStatus(decision)
	request.RespondedAt = &now
	request.RespondedBy = &identity.ID
	if responseMessage != "" {
		request.ResponseMessage = &responseMessage
	}

	doPromote := decision == types.DecisionApproved && promote
	if err := s.store.Requests().ResolveEditRequestTx(ctx, request, doPromote); err != nil {
		switch {
		case stderrors.Is(err, store.ErrAlreadyResolved):
			return nil, errors.InvalidState("request is already resolved", "")
		case stderrors.Is(err, store.ErrNotFound):
			return nil, errors.NotFound("Collaborator", request.RequesterID)
		default:
			return nil, errors.NewDatabaseError(err)
		}
	}

	logger.GetLogger().Infow("Promotion request resolved",
		"requestId", requestID, "decision", decision, "promoted", doPromote)

	publishEvent(ctx, s.publisher, types.EventTypeEditRequestResolved, request.TripID, identity.ID, request)
	if doPromote {
		publishEvent(ctx, s.publisher, types.EventTypeRolePromoted, request.TripID, identity.ID,
			types.RolePromotedEvent{
				RequestID: requestID,
				UserID:    request.RequesterID,
				OldRole:   types.RoleViewer,
				NewRole:   types.RoleEditor,
				UpdatedBy: identity.ID,
			})
	}

	return request, nil
}

// ListPending returns the trip's open promotion requests. Owner-only.
func (s *PermissionRequestService) ListPending(ctx context.Context, tripID string) ([]*types.EditRequest, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, err
	}
	if identity.ID != trip.OwnerID {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can list promotion requests")
	}

	pending, err := s.store.Requests().ListPendingEditRequests(ctx, tripID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return pending, nil
}
