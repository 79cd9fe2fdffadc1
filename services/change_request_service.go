package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripweave/tripweave-core/auth"
	"github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
	"github.com/tripweave/tripweave-core/validation"
)

// ChangeRequestService runs the proposed-change workflow: a non-owner files
// an add/edit/delete proposal, the owner approves or rejects it, and an
// approved change is applied to the canonical activity list exactly once.
type ChangeRequestService struct {
	store     store.Store
	publisher types.EventPublisher
}

func NewChangeRequestService(s store.Store, publisher types.EventPublisher) *ChangeRequestService {
	return &ChangeRequestService{store: s, publisher: publisher}
}

// Propose files a pending activity change. Viewers cannot propose; they go
// through the promotion workflow first. The scheduling check runs against
// the would-be resulting state and its summary is attached to the stored
// message for the owner, as advisory context only.
func (s *ChangeRequestService) Propose(ctx context.Context, tripID string, requestType types.ActivityRequestType, activityID *string, changes types.ActivityChange, message string) (*types.ActivityEditRequest, *validation.ConflictResult, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !requestType.IsValid() {
		return nil, nil, errors.ValidationFailed("invalid request type", string(requestType))
	}

	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, nil, err
	}
	role := validation.ResolveRole(trip, identity.ID)
	if !role.CanEdit() {
		return nil, nil, errors.Unauthorized("cannot_propose",
			"viewers cannot propose activity changes; request edit access first")
	}

	conflict := &validation.ConflictResult{}
	switch requestType {
	case types.RequestTypeAddActivity:
		built, err := changes.BuildActivity()
		if err != nil {
			return nil, nil, errors.InvalidChange("proposed activity is invalid", err.Error())
		}
		*conflict = validation.CheckConflicts(built, trip.Activities, "")

	case types.RequestTypeEditActivity, types.RequestTypeDeleteActivity:
		if activityID == nil || *activityID == "" {
			return nil, nil, errors.ValidationFailed("missing activity ID", string(requestType)+" requires a target activity")
		}
		target, _ := trip.FindActivity(*activityID)
		if target == nil {
			return nil, nil, errors.NotFound("Activity", *activityID)
		}
		if requestType == types.RequestTypeEditActivity {
			if changes.IsEmpty() {
				return nil, nil, errors.InvalidChange("proposed change is empty", types.ErrEmptyChange.Error())
			}
			merged := changes.ApplyTo(*target)
			if err := merged.Validate(); err != nil {
				return nil, nil, errors.InvalidChange("merged activity is invalid", err.Error())
			}
			*conflict = validation.CheckConflicts(merged, trip.Activities, *activityID)
		}
	}

	storedMessage := message
	if conflict.HasConflicts {
		storedMessage = appendConflictNote(storedMessage, conflict.Summary)
	}

	request := &types.ActivityEditRequest{
		ID:          uuid.New().String(),
		TripID:      tripID,
		RequesterID: identity.ID,
		OwnerID:     trip.OwnerID,
		RequestType: requestType,
		ActivityID:  activityID,
		Changes:     changes,
		Status:      types.RequestStatusPending,
		Message:     storedMessage,
		RequestedAt: time.Now().UTC(),
	}

	if err := s.store.Requests().CreateActivityEditRequest(ctx, request); err != nil {
		return nil, nil, errors.NewDatabaseError(err)
	}

	logger.GetLogger().Infow("Activity change proposed",
		"tripId", tripID,
		"requestId", request.ID,
		"type", requestType,
		"hasConflicts", conflict.HasConflicts)
	publishEvent(ctx, s.publisher, types.EventTypeActivityEditRequestCreated, tripID, identity.ID, request)

	return request, conflict, nil
}

// Resolve records the owner's verdict on a proposed change. Rejection only
// flips the status. Approval re-validates scheduling against the current
// trip (recorded, never blocking), applies the change, re-sorts the list
// chronologically, and persists trip and status in one atomic write: if the
// persist fails the request stays pending, so a retry is safe and the change
// is never applied twice.
func (s *ChangeRequestService) Resolve(ctx context.Context, requestID string, decision types.RequestDecision, responseMessage string) (*types.ActivityEditRequest, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if decision != types.DecisionApproved && decision != types.DecisionRejected {
		return nil, errors.ValidationFailed("invalid decision", string(decision))
	}

	request, err := s.store.Requests().GetActivityEditRequest(ctx, requestID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("Activity edit request", requestID)
		}
		return nil, errors.NewDatabaseError(err)
	}

	trip, err := loadTrip(ctx, s.store.Trips(), request.TripID)
	if err != nil {
		return nil, err
	}
	if identity.ID != trip.OwnerID {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can resolve change requests")
	}
	if request.Status.IsTerminal() {
		return nil, errors.InvalidState("request is already resolved", string(request.Status))
	}

	now := time.Now().UTC()
	request.RespondedAt = &now
	request.RespondedBy = &identity.ID

	if decision == types.DecisionRejected {
		request.Status = types.RequestStatusRejected
		if responseMessage != "" {
			request.ResponseMessage = &responseMessage
		}
		if err := s.store.Requests().MarkActivityEditRequestResolved(ctx, request); err != nil {
			if stderrors.Is(err, store.ErrAlreadyResolved) {
				return nil, errors.InvalidState("request is already resolved", "")
			}
			return nil, errors.NewDatabaseError(err)
		}
		publishEvent(ctx, s.publisher, types.EventTypeActivityEditRequestResolved, request.TripID, identity.ID,
			resolvedEventPayload(request, types.DecisionRejected, identity.ID))
		return request, nil
	}

	// The trip may have changed since the request was filed, so the new
	// activity list is computed from the current state.
	newActivities, conflict, err := applyChange(trip, request)
	if err != nil {
		// The request stays pending: the owner can reject it, or retry
		// after the payload or trip state is corrected.
		return nil, err
	}

	request.Status = types.RequestStatusApproved
	if conflict.HasConflicts {
		responseMessage = appendConflictNote(responseMessage, conflict.Summary)
	}
	if responseMessage != "" {
		request.ResponseMessage = &responseMessage
	}

	sorted := validation.SortChronologically(newActivities)
	if err := s.store.Requests().ApplyActivityEditRequestTx(ctx, request, sorted); err != nil {
		if stderrors.Is(err, store.ErrAlreadyResolved) {
			return nil, errors.InvalidState("request is already resolved", "")
		}
		return nil, errors.NewDatabaseError(err)
	}

	logger.GetLogger().Infow("Activity change approved and applied",
		"tripId", request.TripID,
		"requestId", requestID,
		"type", request.RequestType,
		"newConflicts", conflict.HasConflicts)

	publishEvent(ctx, s.publisher, types.EventTypeActivityEditRequestResolved, request.TripID, identity.ID,
		resolvedEventPayload(request, types.DecisionApproved, identity.ID))
	publishEvent(ctx, s.publisher, types.EventTypeTripUpdated, request.TripID, identity.ID, nil)

	return request, nil
}

// ListPending returns the trip's open change requests. Owner-only.
func (s *ChangeRequestService) ListPending(ctx context.Context, tripID string) ([]*types.ActivityEditRequest, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, err
	}
	if identity.ID != trip.OwnerID {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can list change requests")
	}

	pending, err := s.store.Requests().ListPendingActivityEditRequests(ctx, tripID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return pending, nil
}

// applyChange computes the trip's next activity list for an approved
// request. Structural problems (missing target, malformed payload) are
// InvalidChange: terminal to this call, but the request stays pending.
func applyChange(trip *types.SharedTrip, request *types.ActivityEditRequest) ([]types.Activity, validation.ConflictResult, error) {
	var none validation.ConflictResult

	switch request.RequestType {
	case types.RequestTypeAddActivity:
		built, err := request.Changes.BuildActivity()
		if err != nil {
			return nil, none, errors.InvalidChange("proposed activity is invalid", err.Error())
		}
		built.ID = uuid.New().String()
		built.TripID = trip.ID
		conflict := validation.CheckConflicts(built, trip.Activities, "")
		return append(copyActivityList(trip.Activities), built), conflict, nil

	case types.RequestTypeEditActivity:
		target, idx := trip.FindActivity(deref(request.ActivityID))
		if target == nil {
			return nil, none, errors.InvalidChange("target activity no longer exists", deref(request.ActivityID))
		}
		merged := request.Changes.ApplyTo(*target)
		if err := merged.Validate(); err != nil {
			return nil, none, errors.InvalidChange("merged activity is invalid", err.Error())
		}
		conflict := validation.CheckConflicts(merged, trip.Activities, merged.ID)
		next := copyActivityList(trip.Activities)
		next[idx] = merged
		return next, conflict, nil

	case types.RequestTypeDeleteActivity:
		target, idx := trip.FindActivity(deref(request.ActivityID))
		if target == nil {
			return nil, none, errors.InvalidChange("target activity no longer exists", deref(request.ActivityID))
		}
		next := copyActivityList(trip.Activities)
		return append(next[:idx], next[idx+1:]...), none, nil

	default:
		return nil, none, errors.InvalidChange("unknown request type", string(request.RequestType))
	}
}

func resolvedEventPayload(request *types.ActivityEditRequest, decision types.RequestDecision, resolvedBy string) types.ActivityEditResolvedEvent {
	return types.ActivityEditResolvedEvent{
		RequestID:   request.ID,
		RequestType: request.RequestType,
		Decision:    decision,
		ActivityID:  deref(request.ActivityID),
		ResolvedBy:  resolvedBy,
	}
}

func appendConflictNote(message, summary string) string {
	note := fmt.Sprintf("Scheduling note: %s", summary)
	if message == "" {
		return note
	}
	return message + "\n" + note
}

func copyActivityList(activities []types.Activity) []types.Activity {
	next := make([]types.Activity, len(activities))
	copy(next, activities)
	return next
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
