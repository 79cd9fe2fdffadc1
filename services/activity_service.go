package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tripweave/tripweave-core/auth"
	"github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/pkg/valueobjects"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
	"github.com/tripweave/tripweave-core/validation"
)

// ActivityService is the direct mutation path for callers with edit rights.
// Viewers are rejected and must go through the request workflows. Scheduling
// conflicts are returned for the caller to act on, never enforced.
type ActivityService struct {
	store     store.Store
	publisher types.EventPublisher
	expenses  ExpenseNotifier
}

func NewActivityService(s store.Store, publisher types.EventPublisher, expenses ExpenseNotifier) *ActivityService {
	return &ActivityService{store: s, publisher: publisher, expenses: expenses}
}

// AddActivity appends a new activity built from the change payload and
// re-sorts the list. Requires edit rights.
func (s *ActivityService) AddActivity(ctx context.Context, tripID string, changes types.ActivityChange) (*types.Activity, *validation.ConflictResult, error) {
	identity, trip, err := s.editableTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	built, err := changes.BuildActivity()
	if err != nil {
		return nil, nil, errors.InvalidChange("activity is invalid", err.Error())
	}
	built.ID = uuid.New().String()
	built.TripID = tripID

	conflict := validation.CheckConflicts(built, trip.Activities, "")
	sorted := validation.SortChronologically(append(copyActivityList(trip.Activities), built))

	if err := s.store.Trips().UpdateTripActivities(ctx, tripID, sorted); err != nil {
		return nil, nil, errors.NewDatabaseError(err)
	}

	publishEvent(ctx, s.publisher, types.EventTypeActivityAdded, tripID, identity.ID, built)
	return &built, &conflict, nil
}

// UpdateActivity merges the change payload into an existing activity.
// Requires edit rights.
func (s *ActivityService) UpdateActivity(ctx context.Context, tripID, activityID string, changes types.ActivityChange) (*types.Activity, *validation.ConflictResult, error) {
	identity, trip, err := s.editableTrip(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}

	target, idx := trip.FindActivity(activityID)
	if target == nil {
		return nil, nil, errors.NotFound("Activity", activityID)
	}
	if changes.IsEmpty() {
		return nil, nil, errors.InvalidChange("change is empty", types.ErrEmptyChange.Error())
	}

	merged := changes.ApplyTo(*target)
	if err := merged.Validate(); err != nil {
		return nil, nil, errors.InvalidChange("merged activity is invalid", err.Error())
	}

	conflict := validation.CheckConflicts(merged, trip.Activities, activityID)
	next := copyActivityList(trip.Activities)
	next[idx] = merged
	sorted := validation.SortChronologically(next)

	if err := s.store.Trips().UpdateTripActivities(ctx, tripID, sorted); err != nil {
		return nil, nil, errors.NewDatabaseError(err)
	}

	publishEvent(ctx, s.publisher, types.EventTypeActivityUpdated, tripID, identity.ID, merged)
	return &merged, &conflict, nil
}

// DeleteActivity removes an activity. Requires edit rights.
func (s *ActivityService) DeleteActivity(ctx context.Context, tripID, activityID string) error {
	identity, trip, err := s.editableTrip(ctx, tripID)
	if err != nil {
		return err
	}

	target, idx := trip.FindActivity(activityID)
	if target == nil {
		return errors.NotFound("Activity", activityID)
	}

	next := copyActivityList(trip.Activities)
	next = append(next[:idx], next[idx+1:]...)

	if err := s.store.Trips().UpdateTripActivities(ctx, tripID, next); err != nil {
		return errors.NewDatabaseError(err)
	}

	publishEvent(ctx, s.publisher, types.EventTypeActivityDeleted, tripID, identity.ID, target)
	return nil
}

// CheckInActivity flags an activity as checked in and notifies the expense
// collaborator with the activity's budget. The notification is fire and
// forget: its failure never rolls back the check-in.
func (s *ActivityService) CheckInActivity(ctx context.Context, tripID, activityID string) error {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return err
	}
	if !validation.IsMember(trip, identity.ID) {
		return errors.Unauthorized("not_member", "caller is not a member of this trip")
	}

	target, idx := trip.FindActivity(activityID)
	if target == nil {
		return errors.NotFound("Activity", activityID)
	}
	if target.CheckedIn {
		return errors.InvalidState("activity is already checked in", activityID)
	}

	next := copyActivityList(trip.Activities)
	next[idx].CheckedIn = true

	if err := s.store.Trips().UpdateTripActivities(ctx, tripID, next); err != nil {
		return errors.NewDatabaseError(err)
	}

	publishEvent(ctx, s.publisher, types.EventTypeActivityCheckedIn, tripID, identity.ID, next[idx])
	s.notifyExpenses(tripID, next[idx])
	return nil
}

// GenerateShareableLink mints and stores a join link for the trip.
// Owner-only.
func (s *ActivityService) GenerateShareableLink(ctx context.Context, tripID, baseURL string) (string, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return "", err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return "", err
	}
	if identity.ID != trip.OwnerID {
		return "", errors.Unauthorized("not_owner", "only the trip owner can generate a shareable link")
	}

	link := baseURL + "/join/" + uuid.New().String()
	if err := s.store.Trips().SetShareableLink(ctx, tripID, link); err != nil {
		return "", errors.NewDatabaseError(err)
	}
	return link, nil
}

func (s *ActivityService) editableTrip(ctx context.Context, tripID string) (auth.Identity, *types.SharedTrip, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return auth.Identity{}, nil, err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return auth.Identity{}, nil, err
	}
	if !validation.ResolveRole(trip, identity.ID).CanEdit() {
		return auth.Identity{}, nil, errors.Unauthorized("cannot_edit", "caller cannot edit this trip directly")
	}
	return identity, trip, nil
}

func (s *ActivityService) notifyExpenses(tripID string, activity types.Activity) {
	if s.expenses == nil || activity.Budget == nil {
		return
	}
	amount, err := valueobjects.NewMoney(activity.Budget.Amount, valueobjects.Currency(activity.Budget.Currency))
	if err != nil {
		logger.GetLogger().Warnw("Skipping expense notification, budget is not a valid amount",
			"tripId", tripID, "activityId", activity.ID, "error", err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.expenses.NotifyActivityCheckedIn(ctx, tripID, activity.ID, amount); err != nil {
			logger.GetLogger().Errorw("Expense notification failed",
				"tripId", tripID, "activityId", activity.ID, "error", err)
		}
	}()
}
