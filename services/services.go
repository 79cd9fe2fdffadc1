// Package services implements the collaboration workflows: invitations,
// role-promotion requests, proposed activity changes, and the owner's direct
// mutation path. Services compose the pure validation rules with the store's
// atomic operations; every mutation is a single read-current-state,
// compute-new-state, atomic-write round trip.
package services

import (
	"context"
	stderrors "errors"

	"github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/events"
	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
)

// loadTrip fetches the trip and translates store sentinels into the
// workflow error taxonomy.
func loadTrip(ctx context.Context, trips store.TripStore, tripID string) (*types.SharedTrip, error) {
	trip, err := trips.GetTrip(ctx, tripID)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.TripNotFound(tripID)
		}
		return nil, errors.NewDatabaseError(err)
	}
	return trip, nil
}

// publishEvent sends an advisory notification. Failures are logged and never
// surfaced: workflow correctness must not depend on delivery.
func publishEvent(ctx context.Context, pub types.EventPublisher, eventType types.EventType, tripID, userID string, payload any) {
	if pub == nil {
		return
	}
	event, err := events.NewEvent(eventType, tripID, userID, payload)
	if err != nil {
		logger.GetLogger().Errorw("Failed to build event", "type", eventType, "tripId", tripID, "error", err)
		return
	}
	if err := pub.Publish(ctx, tripID, event); err != nil {
		logger.GetLogger().Warnw("Failed to publish event", "type", eventType, "tripId", tripID, "error", err)
	}
}
