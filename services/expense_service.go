package services

import (
	"context"

	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/pkg/valueobjects"
)

// ExpenseNotifier receives check-in notifications so checked-in budgets can
// flow into expense tracking. Implementations must tolerate being called
// after the activity mutation committed; errors are logged, never rolled
// back into the trip.
type ExpenseNotifier interface {
	NotifyActivityCheckedIn(ctx context.Context, tripID, activityID string, amount *valueobjects.Money) error
}

// LoggingExpenseNotifier is the default notifier. It records the check-in in
// the structured log and nothing else.
type LoggingExpenseNotifier struct{}

func NewLoggingExpenseNotifier() *LoggingExpenseNotifier {
	return &LoggingExpenseNotifier{}
}

func (n *LoggingExpenseNotifier) NotifyActivityCheckedIn(_ context.Context, tripID, activityID string, amount *valueobjects.Money) error {
	log := logger.GetLogger()
	if amount == nil {
		log.Infow("Activity checked in", "tripId", tripID, "activityId", activityID)
		return nil
	}
	log.Infow("Activity checked in",
		"tripId", tripID,
		"activityId", activityID,
		"amount", amount.String())
	return nil
}
