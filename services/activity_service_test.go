package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/pkg/valueobjects"
	"github.com/tripweave/tripweave-core/store/memory"
	"github.com/tripweave/tripweave-core/types"
)

type recordedCheckIn struct {
	tripID     string
	activityID string
	amount     *valueobjects.Money
}

type recordingExpenseNotifier struct {
	notified chan recordedCheckIn
}

func newRecordingExpenseNotifier() *recordingExpenseNotifier {
	return &recordingExpenseNotifier{notified: make(chan recordedCheckIn, 1)}
}

func (r *recordingExpenseNotifier) NotifyActivityCheckedIn(_ context.Context, tripID, activityID string, amount *valueobjects.Money) error {
	r.notified <- recordedCheckIn{tripID: tripID, activityID: activityID, amount: amount}
	return nil
}

func TestAddActivity(t *testing.T) {
	t.Run("viewer cannot add", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		_, _, err := svc.AddActivity(identityCtx(viewerID, viewerEmail), testTripID,
			types.ActivityChange{Title: strPtr("Tram ride")})
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "cannot_edit", appErr.Code)
	})

	t.Run("editor adds and the list stays sorted", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)
		transport := types.ActivityTypeTransport

		added, conflict, err := svc.AddActivity(identityCtx(editorID, editorEmail), testTripID,
			types.ActivityChange{
				Title:     strPtr("Tram 28"),
				Type:      &transport,
				StartTime: timeAt(10, 15),
				EndTime:   timeAt(10, 45),
			})
		require.NoError(t, err)
		assert.False(t, conflict.HasConflicts)
		assert.NotEmpty(t, added.ID)

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		require.Len(t, trip.Activities, 3)
		assert.Equal(t, []string{"act-morning", added.ID, "act-lunch"},
			[]string{trip.Activities[0].ID, trip.Activities[1].ID, trip.Activities[2].ID})
	})

	t.Run("overlap is advisory", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		_, conflict, err := svc.AddActivity(identityCtx(ownerID, ownerEmail), testTripID,
			types.ActivityChange{
				Title:     strPtr("Walking tour"),
				StartTime: timeAt(9, 30),
				EndTime:   timeAt(11, 30),
			})
		require.NoError(t, err)
		assert.True(t, conflict.HasConflicts)
		assert.NotEmpty(t, conflict.Summary)

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		assert.Len(t, trip.Activities, 3)
	})

	t.Run("missing title", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		_, _, err := svc.AddActivity(identityCtx(ownerID, ownerEmail), testTripID,
			types.ActivityChange{Description: strPtr("no title")})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidChangeError))
	})
}

func TestUpdateActivity(t *testing.T) {
	t.Run("owner updates in place", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		updated, conflict, err := svc.UpdateActivity(identityCtx(ownerID, ownerEmail), testTripID, "act-lunch",
			types.ActivityChange{Title: strPtr("Mercado da Ribeira")})
		require.NoError(t, err)
		assert.Equal(t, "Mercado da Ribeira", updated.Title)
		assert.False(t, conflict.HasConflicts)

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		assert.Equal(t, "Mercado da Ribeira", trip.Activities[1].Title)
	})

	t.Run("empty change", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		_, _, err := svc.UpdateActivity(identityCtx(ownerID, ownerEmail), testTripID, "act-lunch", types.ActivityChange{})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidChangeError))
	})

	t.Run("unknown activity", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		_, _, err := svc.UpdateActivity(identityCtx(ownerID, ownerEmail), testTripID, "act-missing",
			types.ActivityChange{Title: strPtr("x")})
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
	})
}

func TestDeleteActivity(t *testing.T) {
	s := newTestStore(t)
	svc := NewActivityService(s, nil, nil)

	err := svc.DeleteActivity(identityCtx(viewerID, viewerEmail), testTripID, "act-lunch")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ForbiddenError))

	require.NoError(t, svc.DeleteActivity(identityCtx(editorID, editorEmail), testTripID, "act-lunch"))

	trip, err := s.GetTrip(context.Background(), testTripID)
	require.NoError(t, err)
	require.Len(t, trip.Activities, 1)
	assert.Equal(t, "act-morning", trip.Activities[0].ID)

	err = svc.DeleteActivity(identityCtx(editorID, editorEmail), testTripID, "act-lunch")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
}

func TestCheckInActivity(t *testing.T) {
	seedBudget := func(t *testing.T, s *memory.Store) {
		t.Helper()
		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		trip.Activities[0].Budget = &types.Budget{Amount: decimal.RequireFromString("25.50"), Currency: "EUR"}
		require.NoError(t, s.UpdateTripActivities(context.Background(), testTripID, trip.Activities))
	}

	t.Run("member check-in notifies the expense channel", func(t *testing.T) {
		s := newTestStore(t)
		seedBudget(t, s)
		expenses := newRecordingExpenseNotifier()
		svc := NewActivityService(s, nil, expenses)

		// Viewers are members; check-in is not an edit.
		require.NoError(t, svc.CheckInActivity(identityCtx(viewerID, viewerEmail), testTripID, "act-morning"))

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		assert.True(t, trip.Activities[0].CheckedIn)

		select {
		case got := <-expenses.notified:
			assert.Equal(t, testTripID, got.tripID)
			assert.Equal(t, "act-morning", got.activityID)
			require.NotNil(t, got.amount)
			assert.Equal(t, "25.5 EUR", got.amount.String())
		case <-time.After(2 * time.Second):
			t.Fatal("expense notifier was never called")
		}
	})

	t.Run("double check-in fails", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)
		ctx := identityCtx(editorID, editorEmail)

		require.NoError(t, svc.CheckInActivity(ctx, testTripID, "act-lunch"))
		err := svc.CheckInActivity(ctx, testTripID, "act-lunch")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))
	})

	t.Run("non-member cannot check in", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewActivityService(s, nil, nil)

		err := svc.CheckInActivity(identityCtx("user-stranger", "stranger@example.com"), testTripID, "act-morning")
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "not_member", appErr.Code)
	})
}

func TestGenerateShareableLink(t *testing.T) {
	s := newTestStore(t)
	svc := NewActivityService(s, nil, nil)

	_, err := svc.GenerateShareableLink(identityCtx(editorID, editorEmail), testTripID, "https://app.tripweave.io")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ForbiddenError))

	link, err := svc.GenerateShareableLink(identityCtx(ownerID, ownerEmail), testTripID, "https://app.tripweave.io")
	require.NoError(t, err)
	assert.Contains(t, link, "https://app.tripweave.io/join/")

	trip, err := s.GetTrip(context.Background(), testTripID)
	require.NoError(t, err)
	require.NotNil(t, trip.ShareableLink)
	assert.Equal(t, link, *trip.ShareableLink)
}
