package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(hour int) *time.Time {
	t := time.Date(2026, time.June, 10, hour, 0, 0, 0, time.UTC)
	return &t
}

func sp(s string) *string { return &s }

func TestActivityChangeApplyTo(t *testing.T) {
	base := Activity{
		ID:        "act-1",
		TripID:    "trip-1",
		Title:     "Castle tour",
		Type:      ActivityTypeSightseeing,
		StartTime: ts(9),
		EndTime:   ts(10),
	}

	t.Run("nil fields stay untouched", func(t *testing.T) {
		change := ActivityChange{Title: sp("Palace tour")}
		merged := change.ApplyTo(base)

		assert.Equal(t, "Palace tour", merged.Title)
		assert.Equal(t, ActivityTypeSightseeing, merged.Type)
		assert.Equal(t, ts(9), merged.StartTime)
		assert.Equal(t, "Castle tour", base.Title)
	})

	t.Run("set fields replace", func(t *testing.T) {
		food := ActivityTypeFood
		change := ActivityChange{
			Type:      &food,
			StartTime: ts(12),
			EndTime:   ts(13),
			Location:  &Location{Address: "Praça do Comércio"},
		}
		merged := change.ApplyTo(base)

		assert.Equal(t, ActivityTypeFood, merged.Type)
		assert.Equal(t, ts(12), merged.StartTime)
		assert.Equal(t, ts(13), merged.EndTime)
		require.NotNil(t, merged.Location)
		assert.Equal(t, "Praça do Comércio", merged.Location.Address)
	})
}

func TestActivityChangeIsEmpty(t *testing.T) {
	assert.True(t, (&ActivityChange{}).IsEmpty())
	assert.False(t, (&ActivityChange{Description: sp("x")}).IsEmpty())
}

func TestBuildActivity(t *testing.T) {
	t.Run("defaults to the Other type", func(t *testing.T) {
		change := ActivityChange{Title: sp("Mystery stop")}
		built, err := change.BuildActivity()
		require.NoError(t, err)
		assert.Equal(t, ActivityTypeOther, built.Type)
		assert.Empty(t, built.ID)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := (&ActivityChange{}).BuildActivity()
		assert.ErrorIs(t, err, ErrEmptyChange)
	})

	t.Run("title required", func(t *testing.T) {
		_, err := (&ActivityChange{Description: sp("no title")}).BuildActivity()
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("end before start", func(t *testing.T) {
		change := ActivityChange{Title: sp("Backwards"), StartTime: ts(15), EndTime: ts(14)}
		_, err := change.BuildActivity()
		assert.ErrorIs(t, err, ErrEndBeforeStart)
	})
}

func TestInvitationIsExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&TripInvitation{}).IsExpired(now))
	assert.False(t, (&TripInvitation{ExpiresAt: &future}).IsExpired(now))
	assert.True(t, (&TripInvitation{ExpiresAt: &past}).IsExpired(now))
}

func TestSharedTripLookups(t *testing.T) {
	trip := &SharedTrip{
		ID:      "trip-1",
		OwnerID: "user-owner",
		Activities: []Activity{
			{ID: "act-1", Title: "Castle tour"},
			{ID: "act-2", Title: "Lunch"},
		},
		Collaborators: map[string]Collaborator{
			"user-active": {
				UserID: "user-active",
				Email:  "active@example.com",
				Role:   RoleEditor,
				Status: CollaboratorStatusActive,
			},
			"user-gone": {
				UserID: "user-gone",
				Email:  "gone@example.com",
				Role:   RoleViewer,
				Status: CollaboratorStatusInactive,
			},
		},
	}

	t.Run("active collaborator by ID", func(t *testing.T) {
		require.NotNil(t, trip.ActiveCollaborator("user-active"))
		assert.Nil(t, trip.ActiveCollaborator("user-gone"))
		assert.Nil(t, trip.ActiveCollaborator("user-unknown"))
	})

	t.Run("active collaborator by email ignores case", func(t *testing.T) {
		require.NotNil(t, trip.ActiveCollaboratorByEmail("Active@Example.com"))
		assert.Nil(t, trip.ActiveCollaboratorByEmail("gone@example.com"))
	})

	t.Run("find activity", func(t *testing.T) {
		a, idx := trip.FindActivity("act-2")
		require.NotNil(t, a)
		assert.Equal(t, 1, idx)
		a, idx = trip.FindActivity("act-missing")
		assert.Nil(t, a)
		assert.Equal(t, -1, idx)
	})
}
