package validation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweave/tripweave-core/types"
)

func scheduled(title string, start, end time.Time) types.Activity {
	return types.Activity{
		ID:        uuid.NewString(),
		Title:     title,
		Type:      types.ActivityTypeSightseeing,
		StartTime: &start,
		EndTime:   &end,
	}
}

func undated(title string) types.Activity {
	return types.Activity{
		ID:    uuid.NewString(),
		Title: title,
		Type:  types.ActivityTypeNote,
	}
}

func at(hour, min int) time.Time {
	return time.Date(2025, time.June, 14, hour, min, 0, 0, time.UTC)
}

func TestCheckConflicts_OverlappingIntervals(t *testing.T) {
	museum := scheduled("Museum visit", at(9, 0), at(10, 30))
	lunch := scheduled("Lunch", at(10, 0), at(11, 0))

	result := CheckConflicts(museum, []types.Activity{lunch}, "")

	assert.True(t, result.HasConflicts)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, lunch.ID, result.Conflicts[0].ID)
	assert.Contains(t, result.Summary, "Museum visit")
	assert.Contains(t, result.Summary, "Lunch")
}

func TestCheckConflicts_Symmetric(t *testing.T) {
	a := scheduled("A", at(9, 0), at(10, 30))
	b := scheduled("B", at(10, 0), at(11, 0))

	ab := CheckConflicts(a, []types.Activity{b}, "")
	ba := CheckConflicts(b, []types.Activity{a}, "")

	assert.Equal(t, ab.HasConflicts, ba.HasConflicts)
	assert.True(t, ab.HasConflicts)
}

func TestCheckConflicts_TouchingEndpointsDoNotConflict(t *testing.T) {
	breakfast := scheduled("Breakfast", at(9, 0), at(10, 0))
	tour := scheduled("Walking tour", at(10, 0), at(12, 0))

	result := CheckConflicts(tour, []types.Activity{breakfast}, "")

	assert.False(t, result.HasConflicts)
	assert.Empty(t, result.Conflicts)
}

func TestCheckConflicts_ContainedInterval(t *testing.T) {
	allDay := scheduled("Day trip", at(8, 0), at(18, 0))
	coffee := scheduled("Coffee", at(10, 0), at(10, 30))

	result := CheckConflicts(coffee, []types.Activity{allDay}, "")
	assert.True(t, result.HasConflicts)
}

func TestCheckConflicts_UndatedActivitiesNeverConflict(t *testing.T) {
	note := undated("Packing list")
	dinner := scheduled("Dinner", at(19, 0), at(21, 0))

	// Undated candidate: nothing to check.
	assert.False(t, CheckConflicts(note, []types.Activity{dinner}, "").HasConflicts)

	// Undated existing entries are never conflict sources.
	assert.False(t, CheckConflicts(dinner, []types.Activity{note}, "").HasConflicts)

	// Start without end is also not a conflict source.
	half := dinner
	half.EndTime = nil
	assert.False(t, CheckConflicts(scheduled("X", at(19, 30), at(20, 0)), []types.Activity{half}, "").HasConflicts)
}

func TestCheckConflicts_ExcludesSelfDuringEdit(t *testing.T) {
	original := scheduled("Concert", at(20, 0), at(22, 0))

	// Editing the concert's own time window must not conflict with its
	// stored version.
	edited := original
	newStart := at(20, 30)
	newEnd := at(22, 30)
	edited.StartTime = &newStart
	edited.EndTime = &newEnd

	result := CheckConflicts(edited, []types.Activity{original}, original.ID)
	assert.False(t, result.HasConflicts)
}

func TestCheckConflicts_ZeroLengthActivity(t *testing.T) {
	checkout := scheduled("Hotel checkout", at(11, 0), at(11, 0))
	brunch := scheduled("Brunch", at(10, 0), at(12, 0))

	// A zero-length point still conflicts when it falls inside a window.
	assert.True(t, CheckConflicts(checkout, []types.Activity{brunch}, "").HasConflicts)

	// But not when it sits exactly on a boundary.
	boundary := scheduled("Checkout at boundary", at(12, 0), at(12, 0))
	assert.False(t, CheckConflicts(boundary, []types.Activity{brunch}, "").HasConflicts)
}

func TestSortChronologically(t *testing.T) {
	early := scheduled("Early", at(8, 0), at(9, 0))
	late := scheduled("Late", at(15, 0), at(16, 0))
	noteA := undated("Note A")
	noteB := undated("Note B")

	sorted := SortChronologically([]types.Activity{noteA, late, noteB, early})

	require.Len(t, sorted, 4)
	assert.Equal(t, "Early", sorted[0].Title)
	assert.Equal(t, "Late", sorted[1].Title)
	// Undated activities land last, preserving their relative input order.
	assert.Equal(t, "Note A", sorted[2].Title)
	assert.Equal(t, "Note B", sorted[3].Title)
}

func TestSortChronologically_Idempotent(t *testing.T) {
	input := []types.Activity{
		scheduled("One", at(9, 0), at(10, 0)),
		scheduled("Two", at(11, 0), at(12, 0)),
		undated("Note"),
	}

	once := SortChronologically(input)
	twice := SortChronologically(once)
	assert.Equal(t, once, twice)
}

func TestSortChronologically_StableForEqualStarts(t *testing.T) {
	a := scheduled("First in", at(9, 0), at(10, 0))
	b := scheduled("Second in", at(9, 0), at(11, 0))

	sorted := SortChronologically([]types.Activity{a, b})
	assert.Equal(t, "First in", sorted[0].Title)
	assert.Equal(t, "Second in", sorted[1].Title)
}

func TestSortChronologically_DoesNotMutateInput(t *testing.T) {
	late := scheduled("Late", at(15, 0), at(16, 0))
	early := scheduled("Early", at(8, 0), at(9, 0))
	input := []types.Activity{late, early}

	_ = SortChronologically(input)
	assert.Equal(t, "Late", input[0].Title)
}
