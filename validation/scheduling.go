package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tripweave/tripweave-core/types"
)

// ConflictResult reports time-overlap conflicts between a candidate activity
// and the rest of the itinerary. It is advisory: a conflict is a normal,
// successful return that the caller decides how to act on, never an error.
type ConflictResult struct {
	HasConflicts bool             `json:"hasConflicts"`
	Conflicts    []types.Activity `json:"conflicts,omitempty"`
	Summary      string           `json:"summary"`
}

// CheckConflicts detects scheduling conflicts between the candidate and the
// existing activities. Activities missing a start or end instant are never
// conflict sources, and excludeID skips the candidate's own stored version
// during an edit.
//
// Intervals are half-open: [s1,e1) and [s2,e2) conflict iff s1 < e2 && s2 < e1.
// Touching endpoints do not conflict.
func CheckConflicts(candidate types.Activity, existing []types.Activity, excludeID string) ConflictResult {
	if !candidate.HasSchedule() {
		return ConflictResult{Summary: "no schedule to check"}
	}

	var conflicts []types.Activity
	for _, other := range existing {
		if other.ID == excludeID || other.ID == candidate.ID {
			continue
		}
		if !other.HasSchedule() {
			continue
		}
		if candidate.StartTime.Before(*other.EndTime) && other.StartTime.Before(*candidate.EndTime) {
			conflicts = append(conflicts, other)
		}
	}

	if len(conflicts) == 0 {
		return ConflictResult{Summary: "no scheduling conflicts"}
	}

	titles := make([]string, len(conflicts))
	for i, c := range conflicts {
		titles[i] = fmt.Sprintf("%q (%s - %s)",
			c.Title,
			c.StartTime.Format("Jan 2 15:04"),
			c.EndTime.Format("15:04"),
		)
	}

	return ConflictResult{
		HasConflicts: true,
		Conflicts:    conflicts,
		Summary: fmt.Sprintf("%q overlaps %d existing %s: %s",
			candidate.Title,
			len(conflicts),
			pluralize("activity", "activities", len(conflicts)),
			strings.Join(titles, ", "),
		),
	}
}

// SortChronologically returns a new slice ordered ascending by start
// instant. Activities without a start instant land after all dated ones and
// keep their relative input order among themselves; the sort is stable, so
// dated activities with equal starts also keep their input order. This
// ordering drives timeline rendering and must stay reproducible.
func SortChronologically(activities []types.Activity) []types.Activity {
	sorted := make([]types.Activity, len(activities))
	copy(sorted, activities)

	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].StartTime, sorted[j].StartTime
		switch {
		case si == nil && sj == nil:
			return false
		case si == nil:
			return false
		case sj == nil:
			return true
		default:
			return si.Before(*sj)
		}
	})

	return sorted
}

func pluralize(singular, plural string, n int) string {
	if n == 1 {
		return singular
	}
	return plural
}
