// Package journey tracks which foundation-course activities kids still have
// to complete.
package journey

import (
	"context"
	"fmt"

	"github.com/klamlamwork/playroom/internal/model"
)

// Policy decides how gaps of several selected kids combine.
type Policy string

const (
	// PolicyFirstKid uses the gap set of the first kid, in selection order,
	// that has any unfinished point.
	PolicyFirstKid Policy = "first_kid"
	// PolicyUnion lists every point at least one selected kid has not finished.
	PolicyUnion Policy = "union"
)

// ParsePolicy maps a config value to a policy, defaulting to PolicyFirstKid.
func ParsePolicy(v string) Policy {
	if Policy(v) == PolicyUnion {
		return PolicyUnion
	}
	return PolicyFirstKid
}

// Curriculum provides the active course and completion facts.
type Curriculum interface {
	ActiveCourse(ctx context.Context) (*model.Course, error)
	CompletedFiveMinFuns(ctx context.Context, kidID int64, activityIDs []int64) (map[int64]bool, error)
}

// Tracker computes unfinished curriculum points.
type Tracker struct {
	curriculum Curriculum
	policy     Policy
}

// NewTracker creates a tracker.
func NewTracker(curriculum Curriculum, policy Policy) *Tracker {
	return &Tracker{curriculum: curriculum, policy: policy}
}

// Unfinished returns the ordered point ids pending for the kids.
func (t *Tracker) Unfinished(ctx context.Context, kidIDs []int64) ([]int64, error) {
	course, err := t.curriculum.ActiveCourse(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active course: %w", err)
	}
	if course == nil || len(kidIDs) == 0 {
		return []int64{}, nil
	}

	points := linkedPoints(course)
	if len(points) == 0 {
		return []int64{}, nil
	}
	activityIDs := make([]int64, 0, len(points))
	for _, p := range points {
		activityIDs = append(activityIDs, p.Activity.ID)
	}

	completions := make([]map[int64]bool, 0, len(kidIDs))
	for _, kidID := range kidIDs {
		done, err := t.curriculum.CompletedFiveMinFuns(ctx, kidID, activityIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load completions for kid %d: %w", kidID, err)
		}
		completions = append(completions, done)
	}

	return Gaps(points, completions, t.policy), nil
}

// Gaps applies the policy to per-kid completion sets, given in selection
// order, over points already in curriculum order.
func Gaps(points []model.Point, completions []map[int64]bool, policy Policy) []int64 {
	if policy == PolicyUnion {
		ids := []int64{}
		for _, p := range points {
			for _, done := range completions {
				if !done[p.Activity.ID] {
					ids = append(ids, p.ID)
					break
				}
			}
		}
		return ids
	}

	for _, done := range completions {
		ids := []int64{}
		for _, p := range points {
			if !done[p.Activity.ID] {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}
	return []int64{}
}

// linkedPoints returns ordered points that reference an activity.
func linkedPoints(course *model.Course) []model.Point {
	var points []model.Point
	for _, p := range course.OrderedPoints() {
		if p.Activity != nil {
			points = append(points, p)
		}
	}
	return points
}
