package evaluator

import (
	"math"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

const (
	selfShootDist  = 17.0
	otherShootDist = 15.0
	shootSpan      = field.GoalHalfWidth - 1.5
)

// canShootFrom reports whether any course from pos into the goal mouth is
// free of opponents seen within validCount cycles.
func canShootFrom(isSelf bool, pos field.Vector, opponents []field.Player, validCount int) bool {
	maxDist := otherShootDist
	if isSelf {
		maxDist = selfShootDist
	}
	if pos.Dist(field.TheirGoal) > maxDist {
		return false
	}
	for y := -shootSpan; y <= shootSpan+1e-9; y += 1.0 {
		target := field.Vec(field.PitchHalfLength, y)
		if courseOpen(pos, target, opponents, validCount) {
			return true
		}
	}
	return false
}

func courseOpen(from, to field.Vector, opponents []field.Player, validCount int) bool {
	courseLen := from.Dist(to)
	for _, o := range opponents {
		if o.PosCount > validCount {
			continue
		}
		if o.Pos.Dist(from) > courseLen+1 {
			continue
		}
		reach := 1.2
		if o.Goalie {
			reach = 2.0
		}
		d := field.SegmentDist(o.Pos, from, to)
		// Players further down the course have more time to close it.
		reach += 0.1 * math.Max(0, o.Pos.Dist(from)-2)
		if d < reach {
			return false
		}
	}
	return true
}
