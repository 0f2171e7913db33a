package field

import "math"

// Pitch and server constants used by the planner and evaluator.
const (
	PitchHalfLength = 52.5
	PitchHalfWidth  = 34.0
	PitchLength     = 2 * PitchHalfLength
	PitchWidth      = 2 * PitchHalfWidth
	GoalHalfWidth   = 7.01
	PenaltyAreaX    = PitchHalfLength - 16.5

	MaxDashPower = 100.0
	BallSpeedMax = 3.0
	BallDecay    = 0.94
	KickableArea = 1.085

	// GoalLineGuard is the margin inside the goal line past which the ball
	// counts as in the goal mouth.
	GoalLineGuard = 0.1
)

var (
	TheirGoal = Vector{X: PitchHalfLength}
	OurGoal   = Vector{X: -PitchHalfLength}
)

// InPitch reports whether p lies on or inside the touch and goal lines.
func InPitch(p Vector) bool {
	return math.Abs(p.X) <= PitchHalfLength && math.Abs(p.Y) <= PitchHalfWidth
}

// InTheirGoalMouth reports whether p is past their goal line between the posts,
// with a two metre allowance either side.
func InTheirGoalMouth(p Vector) bool {
	return p.X > PitchHalfLength-GoalLineGuard && math.Abs(p.Y) < GoalHalfWidth+2
}

// InOurGoalMouth reports whether p is past our goal line between the posts.
func InOurGoalMouth(p Vector) bool {
	return p.X < -(PitchHalfLength-GoalLineGuard) && math.Abs(p.Y) < GoalHalfWidth
}

// BallTravel returns the distance covered by a ball kicked at speed for steps cycles.
func BallTravel(speed float64, steps int) float64 {
	if steps <= 0 {
		return 0
	}
	return speed * (1 - math.Pow(BallDecay, float64(steps))) / (1 - BallDecay)
}

// BallSteps returns the number of cycles a ball kicked at speed needs to
// travel dist, or -1 if it stops short.
func BallSteps(speed, dist float64) int {
	if dist <= 0 {
		return 0
	}
	if speed <= 0 {
		return -1
	}
	rest := 1 - dist*(1-BallDecay)/speed
	if rest <= 0 {
		return -1
	}
	return int(math.Ceil(math.Log(rest) / math.Log(BallDecay)))
}

// FirstSpeedFor returns the kick speed that brings the ball to rest-ish
// speed endSpeed after travelling dist, capped at BallSpeedMax.
func FirstSpeedFor(dist, endSpeed float64) float64 {
	v := endSpeed + dist*(1-BallDecay)
	return math.Min(v, BallSpeedMax)
}
