package sim

import (
	"math/rand/v2"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

// homePositions is a 4-3-3 for the side attacking +x, indexed by unum-1.
var homePositions = [11]field.Vector{
	{X: -50, Y: 0},
	{X: -35, Y: -20}, {X: -38, Y: -7}, {X: -38, Y: 7}, {X: -35, Y: 20},
	{X: -15, Y: -12}, {X: -20, Y: 0}, {X: -15, Y: 12},
	{X: -3, Y: -22}, {X: -1, Y: 0}, {X: -3, Y: 22},
}

// HomePosition returns the formation slot of unum.
func HomePosition(unum int) field.Vector {
	if unum < 1 || unum > len(homePositions) {
		return field.Vector{}
	}
	return homePositions[unum-1]
}

// Kickoff builds a play-on world with the agent at its home position and
// the ball at its feet. Opponents stand in a mirrored formation pushed
// forward by press metres, jittered by rng.
func Kickoff(team string, unum int, goalie bool, press float64, rng *rand.Rand) *field.World {
	self := field.Player{Unum: unum, Pos: HomePosition(unum), Goalie: goalie, Kickable: true, Type: field.DefaultPlayerType}
	w := &field.World{
		Cycle:        1,
		Team:         team,
		Side:         field.Left,
		Mode:         field.PlayOn,
		Self:         self,
		SelfPosValid: true,
		Ball:         field.Ball{Pos: self.Pos},
		HomePos:      self.Pos,
	}
	for u := 1; u <= 11; u++ {
		if u == unum {
			continue
		}
		w.Teammates = append(w.Teammates, field.Player{Unum: u, Pos: HomePosition(u), Goalie: u == 1, Type: field.DefaultPlayerType})
	}
	for u := 1; u <= 11; u++ {
		h := HomePosition(u)
		push := press
		if u == 1 {
			push = 0
		}
		pos := field.Vec(-h.X-push+jitter(rng), -h.Y+jitter(rng))
		w.Opponents = append(w.Opponents, field.Player{Unum: u, Pos: clamp(pos), Goalie: u == 1, Type: field.DefaultPlayerType})
	}
	return w
}

func jitter(rng *rand.Rand) float64 {
	if rng == nil {
		return 0
	}
	return rng.Float64()*4 - 2
}

func clamp(p field.Vector) field.Vector {
	p.X = min(max(p.X, -field.PitchHalfLength), field.PitchHalfLength)
	p.Y = min(max(p.Y, -field.PitchHalfWidth), field.PitchHalfWidth)
	return p
}
