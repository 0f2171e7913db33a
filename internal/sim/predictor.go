// Package sim is a small kinematic stand-in for the soccer server: it
// predicts chain action outcomes, generates worlds and records the motor
// commands an agent issues.
package sim

import (
	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

// Kinematic predicts the state after an action with straight-line ball
// travel and constant-speed players. Opponents are treated as static.
type Kinematic struct{}

// Predict implements chain.Predictor.
func (Kinematic) Predict(_ *field.World, parent chain.State, a chain.Action) (chain.State, bool) {
	switch a.Category {
	case chain.Pass, chain.Clear:
		recv, ok := player(parent.Teammates, a.Target)
		if !ok {
			return chain.State{}, false
		}
		steps := max(a.DurationStep, recv.Type.CyclesToReachDistance(recv.Pos.Dist(a.TargetPoint)))
		if opponentFirst(parent, a.TargetPoint, steps) {
			return chain.State{}, false
		}
		s := parent.WithHolder(a.Target, a.TargetPoint)
		s.SpendTime += steps
		return s, true

	case chain.Dribble:
		if opponentFirst(parent, a.TargetPoint, a.DurationStep) {
			return chain.State{}, false
		}
		s := parent.WithHolder(a.Sender, a.TargetPoint)
		s.SpendTime += a.DurationStep
		return s, true

	case chain.Shoot:
		// The shooter stays the holder so the goal is credited.
		s := parent
		s.BallHolder = a.Sender
		s.BallPos = a.TargetPoint
		s.BallVel = field.Vector{}
		s.SpendTime += a.DurationStep
		return s, true

	case chain.Hold:
		s := parent
		s.SpendTime++
		return s, true

	case chain.Move:
		mover, ok := player(parent.Teammates, a.Sender)
		if !ok {
			return chain.State{}, false
		}
		mates := make([]field.Player, len(parent.Teammates))
		copy(mates, parent.Teammates)
		for i := range mates {
			if mates[i].Unum == a.Sender {
				mates[i].Pos = a.TargetPoint
			}
		}
		s := parent
		s.Teammates = mates
		s.SpendTime += mover.Type.CyclesToReachDistance(mover.Pos.Dist(a.TargetPoint))
		return s, true

	case chain.NoAction:
		return chain.State{}, false
	}
	return chain.State{}, false
}

func player(ps []field.Player, unum int) (field.Player, bool) {
	for _, p := range ps {
		if p.Unum == unum && unum != 0 {
			return p, true
		}
	}
	return field.Player{}, false
}

// opponentFirst reports whether an opponent reaches p in fewer cycles than
// the ball arrives.
func opponentFirst(s chain.State, p field.Vector, steps int) bool {
	for _, o := range s.Opponents {
		reach := o.Pos.Dist(p) - o.Type.KickableArea
		if reach <= 0 || o.Type.CyclesToReachDistance(reach) < steps {
			return true
		}
	}
	return false
}
