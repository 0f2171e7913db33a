// Package chain enumerates candidate ball-action chains from the current
// world and keeps the resulting graph for one decision cycle.
package chain

import (
	"errors"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

// ErrUnknownNode is returned when an index names no node of the graph.
var ErrUnknownNode = errors.New("unknown node index")

// RootParent is the parent index of first-layer nodes.
const RootParent = -1

// Category is the kind of ball action a node represents.
type Category int

const (
	Hold Category = iota
	Dribble
	Pass
	Shoot
	Clear
	Move
	NoAction
)

var categoryNames = [...]string{"hold", "dribble", "pass", "shoot", "clear", "move", "no_action"}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Description tags set by the generators. The evaluator keys its action
// type coefficients on these.
const (
	TagStrictDirect  = "strictDirect"
	TagStrictLead    = "strictLead"
	TagStrictThrough = "strictThrough"
	TagCross         = "cross"
	TagShortDribble  = "shortDribble"
	TagSelfPass      = "SelfPass"
	TagShoot         = "shoot"
	TagSimplePass    = "simplePass"
	TagSimpleDribble = "simpleDribble"
	TagHold          = "hold"
)

// Action is one candidate ball action.
type Action struct {
	Category       Category
	Sender         int
	Target         int
	TargetPoint    field.Vector
	FirstBallSpeed float64
	FirstTurn      float64
	FirstDashPower float64
	FirstDashAngle float64
	DurationStep   int
	KickCount      int
	TurnCount      int
	DashCount      int
	Final          bool
	Description    string
}

// State is the predicted world after a chain of actions. States are shared
// between nodes and must not be modified once built.
type State struct {
	SpendTime    int
	BallHolder   int
	BallPos      field.Vector
	BallVel      field.Vector
	DefenseLineX float64
	OffenseLineX float64
	Self         int
	Teammates    []field.Player
	Opponents    []field.Player
}

// Holder returns the predicted ball holder.
func (s State) Holder() (field.Player, bool) {
	if s.BallHolder == 0 {
		return field.Player{}, false
	}
	for _, p := range s.Teammates {
		if p.Unum == s.BallHolder {
			return p, true
		}
	}
	return field.Player{}, false
}

// WithHolder returns a copy of s where unum holds the ball at pos.
func (s State) WithHolder(unum int, pos field.Vector) State {
	mates := make([]field.Player, len(s.Teammates))
	copy(mates, s.Teammates)
	for i := range mates {
		if mates[i].Unum == unum {
			mates[i].Pos = pos
			mates[i].Vel = field.Vector{}
		}
	}
	s.Teammates = mates
	s.BallHolder = unum
	s.BallPos = pos
	s.BallVel = field.Vector{}
	if pos.X > s.OffenseLineX {
		s.OffenseLineX = pos.X
	}
	return s
}

// RootState builds the state the graph grows from.
func RootState(w *field.World) State {
	mates := make([]field.Player, 0, len(w.Teammates)+1)
	mates = append(mates, w.Self)
	for _, p := range w.Teammates {
		if p.Unum != w.Self.Unum {
			mates = append(mates, p)
		}
	}
	return State{
		BallHolder:   w.BallHolder(),
		BallPos:      w.Ball.Pos,
		BallVel:      w.Ball.Vel,
		DefenseLineX: w.DefenseLineX(),
		OffenseLineX: w.OffenseLineX(),
		Self:         w.Self.Unum,
		Teammates:    mates,
		Opponents:    w.Opponents,
	}
}

// Node is one enumerated action with its predicted state and score.
type Node struct {
	Index  int
	Parent int
	Depth  int
	Action Action
	State  State
	Eval   float64
}
