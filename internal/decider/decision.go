// Package decider is a reference decision server. It answers an agent's
// per-cycle questions over gRPC or WebSocket with the same choices a stock
// base-code team would make, which makes it useful for smoke tests and as
// a starting point for learned policies.
package decider

import (
	"math"
	"sort"

	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// Opponent distance curves sent with the offensive planner. The short one
// is used once the ball is deep in the opponent half.
var (
	nearGoalCurve = []float64{-5, -4, -3, -2, -1}
	midfieldCurve = []float64{-30, -25, -20, -15, -10, -4, -3, -2, -1}
)

const (
	// Self reach (cycles) under which a player without a kickable teammate
	// goes for the ball.
	interceptReach = 3
	// Distance under which a kickable opponent pins the neck to the ball.
	opponentWatchDist = 18.0
)

// Policy tunes the reference decisions.
type Policy struct {
	// Starter makes agents skip heard-pass receive, intentions and the
	// preprocess shoot check.
	Starter  bool
	MaxDepth int
	MaxNodes int
	// ServerSideDecision asks the agent to arbitrate its planner graph
	// through GetBestPlannerAction.
	ServerSideDecision bool
}

// DefaultPolicy matches the stock server.
func DefaultPolicy() Policy {
	return Policy{MaxDepth: 4, MaxNodes: 500}
}

// Decide answers GetPlayerActions for one snapshot.
func (p Policy) Decide(w *field.World) *wire.PlayerActions {
	out := &wire.PlayerActions{}
	switch {
	case w.Self.Goalie:
		out.Actions = goalieActions()
	case w.Mode == field.PlayOn:
		out.Actions = p.playOn(w)
	case w.Mode == field.PenaltyTaken:
		out.Actions = []wire.PlayerAction{{Penalty: &wire.Penalty{}}}
	default:
		out.Actions = []wire.PlayerAction{{SetPlay: &wire.SetPlay{}}}
	}
	if p.Starter {
		out.IgnoreDoHeardPassReceive = true
		out.IgnoreDoIntention = true
		out.IgnoreShootInPreprocess = true
	}
	return out
}

func goalieActions() []wire.PlayerAction {
	return []wire.PlayerAction{{Goalie: &wire.Goalie{}}}
}

func (p Policy) playOn(w *field.World) []wire.PlayerAction {
	if w.Kickable() {
		return []wire.PlayerAction{
			{StrictCheckShoot: &wire.StrictCheckShoot{}},
			{OffensivePlanner: p.offensivePlanner(w)},
		}
	}
	if !w.KickableTeammate() && w.InterceptStep <= interceptReach {
		return []wire.PlayerAction{
			{Intercept: &wire.Intercept{}},
			neckAction(w),
		}
	}

	ballDist := w.Self.Pos.Dist(w.Ball.Pos)
	return []wire.PlayerAction{
		{GoToPoint: &wire.GoToPoint{
			Target:            w.HomePos,
			DistanceThreshold: math.Max(1, ballDist*0.1),
			MaxDashPower:      100,
		}},
		{TurnToBall: &wire.TurnToBall{Cycle: 1}},
		neckAction(w),
	}
}

func neckAction(w *field.World) wire.PlayerAction {
	for _, o := range w.Opponents {
		if o.Kickable && o.Pos.Dist(w.Self.Pos) < opponentWatchDist {
			return wire.PlayerAction{NeckTurnToBall: &wire.NeckTurnToBall{}}
		}
	}
	return wire.PlayerAction{NeckTurnToBallOrScan: &wire.NeckTurnToBallOrScan{CountThreshold: 0}}
}

func (p Policy) offensivePlanner(w *field.World) *wire.OffensivePlanner {
	curve := midfieldCurve
	if w.Ball.Pos.X > 30 {
		curve = nearGoalCurve
	}
	firstLayer := false
	return &wire.OffensivePlanner{
		DirectPass:         true,
		LeadPass:           true,
		ThroughPass:        true,
		ShortDribble:       true,
		LongDribble:        true,
		Cross:              true,
		SimplePass:         true,
		SimpleDribble:      true,
		SimpleShoot:        true,
		ServerSideDecision: p.ServerSideDecision,
		MaxDepth:           p.MaxDepth,
		MaxNodes:           p.MaxNodes,
		Evaluation: &wire.PlannerEvaluation{
			Effectors: &wire.PlannerEffectors{
				Opponent: &wire.OpponentEffector{
					ByDistance:           append([]float64(nil), curve...),
					ByDistanceFirstLayer: &firstLayer,
				},
			},
		},
	}
}

// BestPlannerAction picks the highest-evaluated node and returns the index
// of the first-layer node it descends from. Ties go to the lowest index.
// It returns -1 when pairs is empty.
func BestPlannerAction(pairs map[int32]wire.ActionStatePair) int32 {
	if len(pairs) == 0 {
		return -1
	}
	keys := make([]int32, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best := keys[0]
	for _, k := range keys[1:] {
		if pairs[k].Evaluation > pairs[best].Evaluation {
			best = k
		}
	}

	// Walk up while the parent is a real node; a cycle in the links stops
	// the walk at the last unvisited node.
	seen := map[int32]bool{best: true}
	for {
		parent := pairs[best].Action.ParentIndex
		if parent <= 0 || seen[parent] {
			return best
		}
		if _, ok := pairs[parent]; !ok {
			return best
		}
		seen[parent] = true
		best = parent
	}
}
