package chain

import (
	"math"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

// Input is what a generator sees when proposing children of a node.
type Input struct {
	World  *field.World
	Parent State
	Path   []*Node
	Params Params
}

// Depth is the depth a generated child will have.
func (in Input) Depth() int { return len(in.Path) + 1 }

// Generator proposes candidate actions from a parent state.
type Generator func(in Input) []Action

// Registration binds a generator to the depths it may fire at. MaxDepth 0
// means unbounded.
type Registration struct {
	Name     string
	Gen      Generator
	MinDepth int
	MaxDepth int
	Enabled  func(p Params) bool
}

func (r Registration) allows(depth int) bool {
	if depth < r.MinDepth {
		return false
	}
	return r.MaxDepth == 0 || depth <= r.MaxDepth
}

// Generator names.
const (
	GenStrictPass    = "strict_pass"
	GenCross         = "cross"
	GenShortDribble  = "short_dribble"
	GenSelfPass      = "self_pass"
	GenShoot         = "shoot"
	GenSimplePass    = "simple_pass"
	GenSimpleDribble = "simple_dribble"
	GenHold          = "hold"
)

// DefaultRegistry is the generator set used for every graph: first-layer
// generators run only from the root, the simple ones only below it. Hold is
// always on so the graph keeps a keep-the-ball leaf to compare against.
func DefaultRegistry() []Registration {
	return []Registration{
		{Name: GenStrictPass, Gen: strictPass, MinDepth: 1, MaxDepth: 1,
			Enabled: func(p Params) bool { return p.DirectPass || p.LeadPass || p.ThroughPass }},
		{Name: GenCross, Gen: cross, MinDepth: 1, MaxDepth: 1,
			Enabled: func(p Params) bool { return p.Cross }},
		{Name: GenShortDribble, Gen: shortDribble, MinDepth: 1, MaxDepth: 1,
			Enabled: func(p Params) bool { return p.ShortDribble }},
		{Name: GenSelfPass, Gen: selfPass, MinDepth: 1, MaxDepth: 1,
			Enabled: func(p Params) bool { return p.LongDribble }},
		{Name: GenSimplePass, Gen: simplePass, MinDepth: 2,
			Enabled: func(p Params) bool { return p.SimplePass }},
		{Name: GenSimpleDribble, Gen: simpleDribble, MinDepth: 2,
			Enabled: func(p Params) bool { return p.SimpleDribble }},
		{Name: GenShoot, Gen: shoot, MinDepth: 2,
			Enabled: func(p Params) bool { return p.SimpleShoot }},
		{Name: GenHold, Gen: hold, MinDepth: 1, MaxDepth: 1},
	}
}

const (
	minPassDist     = 3.0
	maxPassDist     = 40.0
	passEndSpeed    = 1.5
	leadDist        = 3.0
	throughDist     = 8.0
	passLaneMargin  = 1.5
	shortDribbleLen = 4.0
	selfPassLen     = 12.0
	shootRange      = 20.0
)

func holderPos(s State) (field.Player, bool) {
	h, ok := s.Holder()
	if !ok {
		return h, false
	}
	h.Pos = s.BallPos
	return h, true
}

// laneClear reports whether no opponent sits within margin of the ball path
// or can beat the receiver to the target.
func laneClear(s State, from, to field.Vector, margin float64, receiverDist float64) bool {
	for _, o := range s.Opponents {
		if field.SegmentDist(o.Pos, from, to) < margin {
			return false
		}
		if receiverDist >= 0 && o.Pos.Dist(to)+1 < receiverDist {
			return false
		}
	}
	return true
}

func passAction(sender field.Player, receiver field.Player, target field.Vector, tag string) (Action, bool) {
	if !field.InPitch(target) {
		return Action{}, false
	}
	dist := sender.Pos.Dist(target)
	speed := field.FirstSpeedFor(dist, passEndSpeed)
	steps := field.BallSteps(speed, dist)
	if steps < 0 {
		return Action{}, false
	}
	return Action{
		Category:       Pass,
		Sender:         sender.Unum,
		Target:         receiver.Unum,
		TargetPoint:    target,
		FirstBallSpeed: speed,
		DurationStep:   steps,
		KickCount:      1,
		Description:    tag,
	}, true
}

func strictPass(in Input) []Action {
	sender, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	var out []Action
	for _, r := range in.Parent.Teammates {
		if r.Unum == sender.Unum || r.Unum == 0 || r.Goalie {
			continue
		}
		d := sender.Pos.Dist(r.Pos)
		if d < minPassDist || d > maxPassDist {
			continue
		}
		type cand struct {
			on     bool
			target field.Vector
			tag    string
		}
		cands := []cand{
			{in.Params.DirectPass, r.Pos, TagStrictDirect},
			{in.Params.LeadPass, r.Pos.Towards(field.TheirGoal, leadDist), TagStrictLead},
			{in.Params.ThroughPass && r.Pos.X > in.Parent.OffenseLineX-5, r.Pos.Add(field.Vec(throughDist, 0)), TagStrictThrough},
		}
		for _, c := range cands {
			if !c.on {
				continue
			}
			if !laneClear(in.Parent, sender.Pos, c.target, passLaneMargin, r.Pos.Dist(c.target)) {
				continue
			}
			if a, ok := passAction(sender, r, c.target, c.tag); ok {
				out = append(out, a)
			}
		}
	}
	return out
}

func cross(in Input) []Action {
	sender, ok := holderPos(in.Parent)
	if !ok || sender.Pos.X < 30 || math.Abs(sender.Pos.Y) < 12 {
		return nil
	}
	var out []Action
	for _, r := range in.Parent.Teammates {
		if r.Unum == sender.Unum || r.Unum == 0 {
			continue
		}
		if r.Pos.X < field.PenaltyAreaX || math.Abs(r.Pos.Y) > 14 {
			continue
		}
		if !laneClear(in.Parent, sender.Pos, r.Pos, 1.0, -1) {
			continue
		}
		dist := sender.Pos.Dist(r.Pos)
		speed := field.BallSpeedMax * 0.9
		steps := field.BallSteps(speed, dist)
		if steps < 0 {
			continue
		}
		out = append(out, Action{
			Category:       Pass,
			Sender:         sender.Unum,
			Target:         r.Unum,
			TargetPoint:    r.Pos,
			FirstBallSpeed: speed,
			DurationStep:   steps,
			KickCount:      1,
			Description:    TagCross,
		})
	}
	return out
}

func dribbleAction(holder field.Player, s State, dir, length, oppClear float64, tag string) (Action, bool) {
	target := holder.Pos.Add(field.Polar(length, dir))
	if !field.InPitch(target) {
		return Action{}, false
	}
	for _, o := range s.Opponents {
		if o.Pos.Dist(target) < oppClear || field.SegmentDist(o.Pos, holder.Pos, target) < oppClear/2 {
			return Action{}, false
		}
	}
	dashes := holder.Type.CyclesToReachDistance(length)
	return Action{
		Category:       Dribble,
		Sender:         holder.Unum,
		Target:         holder.Unum,
		TargetPoint:    target,
		FirstBallSpeed: field.FirstSpeedFor(length, 0.5),
		FirstDashPower: field.MaxDashPower,
		FirstDashAngle: dir,
		DurationStep:   dashes + 1,
		KickCount:      1,
		DashCount:      dashes,
		Description:    tag,
	}, true
}

func shortDribble(in Input) []Action {
	h, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	var out []Action
	for dir := -180.0; dir < 180; dir += 45 {
		if a, ok := dribbleAction(h, in.Parent, dir, shortDribbleLen, 3, TagShortDribble); ok {
			out = append(out, a)
		}
	}
	return out
}

func selfPass(in Input) []Action {
	h, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	var out []Action
	for dir := -60.0; dir <= 60; dir += 30 {
		if a, ok := dribbleAction(h, in.Parent, dir, selfPassLen, 6, TagSelfPass); ok {
			out = append(out, a)
		}
	}
	return out
}

func simpleDribble(in Input) []Action {
	h, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	var out []Action
	for _, dir := range []float64{-45, 0, 45} {
		if a, ok := dribbleAction(h, in.Parent, dir, 5, 2, TagSimpleDribble); ok {
			out = append(out, a)
		}
	}
	return out
}

func simplePass(in Input) []Action {
	sender, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	var out []Action
	for _, r := range in.Parent.Teammates {
		if r.Unum == sender.Unum || r.Unum == 0 {
			continue
		}
		if d := sender.Pos.Dist(r.Pos); d < minPassDist || d > maxPassDist {
			continue
		}
		if !laneClear(in.Parent, sender.Pos, r.Pos, 1.0, -1) {
			continue
		}
		if a, ok := passAction(sender, r, r.Pos, TagSimplePass); ok {
			out = append(out, a)
		}
	}
	return out
}

// shoot proposes the single goal-mouth target with the widest lane.
func shoot(in Input) []Action {
	h, ok := holderPos(in.Parent)
	if !ok || h.Pos.Dist(field.TheirGoal) > shootRange {
		return nil
	}
	best, bestClear := field.Vector{}, -1.0
	for _, y := range []float64{-5.5, -3, 0, 3, 5.5} {
		target := field.Vec(field.PitchHalfLength, y)
		clear := math.MaxFloat64
		for _, o := range in.Parent.Opponents {
			d := field.SegmentDist(o.Pos, h.Pos, target)
			if o.Goalie {
				d -= 0.8
			}
			clear = math.Min(clear, d)
		}
		if clear > 1.2 && clear > bestClear {
			best, bestClear = target, clear
		}
	}
	if bestClear < 0 {
		return nil
	}
	dist := h.Pos.Dist(best)
	steps := field.BallSteps(field.BallSpeedMax, dist)
	if steps < 0 {
		return nil
	}
	return []Action{{
		Category:       Shoot,
		Sender:         h.Unum,
		TargetPoint:    best,
		FirstBallSpeed: field.BallSpeedMax,
		DurationStep:   steps,
		KickCount:      1,
		Final:          true,
		Description:    TagShoot,
	}}
}

// hold keeps the ball where it is for one cycle.
func hold(in Input) []Action {
	h, ok := holderPos(in.Parent)
	if !ok {
		return nil
	}
	return []Action{{
		Category:     Hold,
		Sender:       h.Unum,
		TargetPoint:  h.Pos,
		DurationStep: 1,
		Final:        true,
		Description:  TagHold,
	}}
}
