package evaluator

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

// Score sentinels.
const (
	GoalScore      = 1.0e7
	OwnGoalScore   = -1.0e7
	ShotBonus      = 1.0e6
	SelfShotBonus  = 5.0e5
	shotValidCount = 8
)

// Invalid scores states that cannot happen, such as the ball out of play.
var Invalid = -math.MaxFloat64 / 2

// ValueModel predicts the value of a state. It replaces the base model when
// no grid is set; errors fall back to the base model.
type ValueModel interface {
	Value(s chain.State) (float64, error)
}

// term adjusts a score. Terms run in registration order.
type term struct {
	name  string
	apply func(score float64, w *field.World, s chain.State, path []*chain.Node) float64
}

// FieldEvaluator scores predicted states under one Policy. It is safe for
// concurrent use.
type FieldEvaluator struct {
	policy *Policy
	model  ValueModel
	terms  []term
	log    zerolog.Logger
}

// Option configures a FieldEvaluator.
type Option func(*FieldEvaluator)

// WithValueModel sets a learned value model.
func WithValueModel(m ValueModel) Option {
	return func(e *FieldEvaluator) { e.model = m }
}

// WithLogger sets the evaluator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *FieldEvaluator) { e.log = l }
}

// New builds an evaluator for p. Only the terms p configures are registered.
func New(p *Policy, opts ...Option) *FieldEvaluator {
	if p == nil {
		p = DefaultPolicy()
	}
	e := &FieldEvaluator{policy: p, log: log.Logger}
	for _, o := range opts {
		o(e)
	}
	if p.ActionType != nil {
		e.terms = append(e.terms, term{"action_type", e.actionType})
	}
	if p.OpponentDistance != nil {
		e.terms = append(e.terms, term{"opponent_distance", e.opponentDistance})
	}
	if p.OpponentReach != nil {
		e.terms = append(e.terms, term{"opponent_reach", e.opponentReach})
	}
	if p.Teammate != nil {
		e.terms = append(e.terms, term{"teammate", e.teammate})
	}
	return e
}

// Policy returns the policy the evaluator scores with.
func (e *FieldEvaluator) Policy() *Policy { return e.policy }

// Evaluate implements chain.Evaluator.
func (e *FieldEvaluator) Evaluate(w *field.World, s chain.State, path []*chain.Node) float64 {
	holder, ok := s.Holder()
	if !ok {
		return Invalid
	}
	ball := s.BallPos
	switch {
	case field.InTheirGoalMouth(ball):
		return GoalScore
	case field.InOurGoalMouth(ball):
		return OwnGoalScore
	case !field.InPitch(ball):
		return Invalid
	}

	score := e.base(s, holder)
	for _, t := range e.terms {
		score = t.apply(score, w, s, path)
	}
	if !finite(score) {
		return Invalid
	}
	return score
}

func (e *FieldEvaluator) base(s chain.State, holder field.Player) float64 {
	if g := e.policy.Grid; g != nil {
		return g.lookup(s.BallPos)
	}
	if e.model != nil {
		v, err := e.model.Value(s)
		if err == nil && finite(v) {
			return v
		}
		e.log.Debug().Err(err).Msg("Value model failed, using base model")
	}
	b := e.policy.Base
	ball := s.BallPos
	score := b.XCoefficient * (ball.X + field.PitchHalfLength)
	score += b.GoalDistCoef * math.Max(0, b.EffectiveMaxDist-ball.Dist(field.TheirGoal))
	if canShootFrom(holder.Unum == s.Self, holder.Pos, s.Opponents, shotValidCount) {
		score += ShotBonus
		if holder.Unum == s.Self {
			score += SelfShotBonus
		}
	}
	return score
}

// lookup maps a pitch position onto the grid, clamping to its edges.
func (g *Grid) lookup(p field.Vector) float64 {
	xs, ys := len(g.Values), len(g.Values[0])
	xi := int((p.X + field.PitchHalfLength) / (field.PitchLength / float64(xs)))
	yi := int((p.Y + field.PitchHalfWidth) / (field.PitchWidth / float64(ys)))
	xi = max(0, min(xs-1, xi))
	yi = max(0, min(ys-1, yi))
	return g.Values[xi][yi]
}

// actionTag maps a generator description to its coefficient key.
func actionTag(desc string) (string, bool) {
	switch desc {
	case chain.TagStrictDirect:
		return KeyDirectPass, true
	case chain.TagStrictLead:
		return KeyLeadPass, true
	case chain.TagStrictThrough:
		return KeyThroughPass, true
	case chain.TagShortDribble:
		return KeyShortDribble, true
	case chain.TagSelfPass:
		return KeyLongDribble, true
	case chain.TagCross:
		return KeyCross, true
	}
	return "", false
}

func (e *FieldEvaluator) actionType(score float64, _ *field.World, _ chain.State, path []*chain.Node) float64 {
	key := KeyHold
	if len(path) > 0 {
		k, ok := actionTag(path[0].Action.Description)
		if !ok {
			return score
		}
		key = k
	}
	coef, ok := e.policy.ActionType[key]
	if !ok {
		return score
	}
	return score * coef
}

// measurePoint is the ball position a curve is measured from.
func measurePoint(s chain.State, path []*chain.Node, firstLayer bool) field.Vector {
	if firstLayer && len(path) > 0 {
		return path[0].State.BallPos
	}
	return s.BallPos
}

// applyCurve shifts score by the curve minimum and adds the bucket value.
// Buckets past the end contribute only the shift.
func applyCurve(score float64, c *Curve, bucket int) float64 {
	score -= c.min()
	if bucket >= 0 && bucket < len(c.Values) {
		score += c.Values[bucket]
	}
	return score
}

func (e *FieldEvaluator) opponentDistance(score float64, w *field.World, s chain.State, path []*chain.Node) float64 {
	c := e.policy.OpponentDistance
	p := measurePoint(s, path, c.FirstLayer)
	nearest := 1000.0
	for _, o := range w.Opponents {
		if o.Unum <= 0 {
			continue
		}
		nearest = math.Min(nearest, o.Pos.Dist(p))
	}
	return applyCurve(score, c, int(nearest))
}

func (e *FieldEvaluator) opponentReach(score float64, w *field.World, s chain.State, path []*chain.Node) float64 {
	c := e.policy.OpponentReach
	p := measurePoint(s, path, c.FirstLayer)
	steps := 1000
	for _, o := range w.Opponents {
		if o.Unum <= 0 {
			continue
		}
		steps = min(steps, o.Type.CyclesToReachDistance(o.Pos.Dist(p)))
	}
	return applyCurve(score, c, steps)
}

func (e *FieldEvaluator) teammate(score float64, _ *field.World, s chain.State, path []*chain.Node) float64 {
	t := e.policy.Teammate
	holder := s.BallHolder
	if t.FirstLayer && len(path) > 0 {
		holder = path[0].State.BallHolder
	}
	coef, ok := t.Coefficients[holder]
	if !ok {
		return score
	}
	return score * coef
}
