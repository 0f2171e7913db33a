// Package evaluator scores predicted states for the chain planner using a
// sanitized evaluation policy.
package evaluator

import (
	"errors"
	"math"

	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// ErrInvalidPolicy is returned when a policy document cannot be parsed or
// fails schema validation.
var ErrInvalidPolicy = errors.New("invalid evaluation policy")

// Action type keys.
const (
	KeyDirectPass   = "direct_pass"
	KeyLeadPass     = "lead_pass"
	KeyThroughPass  = "through_pass"
	KeyShortDribble = "short_dribble"
	KeyLongDribble  = "long_dribble"
	KeyCross        = "cross"
	KeyHold         = "hold"
)

// Curve is a penalty curve indexed by metre or cycle. Every value is <= 0.
type Curve struct {
	Values     []float64
	FirstLayer bool
}

func (c *Curve) min() float64 {
	m := 0.0
	for _, v := range c.Values {
		m = math.Min(m, v)
	}
	return m
}

// TeammateTable scales the score by the ball holder's uniform number.
type TeammateTable struct {
	Coefficients map[int]float64
	FirstLayer   bool
}

// BaseModel is the scalar field model used when no grid is set.
type BaseModel struct {
	XCoefficient     float64
	GoalDistCoef     float64
	EffectiveMaxDist float64
}

// DefaultBaseModel is the model used when a policy leaves it unset.
var DefaultBaseModel = BaseModel{XCoefficient: 1, GoalDistCoef: 1, EffectiveMaxDist: 40}

// Grid is a spatial value grid indexed [x][y] over the pitch, shifted so its
// minimum is zero.
type Grid struct {
	Values [][]float64
}

// Policy is the sanitized evaluation policy. A nil section is absent.
type Policy struct {
	OpponentDistance *Curve
	OpponentReach    *Curve
	ActionType       map[string]float64
	Teammate         *TeammateTable
	Base             BaseModel
	Grid             *Grid
}

// DefaultPolicy scores with the base model only.
func DefaultPolicy() *Policy {
	return &Policy{Base: DefaultBaseModel}
}

// Ingest sanitizes a policy document. firstLayer is used for curves and the
// teammate table when the document leaves the flag unset.
func Ingest(doc *wire.PlannerEvaluation, firstLayer bool) *Policy {
	p := DefaultPolicy()
	if doc == nil {
		return p
	}
	if eff := doc.Effectors; eff != nil {
		if o := eff.Opponent; o != nil {
			p.OpponentDistance = curve(o.ByDistance, flag(o.ByDistanceFirstLayer, firstLayer))
			p.OpponentReach = curve(o.ByReachSteps, flag(o.ByReachStepsFirstLayer, firstLayer))
		}
		if a := eff.ActionType; a != nil {
			p.ActionType = map[string]float64{}
			for k, v := range map[string]*float64{
				KeyDirectPass:   a.DirectPass,
				KeyLeadPass:     a.LeadPass,
				KeyThroughPass:  a.ThroughPass,
				KeyShortDribble: a.ShortDribble,
				KeyLongDribble:  a.LongDribble,
				KeyCross:        a.Cross,
				KeyHold:         a.Hold,
			} {
				if v != nil {
					p.ActionType[k] = nonNegative(*v)
				}
			}
		}
		if tm := eff.Teammate; tm != nil {
			t := &TeammateTable{Coefficients: map[int]float64{}, FirstLayer: flag(tm.FirstLayer, firstLayer)}
			for unum, v := range tm.Coefficients {
				t.Coefficients[unum] = nonNegative(v)
			}
			p.Teammate = t
		}
	}
	if fe := doc.FieldEvaluators; fe != nil {
		if b := fe.Base; b != nil {
			if b.XCoefficient != nil {
				p.Base.XCoefficient = nonNegative(*b.XCoefficient)
			}
			if b.BallDistToGoalCoefficient != nil {
				p.Base.GoalDistCoef = nonNegative(*b.BallDistToGoalCoefficient)
			}
			if b.EffectiveMaxBallDistToGoal != nil && finite(*b.EffectiveMaxBallDistToGoal) {
				p.Base.EffectiveMaxDist = *b.EffectiveMaxBallDistToGoal
			}
		}
		if m := fe.Matrix; m != nil {
			p.Grid = grid(m.Evals)
		}
	}
	return p
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func nonNegative(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

// curve clamps positive and non-finite values to 0.
func curve(values []float64, firstLayer bool) *Curve {
	if len(values) == 0 {
		return nil
	}
	c := &Curve{Values: make([]float64, len(values)), FirstLayer: firstLayer}
	for i, v := range values {
		if finite(v) && v < 0 {
			c.Values[i] = v
		}
	}
	return c
}

// grid truncates ragged rows to the shortest and shifts values by the minimum.
func grid(rows [][]float64) *Grid {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	for _, r := range rows {
		width = min(width, len(r))
	}
	if width == 0 {
		return nil
	}
	lo := math.Inf(1)
	for _, r := range rows {
		for _, v := range r[:width] {
			if finite(v) {
				lo = math.Min(lo, v)
			}
		}
	}
	if math.IsInf(lo, 1) {
		lo = 0
	}
	g := &Grid{Values: make([][]float64, len(rows))}
	for i, r := range rows {
		g.Values[i] = make([]float64, width)
		for j, v := range r[:width] {
			if finite(v) {
				g.Values[i][j] = v - lo
			}
		}
	}
	return g
}
