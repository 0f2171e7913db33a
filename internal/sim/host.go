package sim

import (
	"math/rand/v2"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/soccer-proxy/internal/dispatch"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

// Call is one recorded host command.
type Call struct {
	Name     string
	Behavior dispatch.Behavior
	Args     []float64
	Text     string
}

// Host records every command an agent issues and advances a toy world
// between cycles. It is not safe for concurrent use.
type Host struct {
	world     *field.World
	calls     []Call
	intention *dispatch.Intention
	reject    map[string]bool
	rng       *rand.Rand

	holdCycles int
	goals      int
}

// NewHost wraps w. A nil rng disables opponent jitter.
func NewHost(w *field.World, rng *rand.Rand) *Host {
	return &Host{world: w, reject: map[string]bool{}, rng: rng}
}

// Reject makes the named command report failure.
func (h *Host) Reject(names ...string) {
	for _, n := range names {
		h.reject[n] = true
	}
}

// Calls returns the commands issued since the last Advance.
func (h *Host) Calls() []Call { return h.calls }

// Names returns the command names issued since the last Advance.
func (h *Host) Names() []string {
	out := make([]string, len(h.calls))
	for i, c := range h.calls {
		out[i] = c.Name
	}
	return out
}

// Goals is the number of goals scored so far.
func (h *Host) Goals() int { return h.goals }

// Intention returns the queued intention, if any.
func (h *Host) Intention() *dispatch.Intention { return h.intention }

func (h *Host) record(c Call) bool {
	h.calls = append(h.calls, c)
	return !h.reject[c.Name]
}

func (h *Host) World() *field.World { return h.world }

func (h *Host) Dash(power, dir float64) bool {
	return h.record(Call{Name: "dash", Args: []float64{power, dir}})
}

func (h *Host) Kick(power, dir float64) bool {
	return h.record(Call{Name: "kick", Args: []float64{power, dir}})
}

func (h *Host) Turn(moment float64) bool {
	return h.record(Call{Name: "turn", Args: []float64{moment}})
}

func (h *Host) Tackle(powerOrDir float64, foul bool) bool {
	f := 0.0
	if foul {
		f = 1
	}
	return h.record(Call{Name: "tackle", Args: []float64{powerOrDir, f}})
}

func (h *Host) Catch() bool { return h.record(Call{Name: "catch"}) }

func (h *Host) Move(p field.Vector) bool {
	return h.record(Call{Name: "move", Args: []float64{p.X, p.Y}})
}

func (h *Host) TurnNeck(moment float64) bool {
	return h.record(Call{Name: "turn_neck", Args: []float64{moment}})
}

func (h *Host) ChangeView(width string) bool {
	return h.record(Call{Name: "change_view", Text: width})
}

func (h *Host) Say(msg string) bool { return h.record(Call{Name: "say", Text: msg}) }

func (h *Host) PointTo(p field.Vector) bool {
	return h.record(Call{Name: "point_to", Args: []float64{p.X, p.Y}})
}

func (h *Host) PointToOff() bool { return h.record(Call{Name: "point_to_off"}) }

func (h *Host) AttentionTo(side string, unum int) bool {
	return h.record(Call{Name: "attention_to", Text: side, Args: []float64{float64(unum)}})
}

func (h *Host) AttentionToOff() bool { return h.record(Call{Name: "attention_to_off"}) }

func (h *Host) Log(text string) bool {
	log.Debug().Str("component", "dispatch").Int("cycle", h.world.Cycle).Msg(text)
	return h.record(Call{Name: "log", Text: text})
}

func (h *Host) Behave(b dispatch.Behavior) bool {
	return h.record(Call{Name: string(b.Name), Behavior: b})
}

func (h *Host) SetIntention(i *dispatch.Intention) { h.intention = i }

// DoIntention replays a queued intention until its steps run out.
func (h *Host) DoIntention() bool {
	i := h.intention
	if i == nil {
		return false
	}
	if i.Steps <= 0 || h.world.Self.Kickable {
		h.intention = nil
		return false
	}
	i.Steps--
	return h.record(Call{Name: "intention", Behavior: dispatch.Behavior{
		Name: dispatch.BhvGoToPoint, Target: i.Target, Threshold: i.Tolerance, Power: i.MaxDash,
	}})
}

// Advance applies the recorded body commands to the world and starts the
// next cycle.
func (h *Host) Advance() {
	w := h.world
	for _, c := range h.calls {
		if h.reject[c.Name] {
			continue
		}
		h.apply(c)
	}
	h.calls = nil

	if w.Mode == field.AfterGoal {
		h.restart()
	} else if !w.Self.Kickable {
		h.returnBall()
	}
	h.press()
	w.Cycle++
}

func (h *Host) apply(c Call) {
	w := h.world
	b := c.Behavior
	switch c.Name {
	case string(dispatch.BhvSmartKick), string(dispatch.BhvKickOneStep):
		if !w.Self.Kickable {
			return
		}
		w.Self.Kickable = false
		w.Ball.Pos = b.Target
		if field.InTheirGoalMouth(b.Target) || b.Target.X >= field.PitchHalfLength {
			h.goals++
			w.Mode = field.AfterGoal
			return
		}
		if i := nearestMate(w.Teammates, b.Target); i >= 0 {
			w.Teammates[i].Pos = b.Target
			w.Teammates[i].Kickable = true
		}
	case string(dispatch.BhvDribble):
		if w.Self.Kickable {
			w.Self.Pos = clamp(b.Target)
			w.Ball.Pos = w.Self.Pos
		}
	case string(dispatch.BhvGoToPoint), "intention":
		h.step(b.Target)
	case string(dispatch.BhvBasicMove):
		h.step(w.HomePos)
	case string(dispatch.BhvIntercept):
		h.step(w.Ball.Pos)
	}
}

func (h *Host) step(to field.Vector) {
	w := h.world
	d := w.Self.Pos.Dist(to)
	if d == 0 {
		return
	}
	w.Self.Pos = w.Self.Pos.Towards(to, min(d, w.Self.Type.RealSpeedMax))
	if w.Self.Pos.Dist(w.Ball.Pos) <= w.Self.Type.KickableArea && !w.KickableTeammate() {
		w.Self.Kickable = true
	}
}

// returnBall has a teammate in possession pass back after a short hold.
func (h *Host) returnBall() {
	w := h.world
	if !w.KickableTeammate() {
		return
	}
	h.holdCycles++
	if h.holdCycles < 2 {
		return
	}
	h.holdCycles = 0
	for i := range w.Teammates {
		w.Teammates[i].Kickable = false
	}
	w.Ball.Pos = w.Self.Pos
	w.Self.Kickable = true
}

func (h *Host) restart() {
	w := h.world
	w.Mode = field.PlayOn
	w.Self.Pos = w.HomePos
	w.Self.Kickable = true
	w.Ball.Pos = w.Self.Pos
	for i := range w.Teammates {
		w.Teammates[i].Pos = HomePosition(w.Teammates[i].Unum)
		w.Teammates[i].Kickable = false
	}
}

// press moves every opponent a little towards the ball, stopping short of it.
func (h *Host) press() {
	w := h.world
	for i := range w.Opponents {
		o := &w.Opponents[i]
		if o.Goalie {
			continue
		}
		if d := o.Pos.Dist(w.Ball.Pos); d > 3 {
			o.Pos = clamp(o.Pos.Towards(w.Ball.Pos, 0.3).Add(field.Vec(jitter(h.rng)/4, jitter(h.rng)/4)))
		}
	}
}

func nearestMate(ps []field.Player, p field.Vector) int {
	best, bestD := -1, 0.0
	for i, m := range ps {
		if m.Goalie {
			continue
		}
		if d := m.Pos.Dist(p); best < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
