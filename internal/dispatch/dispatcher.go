// Package dispatch runs one decision cycle: the short-circuit stages, the
// planner refresh and the commit loop over the cycle's action list.
package dispatch

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// Stage is where a cycle ended.
type Stage int

const (
	StagePreprocess Stage = iota
	StageShoot
	StageIntention
	StageForceKick
	StageHeardPass
	StageCommit
)

var stageNames = [...]string{"preprocess", "shoot", "intention", "force_kick", "heard_pass", "commit"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// RemoteOutcome records what happened to a remote arbitration request.
type RemoteOutcome int

const (
	RemoteNotRequested RemoteOutcome = iota
	RemoteChosen
	RemoteFailed
)

func (r RemoteOutcome) String() string {
	switch r {
	case RemoteChosen:
		return "chosen"
	case RemoteFailed:
		return "failed"
	default:
		return "not_requested"
	}
}

// Planner refreshes the chain graph for the cycle. A non-nil policy
// document replaces the active evaluation policy first.
type Planner interface {
	Plan(w *field.World, params chain.Params, policy *wire.PlannerEvaluation) *chain.Graph
}

// Arbiter picks the winning node of g remotely.
type Arbiter interface {
	Decide(ctx context.Context, g *chain.Graph) (int, error)
}

// Overrides are the remote server's requests to skip short-circuit stages.
type Overrides struct {
	IgnorePreprocess         bool
	IgnoreShootInPreprocess  bool
	IgnoreDoIntention        bool
	IgnoreDoForceKick        bool
	IgnoreDoHeardPassReceive bool
}

// Attempt is one action the commit loop considered.
type Attempt struct {
	Kind    Kind
	Primary bool
	Skipped bool
	OK      bool
}

// Report describes one cycle.
type Report struct {
	Cycle       int
	Stage       Stage
	Attempts    []Attempt
	Committed   Kind
	Graph       *chain.Graph
	NodeIndex   int
	Remote      RemoteOutcome
	RemoteErr   error
	HoldAndScan bool
	Dropped     int
}

// Config tunes the dispatcher.
type Config struct {
	// SecondaryOnShortCircuit runs the action list's secondary actions on
	// cycles that end before the commit loop.
	SecondaryOnShortCircuit bool
}

// Dispatcher runs cycles for one agent.
type Dispatcher struct {
	host    Host
	planner Planner
	arbiter Arbiter
	cfg     Config
	log     zerolog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithArbiter enables server-side planner decisions.
func WithArbiter(a Arbiter) Option {
	return func(d *Dispatcher) { d.arbiter = a }
}

// WithConfig sets the dispatcher config.
func WithConfig(c Config) Option {
	return func(d *Dispatcher) { d.cfg = c }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// New creates a Dispatcher.
func New(host Host, planner Planner, opts ...Option) *Dispatcher {
	d := &Dispatcher{host: host, planner: planner, log: log.Logger}
	for _, o := range opts {
		o(d)
	}
	return d
}

// OverridesFrom extracts the skip flags of a remote response.
func OverridesFrom(pa *wire.PlayerActions) Overrides {
	if pa == nil {
		return Overrides{}
	}
	return Overrides{
		IgnorePreprocess:         pa.IgnorePreprocess,
		IgnoreShootInPreprocess:  pa.IgnoreShootInPreprocess,
		IgnoreDoIntention:        pa.IgnoreDoIntention,
		IgnoreDoForceKick:        pa.IgnoreDoForceKick,
		IgnoreDoHeardPassReceive: pa.IgnoreDoHeardPassReceive,
	}
}

// DefaultActions is the action list used when no remote list arrived.
func DefaultActions(w *field.World) []Action {
	if w.Mode != field.PlayOn {
		if w.Self.Goalie {
			return []Action{Goalie{}}
		}
		return []Action{SetPlay{}}
	}
	switch {
	case w.Self.Goalie:
		return []Action{Goalie{}}
	case w.Kickable():
		p := chain.DefaultParams()
		return []Action{OffensivePlanner{
			DirectPass: p.DirectPass, LeadPass: p.LeadPass, ThroughPass: p.ThroughPass,
			Cross: p.Cross, ShortDribble: p.ShortDribble, LongDribble: p.LongDribble,
			SimpleShoot: p.SimpleShoot, MaxDepth: p.MaxDepth, MaxNodes: p.MaxNodes,
		}}
	default:
		return []Action{BasicMove{}, NeckTurnToBallOrScan{}}
	}
}

// RunCycle runs one cycle over the remote response. A nil or empty response
// falls back to DefaultActions.
func (d *Dispatcher) RunCycle(ctx context.Context, remote *wire.PlayerActions) Report {
	w := d.host.World()
	rep := Report{Cycle: w.Cycle, Committed: KindNone, NodeIndex: chain.RootParent}

	var actions []Action
	if remote != nil {
		actions, rep.Dropped = FromWire(remote.Actions)
		if rep.Dropped > 0 {
			d.log.Warn().Int("dropped", rep.Dropped).Int("cycle", w.Cycle).Msg("Dropped actions with no variant set")
		}
	}
	if len(actions) == 0 {
		actions = DefaultActions(w)
	}

	if stage, ended := d.shortCircuit(w, OverridesFrom(remote)); ended {
		rep.Stage = stage
		if d.cfg.SecondaryOnShortCircuit {
			for _, a := range actions {
				if !a.Kind().Primary() {
					rep.Attempts = append(rep.Attempts, Attempt{Kind: a.Kind(), OK: d.execSecondary(a)})
				}
			}
		}
		d.log.Debug().Int("cycle", w.Cycle).Stringer("stage", stage).Msg("Cycle ended early")
		return rep
	}

	params, policy := plannerParams(actions)
	rep.Graph = d.planner.Plan(w, params, policy)
	rep.Stage = StageCommit

	performed := false
	for _, a := range actions {
		k := a.Kind()
		if !k.Primary() {
			rep.Attempts = append(rep.Attempts, Attempt{Kind: k, OK: d.execSecondary(a)})
			continue
		}
		if performed {
			rep.Attempts = append(rep.Attempts, Attempt{Kind: k, Primary: true, Skipped: true})
			continue
		}
		ok := d.execPrimary(ctx, a, &rep)
		rep.Attempts = append(rep.Attempts, Attempt{Kind: k, Primary: true, OK: ok})
		if ok {
			performed = true
			rep.Committed = k
		}
	}
	return rep
}

// plannerParams reads the first planner action's settings, or the defaults.
func plannerParams(actions []Action) (chain.Params, *wire.PlannerEvaluation) {
	for _, a := range actions {
		op, ok := a.(OffensivePlanner)
		if !ok {
			continue
		}
		return chain.Params{
			MaxDepth:      op.MaxDepth,
			MaxNodes:      op.MaxNodes,
			DirectPass:    op.DirectPass,
			LeadPass:      op.LeadPass,
			ThroughPass:   op.ThroughPass,
			Cross:         op.Cross,
			ShortDribble:  op.ShortDribble,
			LongDribble:   op.LongDribble,
			SimplePass:    op.SimplePass,
			SimpleDribble: op.SimpleDribble,
			SimpleShoot:   op.SimpleShoot,
		}, op.Evaluation
	}
	return chain.DefaultParams(), nil
}

func (d *Dispatcher) shortCircuit(w *field.World, o Overrides) (Stage, bool) {
	if !o.IgnorePreprocess && d.preprocess(w) {
		return StagePreprocess, true
	}
	if !o.IgnoreShootInPreprocess && d.shootInPreprocess(w) {
		return StageShoot, true
	}
	if !o.IgnoreDoIntention && d.host.DoIntention() {
		return StageIntention, true
	}
	if !o.IgnoreDoForceKick && d.forceKick(w) {
		return StageForceKick, true
	}
	if !o.IgnoreDoHeardPassReceive && d.heardPassReceive(w) {
		return StageHeardPass, true
	}
	return 0, false
}

func (d *Dispatcher) preprocess(w *field.World) bool {
	if w.Frozen() {
		d.host.Behave(Behavior{Name: BhvViewTactical})
		d.host.Behave(Behavior{Name: BhvNeckTurnToBallOrScan})
		return true
	}
	if w.Mode == field.BeforeKickOff || w.Mode == field.AfterGoal {
		d.host.Behave(Behavior{Name: BhvBeforeKickOff, Target: w.HomePos})
		return true
	}
	if !w.SelfPosValid {
		d.host.Behave(Behavior{Name: BhvEmergency})
		return true
	}
	thr := 5
	if w.Self.Goalie {
		thr = 10
	}
	if w.Ball.PosCount > thr || (w.Mode != field.PlayOn && w.Ball.SeenPosCount > thr+10) {
		d.host.Behave(Behavior{Name: BhvNeckBodyToBall})
		return true
	}
	return false
}

func (d *Dispatcher) shootInPreprocess(w *field.World) bool {
	if w.Mode == field.IndirectFreeKick || w.StoppedCycle != 0 || !w.Kickable() {
		return false
	}
	if !d.host.Behave(Behavior{Name: BhvStrictCheckShoot}) {
		return false
	}
	d.host.SetIntention(nil)
	return true
}

func (d *Dispatcher) forceKick(w *field.World) bool {
	if w.Mode != field.PlayOn || w.Self.Goalie || !w.Kickable() || !w.KickableOpponent() {
		return false
	}
	target := field.TheirGoal
	if w.Self.Pos.X > 36 && math.Abs(w.Self.Pos.Y) > 10 {
		target = field.Vec(45, 0)
	}
	d.host.Behave(Behavior{Name: BhvKickOneStep, Target: target, Speed: field.BallSpeedMax})
	d.host.Behave(Behavior{Name: BhvNeckScanField})
	return true
}

func (d *Dispatcher) heardPassReceive(w *field.World) bool {
	hp := w.HeardPass
	if hp == nil || hp.Time != w.Cycle || hp.Receiver != w.Self.Unum {
		return false
	}
	if !w.KickableTeammate() && w.Ball.PosCount <= 1 && w.Ball.VelCount <= 1 && w.InterceptStep < 20 {
		d.host.Behave(Behavior{Name: BhvIntercept})
	} else {
		d.host.Behave(Behavior{Name: BhvGoToPoint, Target: hp.ReceivePos, Threshold: 0.5, Power: field.MaxDashPower})
	}
	d.host.Behave(Behavior{Name: BhvNeckTurnToBall})
	d.host.SetIntention(&Intention{
		Kind:      IntentionReceive,
		Target:    hp.ReceivePos,
		MaxDash:   field.MaxDashPower,
		Tolerance: 0.9,
		Steps:     5,
		Cycle:     w.Cycle,
	})
	return true
}

func (d *Dispatcher) execPrimary(ctx context.Context, a Action, rep *Report) bool {
	h := d.host
	switch a := a.(type) {
	case Dash:
		return h.Dash(a.Power, a.RelativeDirection)
	case Kick:
		return h.Kick(a.Power, a.RelativeDirection)
	case Turn:
		return h.Turn(a.RelativeDirection)
	case Tackle:
		return h.Tackle(a.PowerOrDir, a.Foul)
	case Catch:
		return h.Catch()
	case Move:
		return h.Move(field.Vec(a.X, a.Y))
	case GoToPoint:
		return h.Behave(Behavior{Name: BhvGoToPoint, Target: a.Target, Threshold: a.DistanceThreshold, Power: a.MaxDashPower})
	case SmartKick:
		return h.Behave(Behavior{Name: BhvSmartKick, Target: a.Target, Speed: a.FirstSpeed, Threshold: a.FirstSpeedThreshold, Steps: a.MaxSteps})
	case KickOneStep:
		return h.Behave(Behavior{Name: BhvKickOneStep, Target: a.Target, Speed: a.FirstSpeed})
	case Intercept:
		return h.Behave(Behavior{Name: BhvIntercept})
	case HoldBall:
		return h.Behave(Behavior{Name: BhvHoldBall})
	case ClearBall:
		return h.Behave(Behavior{Name: BhvClearBall})
	case StopBall:
		return h.Behave(Behavior{Name: BhvStopBall})
	case TurnToBall:
		return h.Behave(Behavior{Name: BhvTurnToBall, Steps: a.Cycle})
	case TurnToPoint:
		return h.Behave(Behavior{Name: BhvTurnToPoint, Target: a.Target, Steps: a.Cycle})
	case Goalie:
		return h.Behave(Behavior{Name: BhvGoalie})
	case BasicMove:
		return h.Behave(Behavior{Name: BhvBasicMove})
	case SetPlay:
		return h.Behave(Behavior{Name: BhvSetPlay})
	case Penalty:
		return h.Behave(Behavior{Name: BhvPenalty})
	case BasicTackle:
		return h.Behave(Behavior{Name: BhvBasicTackle, Threshold: a.MinProb, Power: a.BodyThreshold})
	case StrictCheckShoot:
		return h.Behave(Behavior{Name: BhvStrictCheckShoot})
	case Emergency:
		return h.Behave(Behavior{Name: BhvEmergency})
	case ScanField:
		return h.Behave(Behavior{Name: BhvScanField})
	case OffensivePlanner:
		return d.runPlanner(ctx, a, rep)
	}
	d.log.Error().Stringer("kind", a.Kind()).Msg("Secondary action routed as primary")
	return false
}

func (d *Dispatcher) execSecondary(a Action) bool {
	h := d.host
	switch a := a.(type) {
	case TurnNeck:
		return h.TurnNeck(a.Moment)
	case ChangeView:
		return h.ChangeView(a.Width)
	case Say:
		return h.Say(a.Message)
	case PointTo:
		return h.PointTo(field.Vec(a.X, a.Y))
	case PointToOff:
		return h.PointToOff()
	case AttentionTo:
		return h.AttentionTo(a.Side, a.Unum)
	case AttentionToOff:
		return h.AttentionToOff()
	case Log:
		return h.Log(a.Text)
	case NeckScanField:
		return h.Behave(Behavior{Name: BhvNeckScanField})
	case NeckTurnToBall:
		return h.Behave(Behavior{Name: BhvNeckTurnToBall})
	case NeckTurnToBallOrScan:
		return h.Behave(Behavior{Name: BhvNeckTurnToBallOrScan, Steps: a.CountThreshold})
	case NeckTurnToPoint:
		return h.Behave(Behavior{Name: BhvNeckTurnToPoint, Target: a.Target})
	case ViewSynch:
		return h.Behave(Behavior{Name: BhvViewSynch})
	case FocusMoveToPoint:
		return h.Behave(Behavior{Name: BhvFocusMoveToPoint, Target: a.Target})
	case FocusReset:
		return h.Behave(Behavior{Name: BhvFocusReset})
	case Communication:
		return h.Behave(Behavior{Name: BhvCommunication})
	}
	d.log.Error().Stringer("kind", a.Kind()).Msg("Primary action routed as secondary")
	return false
}

// runPlanner commits a chain: the remote winner when requested and
// available, else the best local leaf, else hold and scan.
func (d *Dispatcher) runPlanner(ctx context.Context, op OffensivePlanner, rep *Report) bool {
	g := rep.Graph
	if g != nil && g.Len() > 0 && len(g.Committed()) == 0 {
		if op.ServerSideDecision && d.arbiter != nil {
			idx, err := d.arbiter.Decide(ctx, g)
			if err == nil {
				err = g.SelectWinner(idx)
			}
			if err != nil {
				rep.Remote, rep.RemoteErr = RemoteFailed, err
				d.log.Warn().Err(err).Int("cycle", rep.Cycle).Msg("Remote arbitration failed; falling back to local best")
			} else {
				rep.Remote = RemoteChosen
			}
		}
		if len(g.Committed()) == 0 {
			if best, ok := g.Best(); ok {
				_ = g.SelectWinner(best.Index)
			}
		}
	}
	if g != nil {
		if path := g.Committed(); len(path) > 0 && d.executePlanned(path[0].Action) {
			rep.NodeIndex = path[len(path)-1].Index
			return true
		}
	}
	rep.HoldAndScan = true
	ok := d.host.Behave(Behavior{Name: BhvHoldBall})
	d.host.Behave(Behavior{Name: BhvNeckScanField})
	return ok
}

// executePlanned turns a chain action into a body behavior.
func (d *Dispatcher) executePlanned(a chain.Action) bool {
	switch a.Category {
	case chain.Pass, chain.Shoot, chain.Clear:
		return d.host.Behave(Behavior{
			Name:      BhvSmartKick,
			Target:    a.TargetPoint,
			Speed:     a.FirstBallSpeed,
			Threshold: a.FirstBallSpeed * 0.99,
			Steps:     3,
		})
	case chain.Dribble:
		return d.host.Behave(Behavior{
			Name:   BhvDribble,
			Target: a.TargetPoint,
			Speed:  a.FirstBallSpeed,
			Power:  a.FirstDashPower,
			Steps:  a.DashCount,
		})
	case chain.Hold:
		return d.host.Behave(Behavior{Name: BhvHoldBall})
	case chain.Move:
		return d.host.Behave(Behavior{Name: BhvGoToPoint, Target: a.TargetPoint, Threshold: 1, Power: field.MaxDashPower})
	case chain.NoAction:
		return false
	}
	return false
}
