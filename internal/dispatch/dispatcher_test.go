package dispatch

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

type fakeHost struct {
	world       *field.World
	calls       []string
	behaviors   map[BehaviorName]Behavior
	fail        map[string]bool
	intention   *Intention
	intentionOK bool
}

func newFakeHost(w *field.World) *fakeHost {
	return &fakeHost{world: w, behaviors: map[BehaviorName]Behavior{}, fail: map[string]bool{}}
}

func (h *fakeHost) record(name string) bool {
	h.calls = append(h.calls, name)
	return !h.fail[name]
}

func (h *fakeHost) called(name string) bool {
	for _, c := range h.calls {
		if c == name {
			return true
		}
	}
	return false
}

func (h *fakeHost) World() *field.World { return h.world }
func (h *fakeHost) Dash(float64, float64) bool { return h.record("dash") }
func (h *fakeHost) Kick(float64, float64) bool { return h.record("kick") }
func (h *fakeHost) Turn(float64) bool { return h.record("turn") }
func (h *fakeHost) Tackle(float64, bool) bool { return h.record("tackle") }
func (h *fakeHost) Catch() bool { return h.record("catch") }
func (h *fakeHost) Move(field.Vector) bool { return h.record("move") }
func (h *fakeHost) TurnNeck(float64) bool { return h.record("turn_neck") }
func (h *fakeHost) ChangeView(string) bool { return h.record("change_view") }
func (h *fakeHost) Say(string) bool { return h.record("say") }
func (h *fakeHost) PointTo(field.Vector) bool { return h.record("point_to") }
func (h *fakeHost) PointToOff() bool { return h.record("point_to_off") }
func (h *fakeHost) AttentionTo(string, int) bool { return h.record("attention_to") }
func (h *fakeHost) AttentionToOff() bool { return h.record("attention_to_off") }
func (h *fakeHost) Log(string) bool { return h.record("log") }
func (h *fakeHost) SetIntention(i *Intention) { h.intention = i }
func (h *fakeHost) DoIntention() bool { return h.intentionOK }
func (h *fakeHost) Behave(b Behavior) bool {
	h.behaviors[b.Name] = b
	return h.record(string(b.Name))
}

type fakePlanner struct {
	calls  int
	graph  *chain.Graph
	policy *wire.PlannerEvaluation
	params chain.Params
}

func (p *fakePlanner) Plan(w *field.World, params chain.Params, policy *wire.PlannerEvaluation) *chain.Graph {
	p.calls++
	p.params = params
	p.policy = policy
	if p.graph != nil {
		return p.graph
	}
	return chain.NewBuilder(handoff{}).Build(w, params, byX{})
}

type handoff struct{}

func (handoff) Predict(_ *field.World, parent chain.State, a chain.Action) (chain.State, bool) {
	holder := a.Target
	if holder == 0 {
		holder = a.Sender
	}
	return parent.WithHolder(holder, a.TargetPoint), true
}

type byX struct{}

func (byX) Evaluate(_ *field.World, s chain.State, _ []*chain.Node) float64 { return s.BallPos.X }

type fakeArbiter struct {
	index int
	err   error
	calls int
}

func (a *fakeArbiter) Decide(context.Context, *chain.Graph) (int, error) {
	a.calls++
	return a.index, a.err
}

func playOnWorld() *field.World {
	return &field.World{
		Cycle:        50,
		Mode:         field.PlayOn,
		SelfPosValid: true,
		Self:         field.Player{Unum: 7, Pos: field.Vec(0, 0)},
		Ball:         field.Ball{Pos: field.Vec(5, 5)},
		Teammates:    []field.Player{{Unum: 9, Pos: field.Vec(15, 5)}, {Unum: 10, Pos: field.Vec(10, -8)}},
	}
}

func kickableWorld() *field.World {
	w := playOnWorld()
	w.Self.Kickable = true
	w.Ball.Pos = w.Self.Pos
	// Out of shooting range so the shoot stage declines.
	return w
}

func actions(as ...wire.PlayerAction) *wire.PlayerActions {
	return &wire.PlayerActions{Actions: as}
}

func TestFrozenEndsAtPreprocessWithoutGraph(t *testing.T) {
	w := playOnWorld()
	w.TackleExpires = 5
	h := newFakeHost(w)
	p := &fakePlanner{}
	rep := New(h, p).RunCycle(context.Background(), actions(wire.PlayerAction{Dash: &wire.Dash{Power: 100}}))

	if rep.Stage != StagePreprocess {
		t.Errorf("expected preprocess stage, got %s", rep.Stage)
	}
	if p.calls != 0 || rep.Graph != nil {
		t.Error("expected no graph built")
	}
	if h.called("dash") {
		t.Error("expected no primary action")
	}
	if !h.called(string(BhvNeckTurnToBallOrScan)) {
		t.Error("expected neck recovery")
	}
}

func TestPreprocessStages(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(w *field.World)
		want   BehaviorName
	}{
		{"before kick off", func(w *field.World) { w.Mode = field.BeforeKickOff; w.HomePos = field.Vec(-10, 3) }, BhvBeforeKickOff},
		{"after goal", func(w *field.World) { w.Mode = field.AfterGoal }, BhvBeforeKickOff},
		{"lost self", func(w *field.World) { w.SelfPosValid = false }, BhvEmergency},
		{"lost ball", func(w *field.World) { w.Ball.PosCount = 6 }, BhvNeckBodyToBall},
		{"stale ball in set play", func(w *field.World) { w.Mode = field.KickIn; w.Ball.SeenPosCount = 16 }, BhvNeckBodyToBall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := playOnWorld()
			tt.mutate(w)
			h := newFakeHost(w)
			rep := New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
			if rep.Stage != StagePreprocess {
				t.Errorf("expected preprocess, got %s", rep.Stage)
			}
			if !h.called(string(tt.want)) {
				t.Errorf("expected %s, got calls %v", tt.want, h.calls)
			}
		})
	}
}

func TestGoalieBallCountThreshold(t *testing.T) {
	w := playOnWorld()
	w.Self.Goalie = true
	w.Ball.PosCount = 8
	rep := New(newFakeHost(w), &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage != StageCommit {
		t.Errorf("expected goalie to tolerate ball count 8, ended at %s", rep.Stage)
	}
}

func TestIgnorePreprocess(t *testing.T) {
	w := playOnWorld()
	w.TackleExpires = 5
	h := newFakeHost(w)
	pa := actions(wire.PlayerAction{Dash: &wire.Dash{Power: 100}})
	pa.IgnorePreprocess = true
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), pa)
	if rep.Stage != StageCommit || rep.Committed != KindDash {
		t.Errorf("expected dash committed, got stage %s kind %s", rep.Stage, rep.Committed)
	}
}

func TestShootInPreprocess(t *testing.T) {
	w := kickableWorld()
	h := newFakeHost(w)
	h.intention = &Intention{Kind: "old"}
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage != StageShoot {
		t.Fatalf("expected shoot stage, got %s", rep.Stage)
	}
	if h.intention != nil {
		t.Error("expected intention cleared")
	}

	w.Mode = field.IndirectFreeKick
	h = newFakeHost(w)
	rep = New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage == StageShoot {
		t.Error("expected no shoot on indirect free kick")
	}
}

func TestDoIntention(t *testing.T) {
	h := newFakeHost(playOnWorld())
	h.intentionOK = true
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage != StageIntention {
		t.Errorf("expected intention stage, got %s", rep.Stage)
	}
}

func TestForceKick(t *testing.T) {
	tests := []struct {
		self field.Vector
		want field.Vector
	}{
		{field.Vec(10, 0), field.TheirGoal},
		{field.Vec(40, 15), field.Vec(45, 0)},
		{field.Vec(40, 5), field.TheirGoal},
	}
	for _, tt := range tests {
		w := kickableWorld()
		w.Self.Pos = tt.self
		w.Opponents = []field.Player{{Unum: 4, Pos: tt.self, Kickable: true}}
		h := newFakeHost(w)
		h.fail[string(BhvStrictCheckShoot)] = true
		rep := New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
		if rep.Stage != StageForceKick {
			t.Fatalf("self %v: expected force kick, got %s", tt.self, rep.Stage)
		}
		if got := h.behaviors[BhvKickOneStep].Target; got != tt.want {
			t.Errorf("self %v: expected target %v, got %v", tt.self, tt.want, got)
		}
		if !h.called(string(BhvNeckScanField)) {
			t.Error("expected neck scan")
		}
	}
}

func TestHeardPassReceive(t *testing.T) {
	w := playOnWorld()
	w.HeardPass = &field.PassMessage{Sender: 9, Receiver: 7, ReceivePos: field.Vec(12, 3), Time: w.Cycle}
	w.InterceptStep = 4
	h := newFakeHost(w)
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage != StageHeardPass {
		t.Fatalf("expected heard pass stage, got %s", rep.Stage)
	}
	if !h.called(string(BhvIntercept)) {
		t.Error("expected intercept")
	}
	if h.intention == nil || h.intention.Kind != IntentionReceive || h.intention.Target != field.Vec(12, 3) {
		t.Errorf("expected receive intention, got %+v", h.intention)
	}

	w.InterceptStep = 25
	h = newFakeHost(w)
	New(h, &fakePlanner{}).RunCycle(context.Background(), nil)
	got := h.behaviors[BhvGoToPoint]
	if got.Target != field.Vec(12, 3) || got.Threshold != 0.5 || got.Power != field.MaxDashPower {
		t.Errorf("expected go to heard point, got %+v", got)
	}

	w.HeardPass.Time = w.Cycle - 1
	rep = New(newFakeHost(w), &fakePlanner{}).RunCycle(context.Background(), nil)
	if rep.Stage == StageHeardPass {
		t.Error("expected stale pass message to be ignored")
	}
}

func TestCommitAtMostOnePrimary(t *testing.T) {
	h := newFakeHost(playOnWorld())
	h.fail["dash"] = true
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), actions(
		wire.PlayerAction{Dash: &wire.Dash{}},
		wire.PlayerAction{TurnNeck: &wire.TurnNeck{Moment: 30}},
		wire.PlayerAction{Turn: &wire.Turn{}},
		wire.PlayerAction{Kick: &wire.Kick{}},
		wire.PlayerAction{Say: &wire.Say{Message: "hi"}},
	))
	if rep.Committed != KindTurn {
		t.Errorf("expected turn committed, got %s", rep.Committed)
	}
	succeeded := 0
	for _, a := range rep.Attempts {
		if a.Primary && a.OK {
			succeeded++
		}
		if a.Kind == KindKick && !a.Skipped {
			t.Error("expected kick skipped after turn")
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one primary success, got %d", succeeded)
	}
	if !h.called("turn_neck") || !h.called("say") {
		t.Errorf("expected secondaries to run, got %v", h.calls)
	}
	if h.called("kick") {
		t.Error("kick should not reach the host")
	}
}

func TestSecondaryOnShortCircuit(t *testing.T) {
	for _, on := range []bool{false, true} {
		w := playOnWorld()
		w.TackleExpires = 2
		h := newFakeHost(w)
		d := New(h, &fakePlanner{}, WithConfig(Config{SecondaryOnShortCircuit: on}))
		d.RunCycle(context.Background(), actions(
			wire.PlayerAction{Say: &wire.Say{Message: "x"}},
			wire.PlayerAction{Dash: &wire.Dash{}},
		))
		if h.called("say") != on {
			t.Errorf("secondary on short circuit=%v: say called=%v", on, h.called("say"))
		}
		if h.called("dash") {
			t.Error("primary must not run on a short-circuited cycle")
		}
	}
}

func plannerAction(serverSide bool) wire.PlayerAction {
	return wire.PlayerAction{OffensivePlanner: &wire.OffensivePlanner{
		DirectPass: true, LeadPass: true, SimplePass: true, ServerSideDecision: serverSide,
		MaxDepth: 2, MaxNodes: 50,
	}}
}

func TestPlannerRemoteChosen(t *testing.T) {
	w := kickableWorld()
	h := newFakeHost(w)
	h.fail[string(BhvStrictCheckShoot)] = true
	g := chain.NewBuilder(handoff{}).Build(w, chain.DefaultParams(), byX{})
	target := g.Nodes()[0]
	arb := &fakeArbiter{index: target.Index}
	rep := New(h, &fakePlanner{graph: g}, WithArbiter(arb)).RunCycle(context.Background(), actions(plannerAction(true)))

	if rep.Remote != RemoteChosen {
		t.Fatalf("expected remote chosen, got %s (%v)", rep.Remote, rep.RemoteErr)
	}
	if rep.NodeIndex != target.Index {
		t.Errorf("expected node %d, got %d", target.Index, rep.NodeIndex)
	}
	if got := h.behaviors[BhvSmartKick].Target; got != target.Action.TargetPoint {
		t.Errorf("expected kick to %v, got %v", target.Action.TargetPoint, got)
	}
}

func TestPlannerRemoteFailureFallsBackToLocalBest(t *testing.T) {
	w := kickableWorld()
	h := newFakeHost(w)
	h.fail[string(BhvStrictCheckShoot)] = true
	g := chain.NewBuilder(handoff{}).Build(w, chain.DefaultParams(), byX{})
	best, _ := g.Best()
	arb := &fakeArbiter{err: errors.New("deadline")}
	rep := New(h, &fakePlanner{graph: g}, WithArbiter(arb)).RunCycle(context.Background(), actions(plannerAction(true)))

	if rep.Remote != RemoteFailed || rep.RemoteErr == nil {
		t.Errorf("expected remote failure recorded, got %s", rep.Remote)
	}
	if rep.NodeIndex != best.Index {
		t.Errorf("expected local best %d, got %d", best.Index, rep.NodeIndex)
	}
	if rep.Committed != KindOffensivePlanner {
		t.Errorf("expected planner committed, got %s", rep.Committed)
	}
}

func TestPlannerLocalWhenNotServerSide(t *testing.T) {
	w := kickableWorld()
	h := newFakeHost(w)
	h.fail[string(BhvStrictCheckShoot)] = true
	arb := &fakeArbiter{}
	p := &fakePlanner{}
	rep := New(h, p, WithArbiter(arb)).RunCycle(context.Background(), actions(plannerAction(false)))
	if arb.calls != 0 {
		t.Error("arbiter should not be called")
	}
	if rep.Remote != RemoteNotRequested {
		t.Errorf("expected not requested, got %s", rep.Remote)
	}
	if p.params.MaxDepth != 2 || p.params.MaxNodes != 50 || !p.params.SimplePass || p.params.Cross {
		t.Errorf("planner params not forwarded: %+v", p.params)
	}
}

func TestPlannerHoldAndScan(t *testing.T) {
	w := playOnWorld()
	h := newFakeHost(w)
	rep := New(h, &fakePlanner{}).RunCycle(context.Background(), actions(plannerAction(false)))
	if !rep.HoldAndScan {
		t.Error("expected hold and scan on empty graph")
	}
	if !h.called(string(BhvHoldBall)) || !h.called(string(BhvNeckScanField)) {
		t.Errorf("expected hold and scan behaviors, got %v", h.calls)
	}
}

func TestPlannerPolicyForwarded(t *testing.T) {
	h := newFakeHost(playOnWorld())
	p := &fakePlanner{}
	pa := plannerAction(false)
	pa.OffensivePlanner.Evaluation = &wire.PlannerEvaluation{}
	New(h, p).RunCycle(context.Background(), actions(pa))
	if p.policy == nil {
		t.Error("expected evaluation document forwarded to the planner")
	}
}

func TestDefaultActions(t *testing.T) {
	w := playOnWorld()
	if got := DefaultActions(w); got[0].Kind() != KindBasicMove {
		t.Errorf("expected basic move, got %s", got[0].Kind())
	}
	w.Self.Kickable = true
	if got := DefaultActions(w); got[0].Kind() != KindOffensivePlanner {
		t.Errorf("expected planner, got %s", got[0].Kind())
	}
	w.Mode = field.CornerKick
	if got := DefaultActions(w); got[0].Kind() != KindSetPlay {
		t.Errorf("expected set play, got %s", got[0].Kind())
	}
}

// Every wire variant converts to a distinct kind and routes to the host.
func TestEveryVariantRoutes(t *testing.T) {
	rt := reflect.TypeOf(wire.PlayerAction{})
	seen := map[Kind]string{}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		var pa wire.PlayerAction
		reflect.ValueOf(&pa).Elem().Field(i).Set(reflect.New(f.Type.Elem()))

		a := fromWire(pa)
		if a == nil {
			t.Fatalf("%s: no action", f.Name)
		}
		if prev, dup := seen[a.Kind()]; dup {
			t.Fatalf("%s and %s share kind %s", f.Name, prev, a.Kind())
		}
		seen[a.Kind()] = f.Name

		h := newFakeHost(playOnWorld())
		rep := New(h, &fakePlanner{}).RunCycle(context.Background(), actions(pa))
		last := rep.Attempts[len(rep.Attempts)-1]
		if !last.OK {
			t.Errorf("%s: expected host to accept, calls %v", f.Name, h.calls)
		}
		if last.Primary != a.Kind().Primary() {
			t.Errorf("%s: primary mismatch", f.Name)
		}
	}
	if len(seen) != int(kindCount) {
		t.Errorf("expected %d kinds covered, got %d", kindCount, len(seen))
	}
}

func TestFromWireDropsEmpty(t *testing.T) {
	got, dropped := FromWire([]wire.PlayerAction{{}, {Dash: &wire.Dash{}}})
	if len(got) != 1 || dropped != 1 {
		t.Errorf("expected 1 action and 1 dropped, got %d and %d", len(got), dropped)
	}
}
