package sim

import (
	"testing"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/internal/dispatch"
	"github.com/freeeve/soccer-proxy/internal/evaluator"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

func rootState() chain.State {
	return chain.State{
		BallHolder: 7,
		BallPos:    field.Vec(10, 0),
		Self:       7,
		Teammates: []field.Player{
			{Unum: 7, Pos: field.Vec(10, 0), Type: field.DefaultPlayerType},
			{Unum: 9, Pos: field.Vec(25, 5), Type: field.DefaultPlayerType},
		},
		Opponents: []field.Player{
			{Unum: 4, Pos: field.Vec(20, -20), Type: field.DefaultPlayerType},
		},
	}
}

func TestPredictPass(t *testing.T) {
	parent := rootState()
	a := chain.Action{Category: chain.Pass, Sender: 7, Target: 9, TargetPoint: field.Vec(25, 5), DurationStep: 8}
	s, ok := Kinematic{}.Predict(nil, parent, a)
	if !ok {
		t.Fatal("expected the pass to succeed")
	}
	if s.BallHolder != 9 {
		t.Errorf("expected holder 9, got %d", s.BallHolder)
	}
	if !s.BallPos.Equal(field.Vec(25, 5)) {
		t.Errorf("expected ball at target, got %+v", s.BallPos)
	}
	if s.SpendTime != 8 {
		t.Errorf("expected spend time 8, got %d", s.SpendTime)
	}
	if parent.BallHolder != 7 || parent.Teammates[1].Pos.X != 25 {
		t.Error("parent state was modified")
	}
}

func TestPredictPassInterceptedByOpponent(t *testing.T) {
	parent := rootState()
	parent.Opponents = []field.Player{{Unum: 4, Pos: field.Vec(24, 5), Type: field.DefaultPlayerType}}
	a := chain.Action{Category: chain.Pass, Sender: 7, Target: 9, TargetPoint: field.Vec(25, 5), DurationStep: 8}
	if _, ok := (Kinematic{}).Predict(nil, parent, a); ok {
		t.Error("expected an opponent next to the target to cut the pass out")
	}
}

func TestPredictPassUnknownReceiver(t *testing.T) {
	a := chain.Action{Category: chain.Pass, Sender: 7, Target: 11, TargetPoint: field.Vec(25, 5)}
	if _, ok := (Kinematic{}).Predict(nil, rootState(), a); ok {
		t.Error("expected failure for a receiver not on the pitch")
	}
}

func TestPredictShootAndDribble(t *testing.T) {
	shot := chain.Action{Category: chain.Shoot, Sender: 7, TargetPoint: field.Vec(52.5, 0), DurationStep: 20}
	s, ok := Kinematic{}.Predict(nil, rootState(), shot)
	if !ok || s.BallHolder != 7 || !field.InTheirGoalMouth(s.BallPos) {
		t.Errorf("expected the shooter's ball in the goal mouth, got %+v ok=%v", s, ok)
	}
	if got := evaluator.New(nil).Evaluate(&field.World{}, s, nil); got != evaluator.GoalScore {
		t.Errorf("expected a predicted shot to score the goal sentinel, got %f", got)
	}

	drib := chain.Action{Category: chain.Dribble, Sender: 7, Target: 7, TargetPoint: field.Vec(14, 0), DurationStep: 5}
	s, ok = Kinematic{}.Predict(nil, rootState(), drib)
	if !ok || s.BallHolder != 7 || s.BallPos.X != 14 {
		t.Errorf("expected self to carry the ball to x=14, got %+v ok=%v", s, ok)
	}

	if _, ok := (Kinematic{}).Predict(nil, rootState(), chain.Action{Category: chain.NoAction}); ok {
		t.Error("expected NoAction to be rejected")
	}
}

func TestKickoffWorld(t *testing.T) {
	w := Kickoff("robo", 10, false, 0, nil)
	if !w.Kickable() || w.BallHolder() != 10 {
		t.Error("expected self to start with the ball")
	}
	if len(w.Teammates) != 10 || len(w.Opponents) != 11 {
		t.Errorf("expected 10 teammates and 11 opponents, got %d/%d", len(w.Teammates), len(w.Opponents))
	}
	if w.Mode != field.PlayOn || !w.SelfPosValid {
		t.Error("expected a valid play-on world")
	}
	for _, o := range w.Opponents {
		if !field.InPitch(o.Pos) && o.Pos.X != field.PitchHalfLength {
			t.Errorf("opponent %d off the pitch at %+v", o.Unum, o.Pos)
		}
	}
}

func TestHostRecordsAndRejects(t *testing.T) {
	h := NewHost(Kickoff("robo", 7, false, 0, nil), nil)
	h.Reject("turn")
	if !h.Dash(50, 0) {
		t.Error("expected dash to be accepted")
	}
	if h.Turn(30) {
		t.Error("expected rejected turn to report failure")
	}
	h.Behave(dispatch.Behavior{Name: dispatch.BhvNeckScanField})
	got := h.Names()
	want := []string{"dash", "turn", "neck_scan_field"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestHostIntentionCountsDown(t *testing.T) {
	w := Kickoff("robo", 7, false, 0, nil)
	w.Self.Kickable = false
	h := NewHost(w, nil)
	h.SetIntention(&dispatch.Intention{Kind: dispatch.IntentionReceive, Target: field.Vec(0, 0), Steps: 2})
	if !h.DoIntention() || !h.DoIntention() {
		t.Fatal("expected two intention steps")
	}
	if h.DoIntention() {
		t.Error("expected the intention to be exhausted")
	}
	if h.Intention() != nil {
		t.Error("expected the exhausted intention to be cleared")
	}
}

func TestHostAdvancePassAndReturn(t *testing.T) {
	w := Kickoff("robo", 7, false, 0, nil)
	h := NewHost(w, nil)
	target := HomePosition(10)
	h.Behave(dispatch.Behavior{Name: dispatch.BhvSmartKick, Target: target, Speed: 2.5})
	h.Advance()

	if w.Self.Kickable {
		t.Error("expected self to lose the ball after kicking")
	}
	if !w.KickableTeammate() {
		t.Error("expected a teammate to receive the pass")
	}
	if w.Cycle != 2 {
		t.Errorf("expected cycle 2, got %d", w.Cycle)
	}
	if len(h.Calls()) != 0 {
		t.Error("expected calls to be cleared")
	}

	h.Advance()
	if !w.Self.Kickable {
		t.Error("expected the ball to come back after a short hold")
	}
}

func TestHostGoalRestarts(t *testing.T) {
	w := Kickoff("robo", 9, false, 0, nil)
	w.Self.Pos = field.Vec(45, 0)
	w.Ball.Pos = w.Self.Pos
	h := NewHost(w, nil)
	h.Behave(dispatch.Behavior{Name: dispatch.BhvSmartKick, Target: field.Vec(52.5, 0), Speed: 3})
	h.Advance()
	if h.Goals() != 1 {
		t.Errorf("expected 1 goal, got %d", h.Goals())
	}
	if w.Mode != field.PlayOn || !w.Self.Kickable || !w.Self.Pos.Equal(w.HomePos) {
		t.Errorf("expected a restart from the home position, got mode=%v pos=%+v", w.Mode, w.Self.Pos)
	}
}
