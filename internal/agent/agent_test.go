package agent

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/internal/decider"
	"github.com/freeeve/soccer-proxy/internal/dispatch"
	"github.com/freeeve/soccer-proxy/internal/journal"
	"github.com/freeeve/soccer-proxy/internal/sim"
	"github.com/freeeve/soccer-proxy/internal/transport"
	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

type fakeJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *fakeJournal) Record(_ context.Context, e journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return nil
}

type fakeTracer struct {
	cycles []int
}

func (t *fakeTracer) Add(_ string, _ int, cycle int, g *chain.Graph) error {
	t.cycles = append(t.cycles, cycle)
	return nil
}

// attackWorld puts #7 on the ball with two free teammates ahead and no
// opponent nearby.
func attackWorld() *field.World {
	self := field.Player{Unum: 7, Pos: field.Vec(0, 0), Kickable: true, Type: field.DefaultPlayerType}
	return &field.World{
		Cycle:        10,
		Team:         "robo",
		Side:         field.Left,
		Mode:         field.PlayOn,
		Self:         self,
		SelfPosValid: true,
		Ball:         field.Ball{Pos: self.Pos},
		HomePos:      field.Vec(-20, 0),
		Teammates: []field.Player{
			{Unum: 9, Pos: field.Vec(12, 6), Type: field.DefaultPlayerType},
			{Unum: 10, Pos: field.Vec(12, -6), Type: field.DefaultPlayerType},
		},
		Opponents: []field.Player{
			{Unum: 1, Pos: field.Vec(50, 0), Goalie: true, Type: field.DefaultPlayerType},
			{Unum: 4, Pos: field.Vec(-40, 30), Type: field.DefaultPlayerType},
		},
	}
}

func newHost(w *field.World) *sim.Host {
	h := sim.NewHost(w, nil)
	// Keep the cycle out of the preprocess shoot so the planner runs.
	h.Reject(string(dispatch.BhvStrictCheckShoot))
	return h
}

func TestLocalCycleCommitsPlanner(t *testing.T) {
	h := newHost(attackWorld())
	j := &fakeJournal{}
	tr := &fakeTracer{}
	a := New(Identity{Team: "robo", Unum: 7}, h, sim.Kinematic{}, WithJournal(j), WithTracer(tr))

	rep, err := a.Cycle(context.Background())
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if rep.Stage != dispatch.StageCommit {
		t.Fatalf("expected commit stage, got %v", rep.Stage)
	}
	if rep.Committed != dispatch.KindOffensivePlanner {
		t.Errorf("expected the planner to commit, got %v", rep.Committed)
	}
	if rep.Graph == nil || rep.Graph.Len() == 0 {
		t.Fatal("expected a non-empty graph")
	}
	if rep.HoldAndScan || rep.NodeIndex <= 0 {
		t.Errorf("expected a committed chain, got node %d hold=%v", rep.NodeIndex, rep.HoldAndScan)
	}
	if rep.Remote != dispatch.RemoteNotRequested {
		t.Errorf("expected no remote arbitration, got %v", rep.Remote)
	}
	if len(a.prev) == 0 {
		t.Error("expected the committed chain to be kept for replay")
	}

	if len(j.entries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(j.entries))
	}
	e := j.entries[0]
	if e.Cycle != 10 || e.Stage != "commit" || e.Committed != "offensive_planner" || e.Nodes != rep.Graph.Len() {
		t.Errorf("unexpected journal entry %+v", e)
	}
	if len(tr.cycles) != 1 || tr.cycles[0] != 10 {
		t.Errorf("expected one trace for cycle 10, got %v", tr.cycles)
	}
}

func TestRunAdvancesHost(t *testing.T) {
	w := attackWorld()
	h := newHost(w)
	j := &fakeJournal{}
	a := New(Identity{Team: "robo", Unum: 7}, h, sim.Kinematic{}, WithJournal(j))

	if err := a.Run(context.Background(), 3, h.Advance); err != nil {
		t.Fatalf("run: %v", err)
	}
	if w.Cycle != 13 {
		t.Errorf("expected cycle 13, got %d", w.Cycle)
	}
	if len(j.entries) != 3 {
		t.Errorf("expected 3 journal entries, got %d", len(j.entries))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHost(attackWorld())
	a := New(Identity{Team: "robo", Unum: 7}, h, sim.Kinematic{})
	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	err := a.Run(ctx, 0, func() {
		steps++
		if steps == 2 {
			cancel()
		}
		h.Advance()
	})
	if err != nil {
		t.Fatalf("expected a clean stop, got %v", err)
	}
	if steps != 2 {
		t.Errorf("expected 2 cycles before stopping, got %d", steps)
	}
}

func TestApplyDocument(t *testing.T) {
	a := New(Identity{Team: "robo", Unum: 7}, newHost(attackWorld()), sim.Kinematic{}, WithFirstLayer(true))
	if a.Policy().OpponentDistance != nil {
		t.Fatal("expected the default policy to have no distance curve")
	}

	pass := 2.0
	a.ApplyDocument(&wire.PlannerEvaluation{Effectors: &wire.PlannerEffectors{
		Opponent:   &wire.OpponentEffector{ByDistance: []float64{-10, -5}},
		ActionType: &wire.ActionTypeEffector{DirectPass: &pass},
	}})
	p := a.Policy()
	if p.OpponentDistance == nil || !p.OpponentDistance.FirstLayer {
		t.Errorf("expected a first-layer distance curve, got %+v", p.OpponentDistance)
	}
	if p.ActionType["direct_pass"] != 2 {
		t.Errorf("expected direct pass weight 2, got %v", p.ActionType)
	}

	a.SetPolicy(nil)
	if a.Policy() != p {
		t.Error("expected a nil policy to be ignored")
	}
}

// flakyActions fails every get-actions call.
type flakyActions struct {
	*decider.Service
}

func (f flakyActions) GetPlayerActions(context.Context, *wire.State) (*wire.PlayerActions, error) {
	return nil, status.Error(codes.Internal, "model crashed")
}

func dialBufconn(t *testing.T, srv wire.GameServer) transport.Dialer {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := decider.NewGRPCServer(srv, nil)
	go s.Serve(lis)
	t.Cleanup(s.Stop)
	return transport.GRPCDialer(nil, grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
}

func newSession(dial transport.Dialer) *transport.Session {
	return transport.NewSession(dial, "passthrough:///bufnet",
		wire.RegisterRequest{TeamName: "robo", Unum: 7},
		transport.WithBackoff(10*time.Millisecond))
}

func TestRemoteArbitration(t *testing.T) {
	p := decider.DefaultPolicy()
	p.ServerSideDecision = true
	p.MaxDepth = 2
	p.MaxNodes = 100
	svc := decider.NewService(p)

	h := newHost(attackWorld())
	j := &fakeJournal{}
	a := New(Identity{Team: "robo", Unum: 7}, h, sim.Kinematic{},
		WithSession(newSession(dialBufconn(t, svc))), WithJournal(j))
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rep, err := a.Cycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if rep.Remote != dispatch.RemoteChosen {
		t.Fatalf("expected the server to choose, got %v (%v)", rep.Remote, rep.RemoteErr)
	}
	if rep.Committed != dispatch.KindOffensivePlanner {
		t.Errorf("expected the planner to commit, got %v", rep.Committed)
	}
	// The server answers with a first-layer node.
	path := rep.Graph.Committed()
	if len(path) != 1 || path[0].Parent != chain.RootParent {
		t.Errorf("expected a single first-layer node committed, got %d nodes", len(path))
	}
	if j.entries[0].Remote != "chosen" {
		t.Errorf("expected the journal to record the remote choice, got %q", j.entries[0].Remote)
	}
	if svc.ClientCount() != 1 {
		t.Errorf("expected the agent to be registered, got %d clients", svc.ClientCount())
	}

	a.Close()
	if svc.ClientCount() != 0 {
		t.Errorf("expected bye to unregister, got %d clients", svc.ClientCount())
	}
}

func TestGetActionsFailureFallsBack(t *testing.T) {
	svc := decider.NewService(decider.DefaultPolicy())
	h := newHost(attackWorld())
	a := New(Identity{Team: "robo", Unum: 7}, h, sim.Kinematic{},
		WithSession(newSession(dialBufconn(t, flakyActions{svc}))))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rep, err := a.Cycle(ctx)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if rep.Stage != dispatch.StageCommit || rep.Committed != dispatch.KindOffensivePlanner {
		t.Errorf("expected the local default planner, got %v/%v", rep.Stage, rep.Committed)
	}
	if rep.Remote != dispatch.RemoteNotRequested {
		t.Errorf("expected no arbitration without a server-side request, got %v", rep.Remote)
	}
}

func TestCycleWaitsForServer(t *testing.T) {
	dial := func(ctx context.Context, addr string) (transport.Transport, error) {
		return nil, status.Error(codes.Unavailable, "no server")
	}
	a := New(Identity{Team: "robo", Unum: 7}, newHost(attackWorld()), sim.Kinematic{},
		WithSession(newSession(dial)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := a.Cycle(ctx); err == nil {
		t.Error("expected the cycle to give up when ctx ends while disconnected")
	}
}
