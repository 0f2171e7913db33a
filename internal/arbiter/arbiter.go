// Package arbiter asks a remote decision server to pick the winning node of
// a chain graph under a hard deadline.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

var (
	// ErrInvalidIndex means the server named a node the graph does not hold.
	ErrInvalidIndex = errors.New("arbitration returned unknown node index")
	// ErrDeadlineExceeded means no answer arrived before the deadline.
	ErrDeadlineExceeded = errors.New("arbitration deadline exceeded")
	// ErrEmptyGraph means there was nothing to arbitrate.
	ErrEmptyGraph = errors.New("arbitration over empty graph")
)

// DefaultTimeout bounds one arbitration call.
const DefaultTimeout = 3 * time.Second

// Caller is the transport operation the client needs.
type Caller interface {
	GetBestPlannerAction(ctx context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error)
}

// Client performs arbitration calls.
type Client struct {
	caller  Caller
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the client's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client.
func New(caller Caller, opts ...Option) *Client {
	c := &Client{caller: caller, timeout: DefaultTimeout, log: log.Logger}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BuildRequest encodes every node of g keyed by index.
func BuildRequest(g *chain.Graph, reg wire.RegisterResponse, state *wire.State) *wire.ArbitrationRequest {
	pairs := make(map[int32]wire.ActionStatePair, g.Len())
	for _, n := range g.Nodes() {
		pairs[int32(n.Index)] = EncodeNode(n)
	}
	return &wire.ArbitrationRequest{Register: reg, State: state, Pairs: pairs}
}

// EncodeNode converts a node to its wire form.
func EncodeNode(n *chain.Node) wire.ActionStatePair {
	a := n.Action
	return wire.ActionStatePair{
		Action: wire.CandidateAction{
			Category:               int(a.Category),
			Index:                  int32(n.Index),
			SenderUnum:             a.Sender,
			TargetUnum:             a.Target,
			TargetPoint:            a.TargetPoint,
			FirstBallSpeed:         a.FirstBallSpeed,
			FirstTurnMoment:        a.FirstTurn,
			FirstDashPower:         a.FirstDashPower,
			FirstDashAngleRelative: a.FirstDashAngle,
			DurationStep:           a.DurationStep,
			KickCount:              a.KickCount,
			TurnCount:              a.TurnCount,
			DashCount:              a.DashCount,
			FinalAction:            a.Final,
			Description:            a.Description,
			ParentIndex:            int32(n.Parent),
		},
		PredictState: wire.PredictState{
			SpendTime:       n.State.SpendTime,
			BallHolderUnum:  n.State.BallHolder,
			BallPosition:    n.State.BallPos,
			BallVelocity:    n.State.BallVel,
			OurDefenseLineX: n.State.DefenseLineX,
			OurOffenseLineX: n.State.OffenseLineX,
		},
		Evaluation: n.Eval,
	}
}

// Decide sends the graph and returns the winning index. The call is
// abandoned when the deadline fires; a late answer is discarded. The caller
// must tolerate finishing after Decide returns.
func (c *Client) Decide(ctx context.Context, g *chain.Graph, reg wire.RegisterResponse, state *wire.State) (int, error) {
	if g.Len() == 0 {
		return 0, ErrEmptyGraph
	}
	req := BuildRequest(g, reg, state)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	type result struct {
		resp *wire.ArbitrationResponse
		err  error
	}
	ch := make(chan result, 1)
	start := time.Now()
	go func() {
		resp, err := c.caller.GetBestPlannerAction(ctx, req)
		ch <- result{resp, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		c.log.Warn().Dur("after", time.Since(start)).Int("nodes", g.Len()).Msg("Arbitration timed out")
		return 0, fmt.Errorf("%w: %v", ErrDeadlineExceeded, ctx.Err())
	}
	if r.err != nil {
		if errors.Is(r.err, context.DeadlineExceeded) || status.Code(r.err) == codes.DeadlineExceeded {
			return 0, fmt.Errorf("%w: %v", ErrDeadlineExceeded, r.err)
		}
		return 0, fmt.Errorf("arbitration call: %w", r.err)
	}
	if r.resp == nil {
		return 0, fmt.Errorf("%w: empty response", ErrInvalidIndex)
	}
	idx := int(r.resp.Index)
	if _, ok := g.Node(idx); !ok {
		return 0, fmt.Errorf("%w: %d", ErrInvalidIndex, idx)
	}
	c.log.Debug().Int("index", idx).Dur("took", time.Since(start)).Msg("Arbitration answered")
	return idx, nil
}
