// Package agent holds everything one player needs across cycles: its
// transport session, planner state, active evaluation policy and
// diagnostics sinks. Agents share nothing, so several can run in one
// process.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/soccer-proxy/internal/arbiter"
	"github.com/freeeve/soccer-proxy/internal/chain"
	"github.com/freeeve/soccer-proxy/internal/dispatch"
	"github.com/freeeve/soccer-proxy/internal/evaluator"
	"github.com/freeeve/soccer-proxy/internal/journal"
	"github.com/freeeve/soccer-proxy/internal/logger"
	"github.com/freeeve/soccer-proxy/internal/transport"
	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// DefaultActionsTimeout bounds the per-cycle get-actions call.
const DefaultActionsTimeout = 3 * time.Second

// Identity names the player an agent controls.
type Identity struct {
	Team   string
	Unum   int
	Goalie bool
	Side   field.Side
}

// Journal records one entry per cycle.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Tracer receives each cycle's candidate graph.
type Tracer interface {
	Add(team string, unum, cycle int, g *chain.Graph) error
}

// Agent runs decision cycles for one player. Cycle must not be called
// concurrently; SetPolicy may be called from any goroutine.
type Agent struct {
	id      Identity
	host    dispatch.Host
	session *transport.Session
	builder *chain.Builder
	policy  atomic.Pointer[evaluator.Policy]
	model   evaluator.ValueModel
	arb     *arbiter.Client
	disp    *dispatch.Dispatcher

	firstLayer     bool
	maxDepth       int
	maxNodes       int
	dispatchCfg    dispatch.Config
	actionsTimeout time.Duration
	arbTimeout     time.Duration

	journal Journal
	tracer  Tracer
	log     zerolog.Logger

	// Per-cycle state.
	state *wire.State
	prev  []*chain.Node
}

// Option configures an Agent.
type Option func(*Agent)

// WithSession connects the agent to a decision server. Without one the
// agent decides locally every cycle.
func WithSession(s *transport.Session) Option {
	return func(a *Agent) { a.session = s }
}

// WithValueModel sets a learned base value model.
func WithValueModel(m evaluator.ValueModel) Option {
	return func(a *Agent) { a.model = m }
}

// WithPolicy sets the initial evaluation policy.
func WithPolicy(p *evaluator.Policy) Option {
	return func(a *Agent) { a.policy.Store(p) }
}

// WithFirstLayer measures penalty curves at the first chain step instead
// of the leaf when a policy document leaves the choice open.
func WithFirstLayer(on bool) Option {
	return func(a *Agent) { a.firstLayer = on }
}

// WithPlannerLimits sets the depth and node budget used when a planner
// action leaves them unset.
func WithPlannerLimits(depth, nodes int) Option {
	return func(a *Agent) { a.maxDepth, a.maxNodes = depth, nodes }
}

// WithDispatchConfig sets the dispatcher config.
func WithDispatchConfig(c dispatch.Config) Option {
	return func(a *Agent) { a.dispatchCfg = c }
}

// WithActionsTimeout bounds the get-actions call.
func WithActionsTimeout(d time.Duration) Option {
	return func(a *Agent) { a.actionsTimeout = d }
}

// WithArbitrationTimeout bounds the arbitration call.
func WithArbitrationTimeout(d time.Duration) Option {
	return func(a *Agent) { a.arbTimeout = d }
}

// WithJournal records every cycle.
func WithJournal(j Journal) Option {
	return func(a *Agent) { a.journal = j }
}

// WithTracer exports every cycle's graph.
func WithTracer(t Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

// WithLogger sets the agent's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) { a.log = l }
}

// New creates an Agent acting through host.
func New(id Identity, host dispatch.Host, predictor chain.Predictor, opts ...Option) *Agent {
	a := &Agent{
		id:             id,
		host:           host,
		maxDepth:       chain.DefaultMaxDepth,
		maxNodes:       chain.DefaultMaxNodes,
		actionsTimeout: DefaultActionsTimeout,
		arbTimeout:     arbiter.DefaultTimeout,
		log:            logger.ForAgent(id.Team, id.Unum),
	}
	for _, o := range opts {
		o(a)
	}
	if a.policy.Load() == nil {
		a.policy.Store(evaluator.DefaultPolicy())
	}
	a.builder = chain.NewBuilder(predictor, chain.WithLogger(a.log))

	dopts := []dispatch.Option{dispatch.WithConfig(a.dispatchCfg), dispatch.WithLogger(a.log)}
	if a.session != nil {
		a.arb = arbiter.New(a.session, arbiter.WithTimeout(a.arbTimeout), arbiter.WithLogger(a.log))
		dopts = append(dopts, dispatch.WithArbiter(remoteArbiter{a}))
	}
	a.disp = dispatch.New(host, a, dopts...)
	return a
}

// Identity returns the player the agent controls.
func (a *Agent) Identity() Identity { return a.id }

// Policy returns the active evaluation policy.
func (a *Agent) Policy() *evaluator.Policy { return a.policy.Load() }

// SetPolicy replaces the active evaluation policy from the next cycle on.
func (a *Agent) SetPolicy(p *evaluator.Policy) {
	if p != nil {
		a.policy.Store(p)
	}
}

// ApplyDocument sanitizes doc and makes it the active policy.
func (a *Agent) ApplyDocument(doc *wire.PlannerEvaluation) {
	a.SetPolicy(evaluator.Ingest(doc, a.firstLayer))
}

// Plan implements dispatch.Planner. When the new graph is empty the tail of
// the last committed chain is replayed.
func (a *Agent) Plan(w *field.World, params chain.Params, doc *wire.PlannerEvaluation) *chain.Graph {
	if doc != nil {
		a.ApplyDocument(doc)
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = a.maxDepth
	}
	if params.MaxNodes <= 0 {
		params.MaxNodes = a.maxNodes
	}
	eopts := []evaluator.Option{evaluator.WithLogger(a.log)}
	if a.model != nil {
		eopts = append(eopts, evaluator.WithValueModel(a.model))
	}
	g := a.builder.Build(w, params, evaluator.New(a.policy.Load(), eopts...))
	if g.Len() == 0 && g.Replay(a.builder, a.prev) {
		a.log.Debug().Int("cycle", w.Cycle).Int("nodes", g.Len()).Msg("Replayed previous chain")
	}
	return g
}

// remoteArbiter adapts the arbitration client to the dispatcher.
type remoteArbiter struct{ a *Agent }

func (r remoteArbiter) Decide(ctx context.Context, g *chain.Graph) (int, error) {
	return r.a.arb.Decide(ctx, g, r.a.session.Registration(), r.a.state)
}

// Cycle runs one decision cycle. While disconnected it blocks until the
// session reconnects or ctx ends; only the latter is returned as an error.
func (a *Agent) Cycle(ctx context.Context) (dispatch.Report, error) {
	w := a.host.World()
	l := logger.ForCycle(a.log, w.Cycle)
	a.state = &wire.State{World: w, NeedPreprocess: true}

	var remote *wire.PlayerActions
	if a.session != nil {
		if err := a.session.EnsureConnected(ctx); err != nil {
			return dispatch.Report{}, fmt.Errorf("connect: %w", err)
		}
		cctx, cancel := context.WithTimeout(ctx, a.actionsTimeout)
		resp, err := a.session.GetPlayerActions(cctx, a.state)
		cancel()
		if err != nil {
			l.Warn().Err(err).Msg("Get actions failed; using local defaults")
		} else {
			remote = resp
		}
	}

	rep := a.disp.RunCycle(ctx, remote)
	if rep.Graph != nil {
		if path := rep.Graph.Committed(); len(path) > 0 {
			a.prev = path
		}
	}
	a.record(ctx, l, rep)
	return rep, nil
}

func (a *Agent) record(ctx context.Context, l zerolog.Logger, rep dispatch.Report) {
	if a.journal != nil {
		e := journal.Entry{
			Team:        a.id.Team,
			Unum:        a.id.Unum,
			Cycle:       rep.Cycle,
			Stage:       rep.Stage.String(),
			NodeIndex:   rep.NodeIndex,
			Remote:      rep.Remote.String(),
			Committed:   rep.Committed.String(),
			HoldAndScan: rep.HoldAndScan,
		}
		if rep.Graph != nil {
			e.Nodes = rep.Graph.Len()
		}
		if rep.RemoteErr != nil {
			e.RemoteErr = rep.RemoteErr.Error()
		}
		if err := a.journal.Record(ctx, e); err != nil {
			l.Warn().Err(err).Msg("Journal write failed")
		}
	}
	if a.tracer != nil && rep.Graph != nil {
		if err := a.tracer.Add(a.id.Team, a.id.Unum, rep.Cycle, rep.Graph); err != nil {
			l.Warn().Err(err).Msg("Trace write failed")
		}
	}
}

// Run runs cycles until ctx ends or n cycles completed (n <= 0 means no
// limit). step is called after each cycle to advance the host.
func (a *Agent) Run(ctx context.Context, n int, step func()) error {
	for i := 0; n <= 0 || i < n; i++ {
		if _, err := a.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if step != nil {
			step()
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// Close says bye to the decision server. Failures are logged only.
func (a *Agent) Close() {
	if a.session == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.session.Bye(ctx); err != nil {
		a.log.Debug().Err(err).Msg("Bye failed")
	}
}
