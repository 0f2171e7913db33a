// Command agent runs one player against the built-in kinematic host,
// asking a decision server for each cycle's actions when one is configured.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/freeeve/soccer-proxy/internal/agent"
	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/internal/config"
	"github.com/freeeve/soccer-proxy/internal/dispatch"
	"github.com/freeeve/soccer-proxy/internal/evaluator"
	"github.com/freeeve/soccer-proxy/internal/journal"
	"github.com/freeeve/soccer-proxy/internal/logger"
	"github.com/freeeve/soccer-proxy/internal/policystore"
	"github.com/freeeve/soccer-proxy/internal/sim"
	"github.com/freeeve/soccer-proxy/internal/trace"
	"github.com/freeeve/soccer-proxy/internal/transport"
	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

const rpcVersion = "1"

var (
	v       = viper.New()
	cfgFile string
	local   bool
	seed    uint64
	press   float64
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run one player agent",
	Long: `Agent runs the per-cycle decision loop for one player.

Each cycle it asks the decision server for an action list, plans ball
chains locally, optionally lets the server pick the winning chain, and
commits the result to the host. Without a server (--local) it falls back
to the built-in default actions every cycle.`,
	RunE:         runAgent,
	SilenceUsage: true,
}

func init() {
	d := config.Default()
	f := rootCmd.Flags()

	f.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	f.BoolVar(&local, "local", false, "Decide locally without a decision server")
	f.Uint64Var(&seed, "seed", 1, "Seed for the kinematic host")
	f.Float64Var(&press, "press", 10, "Metres the opponents start pushed up")

	// Decision server
	f.String("server-host", d.ServerHost, "Decision server host")
	f.Int("base-port", d.BasePort, "Decision server base port")
	f.Bool("use-same-port", d.UseSamePort, "Use the base port for every player")
	f.Bool("add-port-for-right-side", d.AddPortForRightSide, "Add 20 to the port on the right side")
	f.String("transport", d.Transport, "Transport (grpc, websocket)")
	f.String("ws-path", d.WSPath, "WebSocket endpoint path")
	f.Duration("actions-timeout", d.ActionsTimeout, "Deadline for get-actions")
	f.Duration("arbitration-timeout", d.ArbitrationTimeout, "Deadline for planner arbitration")
	f.Duration("reconnect-backoff", d.ReconnectBackoff, "Wait between reconnect attempts")

	// Planner
	f.Int("max-depth", d.MaxDepth, "Default chain depth")
	f.Int("max-nodes", d.MaxNodes, "Default node budget")
	f.Bool("curve-first-layer", d.CurveFirstLayer, "Measure penalty curves at the first chain step")
	f.Bool("secondary-on-short-circuit", d.SecondaryOnShortCircuit, "Run secondary actions on short-circuited cycles")

	// Identity
	f.String("team-name", d.TeamName, "Team name")
	f.Int("unum", d.Unum, "Uniform number")
	f.Bool("goalie", d.Goalie, "Play as goalie")
	f.String("side", d.Side, "Side (left, right)")
	f.Int("cycles", d.Cycles, "Cycles to run (0 for unlimited)")

	// Auth, sinks and logging
	f.String("auth-secret", d.AuthSecret, "Shared secret for agent tokens")
	f.Duration("token-ttl", d.TokenTTL, "Agent token lifetime")
	f.String("journal-dsn", d.JournalDSN, "Decision journal (postgres://, sqlite:// or empty)")
	f.String("redis-url", d.RedisURL, "Redis URL for live policy updates")
	f.String("trace-dir", d.TraceDir, "Directory for parquet graph traces")
	f.String("value-model", d.ValueModel, "ONNX base value model")
	f.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
}

func runAgent(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	l := logger.ForAgent(cfg.TeamName, cfg.Unum)

	side, err := field.ParseSide(cfg.Side)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		l.Info().Msg("Shutdown signal received, stopping agent")
		cancel()
	}()

	rng := rand.New(rand.NewPCG(seed, uint64(cfg.Unum)))
	w := sim.Kickoff(cfg.TeamName, cfg.Unum, cfg.Goalie, press, rng)
	w.Side = side
	host := sim.NewHost(w, rng)

	opts := []agent.Option{
		agent.WithLogger(l),
		agent.WithPlannerLimits(cfg.MaxDepth, cfg.MaxNodes),
		agent.WithFirstLayer(cfg.CurveFirstLayer),
		agent.WithDispatchConfig(dispatch.Config{SecondaryOnShortCircuit: cfg.SecondaryOnShortCircuit}),
		agent.WithActionsTimeout(cfg.ActionsTimeout),
		agent.WithArbitrationTimeout(cfg.ArbitrationTimeout),
	}

	if !local {
		session, err := newSession(cfg, side)
		if err != nil {
			return err
		}
		opts = append(opts, agent.WithSession(session))
	}

	if cfg.ValueModel != "" {
		m, err := evaluator.LoadValueModel(cfg.ValueModel)
		if err != nil {
			return fmt.Errorf("value model: %w", err)
		}
		opts = append(opts, agent.WithValueModel(m))
		l.Info().Str("path", cfg.ValueModel).Msg("Value model loaded")
	}

	if cfg.JournalDSN != "" {
		store, err := journal.Open(cfg.JournalDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		defer summarize(store, cfg.TeamName, cfg.Unum)
		opts = append(opts, agent.WithJournal(store))
	}

	if cfg.TraceDir != "" {
		tw, err := trace.NewWriter(cfg.TraceDir, 0)
		if err != nil {
			return err
		}
		defer func() {
			if err := tw.Flush(); err != nil {
				l.Error().Err(err).Msg("Trace flush failed")
			}
			l.Info().Strs("files", tw.Files()).Msg("Traces written")
		}()
		opts = append(opts, agent.WithTracer(tw))
	}

	a := agent.New(agent.Identity{Team: cfg.TeamName, Unum: cfg.Unum, Goalie: cfg.Goalie, Side: side},
		host, sim.Kinematic{}, opts...)
	defer a.Close()

	if cfg.RedisURL != "" {
		ps, err := policystore.NewStore(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer ps.Close()
		go func() {
			if err := ps.Watch(ctx, cfg.TeamName, a.ApplyDocument); err != nil && ctx.Err() == nil {
				l.Error().Err(err).Msg("Policy watch stopped")
			}
		}()
	}

	l.Info().Str("transport", cfg.Transport).Bool("local", local).Int("cycles", cfg.Cycles).Msg("Agent starting")
	if err := a.Run(ctx, cfg.Cycles, host.Advance); err != nil {
		return err
	}
	l.Info().Int("cycle", w.Cycle).Int("goals", host.Goals()).Msg("Agent stopped")
	return nil
}

// summarize logs how the team's cycles ended and this agent's last decision.
func summarize(store *journal.Store, team string, unum int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	counts, err := store.StageCounts(ctx, team)
	if err != nil {
		log.Warn().Err(err).Msg("Journal summary failed")
		return
	}
	ev := log.Info().Str("team", team)
	for stage, n := range counts {
		ev = ev.Int(stage, n)
	}
	ev.Msg("Cycles by stage")

	last, err := store.Recent(ctx, team, unum, 1)
	if err == nil && len(last) == 1 {
		log.Info().Int("cycle", last[0].Cycle).Str("stage", last[0].Stage).
			Str("committed", last[0].Committed).Str("remote", last[0].Remote).Msg("Last decision")
	}
}

func newSession(cfg *config.Config, side field.Side) (*transport.Session, error) {
	kind, err := transport.ParseKind(cfg.Transport)
	if err != nil {
		return nil, err
	}
	jwtMgr := auth.NewJWTManager(cfg.AuthSecret).WithTTL(cfg.TokenTTL)
	tokens := auth.NewTokenSource(jwtMgr, cfg.TeamName, cfg.Unum)

	var dial transport.Dialer
	switch kind {
	case transport.KindGRPC:
		dial = transport.GRPCDialer(auth.NewPerRPC(tokens))
	case transport.KindWebSocket:
		dial = transport.WebSocketDialer(cfg.WSPath, tokens)
	}

	ports := transport.PortOptions{
		Base:                cfg.BasePort,
		UseSamePort:         cfg.UseSamePort,
		AddPortForRightSide: cfg.AddPortForRightSide,
	}
	addr := ports.Address(cfg.ServerHost, side, cfg.Unum)

	req := wire.RegisterRequest{AgentType: wire.PlayerT, TeamName: cfg.TeamName, Unum: cfg.Unum, Version: rpcVersion}
	return transport.NewSession(dial, addr, req,
		transport.WithBackoff(cfg.ReconnectBackoff),
		transport.WithSessionLogger(logger.ForAgent(cfg.TeamName, cfg.Unum)),
		transport.WithInitMessage(func(reg wire.RegisterResponse) *wire.InitMessage {
			return &wire.InitMessage{
				Register:    reg,
				PlayerTypes: []field.PlayerType{field.DefaultPlayerType},
			}
		}),
	), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Agent failed")
		os.Exit(1)
	}
}
