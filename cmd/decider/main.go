// Command decider runs the reference decision server for one team.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/internal/config"
	"github.com/freeeve/soccer-proxy/internal/decider"
	"github.com/freeeve/soccer-proxy/internal/logger"
	"github.com/freeeve/soccer-proxy/internal/policystore"
	"github.com/freeeve/soccer-proxy/internal/transport"
	"github.com/freeeve/soccer-proxy/pkg/field"
)

var (
	v          = viper.New()
	cfgFile    string
	listenHost string
	starter    bool
	serverSide bool
	noAuth     bool
	policyFile string
)

var rootCmd = &cobra.Command{
	Use:   "decider",
	Short: "Run the reference decision server",
	Long: `Decider answers agents' per-cycle questions: which actions to run and,
when asked, which planner chain wins.

With --use-same-port every player of the team connects to the base port;
otherwise player N connects to base+N. Right-side teams add 20 when
--add-port-for-right-side is set.`,
	RunE:         runDecider,
	SilenceUsage: true,
}

func init() {
	d := config.Default()
	f := rootCmd.Flags()

	f.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	f.StringVar(&listenHost, "listen-host", "", "Interface to listen on")
	f.BoolVar(&starter, "starter", false, "Ask agents to skip heard-pass receive, intentions and the preprocess shoot")
	f.BoolVar(&serverSide, "server-side-decision", false, "Ask agents to arbitrate planner chains here")
	f.BoolVar(&noAuth, "no-auth", false, "Accept calls without agent tokens")
	f.StringVar(&policyFile, "policy-file", "", "Planner evaluation document to publish to the team's agents through Redis")

	f.Int("base-port", d.BasePort, "Base port")
	f.Bool("use-same-port", d.UseSamePort, "Serve every player on the base port")
	f.Bool("add-port-for-right-side", d.AddPortForRightSide, "Add 20 to the ports on the right side")
	f.String("transport", d.Transport, "Transport (grpc, websocket)")
	f.String("ws-path", d.WSPath, "WebSocket endpoint path")
	f.String("side", d.Side, "Side of the team served (left, right)")
	f.Int("max-depth", d.MaxDepth, "Chain depth sent with planner actions")
	f.Int("max-nodes", d.MaxNodes, "Node budget sent with planner actions")
	f.String("auth-secret", d.AuthSecret, "Shared secret for agent tokens")
	f.String("team-name", d.TeamName, "Team whose agents receive --policy-file")
	f.String("redis-url", d.RedisURL, "Redis URL the agents watch for policy updates")
	f.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
}

// ports lists the distinct ports the team's players will dial.
func ports(cfg *config.Config, side field.Side) []int {
	opts := transport.PortOptions{
		Base:                cfg.BasePort,
		UseSamePort:         cfg.UseSamePort,
		AddPortForRightSide: cfg.AddPortForRightSide,
	}
	seen := map[int]bool{}
	var out []int
	for unum := 1; unum <= 11; unum++ {
		p := opts.Port(side, unum)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}

func runDecider(cmd *cobra.Command, _ []string) error {
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)

	side, err := field.ParseSide(cfg.Side)
	if err != nil {
		return err
	}
	kind, err := transport.ParseKind(cfg.Transport)
	if err != nil {
		return err
	}

	var jwtMgr *auth.JWTManager
	if !noAuth {
		jwtMgr = auth.NewJWTManager(cfg.AuthSecret)
	}

	policy := decider.DefaultPolicy()
	policy.Starter = starter
	policy.ServerSideDecision = serverSide
	policy.MaxDepth = cfg.MaxDepth
	policy.MaxNodes = cfg.MaxNodes
	svc := decider.NewService(policy)

	if policyFile != "" {
		if err := publishPolicy(cfg, policyFile); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	var stops []func(context.Context)

	switch kind {
	case transport.KindGRPC:
		srv := decider.NewGRPCServer(svc, jwtMgr)
		for _, p := range ports(cfg, side) {
			lis, err := net.Listen("tcp", net.JoinHostPort(listenHost, fmt.Sprint(p)))
			if err != nil {
				srv.Stop()
				return fmt.Errorf("listen %d: %w", p, err)
			}
			go serveGRPC(srv, lis, errCh)
		}
		stops = append(stops, func(ctx context.Context) { gracefulStop(ctx, srv) })

	case transport.KindWebSocket:
		handler := decider.NewHTTPHandler(svc, jwtMgr, cfg.WSPath)
		for _, p := range ports(cfg, side) {
			srv := &http.Server{
				Addr:              net.JoinHostPort(listenHost, fmt.Sprint(p)),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			go func() {
				log.Info().Str("addr", srv.Addr).Msg("WebSocket decider listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					select {
					case errCh <- err:
					default:
					}
				}
			}()
			stops = append(stops, func(ctx context.Context) {
				if err := srv.Shutdown(ctx); err != nil {
					log.Error().Err(err).Str("addr", srv.Addr).Msg("Server shutdown error")
				}
			})
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info().Msg("Shutting down decider")
	case err = <-errCh:
		log.Error().Err(err).Msg("Listener failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, stop := range stops {
		stop(shutdownCtx)
	}
	log.Info().Int("clients", svc.ClientCount()).Msg("Decider stopped")
	return err
}

// publishPolicy validates a planner evaluation document and hands it to
// every agent of the team watching Redis.
func publishPolicy(cfg *config.Config, path string) error {
	if cfg.RedisURL == "" {
		return errors.New("--policy-file needs --redis-url")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read policy: %w", err)
	}
	ps, err := policystore.NewStore(cfg.RedisURL)
	if err != nil {
		return err
	}
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ps.Put(ctx, cfg.TeamName, raw); err != nil {
		return err
	}
	log.Info().Str("team", cfg.TeamName).Str("path", path).Msg("Policy published")
	return nil
}

func serveGRPC(srv *grpc.Server, lis net.Listener, errCh chan<- error) {
	log.Info().Str("addr", lis.Addr().String()).Msg("gRPC decider listening")
	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		select {
		case errCh <- err:
		default:
		}
	}
}

// gracefulStop waits for in-flight calls until ctx ends.
func gracefulStop(ctx context.Context, srv *grpc.Server) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		srv.Stop()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Decider failed")
		os.Exit(1)
	}
}
