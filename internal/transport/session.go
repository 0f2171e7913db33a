package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// DefaultBackoff is the pause between reconnect attempts.
const DefaultBackoff = time.Second

// Session owns one agent's connection: it dials, registers, sends the
// init message once per connection and re-establishes all of it after a
// failure. Cycles drive it from one goroutine, but a call abandoned at its
// deadline may still finish on another, so the live transport is guarded.
type Session struct {
	dial    Dialer
	addr    string
	req     wire.RegisterRequest
	init    func(reg wire.RegisterResponse) *wire.InitMessage
	backoff time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
	log     zerolog.Logger

	mu         sync.Mutex
	tr         Transport
	reg        wire.RegisterResponse
	paramsSent bool
	attempts   int
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBackoff sets the pause between reconnect attempts.
func WithBackoff(d time.Duration) SessionOption {
	return func(s *Session) { s.backoff = d }
}

// WithInitMessage sets the builder of the message sent after registering.
func WithInitMessage(f func(reg wire.RegisterResponse) *wire.InitMessage) SessionOption {
	return func(s *Session) { s.init = f }
}

// WithSessionLogger sets the session's logger.
func WithSessionLogger(l zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = l }
}

// NewSession creates a disconnected Session.
func NewSession(dial Dialer, addr string, req wire.RegisterRequest, opts ...SessionOption) *Session {
	s := &Session{
		dial:    dial,
		addr:    addr,
		req:     req,
		backoff: DefaultBackoff,
		sleep:   sleepCtx,
		log:     log.Logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports whether the session holds a registered transport.
func (s *Session) Connected() bool {
	tr, _ := s.current()
	return tr != nil
}

// Registration is the server's answer to the last successful Register.
func (s *Session) Registration() wire.RegisterResponse {
	_, reg := s.current()
	return reg
}

func (s *Session) current() (Transport, wire.RegisterResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tr, s.reg
}

// Attempts is the number of connect attempts made so far.
func (s *Session) Attempts() int { return s.attempts }

// EnsureConnected blocks until the session is registered or ctx ends,
// pausing for the backoff between failed attempts.
func (s *Session) EnsureConnected(ctx context.Context) error {
	for !s.Connected() {
		err := s.connect(ctx)
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).Str("addr", s.addr).Int("attempt", s.attempts).Msg("Connect failed, retrying")
		if err := s.sleep(ctx, s.backoff); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) connect(ctx context.Context) error {
	s.attempts++
	tr, err := s.dial(ctx, s.addr)
	if err != nil {
		return err
	}
	reg, err := tr.Register(ctx, &s.req)
	if err != nil {
		tr.Close()
		return fmt.Errorf("register: %w", err)
	}
	s.mu.Lock()
	s.tr, s.reg, s.paramsSent = tr, *reg, false
	s.mu.Unlock()
	s.log.Info().Str("addr", s.addr).Int32("clientId", reg.ClientID).Msg("Registered with decision server")

	if s.init != nil {
		if err := tr.SendInitMessage(ctx, s.init(*reg)); err != nil {
			s.drop(tr, err)
			return fmt.Errorf("init message: %w", err)
		}
		s.mu.Lock()
		s.paramsSent = true
		s.mu.Unlock()
	}
	return nil
}

// drop forgets tr so the next EnsureConnected redials. A failure reported
// by a transport that was already replaced is ignored.
func (s *Session) drop(tr Transport, cause error) {
	s.mu.Lock()
	if tr == nil || s.tr != tr {
		s.mu.Unlock()
		return
	}
	s.tr = nil
	s.mu.Unlock()
	s.log.Warn().Err(cause).Str("addr", s.addr).Msg("Connection dropped")
	tr.Close()
}

// Lost reports whether err means the connection must be redialed.
func Lost(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnLost) {
		return true
	}
	switch status.Code(err) {
	case codes.Unavailable:
		return true
	}
	return false
}

func (s *Session) check(tr Transport, err error) error {
	if Lost(err) {
		s.drop(tr, err)
	}
	return err
}

// GetPlayerActions asks for this cycle's action list.
func (s *Session) GetPlayerActions(ctx context.Context, state *wire.State) (*wire.PlayerActions, error) {
	tr, reg := s.current()
	if tr == nil {
		return nil, ErrNotConnected
	}
	state.Register = reg
	resp, err := tr.GetPlayerActions(ctx, state)
	return resp, s.check(tr, err)
}

// GetBestPlannerAction implements arbiter.Caller.
func (s *Session) GetBestPlannerAction(ctx context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error) {
	tr, reg := s.current()
	if tr == nil {
		return nil, ErrNotConnected
	}
	req.Register = reg
	resp, err := tr.GetBestPlannerAction(ctx, req)
	return resp, s.check(tr, err)
}

// Bye tells the server the agent is leaving and closes the connection. It
// is best effort.
func (s *Session) Bye(ctx context.Context) error {
	s.mu.Lock()
	tr, reg := s.tr, s.reg
	s.tr = nil
	s.mu.Unlock()
	if tr == nil {
		return nil
	}
	err := tr.SendByeCommand(ctx, &reg)
	tr.Close()
	return err
}
