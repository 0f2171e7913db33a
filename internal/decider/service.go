package decider

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// Client is one registered agent.
type Client struct {
	Reg    wire.RegisterResponse
	Init   *wire.InitMessage
	Cycles int
}

// Service implements wire.GameServer on top of a Policy.
type Service struct {
	policy Policy

	nextID  atomic.Int32
	mu      sync.RWMutex
	clients map[int32]*Client
}

var _ wire.GameServer = (*Service)(nil)

// NewService creates a Service.
func NewService(p Policy) *Service {
	return &Service{policy: p, clients: make(map[int32]*Client)}
}

// ClientCount returns the number of registered agents.
func (s *Service) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Client returns a copy of the registration for id.
func (s *Service) Client(id int32) (Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return Client{}, false
	}
	return *c, true
}

func (s *Service) Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error) {
	if req.TeamName == "" {
		return nil, status.Error(codes.InvalidArgument, "team name is required")
	}
	if claims := auth.ClaimsFromContext(ctx); claims != nil {
		if !claims.Is(req.TeamName, req.Unum) {
			return nil, status.Errorf(codes.PermissionDenied, "token is for %s", auth.Subject(claims.Team, claims.Unum))
		}
	}

	reg := wire.RegisterResponse{
		ClientID:  s.nextID.Add(1),
		SessionID: uuid.NewString(),
		AgentType: req.AgentType,
		TeamName:  req.TeamName,
		Unum:      req.Unum,
	}
	s.mu.Lock()
	s.clients[reg.ClientID] = &Client{Reg: reg}
	s.mu.Unlock()

	log.Info().Int32("clientId", reg.ClientID).Str("team", reg.TeamName).Int("unum", reg.Unum).Msg("Agent registered")
	return &reg, nil
}

func (s *Service) lookup(reg wire.RegisterResponse) (*Client, error) {
	c, ok := s.clients[reg.ClientID]
	if !ok {
		return nil, status.Errorf(codes.NotFound, "client %d is not registered", reg.ClientID)
	}
	return c, nil
}

func (s *Service) SendInitMessage(_ context.Context, msg *wire.InitMessage) (*wire.Empty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(msg.Register)
	if err != nil {
		return nil, err
	}
	c.Init = msg
	return &wire.Empty{}, nil
}

func (s *Service) GetPlayerActions(_ context.Context, st *wire.State) (*wire.PlayerActions, error) {
	if st.World == nil {
		return nil, status.Error(codes.InvalidArgument, "world model is required")
	}
	s.mu.Lock()
	c, err := s.lookup(st.Register)
	if err == nil {
		c.Cycles++
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.policy.Decide(st.World), nil
}

func (s *Service) GetBestPlannerAction(_ context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error) {
	if len(req.Pairs) == 0 {
		return nil, status.Error(codes.InvalidArgument, "no candidate pairs")
	}
	s.mu.RLock()
	_, err := s.lookup(req.Register)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	idx := BestPlannerAction(req.Pairs)
	log.Debug().Int32("clientId", req.Register.ClientID).Int32("index", idx).Int("pairs", len(req.Pairs)).Msg("Planner action chosen")
	return &wire.ArbitrationResponse{Index: idx}, nil
}

func (s *Service) SendByeCommand(_ context.Context, reg *wire.RegisterResponse) (*wire.Empty, error) {
	s.forget(reg.ClientID)
	log.Info().Int32("clientId", reg.ClientID).Msg("Agent said bye")
	return &wire.Empty{}, nil
}

func (s *Service) forget(ids ...int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.clients, id)
	}
}
