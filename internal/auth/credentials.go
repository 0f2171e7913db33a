package auth

import (
	"context"

	"golang.org/x/oauth2"
	"google.golang.org/grpc/credentials"
)

type agentTokenSource struct {
	mgr  *JWTManager
	team string
	unum int
}

func (s *agentTokenSource) Token() (*oauth2.Token, error) {
	tok, exp, err := s.mgr.GenerateAgentToken(s.team, s.unum)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: exp}, nil
}

// NewTokenSource mints agent tokens and reuses each until shortly before
// it expires.
func NewTokenSource(mgr *JWTManager, team string, unum int) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &agentTokenSource{mgr: mgr, team: team, unum: unum})
}

// PerRPC attaches a bearer token from src to every gRPC call.
type PerRPC struct {
	src oauth2.TokenSource
}

var _ credentials.PerRPCCredentials = PerRPC{}

// NewPerRPC wraps a token source as gRPC call credentials.
func NewPerRPC(src oauth2.TokenSource) PerRPC { return PerRPC{src: src} }

func (p PerRPC) GetRequestMetadata(ctx context.Context, _ ...string) (map[string]string, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": tok.Type() + " " + tok.AccessToken}, nil
}

// RequireTransportSecurity is false: agents and the decision server run on
// the same trusted host.
func (PerRPC) RequireTransportSecurity() bool { return false }
