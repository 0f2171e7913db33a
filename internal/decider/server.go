package decider

import (
	"encoding/json"
	"net/http"

	"google.golang.org/grpc"

	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/internal/middleware"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// NewGRPCServer serves svc over gRPC. When jwtMgr is nil calls are not
// authenticated.
func NewGRPCServer(svc wire.GameServer, jwtMgr *auth.JWTManager, opts ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{middleware.UnaryRecover, middleware.UnaryLogger}
	if jwtMgr != nil {
		interceptors = append(interceptors, auth.UnaryInterceptor(jwtMgr))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	s := grpc.NewServer(opts...)
	wire.RegisterGameServer(s, svc)
	return s
}

// NewHTTPHandler returns the WebSocket endpoint at wsPath plus /healthz.
func NewHTTPHandler(svc *Service, jwtMgr *auth.JWTManager, wsPath string) http.Handler {
	ws := NewWSHandler(svc, jwtMgr)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", middleware.JSON(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"clients": svc.ClientCount(),
		})
	})))

	var wsHandler http.Handler = http.HandlerFunc(ws.ServeWS)
	if jwtMgr != nil {
		wsHandler = auth.Middleware(jwtMgr)(wsHandler)
	}
	mux.Handle("GET "+wsPath, wsHandler)

	return middleware.Chain(mux, middleware.Recover, middleware.Logger)
}
