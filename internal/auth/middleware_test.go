package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestMiddleware(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	good, _, _ := mgr.GenerateAgentToken("cyrus", 4)
	foreign, _, _ := NewJWTManager("other-secret").GenerateAgentToken("cyrus", 4)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + good, "", http.StatusOK},
		{"query token", "", good, http.StatusOK},
		{"header wins over query", "Bearer " + foreign, good, http.StatusUnauthorized},
		{"missing", "", "", http.StatusUnauthorized},
		{"no bearer prefix", "Token abc123", "", http.StatusUnauthorized},
		{"bearer only", "Bearer", "", http.StatusUnauthorized},
		{"empty value", "Bearer ", "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *Claims
			h := Middleware(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured = ClaimsFromContext(r.Context())
			}))
			target := "/ws"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK && !captured.Is("cyrus", 4) {
				t.Errorf("expected claims for cyrus/4, got %+v", captured)
			}
			if tt.want != http.StatusOK && captured != nil {
				t.Error("handler should not be called")
			}
		})
	}
}

func TestUnaryInterceptor(t *testing.T) {
	mgr := NewJWTManager("test-secret")
	icpt := UnaryInterceptor(mgr)
	info := &grpc.UnaryServerInfo{FullMethod: "/protos.Game/Register"}
	handler := func(ctx context.Context, req any) (any, error) {
		return ClaimsFromContext(ctx), nil
	}

	_, err := icpt(context.Background(), nil, info, handler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("expected Unauthenticated without metadata, got %v", err)
	}

	token, _, _ := mgr.GenerateAgentToken("cyrus", 11)
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	out, err := icpt(ctx, nil, info, handler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if c := out.(*Claims); c.Unum != 11 {
		t.Errorf("expected unum 11, got %d", c.Unum)
	}
}
