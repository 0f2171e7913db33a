package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/freeeve/soccer-proxy/pkg/wire"
)

type grpcTransport struct {
	conn   *grpc.ClientConn
	client wire.GameClient
}

// GRPCDialer returns a Dialer for the gRPC adapter. creds may be nil.
func GRPCDialer(creds credentials.PerRPCCredentials, extra ...grpc.DialOption) Dialer {
	return func(ctx context.Context, addr string) (Transport, error) {
		opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
		if creds != nil {
			opts = append(opts, grpc.WithPerRPCCredentials(creds))
		}
		opts = append(opts, extra...)
		conn, err := grpc.NewClient(addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
		}
		return &grpcTransport{conn: conn, client: wire.NewGameClient(conn)}, nil
	}
}

func (t *grpcTransport) Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error) {
	return t.client.Register(ctx, req)
}

func (t *grpcTransport) SendInitMessage(ctx context.Context, msg *wire.InitMessage) error {
	_, err := t.client.SendInitMessage(ctx, msg)
	return err
}

func (t *grpcTransport) GetPlayerActions(ctx context.Context, state *wire.State) (*wire.PlayerActions, error) {
	return t.client.GetPlayerActions(ctx, state)
}

func (t *grpcTransport) GetBestPlannerAction(ctx context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error) {
	return t.client.GetBestPlannerAction(ctx, req)
}

func (t *grpcTransport) SendByeCommand(ctx context.Context, reg *wire.RegisterResponse) error {
	_, err := t.client.SendByeCommand(ctx, reg)
	return err
}

func (t *grpcTransport) Close() error { return t.conn.Close() }
