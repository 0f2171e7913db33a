package wire

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the gRPC service both adapters speak.
const ServiceName = "protos.Game"

// Method names shared by the gRPC and WebSocket adapters.
const (
	MethodRegister             = "Register"
	MethodSendInitMessage      = "SendInitMessage"
	MethodGetPlayerActions     = "GetPlayerActions"
	MethodGetBestPlannerAction = "GetBestPlannerAction"
	MethodSendByeCommand       = "SendByeCommand"
)

// FullMethod returns the gRPC path of a method.
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

// GameClient is the client side of the decision service.
type GameClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	SendInitMessage(ctx context.Context, in *InitMessage, opts ...grpc.CallOption) (*Empty, error)
	GetPlayerActions(ctx context.Context, in *State, opts ...grpc.CallOption) (*PlayerActions, error)
	GetBestPlannerAction(ctx context.Context, in *ArbitrationRequest, opts ...grpc.CallOption) (*ArbitrationResponse, error)
	SendByeCommand(ctx context.Context, in *RegisterResponse, opts ...grpc.CallOption) (*Empty, error)
}

type gameClient struct {
	cc grpc.ClientConnInterface
}

// NewGameClient wraps a connection. Calls are encoded with the JSON codec.
func NewGameClient(cc grpc.ClientConnInterface) GameClient {
	return &gameClient{cc: cc}
}

func (c *gameClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, FullMethod(method), in, out, opts...)
}

func (c *gameClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.invoke(ctx, MethodRegister, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gameClient) SendInitMessage(ctx context.Context, in *InitMessage, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodSendInitMessage, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gameClient) GetPlayerActions(ctx context.Context, in *State, opts ...grpc.CallOption) (*PlayerActions, error) {
	out := new(PlayerActions)
	if err := c.invoke(ctx, MethodGetPlayerActions, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gameClient) GetBestPlannerAction(ctx context.Context, in *ArbitrationRequest, opts ...grpc.CallOption) (*ArbitrationResponse, error) {
	out := new(ArbitrationResponse)
	if err := c.invoke(ctx, MethodGetBestPlannerAction, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *gameClient) SendByeCommand(ctx context.Context, in *RegisterResponse, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.invoke(ctx, MethodSendByeCommand, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// GameServer is the server side of the decision service.
type GameServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	SendInitMessage(context.Context, *InitMessage) (*Empty, error)
	GetPlayerActions(context.Context, *State) (*PlayerActions, error)
	GetBestPlannerAction(context.Context, *ArbitrationRequest) (*ArbitrationResponse, error)
	SendByeCommand(context.Context, *RegisterResponse) (*Empty, error)
}

// RegisterGameServer attaches srv to s.
func RegisterGameServer(s grpc.ServiceRegistrar, srv GameServer) {
	s.RegisterService(&gameServiceDesc, srv)
}

// unary builds a method handler that decodes into a fresh In and calls fn.
func unary[In any, Out any](name string, fn func(GameServer, context.Context, *In) (*Out, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(In)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(GameServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return fn(srv.(GameServer), ctx, req.(*In))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var gameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodRegister, GameServer.Register),
		unary(MethodSendInitMessage, GameServer.SendInitMessage),
		unary(MethodGetPlayerActions, GameServer.GetPlayerActions),
		unary(MethodGetBestPlannerAction, GameServer.GetBestPlannerAction),
		unary(MethodSendByeCommand, GameServer.SendByeCommand),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "game.proto",
}
