// Package transport carries the agent's calls to a decision server over
// gRPC or WebSocket, and keeps the agent's connection alive across cycles.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/freeeve/soccer-proxy/pkg/field"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

var (
	// ErrNotConnected is returned by session calls made while disconnected.
	ErrNotConnected = errors.New("transport not connected")
	// ErrConnLost means the underlying connection failed and must be redialed.
	ErrConnLost = errors.New("connection lost")
)

// Transport is one connection to a decision server.
type Transport interface {
	Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error)
	SendInitMessage(ctx context.Context, msg *wire.InitMessage) error
	GetPlayerActions(ctx context.Context, state *wire.State) (*wire.PlayerActions, error)
	GetBestPlannerAction(ctx context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error)
	SendByeCommand(ctx context.Context, reg *wire.RegisterResponse) error
	Close() error
}

// Dialer opens a Transport to addr.
type Dialer func(ctx context.Context, addr string) (Transport, error)

// Kind names a transport adapter.
type Kind string

const (
	KindGRPC      Kind = "grpc"
	KindWebSocket Kind = "websocket"
)

// ParseKind validates a transport name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindGRPC, KindWebSocket:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown transport %q", s)
}

// PortOptions controls how an agent's server port is derived.
type PortOptions struct {
	Base                int
	UseSamePort         bool
	AddPortForRightSide bool
}

// Port returns the decision server port for an agent: +20 for the right
// side when enabled, then +unum unless every agent shares one port.
func (o PortOptions) Port(side field.Side, unum int) int {
	port := o.Base
	if o.AddPortForRightSide && side == field.Right {
		port += 20
	}
	if !o.UseSamePort {
		port += unum
	}
	return port
}

// Address joins host with the derived port.
func (o PortOptions) Address(host string, side field.Side, unum int) string {
	return net.JoinHostPort(host, strconv.Itoa(o.Port(side, unum)))
}
