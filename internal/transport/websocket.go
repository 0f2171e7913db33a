package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/pkg/wire"
)

const wsWriteWait = 10 * time.Second

// RemoteError is an error reported by the server in a response envelope.
// It carries the same status code a gRPC call would have returned.
type RemoteError struct {
	Method string
	Msg    string
	Code   codes.Code
}

func (e *RemoteError) Error() string { return fmt.Sprintf("%s: %s", e.Method, e.Msg) }

// GRPCStatus lets status.Code classify envelope errors.
func (e *RemoteError) GRPCStatus() *status.Status { return status.New(e.Code, e.Msg) }

// wsTransport sends one request at a time and waits for the envelope with
// the matching ID.
type wsTransport struct {
	conn   *websocket.Conn
	tokens oauth2.TokenSource

	mu     sync.Mutex
	nextID uint64
	broken bool
}

// WebSocketDialer returns a Dialer for the WebSocket adapter. addr is
// host:port; tokens may be nil.
func WebSocketDialer(path string, tokens oauth2.TokenSource) Dialer {
	return func(ctx context.Context, addr string) (Transport, error) {
		u := url.URL{Scheme: "ws", Host: addr, Path: path}
		if tokens != nil {
			tok, err := tokens.Token()
			if err != nil {
				return nil, fmt.Errorf("ws token: %w", err)
			}
			u.RawQuery = url.Values{"token": {tok.AccessToken}}.Encode()
		}
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("ws dial %s: %w", addr, err)
		}
		return &wsTransport{conn: conn, tokens: tokens}, nil
	}
}

func (t *wsTransport) call(ctx context.Context, method string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", method, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return fmt.Errorf("%s: %w", method, ErrConnLost)
	}

	t.nextID++
	req := wire.Envelope{ID: t.nextID, Method: method, Payload: payload}
	if t.tokens != nil {
		tok, err := t.tokens.Token()
		if err != nil {
			return fmt.Errorf("%s: token: %w", method, err)
		}
		req.Token = tok.AccessToken
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(wsWriteWait)
	}
	t.conn.SetWriteDeadline(deadline)
	if err := t.conn.WriteJSON(req); err != nil {
		t.broken = true
		return fmt.Errorf("%s: write: %w: %w", method, ErrConnLost, err)
	}

	// Unblock the read if ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() { t.conn.SetReadDeadline(time.Now()) })
	defer stop()
	t.conn.SetReadDeadline(deadline)

	for {
		var resp wire.Envelope
		if err := t.conn.ReadJSON(&resp); err != nil {
			// A failed read leaves the connection unusable.
			t.broken = true
			if ctx.Err() != nil {
				return fmt.Errorf("%s: %w: %w", method, ErrConnLost, ctx.Err())
			}
			var ne interface{ Timeout() bool }
			if errors.As(err, &ne) && ne.Timeout() {
				return fmt.Errorf("%s: %w: %w", method, ErrConnLost, context.DeadlineExceeded)
			}
			return fmt.Errorf("%s: read: %w: %w", method, ErrConnLost, err)
		}
		if resp.ID != req.ID {
			// Late answer to an abandoned call.
			continue
		}
		if resp.Error != "" {
			code := codes.Code(resp.Code)
			if code == codes.OK {
				code = codes.Unknown
			}
			return &RemoteError{Method: method, Msg: resp.Error, Code: code}
		}
		if out == nil || len(resp.Payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return fmt.Errorf("%s: decode: %w", method, err)
		}
		return nil
	}
}

func (t *wsTransport) Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error) {
	out := new(wire.RegisterResponse)
	if err := t.call(ctx, wire.MethodRegister, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *wsTransport) SendInitMessage(ctx context.Context, msg *wire.InitMessage) error {
	return t.call(ctx, wire.MethodSendInitMessage, msg, nil)
}

func (t *wsTransport) GetPlayerActions(ctx context.Context, state *wire.State) (*wire.PlayerActions, error) {
	out := new(wire.PlayerActions)
	if err := t.call(ctx, wire.MethodGetPlayerActions, state, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *wsTransport) GetBestPlannerAction(ctx context.Context, req *wire.ArbitrationRequest) (*wire.ArbitrationResponse, error) {
	out := new(wire.ArbitrationResponse)
	if err := t.call(ctx, wire.MethodGetBestPlannerAction, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *wsTransport) SendByeCommand(ctx context.Context, reg *wire.RegisterResponse) error {
	return t.call(ctx, wire.MethodSendByeCommand, reg, nil)
}

func (t *wsTransport) Close() error {
	t.conn.SetWriteDeadline(time.Now().Add(time.Second))
	t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
