package decider

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/freeeve/soccer-proxy/internal/auth"
	"github.com/freeeve/soccer-proxy/internal/logger"
	"github.com/freeeve/soccer-proxy/pkg/wire"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	maxMsgSize  = 1 << 20
	sendBufSize = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // agents are not browsers
	},
}

// WSHandler serves the decision service over WebSocket. Each text frame is
// a wire.Envelope request; the reply echoes its ID.
type WSHandler struct {
	svc    *Service
	jwtMgr *auth.JWTManager
}

// NewWSHandler creates a WSHandler. jwtMgr may be nil.
func NewWSHandler(svc *Service, jwtMgr *auth.JWTManager) *WSHandler {
	return &WSHandler{svc: svc, jwtMgr: jwtMgr}
}

type wsConn struct {
	conn    *websocket.Conn
	send    chan []byte
	log     zerolog.Logger
	claims  *auth.Claims
	clients []int32
}

// ServeWS upgrades the request. Authentication, when enabled, has already
// happened in auth.Middleware.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &wsConn{
		conn:   conn,
		send:   make(chan []byte, sendBufSize),
		log:    logger.ForRequest(r.Context()).With().Str("remote", r.RemoteAddr).Logger(),
		claims: claims,
	}
	if claims != nil {
		c.log = c.log.With().Str("team", claims.Team).Int("unum", claims.Unum).Logger()
	}

	go h.writePump(c)
	go h.readPump(c)

	c.log.Info().Msg("WebSocket agent connected")
}

// readPump handles requests in arrival order. Agents send one request at a
// time, so there is no need to run them concurrently.
func (h *WSHandler) readPump(c *wsConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		// Agents that drop without a bye are forgotten with their socket.
		h.svc.forget(c.clients...)
		close(c.send)
		c.conn.Close()
		c.log.Info().Int("clients", len(c.clients)).Msg("WebSocket agent disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		logger.LogPayload(c.log, "request", message)

		var req wire.Envelope
		if err := json.Unmarshal(message, &req); err != nil {
			c.log.Warn().Err(err).Msg("Malformed envelope")
			continue
		}

		resp := h.dispatch(ctx, c, &req)
		out, err := json.Marshal(resp)
		if err != nil {
			c.log.Error().Err(err).Str("method", req.Method).Msg("Failed to encode response")
			continue
		}
		logger.LogPayload(c.log, "response", out)
		c.send <- out
	}
}

// writePump writes responses and keeps the connection alive with pings.
func (h *WSHandler) writePump(c *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch decodes the payload, runs the method and frames the result.
func (h *WSHandler) dispatch(ctx context.Context, c *wsConn, req *wire.Envelope) wire.Envelope {
	resp := wire.Envelope{ID: req.ID, Method: req.Method}

	ctx, err := h.authorize(ctx, c, req.Token)
	if err != nil {
		return fail(resp, err)
	}

	var out any
	switch req.Method {
	case wire.MethodRegister:
		var in wire.RegisterRequest
		if err = decode(req.Payload, &in); err == nil {
			var reg *wire.RegisterResponse
			if reg, err = h.svc.Register(ctx, &in); err == nil {
				c.clients = append(c.clients, reg.ClientID)
				out = reg
			}
		}
	case wire.MethodSendInitMessage:
		var in wire.InitMessage
		if err = decode(req.Payload, &in); err == nil {
			out, err = h.svc.SendInitMessage(ctx, &in)
		}
	case wire.MethodGetPlayerActions:
		var in wire.State
		if err = decode(req.Payload, &in); err == nil {
			out, err = h.svc.GetPlayerActions(ctx, &in)
		}
	case wire.MethodGetBestPlannerAction:
		var in wire.ArbitrationRequest
		if err = decode(req.Payload, &in); err == nil {
			out, err = h.svc.GetBestPlannerAction(ctx, &in)
		}
	case wire.MethodSendByeCommand:
		var in wire.RegisterResponse
		if err = decode(req.Payload, &in); err == nil {
			out, err = h.svc.SendByeCommand(ctx, &in)
		}
	default:
		err = status.Errorf(codes.Unimplemented, "unknown method %q", req.Method)
	}
	if err != nil {
		return fail(resp, err)
	}

	resp.Payload, err = json.Marshal(out)
	if err != nil {
		return fail(resp, status.Error(codes.Internal, err.Error()))
	}
	return resp
}

// authorize validates a per-request token when one is sent. Tokens rotate
// during long matches, so a fresh one replaces the claims of the upgrade.
func (h *WSHandler) authorize(ctx context.Context, c *wsConn, token string) (context.Context, error) {
	if h.jwtMgr == nil {
		return ctx, nil
	}
	if token != "" {
		claims, err := h.jwtMgr.ValidateToken(token)
		if err != nil {
			return ctx, status.Error(codes.Unauthenticated, err.Error())
		}
		c.claims = claims
	}
	if c.claims == nil {
		return ctx, status.Error(codes.Unauthenticated, auth.ErrMissingToken.Error())
	}
	return auth.WithClaims(ctx, c.claims), nil
}

func decode(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return status.Error(codes.InvalidArgument, "empty payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return status.Errorf(codes.InvalidArgument, "decode payload: %v", err)
	}
	return nil
}

func fail(resp wire.Envelope, err error) wire.Envelope {
	st := status.Convert(err)
	resp.Error = st.Message()
	resp.Code = int(st.Code())
	return resp
}
