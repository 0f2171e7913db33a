package wire

import "encoding/json"

// Envelope frames one WebSocket request or response. Responses echo the
// request ID; a non-empty Error replaces the payload.
type Envelope struct {
	ID      uint64          `json:"id"`
	Method  string          `json:"method,omitempty"`
	Token   string          `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    int             `json:"code,omitempty"`
}
