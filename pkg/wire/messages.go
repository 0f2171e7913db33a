// Package wire defines the messages exchanged between an agent and a
// decision server, shared by the gRPC and WebSocket adapters.
package wire

import "github.com/freeeve/soccer-proxy/pkg/field"

// AgentType identifies the kind of client registering.
type AgentType int

const (
	PlayerT AgentType = iota
	CoachT
	TrainerT
)

// RegisterRequest is the handshake an agent sends when it connects.
type RegisterRequest struct {
	AgentType AgentType `json:"agent_type"`
	TeamName  string    `json:"team_name"`
	Unum      int       `json:"uniform_number"`
	Version   string    `json:"rpc_version,omitempty"`
}

// RegisterResponse identifies an agent for every later call.
type RegisterResponse struct {
	ClientID  int32     `json:"client_id"`
	SessionID string    `json:"session_id,omitempty"`
	AgentType AgentType `json:"agent_type"`
	TeamName  string    `json:"team_name"`
	Unum      int       `json:"uniform_number"`
}

// InitMessage carries the server, player and player type parameters the
// agent received at connect time.
type InitMessage struct {
	Register     RegisterResponse   `json:"register_response"`
	DebugMode    bool               `json:"debug_mode"`
	ServerParams map[string]float64 `json:"server_param,omitempty"`
	PlayerParams map[string]float64 `json:"player_param,omitempty"`
	PlayerTypes  []field.PlayerType `json:"player_types,omitempty"`
}

// State is one cycle's world snapshot sent to the decision server.
type State struct {
	Register       RegisterResponse `json:"register_response"`
	World          *field.World     `json:"world_model"`
	NeedPreprocess bool             `json:"need_preprocess"`
}

// Empty is the response of calls that return nothing.
type Empty struct{}

// PlayerActions is the decision server's answer to GetPlayerActions.
type PlayerActions struct {
	Actions                  []PlayerAction `json:"actions"`
	IgnorePreprocess         bool           `json:"ignore_preprocess,omitempty"`
	IgnoreShootInPreprocess  bool           `json:"ignore_shootInPreprocess,omitempty"`
	IgnoreDoIntention        bool           `json:"ignore_doIntention,omitempty"`
	IgnoreDoForceKick        bool           `json:"ignore_doforceKick,omitempty"`
	IgnoreDoHeardPassReceive bool           `json:"ignore_doHeardPassRecieve,omitempty"`
}

// CandidateAction is one planner node's action as it travels on the wire.
type CandidateAction struct {
	Category               int          `json:"category"`
	Index                  int32        `json:"index"`
	SenderUnum             int          `json:"sender_unum"`
	TargetUnum             int          `json:"target_unum"`
	TargetPoint            field.Vector `json:"target_point"`
	FirstBallSpeed         float64      `json:"first_ball_speed"`
	FirstTurnMoment        float64      `json:"first_turn_moment"`
	FirstDashPower         float64      `json:"first_dash_power"`
	FirstDashAngleRelative float64      `json:"first_dash_angle_relative"`
	DurationStep           int          `json:"duration_step"`
	KickCount              int          `json:"kick_count"`
	TurnCount              int          `json:"turn_count"`
	DashCount              int          `json:"dash_count"`
	FinalAction            bool         `json:"final_action"`
	Description            string       `json:"description"`
	ParentIndex            int32        `json:"parent_index"`
}

// PredictState is the predicted world after a candidate action.
type PredictState struct {
	SpendTime       int          `json:"spend_time"`
	BallHolderUnum  int          `json:"ball_holder_unum"`
	BallPosition    field.Vector `json:"ball_position"`
	BallVelocity    field.Vector `json:"ball_velocity"`
	OurDefenseLineX float64      `json:"our_defense_line_x"`
	OurOffenseLineX float64      `json:"our_offense_line_x"`
}

// ActionStatePair is one node of the planner graph.
type ActionStatePair struct {
	Action       CandidateAction `json:"action"`
	PredictState PredictState    `json:"predict_state"`
	Evaluation   float64         `json:"evaluation"`
}

// ArbitrationRequest asks the decision server to pick a winning node.
type ArbitrationRequest struct {
	Register RegisterResponse          `json:"register_response"`
	State    *State                    `json:"state"`
	Pairs    map[int32]ActionStatePair `json:"pairs"`
}

// ArbitrationResponse names the winning node.
type ArbitrationResponse struct {
	Index int32 `json:"index"`
}
