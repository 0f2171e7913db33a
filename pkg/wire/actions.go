package wire

import "github.com/freeeve/soccer-proxy/pkg/field"

// PlayerAction is a tagged union: exactly one field is set.
type PlayerAction struct {
	Dash           *Dash           `json:"dash,omitempty"`
	Kick           *Kick           `json:"kick,omitempty"`
	Turn           *Turn           `json:"turn,omitempty"`
	Tackle         *Tackle         `json:"tackle,omitempty"`
	Catch          *Catch          `json:"catch,omitempty"`
	Move           *Move           `json:"move,omitempty"`
	TurnNeck       *TurnNeck       `json:"turn_neck,omitempty"`
	ChangeView     *ChangeView     `json:"change_view,omitempty"`
	Say            *Say            `json:"say,omitempty"`
	PointTo        *PointTo        `json:"point_to,omitempty"`
	PointToOff     *PointToOff     `json:"point_to_of,omitempty"`
	AttentionTo    *AttentionTo    `json:"attention_to,omitempty"`
	AttentionToOff *AttentionToOff `json:"attention_to_of,omitempty"`
	Log            *Log            `json:"log,omitempty"`

	GoToPoint   *GoToPoint   `json:"body_go_to_point,omitempty"`
	SmartKick   *SmartKick   `json:"body_smart_kick,omitempty"`
	KickOneStep *KickOneStep `json:"body_kick_one_step,omitempty"`
	Intercept   *Intercept   `json:"body_intercept,omitempty"`
	HoldBall    *HoldBall    `json:"body_hold_ball,omitempty"`
	ClearBall   *ClearBall   `json:"body_clear_ball,omitempty"`
	StopBall    *StopBall    `json:"body_stop_ball,omitempty"`
	TurnToBall  *TurnToBall  `json:"body_turn_to_ball,omitempty"`
	TurnToPoint *TurnToPoint `json:"body_turn_to_point,omitempty"`

	NeckScanField        *NeckScanField        `json:"neck_scan_field,omitempty"`
	NeckTurnToBall       *NeckTurnToBall       `json:"neck_turn_to_ball,omitempty"`
	NeckTurnToBallOrScan *NeckTurnToBallOrScan `json:"neck_turn_to_ball_or_scan,omitempty"`
	NeckTurnToPoint      *NeckTurnToPoint      `json:"neck_turn_to_point,omitempty"`
	ViewSynch            *ViewSynch            `json:"view_synch,omitempty"`
	FocusMoveToPoint     *FocusMoveToPoint     `json:"focus_move_to_point,omitempty"`
	FocusReset           *FocusReset           `json:"focus_reset,omitempty"`

	Goalie           *Goalie           `json:"helios_goalie,omitempty"`
	BasicMove        *BasicMove        `json:"helios_basic_move,omitempty"`
	SetPlay          *SetPlay          `json:"helios_set_play,omitempty"`
	Penalty          *Penalty          `json:"helios_penalty,omitempty"`
	Communication    *Communication    `json:"helios_communicaion,omitempty"`
	BasicTackle      *BasicTackle      `json:"bhv_basic_tackle,omitempty"`
	StrictCheckShoot *StrictCheckShoot `json:"helios_shoot,omitempty"`
	Emergency        *Emergency        `json:"bhv_emergency,omitempty"`
	ScanField        *ScanField        `json:"bhv_scan_field,omitempty"`
	OffensivePlanner *OffensivePlanner `json:"helios_offensive_planner,omitempty"`
}

type (
	Dash struct {
		Power             float64 `json:"power"`
		RelativeDirection float64 `json:"relative_direction"`
	}
	Kick struct {
		Power             float64 `json:"power"`
		RelativeDirection float64 `json:"relative_direction"`
	}
	Turn struct {
		RelativeDirection float64 `json:"relative_direction"`
	}
	Tackle struct {
		PowerOrDir float64 `json:"power_or_dir"`
		Foul       bool    `json:"foul"`
	}
	Catch struct{}
	Move  struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	TurnNeck struct {
		Moment float64 `json:"moment"`
	}
	ChangeView struct {
		Width string `json:"view_width"`
	}
	Say struct {
		Message string `json:"message"`
	}
	PointTo struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}
	PointToOff  struct{}
	AttentionTo struct {
		Side string `json:"side"`
		Unum int    `json:"unum"`
	}
	AttentionToOff struct{}
	Log            struct {
		Text string `json:"text"`
	}
)

type (
	GoToPoint struct {
		Target            field.Vector `json:"target_point"`
		DistanceThreshold float64      `json:"distance_threshold"`
		MaxDashPower      float64      `json:"max_dash_power"`
	}
	SmartKick struct {
		Target              field.Vector `json:"target_point"`
		FirstSpeed          float64      `json:"first_speed"`
		FirstSpeedThreshold float64      `json:"first_speed_threshold"`
		MaxSteps            int          `json:"max_steps"`
	}
	KickOneStep struct {
		Target     field.Vector `json:"target_point"`
		FirstSpeed float64      `json:"first_speed"`
		ForceMode  bool         `json:"force_mode"`
	}
	Intercept  struct{}
	HoldBall   struct{}
	ClearBall  struct{}
	StopBall   struct{}
	TurnToBall struct {
		Cycle int `json:"cycle"`
	}
	TurnToPoint struct {
		Target field.Vector `json:"target_point"`
		Cycle  int          `json:"cycle"`
	}
)

type (
	NeckScanField        struct{}
	NeckTurnToBall       struct{}
	NeckTurnToBallOrScan struct {
		CountThreshold int `json:"count_threshold"`
	}
	NeckTurnToPoint struct {
		Target field.Vector `json:"target_point"`
	}
	ViewSynch        struct{}
	FocusMoveToPoint struct {
		Target field.Vector `json:"target_point"`
	}
	FocusReset struct{}
)

type (
	Goalie        struct{}
	BasicMove     struct{}
	SetPlay       struct{}
	Penalty       struct{}
	Communication struct{}
	BasicTackle   struct {
		MinProb       float64 `json:"min_prob"`
		BodyThreshold float64 `json:"body_thr"`
	}
	StrictCheckShoot struct{}
	Emergency        struct{}
	ScanField        struct{}
)

// OffensivePlanner asks the agent to enumerate and commit a chain of
// ball actions.
type OffensivePlanner struct {
	DirectPass         bool               `json:"direct_pass"`
	LeadPass           bool               `json:"lead_pass"`
	ThroughPass        bool               `json:"through_pass"`
	ShortDribble       bool               `json:"short_dribble"`
	LongDribble        bool               `json:"long_dribble"`
	Cross              bool               `json:"cross"`
	SimplePass         bool               `json:"simple_pass"`
	SimpleDribble      bool               `json:"simple_dribble"`
	SimpleShoot        bool               `json:"simple_shoot"`
	ServerSideDecision bool               `json:"server_side_decision"`
	MaxDepth           int                `json:"max_depth"`
	MaxNodes           int                `json:"max_nodes"`
	Evaluation         *PlannerEvaluation `json:"evaluation,omitempty"`
}
