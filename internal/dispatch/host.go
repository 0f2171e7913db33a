package dispatch

import "github.com/freeeve/soccer-proxy/pkg/field"

// BehaviorName names a higher-level behavior the host implements.
type BehaviorName string

const (
	BhvGoToPoint            BehaviorName = "go_to_point"
	BhvSmartKick            BehaviorName = "smart_kick"
	BhvKickOneStep          BehaviorName = "kick_one_step"
	BhvDribble              BehaviorName = "dribble"
	BhvIntercept            BehaviorName = "intercept"
	BhvHoldBall             BehaviorName = "hold_ball"
	BhvClearBall            BehaviorName = "clear_ball"
	BhvStopBall             BehaviorName = "stop_ball"
	BhvTurnToBall           BehaviorName = "turn_to_ball"
	BhvTurnToPoint          BehaviorName = "turn_to_point"
	BhvNeckScanField        BehaviorName = "neck_scan_field"
	BhvNeckTurnToBall       BehaviorName = "neck_turn_to_ball"
	BhvNeckTurnToBallOrScan BehaviorName = "neck_turn_to_ball_or_scan"
	BhvNeckTurnToPoint      BehaviorName = "neck_turn_to_point"
	BhvViewSynch            BehaviorName = "view_synch"
	BhvViewTactical         BehaviorName = "view_tactical"
	BhvFocusMoveToPoint     BehaviorName = "focus_move_to_point"
	BhvFocusReset           BehaviorName = "focus_reset"
	BhvGoalie               BehaviorName = "goalie"
	BhvBasicMove            BehaviorName = "basic_move"
	BhvSetPlay              BehaviorName = "set_play"
	BhvPenalty              BehaviorName = "penalty"
	BhvCommunication        BehaviorName = "communication"
	BhvBasicTackle          BehaviorName = "basic_tackle"
	BhvStrictCheckShoot     BehaviorName = "strict_check_shoot"
	BhvEmergency            BehaviorName = "emergency"
	BhvScanField            BehaviorName = "scan_field"
	BhvBeforeKickOff        BehaviorName = "before_kick_off"
	BhvNeckBodyToBall       BehaviorName = "neck_body_to_ball"
)

// Behavior is a behavior invocation. Fields a behavior does not use are zero.
type Behavior struct {
	Name      BehaviorName
	Target    field.Vector
	Speed     float64
	Threshold float64
	Power     float64
	Steps     int
}

// Intention is a multi-cycle plan the host replays through DoIntention.
type Intention struct {
	Kind      string
	Target    field.Vector
	MaxDash   float64
	Tolerance float64
	Steps     int
	Cycle     int
}

// IntentionReceive is queued after a heard pass.
const IntentionReceive = "receive"

// Host is the agent-side world model and motor layer. Each method reports
// whether the command was accepted.
type Host interface {
	World() *field.World

	Dash(power, dir float64) bool
	Kick(power, dir float64) bool
	Turn(moment float64) bool
	Tackle(powerOrDir float64, foul bool) bool
	Catch() bool
	Move(p field.Vector) bool

	TurnNeck(moment float64) bool
	ChangeView(width string) bool
	Say(msg string) bool
	PointTo(p field.Vector) bool
	PointToOff() bool
	AttentionTo(side string, unum int) bool
	AttentionToOff() bool
	Log(text string) bool

	Behave(b Behavior) bool

	SetIntention(i *Intention)
	DoIntention() bool
}
