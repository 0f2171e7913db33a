package dispatch

import (
	"fmt"

	"github.com/freeeve/soccer-proxy/pkg/wire"
)

// Kind identifies an action variant.
type Kind int

const (
	KindDash Kind = iota
	KindKick
	KindTurn
	KindTackle
	KindCatch
	KindMove
	KindTurnNeck
	KindChangeView
	KindSay
	KindPointTo
	KindPointToOff
	KindAttentionTo
	KindAttentionToOff
	KindLog
	KindGoToPoint
	KindSmartKick
	KindKickOneStep
	KindIntercept
	KindHoldBall
	KindClearBall
	KindStopBall
	KindTurnToBall
	KindTurnToPoint
	KindNeckScanField
	KindNeckTurnToBall
	KindNeckTurnToBallOrScan
	KindNeckTurnToPoint
	KindViewSynch
	KindFocusMoveToPoint
	KindFocusReset
	KindGoalie
	KindBasicMove
	KindSetPlay
	KindPenalty
	KindCommunication
	KindBasicTackle
	KindStrictCheckShoot
	KindEmergency
	KindScanField
	KindOffensivePlanner

	kindCount
)

// KindNone marks a report with no committed primary action.
const KindNone Kind = -1

var kindNames = [kindCount]string{
	KindDash:                 "dash",
	KindKick:                 "kick",
	KindTurn:                 "turn",
	KindTackle:               "tackle",
	KindCatch:                "catch",
	KindMove:                 "move",
	KindTurnNeck:             "turn_neck",
	KindChangeView:           "change_view",
	KindSay:                  "say",
	KindPointTo:              "point_to",
	KindPointToOff:           "point_to_off",
	KindAttentionTo:          "attention_to",
	KindAttentionToOff:       "attention_to_off",
	KindLog:                  "log",
	KindGoToPoint:            "go_to_point",
	KindSmartKick:            "smart_kick",
	KindKickOneStep:          "kick_one_step",
	KindIntercept:            "intercept",
	KindHoldBall:             "hold_ball",
	KindClearBall:            "clear_ball",
	KindStopBall:             "stop_ball",
	KindTurnToBall:           "turn_to_ball",
	KindTurnToPoint:          "turn_to_point",
	KindNeckScanField:        "neck_scan_field",
	KindNeckTurnToBall:       "neck_turn_to_ball",
	KindNeckTurnToBallOrScan: "neck_turn_to_ball_or_scan",
	KindNeckTurnToPoint:      "neck_turn_to_point",
	KindViewSynch:            "view_synch",
	KindFocusMoveToPoint:     "focus_move_to_point",
	KindFocusReset:           "focus_reset",
	KindGoalie:               "goalie",
	KindBasicMove:            "basic_move",
	KindSetPlay:              "set_play",
	KindPenalty:              "penalty",
	KindCommunication:        "communication",
	KindBasicTackle:          "basic_tackle",
	KindStrictCheckShoot:     "strict_check_shoot",
	KindEmergency:            "emergency",
	KindScanField:            "scan_field",
	KindOffensivePlanner:     "offensive_planner",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "none"
	}
	return kindNames[k]
}

// Primary reports whether the kind drives the body. At most one primary
// action succeeds per cycle; secondary actions (neck, view, focus, say,
// point, attention, log) always run.
func (k Kind) Primary() bool {
	switch k {
	case KindDash, KindKick, KindTurn, KindTackle, KindCatch, KindMove, KindGoToPoint,
		KindSmartKick, KindKickOneStep, KindIntercept, KindHoldBall, KindClearBall,
		KindStopBall, KindTurnToBall, KindTurnToPoint, KindGoalie, KindBasicMove, KindSetPlay,
		KindPenalty, KindBasicTackle, KindStrictCheckShoot, KindEmergency, KindScanField,
		KindOffensivePlanner:
		return true
	case KindTurnNeck, KindChangeView, KindSay, KindPointTo, KindPointToOff,
		KindAttentionTo, KindAttentionToOff, KindLog, KindNeckScanField, KindNeckTurnToBall,
		KindNeckTurnToBallOrScan, KindNeckTurnToPoint, KindViewSynch, KindFocusMoveToPoint,
		KindFocusReset, KindCommunication:
		return false
	}
	panic(fmt.Sprintf("dispatch: unclassified action kind %d", int(k)))
}

// Action is one entry of a cycle's action list. The set of implementations
// is closed; see Kind.
type Action interface {
	Kind() Kind
	isAction()
}

type (
	Dash                 wire.Dash
	Kick                 wire.Kick
	Turn                 wire.Turn
	Tackle               wire.Tackle
	Catch                wire.Catch
	Move                 wire.Move
	TurnNeck             wire.TurnNeck
	ChangeView           wire.ChangeView
	Say                  wire.Say
	PointTo              wire.PointTo
	PointToOff           wire.PointToOff
	AttentionTo          wire.AttentionTo
	AttentionToOff       wire.AttentionToOff
	Log                  wire.Log
	GoToPoint            wire.GoToPoint
	SmartKick            wire.SmartKick
	KickOneStep          wire.KickOneStep
	Intercept            wire.Intercept
	HoldBall             wire.HoldBall
	ClearBall            wire.ClearBall
	StopBall             wire.StopBall
	TurnToBall           wire.TurnToBall
	TurnToPoint          wire.TurnToPoint
	NeckScanField        wire.NeckScanField
	NeckTurnToBall       wire.NeckTurnToBall
	NeckTurnToBallOrScan wire.NeckTurnToBallOrScan
	NeckTurnToPoint      wire.NeckTurnToPoint
	ViewSynch            wire.ViewSynch
	FocusMoveToPoint     wire.FocusMoveToPoint
	FocusReset           wire.FocusReset
	Goalie               wire.Goalie
	BasicMove            wire.BasicMove
	SetPlay              wire.SetPlay
	Penalty              wire.Penalty
	Communication        wire.Communication
	BasicTackle          wire.BasicTackle
	StrictCheckShoot     wire.StrictCheckShoot
	Emergency            wire.Emergency
	ScanField            wire.ScanField
	OffensivePlanner     wire.OffensivePlanner
)

func (Dash) Kind() Kind { return KindDash }
func (Kick) Kind() Kind { return KindKick }
func (Turn) Kind() Kind { return KindTurn }
func (Tackle) Kind() Kind { return KindTackle }
func (Catch) Kind() Kind { return KindCatch }
func (Move) Kind() Kind { return KindMove }
func (TurnNeck) Kind() Kind { return KindTurnNeck }
func (ChangeView) Kind() Kind { return KindChangeView }
func (Say) Kind() Kind { return KindSay }
func (PointTo) Kind() Kind { return KindPointTo }
func (PointToOff) Kind() Kind { return KindPointToOff }
func (AttentionTo) Kind() Kind { return KindAttentionTo }
func (AttentionToOff) Kind() Kind { return KindAttentionToOff }
func (Log) Kind() Kind { return KindLog }
func (GoToPoint) Kind() Kind { return KindGoToPoint }
func (SmartKick) Kind() Kind { return KindSmartKick }
func (KickOneStep) Kind() Kind { return KindKickOneStep }
func (Intercept) Kind() Kind { return KindIntercept }
func (HoldBall) Kind() Kind { return KindHoldBall }
func (ClearBall) Kind() Kind { return KindClearBall }
func (StopBall) Kind() Kind { return KindStopBall }
func (TurnToBall) Kind() Kind { return KindTurnToBall }
func (TurnToPoint) Kind() Kind { return KindTurnToPoint }
func (NeckScanField) Kind() Kind { return KindNeckScanField }
func (NeckTurnToBall) Kind() Kind { return KindNeckTurnToBall }
func (NeckTurnToBallOrScan) Kind() Kind { return KindNeckTurnToBallOrScan }
func (NeckTurnToPoint) Kind() Kind { return KindNeckTurnToPoint }
func (ViewSynch) Kind() Kind { return KindViewSynch }
func (FocusMoveToPoint) Kind() Kind { return KindFocusMoveToPoint }
func (FocusReset) Kind() Kind { return KindFocusReset }
func (Goalie) Kind() Kind { return KindGoalie }
func (BasicMove) Kind() Kind { return KindBasicMove }
func (SetPlay) Kind() Kind { return KindSetPlay }
func (Penalty) Kind() Kind { return KindPenalty }
func (Communication) Kind() Kind { return KindCommunication }
func (BasicTackle) Kind() Kind { return KindBasicTackle }
func (StrictCheckShoot) Kind() Kind { return KindStrictCheckShoot }
func (Emergency) Kind() Kind { return KindEmergency }
func (ScanField) Kind() Kind { return KindScanField }
func (OffensivePlanner) Kind() Kind { return KindOffensivePlanner }

func (Dash) isAction() {}
func (Kick) isAction() {}
func (Turn) isAction() {}
func (Tackle) isAction() {}
func (Catch) isAction() {}
func (Move) isAction() {}
func (TurnNeck) isAction() {}
func (ChangeView) isAction() {}
func (Say) isAction() {}
func (PointTo) isAction() {}
func (PointToOff) isAction() {}
func (AttentionTo) isAction() {}
func (AttentionToOff) isAction() {}
func (Log) isAction() {}
func (GoToPoint) isAction() {}
func (SmartKick) isAction() {}
func (KickOneStep) isAction() {}
func (Intercept) isAction() {}
func (HoldBall) isAction() {}
func (ClearBall) isAction() {}
func (StopBall) isAction() {}
func (TurnToBall) isAction() {}
func (TurnToPoint) isAction() {}
func (NeckScanField) isAction() {}
func (NeckTurnToBall) isAction() {}
func (NeckTurnToBallOrScan) isAction() {}
func (NeckTurnToPoint) isAction() {}
func (ViewSynch) isAction() {}
func (FocusMoveToPoint) isAction() {}
func (FocusReset) isAction() {}
func (Goalie) isAction() {}
func (BasicMove) isAction() {}
func (SetPlay) isAction() {}
func (Penalty) isAction() {}
func (Communication) isAction() {}
func (BasicTackle) isAction() {}
func (StrictCheckShoot) isAction() {}
func (Emergency) isAction() {}
func (ScanField) isAction() {}
func (OffensivePlanner) isAction() {}

// FromWire converts the wire action list. Entries with no variant set are
// dropped and counted.
func FromWire(in []wire.PlayerAction) ([]Action, int) {
	out := make([]Action, 0, len(in))
	dropped := 0
	for _, pa := range in {
		a := fromWire(pa)
		if a == nil {
			dropped++
			continue
		}
		out = append(out, a)
	}
	return out, dropped
}

func fromWire(pa wire.PlayerAction) Action {
	switch {
	case pa.Dash != nil:
		return Dash(*pa.Dash)
	case pa.Kick != nil:
		return Kick(*pa.Kick)
	case pa.Turn != nil:
		return Turn(*pa.Turn)
	case pa.Tackle != nil:
		return Tackle(*pa.Tackle)
	case pa.Catch != nil:
		return Catch(*pa.Catch)
	case pa.Move != nil:
		return Move(*pa.Move)
	case pa.TurnNeck != nil:
		return TurnNeck(*pa.TurnNeck)
	case pa.ChangeView != nil:
		return ChangeView(*pa.ChangeView)
	case pa.Say != nil:
		return Say(*pa.Say)
	case pa.PointTo != nil:
		return PointTo(*pa.PointTo)
	case pa.PointToOff != nil:
		return PointToOff(*pa.PointToOff)
	case pa.AttentionTo != nil:
		return AttentionTo(*pa.AttentionTo)
	case pa.AttentionToOff != nil:
		return AttentionToOff(*pa.AttentionToOff)
	case pa.Log != nil:
		return Log(*pa.Log)
	case pa.GoToPoint != nil:
		return GoToPoint(*pa.GoToPoint)
	case pa.SmartKick != nil:
		return SmartKick(*pa.SmartKick)
	case pa.KickOneStep != nil:
		return KickOneStep(*pa.KickOneStep)
	case pa.Intercept != nil:
		return Intercept(*pa.Intercept)
	case pa.HoldBall != nil:
		return HoldBall(*pa.HoldBall)
	case pa.ClearBall != nil:
		return ClearBall(*pa.ClearBall)
	case pa.StopBall != nil:
		return StopBall(*pa.StopBall)
	case pa.TurnToBall != nil:
		return TurnToBall(*pa.TurnToBall)
	case pa.TurnToPoint != nil:
		return TurnToPoint(*pa.TurnToPoint)
	case pa.NeckScanField != nil:
		return NeckScanField(*pa.NeckScanField)
	case pa.NeckTurnToBall != nil:
		return NeckTurnToBall(*pa.NeckTurnToBall)
	case pa.NeckTurnToBallOrScan != nil:
		return NeckTurnToBallOrScan(*pa.NeckTurnToBallOrScan)
	case pa.NeckTurnToPoint != nil:
		return NeckTurnToPoint(*pa.NeckTurnToPoint)
	case pa.ViewSynch != nil:
		return ViewSynch(*pa.ViewSynch)
	case pa.FocusMoveToPoint != nil:
		return FocusMoveToPoint(*pa.FocusMoveToPoint)
	case pa.FocusReset != nil:
		return FocusReset(*pa.FocusReset)
	case pa.Goalie != nil:
		return Goalie(*pa.Goalie)
	case pa.BasicMove != nil:
		return BasicMove(*pa.BasicMove)
	case pa.SetPlay != nil:
		return SetPlay(*pa.SetPlay)
	case pa.Penalty != nil:
		return Penalty(*pa.Penalty)
	case pa.Communication != nil:
		return Communication(*pa.Communication)
	case pa.BasicTackle != nil:
		return BasicTackle(*pa.BasicTackle)
	case pa.StrictCheckShoot != nil:
		return StrictCheckShoot(*pa.StrictCheckShoot)
	case pa.Emergency != nil:
		return Emergency(*pa.Emergency)
	case pa.ScanField != nil:
		return ScanField(*pa.ScanField)
	case pa.OffensivePlanner != nil:
		return OffensivePlanner(*pa.OffensivePlanner)
	}
	return nil
}
