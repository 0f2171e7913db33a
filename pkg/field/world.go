package field

import "fmt"

// Side is the half a team defends at kick-off.
type Side int

const (
	Neutral Side = iota
	Left
	Right
)

func (s Side) String() string {
	switch s {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return "neutral"
	}
}

// ParseSide accepts "l", "left", "r" or "right".
func ParseSide(s string) (Side, error) {
	switch s {
	case "l", "left", "L":
		return Left, nil
	case "r", "right", "R":
		return Right, nil
	}
	return Neutral, fmt.Errorf("unknown side %q", s)
}

// GameMode is the referee play mode as seen from our side.
type GameMode int

const (
	PlayOn GameMode = iota
	BeforeKickOff
	AfterGoal
	KickOff
	KickIn
	FreeKick
	IndirectFreeKick
	CornerKick
	GoalKick
	GoalieCatch
	PenaltyTaken
	TimeOver
)

var gameModeNames = [...]string{
	"play_on", "before_kick_off", "after_goal", "kick_off", "kick_in",
	"free_kick", "indirect_free_kick", "corner_kick", "goal_kick",
	"goalie_catch", "penalty_taken", "time_over",
}

func (m GameMode) String() string {
	if m < 0 || int(m) >= len(gameModeNames) {
		return "unknown"
	}
	return gameModeNames[m]
}

// PlayerType carries the heterogeneous parameters the planner needs.
type PlayerType struct {
	ID           int     `json:"id"`
	RealSpeedMax float64 `json:"real_speed_max"`
	KickableArea float64 `json:"kickable_area"`
}

// DefaultPlayerType mirrors the server's type 0.
var DefaultPlayerType = PlayerType{RealSpeedMax: 1.05, KickableArea: KickableArea}

// CyclesToReachDistance returns the dash cycles needed to cover dist.
func (t PlayerType) CyclesToReachDistance(dist float64) int {
	speed := t.RealSpeedMax
	if speed <= 0 {
		speed = DefaultPlayerType.RealSpeedMax
	}
	if dist <= 0 {
		return 0
	}
	n := int(dist / speed)
	if float64(n)*speed < dist {
		n++
	}
	return n
}

// Player is one observed player. Unum 0 means the uniform number is unknown.
type Player struct {
	Unum     int        `json:"unum"`
	Pos      Vector     `json:"pos"`
	Vel      Vector     `json:"vel"`
	Body     float64    `json:"body"`
	Goalie   bool       `json:"goalie,omitempty"`
	PosCount int        `json:"pos_count"`
	Kickable bool       `json:"kickable,omitempty"`
	Type     PlayerType `json:"type"`
}

// Ball is the observed ball with its confidence counters.
type Ball struct {
	Pos          Vector `json:"pos"`
	Vel          Vector `json:"vel"`
	PosCount     int    `json:"pos_count"`
	SeenPosCount int    `json:"seen_pos_count"`
	VelCount     int    `json:"vel_count"`
}

// PassMessage is a heard pass announcement.
type PassMessage struct {
	Sender     int    `json:"sender"`
	Receiver   int    `json:"receiver"`
	ReceivePos Vector `json:"receive_pos"`
	Time       int    `json:"time"`
}

// World is the snapshot of the game an agent decides on. The core never
// mutates it.
type World struct {
	Cycle         int          `json:"cycle"`
	StoppedCycle  int          `json:"stopped_cycle"`
	Team          string       `json:"team"`
	Side          Side         `json:"side"`
	Mode          GameMode     `json:"mode"`
	Self          Player       `json:"self"`
	SelfPosValid  bool         `json:"self_pos_valid"`
	TackleExpires int          `json:"tackle_expires"`
	CardRed       bool         `json:"card_red,omitempty"`
	Ball          Ball         `json:"ball"`
	Teammates     []Player     `json:"teammates"`
	Opponents     []Player     `json:"opponents"`
	HeardPass     *PassMessage `json:"heard_pass,omitempty"`
	InterceptStep int          `json:"intercept_step"`
	HomePos       Vector       `json:"home_pos"`
}

// Frozen reports whether the agent cannot act this cycle.
func (w *World) Frozen() bool {
	return w.TackleExpires > 0 || w.CardRed
}

// Kickable reports whether the ball is within our kickable area.
func (w *World) Kickable() bool { return w.Self.Kickable }

// KickableOpponent reports whether any opponent can kick the ball.
func (w *World) KickableOpponent() bool {
	for _, p := range w.Opponents {
		if p.Kickable {
			return true
		}
	}
	return false
}

// KickableTeammate reports whether a teammate other than self can kick the ball.
func (w *World) KickableTeammate() bool {
	for _, p := range w.Teammates {
		if p.Kickable && p.Unum != w.Self.Unum {
			return true
		}
	}
	return false
}

// Teammate returns the teammate with the given uniform number, self included.
func (w *World) Teammate(unum int) (Player, bool) {
	if unum == w.Self.Unum {
		return w.Self, true
	}
	for _, p := range w.Teammates {
		if p.Unum == unum {
			return p, true
		}
	}
	return Player{}, false
}

// BallHolder returns the uniform number of the teammate closest to the ball
// when one of us can kick it, or 0.
func (w *World) BallHolder() int {
	if w.Self.Kickable {
		return w.Self.Unum
	}
	for _, p := range w.Teammates {
		if p.Kickable {
			return p.Unum
		}
	}
	return 0
}

// OffenseLineX is the x of our most advanced field player.
func (w *World) OffenseLineX() float64 {
	x := w.Self.Pos.X
	for _, p := range w.Teammates {
		if !p.Goalie && p.Pos.X > x {
			x = p.Pos.X
		}
	}
	return x
}

// DefenseLineX is the x of our deepest field player.
func (w *World) DefenseLineX() float64 {
	x := w.Self.Pos.X
	for _, p := range w.Teammates {
		if !p.Goalie && p.Pos.X < x {
			x = p.Pos.X
		}
	}
	return x
}
