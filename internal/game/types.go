package game

import (
	"context"
	"time"
)

// Phase is the round engine's state.
type Phase string

const (
	PhaseBetting Phase = "BETTING"
	PhaseFlight  Phase = "FLIGHT"
	PhasePause   Phase = "PAUSE"
)

// RoundSnapshot is the public view of the live round, served by the
// status endpoint. The explosion multiplier stays hidden until the crash.
type RoundSnapshot struct {
	RoundID           int     `json:"round_id"`
	Phase             Phase   `json:"phase"`
	TimeRemaining     int     `json:"time_remaining,omitempty"`
	CurrentMultiplier float64 `json:"current_multiplier"`
	LastExplosion     float64 `json:"last_explosion,omitempty"`
	HouseProfit       float64 `json:"house_profit"`
	Players           int     `json:"players"`
}

// Settlement records one player's outcome within a round.
type Settlement struct {
	RoundID    int     `json:"round_id"`
	PlayerID   int32   `json:"player_id"`
	Nickname   string  `json:"nickname"`
	Stake      float64 `json:"stake"`
	Multiplier float64 `json:"multiplier"`
	Delta      float64 `json:"delta"`
	Won        bool    `json:"won"`
}

// RoundResult is the completed-round record handed to recorders once the
// explosion settles.
type RoundResult struct {
	RoundID     int          `json:"round_id"`
	Explosion   float64      `json:"explosion"`
	Bettors     int          `json:"bettors"`
	Staked      float64      `json:"staked"`
	HouseDelta  float64      `json:"house_delta"`
	HouseProfit float64      `json:"house_profit"`
	CrashedAt   time.Time    `json:"crashed_at"`
	Settlements []Settlement `json:"settlements,omitempty"`
}

// RoundRecorder persists completed rounds. Recording is fire-and-forget:
// the engine calls it off the round loop and only logs failures.
type RoundRecorder interface {
	RecordRound(ctx context.Context, result RoundResult) error
}

type intentKind int

const (
	intentJoin intentKind = iota
	intentBet
	intentCashout
	intentLeave
)

// intent is a client action forwarded to the engine goroutine. All round
// and ledger state is mutated there and nowhere else.
type intent struct {
	kind   intentKind
	player *Player
	amount float64
}
