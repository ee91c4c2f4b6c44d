package match

import (
	"time"

	"tichu-service/internal/model"
)

type ParticipantInput struct {
	PlayerID  int64  `json:"playerId"`
	Team      int    `json:"team"`
	Position  *int   `json:"position"`
	TichuCall string `json:"tichuCall"`
	BombCount int    `json:"bombCount"`
}

// SubmitGameRequest carries one team's report of a game. GameNumber is optional for new games;
// when set it must name the next free slot. Edits always name the game they replace.
type SubmitGameRequest struct {
	MatchID        int64
	TeamID         int64
	GameNumber     int
	Edit           bool
	Participants   []ParticipantInput
	TeamAScore     int
	TeamBScore     int
	TeamADoubleWin bool
	TeamBDoubleWin bool
}

type GameResult struct {
	GameNumber    int        `json:"gameNumber"`
	TeamATotal    int        `json:"teamATotal"`
	TeamBTotal    int        `json:"teamBTotal"`
	TeamASuccess  bool       `json:"teamASuccess"`
	TeamBSuccess  bool       `json:"teamBSuccess"`
	DoubleWinTeam *int       `json:"doubleWinTeam"`
	Game          model.Game `json:"game"`
}

// EffectiveState is the status plus the two confirmation flags, collapsed into what callers may do next.
type EffectiveState string

const (
	StateOpen            EffectiveState = "open"
	StateEntryComplete   EffectiveState = "entry_complete"
	StateSingleConfirmed EffectiveState = "single_confirmed"
	StateBothConfirmed   EffectiveState = "both_confirmed"
	StateCompleted       EffectiveState = "completed"
)

type RunningTotal struct {
	GameNumber int `json:"gameNumber"`
	TeamA      int `json:"teamA"`
	TeamB      int `json:"teamB"`
}

type Summary struct {
	TeamATotal int            `json:"teamATotal"`
	TeamBTotal int            `json:"teamBTotal"`
	Leader     int64          `json:"leader"` // team id, 0 on a tie
	Running    []RunningTotal `json:"running"`
}

type MatchState struct {
	Match           model.Match    `json:"match"`
	Games           []model.Game   `json:"games"`
	GameCount       int            `json:"gameCount"`
	RequiredGames   int            `json:"requiredGames"`
	State           EffectiveState `json:"state"`
	CanEdit         bool           `json:"canEdit"`
	ReadyToFinalize bool           `json:"readyToFinalize"`
	Summary         Summary        `json:"summary"`
}

const (
	EventGameSubmitted         = "game_submitted"
	EventGameDeleted           = "game_deleted"
	EventMatchConfirmed        = "match_confirmed"
	EventConfirmationRetracted = "confirmation_retracted"
)

// Event is what subscribers of a match channel receive after every committed mutation.
type Event struct {
	Type           string            `json:"type"`
	MatchID        int64             `json:"matchId"`
	TeamID         int64             `json:"teamId"`
	Version        int64             `json:"version"`
	Status         model.MatchStatus `json:"status"`
	GameNumber     int               `json:"gameNumber,omitempty"`
	GameCount      int               `json:"gameCount"`
	TeamAConfirmed bool              `json:"teamAConfirmed"`
	TeamBConfirmed bool              `json:"teamBConfirmed"`
	At             time.Time         `json:"at"`
}
