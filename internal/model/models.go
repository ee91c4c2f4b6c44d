package model

import (
	"time"

	"gorm.io/datatypes"
)

// Tournament, round and team rows are owned by the tournament administration side.
// This service only reads them.

type Tournament struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Name            string `gorm:"size:128;not null"`
	Status          string `gorm:"default:setup;not null"` // setup/active/completed/cancelled
	AllowGrandTichu bool   `gorm:"not null"`
	CurrentRound    int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Round struct {
	ID           int64 `gorm:"primaryKey;autoIncrement"`
	TournamentID int64 `gorm:"index;not null"`
	RoundNumber  int   `gorm:"not null"`
	CreatedAt    time.Time
}

type Player struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;not null"`
	CreatedAt time.Time
}

type Team struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	TournamentID   int64  `gorm:"index;not null"`
	Name           string `gorm:"size:64;not null"`
	Player1ID      int64  `gorm:"not null"`
	Player2ID      int64  `gorm:"not null"`
	AccessCodeHash string `gorm:"not null" json:"-"`
	CreatedAt      time.Time
}

// HasPlayer reports whether playerID is one of the team's two players.
func (t Team) HasPlayer(playerID int64) bool {
	return playerID != 0 && (t.Player1ID == playerID || t.Player2ID == playerID)
}

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusPlaying    MatchStatus = "playing"
	MatchStatusConfirming MatchStatus = "confirming"
	MatchStatusCompleted  MatchStatus = "completed"
)

type Match struct {
	ID               int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	TournamentID     int64       `gorm:"index;not null" json:"tournamentId"`
	RoundID          int64       `gorm:"index;not null" json:"roundId"`
	TableNumber      int         `json:"tableNumber"`
	TeamAID          int64       `gorm:"not null" json:"teamAId"`
	TeamBID          int64       `gorm:"not null" json:"teamBId"`
	Status           MatchStatus `gorm:"size:16;default:pending;not null" json:"status"`
	TeamAConfirmed   bool        `gorm:"not null;default:false" json:"teamAConfirmed"`
	TeamBConfirmed   bool        `gorm:"not null;default:false" json:"teamBConfirmed"`
	TeamAConfirmedAt *time.Time  `json:"teamAConfirmedAt,omitempty"`
	TeamBConfirmedAt *time.Time  `json:"teamBConfirmedAt,omitempty"`
	Version          int64       `gorm:"not null;default:0" json:"version"`
	CompletedAt      *time.Time  `json:"completedAt,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// Side returns 1 for team A, 2 for team B and 0 when teamID plays neither side.
func (m Match) Side(teamID int64) int {
	switch {
	case teamID == 0:
		return 0
	case teamID == m.TeamAID:
		return 1
	case teamID == m.TeamBID:
		return 2
	}
	return 0
}

func (m Match) Confirmed(side int) bool {
	if side == 1 {
		return m.TeamAConfirmed
	}
	return m.TeamBConfirmed
}

func (m Match) AnyConfirmed() bool {
	return m.TeamAConfirmed || m.TeamBConfirmed
}

func (m Match) BothConfirmed() bool {
	return m.TeamAConfirmed && m.TeamBConfirmed
}

type Game struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID        int64     `gorm:"not null;uniqueIndex:idx_game_match_number" json:"matchId"`
	GameNumber     int       `gorm:"not null;uniqueIndex:idx_game_match_number" json:"gameNumber"`
	TeamAScore     int       `json:"teamAScore"`
	TeamBScore     int       `json:"teamBScore"`
	TeamABonus     int       `json:"teamABonus"`
	TeamBBonus     int       `json:"teamBBonus"`
	TeamATotal     int       `json:"teamATotal"`
	TeamBTotal     int       `json:"teamBTotal"`
	TeamADoubleWin bool      `json:"teamADoubleWin"`
	TeamBDoubleWin bool      `json:"teamBDoubleWin"`
	TeamASuccess   bool      `json:"teamASuccess"`
	TeamBSuccess   bool      `json:"teamBSuccess"`
	SubmittedBy    int64     `json:"submittedBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`

	Participants []GameParticipant `gorm:"constraint:OnDelete:CASCADE" json:"participants"`
}

type GameParticipant struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	GameID      int64  `gorm:"index;not null" json:"-"`
	Seat        int    `gorm:"not null" json:"seat"` // 0..3 in submission order
	PlayerID    int64  `gorm:"not null" json:"playerId"`
	Team        int    `gorm:"not null" json:"team"` // 1 = team A, 2 = team B
	Position    *int   `json:"position"`
	TichuCall   string `gorm:"size:8;not null;default:NONE" json:"tichuCall"`
	CallSuccess bool   `json:"callSuccess"`
	BombCount   int    `gorm:"not null;default:0" json:"bombCount"`
}

type MatchEvent struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	MatchID     int64          `gorm:"index;not null" json:"matchId"`
	TeamID      int64          `json:"teamId"`
	// OpID is shared by every retry of one request.
	OpID        string         `gorm:"size:36;index" json:"-"`
	Type        string         `gorm:"size:32;not null" json:"type"` // game_submitted/game_deleted/match_confirmed/confirmation_retracted
	Version     int64          `json:"version"`
	PayloadJSON datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// All lists every model this service migrates.
func All() []interface{} {
	return []interface{}{
		&Tournament{},
		&Round{},
		&Player{},
		&Team{},
		&Match{},
		&Game{},
		&GameParticipant{},
		&MatchEvent{},
	}
}
