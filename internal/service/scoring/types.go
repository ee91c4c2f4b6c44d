package scoring

import "strings"

const (
	SmallTichuPoints = 100
	GrandTichuPoints = 200
	DoubleWinPoints  = 200

	// Raw card points of one hand always add up to this.
	HandPoints = 100

	minRawScore  = -25
	maxRawScore  = 125
	rawScoreStep = 5

	TeamA = 1
	TeamB = 2
)

type Call string

const (
	CallNone  Call = "NONE"
	CallSmall Call = "SMALL"
	CallGrand Call = "GRAND"
)

// ParseCall accepts the canonical names plus the short forms older clients send (ST, GT).
// An empty string means no call.
func ParseCall(raw string) (Call, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "NONE":
		return CallNone, true
	case "SMALL", "ST", "TICHU":
		return CallSmall, true
	case "GRAND", "GT", "GRAND_TICHU":
		return CallGrand, true
	}
	return "", false
}

func (c Call) points() int {
	switch c {
	case CallSmall:
		return SmallTichuPoints
	case CallGrand:
		return GrandTichuPoints
	}
	return 0
}

type Participant struct {
	PlayerID  int64
	Team      int
	Position  *int
	Call      Call
	BombCount int
}

type Rules struct {
	AllowGrandTichu bool
	MaxBombs        int
}

func DefaultRules() Rules {
	return Rules{
		AllowGrandTichu: true,
		MaxBombs:        3,
	}
}

type Input struct {
	Participants []Participant
	// RawScores holds the card points of team A and team B, in that order.
	RawScores [2]int
}

type ParticipantResult struct {
	PlayerID  int64 `json:"playerId"`
	Team      int   `json:"team"`
	Position  *int  `json:"position"`
	Call      Call  `json:"tichuCall"`
	Success   bool  `json:"callSuccess"`
	BombCount int   `json:"bombCount"`
}

// Result is the fully derived outcome of one game. Index 0 is team A, index 1 is team B.
type Result struct {
	RawScores     [2]int              `json:"rawScores"`
	Bonus         [2]int              `json:"bonus"`
	Totals        [2]int              `json:"totals"`
	Success       [2]bool             `json:"success"`
	DoubleWinTeam int                 `json:"doubleWinTeam"`
	Participants  []ParticipantResult `json:"participants"`
}

func (r *Result) DoubleWin(team int) bool {
	return r.DoubleWinTeam != 0 && r.DoubleWinTeam == team
}
