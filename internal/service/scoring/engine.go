package scoring

import (
	"fmt"

	appErr "tichu-service/pkg/errors"
)

const participantCount = 4

// Score validates one game's raw inputs and derives bonuses and totals.
// It is pure: the same input and rules always produce the same result or the same error.
func Score(in Input, rules Rules) (*Result, error) {
	if err := validateParticipants(in.Participants, rules); err != nil {
		return nil, err
	}

	doubleWinTeam, err := classifyPositions(in.Participants)
	if err != nil {
		return nil, err
	}

	res := &Result{
		DoubleWinTeam: doubleWinTeam,
		Participants:  make([]ParticipantResult, 0, len(in.Participants)),
	}

	if doubleWinTeam == 0 {
		if err := validateRawScores(in.RawScores); err != nil {
			return nil, err
		}
		res.RawScores = in.RawScores
	}

	for _, p := range in.Participants {
		success := p.Call != CallNone && p.Position != nil && *p.Position == 1
		idx := p.Team - 1
		if p.Call != CallNone {
			if success {
				res.Bonus[idx] += p.Call.points()
				res.Success[idx] = true
			} else {
				res.Bonus[idx] -= p.Call.points()
			}
		}
		res.Participants = append(res.Participants, ParticipantResult{
			PlayerID:  p.PlayerID,
			Team:      p.Team,
			Position:  copyPosition(p.Position),
			Call:      p.Call,
			Success:   success,
			BombCount: p.BombCount,
		})
	}

	if doubleWinTeam != 0 {
		res.Bonus[doubleWinTeam-1] += DoubleWinPoints
	}

	for i := range res.Totals {
		res.Totals[i] = res.RawScores[i] + res.Bonus[i]
	}
	return res, nil
}

func validateParticipants(participants []Participant, rules Rules) error {
	if len(participants) != participantCount {
		return fmt.Errorf("%w: expected %d participants, got %d", appErr.ErrInvalidParticipants, participantCount, len(participants))
	}

	perTeam := [2]int{}
	seen := make(map[int64]struct{}, participantCount)
	for i, p := range participants {
		if p.Team != TeamA && p.Team != TeamB {
			return fmt.Errorf("%w: participant %d has team %d", appErr.ErrInvalidParticipants, i, p.Team)
		}
		perTeam[p.Team-1]++

		if p.PlayerID < 0 {
			return fmt.Errorf("%w: participant %d has player id %d", appErr.ErrInvalidParticipants, i, p.PlayerID)
		}
		if p.PlayerID != 0 {
			if _, dup := seen[p.PlayerID]; dup {
				return fmt.Errorf("%w: player %d listed twice", appErr.ErrInvalidParticipants, p.PlayerID)
			}
			seen[p.PlayerID] = struct{}{}
		}

		if p.BombCount < 0 || (rules.MaxBombs > 0 && p.BombCount > rules.MaxBombs) {
			return fmt.Errorf("%w: participant %d has %d bombs (allowed 0-%d)", appErr.ErrInvalidParticipants, i, p.BombCount, rules.MaxBombs)
		}

		switch p.Call {
		case CallNone, CallSmall:
		case CallGrand:
			if !rules.AllowGrandTichu {
				return fmt.Errorf("%w: participant %d", appErr.ErrGrandTichuDisabled, i)
			}
		default:
			return fmt.Errorf("%w: participant %d has unknown call %q", appErr.ErrInvalidParticipants, i, p.Call)
		}

		if p.Position != nil && (*p.Position < 1 || *p.Position > participantCount) {
			return fmt.Errorf("%w: position %d out of range", appErr.ErrInvalidPositions, *p.Position)
		}
	}

	if perTeam[0] != 2 || perTeam[1] != 2 {
		return fmt.Errorf("%w: each team needs exactly two players", appErr.ErrInvalidParticipants)
	}
	return nil
}

// classifyPositions returns the double-win team (0 for a normal finish).
// Four set positions must be a permutation of 1..4. Two set positions must be 1 and 2,
// both held by one team, and that team wins double. Any other shape is rejected.
func classifyPositions(participants []Participant) (int, error) {
	set := 0
	used := make(map[int]int, participantCount)
	for _, p := range participants {
		if p.Position == nil {
			continue
		}
		set++
		used[*p.Position]++
	}

	switch set {
	case participantCount:
		for rank := 1; rank <= participantCount; rank++ {
			if used[rank] != 1 {
				return 0, fmt.Errorf("%w: positions must be exactly 1, 2, 3 and 4", appErr.ErrInvalidPositions)
			}
		}
		return 0, nil
	case 2:
		if used[1] != 1 || used[2] != 1 {
			return 0, fmt.Errorf("%w: a double win uses exactly positions 1 and 2", appErr.ErrInvalidPositions)
		}
		winner := 0
		for _, p := range participants {
			if p.Position == nil {
				continue
			}
			if winner != 0 && p.Team != winner {
				return 0, fmt.Errorf("%w: positions 1 and 2 are held by different teams", appErr.ErrInvalidPositions)
			}
			winner = p.Team
		}
		return winner, nil
	}
	return 0, fmt.Errorf("%w: %d positions set, expected 4 or a double win", appErr.ErrInvalidPositions, set)
}

func validateRawScores(scores [2]int) error {
	for i, s := range scores {
		if s < minRawScore || s > maxRawScore || s%rawScoreStep != 0 {
			return fmt.Errorf("%w: team %d score %d must be a multiple of %d between %d and %d",
				appErr.ErrInvalidScores, i+1, s, rawScoreStep, minRawScore, maxRawScore)
		}
	}
	if scores[0]+scores[1] != HandPoints {
		return fmt.Errorf("%w: scores %d and %d must add up to %d", appErr.ErrInvalidScores, scores[0], scores[1], HandPoints)
	}
	return nil
}

func copyPosition(pos *int) *int {
	if pos == nil {
		return nil
	}
	v := *pos
	return &v
}
