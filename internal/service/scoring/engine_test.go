package scoring_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tichu-service/internal/service/scoring"
	appErr "tichu-service/pkg/errors"
)

func pos(v int) *int { return &v }

// table builds four participants, players 1..4, teams [1,1,2,2].
func table(positions [4]*int, calls [4]scoring.Call) []scoring.Participant {
	out := make([]scoring.Participant, 4)
	for i := range out {
		call := calls[i]
		if call == "" {
			call = scoring.CallNone
		}
		out[i] = scoring.Participant{
			PlayerID: int64(i + 1),
			Team:     i/2 + 1,
			Position: positions[i],
			Call:     call,
		}
	}
	return out
}

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name          string
		positions     [4]*int
		calls         [4]scoring.Call
		raw           [2]int
		wantRaw       [2]int
		wantBonus     [2]int
		wantTotals    [2]int
		wantSuccess   [2]bool
		wantDoubleWin int
	}{
		{
			name:       "plain normal finish",
			positions:  [4]*int{pos(1), pos(2), pos(3), pos(4)},
			raw:        [2]int{70, 30},
			wantRaw:    [2]int{70, 30},
			wantTotals: [2]int{70, 30},
		},
		{
			name:        "successful small tichu",
			positions:   [4]*int{pos(1), pos(3), pos(2), pos(4)},
			calls:       [4]scoring.Call{scoring.CallSmall},
			raw:         [2]int{80, 20},
			wantRaw:     [2]int{80, 20},
			wantBonus:   [2]int{100, 0},
			wantTotals:  [2]int{180, 20},
			wantSuccess: [2]bool{true, false},
		},
		{
			name:          "team B double win forces raw to zero",
			positions:     [4]*int{nil, nil, pos(1), pos(2)},
			raw:           [2]int{60, 40},
			wantBonus:     [2]int{0, 200},
			wantTotals:    [2]int{0, 200},
			wantDoubleWin: scoring.TeamB,
		},
		{
			name:        "failed grand tichu",
			positions:   [4]*int{pos(2), pos(4), pos(1), pos(3)},
			calls:       [4]scoring.Call{scoring.CallGrand},
			raw:         [2]int{45, 55},
			wantRaw:     [2]int{45, 55},
			wantBonus:   [2]int{-200, 0},
			wantTotals:  [2]int{-155, 55},
			wantSuccess: [2]bool{false, false},
		},
		{
			name:          "double win with successful grand and failed opposing small",
			positions:     [4]*int{pos(1), pos(2), nil, nil},
			calls:         [4]scoring.Call{scoring.CallGrand, "", scoring.CallSmall},
			wantBonus:     [2]int{400, -100},
			wantTotals:    [2]int{400, -100},
			wantSuccess:   [2]bool{true, false},
			wantDoubleWin: scoring.TeamA,
		},
		{
			name:        "negative raw score",
			positions:   [4]*int{pos(4), pos(2), pos(1), pos(3)},
			raw:         [2]int{-25, 125},
			wantRaw:     [2]int{-25, 125},
			wantTotals:  [2]int{-25, 125},
			wantSuccess: [2]bool{false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := scoring.Score(scoring.Input{
				Participants: table(tt.positions, tt.calls),
				RawScores:    tt.raw,
			}, scoring.DefaultRules())
			if err != nil {
				t.Fatalf("Score failed: %v", err)
			}
			got := struct {
				Raw, Bonus, Totals [2]int
				Success            [2]bool
				DoubleWin          int
			}{res.RawScores, res.Bonus, res.Totals, res.Success, res.DoubleWinTeam}
			want := struct {
				Raw, Bonus, Totals [2]int
				Success            [2]bool
				DoubleWin          int
			}{tt.wantRaw, tt.wantBonus, tt.wantTotals, tt.wantSuccess, tt.wantDoubleWin}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScoreTotalsFollowFormula(t *testing.T) {
	res, err := scoring.Score(scoring.Input{
		Participants: table([4]*int{pos(3), pos(1), pos(4), pos(2)},
			[4]scoring.Call{scoring.CallSmall, scoring.CallSmall, scoring.CallGrand, ""}),
		RawScores: [2]int{35, 65},
	}, scoring.DefaultRules())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	// player 1 fails small, player 2 makes small, player 3 fails grand
	if res.Bonus != [2]int{0, -200} {
		t.Fatalf("unexpected bonus %v", res.Bonus)
	}
	for i := range res.Totals {
		if res.Totals[i] != res.RawScores[i]+res.Bonus[i] {
			t.Fatalf("team %d total %d != raw %d + bonus %d", i+1, res.Totals[i], res.RawScores[i], res.Bonus[i])
		}
	}
	if !res.Success[0] || res.Success[1] {
		t.Fatalf("unexpected success flags %v", res.Success)
	}
}

func TestScoreParticipantResults(t *testing.T) {
	in := table([4]*int{pos(1), pos(3), pos(2), pos(4)}, [4]scoring.Call{scoring.CallSmall, "", scoring.CallSmall})
	in[3].BombCount = 2
	res, err := scoring.Score(scoring.Input{Participants: in, RawScores: [2]int{50, 50}}, scoring.DefaultRules())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	want := []scoring.ParticipantResult{
		{PlayerID: 1, Team: 1, Position: pos(1), Call: scoring.CallSmall, Success: true},
		{PlayerID: 2, Team: 1, Position: pos(3), Call: scoring.CallNone},
		{PlayerID: 3, Team: 2, Position: pos(2), Call: scoring.CallSmall},
		{PlayerID: 4, Team: 2, Position: pos(4), Call: scoring.CallNone, BombCount: 2},
	}
	if diff := cmp.Diff(want, res.Participants); diff != "" {
		t.Fatalf("participants mismatch (-want +got):\n%s", diff)
	}

	// mutating the input must not leak into the result
	*in[0].Position = 4
	if *res.Participants[0].Position != 1 {
		t.Fatalf("result shares position pointer with input")
	}
}

func TestScoreRejectsInvalidInput(t *testing.T) {
	normal := [4]*int{pos(1), pos(2), pos(3), pos(4)}

	tests := []struct {
		name    string
		mutate  func([]scoring.Participant) []scoring.Participant
		raw     [2]int
		rules   scoring.Rules
		wantErr error
	}{
		{
			name:    "duplicate position",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[3].Position = pos(3); return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name:    "position out of range",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[3].Position = pos(5); return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name:    "three positions set",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[3].Position = nil; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name: "split double win",
			mutate: func(p []scoring.Participant) []scoring.Participant {
				p[0].Position, p[1].Position = pos(1), nil
				p[2].Position, p[3].Position = pos(2), nil
				return p
			},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name: "double win without first place",
			mutate: func(p []scoring.Participant) []scoring.Participant {
				p[0].Position, p[1].Position = pos(2), pos(3)
				p[2].Position, p[3].Position = nil, nil
				return p
			},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name: "no positions",
			mutate: func(p []scoring.Participant) []scoring.Participant {
				for i := range p {
					p[i].Position = nil
				}
				return p
			},
			wantErr: appErr.ErrInvalidPositions,
		},
		{
			name:    "grand tichu disabled",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[2].Call = scoring.CallGrand; return p },
			raw:     [2]int{50, 50},
			rules:   scoring.Rules{AllowGrandTichu: false, MaxBombs: 3},
			wantErr: appErr.ErrGrandTichuDisabled,
		},
		{
			name:    "unknown call",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[1].Call = "MEGA"; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "too many bombs",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[0].BombCount = 4; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "negative bombs",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[0].BombCount = -1; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "three players",
			mutate:  func(p []scoring.Participant) []scoring.Participant { return p[:3] },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "unbalanced teams",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[2].Team = 1; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "duplicate player",
			mutate:  func(p []scoring.Participant) []scoring.Participant { p[1].PlayerID = 1; return p },
			raw:     [2]int{50, 50},
			wantErr: appErr.ErrInvalidParticipants,
		},
		{
			name:    "raw scores do not add up",
			mutate:  func(p []scoring.Participant) []scoring.Participant { return p },
			raw:     [2]int{60, 30},
			wantErr: appErr.ErrInvalidScores,
		},
		{
			name:    "raw score off step",
			mutate:  func(p []scoring.Participant) []scoring.Participant { return p },
			raw:     [2]int{52, 48},
			wantErr: appErr.ErrInvalidScores,
		},
		{
			name:    "raw score out of range",
			mutate:  func(p []scoring.Participant) []scoring.Participant { return p },
			raw:     [2]int{130, -30},
			wantErr: appErr.ErrInvalidScores,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := tt.rules
			if rules == (scoring.Rules{}) {
				rules = scoring.DefaultRules()
			}
			in := tt.mutate(table(normal, [4]scoring.Call{}))
			_, err := scoring.Score(scoring.Input{Participants: in, RawScores: tt.raw}, rules)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	in := scoring.Input{
		Participants: table([4]*int{nil, nil, pos(2), pos(1)}, [4]scoring.Call{"", scoring.CallSmall}),
	}
	first, err := scoring.Score(in, scoring.DefaultRules())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := scoring.Score(in, scoring.DefaultRules())
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated scoring differs:\n%s", diff)
	}
	if first.Totals != [2]int{-100, 200} {
		t.Fatalf("unexpected totals %v", first.Totals)
	}
}

func TestParseCall(t *testing.T) {
	tests := map[string]struct {
		want scoring.Call
		ok   bool
	}{
		"":            {scoring.CallNone, true},
		"none":        {scoring.CallNone, true},
		"SMALL":       {scoring.CallSmall, true},
		"st":          {scoring.CallSmall, true},
		"GT":          {scoring.CallGrand, true},
		" grand ":     {scoring.CallGrand, true},
		"grand_tichu": {scoring.CallGrand, true},
		"bomb":        {"", false},
	}
	for raw, tt := range tests {
		got, ok := scoring.ParseCall(raw)
		if got != tt.want || ok != tt.ok {
			t.Fatalf("ParseCall(%q) = %q, %v; want %q, %v", raw, got, ok, tt.want, tt.ok)
		}
	}
}
