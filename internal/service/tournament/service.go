package tournament

import (
	"context"
	"errors"
	"time"

	"tichu-service/internal/config"
	"tichu-service/internal/model"
	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/retry"

	"gorm.io/gorm"
)

type Service struct {
	db           *gorm.DB
	retry        retry.Policy
	storeTimeout time.Duration
}

func NewService(db *gorm.DB) *Service {
	s := &Service{
		db:           db,
		retry:        retry.DefaultPolicy(),
		storeTimeout: 3 * time.Second,
	}
	if config.GlobalConfig != nil {
		mc := config.GlobalConfig.Match
		if mc.StoreTimeout > 0 {
			s.storeTimeout = mc.StoreTimeout
		}
		if mc.RetryAttempts > 0 {
			s.retry.MaxAttempts = mc.RetryAttempts
		}
		if mc.RetryInterval > 0 {
			s.retry.InitialInterval = mc.RetryInterval
			s.retry.MaxInterval = 10 * mc.RetryInterval
		}
	}
	return s
}

// GrandTichuAllowed is a single read; callers wrap it in their own store retry.
func (s *Service) GrandTichuAllowed(ctx context.Context, tournamentID int64) (bool, error) {
	var t model.Tournament
	if err := s.db.WithContext(ctx).Select("id", "allow_grand_tichu").First(&t, tournamentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, appErr.ErrTournamentNotFound
		}
		return false, err
	}
	return t.AllowGrandTichu, nil
}

type MatchReadiness struct {
	MatchID        int64             `json:"matchId"`
	TableNumber    int               `json:"tableNumber"`
	Status         model.MatchStatus `json:"status"`
	TeamAConfirmed bool              `json:"teamAConfirmed"`
	TeamBConfirmed bool              `json:"teamBConfirmed"`
}

type Readiness struct {
	RoundID      int64            `json:"roundId"`
	TournamentID int64            `json:"tournamentId"`
	RoundNumber  int              `json:"roundNumber"`
	Total        int              `json:"total"`
	Confirmed    int              `json:"confirmed"`
	Ready        bool             `json:"ready"`
	Pending      []MatchReadiness `json:"pending"`
}

// RoundReadiness reports which matches of a round still lack a confirmation from either side.
// A round with no matches is never ready.
func (s *Service) RoundReadiness(ctx context.Context, roundID int64) (*Readiness, error) {
	var (
		round   model.Round
		matches []model.Match
	)
	err := retry.Store(ctx, s.retry, s.storeTimeout, func(ctx context.Context) error {
		db := s.db.WithContext(ctx)
		round = model.Round{}
		if err := db.First(&round, roundID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrRoundNotFound
			}
			return err
		}
		matches = matches[:0]
		return db.Where("round_id = ?", roundID).Order("table_number ASC, id ASC").Find(&matches).Error
	})
	if err != nil {
		return nil, err
	}

	out := &Readiness{
		RoundID:      round.ID,
		TournamentID: round.TournamentID,
		RoundNumber:  round.RoundNumber,
		Total:        len(matches),
		Pending:      make([]MatchReadiness, 0),
	}
	for _, m := range matches {
		if m.BothConfirmed() {
			out.Confirmed++
			continue
		}
		out.Pending = append(out.Pending, MatchReadiness{
			MatchID:        m.ID,
			TableNumber:    m.TableNumber,
			Status:         m.Status,
			TeamAConfirmed: m.TeamAConfirmed,
			TeamBConfirmed: m.TeamBConfirmed,
		})
	}
	out.Ready = out.Total > 0 && out.Confirmed == out.Total
	return out, nil
}
