package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tichu-service/internal/config"
	"tichu-service/internal/model"
	"tichu-service/internal/service/scoring"
	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/logger"
	"tichu-service/pkg/retry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Config struct {
	RequiredGames      int
	MaxBombs           int
	StoreTimeout       time.Duration
	LockTTL            time.Duration
	LockWait           time.Duration
	Retry              retry.Policy
	ReadyKeyTTL        time.Duration
	EventChannelPrefix string
}

func defaultConfig() Config {
	return Config{
		RequiredGames:      4,
		MaxBombs:           scoring.DefaultRules().MaxBombs,
		StoreTimeout:       3 * time.Second,
		LockTTL:            5 * time.Second,
		LockWait:           2 * time.Second,
		Retry:              retry.DefaultPolicy(),
		ReadyKeyTTL:        24 * time.Hour,
		EventChannelPrefix: "match:events",
	}
}

// configFromGlobal overlays the loaded application config on the defaults.
func configFromGlobal() Config {
	cfg := defaultConfig()
	if config.GlobalConfig == nil {
		return cfg
	}
	sc := config.GlobalConfig.Scoring
	mc := config.GlobalConfig.Match
	if sc.RequiredGames > 0 {
		cfg.RequiredGames = sc.RequiredGames
	}
	if sc.MaxBombs > 0 {
		cfg.MaxBombs = sc.MaxBombs
	}
	if mc.StoreTimeout > 0 {
		cfg.StoreTimeout = mc.StoreTimeout
	}
	if mc.LockTTL > 0 {
		cfg.LockTTL = mc.LockTTL
	}
	if mc.LockWait > 0 {
		cfg.LockWait = mc.LockWait
	}
	if mc.RetryAttempts > 0 {
		cfg.Retry.MaxAttempts = mc.RetryAttempts
	}
	if mc.RetryInterval > 0 {
		cfg.Retry.InitialInterval = mc.RetryInterval
		cfg.Retry.MaxInterval = 10 * mc.RetryInterval
	}
	if mc.ReadyKeyTTL > 0 {
		cfg.ReadyKeyTTL = mc.ReadyKeyTTL
	}
	if mc.EventChannelPrefix != "" {
		cfg.EventChannelPrefix = mc.EventChannelPrefix
	}
	return cfg
}

// RulesSource answers the per-tournament rule questions scoring depends on.
type RulesSource interface {
	GrandTichuAllowed(ctx context.Context, tournamentID int64) (bool, error)
}

type Service struct {
	db       *gorm.DB
	rules    RulesSource
	cfg      Config
	locker   *locker
	notifier *notifier
}

func NewService(db *gorm.DB, rdb *redis.Client, rules RulesSource) *Service {
	return NewServiceWithConfig(db, rdb, rules, configFromGlobal())
}

func NewServiceWithConfig(db *gorm.DB, rdb *redis.Client, rules RulesSource, cfg Config) *Service {
	return &Service{
		db:       db,
		rules:    rules,
		cfg:      cfg,
		locker:   &locker{rdb: rdb, ttl: cfg.LockTTL, wait: cfg.LockWait},
		notifier: &notifier{rdb: rdb, prefix: cfg.EventChannelPrefix, readyTTL: cfg.ReadyKeyTTL},
	}
}

func (s *Service) MaxBombs() int {
	return s.cfg.MaxBombs
}

// SubmitGame validates and stores a new game or replaces an existing one, then returns the
// derived result exactly as persisted.
func (s *Service) SubmitGame(ctx context.Context, req SubmitGameRequest) (*GameResult, error) {
	if req.MatchID == 0 {
		return nil, appErr.ErrMatchNotFound
	}
	if req.TeamID == 0 {
		return nil, appErr.ErrTeamNotInMatch
	}
	participants, err := toScoringParticipants(req.Participants)
	if err != nil {
		return nil, err
	}

	header, err := s.loadMatch(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	var allowGrand bool
	err = s.run(ctx, func(ctx context.Context) error {
		var err error
		allowGrand, err = s.rules.GrandTichuAllowed(ctx, header.TournamentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	rules := scoring.Rules{AllowGrandTichu: allowGrand, MaxBombs: s.cfg.MaxBombs}

	var (
		result *GameResult
		evt    Event
		pinned int // number resolved by the first attempt of a new game
	)
	err = s.withLockedMatch(ctx, req.MatchID, func(tx *gorm.DB, m *model.Match, opID string) error {
		if m.Side(req.TeamID) == 0 {
			return appErr.ErrTeamNotInMatch
		}
		if err := ensureEditable(m); err != nil {
			return err
		}

		count, err := countGames(tx, m.ID)
		if err != nil {
			return err
		}

		var existing *model.Game
		number := req.GameNumber
		if req.Edit {
			if existing, err = findGame(tx, m.ID, number); err != nil {
				return err
			}
		} else {
			if count >= s.cfg.RequiredGames {
				return appErr.ErrTooManyGames
			}
			if pinned == 0 {
				if number != 0 && number != count+1 {
					return fmt.Errorf("%w: got %d, next is %d", appErr.ErrStaleGameNumber, number, count+1)
				}
				pinned = count + 1
			} else if count+1 != pinned {
				return fmt.Errorf("%w: game %d was taken while retrying", appErr.ErrStaleGameNumber, pinned)
			}
			number = pinned
		}

		res, err := scoring.Score(scoring.Input{
			Participants: participants,
			RawScores:    [2]int{req.TeamAScore, req.TeamBScore},
		}, rules)
		if err != nil {
			return err
		}
		if err := checkRoster(tx, m, participants); err != nil {
			return err
		}
		warnOnClaimedDoubleWin(req, res)

		game := buildGame(m.ID, number, req.TeamID, res)
		if existing != nil {
			game.ID = existing.ID
			game.CreatedAt = existing.CreatedAt
			if err := tx.Where("game_id = ?", existing.ID).Delete(&model.GameParticipant{}).Error; err != nil {
				return err
			}
			if err := tx.Omit(clause.Associations).Save(&game).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Omit(clause.Associations).Create(&game).Error; err != nil {
				return err
			}
			count++
		}

		parts := buildParticipants(game.ID, res)
		if err := tx.Create(&parts).Error; err != nil {
			return err
		}
		game.Participants = parts

		m.Status = nextStatus(m, count, s.cfg.RequiredGames)
		evt, err = s.commitMutation(tx, m, opID, req.TeamID, EventGameSubmitted, count, number, map[string]interface{}{
			"gameNumber":    number,
			"edit":          existing != nil,
			"teamATotal":    game.TeamATotal,
			"teamBTotal":    game.TeamBTotal,
			"doubleWinTeam": res.DoubleWinTeam,
		})
		if err != nil {
			return err
		}

		result = &GameResult{
			GameNumber:   number,
			TeamATotal:   game.TeamATotal,
			TeamBTotal:   game.TeamBTotal,
			TeamASuccess: game.TeamASuccess,
			TeamBSuccess: game.TeamBSuccess,
			Game:         game,
		}
		if res.DoubleWinTeam != 0 {
			team := res.DoubleWinTeam
			result.DoubleWinTeam = &team
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.publish(ctx, evt)
	logger.Log.Info("game submitted",
		zap.Int64("matchID", req.MatchID),
		zap.Int64("teamID", req.TeamID),
		zap.Int("gameNumber", result.GameNumber),
		zap.Bool("edit", req.Edit),
		zap.Int("teamATotal", result.TeamATotal),
		zap.Int("teamBTotal", result.TeamBTotal),
	)
	return result, nil
}

// DeleteGame removes one game and shifts the later ones down so numbering stays 1..n.
func (s *Service) DeleteGame(ctx context.Context, matchID, teamID int64, gameNumber int) error {
	var (
		evt      Event
		targetID int64 // row chosen by the first attempt
	)
	err := s.withLockedMatch(ctx, matchID, func(tx *gorm.DB, m *model.Match, opID string) error {
		if m.Side(teamID) == 0 {
			return appErr.ErrTeamNotInMatch
		}
		if err := ensureEditable(m); err != nil {
			return err
		}

		game, err := findGame(tx, m.ID, gameNumber)
		if err != nil {
			return err
		}
		if targetID == 0 {
			targetID = game.ID
		} else if game.ID != targetID {
			return fmt.Errorf("%w: game %d changed while retrying", appErr.ErrStaleGameNumber, gameNumber)
		}
		if err := tx.Where("game_id = ?", game.ID).Delete(&model.GameParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Game{}, game.ID).Error; err != nil {
			return err
		}

		var later []model.Game
		if err := tx.Where("match_id = ? AND game_number > ?", m.ID, gameNumber).
			Order("game_number ASC").
			Find(&later).Error; err != nil {
			return err
		}
		for _, g := range later {
			if err := tx.Model(&model.Game{}).Where("id = ?", g.ID).
				Update("game_number", g.GameNumber-1).Error; err != nil {
				return err
			}
		}

		count, err := countGames(tx, m.ID)
		if err != nil {
			return err
		}
		m.Status = nextStatus(m, count, s.cfg.RequiredGames)
		evt, err = s.commitMutation(tx, m, opID, teamID, EventGameDeleted, count, gameNumber, map[string]interface{}{
			"gameNumber": gameNumber,
			"renumbered": len(later),
		})
		return err
	})
	if err != nil {
		return err
	}

	s.notifier.publish(ctx, evt)
	logger.Log.Info("game deleted",
		zap.Int64("matchID", matchID),
		zap.Int64("teamID", teamID),
		zap.Int("gameNumber", gameNumber),
	)
	return nil
}

// Confirm records that teamID accepts the full set of games.
func (s *Service) Confirm(ctx context.Context, matchID, teamID int64) (*MatchState, error) {
	var evt Event
	err := s.withLockedMatch(ctx, matchID, func(tx *gorm.DB, m *model.Match, opID string) error {
		side := m.Side(teamID)
		if side == 0 {
			return appErr.ErrTeamNotInMatch
		}
		count, err := countGames(tx, m.ID)
		if err != nil {
			return err
		}
		if count != s.cfg.RequiredGames {
			return fmt.Errorf("%w: %d of %d games", appErr.ErrIncompleteMatch, count, s.cfg.RequiredGames)
		}
		if m.Confirmed(side) {
			return appErr.ErrAlreadyConfirmed
		}

		setConfirmation(m, side, true, time.Now())
		evt, err = s.commitMutation(tx, m, opID, teamID, EventMatchConfirmed, count, 0, map[string]interface{}{
			"side": side,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.publish(ctx, evt)
	logger.Log.Info("match confirmed",
		zap.Int64("matchID", matchID),
		zap.Int64("teamID", teamID),
		zap.Bool("bothConfirmed", evt.TeamAConfirmed && evt.TeamBConfirmed),
	)
	return s.GetMatchState(ctx, matchID)
}

// RetractConfirmation clears teamID's flag. Once no flag is left the games are editable again.
func (s *Service) RetractConfirmation(ctx context.Context, matchID, teamID int64) (*MatchState, error) {
	var evt Event
	err := s.withLockedMatch(ctx, matchID, func(tx *gorm.DB, m *model.Match, opID string) error {
		side := m.Side(teamID)
		if side == 0 {
			return appErr.ErrTeamNotInMatch
		}
		if m.Status == model.MatchStatusCompleted {
			return appErr.ErrMatchLocked
		}
		if !m.Confirmed(side) {
			return appErr.ErrNotConfirmed
		}
		count, err := countGames(tx, m.ID)
		if err != nil {
			return err
		}

		setConfirmation(m, side, false, time.Time{})
		evt, err = s.commitMutation(tx, m, opID, teamID, EventConfirmationRetracted, count, 0, map[string]interface{}{
			"side": side,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.publish(ctx, evt)
	logger.Log.Info("match confirmation retracted",
		zap.Int64("matchID", matchID),
		zap.Int64("teamID", teamID),
	)
	return s.GetMatchState(ctx, matchID)
}

func (s *Service) GetMatchState(ctx context.Context, matchID int64) (*MatchState, error) {
	var state *MatchState
	err := s.run(ctx, func(ctx context.Context) error {
		var m model.Match
		if err := s.db.WithContext(ctx).First(&m, matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrMatchNotFound
			}
			return err
		}
		games, err := loadGames(s.db.WithContext(ctx), matchID)
		if err != nil {
			return err
		}
		state = buildState(m, games, s.cfg.RequiredGames)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Service) ListGames(ctx context.Context, matchID int64) ([]model.Game, error) {
	if _, err := s.loadMatch(ctx, matchID); err != nil {
		return nil, err
	}
	var games []model.Game
	err := s.run(ctx, func(ctx context.Context) error {
		var err error
		games, err = loadGames(s.db.WithContext(ctx), matchID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return games, nil
}

// Subscribe opens a pub/sub subscription to the match's event channel. Callers close it.
func (s *Service) Subscribe(ctx context.Context, matchID int64) *redis.PubSub {
	return s.notifier.subscribe(ctx, matchID)
}

func (s *Service) run(ctx context.Context, op func(ctx context.Context) error) error {
	return retry.Store(ctx, s.cfg.Retry, s.cfg.StoreTimeout, op)
}

// withLockedMatch serializes fn against every other mutation of the same match: the redis
// lock keeps writers apart across instances and the row lock guards the transaction itself.
//
// Every attempt of one call shares opID, which commitMutation records on the audit event. When
// an attempt committed but its acknowledgement was lost, the next attempt finds that event and
// stops without running fn again; fn's outputs from the committed attempt stay in place.
func (s *Service) withLockedMatch(ctx context.Context, matchID int64, fn func(tx *gorm.DB, m *model.Match, opID string) error) error {
	if matchID == 0 {
		return appErr.ErrMatchNotFound
	}
	opID := uuid.NewString()
	return s.run(ctx, func(ctx context.Context) error {
		unlock, err := s.locker.acquire(ctx, matchID)
		if err != nil {
			return err
		}
		defer unlock()

		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var m model.Match
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, matchID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return appErr.ErrMatchNotFound
				}
				return err
			}

			applied, err := findAppliedEvent(tx, matchID, opID)
			if err != nil {
				return err
			}
			if applied != nil {
				logger.Log.Warn("mutation already committed, not applying again",
					zap.Int64("matchID", matchID),
					zap.String("type", applied.Type),
					zap.Int64("version", applied.Version),
				)
				return nil
			}
			return fn(tx, &m, opID)
		})
	})
}

func findAppliedEvent(tx *gorm.DB, matchID int64, opID string) (*model.MatchEvent, error) {
	var events []model.MatchEvent
	if err := tx.Where("match_id = ? AND op_id = ?", matchID, opID).Limit(1).Find(&events).Error; err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

func (s *Service) loadMatch(ctx context.Context, matchID int64) (*model.Match, error) {
	var m model.Match
	err := s.run(ctx, func(ctx context.Context) error {
		if err := s.db.WithContext(ctx).First(&m, matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appErr.ErrMatchNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// commitMutation bumps the version, saves the match row and appends the audit event.
func (s *Service) commitMutation(tx *gorm.DB, m *model.Match, opID string, teamID int64, eventType string, gameCount, gameNumber int, payload map[string]interface{}) (Event, error) {
	m.Version++
	if err := tx.Save(m).Error; err != nil {
		return Event{}, err
	}

	record := model.MatchEvent{
		MatchID:     m.ID,
		TeamID:      teamID,
		OpID:        opID,
		Type:        eventType,
		Version:     m.Version,
		PayloadJSON: mustJSON(payload),
	}
	if err := tx.Create(&record).Error; err != nil {
		return Event{}, err
	}

	return Event{
		Type:           eventType,
		MatchID:        m.ID,
		TeamID:         teamID,
		Version:        m.Version,
		Status:         m.Status,
		GameNumber:     gameNumber,
		GameCount:      gameCount,
		TeamAConfirmed: m.TeamAConfirmed,
		TeamBConfirmed: m.TeamBConfirmed,
		At:             record.CreatedAt,
	}, nil
}

func ensureEditable(m *model.Match) error {
	if m.Status == model.MatchStatusCompleted {
		return fmt.Errorf("%w: match is completed", appErr.ErrMatchLocked)
	}
	if m.AnyConfirmed() {
		return fmt.Errorf("%w: a team has confirmed", appErr.ErrMatchLocked)
	}
	return nil
}

func nextStatus(m *model.Match, count, required int) model.MatchStatus {
	switch {
	case count >= required:
		return model.MatchStatusConfirming
	case count == 0 && m.Status == model.MatchStatusPending:
		return model.MatchStatusPending
	}
	return model.MatchStatusPlaying
}

func setConfirmation(m *model.Match, side int, confirmed bool, at time.Time) {
	var stamp *time.Time
	if confirmed {
		stamp = &at
	}
	if side == 1 {
		m.TeamAConfirmed = confirmed
		m.TeamAConfirmedAt = stamp
		return
	}
	m.TeamBConfirmed = confirmed
	m.TeamBConfirmedAt = stamp
}

func countGames(tx *gorm.DB, matchID int64) (int, error) {
	var count int64
	if err := tx.Model(&model.Game{}).Where("match_id = ?", matchID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

func findGame(tx *gorm.DB, matchID int64, number int) (*model.Game, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: game number %d", appErr.ErrGameNotFound, number)
	}
	var game model.Game
	if err := tx.Where("match_id = ? AND game_number = ?", matchID, number).First(&game).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: game number %d", appErr.ErrGameNotFound, number)
		}
		return nil, err
	}
	return &game, nil
}

func loadGames(db *gorm.DB, matchID int64) ([]model.Game, error) {
	var games []model.Game
	err := db.Where("match_id = ?", matchID).
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("seat ASC")
		}).
		Order("game_number ASC").
		Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// checkRoster requires every participant to be one of the two registered players of the
// side they are listed under.
func checkRoster(tx *gorm.DB, m *model.Match, participants []scoring.Participant) error {
	var teams []model.Team
	if err := tx.Where("id IN ?", []int64{m.TeamAID, m.TeamBID}).Find(&teams).Error; err != nil {
		return err
	}
	byID := make(map[int64]model.Team, len(teams))
	for _, t := range teams {
		byID[t.ID] = t
	}

	for _, p := range participants {
		teamID := m.TeamAID
		if p.Team == scoring.TeamB {
			teamID = m.TeamBID
		}
		team, ok := byID[teamID]
		if !ok {
			return fmt.Errorf("%w: team %d has no roster", appErr.ErrInvalidParticipants, teamID)
		}
		if !team.HasPlayer(p.PlayerID) {
			return fmt.Errorf("%w: player %d does not play for team %d", appErr.ErrInvalidParticipants, p.PlayerID, teamID)
		}
	}
	return nil
}

func toScoringParticipants(in []ParticipantInput) ([]scoring.Participant, error) {
	out := make([]scoring.Participant, 0, len(in))
	for i, p := range in {
		call, ok := scoring.ParseCall(p.TichuCall)
		if !ok {
			return nil, fmt.Errorf("%w: participant %d has unknown call %q", appErr.ErrInvalidParticipants, i, p.TichuCall)
		}
		out = append(out, scoring.Participant{
			PlayerID:  p.PlayerID,
			Team:      p.Team,
			Position:  p.Position,
			Call:      call,
			BombCount: p.BombCount,
		})
	}
	return out, nil
}

// warnOnClaimedDoubleWin logs when the client's double-win flags disagree with what the
// positions say. The flags are never used for scoring.
func warnOnClaimedDoubleWin(req SubmitGameRequest, res *scoring.Result) {
	if req.TeamADoubleWin == res.DoubleWin(scoring.TeamA) && req.TeamBDoubleWin == res.DoubleWin(scoring.TeamB) {
		return
	}
	logger.Log.Warn("client double-win flags disagree with positions",
		zap.Int64("matchID", req.MatchID),
		zap.Int64("teamID", req.TeamID),
		zap.Bool("teamAClaimed", req.TeamADoubleWin),
		zap.Bool("teamBClaimed", req.TeamBDoubleWin),
		zap.Int("derivedTeam", res.DoubleWinTeam),
	)
}

func buildGame(matchID int64, number int, submittedBy int64, res *scoring.Result) model.Game {
	return model.Game{
		MatchID:        matchID,
		GameNumber:     number,
		TeamAScore:     res.RawScores[0],
		TeamBScore:     res.RawScores[1],
		TeamABonus:     res.Bonus[0],
		TeamBBonus:     res.Bonus[1],
		TeamATotal:     res.Totals[0],
		TeamBTotal:     res.Totals[1],
		TeamADoubleWin: res.DoubleWin(scoring.TeamA),
		TeamBDoubleWin: res.DoubleWin(scoring.TeamB),
		TeamASuccess:   res.Success[0],
		TeamBSuccess:   res.Success[1],
		SubmittedBy:    submittedBy,
	}
}

func buildParticipants(gameID int64, res *scoring.Result) []model.GameParticipant {
	parts := make([]model.GameParticipant, 0, len(res.Participants))
	for seat, p := range res.Participants {
		parts = append(parts, model.GameParticipant{
			GameID:      gameID,
			Seat:        seat,
			PlayerID:    p.PlayerID,
			Team:        p.Team,
			Position:    p.Position,
			TichuCall:   string(p.Call),
			CallSuccess: p.Success,
			BombCount:   p.BombCount,
		})
	}
	return parts
}

func buildState(m model.Match, games []model.Game, required int) *MatchState {
	state := &MatchState{
		Match:           m,
		Games:           games,
		GameCount:       len(games),
		RequiredGames:   required,
		CanEdit:         m.Status != model.MatchStatusCompleted && !m.AnyConfirmed(),
		ReadyToFinalize: m.BothConfirmed() && len(games) == required,
	}

	switch {
	case m.Status == model.MatchStatusCompleted:
		state.State = StateCompleted
	case m.BothConfirmed():
		state.State = StateBothConfirmed
	case m.AnyConfirmed():
		state.State = StateSingleConfirmed
	case len(games) >= required:
		state.State = StateEntryComplete
	default:
		state.State = StateOpen
	}

	state.Summary.Running = make([]RunningTotal, 0, len(games))
	for _, g := range games {
		state.Summary.TeamATotal += g.TeamATotal
		state.Summary.TeamBTotal += g.TeamBTotal
		state.Summary.Running = append(state.Summary.Running, RunningTotal{
			GameNumber: g.GameNumber,
			TeamA:      state.Summary.TeamATotal,
			TeamB:      state.Summary.TeamBTotal,
		})
	}
	switch {
	case state.Summary.TeamATotal > state.Summary.TeamBTotal:
		state.Summary.Leader = m.TeamAID
	case state.Summary.TeamBTotal > state.Summary.TeamATotal:
		state.Summary.Leader = m.TeamBID
	}
	return state
}

func mustJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return datatypes.JSON("{}")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}
