package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tichu-service/internal/model"
	pkgAuth "tichu-service/pkg/auth"
	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/logger"
	"tichu-service/pkg/utils/random"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Service struct {
	db          *gorm.DB
	rdb         *redis.Client
	maxFailures int64
	failWindow  time.Duration
}

type LoginResult struct {
	Token    string     `json:"token"`
	ExpireAt time.Time  `json:"expireAt"`
	Team     model.Team `json:"team"`
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		db:          db,
		rdb:         rdb,
		maxFailures: 5,
		failWindow:  5 * time.Minute,
	}
}

// TeamLogin exchanges a team's access code for a team-scoped token.
func (s *Service) TeamLogin(ctx context.Context, teamID int64, accessCode string) (*LoginResult, error) {
	accessCode = strings.TrimSpace(accessCode)
	if teamID == 0 || accessCode == "" {
		return nil, appErr.ErrInvalidAccessCode
	}

	failKey := buildLoginFailKey(teamID)
	failures, err := s.rdb.Get(ctx, failKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", appErr.ErrStoreUnavailable, err)
	}
	if failures >= s.maxFailures {
		return nil, appErr.ErrLoginThrottled
	}

	var team model.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appErr.ErrTeamNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(team.AccessCodeHash), []byte(accessCode)); err != nil {
		s.recordFailure(ctx, teamID)
		return nil, appErr.ErrInvalidAccessCode
	}
	s.rdb.Del(ctx, failKey)

	token, expireAt, err := pkgAuth.GenerateTeamToken(team.ID, team.TournamentID)
	if err != nil {
		return nil, err
	}

	logger.Log.Info("team logged in",
		zap.Int64("teamID", team.ID),
		zap.Int64("tournamentID", team.TournamentID),
	)
	return &LoginResult{
		Token:    token,
		ExpireAt: expireAt,
		Team:     team,
	}, nil
}

func (s *Service) recordFailure(ctx context.Context, teamID int64) {
	key := buildLoginFailKey(teamID)
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.failWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.Log.Warn("record login failure failed",
			zap.Int64("teamID", teamID),
			zap.Error(err),
		)
	}
}

const accessCodeLength = 8

// ResetAccessCode issues a fresh access code for the team and returns it in clear text. The
// previous code stops working and any login throttle on the team is lifted.
func (s *Service) ResetAccessCode(ctx context.Context, teamID int64) (string, error) {
	code, err := random.AccessCode(accessCodeLength)
	if err != nil {
		return "", err
	}
	hash, err := HashAccessCode(code)
	if err != nil {
		return "", err
	}

	res := s.db.WithContext(ctx).Model(&model.Team{}).Where("id = ?", teamID).Update("access_code_hash", hash)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", appErr.ErrTeamNotFound
	}
	if err := s.rdb.Del(ctx, buildLoginFailKey(teamID)).Err(); err != nil {
		logger.Log.Warn("clear login failures failed", zap.Int64("teamID", teamID), zap.Error(err))
	}

	logger.Log.Info("team access code reset", zap.Int64("teamID", teamID))
	return code, nil
}

// HashAccessCode produces the value stored in Team.AccessCodeHash.
func HashAccessCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(code)), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func buildLoginFailKey(teamID int64) string {
	return fmt.Sprintf("auth:team:fail:%d", teamID)
}
