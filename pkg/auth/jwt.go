package auth

import (
	"errors"
	"time"

	"tichu-service/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

const ScopeTeam = "team"

type Claims struct {
	TeamID       int64  `json:"teamId"`
	TournamentID int64  `json:"tournamentId"`
	Scope        string `json:"scope"`
	jwt.RegisteredClaims
}

// GenerateTeamToken issues the token a team's device presents as its team-token.
func GenerateTeamToken(teamID, tournamentID int64) (string, time.Time, error) {
	expireAt := time.Now().Add(time.Duration(config.GlobalConfig.JWT.Expire) * time.Hour)
	claims := Claims{
		TeamID:       teamID,
		TournamentID: tournamentID,
		Scope:        ScopeTeam,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expireAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   ScopeTeam,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.GlobalConfig.JWT.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expireAt, nil
}

func ParseTeamToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.GlobalConfig.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Scope != ScopeTeam || claims.TeamID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
