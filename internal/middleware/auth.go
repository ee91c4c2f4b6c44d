package middleware

import (
	"errors"
	"net/http"
	"strings"

	pkgAuth "tichu-service/pkg/auth"
	"tichu-service/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	ContextTeamIDKey       = "teamID"
	ContextTournamentIDKey = "tournamentID"

	// TeamTokenHeader is what the scoring devices send instead of a bearer header.
	TeamTokenHeader = "team-token"
)

func TeamAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractTeamToken(c.Request)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		claims, err := pkgAuth.ParseTeamToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(ContextTeamIDKey, claims.TeamID)
		c.Set(ContextTournamentIDKey, claims.TournamentID)
		c.Next()
	}
}

// ExtractTeamToken prefers the team-token header. Scoring devices send it next to an
// Authorization header that carries the gateway key, so the bearer value is only a fallback.
func ExtractTeamToken(r *http.Request) (string, error) {
	if token := strings.TrimSpace(r.Header.Get(TeamTokenHeader)); token != "" {
		return token, nil
	}
	if authHeader := strings.TrimSpace(r.Header.Get("Authorization")); authHeader != "" {
		return extractBearerToken(authHeader)
	}
	return "", errors.New("missing team token")
}

func TeamID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextTeamIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id != 0
}

func extractBearerToken(authHeader string) (string, error) {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization header")
	}
	return token, nil
}
