package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"tichu-service/internal/middleware"
	"tichu-service/internal/service"
	"tichu-service/internal/service/match"
	"tichu-service/internal/service/scoring"
	"tichu-service/internal/ws"
	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Match)

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	v1 := r.Group("/tichu/v1")
	{
		v1.POST("/auth/team/login", handler.TeamLogin)
		v1.POST("/scoring/preview", handler.PreviewScore)

		v1.GET("/matches/:id", handler.GetMatch)
		v1.GET("/matches/:id/games", handler.ListGames)
		v1.GET("/rounds/:id/readiness", handler.RoundReadiness)

		teamGroup := v1.Group("/matches/:id")
		teamGroup.Use(middleware.TeamAuthRequired())
		{
			teamGroup.POST("/games", handler.SubmitGame)
			teamGroup.DELETE("/games/:number", handler.DeleteGame)
			teamGroup.POST("/confirm", handler.ConfirmMatch)
		}

		v1.GET("/ws/match/:id", wsHandler.HandleMatchWS)
	}
}

type teamLoginBody struct {
	TeamID     int64  `json:"teamId" binding:"required,min=1"`
	AccessCode string `json:"accessCode" binding:"required"`
}

// Shape checks stay with the scoring engine so clients get its specific errors.
type participantBody struct {
	PlayerID  int64  `json:"playerId"`
	Team      int    `json:"team"`
	Position  *int   `json:"position"`
	TichuCall string `json:"tichuCall"`
	BombCount int    `json:"bombCount"`
}

type submitGameBody struct {
	GameNumber     int               `json:"gameNumber"`
	Edit           bool              `json:"edit"`
	Participants   []participantBody `json:"participants" binding:"required"`
	TeamAScore     int               `json:"teamAScore"`
	TeamBScore     int               `json:"teamBScore"`
	TeamADoubleWin bool              `json:"teamADoubleWin"`
	TeamBDoubleWin bool              `json:"teamBDoubleWin"`
}

func (b submitGameBody) participants() []match.ParticipantInput {
	out := make([]match.ParticipantInput, 0, len(b.Participants))
	for _, p := range b.Participants {
		out = append(out, match.ParticipantInput{
			PlayerID:  p.PlayerID,
			Team:      p.Team,
			Position:  p.Position,
			TichuCall: p.TichuCall,
			BombCount: p.BombCount,
		})
	}
	return out
}

type previewBody struct {
	Participants    []participantBody `json:"participants" binding:"required"`
	TeamAScore      int               `json:"teamAScore"`
	TeamBScore      int               `json:"teamBScore"`
	AllowGrandTichu *bool             `json:"allowGrandTichu"`
}

type confirmBody struct {
	Unconfirm bool `json:"unconfirm"`
}

func (h *Handler) TeamLogin(c *gin.Context) {
	var body teamLoginBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.services.Auth.TeamLogin(c.Request.Context(), body.TeamID, body.AccessCode)
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrTeamNotFound), errors.Is(err, appErr.ErrInvalidAccessCode):
			response.Error(c, http.StatusUnauthorized, appErr.ErrInvalidAccessCode.Error())
		default:
			handleServiceError(c, err)
		}
		return
	}

	response.Success(c, resp)
}

func (h *Handler) PreviewScore(c *gin.Context) {
	var body previewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	rules := scoring.DefaultRules()
	if body.AllowGrandTichu != nil {
		rules.AllowGrandTichu = *body.AllowGrandTichu
	}
	if limit := h.services.Match.MaxBombs(); limit > 0 {
		rules.MaxBombs = limit
	}

	participants := make([]scoring.Participant, 0, len(body.Participants))
	for i, p := range body.Participants {
		call, ok := scoring.ParseCall(p.TichuCall)
		if !ok {
			handleServiceError(c, fmt.Errorf("%w: participant %d has unknown call %q", appErr.ErrInvalidParticipants, i, p.TichuCall))
			return
		}
		participants = append(participants, scoring.Participant{
			PlayerID:  p.PlayerID,
			Team:      p.Team,
			Position:  p.Position,
			Call:      call,
			BombCount: p.BombCount,
		})
	}

	result, err := scoring.Score(scoring.Input{
		Participants: participants,
		RawScores:    [2]int{body.TeamAScore, body.TeamBScore},
	}, rules)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) GetMatch(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	state, err := h.services.Match.GetMatchState(c.Request.Context(), matchID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, state)
}

func (h *Handler) ListGames(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	games, err := h.services.Match.ListGames(c.Request.Context(), matchID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"games": games})
}

func (h *Handler) SubmitGame(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	teamID, ok := middleware.TeamID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body submitGameBody
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Match.SubmitGame(c.Request.Context(), match.SubmitGameRequest{
		MatchID:        matchID,
		TeamID:         teamID,
		GameNumber:     body.GameNumber,
		Edit:           body.Edit,
		Participants:   body.participants(),
		TeamAScore:     body.TeamAScore,
		TeamBScore:     body.TeamBScore,
		TeamADoubleWin: body.TeamADoubleWin,
		TeamBDoubleWin: body.TeamBDoubleWin,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *Handler) DeleteGame(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil || number <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid game number")
		return
	}
	teamID, ok := middleware.TeamID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.services.Match.DeleteGame(c.Request.Context(), matchID, teamID, number); err != nil {
		handleServiceError(c, err)
		return
	}
	response.SuccessWithMsg(c, gin.H{"deleted": number}, "game deleted")
}

func (h *Handler) ConfirmMatch(c *gin.Context) {
	matchID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	teamID, ok := middleware.TeamID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	var (
		state *match.MatchState
		err   error
	)
	if body.Unconfirm {
		state, err = h.services.Match.RetractConfirmation(c.Request.Context(), matchID, teamID)
	} else {
		state, err = h.services.Match.Confirm(c.Request.Context(), matchID, teamID)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, state)
}

func (h *Handler) RoundReadiness(c *gin.Context) {
	roundID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	readiness, err := h.services.Tournament.RoundReadiness(c.Request.Context(), roundID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	response.Success(c, readiness)
}

// handleServiceError maps the error taxonomy onto HTTP statuses. Only store failures are
// flagged retryable.
func handleServiceError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case appErr.IsValidation(err):
		response.Error(c, http.StatusUnprocessableEntity, err.Error())
	case appErr.IsConflict(err):
		response.Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, appErr.ErrTeamNotInMatch):
		response.Error(c, http.StatusForbidden, err.Error())
	case appErr.IsNotFound(err), errors.Is(err, appErr.ErrTeamNotFound):
		response.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appErr.ErrUnauthorized), errors.Is(err, appErr.ErrInvalidAccessCode):
		response.Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, appErr.ErrLoginThrottled):
		response.Error(c, http.StatusTooManyRequests, err.Error())
	case appErr.IsRetryable(err):
		response.RetryableError(c, http.StatusServiceUnavailable, appErr.ErrStoreUnavailable.Error())
	default:
		response.Error(c, http.StatusInternalServerError, "internal error")
	}
}

func parseIDParam(c *gin.Context, key string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(key), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return id, true
}
