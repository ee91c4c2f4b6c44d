package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tichu-service/internal/middleware"
	"tichu-service/internal/service/match"
	pkgAuth "tichu-service/pkg/auth"
	appErr "tichu-service/pkg/errors"
	"tichu-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	matchSvc *match.Service
}

func NewHandler(matchSvc *match.Service) *Handler {
	return &Handler{matchSvc: matchSvc}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // scoring devices connect from any origin
	},
}

// Frame is one message pushed to a connected team.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (h *Handler) HandleMatchWS(c *gin.Context) {
	matchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || matchID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match id"})
		return
	}

	token, err := getTokenFromRequest(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	claims, err := pkgAuth.ParseTeamToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	teamID := claims.TeamID

	state, err := h.matchSvc.GetMatchState(c.Request.Context(), matchID)
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		case appErr.IsRetryable(err):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store unavailable", "retryable": true})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load match"})
		}
		return
	}
	if state.Match.Side(teamID) == 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": appErr.ErrTeamNotInMatch.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection",
		zap.Int64("matchID", matchID),
		zap.Int64("teamID", teamID),
	)

	ctx, cancel := context.WithCancel(context.WithoutCancel(c.Request.Context()))
	defer cancel()
	sub := h.matchSvc.Subscribe(ctx, matchID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		logger.Log.Warn("match event subscription failed", zap.Int64("matchID", matchID), zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "events unavailable"),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	client := newClient(conn, teamID, matchID, sub.Channel())
	client.safeWrite(Frame{Type: "state", Data: state})
	client.run()
}

func getTokenFromRequest(c *gin.Context) (string, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token != "" {
		return token, nil
	}
	token, err := middleware.ExtractTeamToken(c.Request)
	if err != nil {
		return "", errors.New("missing token")
	}
	return token, nil
}

type client struct {
	conn      *websocket.Conn
	teamID    int64
	matchID   int64
	events    <-chan *redis.Message
	done      chan struct{}
	pingEvery time.Duration
}

func newClient(conn *websocket.Conn, teamID, matchID int64, events <-chan *redis.Message) *client {
	conn.SetReadLimit(1 << 16)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	return &client{
		conn:      conn,
		teamID:    teamID,
		matchID:   matchID,
		events:    events,
		done:      make(chan struct{}),
		pingEvery: 25 * time.Second,
	}
}

// run blocks until the socket closes. The read side only drains control frames; teams
// mutate matches over HTTP.
func (c *client) run() {
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			logger.Log.Info("WS read error", zap.Error(err), zap.Int64("teamID", c.teamID), zap.Int64("matchID", c.matchID))
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.events:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(Frame{Type: "event", Data: json.RawMessage(msg.Payload)}); err != nil {
				logger.Log.Info("WS write error", zap.Error(err), zap.Int64("teamID", c.teamID), zap.Int64("matchID", c.matchID))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) safeWrite(msg Frame) {
	if err := c.conn.WriteJSON(msg); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.Int64("teamID", c.teamID), zap.Int64("matchID", c.matchID))
	}
}
