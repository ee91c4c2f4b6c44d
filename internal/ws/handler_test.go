package ws_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tichu-service/internal/config"
	"tichu-service/internal/model"
	"tichu-service/internal/service/match"
	"tichu-service/internal/service/tournament"
	"tichu-service/internal/ws"
	pkgAuth "tichu-service/pkg/auth"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type wsEnv struct {
	server *httptest.Server
	svc    *match.Service
	match  *model.Match
	teamA  *model.Team
	other  *model.Team
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func newWSEnv(t *testing.T) *wsEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	config.GlobalConfig = &config.Config{
		JWT: config.JWTConfig{Secret: "ws-secret", Expire: 1},
	}

	tour := &model.Tournament{Name: "Spring Open", AllowGrandTichu: true}
	if err := db.Create(tour).Error; err != nil {
		t.Fatalf("failed to insert tournament: %v", err)
	}
	teamA := &model.Team{TournamentID: tour.ID, Name: "Dragons", Player1ID: 1, Player2ID: 2, AccessCodeHash: "x"}
	teamB := &model.Team{TournamentID: tour.ID, Name: "Phoenix", Player1ID: 3, Player2ID: 4, AccessCodeHash: "x"}
	other := &model.Team{TournamentID: tour.ID, Name: "Dogs", Player1ID: 5, Player2ID: 6, AccessCodeHash: "x"}
	for _, team := range []*model.Team{teamA, teamB, other} {
		if err := db.Create(team).Error; err != nil {
			t.Fatalf("failed to insert team: %v", err)
		}
	}
	m := &model.Match{TournamentID: tour.ID, RoundID: 1, TableNumber: 1, TeamAID: teamA.ID, TeamBID: teamB.ID, Status: model.MatchStatusPending}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to insert match: %v", err)
	}

	svc := match.NewService(db, rdb, tournament.NewService(db))
	r := gin.New()
	r.GET("/ws/match/:id", ws.NewHandler(svc).HandleMatchWS)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &wsEnv{server: server, svc: svc, match: m, teamA: teamA, other: other}
}

func (e *wsEnv) url(matchID int64, token string) string {
	u := fmt.Sprintf("ws%s/ws/match/%d", strings.TrimPrefix(e.server.URL, "http"), matchID)
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func teamToken(t *testing.T, team *model.Team) string {
	t.Helper()
	token, _, err := pkgAuth.GenerateTeamToken(team.ID, team.TournamentID)
	if err != nil {
		t.Fatalf("GenerateTeamToken failed: %v", err)
	}
	return token
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	return f
}

func TestMatchSocketRelaysEvents(t *testing.T) {
	e := newWSEnv(t)

	conn, _, err := websocket.DefaultDialer.Dial(e.url(e.match.ID, teamToken(t, e.teamA)), nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	first := readFrame(t, conn)
	if first.Type != "state" {
		t.Fatalf("expected initial state frame, got %q", first.Type)
	}
	var state match.MatchState
	if err := json.Unmarshal(first.Data, &state); err != nil {
		t.Fatalf("bad state frame: %v", err)
	}
	if state.Match.ID != e.match.ID || state.GameCount != 0 || state.State != match.StateOpen {
		t.Fatalf("unexpected initial state %+v", state)
	}

	pos := func(v int) *int { return &v }
	parts := make([]match.ParticipantInput, 4)
	for i := range parts {
		parts[i] = match.ParticipantInput{PlayerID: int64(i + 1), Team: i/2 + 1, Position: pos(i + 1)}
	}
	_, err = e.svc.SubmitGame(context.Background(), match.SubmitGameRequest{
		MatchID:      e.match.ID,
		TeamID:       e.teamA.ID,
		Participants: parts,
		TeamAScore:   70,
		TeamBScore:   30,
	})
	if err != nil {
		t.Fatalf("SubmitGame failed: %v", err)
	}

	next := readFrame(t, conn)
	if next.Type != "event" {
		t.Fatalf("expected event frame, got %q", next.Type)
	}
	var evt match.Event
	if err := json.Unmarshal(next.Data, &evt); err != nil {
		t.Fatalf("bad event frame: %v", err)
	}
	if evt.Type != match.EventGameSubmitted || evt.MatchID != e.match.ID || evt.GameNumber != 1 {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestMatchSocketRejectsBeforeUpgrade(t *testing.T) {
	e := newWSEnv(t)

	cases := []struct {
		name string
		url  string
		want int
	}{
		{"missing token", e.url(e.match.ID, ""), http.StatusUnauthorized},
		{"bad token", e.url(e.match.ID, "nope"), http.StatusUnauthorized},
		{"outsider team", e.url(e.match.ID, teamToken(t, e.other)), http.StatusForbidden},
		{"unknown match", e.url(999, teamToken(t, e.teamA)), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conn, resp, err := websocket.DefaultDialer.Dial(tc.url, nil)
			if err == nil {
				conn.Close()
				t.Fatalf("expected the upgrade to be refused")
			}
			if resp == nil || resp.StatusCode != tc.want {
				t.Fatalf("expected status %d, got %v (%v)", tc.want, resp, err)
			}
		})
	}
}
