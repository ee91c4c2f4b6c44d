package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"tichu-service/internal/config"
	"tichu-service/internal/middleware"
	pkgAuth "tichu-service/pkg/auth"

	"github.com/gin-gonic/gin"
)

func TestExtractTeamToken(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
		wantErr bool
	}{
		{"bearer", map[string]string{"Authorization": "Bearer abc"}, "abc", false},
		{"lowercase scheme", map[string]string{"Authorization": "bearer abc"}, "abc", false},
		{"team header", map[string]string{middleware.TeamTokenHeader: "xyz"}, "xyz", false},
		{"team header wins", map[string]string{"Authorization": "Bearer gateway-key", middleware.TeamTokenHeader: "xyz"}, "xyz", false},
		{"team header beside basic auth", map[string]string{"Authorization": "Basic abc", middleware.TeamTokenHeader: "xyz"}, "xyz", false},
		{"basic scheme", map[string]string{"Authorization": "Basic abc"}, "", true},
		{"empty bearer", map[string]string{"Authorization": "Bearer "}, "", true},
		{"missing", nil, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			got, err := middleware.ExtractTeamToken(req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got token %q", got)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("expected %q, got %q (%v)", tc.want, got, err)
			}
		})
	}
}

func TestTeamAuthRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	config.GlobalConfig = &config.Config{JWT: config.JWTConfig{Secret: "mw-secret", Expire: 1}}

	r := gin.New()
	r.Use(middleware.RequestLogger())
	r.GET("/me", middleware.TeamAuthRequired(), func(c *gin.Context) {
		teamID, ok := middleware.TeamID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"teamID": teamID})
	})

	token, _, err := pkgAuth.GenerateTeamToken(7, 3)
	if err != nil {
		t.Fatalf("GenerateTeamToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(middleware.TeamTokenHeader, token)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get(middleware.RequestIDHeader); got != "req-1" {
		t.Fatalf("expected caller request id to be echoed, got %q", got)
	}

	// the gateway key in Authorization must not shadow the team token
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer gateway-anon-key")
	req.Header.Set(middleware.TeamTokenHeader, token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with both headers, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}
}
