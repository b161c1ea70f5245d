package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todoapp/todo-reminder-api/internal/config"
	"github.com/todoapp/todo-reminder-api/internal/constants"
	"github.com/todoapp/todo-reminder-api/internal/dto"
	"github.com/todoapp/todo-reminder-api/internal/handlers"
	"github.com/todoapp/todo-reminder-api/internal/mailer"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"github.com/todoapp/todo-reminder-api/internal/services"
	"github.com/todoapp/todo-reminder-api/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	db := testutil.NewSQLiteDB(t)
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	tokens := services.NewTokenService("router-test-secret", time.Hour)

	dispatcher := mailer.NewDispatcher(&mailer.LogTransport{Log: log}, "reminders@example.com", "Todo App Reminder", time.UTC, log)
	h := Handlers{
		Auth:     handlers.NewAuthHandler(services.NewAuthService(userRepo, tokens, bcrypt.MinCost), log),
		Task:     handlers.NewTaskHandler(services.NewTaskService(taskRepo, time.UTC), log),
		Reminder: handlers.NewReminderHandler(services.NewReminderService(taskRepo, dispatcher, time.UTC, log), nil, log),
		Health:   handlers.NewHealthHandler(taskRepo, log),
	}
	return New(cfg, log, tokens, h), logs
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{AllowedOrigins: []string{"https://app.example.com"}},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMin: 1, BurstSize: 2},
	}
}

func send(r *gin.Engine, method, url string, body interface{}, header http.Header) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_RouteNotFound(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	for _, tc := range []struct{ method, url string }{
		{http.MethodGet, "/nope"},
		{http.MethodGet, "/api/todos"},
		{http.MethodPut, "/api/tasks"},
		{http.MethodGet, "/users/login"},
	} {
		w := send(r, tc.method, tc.url, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", tc.method, tc.url)
		assert.JSONEq(t, `{"error":"Route not found"}`, w.Body.String())
	}
}

func TestRouter_EndToEnd(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := send(r, http.MethodPost, "/users/signup", map[string]string{
		"name": "Alice", "email": "alice@example.com", "password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(r, http.MethodPost, "/users/login", map[string]string{
		"email": "alice@example.com", "password": "supersecret",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	auth := http.Header{"Authorization": []string{"Bearer " + login.Token}}

	w = send(r, http.MethodPost, "/api/tasks", map[string]string{
		"title": "Pay rent", "priority": "high", "dueDate": time.Now().Format(time.RFC3339),
	}, auth)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &task))

	w = send(r, http.MethodPatch, "/api/tasks/"+task.ID+"/toggle", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completed":true`)

	w = send(r, http.MethodPut, "/api/tasks/"+task.ID, map[string]string{"title": "Pay rent today"}, auth)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"completed":true`, "fields absent from a PUT body are kept")

	w = send(r, http.MethodGet, "/api/tasks", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Pay rent today")

	w = send(r, http.MethodGet, "/api/tasks", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_LoginIsRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	body := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodPost, "/users/login", body, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodPost, "/users/login", body, nil).Code)

	w := send(r, http.MethodPost, "/users/login", body, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Signup shares the group but not the limiter.
	w = send(r, http.MethodPost, "/users/signup", map[string]string{
		"name": "Bob", "email": "bob@example.com", "password": "supersecret",
	}, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRouter_RateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Enabled = false
	r, _ := newTestRouter(t, cfg)
	body := map[string]string{"email": "nobody@example.com", "password": "whatever"}

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, send(r, http.MethodPost, "/users/login", body, nil).Code)
	}
}

func TestRouter_CORS(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	preflight := http.Header{
		"Origin":                        []string{"https://app.example.com"},
		"Access-Control-Request-Method": []string{http.MethodPost},
	}
	w := send(r, http.MethodOptions, "/users/login", nil, preflight)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = send(r, http.MethodGet, "/", nil, http.Header{"Origin": []string{"https://evil.example.com"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_RequestIDAndLogging(t *testing.T) {
	r, logs := newTestRouter(t, testConfig())

	w := send(r, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Header().Get(constants.RequestIDHeader)
	assert.NotEmpty(t, generated)

	w = send(r, http.MethodGet, "/health", nil, http.Header{constants.RequestIDHeader: []string{"abc-123"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc-123", w.Header().Get(constants.RequestIDHeader))

	entries := logs.FilterMessage("request").FilterField(zap.String("request_id", "abc-123")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
}

func TestRouter_PanicRecovery(t *testing.T) {
	r, logs := newTestRouter(t, testConfig())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := send(r, http.MethodGet, "/boom", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"An internal server error occurred"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestCORSConfig(t *testing.T) {
	assert.True(t, corsConfig([]string{"*"}).AllowAllOrigins)
	assert.True(t, corsConfig(nil).AllowAllOrigins)

	cfg := corsConfig([]string{"https://a.example.com"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example.com"}, cfg.AllowOrigins)
	require.NoError(t, cfg.Validate())
}
