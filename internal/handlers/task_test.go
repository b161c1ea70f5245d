package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/todoapp/todo-reminder-api/internal/dto"
	apierrors "github.com/todoapp/todo-reminder-api/internal/errors"
	"github.com/todoapp/todo-reminder-api/internal/mailer"
	"github.com/todoapp/todo-reminder-api/internal/middleware"
	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/repository"
	"github.com/todoapp/todo-reminder-api/internal/services"
	"github.com/todoapp/todo-reminder-api/internal/testutil"
	"github.com/todoapp/todo-reminder-api/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "handler-test-secret"

// recordingTransport captures outgoing mail and can be told to fail.
type recordingTransport struct {
	sent []mailer.Message
	fail bool
}

func (t *recordingTransport) Send(ctx context.Context, msg mailer.Message) error {
	if t.fail {
		return errors.New("relay refused connection")
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *recordingTransport) Verify(ctx context.Context) error { return nil }
func (t *recordingTransport) Close() error { return nil }

// HandlerTestSuite drives the handlers through a gin engine backed by an
// in-memory database.
type HandlerTestSuite struct {
	suite.Suite
	db          *gorm.DB
	router      *gin.Engine
	authService *services.AuthService
	tokens      *services.TokenService
	transport   *recordingTransport
	now         time.Time
}

func (suite *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = testutil.NewSQLiteDB(suite.T())
	suite.now = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	suite.transport = &recordingTransport{}

	log := zap.NewNop()
	userRepo := repository.NewUserRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)

	suite.tokens = services.NewTokenService(testSecret, time.Hour)
	suite.authService = services.NewAuthService(userRepo, suite.tokens, bcrypt.MinCost)
	taskService := services.NewTaskService(taskRepo, time.UTC)
	dispatcher := mailer.NewDispatcher(suite.transport, "reminders@example.com", "Todo App Reminder", time.UTC, log)
	reminderService := services.NewReminderService(taskRepo, dispatcher, time.UTC, log)

	authHandler := NewAuthHandler(suite.authService, log)
	taskHandler := NewTaskHandler(taskService, log)
	reminderHandler := NewReminderHandler(reminderService, func() time.Time { return suite.now }, log)
	healthHandler := NewHealthHandler(taskRepo, log)

	r := gin.New()
	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	r.POST("/users/signup", authHandler.Signup)
	r.POST("/users/login", authHandler.Login)

	authed := r.Group("", middleware.RequireAuth(suite.tokens))
	authed.GET("/users/me", authHandler.GetCurrentUser)

	tasks := authed.Group("/api/tasks")
	tasks.GET("", taskHandler.ListTasks)
	tasks.POST("", taskHandler.CreateTask)
	tasks.GET("/search", taskHandler.SearchTasks)
	tasks.POST("/send-reminder", reminderHandler.SendReminder)

	byID := tasks.Group("/:id", middleware.RequireTaskID())
	byID.GET("", taskHandler.GetTask)
	byID.PATCH("", taskHandler.UpdateTask)
	byID.PATCH("/toggle", taskHandler.ToggleTask)
	byID.DELETE("", taskHandler.DeleteTask)

	suite.router = r
}

func (suite *HandlerTestSuite) request(method, url string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

// signupAndLogin registers a user through the service and returns a token.
func (suite *HandlerTestSuite) signupAndLogin(name, email string) (string, *models.User) {
	user, err := suite.authService.Signup(context.Background(), validation.Signup{
		Name:     name,
		Email:    email,
		Password: "supersecret",
	})
	suite.Require().NoError(err)

	token, _, err := suite.tokens.Issue(user.ID)
	suite.Require().NoError(err)
	return token, user
}

func (suite *HandlerTestSuite) createTask(token string, body map[string]interface{}) dto.TaskDTO {
	w := suite.request(http.MethodPost, "/api/tasks", body, token)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	suite.decode(w, &task)
	return task
}

// Auth

func (suite *HandlerTestSuite) TestSignup() {
	w := suite.request(http.MethodPost, "/users/signup", map[string]string{
		"name":     "Ada",
		"email":    "Ada@Example.com",
		"password": "supersecret",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var response struct {
		Message string      `json:"message"`
		User    dto.UserDTO `json:"user"`
	}
	suite.decode(w, &response)
	suite.Equal("User registered successfully", response.Message)
	suite.Equal("ada@example.com", response.User.Email)
	suite.NotEmpty(response.User.ID)
	suite.NotContains(w.Body.String(), "supersecret")

	var stored models.User
	suite.Require().NoError(suite.db.First(&stored, "email = ?", "ada@example.com").Error)
	suite.NotEqual("supersecret", stored.PasswordHash)
}

func (suite *HandlerTestSuite) TestSignup_UsernameAlias() {
	w := suite.request(http.MethodPost, "/users/signup", map[string]string{
		"username": "grace",
		"email":    "grace@example.com",
		"password": "supersecret",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Contains(w.Body.String(), `"name":"grace"`)
}

func (suite *HandlerTestSuite) TestSignup_Duplicate() {
	suite.signupAndLogin("Ada", "ada@example.com")

	w := suite.request(http.MethodPost, "/users/signup", map[string]string{
		"name":     "Ada again",
		"email":    "ADA@example.com",
		"password": "supersecret",
	}, "")
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestSignup_ValidationDetails() {
	w := suite.request(http.MethodPost, "/users/signup", map[string]string{
		"email":    "not-an-email",
		"password": "123",
	}, "")
	suite.Require().Equal(http.StatusBadRequest, w.Code)

	var apiErr struct {
		Code    string                 `json:"code"`
		Details []apierrors.FieldError `json:"details"`
	}
	suite.decode(w, &apiErr)
	suite.Equal(apierrors.ErrCodeInvalidInput, apiErr.Code)

	fields := map[string]bool{}
	for _, d := range apiErr.Details {
		fields[d.Field] = true
	}
	suite.True(fields["name"])
	suite.True(fields["email"])
	suite.True(fields["password"])
}

func (suite *HandlerTestSuite) TestSignup_PasswordTooLong() {
	w := suite.request(http.MethodPost, "/users/signup", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": strings.Repeat("x", 80),
	}, "")
	suite.Require().Equal(http.StatusBadRequest, w.Code, w.Body.String())
	suite.Contains(w.Body.String(), `"field":"password"`)
	suite.Contains(w.Body.String(), "72 bytes")

	var count int64
	suite.db.Model(&models.User{}).Count(&count)
	suite.Zero(count)
}

func (suite *HandlerTestSuite) TestSignup_MalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/users/signup", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestLogin() {
	_, user := suite.signupAndLogin("Ada", "ada@example.com")

	w := suite.request(http.MethodPost, "/users/login", map[string]string{
		"email":    "ada@example.com",
		"password": "supersecret",
	}, "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.LoginResponse
	suite.decode(w, &response)
	suite.NotEmpty(response.Token)
	suite.Equal(user.ID, response.UserID)
	suite.Equal(user.ID, response.User.ID)
	suite.True(response.ExpiresAt.After(time.Now()))

	me := suite.request(http.MethodGet, "/users/me", nil, response.Token)
	suite.Equal(http.StatusOK, me.Code)
	suite.Contains(me.Body.String(), "ada@example.com")
}

func (suite *HandlerTestSuite) TestLogin_Rejects() {
	suite.signupAndLogin("Ada", "ada@example.com")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"wrong password", map[string]string{"email": "ada@example.com", "password": "nope-nope"}, http.StatusUnauthorized},
		{"unknown email", map[string]string{"email": "bob@example.com", "password": "supersecret"}, http.StatusUnauthorized},
		{"missing password", map[string]string{"email": "ada@example.com"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			w := suite.request(http.MethodPost, "/users/login", tt.body, "")
			suite.Equal(tt.status, w.Code)
			suite.NotContains(w.Body.String(), "token\":")
		})
	}
}

func (suite *HandlerTestSuite) TestProtectedRoutesRejectBadTokens() {
	_, user := suite.signupAndLogin("Ada", "ada@example.com")

	past := services.NewTokenService(testSecret, time.Hour, services.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	expired, _, err := past.Issue(user.ID)
	suite.Require().NoError(err)

	forged, _, err := services.NewTokenService("another-secret", time.Hour).Issue(user.ID)
	suite.Require().NoError(err)

	routes := []struct {
		method string
		url    string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodGet, "/api/tasks"},
		{http.MethodPost, "/api/tasks"},
		{http.MethodGet, "/api/tasks/search?term=x"},
		{http.MethodPost, "/api/tasks/send-reminder"},
	}

	for _, route := range routes {
		for name, token := range map[string]string{"missing": "", "expired": expired, "forged": forged} {
			w := suite.request(route.method, route.url, nil, token)
			suite.Equal(http.StatusUnauthorized, w.Code, "%s %s with %s token", route.method, route.url, name)
		}
	}

	w := suite.request(http.MethodGet, "/users/me", nil, expired)
	suite.Contains(w.Body.String(), "Token has expired")
}

// Tasks

func (suite *HandlerTestSuite) TestPayRentScenario() {
	tokenA, userA := suite.signupAndLogin("Alice", "alice@example.com")
	tokenB, _ := suite.signupAndLogin("Bob", "bob@example.com")

	created := suite.createTask(tokenA, map[string]interface{}{
		"title":    "Pay rent",
		"priority": "high",
		"dueDate":  suite.now.Format(time.RFC3339),
	})
	suite.Equal(userA.ID, created.UserID)
	suite.Equal(models.PriorityHigh, created.Priority)
	suite.False(created.Completed)

	var listA []dto.TaskDTO
	w := suite.request(http.MethodGet, "/api/tasks", nil, tokenA)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &listA)
	suite.Require().Len(listA, 1)
	suite.Equal("Pay rent", listA[0].Title)

	w = suite.request(http.MethodGet, "/api/tasks", nil, tokenB)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`[]`, w.Body.String())
}

func (suite *HandlerTestSuite) TestCrossUserAccessIsNotFound() {
	tokenA, _ := suite.signupAndLogin("Alice", "alice@example.com")
	tokenB, _ := suite.signupAndLogin("Bob", "bob@example.com")

	task := suite.createTask(tokenA, map[string]interface{}{"title": "Private", "dueDate": "2025-03-10"})
	url := "/api/tasks/" + task.ID

	suite.Equal(http.StatusNotFound, suite.request(http.MethodGet, url, nil, tokenB).Code)
	suite.Equal(http.StatusNotFound, suite.request(http.MethodPatch, url, map[string]string{"title": "Mine now"}, tokenB).Code)
	suite.Equal(http.StatusNotFound, suite.request(http.MethodPatch, url+"/toggle", nil, tokenB).Code)
	suite.Equal(http.StatusNotFound, suite.request(http.MethodDelete, url, nil, tokenB).Code)

	w := suite.request(http.MethodGet, url, nil, tokenA)
	suite.Require().Equal(http.StatusOK, w.Code)
	var unchanged dto.TaskDTO
	suite.decode(w, &unchanged)
	suite.Equal("Private", unchanged.Title)
	suite.False(unchanged.Completed)
}

func (suite *HandlerTestSuite) TestMalformedIDIsNotFound() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")

	w := suite.request(http.MethodGet, "/api/tasks/not-a-uuid", nil, token)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Contains(w.Body.String(), "Todo not found")
}

func (suite *HandlerTestSuite) TestCreateTask_Validation() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")

	w := suite.request(http.MethodPost, "/api/tasks", map[string]string{"description": "no title"}, token)
	suite.Require().Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), `"field":"title"`)
	suite.Contains(w.Body.String(), `"field":"dueDate"`)

	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	suite.Zero(count)
}

func (suite *HandlerTestSuite) TestCreateTask_Defaults() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")

	task := suite.createTask(token, map[string]interface{}{"title": "Walk dog", "dueDate": "2025-03-11"})
	suite.Equal(models.PriorityMedium, task.Priority)
	suite.Equal("", task.Description)
	suite.True(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC).Equal(task.DueDate), task.DueDate)
}

func (suite *HandlerTestSuite) TestUpdateTask() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	task := suite.createTask(token, map[string]interface{}{"title": "Draft", "description": "keep me", "dueDate": "2025-03-10"})

	w := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]interface{}{
		"title":     "Final",
		"priority":  "low",
		"completed": true,
	}, token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var updated dto.TaskDTO
	suite.decode(w, &updated)
	suite.Equal("Final", updated.Title)
	suite.Equal("keep me", updated.Description)
	suite.Equal(models.PriorityLow, updated.Priority)
	suite.True(updated.Completed)

	bad := suite.request(http.MethodPatch, "/api/tasks/"+task.ID, map[string]string{"dueDate": "whenever"}, token)
	suite.Equal(http.StatusBadRequest, bad.Code)
}

func (suite *HandlerTestSuite) TestToggleTwiceRestores() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	task := suite.createTask(token, map[string]interface{}{"title": "Flip", "dueDate": "2025-03-10"})
	url := "/api/tasks/" + task.ID + "/toggle"

	var first, second dto.TaskDTO
	w := suite.request(http.MethodPatch, url, nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &first)
	suite.True(first.Completed)

	w = suite.request(http.MethodPatch, url, nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &second)
	suite.False(second.Completed)
}

func (suite *HandlerTestSuite) TestDeleteTask() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	task := suite.createTask(token, map[string]interface{}{"title": "Gone soon", "dueDate": "2025-03-10"})
	url := "/api/tasks/" + task.ID

	w := suite.request(http.MethodDelete, url, nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"message":"Todo deleted successfully"}`, w.Body.String())

	suite.Equal(http.StatusNotFound, suite.request(http.MethodGet, url, nil, token).Code)
	suite.Equal(http.StatusNotFound, suite.request(http.MethodDelete, url, nil, token).Code)
}

func (suite *HandlerTestSuite) TestListTasks_PaginationAndFilter() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	for _, day := range []string{"2025-03-12", "2025-03-10", "2025-03-11"} {
		suite.createTask(token, map[string]interface{}{"title": "Due " + day, "dueDate": day})
	}

	var page []dto.TaskDTO
	w := suite.request(http.MethodGet, "/api/tasks?page=2&limit=2", nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &page)
	suite.Require().Len(page, 1)
	suite.Equal("Due 2025-03-12", page[0].Title)

	var open []dto.TaskDTO
	w = suite.request(http.MethodGet, "/api/tasks?completed=false", nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &open)
	suite.Len(open, 3)
	suite.Equal("Due 2025-03-10", open[0].Title)

	suite.Equal(http.StatusBadRequest, suite.request(http.MethodGet, "/api/tasks?completed=maybe", nil, token).Code)
}

func (suite *HandlerTestSuite) TestSearchTasks() {
	tokenA, _ := suite.signupAndLogin("Alice", "alice@example.com")
	tokenB, _ := suite.signupAndLogin("Bob", "bob@example.com")
	suite.createTask(tokenA, map[string]interface{}{"title": "Pay RENT", "dueDate": "2025-03-10"})
	suite.createTask(tokenA, map[string]interface{}{"title": "Groceries", "dueDate": "2025-03-10"})
	suite.createTask(tokenB, map[string]interface{}{"title": "Rent a car", "dueDate": "2025-03-10"})

	var found []dto.TaskDTO
	w := suite.request(http.MethodGet, "/api/tasks/search?term=rent", nil, tokenA)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &found)
	suite.Require().Len(found, 1)
	suite.Equal("Pay RENT", found[0].Title)

	suite.Equal(http.StatusBadRequest, suite.request(http.MethodGet, "/api/tasks/search", nil, tokenA).Code)
}

// Reminders

func (suite *HandlerTestSuite) TestSendReminder() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	suite.createTask(token, map[string]interface{}{"title": "Pay rent", "priority": "high", "dueDate": "2025-03-10T17:00:00Z"})
	suite.createTask(token, map[string]interface{}{"title": "Next week", "dueDate": "2025-03-17"})

	w := suite.request(http.MethodPost, "/api/tasks/send-reminder", nil, token)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var response dto.ReminderResponse
	suite.decode(w, &response)
	suite.Equal(1, response.Count)

	suite.Require().Len(suite.transport.sent, 1)
	msg := suite.transport.sent[0]
	suite.Equal("alice@example.com", msg.To)
	suite.Equal(mailer.Subject, msg.Subject)
	suite.Contains(msg.HTML, "Pay rent")
	suite.NotContains(msg.HTML, "Next week")
}

func (suite *HandlerTestSuite) TestSendReminder_NothingDue() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")

	w := suite.request(http.MethodPost, "/api/tasks/send-reminder", nil, token)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"message":"No tasks due today","count":0}`, w.Body.String())
	suite.Empty(suite.transport.sent)
}

func (suite *HandlerTestSuite) TestSendReminder_DispatchFailure() {
	token, _ := suite.signupAndLogin("Alice", "alice@example.com")
	suite.createTask(token, map[string]interface{}{"title": "Pay rent", "dueDate": "2025-03-10"})
	suite.transport.fail = true

	w := suite.request(http.MethodPost, "/api/tasks/send-reminder", nil, token)
	suite.Equal(http.StatusBadGateway, w.Code)
	suite.Contains(w.Body.String(), apierrors.ErrCodeDispatchFailed)
}

// Health

func (suite *HandlerTestSuite) TestRootAndHealth() {
	w := suite.request(http.MethodGet, "/", nil, "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Equal("Welcome to the API!", w.Body.String())

	w = suite.request(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusOK, w.Code)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())

	w = suite.request(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
