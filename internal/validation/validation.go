// Package validation checks request payloads before they reach a store.
// Every function here is pure: it returns the normalised value together with
// a Result listing each rejected field.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/todoapp/todo-reminder-api/internal/constants"
	"github.com/todoapp/todo-reminder-api/internal/models"
	"github.com/todoapp/todo-reminder-api/internal/repository"
)

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects field errors. The zero value is a passing result.
type Result struct {
	Errors []FieldError
}

func (r Result) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Result) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Err returns nil for a passing result and an *Error otherwise.
func (r Result) Err() error {
	if r.Valid() {
		return nil
	}
	return &Error{Fields: r.Errors}
}

// Error is the error form of a failing Result.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsError unwraps a validation error from err.
func AsError(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// check runs struct tags and appends one FieldError per failing field.
func check(v interface{}, r *Result) {
	err := instance().Struct(v)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		r.Add("", err.Error())
		return
	}
	for _, fe := range verrs {
		r.Add(fe.Field(), message(fe))
	}
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

// Date layouts accepted for dueDate, tried in order. Layouts without a zone
// are read in the caller's location.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDueDate accepts RFC 3339 timestamps, HTML datetime-local values and
// plain dates. A plain date means midnight of that day in loc.
func ParseDueDate(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("dueDate is required")
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dueDateLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("dueDate %q is not a recognised date", value)
}

// TaskCreate is the body of POST /api/tasks.
type TaskCreate struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate" validate:"required"`
}

// NewTask validates a create request and returns the task to insert.
// Unknown or empty priorities become medium.
func NewTask(in TaskCreate, ownerID string, loc *time.Location) (*models.Task, Result) {
	var r Result

	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.DueDate = strings.TrimSpace(in.DueDate)
	check(in, &r)

	var due time.Time
	if in.DueDate != "" {
		ts, err := ParseDueDate(in.DueDate, loc)
		if err != nil {
			r.Add("dueDate", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
		due = ts
	}
	if !r.Valid() {
		return nil, r
	}

	return &models.Task{
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Priority:    models.ParsePriority(strings.ToLower(strings.TrimSpace(in.Priority))),
		DueDate:     due.UTC(),
		Completed:   false,
	}, r
}

// TaskUpdate is the body of PATCH /api/tasks/:id. Absent fields are left
// unchanged.
type TaskUpdate struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=255"`
	Description *string `json:"description" validate:"omitnil,max=5000"`
	Priority    *string `json:"priority"`
	DueDate     *string `json:"dueDate"`
	Completed   *bool   `json:"completed"`
}

// TaskChanges validates a partial update and returns the store patch.
func TaskChanges(in TaskUpdate, loc *time.Location) (repository.TaskPatch, Result) {
	var r Result
	var patch repository.TaskPatch

	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
	}
	check(in, &r)

	if in.DueDate != nil {
		ts, err := ParseDueDate(*in.DueDate, loc)
		if err != nil {
			r.Add("dueDate", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
		} else {
			utc := ts.UTC()
			patch.DueDate = &utc
		}
	}
	if !r.Valid() {
		return repository.TaskPatch{}, r
	}

	patch.Title = in.Title
	patch.Description = in.Description
	patch.Completed = in.Completed
	if in.Priority != nil {
		p := models.ParsePriority(strings.ToLower(strings.TrimSpace(*in.Priority)))
		patch.Priority = &p
	}
	return patch, r
}

// Signup is the body of POST /users/signup. Username is accepted as an alias
// for name.
type Signup struct {
	Name     string `json:"name" validate:"required,max=100"`
	Username string `json:"username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// NewUser validates a signup request. The returned user has no password hash.
func NewUser(in Signup) (*models.User, Result) {
	var r Result

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		in.Name = strings.TrimSpace(in.Username)
	}
	in.Email = models.NormalizeEmail(in.Email)
	check(in, &r)
	if len(in.Password) > constants.MaxPasswordBytes {
		r.Add("password", fmt.Sprintf("must be at most %d bytes", constants.MaxPasswordBytes))
	}
	if !r.Valid() {
		return nil, r
	}

	return &models.User{Name: in.Name, Email: in.Email}, r
}

// Login is the body of POST /users/login.
type Login struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func CheckLogin(in Login) Result {
	var r Result
	in.Email = strings.TrimSpace(in.Email)
	check(in, &r)
	return r
}

// SearchTerm trims a search term and bounds its length.
func SearchTerm(term string) (string, Result) {
	var r Result
	term = strings.TrimSpace(term)
	if term == "" {
		r.Add("term", "term is required")
	}
	if len(term) > constants.MaxSearchTermLength {
		r.Add("term", fmt.Sprintf("must be at most %d characters", constants.MaxSearchTermLength))
	}
	return term, r
}
