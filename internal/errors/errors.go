package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes
const (
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeDispatchFailed     = "DISPATCH_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// APIError is the body of every non-2xx API response
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

// FieldError names one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// kind pairs a status with its code and the message used when the caller
// passes none.
type kind struct {
	status   int
	code     string
	fallback string
}

var (
	unauthorized       = kind{http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required"}
	invalidCredentials = kind{http.StatusUnauthorized, ErrCodeInvalidCredentials, "Invalid credentials"}
	badRequest         = kind{http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request"}
	notFound           = kind{http.StatusNotFound, ErrCodeNotFound, "Resource not found"}
	conflict           = kind{http.StatusConflict, ErrCodeConflict, "Resource conflict"}
	rateLimited        = kind{http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests, please try again later"}
	dispatchFailed     = kind{http.StatusBadGateway, ErrCodeDispatchFailed, "Failed to deliver notification"}
	internal           = kind{http.StatusInternalServerError, ErrCodeInternalError, "An internal server error occurred"}
	unavailable        = kind{http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service temporarily unavailable"}
)

func (k kind) abort(c *gin.Context, message string, details interface{}) {
	if message == "" {
		message = k.fallback
	}
	c.AbortWithStatusJSON(k.status, &APIError{Code: k.code, Message: message, Details: details})
}

// Unauthorized sends a 401 response
func Unauthorized(c *gin.Context, message string) {
	unauthorized.abort(c, message, nil)
}

// InvalidCredentials sends the 401 for a failed login. Unknown email and
// wrong password share it.
func InvalidCredentials(c *gin.Context) {
	invalidCredentials.abort(c, "", nil)
}

func NotFound(c *gin.Context, message string) {
	notFound.abort(c, message, nil)
}

// BadRequest sends a 400 for a body or query that could not be read
func BadRequest(c *gin.Context, message string) {
	badRequest.abort(c, message, nil)
}

// ValidationFailed sends a 400 listing every rejected field
func ValidationFailed(c *gin.Context, fields []FieldError) {
	badRequest.abort(c, "Validation failed", fields)
}

func Conflict(c *gin.Context, message string) {
	conflict.abort(c, message, nil)
}

func TooManyRequests(c *gin.Context, message string) {
	rateLimited.abort(c, message, nil)
}

// BadGateway reports a mail relay that refused or failed a delivery
func BadGateway(c *gin.Context, message string) {
	dispatchFailed.abort(c, message, nil)
}

// InternalError hides the cause; callers log it first
func InternalError(c *gin.Context, message string) {
	internal.abort(c, message, nil)
}

func ServiceUnavailable(c *gin.Context, message string) {
	unavailable.abort(c, message, nil)
}
