package handlers

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/todoapp/todo-reminder-api/internal/errors"
	"github.com/todoapp/todo-reminder-api/internal/validation"
)

// respondValidationError writes a 400 listing every rejected field. It
// reports false when err is not a validation error.
func respondValidationError(c *gin.Context, err error) bool {
	verr, ok := validation.AsError(err)
	if !ok {
		return false
	}

	fields := make([]apierrors.FieldError, len(verr.Fields))
	for i, f := range verr.Fields {
		fields[i] = apierrors.FieldError{Field: f.Field, Message: f.Message}
	}
	apierrors.ValidationFailed(c, fields)
	return true
}
