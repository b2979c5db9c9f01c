package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/http/middleware"
	"github.com/tbourn/go-task-backend/internal/utils"
)

// bindJSON decodes the request body into dst and runs its binding rules.
// Decode and rule failures become validation_error; a body over the size
// limit stays a transport failure (413).
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}
	if se, ok := middleware.TooLarge(err); ok {
		return se
	}
	return apperr.Validation("Invalid request data", bindDetail(err))
}

// bindDetail summarizes a binding error for debug_message.
func bindDetail(err error) string {
	var verrs validator.ValidationErrors
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		parts := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			parts = append(parts, fieldRule(fe))
		}
		return strings.Join(parts, "; ")
	case errors.Is(err, io.EOF):
		return "request body is empty"
	case errors.As(err, &syn):
		return fmt.Sprintf("malformed JSON at offset %d", syn.Offset)
	case errors.As(err, &typ):
		return fmt.Sprintf("field %s must be %s", typ.Field, typ.Type)
	default:
		return err.Error()
	}
}

func fieldRule(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q rule", name, fe.Tag())
	}
}

// currentUser returns the authenticated caller set by middleware.RequireAuth.
func currentUser(c *gin.Context) (uint, error) {
	if id, ok := middleware.UserID(c); ok {
		return id, nil
	}
	return 0, apperr.Unauthorized("Authentication required", "no authenticated user on request")
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := utils.ParseID(raw)
	if err != nil {
		return 0, apperr.Validation("Invalid task id", fmt.Sprintf("%q: %v", raw, err))
	}
	return id, nil
}
