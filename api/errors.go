package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kozuki35/hot-desking/internal/apperr"
	"go.uber.org/zap"
)

// writeError aborts the request with err rendered as an API error body.
func writeError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.HTTPStatus >= 500 {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.Response())
}

// bindError turns a binding failure into a validation error naming each
// offending field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidInput("malformed request body")
	}
	details := make(map[string]any, len(verrs))
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fieldMessage(fe)
		fields = append(fields, fe.Field())
	}
	return apperr.Validation(fmt.Sprintf("invalid %s", strings.Join(fields, ", ")), details)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "personname":
		return "may only contain letters, spaces and hyphens"
	case "password":
		return "must be at least 8 letters and digits with at least one of each"
	case "slot":
		return "must be morning or afternoon"
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "min":
		return "must have at least " + fe.Param() + " item(s)"
	default:
		return "is invalid"
	}
}
