package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vyrodovalexey/avainsure/internal/database"
	"github.com/vyrodovalexey/avainsure/internal/observability"
	"github.com/vyrodovalexey/avainsure/internal/util"
)

// stackKey holds the stack captured by Recovery.
const stackKey = "panic_stack"

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
	Cause   string `json:"cause,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// ErrorHandlerConfig holds configuration for the error pipeline.
type ErrorHandlerConfig struct {
	Logger  observability.Logger
	Metrics *observability.Metrics

	// Development exposes internal error causes and panic stack traces.
	Development bool
}

// ErrorHandler returns the middleware that turns the last error recorded
// on the context into the JSON error response and logs it once.
func ErrorHandler(config ErrorHandlerConfig) gin.HandlerFunc {
	if config.Logger == nil {
		config.Logger = observability.NopLogger()
	}

	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr := Classify(err)
		resp := buildErrorResponse(c, appErr, err, config.Development)

		logError(config.Logger, c, appErr, err)
		config.Metrics.RecordError(string(appErr.Kind))

		if c.Writer.Written() {
			return
		}
		c.JSON(appErr.StatusCode, resp)
	}
}

func buildErrorResponse(c *gin.Context, appErr *util.AppError, err error, development bool) ErrorResponse {
	resp := ErrorResponse{
		Success: false,
		Error:   appErr.Message,
		Details: appErr.Details,
	}

	if !appErr.Operational && !development {
		resp.Error = util.GenericInternalMessage
		resp.Details = nil
	}

	if development {
		if !appErr.Operational {
			resp.Cause = err.Error()
		}
		resp.Stack = c.GetString(stackKey)
	}

	return resp
}

func logError(logger observability.Logger, c *gin.Context, appErr *util.AppError, err error) {
	fields := []observability.Field{
		observability.String("request_id", GetRequestID(c)),
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
		observability.Int("status", appErr.StatusCode),
		observability.String("kind", string(appErr.Kind)),
		observability.Error(err),
	}
	if stack := c.GetString(stackKey); stack != "" {
		fields = append(fields, observability.String("stack", stack))
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
		return
	}
	logger.Warn("request rejected", fields...)
}

// Classify maps err to the AppError that describes its response.
func Classify(err error) *util.AppError {
	if appErr, ok := util.AsAppError(err); ok {
		return appErr
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return util.NewValidationError("Validation failed", fieldErrors(validationErrs)...)
	}

	if appErr := classifyBodyError(err); appErr != nil {
		return appErr
	}

	if database.IsUniqueViolation(err) {
		return util.NewConflictError("Resource already exists", err)
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return util.NewTokenExpiredError(err)
	case isTokenError(err):
		return util.NewTokenInvalidError(err)
	}

	return util.NewInternalError(err.Error(), err)
}

func classifyBodyError(err error) *util.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return util.NewPayloadTooLargeError(maxBytesErr.Limit)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return util.NewValidationError("Malformed JSON body")
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return util.NewValidationError("Validation failed", util.FieldError{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("must be of type %s", typeErr.Type),
		})
	}

	if errors.Is(err, io.EOF) {
		return util.NewValidationError("Request body is required")
	}

	return nil
}

func isTokenError(err error) bool {
	for _, target := range []error{
		jwt.ErrTokenMalformed,
		jwt.ErrTokenSignatureInvalid,
		jwt.ErrTokenUnverifiable,
		jwt.ErrTokenNotValidYet,
		jwt.ErrTokenInvalidClaims,
		jwt.ErrTokenInvalidIssuer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func fieldErrors(errs validator.ValidationErrors) []util.FieldError {
	fields := make([]util.FieldError, 0, len(errs))
	for _, fe := range errs {
		fields = append(fields, util.FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return fields
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// NotFound is the fallback handler for unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = c.Error(util.NewNotFoundError("Route " + c.Request.Method + " " + c.Request.URL.Path))
		c.Abort()
	}
}
