package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation         ErrorCategory = "validation"
	CategoryRange              ErrorCategory = "range"
	CategoryInsufficientData   ErrorCategory = "insufficient_data"
	CategoryUndefinedStatistic ErrorCategory = "undefined_statistic"
	CategoryNotFound           ErrorCategory = "not_found"
	CategoryRateLimit          ErrorCategory = "rate_limit"
	CategoryInternal           ErrorCategory = "internal"
)

// AppError wraps errbuilder error with additional context
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	codeStr := "INTERNAL_ERROR"
	switch e.Category {
	case CategoryValidation:
		codeStr = "VALIDATION_ERROR"
	case CategoryRange:
		codeStr = "RANGE_ERROR"
	case CategoryInsufficientData:
		codeStr = "INSUFFICIENT_DATA"
	case CategoryUndefinedStatistic:
		codeStr = "UNDEFINED_STATISTIC"
	case CategoryNotFound:
		codeStr = "NOT_FOUND"
	case CategoryRateLimit:
		codeStr = "RATE_LIMIT_EXCEEDED"
	}

	return fmt.Sprintf("[%s] %s", codeStr, e.ErrBuilder.Msg)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewRangeError reports a value outside its declared valid range. The
// component name, the offending value, and the declared bounds travel
// with the error so the caller can diagnose without re-running.
func NewRangeError(component string, value, lo, hi float64) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("component", errors.New(component))
	errorMap.Set("value", fmt.Errorf("%g", value))
	errorMap.Set("valid_range", fmt.Errorf("[%g, %g]", lo, hi))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(fmt.Sprintf("%s value %g outside valid range [%g, %g]", component, value, lo, hi)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRange, http.StatusBadRequest)
}

// NewInsufficientDataError reports a statistic that is undefined for the
// given inputs, naming the offending computation.
func NewInsufficientDataError(computation, reason string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("computation", errors.New(computation))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("%s: insufficient data: %s", computation, reason)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryInsufficientData, http.StatusUnprocessableEntity)
}

// NewUndefinedStatisticError reports a mathematically undefined result
// (e.g. a zero denominator) for the named computation.
func NewUndefinedStatisticError(computation, detail string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("computation", errors.New(computation))
	errorMap.Set("detail", errors.New(detail))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(fmt.Sprintf("%s is undefined: %s", computation, detail)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryUndefinedStatistic, http.StatusUnprocessableEntity)
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	detailStr := ""
	if len(details) > 0 {
		detailStr = fmt.Sprintf("%v", details[0])
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if detailStr != "" {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(detailStr))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	return NewAppError(builder, CategoryValidation, http.StatusBadRequest)
}

// NewNotFoundError creates a not-found error for the named resource
func NewNotFoundError(resource, id string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("resource", errors.New(resource))
	errorMap.Set("id", errors.New(id))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s %q not found", resource, id)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryNotFound, http.StatusNotFound)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryInternal, http.StatusInternalServerError)
}

// WithIteration annotates an error with the bootstrap iteration it
// occurred in, preserving category and status.
func WithIteration(err *AppError, iteration int) *AppError {
	if err == nil {
		return nil
	}

	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("iteration", fmt.Errorf("%d", iteration))

	builder := errbuilder.New().
		WithCode(err.ErrBuilder.ErrCode()).
		WithMsg(fmt.Sprintf("iteration %d: %s", iteration, err.ErrBuilder.Msg)).
		WithCause(err).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, err.Category, err.HTTPStatus)
}

// IsCategory reports whether err is an AppError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// IsInsufficientData reports whether err signals a statistic undefined
// for degenerate inputs
func IsInsufficientData(err error) bool {
	return IsCategory(err, CategoryInsufficientData)
}

// IsRecoverableIterationError reports whether an error inside a single
// bootstrap iteration should trigger a resample retry rather than
// aborting the whole run.
func IsRecoverableIterationError(err error) bool {
	return IsCategory(err, CategoryInsufficientData) ||
		IsCategory(err, CategoryUndefinedStatistic)
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// ErrorHandler is a Gin middleware that provides centralized error handling
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			appErr := ToAppError(err)

			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, gin.H{
				"error":    appErr.Error(),
				"category": appErr.Category,
			})
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", recovered),
			fmt.Errorf("%v", recovered),
		)

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, gin.H{
			"error":    appErr.Error(),
			"category": appErr.Category,
		})
	})
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	switch err.Category {
	case CategoryValidation, CategoryRange, CategoryRateLimit, CategoryNotFound:
		logEntry.Warn(err.ErrBuilder.Msg)
	case CategoryInsufficientData, CategoryUndefinedStatistic:
		logEntry.Info(err.ErrBuilder.Msg)
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Error(err.ErrBuilder.Msg)
		}
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	contextMsg := fmt.Sprintf(message, args...)
	return fmt.Errorf("%s: %w", contextMsg, err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}
