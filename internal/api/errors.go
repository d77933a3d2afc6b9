package api

import (
	"errors"   // Error inspection
	"net/http" // HTTP status codes

	"plantastic/internal/inference"  // Inference service errors
	"plantastic/internal/middleware" // Request-scoped logger
	"plantastic/internal/schedule"   // Recurrence rule errors
	"plantastic/internal/utils"      // Telegram validation errors

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Error kinds mapped to HTTP status codes by respondError
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid request")
)

// apiError carries a client-facing message and its kind
type apiError struct {
	kind error  // One of the kinds above
	msg  string // Message returned to the client
}

func (e *apiError) Error() string { return e.msg }
func (e *apiError) Unwrap() error { return e.kind }

func notFound(msg string) error  { return &apiError{kind: ErrNotFound, msg: msg} }
func forbidden(msg string) error { return &apiError{kind: ErrForbidden, msg: msg} }
func conflict(msg string) error  { return &apiError{kind: ErrConflict, msg: msg} }
func invalid(msg string) error   { return &apiError{kind: ErrInvalid, msg: msg} }

// statusFor maps an error to its HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return http.StatusConflict
	case errors.Is(err, ErrInvalid), errors.Is(err, schedule.ErrInvalidRule),
		errors.Is(err, utils.ErrMissingHash), errors.Is(err, utils.ErrMissingUser),
		errors.Is(err, utils.ErrBadUser), errors.Is(err, utils.ErrBadInitData):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrInvalidHash), errors.Is(err, utils.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, inference.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, inference.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}; server-side failures are logged and hidden behind fallback
func respondError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	var apiErr *apiError
	switch {
	case status >= http.StatusInternalServerError:
		middleware.Logger(c).WithField("error", err.Error()).Error(fallback) // Log with request context
		if status == http.StatusInternalServerError {
			c.JSON(status, gin.H{"error": fallback})
			return
		}
		c.JSON(status, gin.H{"error": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(status, gin.H{"error": apiErr.msg})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(status, gin.H{"error": "Not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(status, gin.H{"error": "Already exists"})
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		c.JSON(status, gin.H{"error": "Referenced by other records"})
	default:
		c.JSON(status, gin.H{"error": err.Error()})
	}
}
