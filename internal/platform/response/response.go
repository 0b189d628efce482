package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/forkline-eats/service-promo/internal/platform/apperror"
)

// Envelope is the standard JSON body for all non-validate endpoints.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination details.
type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// Success writes a 200 envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Paginated writes a 200 envelope with pagination metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	pages := int64(0)
	if limit > 0 {
		pages = (total + int64(limit) - 1) / int64(limit)
	}
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta:    &Meta{Page: page, Limit: limit, Total: total, TotalPages: pages},
	})
}

// BadRequest writes a 400 envelope.
func BadRequest(c *gin.Context, message string) {
	abort(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized writes a 401 envelope.
func Unauthorized(c *gin.Context, message string) {
	abort(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden writes a 403 envelope.
func Forbidden(c *gin.Context, message string) {
	abort(c, http.StatusForbidden, "FORBIDDEN", message)
}

// UnprocessableEntity writes a 422 envelope for business-rule failures.
func UnprocessableEntity(c *gin.Context, code, message string) {
	abort(c, http.StatusUnprocessableEntity, code, message)
}

// Error maps an error to a status code and writes it.
func Error(c *gin.Context, err error) {
	var domErr *apperror.DomainError
	if !errors.As(err, &domErr) {
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(domErr.Err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(domErr.Err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(domErr.Err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(domErr.Err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(domErr.Err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(domErr.Err, apperror.ErrStorageUnavailable):
		// the cause may carry driver details, keep it out of the body
		abort(c, http.StatusServiceUnavailable, domErr.Code, "storage unavailable")
		return
	}
	abort(c, status, domErr.Code, domErr.Message)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Envelope{
		Success: false,
		Error:   &ErrorBody{Code: code, Message: message},
	})
}
