// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"
	"strconv"

	"leadflow_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is the envelope for successful responses.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	RetryAfter *int        `json:"retry_after,omitempty"`
}

// ErrorResponse is the envelope for failed responses.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   ErrorBody `json:"error"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK sends a 200 success envelope.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true, Data: data})
}

// Created sends a 201 success envelope.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, SuccessResponse{Success: true, Message: message, Data: data})
}

// Error sends an error envelope with the given status code.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

// RateLimited sends a 429 envelope and the Retry-After header.
func RateLimited(c *gin.Context, message string, retryAfterSeconds int) {
	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: ErrorBody{
		Code:       apperr.CodeRateLimitExceeded,
		Message:    message,
		RetryAfter: &retryAfterSeconds,
	}})
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values keep their status, code and payload; anything
// else is reported as INTERNAL_ERROR without leaking the cause.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{Error: ErrorBody{
			Code:    domainErr.ErrorCode(),
			Message: domainErr.Message,
			Details: domainErr.Details,
			Data:    domainErr.Data,
		}})
		return true
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{
		Code:    apperr.CodeInternal,
		Message: "Ocurrió un error inesperado",
	}})
	return true
}
