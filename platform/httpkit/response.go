// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"net/http"

	"visitor_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternalError = "Internal server error"

// Envelope is the response body for every endpoint.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Details    any    `json:"details,omitempty"`
	StatusCode int    `json:"statusCode"`
}

// JSON writes a successful envelope with the given status.
func JSON(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data, StatusCode: status})
}

// OK sends a 200 envelope.
func OK(c *gin.Context, message string, data any) {
	JSON(c, http.StatusOK, message, data)
}

// Created sends a 201 envelope.
func Created(c *gin.Context, message string, data any) {
	JSON(c, http.StatusCreated, message, data)
}

// Error sends a failed envelope with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, Envelope{Success: false, Message: message, Details: details, StatusCode: status})
}

// Abort writes a failed envelope and stops the handler chain.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: message, StatusCode: status})
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values anywhere in the chain use their Kind for the status code.
// Anything else is a 500 with a generic message; the cause is attached to the gin context
// so RequestLogger records it.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if domainErr, ok := apperr.As(err); ok && domainErr.Kind != apperr.KindUnknown && domainErr.Kind != apperr.KindInternal {
		Error(c, domainErr.HTTPStatus(), domainErr.Message, domainErr.Details)
		return true
	}

	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, msgInternalError, nil)
	return true
}
