package response

import (
	"errors"
	"net/http"

	"github.com/docta-care/service-payment/internal/domain"
	"github.com/gin-gonic/gin"
)

// envelope is the JSON shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success writes a 200 with the given payload.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

// Created writes a 201 with the given payload.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Success: true, Data: data})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: message})
}

// Error maps a domain error to its HTTP status and writes it.
func Error(c *gin.Context, err error) {
	var domErr *domain.DomainError
	if !errors.As(err, &domErr) {
		c.JSON(http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(domErr.Err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(domErr.Err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(domErr.Err, domain.ErrInvalidState), errors.Is(domErr.Err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(domErr.Err, domain.ErrGateway):
		status = http.StatusBadGateway
	}

	c.JSON(status, envelope{Success: false, Error: domErr.Message})
}
