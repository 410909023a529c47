package handler

import (
	"net/http"

	"github.com/docta-care/service-payment/internal/application"
	"github.com/docta-care/service-payment/internal/middleware"
	"github.com/docta-care/service-payment/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtSecret string) {
	payments := r.Group("/payment")
	payments.Use(middleware.AuthMiddleware(jwtSecret))
	{
		payments.GET("/get-payment-url/session/:sessionId",
			middleware.RequireRole(middleware.RolePatient), h.CreatePaymentURL)
	}
}

// CreatePaymentURL handles GET /api/payment/v1/payment/get-payment-url/session/:sessionId
func (h *PaymentHandler) CreatePaymentURL(c *gin.Context) {
	patientID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return
	}

	dto, err := h.service.CreatePaymentURL(c.Request.Context(), sessionID, patientID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}
