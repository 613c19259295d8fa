package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

// BookingHandler handles the public booking endpoints. Requesters are identified by
// email links, not sessions.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type acknowledgementRequest struct {
	AcknowledgementID string `json:"acknowledgement_id" binding:"required"`
}

type cancellationRequest struct {
	AcknowledgementID string `json:"acknowledgement_id" binding:"required"`
	Email             string `json:"email"`
}

type statusEmailRequest struct {
	Email string `json:"email" binding:"required"`
}

type completePaymentRequest struct {
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// RegisterRoutes registers the public booking routes. writeMW is applied to every
// POST route.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, writeMW ...gin.HandlerFunc) {
	post := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writeMW...), handler)
	}

	bookings := r.Group("/api/v1/bookings")
	{
		bookings.POST("/draft", post(h.CreateDraft)...)
		bookings.POST("/chatbot", post(h.ChatbotIntent)...)
		bookings.GET("/verify-email", h.VerifyEmail)
		bookings.GET("/status", h.CheckStatus)
		bookings.POST("/status", post(h.RequestStatusEmail)...)
		bookings.POST("/cancellation", post(h.RequestCancellation)...)
		bookings.GET("/cancellation/verify", h.VerifyCancellation)
		bookings.POST("/payments/initiate", post(h.InitiatePayment)...)
		bookings.POST("/payments/complete", post(h.CompletePayment)...)
	}
}

// CreateDraft handles POST /api/v1/bookings/draft.
func (h *BookingHandler) CreateDraft(c *gin.Context) {
	var req application.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateDraft(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Existing {
		response.Success(c, result)
		return
	}
	response.Created(c, result)
}

// ChatbotIntent handles POST /api/v1/bookings/chatbot.
func (h *BookingHandler) ChatbotIntent(c *gin.Context) {
	var req application.ChatbotIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateDraftFromChatbot(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Existing {
		response.Success(c, result)
		return
	}
	response.Created(c, result)
}

// VerifyEmail handles GET /api/v1/bookings/verify-email?token=.
func (h *BookingHandler) VerifyEmail(c *gin.Context) {
	result, err := h.service.VerifyEmail(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// CheckStatus handles GET /api/v1/bookings/status?acknowledgement_id=.
func (h *BookingHandler) CheckStatus(c *gin.Context) {
	result, err := h.service.CheckStatus(c.Request.Context(), c.Query("acknowledgement_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// RequestStatusEmail handles POST /api/v1/bookings/status.
func (h *BookingHandler) RequestStatusEmail(c *gin.Context) {
	var req statusEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RequestStatusEmail(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// RequestCancellation handles POST /api/v1/bookings/cancellation.
func (h *BookingHandler) RequestCancellation(c *gin.Context) {
	var req cancellationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RequestCancellation(c.Request.Context(), req.AcknowledgementID, req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// VerifyCancellation handles GET /api/v1/bookings/cancellation/verify?token=.
func (h *BookingHandler) VerifyCancellation(c *gin.Context) {
	result, err := h.service.VerifyCancellation(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// InitiatePayment handles POST /api/v1/bookings/payments/initiate.
func (h *BookingHandler) InitiatePayment(c *gin.Context) {
	var req acknowledgementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.InitiatePayment(c.Request.Context(), req.AcknowledgementID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// CompletePayment handles POST /api/v1/bookings/payments/complete.
func (h *BookingHandler) CompletePayment(c *gin.Context) {
	var req completePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CompletePayment(c.Request.Context(), req.PaymentReference)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}
