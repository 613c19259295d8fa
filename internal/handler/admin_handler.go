package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/platform/auth"
	"github.com/mindsettler/service-booking/internal/platform/middleware"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service       *application.BookingService
	notifications *application.NotificationService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService, notifications *application.NotificationService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service, notifications: notifications}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/api/v1/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
		admin.GET("/bookings/:id", h.GetBooking)
		admin.POST("/bookings/:id/approve", h.ApproveBooking)
		admin.POST("/bookings/:id/reject", h.RejectBooking)
		admin.POST("/bookings/:id/cancel", h.CancelBooking)
		admin.POST("/bookings/:id/complete", h.CompleteBooking)
		admin.GET("/bookings/:id/notifications", h.BookingNotifications)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, stats)
}

// GetBooking handles GET /api/v1/admin/bookings/:id.
func (h *AdminBookingHandler) GetBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// ApproveBooking handles POST /api/v1/admin/bookings/:id/approve.
func (h *AdminBookingHandler) ApproveBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req application.ApproveBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ApproveBooking(c.Request.Context(), bookingID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// RejectBooking handles POST /api/v1/admin/bookings/:id/reject.
func (h *AdminBookingHandler) RejectBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req application.RejectBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RejectBooking(c.Request.Context(), bookingID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/admin/bookings/:id/cancel.
func (h *AdminBookingHandler) CancelBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req application.CancelBookingRequest
	// Body is optional.
	_ = c.ShouldBindJSON(&req)

	result, err := h.service.CancelBooking(c.Request.Context(), bookingID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// CompleteBooking handles POST /api/v1/admin/bookings/:id/complete.
func (h *AdminBookingHandler) CompleteBooking(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.CompleteBooking(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// BookingNotifications handles GET /api/v1/admin/bookings/:id/notifications.
func (h *AdminBookingHandler) BookingNotifications(c *gin.Context) {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return
	}

	records, err := h.notifications.GetBookingNotifications(c.Request.Context(), bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, records)
}

func bookingIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
