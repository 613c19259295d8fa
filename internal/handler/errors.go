package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mindsettler/service-booking/internal/application"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{application.ErrThrottled, http.StatusTooManyRequests, "THROTTLED"},
	{bookingDomain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{bookingDomain.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{bookingDomain.ErrInvalidSlot, http.StatusBadRequest, "INVALID_SLOT"},
	{bookingDomain.ErrMissingAmount, http.StatusBadRequest, "MISSING_AMOUNT"},
	{bookingDomain.ErrMissingReason, http.StatusBadRequest, "MISSING_REASON"},
	{bookingDomain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{bookingDomain.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{bookingDomain.ErrConflict, http.StatusConflict, "CONFLICT"},
	{bookingDomain.ErrEmailNotVerified, http.StatusUnprocessableEntity, "EMAIL_NOT_VERIFIED"},
	{bookingDomain.ErrPaymentNotRequired, http.StatusUnprocessableEntity, "PAYMENT_NOT_REQUIRED"},
	{bookingDomain.ErrCancellationWindowClosed, http.StatusUnprocessableEntity, "CANCELLATION_WINDOW_CLOSED"},
	{bookingDomain.ErrNotCancellable, http.StatusUnprocessableEntity, "NOT_CANCELLABLE"},
}

// respondError writes err as an API error. Unrecognized errors become a 500 without
// leaking their text.
func respondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			response.Fail(c, m.status, m.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	response.InternalError(c)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
