package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mindsettler/service-booking/internal/application"
	"github.com/mindsettler/service-booking/internal/platform/auth"
	"github.com/mindsettler/service-booking/internal/platform/middleware"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

// DirectoryHandler handles admin requests for providers and corporate clients.
type DirectoryHandler struct {
	service *application.DirectoryService
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(service *application.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: service}
}

// RegisterRoutes registers admin directory routes.
func (h *DirectoryHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/api/v1/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/providers", h.ListProviders)
		admin.POST("/providers", h.CreateProvider)
		admin.PATCH("/providers/:id", h.SetProviderActive)
		admin.GET("/corporates", h.ListCorporates)
		admin.POST("/corporates", h.CreateCorporate)
		admin.PATCH("/corporates/:id", h.SetCorporateActive)
	}
}

// ListProviders handles GET /api/v1/admin/providers?active=true.
func (h *DirectoryHandler) ListProviders(c *gin.Context) {
	providers, err := h.service.ListProviders(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, providers)
}

// CreateProvider handles POST /api/v1/admin/providers.
func (h *DirectoryHandler) CreateProvider(c *gin.Context) {
	var req application.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateProvider(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// SetProviderActive handles PATCH /api/v1/admin/providers/:id.
func (h *DirectoryHandler) SetProviderActive(c *gin.Context) {
	id, req, ok := bindSetActive(c, "invalid provider ID")
	if !ok {
		return
	}

	result, err := h.service.SetProviderActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

// ListCorporates handles GET /api/v1/admin/corporates?active=true.
func (h *DirectoryHandler) ListCorporates(c *gin.Context) {
	corporates, err := h.service.ListCorporates(c.Request.Context(), activeOnly(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, corporates)
}

// CreateCorporate handles POST /api/v1/admin/corporates.
func (h *DirectoryHandler) CreateCorporate(c *gin.Context) {
	var req application.CreateCorporateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateCorporate(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, result)
}

// SetCorporateActive handles PATCH /api/v1/admin/corporates/:id.
func (h *DirectoryHandler) SetCorporateActive(c *gin.Context) {
	id, req, ok := bindSetActive(c, "invalid corporate ID")
	if !ok {
		return
	}

	result, err := h.service.SetCorporateActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, result)
}

func activeOnly(c *gin.Context) bool {
	active, _ := strconv.ParseBool(c.Query("active"))
	return active
}

func bindSetActive(c *gin.Context, invalidID string) (uuid.UUID, application.SetActiveRequest, bool) {
	var req application.SetActiveRequest
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, invalidID)
		return uuid.Nil, req, false
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return uuid.Nil, req, false
	}
	return id, req, true
}
