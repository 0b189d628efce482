package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/platform/auth"
	"github.com/forkline-eats/service-promo/internal/platform/middleware"
	"github.com/forkline-eats/service-promo/internal/platform/response"
)

// PromoHandler handles HTTP requests for promo code operations.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers all promo routes.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	optionalAuthMW := middleware.OptionalAuthMiddleware(jwtManager)

	restaurants := r.Group("/restaurants/:restaurantId/promos")
	{
		restaurants.POST("", authMW, middleware.RequireRole(auth.RoleOwner, auth.RoleAdmin), h.CreatePromo)
		restaurants.GET("/active", h.GetActivePromos)
	}

	r.POST("/promos/validate", optionalAuthMW, h.ValidatePromo)
}

// CreatePromo handles POST /api/v1/restaurants/:restaurantId/promos.
func (h *PromoHandler) CreatePromo(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return
	}
	role, _ := middleware.GetRole(c)

	restaurantID, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant ID")
		return
	}

	var req application.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreatePromo(c.Request.Context(), userID, role, restaurantID, req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Created(c, result)
}

// ValidatePromo handles POST /api/v1/promos/validate. The body is the bare
// validation result: 200 when the code applies, 422 when a rule rejects it.
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	// guests validate as uuid.Nil
	customerID, _ := middleware.GetUserID(c)

	var req application.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidatePromo(c.Request.Context(), customerID, req)
	if err != nil {
		renderError(c, err)
		return
	}

	status := http.StatusOK
	if !result.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

// GetActivePromos handles GET /api/v1/restaurants/:restaurantId/promos/active.
func (h *PromoHandler) GetActivePromos(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant ID")
		return
	}

	result, err := h.service.ListActivePromos(c.Request.Context(), restaurantID)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}
