package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/platform/auth"
	"github.com/forkline-eats/service-promo/internal/platform/middleware"
	"github.com/forkline-eats/service-promo/internal/platform/response"
)

// AdminPromoHandler handles admin HTTP requests for promo code oversight.
type AdminPromoHandler struct {
	promoService *application.PromoService
}

// NewAdminPromoHandler creates a new AdminPromoHandler.
func NewAdminPromoHandler(promoService *application.PromoService) *AdminPromoHandler {
	return &AdminPromoHandler{promoService: promoService}
}

// RegisterRoutes registers admin promo routes.
func (h *AdminPromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/promos/:id/usages", h.ListUsages)
		admin.GET("/restaurants/:restaurantId/promos", h.ListRestaurantPromos)
	}
}

// ListUsages handles GET /api/v1/admin/promos/:id/usages.
func (h *AdminPromoHandler) ListUsages(c *gin.Context) {
	promoCodeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo code ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	usages, total, err := h.promoService.ListUsages(c.Request.Context(), promoCodeID, page, limit)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Paginated(c, usages, total, page, limit)
}

// ListRestaurantPromos handles GET /api/v1/admin/restaurants/:restaurantId/promos.
func (h *AdminPromoHandler) ListRestaurantPromos(c *gin.Context) {
	restaurantID, err := uuid.Parse(c.Param("restaurantId"))
	if err != nil {
		response.BadRequest(c, "invalid restaurant ID")
		return
	}

	promos, err := h.promoService.ListRestaurantPromos(c.Request.Context(), restaurantID)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, promos)
}
