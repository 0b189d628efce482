package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/platform/auth"
	"github.com/forkline-eats/service-promo/internal/platform/middleware"
	"github.com/forkline-eats/service-promo/internal/platform/response"
)

// CheckoutHandler handles order checkout.
type CheckoutHandler struct {
	service *application.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(service *application.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

// RegisterRoutes registers the checkout route. Guests may check out.
func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	r.POST("/checkout", middleware.OptionalAuthMiddleware(jwtManager), h.Checkout)
}

// Checkout handles POST /api/v1/checkout.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	customerID, _ := middleware.GetUserID(c)

	var req application.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), customerID, req)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Created(c, result)
}
