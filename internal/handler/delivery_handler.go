package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/platform/response"
)

// DeliveryHandler handles delivery range checks.
type DeliveryHandler struct {
	service *application.DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler.
func NewDeliveryHandler(service *application.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{service: service}
}

// RegisterRoutes registers the public delivery routes.
func (h *DeliveryHandler) RegisterRoutes(r *gin.RouterGroup) {
	d := r.Group("/delivery")
	{
		d.POST("/validate", h.ValidateDelivery)
		d.POST("/validate-cart", h.ValidateCart)
	}
}

// ValidateDelivery handles POST /api/v1/delivery/validate.
func (h *DeliveryHandler) ValidateDelivery(c *gin.Context) {
	var req application.DeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidateDelivery(c.Request.Context(), req.RestaurantID, *req.Latitude, *req.Longitude)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}

// ValidateCart handles POST /api/v1/delivery/validate-cart.
func (h *DeliveryHandler) ValidateCart(c *gin.Context) {
	var req application.CartDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ValidateCart(c.Request.Context(), req.RestaurantIDs, *req.Latitude, *req.Longitude)
	if err != nil {
		renderError(c, err)
		return
	}

	response.Success(c, result)
}
