package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"

	"github.com/forkline-eats/service-promo/internal/application"
	"github.com/forkline-eats/service-promo/internal/domain/delivery"
	"github.com/forkline-eats/service-promo/internal/domain/promo"
	"github.com/forkline-eats/service-promo/internal/platform/response"
)

// renderError writes domain rule failures as 422, bad coordinates as 400
// and leaves everything else to response.Error.
func renderError(c *gin.Context, err error) {
	var ruleErr *promo.RuleError
	switch {
	case errors.As(err, &ruleErr):
		response.UnprocessableEntity(c, strings.ToUpper(string(ruleErr.Reason)), ruleErr.Message)
	case errors.Is(err, delivery.ErrInvalidCoordinate):
		response.BadRequest(c, err.Error())
	case errors.Is(err, application.ErrNotDeliverable):
		response.UnprocessableEntity(c, "NOT_DELIVERABLE", err.Error())
	default:
		response.Error(c, err)
	}
}
