package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oakline/storefront/internal/common"
	"github.com/oakline/storefront/internal/obs"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Service *Service
}

// Submit accepts a checkout payload, runs it through the service and renders
// the outcome. The cart is left untouched on any failure so the shopper can
// retry.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout not configured", nil)
		return
	}
	var in Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		obs.OrdersTotal.WithLabelValues("validation_failed").Inc()
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	o, err := h.Service.Submit(r.Context(), in)
	if err != nil {
		var verr *ValidationError
		var merr *MinimumNotMetError
		switch {
		case errors.As(err, &verr):
			obs.OrdersTotal.WithLabelValues("validation_failed").Inc()
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid checkout data", verr.Fields)
		case errors.As(err, &merr):
			obs.OrdersTotal.WithLabelValues("rejected").Inc()
			common.JSONError(w, http.StatusUnprocessableEntity, "MINIMUM_ORDER_NOT_MET", "minimum order amount not met", map[string]string{
				"required":        merr.Required.StringFixed(2),
				"amountRemaining": merr.AmountRemaining.StringFixed(2),
			})
		case errors.Is(err, ErrCartNotFound):
			obs.OrdersTotal.WithLabelValues("rejected").Inc()
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		case errors.Is(err, ErrEmptyCart):
			obs.OrdersTotal.WithLabelValues("rejected").Inc()
			common.JSONError(w, http.StatusBadRequest, "EMPTY_CART", "cart has no items", nil)
		default:
			obs.OrdersTotal.WithLabelValues("failed").Inc()
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to submit order", nil)
		}
		return
	}

	obs.OrdersTotal.WithLabelValues("accepted").Inc()
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"success":     true,
		"orderNumber": o.Number,
		"total":       o.Totals.Total.StringFixed(2),
	}})
}
