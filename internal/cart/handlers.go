package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oakline/storefront/internal/catalog"
	"github.com/oakline/storefront/internal/common"
	"github.com/oakline/storefront/internal/obs"
	"github.com/oakline/storefront/internal/pricing"
)

// Handler wires the cart store to HTTP.
type Handler struct {
	Store   *Store
	Catalog *catalog.Catalog
}

// Create opens a new empty cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	id := h.Store.Create(r.Context())
	obs.CartMutationsTotal.WithLabelValues("create").Inc()
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"cartId": id}})
}

// Get returns the cart contents, derived totals and minimum-order state.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	view, ok := h.Store.View(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// AddItem adds or increments a line item after resolving the variant in the
// catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil || h.Catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.ProductID = strings.TrimSpace(payload.ProductID)
	payload.VariantID = strings.TrimSpace(payload.VariantID)
	if payload.ProductID == "" || payload.VariantID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId and variantId are required", nil)
		return
	}
	if payload.Qty < 0 {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must not be negative", nil)
		return
	}
	product, variant, err := h.Catalog.Variant(payload.ProductID, payload.VariantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product variant not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to resolve product", nil)
		return
	}
	if !variant.InStock {
		common.JSONError(w, http.StatusConflict, "OUT_OF_STOCK", "variant is out of stock", nil)
		return
	}
	info := ProductInfo{Name: product.Name, Images: product.Images}
	view, ok := h.Store.AddItem(r.Context(), cartID, product.ID, info, variant, payload.Qty)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	obs.CartMutationsTotal.WithLabelValues("add_item").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// UpdateItem sets the quantity for a line item; zero removes it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload struct {
		ProductID string `json:"productId"`
		VariantID string `json:"variantId"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if strings.TrimSpace(payload.ProductID) == "" || strings.TrimSpace(payload.VariantID) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "productId and variantId are required", nil)
		return
	}
	view, ok := h.Store.UpdateQuantity(r.Context(), cartID, payload.ProductID, payload.VariantID, payload.Qty)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	obs.CartMutationsTotal.WithLabelValues("update_quantity").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// RemoveItem deletes a line item. Removing an absent key succeeds.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	productID := chi.URLParam(r, "productId")
	variantID := chi.URLParam(r, "variantId")
	view, ok := h.Store.RemoveItem(r.Context(), cartID, productID, variantID)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	obs.CartMutationsTotal.WithLabelValues("remove_item").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// SetPaymentMethod selects the payment method used for discounting.
func (h *Handler) SetPaymentMethod(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload struct {
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	method, valid := pricing.ParseMethod(payload.Method)
	if !valid {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unsupported payment method", nil)
		return
	}
	view, ok := h.Store.SetPaymentMethod(r.Context(), cartID, method)
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	obs.CartMutationsTotal.WithLabelValues("set_payment_method").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart store not configured", nil)
		return
	}
	view, ok := h.Store.Clear(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
		return
	}
	obs.CartMutationsTotal.WithLabelValues("clear").Inc()
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}
