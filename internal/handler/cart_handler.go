package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gigantefleur/storefront/internal/model"
	"gigantefleur/storefront/internal/service"
)

type AddCartItemRequest struct {
	ID       string `json:"id"`
	Quantity *int   `json:"quantity"` // defaults to 1
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CartResponse struct {
	Items []model.LineItem `json:"items"`
	Total float64          `json:"total"`
	Count int              `json:"count"`
}

func (h *Handler) cartResponse() CartResponse {
	return CartResponse{Items: h.cart.Items(), Total: h.cart.Total(), Count: h.cart.Count()}
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.catalog.Get(req.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if err := h.cart.Add(r.Context(), item, quantity); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if !h.cart.Contains(id) {
		writeError(w, http.StatusNotFound, "item not in cart")
		return
	}
	h.cart.SetQuantity(r.Context(), id, req.Quantity)
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	h.cart.Remove(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear(r.Context())
	writeJSON(w, http.StatusOK, h.cartResponse())
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.checkout.Checkout(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, order)
	case errors.Is(err, service.ErrLoginRequired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[handler] checkout failed: %v", err)
		writeError(w, http.StatusBadGateway, "error placing order, please try again")
	}
}
