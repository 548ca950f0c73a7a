package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/interfaces/rest"
)

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handlers) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.checkout.ApplyCoupon(r.Context(), sessionID, req.Code); err != nil {
		rest.WriteError(w, err)
		return
	}

	session, err := h.checkout.Session(sessionID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToSessionView(session))
}

func (h *Handlers) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	session, err := h.checkout.RemoveCoupon(chi.URLParam(r, "sessionID"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToSessionView(session))
}
