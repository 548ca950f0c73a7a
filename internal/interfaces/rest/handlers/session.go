package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/interfaces/rest"
)

type createSessionRequest struct {
	ProductID string            `json:"product_id"`
	Tracking  map[string]string `json:"tracking,omitempty"`
}

func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}
	if strings.TrimSpace(req.ProductID) == "" {
		rest.WriteError(w, application.NewInvalidInputError(nil))
		return
	}

	product, err := h.catalog.Product(req.ProductID)
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}

	session := h.checkout.CreateSession(product, req.Tracking)
	rest.WriteJSON(w, http.StatusCreated, rest.ToSessionView(session))
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.checkout.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToSessionView(session))
}

// CloseSession tears the session down. The payment page calls this on exit,
// so a missing session is not an error.
func (h *Handlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	h.checkout.CloseSession(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

type updateBuyerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneCountry string `json:"phone_country"`
	Phone        string `json:"phone"`
}

func (h *Handlers) UpdateBuyer(w http.ResponseWriter, r *http.Request) {
	var req updateBuyerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}

	session, err := h.checkout.UpdateBuyer(chi.URLParam(r, "sessionID"), domain.Buyer{
		Name:         req.Name,
		Email:        req.Email,
		PhoneCountry: req.PhoneCountry,
		Phone:        req.Phone,
	})
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToSessionView(session))
}

type toggleAddOnRequest struct {
	Selected bool `json:"selected"`
}

func (h *Handlers) ToggleAddOn(w http.ResponseWriter, r *http.Request) {
	var req toggleAddOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}

	session, err := h.checkout.ToggleAddOn(
		chi.URLParam(r, "sessionID"),
		chi.URLParam(r, "addOnID"),
		req.Selected,
	)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToSessionView(session))
}
