package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/application/services"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/interfaces/rest"
)

type initiateView struct {
	OfferPending bool                  `json:"offer_pending"`
	Offer        *rest.OfferView       `json:"offer,omitempty"`
	Transaction  *rest.TransactionView `json:"transaction,omitempty"`
}

func toInitiateView(result *services.InitiateResult) initiateView {
	view := initiateView{OfferPending: result.OfferPending}
	if result.Offer != nil {
		offer := rest.ToOfferView(result.Offer)
		view.Offer = &offer
	}
	if result.Transaction != nil {
		tx := rest.ToTransactionView(*result.Transaction, false)
		view.Transaction = &tx
	}
	return view
}

// InitiatePayment starts a payment attempt. When the product carries an
// undecided upsell offer the attempt pauses and the offer is returned
// instead of a transaction.
func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkout.InitiatePayment(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if result.OfferPending {
		status = http.StatusOK
	}
	rest.WriteJSON(w, status, toInitiateView(result))
}

type decideOfferRequest struct {
	Accepted bool `json:"accepted"`
}

// DecideOffer records the buyer's upsell decision and resumes payment
// initiation. Dismissing the offer modal must be reported as accepted=false.
func (h *Handlers) DecideOffer(w http.ResponseWriter, r *http.Request) {
	var req decideOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err))
		return
	}

	result, err := h.checkout.DecideOffer(r.Context(), chi.URLParam(r, "sessionID"), req.Accepted)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toInitiateView(result))
}

// GetTransaction reads the session's current transaction. Once automatic
// polling exhausted its budget without a terminal status the response is the
// polling-timeout error instead: the front-end switches from waiting to the
// manual-check affordance, which stays available.
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tx, ok := h.checkout.Transaction(sessionID)
	if !ok {
		rest.WriteError(w, domain.NewTransactionNotFoundError("for session "+sessionID))
		return
	}
	if !tx.IsTerminal() && h.checkout.TransactionTimedOut(tx.ID) {
		rest.WriteError(w, application.NewPollingTimeoutError())
		return
	}
	rest.WriteJSON(w, http.StatusOK, rest.ToTransactionView(tx, false))
}

// ManualCheck triggers a buyer-initiated confirmation check, rate-limited by
// the cooldown window.
func (h *Handlers) ManualCheck(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "transactionID")
	tx, err := h.checkout.ManualCheck(r.Context(), txID)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	timedOut := !tx.IsTerminal() && h.checkout.TransactionTimedOut(txID)
	rest.WriteJSON(w, http.StatusOK, rest.ToTransactionView(tx, timedOut))
}
