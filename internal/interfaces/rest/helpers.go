package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// SessionView is the wire shape of a checkout session.
type SessionView struct {
	ID             string      `json:"id"`
	ProductID      string      `json:"product_id"`
	ProductName    string      `json:"product_name"`
	Currency       string      `json:"currency"`
	Buyer          BuyerView   `json:"buyer"`
	SelectedAddOns []string    `json:"selected_add_ons"`
	OfferState     string      `json:"offer_state"`
	CouponCode     string      `json:"coupon_code,omitempty"`
	CouponIsAuto   bool        `json:"coupon_is_auto,omitempty"`
	Price          PriceView   `json:"price"`
	CreatedAt      time.Time   `json:"created_at"`
	AddOns         []AddOnView `json:"add_ons,omitempty"`
}

type BuyerView struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	PhoneCountry string `json:"phone_country"`
	Phone        string `json:"phone"`
}

type PriceView struct {
	FinalCents       int64 `json:"final_cents"`
	PreDiscountCents int64 `json:"pre_discount_cents"`
	DiscountCents    int64 `json:"discount_cents"`
}

type AddOnView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type OfferView struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
}

// TransactionView is the wire shape of a payment transaction. RedirectURL
// is only present once the payment is confirmed.
type TransactionView struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	Status      string    `json:"status"`
	Price       PriceView `json:"price"`
	QRImage     string    `json:"qr_image,omitempty"`
	QRCode      string    `json:"qr_code,omitempty"`
	RedirectURL string    `json:"redirect_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	TimedOut    bool      `json:"timed_out,omitempty"`
}

func ToSessionView(s *domain.CheckoutSession) SessionView {
	selected := make([]string, 0, len(s.SelectedAddOns))
	for id := range s.SelectedAddOns {
		selected = append(selected, id)
	}

	addOns := make([]AddOnView, 0, len(s.Product.AddOns))
	for _, a := range s.Product.AddOns {
		addOns = append(addOns, AddOnView{ID: a.ID, Name: a.Name, PriceCents: a.PriceCents})
	}

	view := SessionView{
		ID:             s.ID,
		ProductID:      s.Product.ID,
		ProductName:    s.Product.Name,
		Currency:       s.Product.Currency,
		Buyer:          BuyerView(s.Buyer),
		SelectedAddOns: selected,
		OfferState:     string(s.OfferState),
		Price:          ToPriceView(s.Price()),
		CreatedAt:      s.CreatedAt,
		AddOns:         addOns,
	}

	if s.Coupon != nil {
		view.CouponCode = s.Coupon.Code
		view.CouponIsAuto = s.CouponIsAuto
	}

	return view
}

func ToPriceView(p domain.PriceBreakdown) PriceView {
	return PriceView(p)
}

func ToOfferView(o *domain.UpsellOffer) OfferView {
	return OfferView{
		Name:        o.Name,
		Description: o.Description,
		PriceCents:  o.PriceCents,
	}
}

func ToTransactionView(tx domain.Transaction, timedOut bool) TransactionView {
	view := TransactionView{
		ID:        tx.ID,
		SessionID: tx.SessionID,
		Status:    string(tx.Status),
		Price:     ToPriceView(tx.Price),
		QRImage:   tx.Instruction.QRImage,
		QRCode:    tx.Instruction.QRCode,
		CreatedAt: tx.CreatedAt,
		TimedOut:  timedOut,
	}
	if tx.Status == domain.StatusPaid {
		view.RedirectURL = tx.RedirectURL
	}
	return view
}

type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// WriteJSON writes a success envelope with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SuccessResponse{Success: true, Data: data})
}
