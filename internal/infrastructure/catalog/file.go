// Package catalog loads the seller's product definitions from a JSON file.
// Products are read-only configuration: the engine never writes them back.
package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

type FileCatalog struct {
	products map[string]*domain.Product
}

type productFile struct {
	Products []productEntry `json:"products"`
}

type productEntry struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	PriceCents  int64         `json:"price_cents"`
	Currency    string        `json:"currency"`
	RedirectURL string        `json:"redirect_url"`
	AddOns      []addOnEntry  `json:"add_ons,omitempty"`
	Upsell      *upsellEntry  `json:"upsell,omitempty"`
	Coupons     []couponEntry `json:"coupons,omitempty"`
}

type addOnEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type upsellEntry struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
}

type couponEntry struct {
	Code        string     `json:"code"`
	Type        string     `json:"type"` // PERCENTAGE or FIXED
	Value       int64      `json:"value"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	MinPurchase *int64     `json:"min_purchase_cents,omitempty"`
	MaxUses     *int       `json:"max_uses,omitempty"`
	Automatic   bool       `json:"automatic"`
	Active      bool       `json:"active"`
}

// Load reads and validates the product file once at startup.
func Load(cfg config.CatalogConfig, logger *slog.Logger) (*FileCatalog, error) {
	raw, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var file productFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	products := make(map[string]*domain.Product, len(file.Products))
	for _, entry := range file.Products {
		if entry.ID == "" {
			return nil, fmt.Errorf("catalog entry %q has no id", entry.Name)
		}
		if entry.PriceCents <= 0 {
			return nil, fmt.Errorf("product %s: %w", entry.ID, domain.NewInvalidAmountError(entry.PriceCents))
		}
		if _, dup := products[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %s", entry.ID)
		}
		products[entry.ID] = toDomainProduct(entry)
	}

	logger.Info("product catalog loaded", "path", cfg.Path, "products", len(products))
	return &FileCatalog{products: products}, nil
}

// Product returns the product with the given id.
func (c *FileCatalog) Product(id string) (*domain.Product, error) {
	product, ok := c.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s not in catalog", id)
	}
	return product, nil
}

func toDomainProduct(entry productEntry) *domain.Product {
	product := &domain.Product{
		ID:          entry.ID,
		Name:        entry.Name,
		PriceCents:  entry.PriceCents,
		Currency:    entry.Currency,
		RedirectURL: entry.RedirectURL,
	}

	for _, a := range entry.AddOns {
		product.AddOns = append(product.AddOns, domain.AddOnOffer{
			ID:         a.ID,
			Name:       a.Name,
			PriceCents: a.PriceCents,
		})
	}

	if entry.Upsell != nil {
		product.Upsell = &domain.UpsellOffer{
			Name:        entry.Upsell.Name,
			Description: entry.Upsell.Description,
			PriceCents:  entry.Upsell.PriceCents,
		}
	}

	for _, c := range entry.Coupons {
		product.Coupons = append(product.Coupons, domain.Coupon{
			Code:        c.Code,
			Type:        domain.DiscountType(c.Type),
			Value:       c.Value,
			ExpiresAt:   c.ExpiresAt,
			MinPurchase: c.MinPurchase,
			MaxUses:     c.MaxUses,
			Automatic:   c.Automatic,
			Active:      c.Active,
		})
	}

	return product
}
