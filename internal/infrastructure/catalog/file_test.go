package catalog_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCatalog(t *testing.T, content string) config.CatalogConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return config.CatalogConfig{Path: path}
}

func TestLoad_ParsesProducts(t *testing.T) {
	cfg := writeCatalog(t, `{
		"products": [
			{
				"id": "course-go",
				"name": "Go Course",
				"price_cents": 10000,
				"currency": "BRL",
				"redirect_url": "https://example.com/thanks",
				"add_ons": [
					{"id": "workbook", "name": "Workbook", "price_cents": 2000}
				],
				"upsell": {"name": "Mentoring", "price_cents": 5000},
				"coupons": [
					{"code": "LAUNCH", "type": "PERCENTAGE", "value": 10, "automatic": true, "active": true}
				]
			}
		]
	}`)

	c, err := catalog.Load(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	product, err := c.Product("course-go")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), product.PriceCents)
	require.Len(t, product.AddOns, 1)
	require.NotNil(t, product.Upsell)
	assert.Equal(t, "Mentoring", product.Upsell.Name)
	require.Len(t, product.Coupons, 1)
	assert.Equal(t, domain.DiscountPercentage, product.Coupons[0].Type)
	assert.True(t, product.Coupons[0].Automatic)
}

func TestLoad_RejectsBadEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", `{"products": [{"name": "x", "price_cents": 100}]}`},
		{"non-positive price", `{"products": [{"id": "p", "price_cents": 0}]}`},
		{"duplicate id", `{"products": [
			{"id": "p", "price_cents": 100},
			{"id": "p", "price_cents": 200}
		]}`},
		{"malformed json", `{"products": [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeCatalog(t, tt.content)
			_, err := catalog.Load(cfg, slog.New(slog.DiscardHandler))
			assert.Error(t, err)
		})
	}
}

func TestLoad_NonPositivePriceCode(t *testing.T) {
	cfg := writeCatalog(t, `{"products": [{"id": "p", "price_cents": -100}]}`)

	_, err := catalog.Load(cfg, slog.New(slog.DiscardHandler))

	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidAmount))
}

func TestProduct_UnknownID(t *testing.T) {
	cfg := writeCatalog(t, `{"products": [{"id": "p", "price_cents": 100}]}`)
	c, err := catalog.Load(cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	_, err = c.Product("other")
	assert.Error(t, err)
}
