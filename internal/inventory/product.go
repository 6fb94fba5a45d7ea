package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

var ErrNotFound = apperr.NotFound("Product not found")

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (p Product) Ref() notify.ProductRef {
	return notify.ProductRef{ID: p.ID, Name: p.Name, Image: p.Image, Stock: p.Stock}
}

// Patch is a partial admin edit; nil fields are left unchanged.
type Patch struct {
	Name        *string          `json:"name"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Category    *string          `json:"category"`
	Stock       *int             `json:"stock"`
}

func (p Patch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Validation("Product name must not be empty")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return apperr.Validation("Price must not be negative")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return apperr.Validation("Stock must not be negative")
	}
	return nil
}

func (p Product) validateNew() error {
	if strings.TrimSpace(p.Name) == "" {
		return apperr.Validation("Product name is required")
	}
	if p.Price.IsNegative() {
		return apperr.Validation("Price must not be negative")
	}
	if p.Stock < 0 {
		return apperr.Validation("Stock must not be negative")
	}
	return nil
}
