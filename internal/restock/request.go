package restock

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
)

// Request is a stored intent to email someone when a product is back.
type Request struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"productId"`
	UserEmail  string          `json:"userEmail"`
	UserName   string          `json:"userName"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	ResolvedAt *time.Time      `json:"resolvedAt,omitempty"`
	Product    *ProductSummary `json:"product,omitempty"`
}

// ProductSummary is joined into listings for display.
type ProductSummary struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Image string          `json:"image"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}
