package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/lumina-store/internal/notify"
)

// Item is a line item with the product snapshot taken at purchase time.
type Item struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

func (i Item) LineTotal() decimal.Decimal { return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))) }

type ShippingDetails struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID               string              `json:"id"`
	UserID           *string             `json:"userId"`
	User             *UserRef            `json:"user,omitempty"`
	Items            []Item              `json:"items"`
	ShippingDetails  ShippingDetails     `json:"shippingDetails"`
	Total            decimal.Decimal     `json:"total"`
	ClientTotal      decimal.NullDecimal `json:"-"`
	PaymentReference string              `json:"paymentReference"`
	Status           Status              `json:"status"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

func ComputeTotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Summary is the view the notification templates render.
func (o Order) Summary() notify.OrderSummary {
	lines := make([]notify.OrderLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = notify.OrderLine{Name: it.Name, Quantity: it.Quantity, LineTotal: it.LineTotal()}
	}
	return notify.OrderSummary{
		ID:               o.ID,
		FirstName:        o.ShippingDetails.FirstName,
		LastName:         o.ShippingDetails.LastName,
		Email:            o.ShippingDetails.Email,
		PaymentReference: o.PaymentReference,
		Status:           string(o.Status),
		Lines:            lines,
		Total:            o.Total,
	}
}
