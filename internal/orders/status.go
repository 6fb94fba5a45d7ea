package orders

import (
	"strings"

	"github.com/ariefcatur/lumina-store/internal/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var known = map[Status]bool{
	StatusPending:    true,
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

// ParseStatus accepts any known status. Transitions are not checked: an admin
// may move an order from any status to any other.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !known[st] {
		return "", apperr.Validationf("Invalid status: %q", s)
	}
	return st, nil
}
