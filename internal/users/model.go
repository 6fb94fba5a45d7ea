package users

import (
	"time"

	"github.com/ariefcatur/lumina-store/internal/apperr"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

var (
	ErrNotFound           = apperr.NotFound("User not found")
	ErrAddressNotFound    = apperr.NotFound("Address not found")
	ErrExists             = apperr.Validation("User already exists")
	ErrInvalidCredentials = apperr.Validation("Invalid credentials")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	Addresses    []Address `json:"addresses"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) Suspended() bool { return u.Status == StatusSuspended }

// Public is the user shape returned alongside a token.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u User) Public() Public { return Public{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role} }

type Session struct {
	Token string `json:"token"`
	User  Public `json:"user"`
}

type Address struct {
	ID        string `json:"id"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	IsDefault bool   `json:"isDefault"`
}

type AddressPatch struct {
	Street    *string `json:"street"`
	City      *string `json:"city"`
	State     *string `json:"state"`
	Zip       *string `json:"zip"`
	Country   *string `json:"country"`
	IsDefault *bool   `json:"isDefault"`
}
