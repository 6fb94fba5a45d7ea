// Package users owns accounts, roles and saved addresses.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/lumina-store/internal/apperr"
	"github.com/ariefcatur/lumina-store/internal/auth"
	"github.com/ariefcatur/lumina-store/internal/notify"
)

type store interface {
	Create(ctx context.Context, u User) (User, error)
	UpsertAdmin(ctx context.Context, u User) (User, error)
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context) ([]User, error)
	SetStatus(ctx context.Context, id, status string) (User, error)
	Delete(ctx context.Context, id string) error
	ListAddresses(ctx context.Context, userID string) ([]Address, error)
	AddAddress(ctx context.Context, userID string, a Address) ([]Address, error)
	UpdateAddress(ctx context.Context, userID, id string, p AddressPatch) ([]Address, error)
	DeleteAddress(ctx context.Context, userID, id string) ([]Address, error)
}

type sender interface {
	Send(ctx context.Context, msgs ...notify.Message)
}

type Service struct {
	Store     store
	Tokens    *auth.Tokens
	Notifier  sender
	Templates *notify.Templates
	Log       *zap.Logger
}

func (s *Service) Register(ctx context.Context, name, email, password string) (Session, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return Session{}, apperr.Validation("Name, email and password are required")
	}
	if _, err := s.Store.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrExists
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return Session{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, apperr.Wrap(apperr.KindValidation, "Password cannot be used", err)
	}
	u, err := s.Store.Create(ctx, User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		Status:       StatusActive,
	})
	if err != nil {
		return Session{}, err
	}
	s.Notifier.Send(ctx, s.Templates.Welcome(u.Email, u.Name))
	return s.session(u)
}

// Login checks credentials. Users get a login alert; admins trigger the
// admin access notice instead.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.Store.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.KindOf(err) == apperr.KindNotFound {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}

	if u.Role == auth.RoleAdmin {
		s.Notifier.Send(ctx, s.Templates.AdminLogin())
	} else {
		s.Notifier.Send(ctx, s.Templates.LoginAlert(u.Email, u.Name))
	}
	return s.session(u)
}

func (s *Service) session(u User) (Session, error) {
	token, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u.Public()}, nil
}

// EnsureAdmin makes sure an admin account exists for the configured credentials.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		s.Log.Warn("admin credentials not configured; no admin account bootstrapped")
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u, err := s.Store.UpsertAdmin(ctx, User{ID: uuid.NewString(), Name: name, Email: strings.TrimSpace(email), PasswordHash: hash})
	if err != nil {
		return err
	}
	s.Log.Info("admin account ready", zap.String("user_id", u.ID), zap.String("email", u.Email))
	return nil
}

// Get returns a user; malformed ids are simply unknown.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]User, error) { return s.Store.List(ctx) }

func (s *Service) SetStatus(ctx context.Context, id, status string) (User, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != StatusActive && status != StatusSuspended {
		return User{}, apperr.Validationf("Invalid status: %q", status)
	}
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	u, err := s.Store.SetStatus(ctx, id, status)
	if err != nil {
		return User{}, err
	}
	s.Notifier.Send(ctx, s.Templates.AccountStatus(u.Email, u.Name, status))
	return u, nil
}

func (s *Service) SendMessage(ctx context.Context, id, subject, message string) error {
	if strings.TrimSpace(message) == "" {
		return apperr.Validation("Message is required")
	}
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Notifier.Send(ctx, s.Templates.AdminMessage(u.Email, u.Name, subject, message))
	return nil
}

// Delete notifies the user and then removes the account. Orders keep their
// shipping snapshot and lose the user reference.
func (s *Service) Delete(ctx context.Context, id string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	s.Notifier.Send(ctx, s.Templates.AccountDeleted(u.Email, u.Name))
	return s.Store.Delete(ctx, id)
}

func (s *Service) ListAddresses(ctx context.Context, userID string) ([]Address, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.Store.ListAddresses(ctx, userID)
}

func (s *Service) AddAddress(ctx context.Context, userID string, a Address) ([]Address, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}
	a.ID = uuid.NewString()
	return s.Store.AddAddress(ctx, userID, a)
}

func (s *Service) UpdateAddress(ctx context.Context, userID, id string, p AddressPatch) ([]Address, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrAddressNotFound
	}
	return s.Store.UpdateAddress(ctx, userID, id, p)
}

func (s *Service) DeleteAddress(ctx context.Context, userID, id string) ([]Address, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return s.ListAddresses(ctx, userID)
	}
	return s.Store.DeleteAddress(ctx, userID, id)
}
