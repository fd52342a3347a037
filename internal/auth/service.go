package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/facturapro/facturapro/internal/invoice"
	"github.com/facturapro/facturapro/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
	cost int
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcrypt.DefaultCost}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, normalizeEmail(reg.Email), string(hash), normalizeProfile(reg.Profile))
}

// User loads the account behind a session user id.
func (s *Service) User(ctx context.Context, userID string) (*User, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile stores new company details.
func (s *Service) UpdateProfile(ctx context.Context, userID string, profile Profile) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return shared.ErrNotFound
	}
	return s.repo.UpdateProfile(ctx, id, normalizeProfile(profile))
}

// Issuer implements invoice.IssuerSource from the account profile.
func (s *Service) Issuer(ctx context.Context, ownerID string) (invoice.Issuer, error) {
	user, err := s.User(ctx, ownerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return invoice.Issuer{}, nil
		}
		return invoice.Issuer{}, err
	}
	return invoice.Issuer{CompanyName: user.CompanyName, TaxID: user.RTN}, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID uuid.UUID, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeProfile(p Profile) Profile {
	return Profile{
		CompanyName: strings.TrimSpace(p.CompanyName),
		RTN:         invoice.FormatRTN(p.RTN),
		Phone:       strings.TrimSpace(p.Phone),
	}
}

var _ invoice.IssuerSource = (*Service)(nil)
