package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/repo"
)

// ProfileInput carries the user-editable profile fields.
type ProfileInput struct {
	Name     string
	Email    string
	Username string
}

// UserService manages member profiles. Wallet balances are read-only here;
// they only move through bookings.
type UserService struct {
	users repo.UserRepo
}

// NewUserService constructs a UserService backed by the provided UserRepo.
func NewUserService(users repo.UserRepo) *UserService {
	return &UserService{users: users}
}

// Register creates a user with the given profile and opening wallet balance.
// Returns domain.ErrValidation for invalid input and domain.ErrDuplicate if
// the username is taken.
func (s *UserService) Register(ctx context.Context, in ProfileInput, openingBalance int64) (domain.User, error) {
	in, err := normalizeProfile(in)
	if err != nil {
		return domain.User{}, err
	}
	if openingBalance < 0 {
		return domain.User{}, fmt.Errorf("%w: rupee_wallet must not be negative", domain.ErrValidation)
	}
	result, err := s.users.Create(ctx, domain.User{
		Name:        in.Name,
		Email:       in.Email,
		Username:    in.Username,
		RupeeWallet: openingBalance,
		EcoRank:     domain.DefaultEcoRank,
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	return result, nil
}

// GetByID returns a single user.
// Returns domain.ErrNotFound if no user with that ID exists.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	result, err := s.users.GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.GetByID: %w", err)
	}
	return result, nil
}

// UpdateProfile overwrites the profile fields of user id.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (domain.User, error) {
	in, err := normalizeProfile(in)
	if err != nil {
		return domain.User{}, err
	}
	result, err := s.users.UpdateProfile(ctx, domain.User{ID: id, Name: in.Name, Email: in.Email, Username: in.Username})
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.UpdateProfile: %w", err)
	}
	return result, nil
}

// normalizeProfile trims every field and checks that all are present and the
// email address parses.
func normalizeProfile(in ProfileInput) (ProfileInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	switch {
	case in.Name == "":
		return in, fmt.Errorf("%w: name is required", domain.ErrValidation)
	case in.Username == "":
		return in, fmt.Errorf("%w: username is required", domain.ErrValidation)
	case in.Email == "":
		return in, fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return in, fmt.Errorf("%w: email is not a valid address", domain.ErrValidation)
	}
	return in, nil
}
