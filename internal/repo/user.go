package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mobility-sharing/backend/internal/domain"
)

// UserRepo defines the persistence operations for Users and their wallets.
type UserRepo interface {
	// Create inserts a user. Returns domain.ErrDuplicate when the username is taken.
	Create(ctx context.Context, u domain.User) (domain.User, error)

	// GetByID returns domain.ErrNotFound if no user with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// LockByID is GetByID with a row lock held until the transaction ends.
	// Every wallet check-then-change must happen under this lock.
	LockByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// UpdateProfile overwrites name, email and username.
	UpdateProfile(ctx context.Context, u domain.User) (domain.User, error)

	// ApplyWalletChange adds the deltas to the wallet and reserved balance.
	// Returns domain.ErrInsufficientFunds if the result would violate the
	// balance constraints.
	ApplyWalletChange(ctx context.Context, id uuid.UUID, c domain.WalletChange) (domain.User, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, name, email, username, rupee_wallet, reserved_rupees, eco_rank, created_at, updated_at`

func (r *pgUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	q := `
		INSERT INTO users (name, email, username, rupee_wallet, eco_rank)
		VALUES (@name, @email, @username, @rupee_wallet, @eco_rank)
		RETURNING ` + userColumns

	args := pgx.NamedArgs{
		"name":         u.Name,
		"email":        u.Email,
		"username":     u.Username,
		"rupee_wallet": u.RupeeWallet,
		"eco_rank":     u.EcoRank,
	}

	result, err := scanUser(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", mapPgError(err, domain.ErrValidation))
	}
	return result, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgUserRepo) LockByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = @id FOR UPDATE`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.LockByID: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgUserRepo) UpdateProfile(ctx context.Context, u domain.User) (domain.User, error) {
	q := `
		UPDATE users
		SET name       = @name,
		    email      = @email,
		    username   = @username,
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + userColumns

	args := pgx.NamedArgs{
		"id":       u.ID,
		"name":     u.Name,
		"email":    u.Email,
		"username": u.Username,
	}

	result, err := scanUser(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.UpdateProfile: %w", mapPgError(err, domain.ErrValidation))
	}
	return result, nil
}

func (r *pgUserRepo) ApplyWalletChange(ctx context.Context, id uuid.UUID, c domain.WalletChange) (domain.User, error) {
	q := `
		UPDATE users
		SET rupee_wallet    = rupee_wallet + @wallet,
		    reserved_rupees = reserved_rupees + @reserved,
		    updated_at      = now()
		WHERE id = @id
		RETURNING ` + userColumns

	args := pgx.NamedArgs{"id": id, "wallet": c.Wallet, "reserved": c.Reserved}

	result, err := scanUser(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.ApplyWalletChange: %w", mapPgError(err, domain.ErrInsufficientFunds))
	}
	return result, nil
}

func scanUser(s scanner) (domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)

	err := s.Scan(&id, &u.Name, &u.Email, &u.Username, &u.RupeeWallet, &u.ReservedRupees,
		&u.EcoRank, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, err
	}

	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}
