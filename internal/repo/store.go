// Package repo contains all database access logic for the Mobility Sharing API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mobility-sharing/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
// Begin on a pgx.Tx opens a savepoint, so WithinTx nests.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the per-resource repos over one connection and lets services
// run several repo calls in one transaction.
type Store interface {
	Travels() TravelRepo
	Bookings() UserTravelRepo
	Users() UserRepo
	Ratings() RatingRepo
	Eco() EcoRepo

	// WithinTx runs fn with a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	db db
}

// NewStore constructs a Store backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewStore(db db) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Travels() TravelRepo      { return NewTravelRepo(s.db) }
func (s *pgStore) Bookings() UserTravelRepo { return NewUserTravelRepo(s.db) }
func (s *pgStore) Users() UserRepo          { return NewUserRepo(s.db) }
func (s *pgStore) Ratings() RatingRepo      { return NewRatingRepo(s.db) }
func (s *pgStore) Eco() EcoRepo             { return NewEcoRepo(s.db) }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx})
	})
	if err != nil {
		return fmt.Errorf("repo.Store.WithinTx: %w", err)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scan helpers
// to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// Postgres SQLSTATE codes mapped to domain errors.
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// mapPgError translates constraint violations into domain sentinels.
// onCheck is the sentinel for a CHECK violation on this statement, or nil to
// leave those untouched.
func mapPgError(err error, onCheck error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
		case pgErr.Code == checkViolation && onCheck != nil:
			return fmt.Errorf("%w: %s", onCheck, pgErr.ConstraintName)
		}
	}
	return err
}

// containsPattern builds a case-insensitive LIKE pattern matching s anywhere.
// Use with ESCAPE '\'.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
