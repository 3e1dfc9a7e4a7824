package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mobility-sharing/backend/internal/domain"
)

// UserTravelRepo defines the persistence operations for bookings.
type UserTravelRepo interface {
	// Create inserts a booking. Returns domain.ErrDuplicate when the user
	// already holds a non-canceled booking on the travel.
	Create(ctx context.Context, ut domain.UserTravel) (domain.UserTravel, error)

	// GetLatest returns the current booking for (userID, travelID): the live
	// one if any, otherwise the most recently canceled one.
	// Returns domain.ErrNotFound if the user never booked the travel.
	GetLatest(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error)

	// LockLatest is GetLatest with a row lock held until the transaction ends.
	LockLatest(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error)

	// UpdateStatus sets the status and returns the updated record.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.UserTravel, error)

	// ListByTravel returns every booking for a travel in creation order.
	ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error)
}

type pgUserTravelRepo struct {
	db db
}

// NewUserTravelRepo constructs a UserTravelRepo backed by the provided db connection.
func NewUserTravelRepo(db db) UserTravelRepo {
	return &pgUserTravelRepo{db: db}
}

const userTravelColumns = `id, user_id, travel_id, status, held_amount, created_at, updated_at`

func (r *pgUserTravelRepo) Create(ctx context.Context, ut domain.UserTravel) (domain.UserTravel, error) {
	q := `
		INSERT INTO user_travels (user_id, travel_id, status, held_amount)
		VALUES (@user_id, @travel_id, @status, @held_amount)
		RETURNING ` + userTravelColumns

	args := pgx.NamedArgs{
		"user_id":     ut.UserID,
		"travel_id":   ut.TravelID,
		"status":      string(ut.Status),
		"held_amount": ut.HeldAmount,
	}

	result, err := scanUserTravel(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("repo.UserTravelRepo.Create: %w", mapPgError(err, domain.ErrValidation))
	}
	return result, nil
}

const latestUserTravel = `
	SELECT ` + userTravelColumns + `
	FROM user_travels
	WHERE user_id = @user_id AND travel_id = @travel_id
	ORDER BY (status <> 'canceled') DESC, created_at DESC
	LIMIT 1`

func (r *pgUserTravelRepo) GetLatest(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	args := pgx.NamedArgs{"user_id": userID, "travel_id": travelID}

	result, err := scanUserTravel(r.db.QueryRow(ctx, latestUserTravel, args))
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("repo.UserTravelRepo.GetLatest: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgUserTravelRepo) LockLatest(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	args := pgx.NamedArgs{"user_id": userID, "travel_id": travelID}

	result, err := scanUserTravel(r.db.QueryRow(ctx, latestUserTravel+` FOR UPDATE`, args))
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("repo.UserTravelRepo.LockLatest: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgUserTravelRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.UserTravel, error) {
	q := `
		UPDATE user_travels
		SET status = @status, updated_at = now()
		WHERE id = @id
		RETURNING ` + userTravelColumns

	result, err := scanUserTravel(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.UserTravel{}, fmt.Errorf("repo.UserTravelRepo.UpdateStatus: %w", mapPgError(err, domain.ErrInvalidState))
	}
	return result, nil
}

func (r *pgUserTravelRepo) ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.UserTravel, error) {
	q := `
		SELECT ` + userTravelColumns + `
		FROM user_travels
		WHERE travel_id = @travel_id
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"travel_id": travelID})
	if err != nil {
		return nil, fmt.Errorf("repo.UserTravelRepo.ListByTravel: %w", err)
	}
	defer rows.Close()

	var bookings []domain.UserTravel
	for rows.Next() {
		ut, err := scanUserTravel(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.UserTravelRepo.ListByTravel: scan: %w", err)
		}
		bookings = append(bookings, ut)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.UserTravelRepo.ListByTravel: rows: %w", err)
	}
	return bookings, nil
}

func scanUserTravel(s scanner) (domain.UserTravel, error) {
	var (
		ut                   domain.UserTravel
		id, userID, travelID pgtype.UUID
		status               string
	)

	err := s.Scan(&id, &userID, &travelID, &status, &ut.HeldAmount, &ut.CreatedAt, &ut.UpdatedAt)
	if err != nil {
		return domain.UserTravel{}, err
	}

	ut.ID = uuid.UUID(id.Bytes)
	ut.UserID = uuid.UUID(userID.Bytes)
	ut.TravelID = uuid.UUID(travelID.Bytes)
	if ut.Status, err = domain.ParseBookingStatus(status); err != nil {
		return domain.UserTravel{}, err
	}
	return ut, nil
}
