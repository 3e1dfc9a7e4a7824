package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mobility-sharing/backend/internal/domain"
)

// EcoRepo reads the trip history the eco-incentive projection is computed from.
type EcoRepo interface {
	// History returns every travel the user drove (with its confirmed
	// passenger count) and every confirmed booking the user holds as a passenger.
	History(ctx context.Context, userID uuid.UUID) (domain.EcoHistory, error)
}

type pgEcoRepo struct {
	db db
}

// NewEcoRepo constructs an EcoRepo backed by the provided db connection.
func NewEcoRepo(db db) EcoRepo {
	return &pgEcoRepo{db: db}
}

func (r *pgEcoRepo) History(ctx context.Context, userID uuid.UUID) (domain.EcoHistory, error) {
	const drivenQ = `
		SELECT t.travel_date, t.status, count(ut.id) FILTER (WHERE ut.status = 'confirmed')
		FROM travels t
		LEFT JOIN user_travels ut ON ut.travel_id = t.id
		WHERE t.driver_id = @user_id
		GROUP BY t.id`

	const ridesQ = `
		SELECT t.travel_date, t.status
		FROM user_travels ut
		JOIN travels t ON t.id = ut.travel_id
		WHERE ut.user_id = @user_id AND ut.status = 'confirmed'`

	args := pgx.NamedArgs{"user_id": userID}
	var h domain.EcoHistory

	rows, err := r.db.Query(ctx, drivenQ, args)
	if err != nil {
		return domain.EcoHistory{}, fmt.Errorf("repo.EcoRepo.History: driven: %w", err)
	}
	h.Driven, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.DrivenTrip, error) {
		var (
			date       pgtype.Date
			status     string
			passengers int64
		)
		if err := row.Scan(&date, &status, &passengers); err != nil {
			return domain.DrivenTrip{}, err
		}
		st, err := domain.ParseTravelStatus(status)
		return domain.DrivenTrip{Date: domain.DateOf(date.Time), Status: st, Passengers: int(passengers)}, err
	})
	if err != nil {
		return domain.EcoHistory{}, fmt.Errorf("repo.EcoRepo.History: driven: %w", err)
	}

	rows, err = r.db.Query(ctx, ridesQ, args)
	if err != nil {
		return domain.EcoHistory{}, fmt.Errorf("repo.EcoRepo.History: rides: %w", err)
	}
	h.Rides, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Ride, error) {
		var (
			date   pgtype.Date
			status string
		)
		if err := row.Scan(&date, &status); err != nil {
			return domain.Ride{}, err
		}
		st, err := domain.ParseTravelStatus(status)
		return domain.Ride{Date: domain.DateOf(date.Time), Status: st}, err
	})
	if err != nil {
		return domain.EcoHistory{}, fmt.Errorf("repo.EcoRepo.History: rides: %w", err)
	}

	return h, nil
}
