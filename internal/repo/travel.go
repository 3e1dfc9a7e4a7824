package repo

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mobility-sharing/backend/internal/domain"
)

// TravelRepo defines the persistence operations for Travels.
type TravelRepo interface {
	// Create inserts a new travel and returns the persisted record (with
	// DB-generated id, created_at and updated_at populated).
	Create(ctx context.Context, t domain.Travel) (domain.Travel, error)

	// GetByID retrieves a single travel. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Travel, error)

	// LockByID is GetByID with a row lock held until the transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (domain.Travel, error)

	// ListByIDs returns the travels with the given ids in departure order.
	// Unknown ids are silently absent from the result.
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Travel, error)

	// UpdateStatus sets the status and returns the updated record.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TravelStatus) (domain.Travel, error)

	// ListByRoute streams travels whose origin contains origin and, when
	// destination is non-empty, whose destination contains destination.
	// Matching is case-insensitive. Each range over the result runs a new query.
	ListByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error]

	// ListByDriver returns every travel the user drives, most recent first.
	ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error)

	// ListEnrolledByUser returns travels the user holds a non-canceled booking on.
	ListEnrolledByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)

	// ListUnratedByUser returns COMPLETED travels the user rode as a
	// confirmed passenger and has not rated yet.
	ListUnratedByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error)
}

type pgTravelRepo struct {
	db db
}

// NewTravelRepo constructs a TravelRepo backed by the provided db connection.
func NewTravelRepo(db db) TravelRepo {
	return &pgTravelRepo{db: db}
}

const travelColumns = `
	t.id, t.driver_id, t.origin, t.destination, t.travel_date, t.travel_time, t.price, t.status,
	t.recurrence_id, t.origin_latitude, t.origin_longitude, t.destination_latitude,
	t.destination_longitude, t.created_at, t.updated_at`

func (r *pgTravelRepo) Create(ctx context.Context, t domain.Travel) (domain.Travel, error) {
	q := `
		INSERT INTO travels AS t (driver_id, origin, destination, travel_date, travel_time, price, status,
			recurrence_id, origin_latitude, origin_longitude, destination_latitude, destination_longitude)
		VALUES (@driver_id, @origin, @destination, @travel_date, @travel_time, @price, @status,
			@recurrence_id, @origin_latitude, @origin_longitude, @destination_latitude, @destination_longitude)
		RETURNING ` + travelColumns

	args := pgx.NamedArgs{
		"driver_id":     t.DriverID,
		"origin":        t.Origin,
		"destination":   t.Destination,
		"travel_date":   pgtype.Date{Time: t.Date, Valid: true},
		"travel_time":   pgtype.Time{Microseconds: time.Duration(t.Time).Microseconds(), Valid: true},
		"price":         t.Price,
		"status":        string(t.Status),
		"recurrence_id": t.RecurrenceID, // nil becomes NULL
	}
	var oLat, oLon, dLat, dLon *float64
	if t.OriginCoords != nil && t.DestinationCoords != nil {
		oLat, oLon = &t.OriginCoords.Latitude, &t.OriginCoords.Longitude
		dLat, dLon = &t.DestinationCoords.Latitude, &t.DestinationCoords.Longitude
	}
	args["origin_latitude"], args["origin_longitude"] = oLat, oLon
	args["destination_latitude"], args["destination_longitude"] = dLat, dLon

	result, err := scanTravel(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Travel{}, fmt.Errorf("repo.TravelRepo.Create: %w", mapPgError(err, domain.ErrValidation))
	}
	return result, nil
}

func (r *pgTravelRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Travel, error) {
	q := `SELECT ` + travelColumns + ` FROM travels t WHERE t.id = @id`

	result, err := scanTravel(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Travel{}, fmt.Errorf("repo.TravelRepo.GetByID: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgTravelRepo) LockByID(ctx context.Context, id uuid.UUID) (domain.Travel, error) {
	q := `SELECT ` + travelColumns + ` FROM travels t WHERE t.id = @id FOR UPDATE`

	result, err := scanTravel(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Travel{}, fmt.Errorf("repo.TravelRepo.LockByID: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgTravelRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Travel, error) {
	q := `SELECT ` + travelColumns + `
		FROM travels t
		WHERE t.id = ANY(@ids)
		ORDER BY t.travel_date, t.travel_time`

	travels, err := r.list(ctx, q, pgx.NamedArgs{"ids": ids})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelRepo.ListByIDs: %w", err)
	}
	return travels, nil
}

func (r *pgTravelRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TravelStatus) (domain.Travel, error) {
	q := `
		UPDATE travels AS t
		SET status = @status, updated_at = now()
		WHERE t.id = @id
		RETURNING ` + travelColumns

	result, err := scanTravel(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "status": string(status)}))
	if err != nil {
		return domain.Travel{}, fmt.Errorf("repo.TravelRepo.UpdateStatus: %w", mapPgError(err, domain.ErrInvalidState))
	}
	return result, nil
}

func (r *pgTravelRepo) ListByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error] {
	q := `SELECT ` + travelColumns + `
		FROM travels t
		WHERE lower(t.origin) LIKE @origin ESCAPE '\'
		  AND (@any_destination OR lower(t.destination) LIKE @destination ESCAPE '\')
		ORDER BY t.travel_date, t.travel_time`

	args := pgx.NamedArgs{
		"origin":          containsPattern(origin),
		"destination":     containsPattern(destination),
		"any_destination": destination == "",
	}

	return func(yield func(domain.Travel, error) bool) {
		rows, err := r.db.Query(ctx, q, args)
		if err != nil {
			yield(domain.Travel{}, fmt.Errorf("repo.TravelRepo.ListByRoute: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTravel(rows)
			if err != nil {
				yield(domain.Travel{}, fmt.Errorf("repo.TravelRepo.ListByRoute: scan: %w", err))
				return
			}
			if !yield(t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Travel{}, fmt.Errorf("repo.TravelRepo.ListByRoute: rows: %w", err))
		}
	}
}

func (r *pgTravelRepo) ListByDriver(ctx context.Context, driverID uuid.UUID) ([]domain.Travel, error) {
	q := `SELECT ` + travelColumns + `
		FROM travels t
		WHERE t.driver_id = @driver_id
		ORDER BY t.travel_date DESC, t.travel_time DESC`

	travels, err := r.list(ctx, q, pgx.NamedArgs{"driver_id": driverID})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelRepo.ListByDriver: %w", err)
	}
	return travels, nil
}

func (r *pgTravelRepo) ListEnrolledByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	q := `SELECT ` + travelColumns + `
		FROM travels t
		JOIN user_travels ut ON ut.travel_id = t.id
		WHERE ut.user_id = @user_id AND ut.status <> 'canceled'
		ORDER BY t.travel_date DESC, t.travel_time DESC`

	travels, err := r.list(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelRepo.ListEnrolledByUser: %w", err)
	}
	return travels, nil
}

func (r *pgTravelRepo) ListUnratedByUser(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	q := `SELECT ` + travelColumns + `
		FROM travels t
		JOIN user_travels ut ON ut.travel_id = t.id
		WHERE ut.user_id = @user_id
		  AND ut.status = 'confirmed'
		  AND t.status = 'COMPLETED'
		  AND NOT EXISTS (
			SELECT 1 FROM ratings rt
			WHERE rt.rating_user_id = @user_id AND rt.travel_id = t.id
		  )
		ORDER BY t.travel_date DESC, t.travel_time DESC`

	travels, err := r.list(ctx, q, pgx.NamedArgs{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("repo.TravelRepo.ListUnratedByUser: %w", err)
	}
	return travels, nil
}

func (r *pgTravelRepo) list(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Travel, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var travels []domain.Travel
	for rows.Next() {
		t, err := scanTravel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		travels = append(travels, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return travels, nil
}

// scanTravel maps a single database row into a domain.Travel.
// It handles the UUID, DATE, TIME and nullable coordinate conversions.
func scanTravel(s scanner) (domain.Travel, error) {
	var (
		t                      domain.Travel
		id, driverID, recurID  pgtype.UUID
		date                   pgtype.Date
		tod                    pgtype.Time
		status                 string
		oLat, oLon, dLat, dLon *float64
	)

	err := s.Scan(&id, &driverID, &t.Origin, &t.Destination, &date, &tod, &t.Price, &status,
		&recurID, &oLat, &oLon, &dLat, &dLon, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Travel{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.DriverID = uuid.UUID(driverID.Bytes)
	t.Date = domain.DateOf(date.Time)
	t.Time = domain.TimeOfDay(time.Duration(tod.Microseconds) * time.Microsecond)
	if t.Status, err = domain.ParseTravelStatus(status); err != nil {
		return domain.Travel{}, err
	}
	if recurID.Valid {
		rid := uuid.UUID(recurID.Bytes)
		t.RecurrenceID = &rid
	}
	if oLat != nil && oLon != nil && dLat != nil && dLon != nil {
		t.OriginCoords = &domain.Coordinates{Latitude: *oLat, Longitude: *oLon}
		t.DestinationCoords = &domain.Coordinates{Latitude: *dLat, Longitude: *dLon}
	}

	return t, nil
}
