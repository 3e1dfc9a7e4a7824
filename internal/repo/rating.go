package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mobility-sharing/backend/internal/domain"
)

// RatingRepo defines the persistence operations for Ratings.
type RatingRepo interface {
	// Create inserts a rating. Returns domain.ErrDuplicate when the rating
	// user already rated the travel.
	Create(ctx context.Context, rt domain.Rating) (domain.Rating, error)

	// GetByID returns domain.ErrNotFound when no rating has id.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error)

	// ListByRatingUser returns one page of ratings the user gave, newest first,
	// and the total count.
	ListByRatingUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error)

	// ListByRatedUser returns one page of ratings the user received, newest
	// first, and the total count.
	ListByRatedUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error)

	// ListByTravel returns every rating of a travel, newest first.
	ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error)
}

type pgRatingRepo struct {
	db db
}

// NewRatingRepo constructs a RatingRepo backed by the provided db connection.
func NewRatingRepo(db db) RatingRepo {
	return &pgRatingRepo{db: db}
}

const ratingColumns = `id, rating_user_id, rated_user_id, travel_id, rating, comment, created_at`

func (r *pgRatingRepo) Create(ctx context.Context, rt domain.Rating) (domain.Rating, error) {
	q := `
		INSERT INTO ratings (rating_user_id, rated_user_id, travel_id, rating, comment)
		VALUES (@rating_user_id, @rated_user_id, @travel_id, @rating, @comment)
		RETURNING ` + ratingColumns

	args := pgx.NamedArgs{
		"rating_user_id": rt.RatingUserID,
		"rated_user_id":  rt.RatedUserID,
		"travel_id":      rt.TravelID,
		"rating":         rt.Rating,
		"comment":        rt.Comment,
	}

	result, err := scanRating(r.db.QueryRow(ctx, q, args), nil)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("repo.RatingRepo.Create: %w", mapPgError(err, domain.ErrValidation))
	}
	return result, nil
}

func (r *pgRatingRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error) {
	q := `SELECT ` + ratingColumns + ` FROM ratings WHERE id = @id`

	result, err := scanRating(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}), nil)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("repo.RatingRepo.GetByID: %w", mapPgError(err, nil))
	}
	return result, nil
}

func (r *pgRatingRepo) ListByRatingUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	ratings, total, err := r.page(ctx, "rating_user_id", userID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.RatingRepo.ListByRatingUser: %w", err)
	}
	return ratings, total, nil
}

func (r *pgRatingRepo) ListByRatedUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	ratings, total, err := r.page(ctx, "rated_user_id", userID, p)
	if err != nil {
		return nil, 0, fmt.Errorf("repo.RatingRepo.ListByRatedUser: %w", err)
	}
	return ratings, total, nil
}

// page lists ratings filtered on column, which must be a trusted column name.
func (r *pgRatingRepo) page(ctx context.Context, column string, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	q := `
		SELECT ` + ratingColumns + `, count(*) OVER () AS total
		FROM ratings
		WHERE ` + column + ` = @user_id
		ORDER BY created_at DESC
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"user_id": userID, "limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		ratings []domain.Rating
		total   int64
	)
	for rows.Next() {
		rt, err := scanRating(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows: %w", err)
	}
	return ratings, total, nil
}

func (r *pgRatingRepo) ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error) {
	q := `
		SELECT ` + ratingColumns + `
		FROM ratings
		WHERE travel_id = @travel_id
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"travel_id": travelID})
	if err != nil {
		return nil, fmt.Errorf("repo.RatingRepo.ListByTravel: %w", err)
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		rt, err := scanRating(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("repo.RatingRepo.ListByTravel: scan: %w", err)
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.RatingRepo.ListByTravel: rows: %w", err)
	}
	return ratings, nil
}

// scanRating maps a ratings row. When total is non-nil the row carries a
// trailing window count that is scanned into it.
func scanRating(s scanner, total *int64) (domain.Rating, error) {
	var (
		rt                          domain.Rating
		id, raterID, ratedID, trvID pgtype.UUID
		score                       int16
	)

	dest := []any{&id, &raterID, &ratedID, &trvID, &score, &rt.Comment, &rt.CreatedAt}
	if total != nil {
		dest = append(dest, total)
	}
	if err := s.Scan(dest...); err != nil {
		return domain.Rating{}, err
	}

	rt.ID = uuid.UUID(id.Bytes)
	rt.RatingUserID = uuid.UUID(raterID.Bytes)
	rt.RatedUserID = uuid.UUID(ratedID.Bytes)
	rt.TravelID = uuid.UUID(trvID.Bytes)
	rt.Rating = int(score)
	return rt, nil
}
