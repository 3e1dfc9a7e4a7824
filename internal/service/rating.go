package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/events"
	"github.com/mobility-sharing/backend/internal/observability"
	"github.com/mobility-sharing/backend/internal/repo"
)

// maxCommentLength caps rating comments, counted in runes.
const maxCommentLength = 1000

// RatingInput is a passenger's rating of a travel's driver.
type RatingInput struct {
	TravelID uuid.UUID
	Rating   int
	Comment  string
}

// RatingService implements the rating ledger.
type RatingService struct {
	store  repo.Store
	events EventPublisher
	now    func() time.Time
}

// NewRatingService constructs a RatingService. pub may be nil.
func NewRatingService(store repo.Store, pub EventPublisher) *RatingService {
	return &RatingService{store: store, events: pub, now: time.Now}
}

// GetUnrated returns the COMPLETED travels userID rode as a confirmed
// passenger and has not rated yet.
func (s *RatingService) GetUnrated(ctx context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	travels, err := s.store.Travels().ListUnratedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.RatingService.GetUnrated: %w", err)
	}
	return nonNil(travels), nil
}

// Submit records ratingUserID's rating of the driver of in.TravelID.
// Returns domain.ErrValidation for a score outside 1..5 or an oversized
// comment, domain.ErrInvalidState if the travel is not COMPLETED,
// domain.ErrUnauthorized if the rater was not a confirmed passenger and
// domain.ErrDuplicate if the rater already rated the travel.
func (s *RatingService) Submit(ctx context.Context, ratingUserID uuid.UUID, in RatingInput) (domain.Rating, error) {
	result, err := s.submit(ctx, ratingUserID, in)
	observability.RatingsSubmitted.WithLabelValues(observability.Outcome(err)).Inc()
	if err != nil {
		return domain.Rating{}, fmt.Errorf("service.RatingService.Submit: %w", err)
	}
	publish(ctx, s.events, events.Event{
		Type:       events.RatingSubmitted,
		TravelID:   result.TravelID,
		UserID:     &result.RatingUserID,
		ActorID:    ratingUserID,
		OccurredAt: s.now(),
	})
	return result, nil
}

func (s *RatingService) submit(ctx context.Context, ratingUserID uuid.UUID, in RatingInput) (domain.Rating, error) {
	if in.Rating < domain.MinRating || in.Rating > domain.MaxRating {
		return domain.Rating{}, fmt.Errorf("%w: rating must be between %d and %d", domain.ErrValidation, domain.MinRating, domain.MaxRating)
	}
	comment := strings.TrimSpace(in.Comment)
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return domain.Rating{}, fmt.Errorf("%w: comment must be at most %d characters", domain.ErrValidation, maxCommentLength)
	}

	t, err := s.store.Travels().GetByID(ctx, in.TravelID)
	if err != nil {
		return domain.Rating{}, err
	}
	if t.Status != domain.TravelCompleted {
		return domain.Rating{}, fmt.Errorf("%w: only completed travels can be rated", domain.ErrInvalidState)
	}

	b, err := s.store.Bookings().GetLatest(ctx, ratingUserID, in.TravelID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Rating{}, fmt.Errorf("%w: only passengers can rate a travel", domain.ErrUnauthorized)
	case err != nil:
		return domain.Rating{}, err
	case b.Status != domain.BookingConfirmed:
		return domain.Rating{}, fmt.Errorf("%w: only confirmed passengers can rate a travel", domain.ErrUnauthorized)
	}

	return s.store.Ratings().Create(ctx, domain.Rating{
		RatingUserID: ratingUserID,
		RatedUserID:  t.DriverID,
		TravelID:     t.ID,
		Rating:       in.Rating,
		Comment:      comment,
	})
}

// GetByID returns the rating with id or domain.ErrNotFound.
func (s *RatingService) GetByID(ctx context.Context, id uuid.UUID) (domain.Rating, error) {
	rt, err := s.store.Ratings().GetByID(ctx, id)
	if err != nil {
		return domain.Rating{}, fmt.Errorf("service.RatingService.GetByID: %w", err)
	}
	return rt, nil
}

// ListGiven returns one page of ratings userID gave, newest first.
func (s *RatingService) ListGiven(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error) {
	items, total, err := s.store.Ratings().ListByRatingUser(ctx, userID, p)
	if err != nil {
		return domain.Page[domain.Rating]{}, fmt.Errorf("service.RatingService.ListGiven: %w", err)
	}
	return domain.Page[domain.Rating]{Items: nonNil(items), Total: total}, nil
}

// ListReceived returns one page of ratings userID received as a driver,
// newest first.
func (s *RatingService) ListReceived(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) (domain.Page[domain.Rating], error) {
	items, total, err := s.store.Ratings().ListByRatedUser(ctx, userID, p)
	if err != nil {
		return domain.Page[domain.Rating]{}, fmt.Errorf("service.RatingService.ListReceived: %w", err)
	}
	return domain.Page[domain.Rating]{Items: nonNil(items), Total: total}, nil
}

// ListByTravel returns every rating of travelID, newest first.
func (s *RatingService) ListByTravel(ctx context.Context, travelID uuid.UUID) ([]domain.Rating, error) {
	ratings, err := s.store.Ratings().ListByTravel(ctx, travelID)
	if err != nil {
		return nil, fmt.Errorf("service.RatingService.ListByTravel: %w", err)
	}
	return nonNil(ratings), nil
}
