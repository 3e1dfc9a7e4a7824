package domain

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a passenger's score for the driver of a completed travel.
// There is at most one rating per (RatingUserID, TravelID).
type Rating struct {
	ID           uuid.UUID
	RatingUserID uuid.UUID
	RatedUserID  uuid.UUID
	TravelID     uuid.UUID
	Rating       int
	Comment      string
	CreatedAt    time.Time
}

// MinRating and MaxRating bound Rating.Rating.
const (
	MinRating = 1
	MaxRating = 5
)
