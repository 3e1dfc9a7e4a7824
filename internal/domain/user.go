package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of the service. Any user can drive or ride.
//
// RupeeWallet is the spendable balance; ReservedRupees is the part of it held
// by pending bookings. Both are never negative and Reserved never exceeds
// the wallet.
type User struct {
	ID             uuid.UUID
	Name           string
	Email          string
	Username       string
	RupeeWallet    int64
	ReservedRupees int64
	EcoRank        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Available is the balance a new booking may reserve.
func (u User) Available() int64 {
	return u.RupeeWallet - u.ReservedRupees
}

// DefaultEcoRank is assigned to new users.
const DefaultEcoRank = "SEED"

// Session identifies the user acting on a request.
type Session struct {
	UserID uuid.UUID
}
