package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/repo"
	"github.com/mobility-sharing/backend/testutil"
)

func newTestStore(t *testing.T) repo.Store {
	t.Helper()
	return testutil.NewTxStore(t)
}

func createUser(t *testing.T, s repo.Store, wallet int64) domain.User {
	t.Helper()
	u, err := s.Users().Create(context.Background(), domain.User{
		Name:        "Test User",
		Email:       "user@example.com",
		Username:    "user-" + uuid.NewString()[:8],
		RupeeWallet: wallet,
		EcoRank:     domain.DefaultEcoRank,
	})
	require.NoError(t, err)
	return u
}

func travelFixture(driverID uuid.UUID) domain.Travel {
	return domain.Travel{
		DriverID:    driverID,
		Origin:      "Granada",
		Destination: "Madrid",
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Time:        domain.TimeOfDay(8*time.Hour + 30*time.Minute),
		Price:       10,
		Status:      domain.TravelActive,
	}
}

func createTravel(t *testing.T, s repo.Store, tr domain.Travel) domain.Travel {
	t.Helper()
	got, err := s.Travels().Create(context.Background(), tr)
	require.NoError(t, err)
	return got
}
