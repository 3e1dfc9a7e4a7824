package service_test

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
	"github.com/mobility-sharing/backend/internal/repo"
)

// memStore is an in-memory repo.Store. WithinTx snapshots every table and
// restores the snapshot when fn fails, so tests observe all-or-nothing
// behaviour the way they would against Postgres.
type memStore struct {
	mu       sync.Mutex
	travels  map[uuid.UUID]domain.Travel
	bookings map[uuid.UUID]domain.UserTravel
	users    map[uuid.UUID]domain.User
	ratings  map[uuid.UUID]domain.Rating
	seq      int

	// failTravelCreate, when set, is consulted before every travel insert.
	failTravelCreate func(n int) error
	travelCreates    int
}

func newMemStore() *memStore {
	return &memStore{
		travels:  map[uuid.UUID]domain.Travel{},
		bookings: map[uuid.UUID]domain.UserTravel{},
		users:    map[uuid.UUID]domain.User{},
		ratings:  map[uuid.UUID]domain.Rating{},
	}
}

var _ repo.Store = (*memStore)(nil)

func (s *memStore) Travels() repo.TravelRepo      { return memTravels{s} }
func (s *memStore) Bookings() repo.UserTravelRepo { return memBookings{s} }
func (s *memStore) Users() repo.UserRepo          { return memUsers{s} }
func (s *memStore) Ratings() repo.RatingRepo      { return memRatings{s} }
func (s *memStore) Eco() repo.EcoRepo             { return memEco{s} }

func (s *memStore) WithinTx(_ context.Context, fn func(repo.Store) error) error {
	s.mu.Lock()
	travels, bookings, users, ratings := maps.Clone(s.travels), maps.Clone(s.bookings), maps.Clone(s.users), maps.Clone(s.ratings)
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.travels, s.bookings, s.users, s.ratings = travels, bookings, users, ratings
		s.mu.Unlock()
		return err
	}
	return nil
}

// stamp returns a strictly increasing timestamp so creation order is stable.
func (s *memStore) stamp() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Second)
}

// ---- seeding helpers -------------------------------------------------------

func (s *memStore) addUser(wallet int64) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := domain.User{ID: uuid.New(), Name: "user", Username: uuid.NewString(), RupeeWallet: wallet, EcoRank: domain.DefaultEcoRank}
	s.users[u.ID] = u
	return u
}

func (s *memStore) addTravel(t domain.Travel) domain.Travel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = domain.TravelActive
	}
	if t.Origin == "" {
		t.Origin, t.Destination = "Granada", "Madrid"
	}
	t.CreatedAt = s.stamp()
	s.travels[t.ID] = t
	return t
}

func (s *memStore) user(id uuid.UUID) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *memStore) travel(id uuid.UUID) domain.Travel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.travels[id]
}

// ---- travels ---------------------------------------------------------------

type memTravels struct{ s *memStore }

func (r memTravels) Create(_ context.Context, t domain.Travel) (domain.Travel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.travelCreates++
	if r.s.failTravelCreate != nil {
		if err := r.s.failTravelCreate(r.s.travelCreates); err != nil {
			return domain.Travel{}, err
		}
	}
	t.ID = uuid.New()
	t.CreatedAt = r.s.stamp()
	t.UpdatedAt = t.CreatedAt
	r.s.travels[t.ID] = t
	return t, nil
}

func (r memTravels) GetByID(_ context.Context, id uuid.UUID) (domain.Travel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.travels[id]
	if !ok {
		return domain.Travel{}, domain.ErrNotFound
	}
	return t, nil
}

func (r memTravels) LockByID(ctx context.Context, id uuid.UUID) (domain.Travel, error) {
	return r.GetByID(ctx, id)
}

func (r memTravels) ListByIDs(_ context.Context, ids []uuid.UUID) ([]domain.Travel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Travel
	for _, id := range ids {
		if t, ok := r.s.travels[id]; ok {
			out = append(out, t)
		}
	}
	sortDeparture(out)
	return out, nil
}

func (r memTravels) UpdateStatus(_ context.Context, id uuid.UUID, status domain.TravelStatus) (domain.Travel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.travels[id]
	if !ok {
		return domain.Travel{}, domain.ErrNotFound
	}
	t.Status = status
	r.s.travels[id] = t
	return t, nil
}

func (r memTravels) ListByRoute(_ context.Context, origin, destination string) iter.Seq2[domain.Travel, error] {
	return func(yield func(domain.Travel, error) bool) {
		r.s.mu.Lock()
		var matches []domain.Travel
		for _, t := range r.s.travels {
			if containsFold(t.Origin, origin) && (destination == "" || containsFold(t.Destination, destination)) {
				matches = append(matches, t)
			}
		}
		r.s.mu.Unlock()
		sortDeparture(matches)
		for _, t := range matches {
			if !yield(t, nil) {
				return
			}
		}
	}
}

func (r memTravels) ListByDriver(_ context.Context, driverID uuid.UUID) ([]domain.Travel, error) {
	return r.filter(func(t domain.Travel) bool { return t.DriverID == driverID }), nil
}

func (r memTravels) ListEnrolledByUser(_ context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	enrolled := r.s.bookedTravels(userID, func(b domain.UserTravel) bool { return b.Status.Active() })
	return r.filter(func(t domain.Travel) bool { return enrolled[t.ID] }), nil
}

func (r memTravels) ListUnratedByUser(_ context.Context, userID uuid.UUID) ([]domain.Travel, error) {
	confirmed := r.s.bookedTravels(userID, func(b domain.UserTravel) bool { return b.Status == domain.BookingConfirmed })
	r.s.mu.Lock()
	rated := map[uuid.UUID]bool{}
	for _, rt := range r.s.ratings {
		if rt.RatingUserID == userID {
			rated[rt.TravelID] = true
		}
	}
	r.s.mu.Unlock()
	return r.filter(func(t domain.Travel) bool {
		return t.Status == domain.TravelCompleted && confirmed[t.ID] && !rated[t.ID]
	}), nil
}

func (r memTravels) filter(keep func(domain.Travel) bool) []domain.Travel {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Travel
	for _, t := range r.s.travels {
		if keep(t) {
			out = append(out, t)
		}
	}
	sortDeparture(out)
	return out
}

func (s *memStore) bookedTravels(userID uuid.UUID, keep func(domain.UserTravel) bool) map[uuid.UUID]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uuid.UUID]bool{}
	for _, b := range s.bookings {
		if b.UserID == userID && keep(b) {
			out[b.TravelID] = true
		}
	}
	return out
}

func sortDeparture(ts []domain.Travel) {
	slices.SortFunc(ts, func(a, b domain.Travel) int {
		switch {
		case a.DepartsBefore(b):
			return -1
		case b.DepartsBefore(a):
			return 1
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ---- bookings --------------------------------------------------------------

type memBookings struct{ s *memStore }

func (r memBookings) Create(_ context.Context, ut domain.UserTravel) (domain.UserTravel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.UserID == ut.UserID && b.TravelID == ut.TravelID && b.Status.Active() {
			return domain.UserTravel{}, domain.ErrDuplicate
		}
	}
	ut.ID = uuid.New()
	ut.CreatedAt = r.s.stamp()
	ut.UpdatedAt = ut.CreatedAt
	r.s.bookings[ut.ID] = ut
	return ut, nil
}

func (r memBookings) GetLatest(_ context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var (
		latest domain.UserTravel
		found  bool
	)
	for _, b := range r.s.bookings {
		if b.UserID != userID || b.TravelID != travelID {
			continue
		}
		switch {
		case !found,
			b.Status.Active() && !latest.Status.Active(),
			b.Status.Active() == latest.Status.Active() && b.CreatedAt.After(latest.CreatedAt):
			latest, found = b, true
		}
	}
	if !found {
		return domain.UserTravel{}, domain.ErrNotFound
	}
	return latest, nil
}

func (r memBookings) LockLatest(ctx context.Context, userID, travelID uuid.UUID) (domain.UserTravel, error) {
	return r.GetLatest(ctx, userID, travelID)
}

func (r memBookings) UpdateStatus(_ context.Context, id uuid.UUID, status domain.BookingStatus) (domain.UserTravel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return domain.UserTravel{}, domain.ErrNotFound
	}
	b.Status = status
	r.s.bookings[id] = b
	return b, nil
}

func (r memBookings) ListByTravel(_ context.Context, travelID uuid.UUID) ([]domain.UserTravel, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.UserTravel
	for _, b := range r.s.bookings {
		if b.TravelID == travelID {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b domain.UserTravel) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

// ---- users -----------------------------------------------------------------

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.users {
		if other.Username == u.Username {
			return domain.User{}, domain.ErrDuplicate
		}
	}
	u.ID = uuid.New()
	r.s.users[u.ID] = u
	return u, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (r memUsers) LockByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) UpdateProfile(_ context.Context, u domain.User) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	cur.Name, cur.Email, cur.Username = u.Name, u.Email, u.Username
	r.s.users[u.ID] = cur
	return cur, nil
}

// ApplyWalletChange mirrors the users table CHECK constraints.
func (r memUsers) ApplyWalletChange(_ context.Context, id uuid.UUID, c domain.WalletChange) (domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u.RupeeWallet += c.Wallet
	u.ReservedRupees += c.Reserved
	if u.RupeeWallet < 0 || u.ReservedRupees < 0 || u.ReservedRupees > u.RupeeWallet {
		return domain.User{}, domain.ErrInsufficientFunds
	}
	r.s.users[id] = u
	return u, nil
}

// ---- ratings ---------------------------------------------------------------

type memRatings struct{ s *memStore }

func (r memRatings) Create(_ context.Context, rt domain.Rating) (domain.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, other := range r.s.ratings {
		if other.RatingUserID == rt.RatingUserID && other.TravelID == rt.TravelID {
			return domain.Rating{}, domain.ErrDuplicate
		}
	}
	rt.ID = uuid.New()
	rt.CreatedAt = r.s.stamp()
	r.s.ratings[rt.ID] = rt
	return rt, nil
}

func (r memRatings) GetByID(_ context.Context, id uuid.UUID) (domain.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.ratings[id]
	if !ok {
		return domain.Rating{}, domain.ErrNotFound
	}
	return rt, nil
}

func (r memRatings) ListByRatingUser(_ context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	return r.page(func(rt domain.Rating) bool { return rt.RatingUserID == userID }, p)
}

func (r memRatings) ListByRatedUser(_ context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	return r.page(func(rt domain.Rating) bool { return rt.RatedUserID == userID }, p)
}

func (r memRatings) ListByTravel(_ context.Context, travelID uuid.UUID) ([]domain.Rating, error) {
	items, _, err := r.page(func(rt domain.Rating) bool { return rt.TravelID == travelID }, domain.PaginationParams{Page: 1, Limit: 1 << 30})
	return items, err
}

func (r memRatings) page(keep func(domain.Rating) bool, p domain.PaginationParams) ([]domain.Rating, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []domain.Rating
	for _, rt := range r.s.ratings {
		if keep(rt) {
			all = append(all, rt)
		}
	}
	slices.SortFunc(all, func(a, b domain.Rating) int { return b.CreatedAt.Compare(a.CreatedAt) })
	total := int64(len(all))
	start := min(p.Offset(), len(all))
	end := min(start+p.Limit, len(all))
	return all[start:end], total, nil
}

// ---- eco -------------------------------------------------------------------

type memEco struct{ s *memStore }

func (r memEco) History(_ context.Context, userID uuid.UUID) (domain.EcoHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var h domain.EcoHistory
	for _, t := range r.s.travels {
		if t.DriverID != userID {
			continue
		}
		n := 0
		for _, b := range r.s.bookings {
			if b.TravelID == t.ID && b.Status == domain.BookingConfirmed {
				n++
			}
		}
		h.Driven = append(h.Driven, domain.DrivenTrip{Date: t.Date, Status: t.Status, Passengers: n})
	}
	for _, b := range r.s.bookings {
		if b.UserID == userID && b.Status == domain.BookingConfirmed {
			t := r.s.travels[b.TravelID]
			h.Rides = append(h.Rides, domain.Ride{Date: t.Date, Status: t.Status})
		}
	}
	return h, nil
}

// ---- collaborators ---------------------------------------------------------

var errBoom = errors.New("boom")
