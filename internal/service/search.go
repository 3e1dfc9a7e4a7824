package service

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"

	"github.com/mobility-sharing/backend/internal/domain"
)

// RouteFinder streams travels matching a route. Implemented by TravelService.
type RouteFinder interface {
	FindByRoute(ctx context.Context, origin, destination string) iter.Seq2[domain.Travel, error]
}

// GroupBooker books several travels for one user. Implemented by BookingService.
type GroupBooker interface {
	BookGroup(ctx context.Context, travelIDs []uuid.UUID, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error)
}

// SearchService turns route matches into bookable groups.
type SearchService struct {
	finder RouteFinder
	booker GroupBooker
}

// NewSearchService constructs a SearchService.
func NewSearchService(finder RouteFinder, booker GroupBooker) *SearchService {
	return &SearchService{finder: finder, booker: booker}
}

// Search returns the ACTIVE travels matching the route, grouped by
// recurrence series. See GroupTravels for ordering.
func (s *SearchService) Search(ctx context.Context, origin, destination string) ([]domain.TravelGroup, error) {
	var active []domain.Travel
	for t, err := range s.finder.FindByRoute(ctx, origin, destination) {
		if err != nil {
			return nil, fmt.Errorf("service.SearchService.Search: %w", err)
		}
		if t.Status == domain.TravelActive {
			active = append(active, t)
		}
	}
	return GroupTravels(active), nil
}

// BookAllInGroup books every member of group for userID.
func (s *SearchService) BookAllInGroup(ctx context.Context, group domain.TravelGroup, userID uuid.UUID, compensate bool) (domain.GroupBookingResult, error) {
	result, err := s.booker.BookGroup(ctx, group.TravelIDs(), userID, compensate)
	if err != nil {
		return domain.GroupBookingResult{}, fmt.Errorf("service.SearchService.BookAllInGroup: %w", err)
	}
	return result, nil
}

// GroupTravels partitions travels by RecurrenceID. Travels without one form
// singleton groups. Members are sorted by date then time, and groups by their
// first member the same way. Always returns a non-nil slice.
func GroupTravels(travels []domain.Travel) []domain.TravelGroup {
	groups := []domain.TravelGroup{}
	index := make(map[uuid.UUID]int)
	for _, t := range travels {
		if t.RecurrenceID == nil {
			groups = append(groups, domain.TravelGroup{Travels: []domain.Travel{t}})
			continue
		}
		i, ok := index[*t.RecurrenceID]
		if !ok {
			id := *t.RecurrenceID
			i = len(groups)
			index[id] = i
			groups = append(groups, domain.TravelGroup{RecurrenceID: &id})
		}
		groups[i].Travels = append(groups[i].Travels, t)
	}

	for _, g := range groups {
		slices.SortStableFunc(g.Travels, compareDeparture)
	}
	slices.SortStableFunc(groups, func(a, b domain.TravelGroup) int {
		return compareDeparture(a.Travels[0], b.Travels[0])
	})
	return groups
}

func compareDeparture(a, b domain.Travel) int {
	switch {
	case a.DepartsBefore(b):
		return -1
	case b.DepartsBefore(a):
		return 1
	}
	return 0
}
