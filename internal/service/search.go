package service

import (
	"context"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// Search finds up to req.Limit itineraries between two cities on a day of
// the month, duration-ranked. Direct flights always rank before two-leg
// connections; connections are only fetched when DirectOnly is false and
// fewer than req.Limit direct flights exist, and fill the remaining slots.
//
// Results are numbered from 1 in rank order and cached on the session for
// booking. The previous search's cache is discarded even when this search
// finds nothing. An empty result is a normal outcome, not an error.
//
// Both passes read inside one serializable transaction so the ranking is
// computed against a consistent snapshot.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]Itinerary, error) {
	s.session.resetCache()

	var results []Itinerary
	err := s.runner.InTx(ctx, func(store database.Store) error {
		// A retried attempt must rebuild from fresh reads.
		results = nil

		flights, err := store.FindFlights(ctx, req.OriginCity, req.DestCity, req.Day, req.Limit)
		if err != nil {
			return err
		}
		for _, f := range flights {
			results = append(results, Itinerary{
				Index:     len(results) + 1,
				Day:       req.Day,
				TotalTime: f.Duration,
				Flights:   []database.Flight{f},
			})
		}

		remaining := req.Limit - len(results)
		if req.DirectOnly || remaining <= 0 {
			return nil
		}

		conns, err := store.FindConnections(ctx, req.OriginCity, req.DestCity, req.Day, remaining)
		if err != nil {
			return err
		}
		for _, c := range conns {
			results = append(results, Itinerary{
				Index:     len(results) + 1,
				Day:       req.Day,
				TotalTime: c.TotalTime,
				Flights:   []database.Flight{c.First, c.Second},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, it := range results {
		cached := cachedItinerary{fid1: it.Flights[0].Fid, day: it.Day}
		if len(it.Flights) == 2 {
			fid2 := it.Flights[1].Fid
			cached.fid2 = &fid2
		}
		s.session.itineraries[it.Index] = cached
	}
	s.session.nextIndex = len(results) + 1

	return results, nil
}
