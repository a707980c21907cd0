package service

import (
	"context"
	"fmt"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// Book reserves the itinerary the last search cached under the given
// index. The caller must be logged in and the index must belong to the
// current search results; both are checked before any transaction opens.
//
// Inside one serializable transaction it verifies every leg still has a
// free seat, that the user holds no other reservation on that day, assigns
// the next reservation id for the user, inserts the reservation, and
// increments each leg's taken-seat count. Concurrent bookings racing for
// the last seat serialize so that exactly one commits; the loser sees
// either FlightFullError or a retried attempt that then reads the flight
// as full.
func (s *Service) Book(ctx context.Context, itineraryIndex int) (*BookingConfirmation, error) {
	if !s.session.authenticated {
		return nil, ErrAuthRequired
	}
	it, ok := s.session.itineraries[itineraryIndex]
	if !ok {
		return nil, ErrInvalidItinerary
	}

	legs := []int{it.fid1}
	if it.fid2 != nil {
		legs = append(legs, *it.fid2)
	}

	var conf *BookingConfirmation
	err := s.runner.InTx(ctx, func(store database.Store) error {
		taken := make(map[int]int, len(legs))
		for _, fid := range legs {
			seats, err := store.GetCapacity(ctx, fid)
			if err != nil {
				return fmt.Errorf("capacity for flight %d: %w", fid, err)
			}
			if seats.TakenSeats >= seats.MaxSeats {
				return &FlightFullError{Fid: fid}
			}
			taken[fid] = seats.TakenSeats
		}

		days, err := store.ReservationDaysForUser(ctx, s.session.username)
		if err != nil {
			return err
		}
		for _, day := range days {
			if day == it.day {
				return ErrDayConflict
			}
		}

		maxRid, err := store.MaxReservationID(ctx, s.session.username)
		if err != nil {
			return err
		}
		rid := maxRid + 1

		err = store.InsertReservation(ctx, database.Reservation{
			Username: s.session.username,
			Rid:      rid,
			Fid1:     it.fid1,
			Fid2:     it.fid2,
			Day:      it.day,
		})
		if err != nil {
			return err
		}

		for _, fid := range legs {
			if err := store.SetTakenSeats(ctx, fid, taken[fid]+1); err != nil {
				return err
			}
		}

		conf = &BookingConfirmation{
			ReservationID: rid,
			Fid1:          it.fid1,
			Fid2:          it.fid2,
			Day:           it.day,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conf, nil
}
