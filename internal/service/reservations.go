package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// Reservations lists the logged-in user's reservations with each leg's
// flight details hydrated for display. An empty list is a normal outcome.
func (s *Service) Reservations(ctx context.Context) ([]ReservationDetail, error) {
	if !s.session.authenticated {
		return nil, ErrAuthRequired
	}

	var details []ReservationDetail
	err := s.runner.InTx(ctx, func(store database.Store) error {
		details = nil

		reservations, err := store.ReservationsForUser(ctx, s.session.username)
		if err != nil {
			return err
		}
		for _, res := range reservations {
			detail := ReservationDetail{
				ReservationID: res.Rid,
				Day:           res.Day,
			}
			fids := []int{res.Fid1}
			if res.Fid2 != nil {
				fids = append(fids, *res.Fid2)
			}
			for _, fid := range fids {
				flight, err := store.GetFlightDetails(ctx, fid)
				if err != nil {
					return fmt.Errorf("flight %d for reservation %d: %w", fid, res.Rid, err)
				}
				detail.Flights = append(detail.Flights, *flight)
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// Cancel deletes the logged-in user's reservation with the given id and
// frees the seats it held on each leg. A reservation id owned by another
// user is reported as ErrNotFound, the same as an id that does not exist.
func (s *Service) Cancel(ctx context.Context, reservationID int) (*CancelResult, error) {
	if !s.session.authenticated {
		return nil, ErrAuthRequired
	}

	var result *CancelResult
	err := s.runner.InTx(ctx, func(store database.Store) error {
		res, err := store.GetReservation(ctx, reservationID, s.session.username)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := store.DeleteReservation(ctx, reservationID, s.session.username); err != nil {
			return err
		}

		fids := []int{res.Fid1}
		if res.Fid2 != nil {
			fids = append(fids, *res.Fid2)
		}
		for _, fid := range fids {
			seats, err := store.GetCapacity(ctx, fid)
			if err != nil {
				return fmt.Errorf("capacity for flight %d: %w", fid, err)
			}
			if seats.TakenSeats > 0 {
				if err := store.SetTakenSeats(ctx, fid, seats.TakenSeats-1); err != nil {
					return err
				}
			}
		}

		result = &CancelResult{ReservationID: reservationID, Fids: fids}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
