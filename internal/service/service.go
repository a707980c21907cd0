// Package service implements the reservation core: a per-user session with
// its itinerary cache, and the search, booking, listing and cancellation
// operations, each running inside a single serializable transaction.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
)

// Business outcomes. These are expected results of an operation, returned
// to the caller as values; they are never retried by the transaction
// runner and never crash the process.
var (
	ErrAuthRequired     = errors.New("login required")
	ErrAuthFailed       = errors.New("incorrect username or password")
	ErrInvalidItinerary = errors.New("no such itinerary in the current search results")
	ErrDayConflict      = errors.New("a reservation already exists on this day")
	ErrNotFound         = errors.New("reservation not found")
)

// FlightFullError reports which leg of an itinerary had no seats left.
type FlightFullError struct {
	Fid int
}

func (e *FlightFullError) Error() string {
	return fmt.Sprintf("flight %d is full", e.Fid)
}

// Runner executes a unit of work inside one serializable transaction,
// retrying it on serialization conflicts. *database.TxRunner implements it.
type Runner interface {
	InTx(ctx context.Context, fn func(store database.Store) error) error
}

// SearchRequest are the parameters of an itinerary search.
type SearchRequest struct {
	OriginCity string `json:"originCity"`
	DestCity   string `json:"destCity"`
	DirectOnly bool   `json:"directOnly"`
	Day        int    `json:"day"`
	Limit      int    `json:"limit"`
}

// Itinerary is one ranked search result. Index is the 1-based handle a
// subsequent booking refers to; it is only valid until the next search.
type Itinerary struct {
	Index     int               `json:"index"`
	Day       int               `json:"day"`
	TotalTime int               `json:"totalTime"`
	Flights   []database.Flight `json:"flights"`
}

// BookingConfirmation is the result of a successful booking.
type BookingConfirmation struct {
	ReservationID int  `json:"reservationId"`
	Fid1          int  `json:"fid1"`
	Fid2          *int `json:"fid2,omitempty"`
	Day           int  `json:"day"`
}

// CancelResult reports a completed cancellation and the flights whose
// seats it freed.
type CancelResult struct {
	ReservationID int   `json:"reservationId"`
	Fids          []int `json:"fids"`
}

// ReservationDetail is a reservation with its legs' flight data hydrated
// for display.
type ReservationDetail struct {
	ReservationID int               `json:"reservationId"`
	Day           int               `json:"day"`
	Flights       []database.Flight `json:"flights"`
}

// FlightService is the operation set a presentation layer consumes.
type FlightService interface {
	Login(ctx context.Context, username, password string) error
	Search(ctx context.Context, req SearchRequest) ([]Itinerary, error)
	Book(ctx context.Context, itineraryIndex int) (*BookingConfirmation, error)
	Reservations(ctx context.Context) ([]ReservationDetail, error)
	Cancel(ctx context.Context, reservationID int) (*CancelResult, error)
}

// cachedItinerary is what a search stores per index: enough to book the
// itinerary later without re-running the search.
type cachedItinerary struct {
	fid1 int
	fid2 *int
	day  int
}

// session is the volatile per-user state. It is not transactional and not
// shared: one session serves one user with one operation in flight at a
// time, so no locking is needed. Losing it (process restart) loses only
// the itinerary cache and login flag, never committed data.
type session struct {
	username      string
	authenticated bool
	itineraries   map[int]cachedItinerary
	nextIndex     int
}

func newSession() session {
	return session{
		itineraries: make(map[int]cachedItinerary),
		nextIndex:   1,
	}
}

// resetCache drops all cached itineraries and restarts numbering at 1.
// Every search and every successful login invalidates previous indices.
func (s *session) resetCache() {
	s.itineraries = make(map[int]cachedItinerary)
	s.nextIndex = 1
}

// Service implements FlightService against a transactional store.
type Service struct {
	runner  Runner
	session session
}

// NewService creates a Service with a fresh, unauthenticated session.
func NewService(runner Runner) *Service {
	return &Service{
		runner:  runner,
		session: newSession(),
	}
}

// Login verifies the credentials against the store. On success the session
// becomes authenticated as that user and the itinerary cache is reset; on
// mismatch it returns ErrAuthFailed and the session is unchanged.
// Logging in again while already authenticated re-runs the same check.
func (s *Service) Login(ctx context.Context, username, password string) error {
	var ok bool
	err := s.runner.InTx(ctx, func(store database.Store) error {
		var err error
		ok, err = store.VerifyCredentials(ctx, username, password)
		return err
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrAuthFailed
	}
	s.session = newSession()
	s.session.username = username
	s.session.authenticated = true
	return nil
}
