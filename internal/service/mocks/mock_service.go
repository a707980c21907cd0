package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
)

// MockFlightService is a mock implementation of service.FlightService.
type MockFlightService struct {
	mock.Mock
}

func (m *MockFlightService) Login(ctx context.Context, username, password string) error {
	args := m.Called(ctx, username, password)
	return args.Error(0)
}

func (m *MockFlightService) Search(ctx context.Context, req service.SearchRequest) ([]service.Itinerary, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.Itinerary), args.Error(1)
}

func (m *MockFlightService) Book(ctx context.Context, itineraryIndex int) (*service.BookingConfirmation, error) {
	args := m.Called(ctx, itineraryIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BookingConfirmation), args.Error(1)
}

func (m *MockFlightService) Reservations(ctx context.Context) ([]service.ReservationDetail, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ReservationDetail), args.Error(1)
}

func (m *MockFlightService) Cancel(ctx context.Context, reservationID int) (*service.CancelResult, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CancelResult), args.Error(1)
}
