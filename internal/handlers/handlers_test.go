package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service/mocks"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/websocket"
)

func newTestHandler(svc service.FlightService) *Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, websocket.NewHub(log))
}

func setupTestRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/itineraries", h.Search).Methods(http.MethodGet)
	api.HandleFunc("/reservations", h.Book).Methods(http.MethodPost)
	api.HandleFunc("/reservations", h.Reservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{rid}", h.Cancel).Methods(http.MethodDelete)
	return r
}

func TestHandler_Login(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockError      error
		expectedStatus int
		shouldCallMock bool
	}{
		{
			name:           "valid credentials",
			body:           LoginRequest{Username: "alice", Password: "pw1"},
			mockError:      nil,
			expectedStatus: http.StatusOK,
			shouldCallMock: true,
		},
		{
			name:           "bad credentials",
			body:           LoginRequest{Username: "alice", Password: "nope"},
			mockError:      service.ErrAuthFailed,
			expectedStatus: http.StatusUnauthorized,
			shouldCallMock: true,
		},
		{
			name:           "missing password",
			body:           LoginRequest{Username: "alice"},
			expectedStatus: http.StatusBadRequest,
			shouldCallMock: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightService)
			handler := newTestHandler(mockService)
			router := setupTestRouter(handler)

			if tt.shouldCallMock {
				mockService.On("Login", mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(tt.mockError)
			}

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/session/login", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Search(t *testing.T) {
	mockService := new(mocks.MockFlightService)
	handler := newTestHandler(mockService)
	router := setupTestRouter(handler)

	expected := []service.Itinerary{
		{
			Index:     1,
			Day:       15,
			TotalTime: 300,
			Flights: []database.Flight{
				{Fid: 2, CarrierID: "UA", FlightNum: 22, OriginCity: "BOS", DestCity: "SFO", DayOfMonth: 15, Duration: 300},
			},
		},
	}

	mockService.On("Search", mock.Anything, service.SearchRequest{
		OriginCity: "BOS",
		DestCity:   "SFO",
		DirectOnly: true,
		Day:        15,
		Limit:      5,
	}).Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/itineraries?origin=BOS&dest=SFO&day=15&limit=5&direct=true", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []service.Itinerary
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	require.Len(t, response, 1)
	assert.Equal(t, 1, response[0].Index)
	assert.Equal(t, "UA", response[0].Flights[0].CarrierID)

	mockService.AssertExpectations(t)
}

func TestHandler_Search_BadRequest(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "missing origin", url: "/api/itineraries?dest=SFO&day=15"},
		{name: "missing dest", url: "/api/itineraries?origin=BOS&day=15"},
		{name: "bad day", url: "/api/itineraries?origin=BOS&dest=SFO&day=40"},
		{name: "bad limit", url: "/api/itineraries?origin=BOS&dest=SFO&day=15&limit=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightService)
			handler := newTestHandler(mockService)
			router := setupTestRouter(handler)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			mockService.AssertNotCalled(t, "Search")
		})
	}
}

func TestHandler_Search_EmptyResultIsOK(t *testing.T) {
	mockService := new(mocks.MockFlightService)
	handler := newTestHandler(mockService)
	router := setupTestRouter(handler)

	mockService.On("Search", mock.Anything, mock.AnythingOfType("service.SearchRequest")).Return([]service.Itinerary{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/itineraries?origin=BOS&dest=LAX&day=15", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandler_Book(t *testing.T) {
	fid2 := 4

	tests := []struct {
		name           string
		body           interface{}
		mockReturn     *service.BookingConfirmation
		mockError      error
		expectedStatus int
		shouldCallMock bool
	}{
		{
			name:           "direct booking",
			body:           BookRequest{ItineraryIndex: 1},
			mockReturn:     &service.BookingConfirmation{ReservationID: 1, Fid1: 2, Day: 15},
			expectedStatus: http.StatusCreated,
			shouldCallMock: true,
		},
		{
			name:           "two leg booking",
			body:           BookRequest{ItineraryIndex: 3},
			mockReturn:     &service.BookingConfirmation{ReservationID: 2, Fid1: 3, Fid2: &fid2, Day: 15},
			expectedStatus: http.StatusCreated,
			shouldCallMock: true,
		},
		{
			name:           "not logged in",
			body:           BookRequest{ItineraryIndex: 1},
			mockError:      service.ErrAuthRequired,
			expectedStatus: http.StatusUnauthorized,
			shouldCallMock: true,
		},
		{
			name:           "stale itinerary index",
			body:           BookRequest{ItineraryIndex: 7},
			mockError:      service.ErrInvalidItinerary,
			expectedStatus: http.StatusNotFound,
			shouldCallMock: true,
		},
		{
			name:           "flight full",
			body:           BookRequest{ItineraryIndex: 1},
			mockError:      &service.FlightFullError{Fid: 2},
			expectedStatus: http.StatusConflict,
			shouldCallMock: true,
		},
		{
			name:           "day conflict",
			body:           BookRequest{ItineraryIndex: 1},
			mockError:      service.ErrDayConflict,
			expectedStatus: http.StatusConflict,
			shouldCallMock: true,
		},
		{
			name:           "conflict storm",
			body:           BookRequest{ItineraryIndex: 1},
			mockError:      database.ErrTxAborted,
			expectedStatus: http.StatusServiceUnavailable,
			shouldCallMock: true,
		},
		{
			name:           "index below one",
			body:           BookRequest{ItineraryIndex: 0},
			expectedStatus: http.StatusBadRequest,
			shouldCallMock: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightService)
			handler := newTestHandler(mockService)
			router := setupTestRouter(handler)

			if tt.shouldCallMock {
				mockService.On("Book", mock.Anything, tt.body.(BookRequest).ItineraryIndex).Return(tt.mockReturn, tt.mockError)
			}

			body, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/reservations", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestHandler_Reservations(t *testing.T) {
	mockService := new(mocks.MockFlightService)
	handler := newTestHandler(mockService)
	router := setupTestRouter(handler)

	expected := []service.ReservationDetail{
		{
			ReservationID: 1,
			Day:           15,
			Flights: []database.Flight{
				{Fid: 2, CarrierID: "UA", FlightNum: 22, OriginCity: "BOS", DestCity: "SFO", DayOfMonth: 15, Duration: 300},
			},
		},
	}
	mockService.On("Reservations", mock.Anything).Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response []service.ReservationDetail
	err := json.NewDecoder(rec.Body).Decode(&response)
	require.NoError(t, err)
	require.Len(t, response, 1)
	assert.Equal(t, 1, response[0].ReservationID)

	mockService.AssertExpectations(t)
}

func TestHandler_Cancel(t *testing.T) {
	tests := []struct {
		name           string
		rid            string
		mockReturn     *service.CancelResult
		mockError      error
		expectedStatus int
		shouldCallMock bool
	}{
		{
			name:           "successful cancellation",
			rid:            "1",
			mockReturn:     &service.CancelResult{ReservationID: 1, Fids: []int{2}},
			expectedStatus: http.StatusNoContent,
			shouldCallMock: true,
		},
		{
			name:           "unknown reservation",
			rid:            "9",
			mockError:      service.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			shouldCallMock: true,
		},
		{
			name:           "not logged in",
			rid:            "1",
			mockError:      service.ErrAuthRequired,
			expectedStatus: http.StatusUnauthorized,
			shouldCallMock: true,
		},
		{
			name:           "non-numeric id",
			rid:            "abc",
			expectedStatus: http.StatusBadRequest,
			shouldCallMock: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(mocks.MockFlightService)
			handler := newTestHandler(mockService)
			router := setupTestRouter(handler)

			if tt.shouldCallMock {
				mockService.On("Cancel", mock.Anything, mock.AnythingOfType("int")).Return(tt.mockReturn, tt.mockError)
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/reservations/"+tt.rid, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			mockService.AssertExpectations(t)
		})
	}
}
