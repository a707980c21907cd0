// Package handlers exposes the reservation service over HTTP. It is a
// thin presentation layer: it parses requests, calls the service, and maps
// business outcomes to status codes.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/database"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/service"
	"github.com/cx-tal-miterani/flight-reservation-service/internal/websocket"
)

// Handler contains the HTTP handlers for the API.
type Handler struct {
	svc service.FlightService
	hub *websocket.Hub
}

// NewHandler creates a Handler.
func NewHandler(svc service.FlightService, hub *websocket.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps business outcomes to HTTP statuses. Anything
// unrecognized is an infrastructure failure.
func respondServiceError(w http.ResponseWriter, err error) {
	var full *service.FlightFullError
	switch {
	case errors.Is(err, service.ErrAuthRequired),
		errors.Is(err, service.ErrAuthFailed):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrInvalidItinerary),
		errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrDayConflict),
		errors.As(err, &full):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, database.ErrTxAborted):
		respondError(w, http.StatusServiceUnavailable, "could not complete the request, please retry")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// LoginRequest is the body of POST /api/session/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/session/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	if err := h.svc.Login(r.Context(), req.Username, req.Password); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"username": req.Username})
}

// Search handles GET /api/itineraries
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	origin := q.Get("origin")
	dest := q.Get("dest")
	if origin == "" || dest == "" {
		respondError(w, http.StatusBadRequest, "origin and dest are required")
		return
	}

	day, err := strconv.Atoi(q.Get("day"))
	if err != nil || day < 1 || day > 31 {
		respondError(w, http.StatusBadRequest, "day must be a day of the month")
		return
	}

	limit := 5
	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	directOnly := q.Get("direct") == "true"

	itineraries, err := h.svc.Search(r.Context(), service.SearchRequest{
		OriginCity: origin,
		DestCity:   dest,
		DirectOnly: directOnly,
		Day:        day,
		Limit:      limit,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if itineraries == nil {
		itineraries = []service.Itinerary{}
	}
	respondJSON(w, http.StatusOK, itineraries)
}

// BookRequest is the body of POST /api/reservations.
type BookRequest struct {
	ItineraryIndex int `json:"itineraryIndex"`
}

// Book handles POST /api/reservations
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ItineraryIndex < 1 {
		respondError(w, http.StatusBadRequest, "itineraryIndex must be at least 1")
		return
	}

	conf, err := h.svc.Book(r.Context(), req.ItineraryIndex)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	fids := []int{conf.Fid1}
	if conf.Fid2 != nil {
		fids = append(fids, *conf.Fid2)
	}
	h.hub.BroadcastSeatsTaken(fids, conf.ReservationID, conf.Day)

	respondJSON(w, http.StatusCreated, conf)
}

// Reservations handles GET /api/reservations
func (h *Handler) Reservations(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.Reservations(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if details == nil {
		details = []service.ReservationDetail{}
	}
	respondJSON(w, http.StatusOK, details)
}

// Cancel handles DELETE /api/reservations/{rid}
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	rid, err := strconv.Atoi(mux.Vars(r)["rid"])
	if err != nil || rid < 1 {
		respondError(w, http.StatusBadRequest, "Invalid reservation id")
		return
	}

	result, err := h.svc.Cancel(r.Context(), rid)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	h.hub.BroadcastSeatsFreed(result.Fids, result.ReservationID)

	w.WriteHeader(http.StatusNoContent)
}

// WatchFlight handles GET /api/flights/{fid}/ws
func (h *Handler) WatchFlight(w http.ResponseWriter, r *http.Request) {
	fid, err := strconv.Atoi(mux.Vars(r)["fid"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid flight id")
		return
	}
	h.hub.ServeWS(w, r, fid)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
