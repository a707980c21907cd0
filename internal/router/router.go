package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/cx-tal-miterani/flight-reservation-service/internal/handlers"
)

// SetupRouter creates and configures the HTTP router.
func SetupRouter(h *handlers.Handler, log *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.Use(requestLogger(log))

	api := r.PathPrefix("/api").Subrouter()

	// Session
	api.HandleFunc("/session/login", h.Login).Methods(http.MethodPost)

	// Itinerary search
	api.HandleFunc("/itineraries", h.Search).Methods(http.MethodGet)

	// Reservations
	api.HandleFunc("/reservations", h.Book).Methods(http.MethodPost)
	api.HandleFunc("/reservations", h.Reservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{rid}", h.Cancel).Methods(http.MethodDelete)

	// WebSocket for live seat availability
	api.HandleFunc("/flights/{fid}/ws", h.WatchFlight)

	// Health check
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// requestLogger tags each request with a correlation id and logs it on
// completion. Websocket upgrades are passed through untouched since the
// recorder would hide the hijacker.
func requestLogger(log *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}

			requestID := uuid.NewString()
			w.Header().Set("X-Request-ID", requestID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			log.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}
