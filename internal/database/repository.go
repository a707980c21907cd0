package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DBTX is the subset of pgx query methods the store needs. It is satisfied
// by both *pgxpool.Pool and pgx.Tx, so the same queries run standalone or
// inside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the operation set the reservation core runs against the
// database. *Queries implements it; tests substitute in-memory fakes.
// Every query is parameterized — user input is never concatenated into SQL.
type Store interface {
	FindFlights(ctx context.Context, originCity, destCity string, day, limit int) ([]Flight, error)
	FindConnections(ctx context.Context, originCity, destCity string, day, limit int) ([]Connection, error)
	GetCapacity(ctx context.Context, fid int) (*Capacity, error)
	SetTakenSeats(ctx context.Context, fid, takenSeats int) error
	ReservationDaysForUser(ctx context.Context, username string) ([]int, error)
	MaxReservationID(ctx context.Context, username string) (int, error)
	InsertReservation(ctx context.Context, res Reservation) error
	GetReservation(ctx context.Context, rid int, username string) (*Reservation, error)
	DeleteReservation(ctx context.Context, rid int, username string) error
	ReservationsForUser(ctx context.Context, username string) ([]Reservation, error)
	GetFlightDetails(ctx context.Context, fid int) (*Flight, error)
	VerifyCredentials(ctx context.Context, username, password string) (bool, error)
}

// Queries runs the store operations against a pgx querier.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given querier.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// FindFlights returns up to limit direct flights for the given city pair and
// day of month, cheapest-in-time first. Flights with unknown duration are
// excluded.
func (q *Queries) FindFlights(ctx context.Context, originCity, destCity string, day, limit int) ([]Flight, error) {
	rows, err := q.db.Query(ctx, `
		SELECT fid, carrier_id, flight_num, origin_city, dest_city, day_of_month, duration
		FROM flights
		WHERE origin_city = $1 AND dest_city = $2 AND day_of_month = $3 AND duration IS NOT NULL
		ORDER BY duration ASC, fid ASC
		LIMIT $4
	`, originCity, destCity, day, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights: %w", err)
	}
	defer rows.Close()

	var flights []Flight
	for rows.Next() {
		var f Flight
		err := rows.Scan(&f.Fid, &f.CarrierID, &f.FlightNum, &f.OriginCity, &f.DestCity, &f.DayOfMonth, &f.Duration)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flight: %w", err)
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// FindConnections returns up to limit two-leg itineraries for the given
// city pair and day, ordered by combined duration. Both legs must fly on the
// searched day and have a known duration.
func (q *Queries) FindConnections(ctx context.Context, originCity, destCity string, day, limit int) ([]Connection, error) {
	rows, err := q.db.Query(ctx, `
		SELECT a.fid, a.carrier_id, a.flight_num, a.origin_city, a.dest_city, a.day_of_month, a.duration,
		       b.fid, b.carrier_id, b.flight_num, b.origin_city, b.dest_city, b.day_of_month, b.duration,
		       a.duration + b.duration AS total_time
		FROM flights a
		JOIN flights b
		  ON a.dest_city = b.origin_city AND a.day_of_month = b.day_of_month
		WHERE a.origin_city = $1 AND b.dest_city = $2 AND a.day_of_month = $3
		  AND a.duration IS NOT NULL AND b.duration IS NOT NULL
		ORDER BY total_time ASC, a.fid ASC, b.fid ASC
		LIMIT $4
	`, originCity, destCity, day, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var c Connection
		err := rows.Scan(
			&c.First.Fid, &c.First.CarrierID, &c.First.FlightNum, &c.First.OriginCity, &c.First.DestCity, &c.First.DayOfMonth, &c.First.Duration,
			&c.Second.Fid, &c.Second.CarrierID, &c.Second.FlightNum, &c.Second.OriginCity, &c.Second.DestCity, &c.Second.DayOfMonth, &c.Second.Duration,
			&c.TotalTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		conns = append(conns, c)
	}
	return conns, rows.Err()
}

// GetCapacity returns the seat accounting row for a flight, or ErrNotFound.
func (q *Queries) GetCapacity(ctx context.Context, fid int) (*Capacity, error) {
	var c Capacity
	err := q.db.QueryRow(ctx, `
		SELECT fid, max_seats, taken_seats FROM capacity WHERE fid = $1
	`, fid).Scan(&c.Fid, &c.MaxSeats, &c.TakenSeats)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get capacity: %w", err)
	}
	return &c, nil
}

// SetTakenSeats writes a new taken-seat count for a flight.
func (q *Queries) SetTakenSeats(ctx context.Context, fid, takenSeats int) error {
	_, err := q.db.Exec(ctx, `
		UPDATE capacity SET taken_seats = $2 WHERE fid = $1
	`, fid, takenSeats)
	if err != nil {
		return fmt.Errorf("failed to update capacity: %w", err)
	}
	return nil
}

// ReservationDaysForUser returns the days of month on which the user
// already holds reservations.
func (q *Queries) ReservationDaysForUser(ctx context.Context, username string) ([]int, error) {
	rows, err := q.db.Query(ctx, `
		SELECT day FROM reservations WHERE username = $1
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservation days: %w", err)
	}
	defer rows.Close()

	var days []int
	for rows.Next() {
		var day int
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan reservation day: %w", err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// MaxReservationID returns the highest rid the user holds, or 0 if the user
// has no reservations.
func (q *Queries) MaxReservationID(ctx context.Context, username string) (int, error) {
	var maxRid int
	err := q.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(rid), 0) FROM reservations WHERE username = $1
	`, username).Scan(&maxRid)
	if err != nil {
		return 0, fmt.Errorf("failed to get max reservation id: %w", err)
	}
	return maxRid, nil
}

// InsertReservation creates a reservation row.
func (q *Queries) InsertReservation(ctx context.Context, res Reservation) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO reservations (username, rid, fid1, fid2, day)
		VALUES ($1, $2, $3, $4, $5)
	`, res.Username, res.Rid, res.Fid1, res.Fid2, res.Day)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

// GetReservation returns the reservation with the given rid if it is owned
// by the given user, or ErrNotFound.
func (q *Queries) GetReservation(ctx context.Context, rid int, username string) (*Reservation, error) {
	var r Reservation
	err := q.db.QueryRow(ctx, `
		SELECT username, rid, fid1, fid2, day
		FROM reservations
		WHERE rid = $1 AND username = $2
	`, rid, username).Scan(&r.Username, &r.Rid, &r.Fid1, &r.Fid2, &r.Day)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

// DeleteReservation removes the reservation with the given rid if owned by
// the given user.
func (q *Queries) DeleteReservation(ctx context.Context, rid int, username string) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM reservations WHERE rid = $1 AND username = $2
	`, rid, username)
	if err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}

// ReservationsForUser returns all of the user's reservations ordered by rid.
func (q *Queries) ReservationsForUser(ctx context.Context, username string) ([]Reservation, error) {
	rows, err := q.db.Query(ctx, `
		SELECT username, rid, fid1, fid2, day
		FROM reservations
		WHERE username = $1
		ORDER BY rid ASC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var reservations []Reservation
	for rows.Next() {
		var r Reservation
		if err := rows.Scan(&r.Username, &r.Rid, &r.Fid1, &r.Fid2, &r.Day); err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}

// GetFlightDetails returns the reference data for a flight, or ErrNotFound.
func (q *Queries) GetFlightDetails(ctx context.Context, fid int) (*Flight, error) {
	var f Flight
	err := q.db.QueryRow(ctx, `
		SELECT fid, carrier_id, flight_num, origin_city, dest_city, day_of_month, COALESCE(duration, 0)
		FROM flights
		WHERE fid = $1
	`, fid).Scan(&f.Fid, &f.CarrierID, &f.FlightNum, &f.OriginCity, &f.DestCity, &f.DayOfMonth, &f.Duration)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get flight: %w", err)
	}
	return &f, nil
}

// VerifyCredentials reports whether a customer with the given username and
// password exists.
func (q *Queries) VerifyCredentials(ctx context.Context, username, password string) (bool, error) {
	var ok bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM customers WHERE username = $1 AND password = $2)
	`, username, password).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to verify credentials: %w", err)
	}
	return ok, nil
}
