package database

// Flight is a row of immutable flight reference data.
type Flight struct {
	Fid        int    `json:"fid"`
	CarrierID  string `json:"carrierId"`
	FlightNum  int    `json:"flightNum"`
	OriginCity string `json:"originCity"`
	DestCity   string `json:"destCity"`
	DayOfMonth int    `json:"dayOfMonth"`
	// Duration is the scheduled flight time in minutes. Flights with an
	// unknown duration are excluded from search by the store queries.
	Duration int `json:"duration"`
}

// Connection is a two-leg itinerary candidate: the first leg departs the
// searched origin, the second arrives at the searched destination, and both
// fly on the same day through a shared intermediate city.
type Connection struct {
	First     Flight `json:"first"`
	Second    Flight `json:"second"`
	TotalTime int    `json:"totalTime"`
}

// Capacity is the per-flight seat accounting row.
type Capacity struct {
	Fid        int `json:"fid"`
	MaxSeats   int `json:"maxSeats"`
	TakenSeats int `json:"takenSeats"`
}

// Reservation is a committed booking owned by a user. Rid values are unique
// per username and assigned sequentially at booking time. Fid2 is nil for
// direct itineraries.
type Reservation struct {
	Username string `json:"username"`
	Rid      int    `json:"rid"`
	Fid1     int    `json:"fid1"`
	Fid2     *int   `json:"fid2,omitempty"`
	Day      int    `json:"day"`
}
