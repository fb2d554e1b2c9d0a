package model

// AirportResolution maps a free-text city name to its IATA code.
type AirportResolution struct {
	Code string `json:"code"`
	City string `json:"city"`
}

// FlightEndpoint is one end of a flight leg.
type FlightEndpoint struct {
	Time    string `json:"time"`
	Airport string `json:"airport"`
}

// FlightRecord is one flight option derived from the provider payload. For
// multi-leg itineraries the endpoints come from the first leg and Stops is
// the number of connections.
type FlightRecord struct {
	Airline      string         `json:"airline"`
	FlightNumber string         `json:"flight_number"`
	Departure    FlightEndpoint `json:"departure"`
	Arrival      FlightEndpoint `json:"arrival"`
	Duration     string         `json:"duration"`
	Price        float64        `json:"price"`
	Stops        int            `json:"stops"`
	Aircraft     string         `json:"aircraft"`
}

// FlightSearchResult is the flight tool's output. It is always well-formed:
// the tool converts every failure into an empty Flights slice plus a
// user-facing Message instead of returning an error.
type FlightSearchResult struct {
	Flights []FlightRecord `json:"flights"`
	Summary string         `json:"summary,omitempty"`
	Message string         `json:"message,omitempty"`
}
