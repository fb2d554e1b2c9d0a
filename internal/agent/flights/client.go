package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/wanderplan/server/internal/agent/model"
)

// ─── Provider payload ─────────────────────────────────────────────

// SearchResponse is the flight-data provider's top-level payload. Status is
// the provider's own success flag; Data may be absent even on success.
type SearchResponse struct {
	Status  bool           `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    *ItineraryData `json:"data,omitempty"`
}

type ItineraryData struct {
	Itineraries *Itineraries `json:"itineraries,omitempty"`
}

// Itineraries splits options into the provider's ranked buckets. Order within
// each bucket is the provider's ranking and must be preserved.
type Itineraries struct {
	TopFlights   []Itinerary `json:"topFlights"`
	OtherFlights []Itinerary `json:"otherFlights"`
}

// Itinerary is one flight option, possibly multi-leg.
type Itinerary struct {
	Flights  []Leg     `json:"flights"`
	Duration *Duration `json:"duration,omitempty"`
	Price    float64   `json:"price"`
}

type Duration struct {
	Raw  int    `json:"raw"`
	Text string `json:"text"`
}

type Leg struct {
	DepartureAirport Endpoint `json:"departure_airport"`
	ArrivalAirport   Endpoint `json:"arrival_airport"`
	Airline          string   `json:"airline"`
	FlightNumber     string   `json:"flight_number"`
	Aircraft         string   `json:"aircraft"`
}

type Endpoint struct {
	AirportName string `json:"airport_name"`
	AirportCode string `json:"airport_code"`
	Time        string `json:"time"`
}

// ─── Client ───────────────────────────────────────────────────────

// Client talks to the external flight-data REST provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg model.FlightProviderConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// SearchFlights issues a one-way economy, single-adult search for the given
// airport pair and outbound date (YYYY-MM-DD).
func (c *Client) SearchFlights(ctx context.Context, departureID, arrivalID, outboundDate string) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("departure_id", departureID)
	q.Set("arrival_id", arrivalID)
	q.Set("travel_class", "ECONOMY")
	q.Set("adults", "1")
	q.Set("currency", "USD")
	q.Set("outbound_date", outboundDate)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/searchFlights?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flight search failed (%d): %s", resp.StatusCode, string(body))
	}

	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode flight search response: %w", err)
	}
	return &out, nil
}
