package flights

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/wanderplan/server/internal/agent/model"
)

// Formatted carries both views of a search result: the flat record list in
// group order and a human-readable summary with one section per destination
// airport.
type Formatted struct {
	Flights []model.FlightRecord
	Summary string
}

// FormatResults groups the provider payload by arrival airport and renders
// the summary. A missing or empty payload yields zero flights, not an error;
// "no flights" is a common, valid outcome.
func FormatResults(data *ItineraryData) Formatted {
	if data == nil || data.Itineraries == nil {
		return Formatted{Flights: []model.FlightRecord{}}
	}

	all := lo.Flatten([][]Itinerary{
		data.Itineraries.TopFlights,
		data.Itineraries.OtherFlights,
	})

	// Group records by "<airport_name> (<airport_code>)" of the first leg's
	// arrival, keeping first-seen group order and provider order within each
	// group.
	var order []string
	groups := map[string][]model.FlightRecord{}

	for _, it := range all {
		if len(it.Flights) == 0 {
			continue
		}
		first := it.Flights[0]
		key := fmt.Sprintf("%s (%s)", first.ArrivalAirport.AirportName, first.ArrivalAirport.AirportCode)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}

		duration := ""
		if it.Duration != nil {
			duration = it.Duration.Text
		}
		groups[key] = append(groups[key], model.FlightRecord{
			Airline:      first.Airline,
			FlightNumber: first.FlightNumber,
			Departure: model.FlightEndpoint{
				Time:    first.DepartureAirport.Time,
				Airport: fmt.Sprintf("%s (%s)", first.DepartureAirport.AirportName, first.DepartureAirport.AirportCode),
			},
			Arrival: model.FlightEndpoint{
				Time:    first.ArrivalAirport.Time,
				Airport: key,
			},
			Duration: duration,
			Price:    it.Price,
			Stops:    len(it.Flights) - 1,
			Aircraft: first.Aircraft,
		})
	}

	flat := make([]model.FlightRecord, 0, len(all))
	var b strings.Builder
	for gi, key := range order {
		if gi > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("Flights to %s:\n", key))
		for i, rec := range groups[key] {
			flat = append(flat, rec)
			b.WriteString(fmt.Sprintf("\n%d. %s %s\n", i+1, rec.Airline, rec.FlightNumber))
			b.WriteString(fmt.Sprintf("   Departure: %s from %s\n", rec.Departure.Time, rec.Departure.Airport))
			b.WriteString(fmt.Sprintf("   Arrival: %s at %s\n", rec.Arrival.Time, rec.Arrival.Airport))
			b.WriteString(fmt.Sprintf("   Duration: %s\n", rec.Duration))
			b.WriteString(fmt.Sprintf("   Price: $%.0f\n", rec.Price))
			b.WriteString(fmt.Sprintf("   Aircraft: %s\n", rec.Aircraft))
			b.WriteString(fmtStops(rec.Stops))
		}
	}

	return Formatted{Flights: flat, Summary: b.String()}
}

func fmtStops(stops int) string {
	switch stops {
	case 0:
		return "   Nonstop\n"
	case 1:
		return "   1 stop\n"
	default:
		return fmt.Sprintf("   %d stops\n", stops)
	}
}
