package model

// Stage names a phase of the booking conversation. It constrains which
// questions the agent asks next and which tool the response model is steered
// towards.
type Stage string

const (
	StageInitial            Stage = "initial"
	StageDestinationSearch  Stage = "destination_search"
	StageConfirmDestination Stage = "confirm_destination"
	StageDepartureCity      Stage = "departure_city"
	StageDatesInput         Stage = "dates_input"
	StageFlightsSearch      Stage = "flights_search"
)

// TripDates holds the travel dates as YYYY-MM-DD strings. Return is optional.
type TripDates struct {
	Departure string `json:"departure"`
	Return    string `json:"return,omitempty"`
}

// TravelContext is the per-conversation booking state. It is a plain value:
// each turn takes the current context in and returns an updated copy, so
// there is never a shared mutable instance across sessions.
type TravelContext struct {
	Stage               Stage      `json:"stage"`
	SelectedDestination string     `json:"selected_destination,omitempty"`
	FromLocation        string     `json:"from_location,omitempty"`
	Dates               *TripDates `json:"dates,omitempty"`
	SearchResults       string     `json:"search_results,omitempty"`
}

// NewTravelContext returns the context a fresh conversation starts with.
func NewTravelContext() TravelContext {
	return TravelContext{Stage: StageInitial}
}

// IntentType is the classifier's verdict on what the utterance contributes.
type IntentType string

const (
	IntentSearchDestination IntentType = "search_destination"
	IntentSelectDestination IntentType = "select_destination"
	IntentProvideLocation   IntentType = "provide_location"
	IntentProvideDates      IntentType = "provide_dates"
)

// IntentData carries whatever fields the classifier extracted. All fields are
// optional; the stage machine captures any that are present.
type IntentData struct {
	Destination string     `json:"destination,omitempty"`
	Location    string     `json:"location,omitempty"`
	Dates       *TripDates `json:"dates,omitempty"`
}

// ClassifiedIntent is produced once per turn and consumed immediately by the
// stage machine.
type ClassifiedIntent struct {
	Type IntentType `json:"type"`
	Data IntentData `json:"data"`
}
