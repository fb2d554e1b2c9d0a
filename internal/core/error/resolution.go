package errx

import "fmt"

// ResolutionError reports that a city name could not be mapped to an IATA
// airport code, neither by the static table nor by the model fallback.
type ResolutionError struct {
	City string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("unable to resolve airport code for %q", e.City)
}

// UserMessage is the text surfaced to the end user when resolution fails.
// The user is asked to supply the code directly instead of retrying.
func (e *ResolutionError) UserMessage() string {
	return fmt.Sprintf(
		"I couldn't determine the airport code for %q. Please provide the 3-letter IATA airport code directly (for example LAX for Los Angeles).",
		e.City,
	)
}

// NewResolution creates a ResolutionError carrying the original city input.
func NewResolution(city string) *ResolutionError {
	return &ResolutionError{City: city}
}
