package airports

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	gocache "github.com/patrickmn/go-cache"

	errx "github.com/wanderplan/server/internal/core/error"
	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/model"
)

// Role hints whether a city is the departure or arrival side of a search.
// Informational only; resolution does not depend on it.
type Role string

const (
	RoleDeparture Role = "departure"
	RoleArrival   Role = "arrival"
)

var iataCode = regexp.MustCompile(`^[A-Z]{3}$`)

// airportCodes maps normalised major-city names to IATA codes. Hits here
// never touch the model.
var airportCodes = map[string]string{
	"los angeles":   "LAX",
	"new york":      "JFK",
	"london":        "LHR",
	"paris":         "CDG",
	"tokyo":         "NRT",
	"hong kong":     "HKG",
	"singapore":     "SIN",
	"dubai":         "DXB",
	"sydney":        "SYD",
	"san francisco": "SFO",
	"chicago":       "ORD",
	"bangkok":       "BKK",
	"seoul":         "ICN",
	"amsterdam":     "AMS",
	"frankfurt":     "FRA",
	"madrid":        "MAD",
}

// ChatModel is the single-shot completion capability the resolver falls back
// to for cities outside the static table.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Resolver maps free-text city names to IATA codes. Model-resolved codes are
// cached so repeated lookups within a session stay off the network.
type Resolver struct {
	cm    ChatModel
	cache *gocache.Cache
}

func NewResolver(cm ChatModel) *Resolver {
	return &Resolver{
		cm:    cm,
		cache: gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Resolve maps a city name to an AirportResolution. Lookup order: static
// table, cache, then one model round trip. There is no retry; an unresolvable
// city fails with a ResolutionError whose UserMessage asks for the code
// directly.
func (r *Resolver) Resolve(ctx context.Context, city string, role Role) (model.AirportResolution, error) {
	normalized := strings.ToLower(strings.TrimSpace(city))

	if code, ok := airportCodes[normalized]; ok {
		return model.AirportResolution{Code: code, City: city}, nil
	}

	if cached, ok := r.cache.Get(normalized); ok {
		return model.AirportResolution{Code: cached.(string), City: city}, nil
	}

	logx.Debug().Str("city", city).Str("role", string(role)).Msg("City not in static table, asking model for IATA code")

	code, err := r.askModel(ctx, city)
	if err != nil {
		logx.Warn().Err(err).Str("city", city).Msg("Airport resolution failed")
		return model.AirportResolution{}, errx.NewResolution(city)
	}

	r.cache.SetDefault(normalized, code)
	return model.AirportResolution{Code: code, City: city}, nil
}

func (r *Resolver) askModel(ctx context.Context, city string) (string, error) {
	prompt := fmt.Sprintf(
		"What is the 3-letter IATA airport code for the main international airport of %s? "+
			"Respond with ONLY the 3-letter code in uppercase, nothing else. "+
			"If you do not know the city or it has no airport, respond with exactly UNKNOWN.",
		city,
	)

	out, err := r.cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("resolve airport code: %w", err)
	}

	answer := strings.ToUpper(strings.TrimSpace(out.Content))
	if answer == "UNKNOWN" {
		return "", fmt.Errorf("model does not know airport for %q", city)
	}
	if len(answer) < 3 {
		return "", fmt.Errorf("model answer too short: %q", answer)
	}

	code := answer[:3]
	// "UNKNOWN" truncates to "UNK", which is not a real assignment anyway.
	if code == "UNK" || !iataCode.MatchString(code) {
		return "", fmt.Errorf("model answer is not a valid IATA code: %q", answer)
	}
	return code, nil
}
