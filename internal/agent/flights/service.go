package flights

import (
	"context"
	"errors"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	errx "github.com/wanderplan/server/internal/core/error"
	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/airports"
	"github.com/wanderplan/server/internal/agent/dates"
	"github.com/wanderplan/server/internal/agent/model"
)

// RetryMessage is the generic fallback when the search fails unexpectedly.
const RetryMessage = "Sorry, I ran into a problem searching for flights. Please try again."

// ProviderClient is the outbound flight-data capability.
type ProviderClient interface {
	SearchFlights(ctx context.Context, departureID, arrivalID, outboundDate string) (*SearchResponse, error)
}

// SearchInput is the flight tool's parameter set. Dates is optional; when it
// is absent the search defaults to tomorrow. A caller-supplied departure date
// is used verbatim, even when it lies in the past — only the intent
// classifier corrects past dates.
type SearchInput struct {
	FromCity string           `json:"fromCity"`
	ToCity   string           `json:"toCity"`
	Dates    *model.TripDates `json:"dates,omitempty"`
}

// Service composes airport resolution, the provider client and the formatter
// into one flight-search capability.
type Service struct {
	resolver *airports.Resolver
	client   ProviderClient
	cache    *gocache.Cache
	now      func() time.Time
}

func NewService(resolver *airports.Resolver, client ProviderClient) *Service {
	return &Service{
		resolver: resolver,
		client:   client,
		cache:    gocache.New(5*time.Minute, 10*time.Minute),
		now:      time.Now,
	}
}

// Search runs one flight search, short-circuiting on the first failure. It
// never returns an error and never panics outward: every failure mode maps to
// an empty Flights slice plus a user-facing Message.
func (s *Service) Search(ctx context.Context, in SearchInput) (result model.FlightSearchResult) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "flight_search").Msgf("panic recovered: %v", r)
			result = emptyResult(RetryMessage)
		}
	}()

	from, err := s.resolver.Resolve(ctx, in.FromCity, airports.RoleDeparture)
	if err != nil {
		return resolutionResult(err)
	}
	to, err := s.resolver.Resolve(ctx, in.ToCity, airports.RoleArrival)
	if err != nil {
		return resolutionResult(err)
	}

	outboundDate := dates.Tomorrow(s.now())
	if in.Dates != nil && in.Dates.Departure != "" {
		outboundDate = in.Dates.Departure
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", from.Code, to.Code, outboundDate)
	if cached, ok := s.cache.Get(cacheKey); ok {
		logx.Debug().Str("key", cacheKey).Msg("Flight search served from cache")
		return cached.(model.FlightSearchResult)
	}

	logx.Debug().
		Str("from", from.Code).
		Str("to", to.Code).
		Str("date", outboundDate).
		Msg("Searching flights")

	resp, err := s.client.SearchFlights(ctx, from.Code, to.Code, outboundDate)
	if err != nil {
		logx.Error().Err(err).Msg("Flight provider request failed")
		return emptyResult(RetryMessage)
	}
	if !resp.Status {
		perr := errx.WrapProvider(nil, resp.Message)
		logx.Warn().Str("provider_message", resp.Message).Msg("Flight provider reported failure")
		return emptyResult("Error: " + perr.Message)
	}

	formatted := FormatResults(resp.Data)
	if len(formatted.Flights) == 0 {
		return emptyResult(fmt.Sprintf(
			"No flights found from %s to %s for %s. Try a different date or nearby airports.",
			in.FromCity, in.ToCity, outboundDate,
		))
	}

	result = model.FlightSearchResult{
		Flights: formatted.Flights,
		Summary: formatted.Summary,
	}
	s.cache.SetDefault(cacheKey, result)
	return result
}

func resolutionResult(err error) model.FlightSearchResult {
	var resErr *errx.ResolutionError
	if errors.As(err, &resErr) {
		return emptyResult(resErr.UserMessage())
	}
	return emptyResult(RetryMessage)
}

func emptyResult(message string) model.FlightSearchResult {
	return model.FlightSearchResult{
		Flights: []model.FlightRecord{},
		Message: message,
	}
}
