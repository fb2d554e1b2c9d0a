// Package stage decides, from the current context and the turn's classified
// intent, where the booking conversation stands.
package stage

import (
	"time"

	"github.com/wanderplan/server/internal/agent/dates"
	"github.com/wanderplan/server/internal/agent/model"
)

// Apply is a pure transition function: it captures any fields the intent
// carries, advances the stage by the transition table, then runs a corrective
// pass that re-derives the stage from what is actually known. The corrective
// pass runs last and wins, so the conversation can never sit in
// flights_search while a required field is missing.
func Apply(c model.TravelContext, in model.ClassifiedIntent, now time.Time) model.TravelContext {
	// 1. Field capture is unconditional and stage-independent.
	if in.Data.Destination != "" {
		c.SelectedDestination = in.Data.Destination
	}
	if in.Data.Location != "" {
		c.FromLocation = in.Data.Location
	}
	if in.Data.Dates != nil && in.Data.Dates.Departure != "" {
		d := *in.Data.Dates
		c.Dates = &d
	}

	// 2. Stage advance by current-stage + intent-type table.
	c.Stage = advance(c.Stage, in, c)

	// 3. Corrective re-derivation, authoritative over step 2.
	if c.SelectedDestination != "" && c.FromLocation == "" {
		c.Stage = model.StageDepartureCity
	} else if c.SelectedDestination != "" && c.FromLocation != "" && !hasFutureDeparture(c, now) {
		c.Stage = model.StageDatesInput
	}

	return c
}

func advance(s model.Stage, in model.ClassifiedIntent, c model.TravelContext) model.Stage {
	switch s {
	case model.StageInitial:
		switch in.Type {
		case model.IntentSearchDestination:
			return model.StageDestinationSearch
		case model.IntentSelectDestination:
			return model.StageConfirmDestination
		}
	case model.StageDestinationSearch:
		if in.Type == model.IntentSelectDestination {
			return model.StageConfirmDestination
		}
	case model.StageConfirmDestination:
		if in.Type == model.IntentSelectDestination {
			return model.StageDepartureCity
		}
	case model.StageDepartureCity:
		if in.Type == model.IntentProvideLocation {
			return model.StageDatesInput
		}
	case model.StageDatesInput:
		if in.Type == model.IntentProvideDates && c.Dates != nil && c.Dates.Departure != "" {
			return model.StageFlightsSearch
		}
	}
	return s
}

func hasFutureDeparture(c model.TravelContext, now time.Time) bool {
	return c.Dates != nil && dates.IsFuture(c.Dates.Departure, now)
}
