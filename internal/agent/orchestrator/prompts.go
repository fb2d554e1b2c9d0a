package orchestrator

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/wanderplan/server/internal/agent/model"
)

//go:embed template/travel_prompt.txt
var travelSystemPrompt string

// RenderTravelSystem renders the stage-conditioned system prompt for the
// response loop via the Eino prompt component.
func RenderTravelSystem(ctx context.Context, config model.TravelPromptConfig, travel model.TravelContext) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(travelSystemPrompt),
	)
	vars := map[string]any{
		"AgencyName":  config.AgencyName,
		"Currency":    config.Currency,
		"Stage":       string(travel.Stage),
		"Known":       describeKnown(travel),
		"Guidance":    stageGuidance(travel),
		"SearchTool":  ToolSearch,
		"FlightsTool": ToolCheckFlights,
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", fmt.Errorf("travel prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("travel prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// describeKnown enumerates what the conversation has already collected, so
// the model knows what not to ask for again.
func describeKnown(travel model.TravelContext) string {
	var b strings.Builder
	b.WriteString("Already known:\n")

	known := false
	if travel.SelectedDestination != "" {
		fmt.Fprintf(&b, "- Destination: %s\n", travel.SelectedDestination)
		known = true
	}
	if travel.FromLocation != "" {
		fmt.Fprintf(&b, "- Departure city: %s\n", travel.FromLocation)
		known = true
	}
	if travel.Dates != nil && travel.Dates.Departure != "" {
		fmt.Fprintf(&b, "- Departure date: %s\n", travel.Dates.Departure)
		if travel.Dates.Return != "" {
			fmt.Fprintf(&b, "- Return date: %s\n", travel.Dates.Return)
		}
		known = true
	}
	if travel.SearchResults != "" {
		b.WriteString("- Destination suggestions from an earlier search were already shown to the user\n")
		known = true
	}
	if !known {
		b.WriteString("- Nothing yet\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func stageGuidance(travel model.TravelContext) string {
	switch travel.Stage {
	case model.StageDestinationSearch:
		return "The user is exploring destinations. Call " + ToolSearch + " with their query and present the matches as a short list, then ask which one appeals to them."
	case model.StageConfirmDestination:
		return "The user is leaning towards a destination. Confirm the choice in one sentence and check they want to proceed with it."
	case model.StageDepartureCity:
		return "The destination is settled. Ask which city the user will fly from. Do not revisit the destination."
	case model.StageDatesInput:
		return "Destination and departure city are settled. Ask when the user wants to travel (departure date, optionally return date)."
	case model.StageFlightsSearch:
		return "Everything needed is known. Call " + ToolCheckFlights + " with the known cities and dates, then present the options and their prices. If the tool reports a problem, relay its message."
	default:
		return "Greet the user briefly and find out where they would like to go. Suggest calling " + ToolSearch + " if they only have a rough idea."
	}
}
