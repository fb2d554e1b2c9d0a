package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/flights"
	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/search"
)

const (
	ToolSearch       = "search"
	ToolCheckFlights = "checkFlights"
)

// toolRecorder captures per-turn tool side effects that flow back into the
// travel context after the loop finishes.
type toolRecorder struct {
	searchResults string
}

type searchToolOutput struct {
	Type   search.QueryType `json:"type"`
	Query  string           `json:"query"`
	Result string           `json:"result"`
}

// newTravelTools builds the turn's toolset. The tools close over the
// recorder, so a fresh set is constructed per turn.
func newTravelTools(searcher *search.Adapter, flightSvc *flights.Service, rec *toolRecorder) []tool.BaseTool {
	searchTool := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolSearch,
			Desc: "Search for travel destinations and attractions. Use this whenever the user explores where to go: a region (Asia, Europe), a theme (beaches, culture) or a city they want to learn about.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     "string",
					Desc:     "The region, theme or place to search for, e.g. Asia, beach vacation, Tokyo",
					Required: true,
				},
				"type": {
					Type:     "string",
					Desc:     "Either 'destination' or 'attraction'",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *search.Query) (*searchToolOutput, error) {
			result := searcher.Search(ctx, *in)
			if in.Type == search.TypeDestination {
				rec.searchResults = result
			}
			return &searchToolOutput{Type: in.Type, Query: in.Query, Result: result}, nil
		},
	)

	flightTool := utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCheckFlights,
			Desc: "Search for flights between two cities. Call this once the destination, the departure city and ideally the travel dates are known.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"fromCity": {
					Type:     "string",
					Desc:     "Departure city name, e.g. Los Angeles",
					Required: true,
				},
				"toCity": {
					Type:     "string",
					Desc:     "Destination city name, e.g. Tokyo",
					Required: true,
				},
				"dates": {
					Type: "object",
					Desc: "Travel dates; omit to search for tomorrow",
					SubParams: map[string]*schema.ParameterInfo{
						"departure": {
							Type: "string",
							Desc: "Departure date as YYYY-MM-DD",
						},
						"return": {
							Type: "string",
							Desc: "Return date as YYYY-MM-DD",
						},
					},
				},
			}),
		},
		func(ctx context.Context, in *flights.SearchInput) (*model.FlightSearchResult, error) {
			result := flightSvc.Search(ctx, *in)
			return &result, nil
		},
	)

	return []tool.BaseTool{searchTool, flightTool}
}

// getToolInfos collects the ToolInfo of every tool for model binding.
func getToolInfos(ctx context.Context, tools []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("get tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// indexInvokable maps tool name to its invokable form for loop execution.
func indexInvokable(ctx context.Context, tools []tool.BaseTool) (map[string]tool.InvokableTool, error) {
	out := make(map[string]tool.InvokableTool, len(tools))
	for _, t := range tools {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, err
		}
		inv, ok := t.(tool.InvokableTool)
		if !ok {
			return nil, fmt.Errorf("tool %s is not invokable", info.Name)
		}
		out[info.Name] = inv
	}
	return out, nil
}

// sanitizeArguments best-effort cleans model-produced tool arguments; it never
// fails hard and falls back to the original string.
func sanitizeArguments(name, arguments string) string {
	var m map[string]any
	if err := json.Unmarshal([]byte(arguments), &m); err != nil {
		// keep original if not JSON
		return arguments
	}

	trimString := func(key string) {
		v, ok := m[key]
		if !ok {
			return
		}
		switch vv := v.(type) {
		case string:
			m[key] = strings.TrimSpace(vv)
		default:
			// coerce non-string to string
			m[key] = strings.TrimSpace(fmt.Sprint(v))
		}
	}

	switch name {
	case ToolSearch:
		trimString("query")
		trimString("type")
	case ToolCheckFlights:
		trimString("fromCity")
		trimString("toCity")
	}

	b, err := json.Marshal(m)
	if err != nil {
		return arguments
	}
	return string(b)
}

// unknownToolResult is the structured fallback for hallucinated tool names,
// compact enough for the model to read and move on.
func unknownToolResult(name string) string {
	logx.Warn().Str("tool_name", name).Msg("Unknown or invalid tool call; returning fallback result")
	return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q,\"note\":\"ignored\"}", name)
}
