// Package search adapts the semantic-search backend into the destination
// search capability: it turns a region or city query into a prompt, pulls the
// backend's event stream and accumulates the answer under two hard byte
// budgets.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	logx "github.com/wanderplan/server/pkg/logger"
)

const (
	// maxAccumulateBytes caps how much streamed text is collected at all.
	maxAccumulateBytes = 13000
	// maxResultBytes caps the returned text; overflow is marked with an ellipsis.
	maxResultBytes = 8000

	destinationPrefix  = "Here are some destinations that match your search:\n\n"
	attractionTemplate = "Here are some attractions in %s:\n\n"

	attractionPlaceholder = "Attraction search is not available yet. Ask me about destinations and I can help you narrow down where to go."
)

// QueryType selects the search flavour.
type QueryType string

const (
	TypeDestination QueryType = "destination"
	TypeAttraction  QueryType = "attraction"
)

// Query is the search tool's parameter set.
type Query struct {
	Query string    `json:"query"`
	Type  QueryType `json:"type"`
}

// chunkEvent is one payload of the backend's "data: {...}" event lines.
type chunkEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Adapter is the search capability over a streaming Backend.
type Adapter struct {
	backend Backend
}

func NewAdapter(backend Backend) *Adapter {
	return &Adapter{backend: backend}
}

// Search runs one query and returns bounded answer text. It never fails: a
// backend or stream error yields whatever text accumulated before it.
func (a *Adapter) Search(ctx context.Context, in Query) string {
	if in.Type == TypeAttraction {
		// Attraction retrieval is a stub for now.
		return strings.Replace(attractionTemplate, "%s", in.Query, 1) + attractionPlaceholder
	}

	prompt := "Find destinations matching " + in.Query
	body := a.collect(ctx, prompt)
	return destinationPrefix + body
}

// collect drains the backend stream, skipping malformed chunks and stopping
// once the accumulation budget would be exceeded.
func (a *Adapter) collect(ctx context.Context, prompt string) string {
	sr, err := a.backend.StreamAnswer(ctx, prompt)
	if err != nil {
		logx.Error().Err(err).Msg("Search backend unavailable")
		return ""
	}
	defer sr.Close()

	var acc strings.Builder
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Stream errors are never fatal to the turn.
			logx.Warn().Err(err).Msg("Search stream error, keeping accumulated text")
			break
		}

		text, ok := parseChunk(chunk)
		if !ok {
			logx.Warn().Str("chunk", safeSnippet(chunk)).Msg("Skipping malformed search chunk")
			continue
		}
		if acc.Len()+len(text) > maxAccumulateBytes {
			logx.Debug().Int("accumulated", acc.Len()).Msg("Search accumulation budget reached")
			break
		}
		acc.WriteString(text)
	}

	result := acc.String()
	if len(result) > maxResultBytes {
		result = result[:maxResultBytes] + "..."
	}
	return result
}

// parseChunk extracts the text payload from one "data: {json}" event line.
func parseChunk(chunk string) (string, bool) {
	_, payload, found := strings.Cut(chunk, "data: ")
	if !found {
		return "", false
	}
	var ev chunkEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return "", false
	}
	if ev.Type != "text" || ev.Message == "" {
		return "", false
	}
	return ev.Message, true
}

func safeSnippet(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max]
}
