package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/model"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB
	maxErrSnippet = 200
)

var validTypes = map[model.IntentType]bool{
	model.IntentSearchDestination: true,
	model.IntentSelectDestination: true,
	model.IntentProvideLocation:   true,
	model.IntentProvideDates:      true,
}

// ParseIntentResponse parses the classifier model's output into a typed
// intent. The model is asked for bare JSON but routinely wraps it in a fenced
// code block, so the fenced body is preferred when present.
func ParseIntentResponse(content string) (resp *model.ClassifiedIntent, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "intent_parser").Msgf("panic recovered: %v", r)
			resp = nil
			err = fmt.Errorf("intent parser panic")
		}
	}()

	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "intent_parser").
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxContentLen]
	}

	raw := extractJSON(content)
	if raw == "" {
		return nil, fmt.Errorf("empty classifier response")
	}

	var parsed model.ClassifiedIntent
	if uerr := json.Unmarshal([]byte(raw), &parsed); uerr != nil {
		return nil, fmt.Errorf("unmarshal intent %q: %w", safeSnippet(raw), uerr)
	}
	if !validTypes[parsed.Type] {
		return nil, fmt.Errorf("unknown intent type %q", parsed.Type)
	}
	return &parsed, nil
}

// extractJSON returns the body of the first fenced code block when one
// exists, otherwise the whole trimmed content.
func extractJSON(content string) string {
	trimmed := strings.TrimSpace(content)

	start := strings.Index(trimmed, "```")
	if start < 0 {
		return trimmed
	}
	body := trimmed[start+3:]
	// drop an optional language tag like ```json
	if nl := strings.Index(body, "\n"); nl >= 0 {
		if tag := strings.TrimSpace(body[:nl]); tag == "" || !strings.ContainsAny(tag, "{}") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
