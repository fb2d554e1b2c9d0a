package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/wanderplan/server/internal/agent/model"
)

// Backend streams a natural-language answer for a prompt. The sequence is
// unbounded; callers must impose their own truncation.
type Backend interface {
	StreamAnswer(ctx context.Context, prompt string) (*schema.StreamReader[string], error)
}

// HTTPBackend consumes the semantic-search service's server-sent event
// stream. Each streamed element is one raw event line; the adapter does the
// payload parsing.
type HTTPBackend struct {
	endpoint    string
	apiKey      string
	userContext string
	httpClient  *http.Client
}

func NewHTTPBackend(cfg model.SearchBackendConfig) *HTTPBackend {
	return &HTTPBackend{
		endpoint:    cfg.Endpoint,
		apiKey:      cfg.APIKey,
		userContext: cfg.UserContext,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (b *HTTPBackend) StreamAnswer(ctx context.Context, prompt string) (*schema.StreamReader[string], error) {
	payload, err := json.Marshal(map[string]any{
		"prompt":        prompt,
		"userContext":   b.userContext,
		"inferenceType": "documentation",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	sr, sw := schema.Pipe[string](8)
	go func() {
		defer resp.Body.Close()
		defer sw.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if closed := sw.Send(line, nil); closed {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			sw.Send("", err)
		}
	}()
	return sr, nil
}

var _ Backend = (*HTTPBackend)(nil)
