package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/server/internal/agent/conversations"
	"github.com/wanderplan/server/internal/agent/flights"
	"github.com/wanderplan/server/internal/agent/intent"
	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/search"
	"github.com/wanderplan/server/internal/agent/stream"
)

// memoryRepo is an in-memory ConversationRepository for orchestrator tests.
type memoryRepo struct {
	messages map[string][]*schema.Message
	contexts map[string]model.TravelContext
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		messages: map[string][]*schema.Message{},
		contexts: map[string]model.TravelContext{},
	}
}

func (r *memoryRepo) AddMessage(_ context.Context, id string, m *schema.Message) error {
	r.messages[id] = append(r.messages[id], m)
	return nil
}

func (r *memoryRepo) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationID: id, Messages: r.messages[id]}, nil
}

func (r *memoryRepo) SaveContext(_ context.Context, id string, travel model.TravelContext) error {
	r.contexts[id] = travel
	return nil
}

func (r *memoryRepo) LoadContext(_ context.Context, id string) (model.TravelContext, error) {
	if c, ok := r.contexts[id]; ok {
		return c, nil
	}
	return model.NewTravelContext(), nil
}

func (r *memoryRepo) ClearHistory(_ context.Context, id string) error {
	delete(r.messages, id)
	delete(r.contexts, id)
	return nil
}

func (r *memoryRepo) GetMessageCount(_ context.Context, id string) (int, error) {
	return len(r.messages[id]), nil
}

// scriptedModel plays back a fixed sequence of assistant messages, one per
// model call, and records every request it received.
type scriptedModel struct {
	script   []*schema.Message
	calls    int
	requests [][]*schema.Message
	failAll  bool
}

func (m *scriptedModel) WithTools(_ []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return m, nil
}

func (m *scriptedModel) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	if m.failAll {
		return nil, fmt.Errorf("model unavailable")
	}
	m.requests = append(m.requests, in)
	if m.calls >= len(m.script) {
		return nil, fmt.Errorf("script exhausted after %d calls", m.calls)
	}
	out := m.script[m.calls]
	m.calls++
	return out, nil
}

func (m *scriptedModel) Stream(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	// Split content into two chunks to exercise stream accumulation.
	if out.Content != "" && len(out.ToolCalls) == 0 {
		mid := len(out.Content) / 2
		return schema.StreamReaderFromArray([]*schema.Message{
			{Role: schema.Assistant, Content: out.Content[:mid]},
			{Role: schema.Assistant, Content: out.Content[mid:]},
		}), nil
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// jsonIntentModel answers every classification request with the same JSON.
type jsonIntentModel struct {
	payload string
}

func (m *jsonIntentModel) Generate(_ context.Context, _ []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.payload, nil), nil
}

// staticBackend streams a fixed list of event lines.
type staticBackend struct {
	lines []string
}

func (b *staticBackend) StreamAnswer(_ context.Context, _ string) (*schema.StreamReader[string], error) {
	return schema.StreamReaderFromArray(b.lines), nil
}

type noFlightsClient struct{}

func (noFlightsClient) SearchFlights(_ context.Context, _, _, _ string) (*flights.SearchResponse, error) {
	return &flights.SearchResponse{Status: true, Data: &flights.ItineraryData{}}, nil
}

func newTestOrchestrator(t *testing.T, respModel einomodel.ToolCallingChatModel, repo *memoryRepo) *Orchestrator {
	t.Helper()

	classifier := intent.NewClassifier(&jsonIntentModel{
		payload: `{"type":"search_destination","data":{"destination":"Asia"}}`,
	})
	searcher := search.NewAdapter(&staticBackend{lines: []string{
		`data: {"type":"text","message":"Tokyo, Japan: neon and temples. "}`,
		`data: {"type":"text","message":"Seoul, South Korea: food and palaces."}`,
	}})
	flightSvc := flights.NewService(nil, noFlightsClient{})

	cfg := model.ConversationConfig{}
	cfg.History.MaxTurns = 10

	return New(Config{
		ResponseModel: respModel,
		Classifier:    classifier,
		Search:        searcher,
		Flights:       flightSvc,
		Messages:      conversations.NewMessagesManager(repo, cfg),
		Prompt:        model.TravelPromptConfig{AgencyName: "Wanderplan", Currency: "USD"},
		MaxSteps:      3,
	})
}

func TestProcessTurnDirectAnswer(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{script: []*schema.Message{
		schema.AssistantMessage("How about Japan or Thailand?", nil),
	}}
	o := newTestOrchestrator(t, cm, repo)

	var buf stream.Buffer
	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c1", Query: "somewhere in Asia"},
		model.NewTravelContext(), &buf)

	assert.Equal(t, "How about Japan or Thailand?", result.Text)
	assert.Equal(t, "How about Japan or Thailand?", buf.String())
	assert.Greater(t, len(buf.Chunks), 1, "streamed text should arrive in multiple chunks")
	assert.Equal(t, model.StageDestinationSearch, result.UpdatedContext.Stage)

	require.Len(t, result.Steps, 1)
	assert.Empty(t, result.Steps[0].ToolCalls)

	// Both sides of the exchange must be in history.
	msgs := repo.messages["c1"]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "How about Japan or Thailand?", msgs[1].Content)
}

func TestProcessTurnSearchToolFlow(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{script: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				// Empty ID must be synthesized by the loop.
				Function: schema.FunctionCall{
					Name:      ToolSearch,
					Arguments: `{"query":"  Asia ","type":"destination"}`,
				},
			}},
		},
		schema.AssistantMessage("Here are some ideas for Asia.", nil),
	}}
	o := newTestOrchestrator(t, cm, repo)

	var buf stream.Buffer
	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c2", Query: "somewhere in Asia"},
		model.NewTravelContext(), &buf)

	assert.Equal(t, "Here are some ideas for Asia.", result.Text)
	require.Len(t, result.Steps, 2)
	require.Len(t, result.Steps[0].ToolCalls, 1)

	inv := result.Steps[0].ToolCalls[0]
	assert.Equal(t, ToolSearch, inv.Name)
	assert.Contains(t, inv.Result, "Tokyo, Japan")

	// Destination search results flow into the travel context.
	assert.Contains(t, result.UpdatedContext.SearchResults, "Here are some destinations that match your search:")
	assert.Contains(t, result.UpdatedContext.SearchResults, "Seoul, South Korea")

	// The second model call must carry the assistant tool-call turn and a
	// tool message with the synthesized call ID.
	require.Len(t, cm.requests, 2)
	second := cm.requests[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, schema.Tool, toolMsg.Role)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
}

func TestProcessTurnUnknownTool(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{script: []*schema.Message{
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				ID:       "call_x",
				Function: schema.FunctionCall{Name: "bookHotel", Arguments: `{}`},
			}},
		},
		schema.AssistantMessage("I can only search destinations and flights.", nil),
	}}
	o := newTestOrchestrator(t, cm, repo)

	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c3", Query: "book me a hotel"},
		model.NewTravelContext(), stream.Discard)

	require.Len(t, result.Steps, 2)
	require.Len(t, result.Steps[0].ToolCalls, 1)
	assert.Contains(t, result.Steps[0].ToolCalls[0].Result, "unknown_tool")
	assert.Equal(t, "I can only search destinations and flights.", result.Text)
}

func TestProcessTurnWrapUpNoticeBeforeLastStep(t *testing.T) {
	repo := newMemoryRepo()
	toolCallMsg := func() *schema.Message {
		return &schema.Message{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				Function: schema.FunctionCall{
					Name:      ToolSearch,
					Arguments: `{"query":"Asia","type":"destination"}`,
				},
			}},
		}
	}
	cm := &scriptedModel{script: []*schema.Message{
		toolCallMsg(),
		toolCallMsg(),
		schema.AssistantMessage("Summary of what I found.", nil),
	}}
	o := newTestOrchestrator(t, cm, repo)

	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c4", Query: "somewhere in Asia"},
		model.NewTravelContext(), stream.Discard)

	assert.Equal(t, "Summary of what I found.", result.Text)
	require.Len(t, cm.requests, 3)

	// The final model call must have seen the wrap-up notice.
	last := cm.requests[2]
	found := false
	for _, m := range last {
		if m.Role == schema.System && strings.Contains(m.Content, "maximum tool call limit") {
			found = true
		}
	}
	assert.True(t, found, "wrap-up notice missing from the final step's context")
}

func TestProcessTurnModelFailure(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{failAll: true}
	o := newTestOrchestrator(t, cm, repo)

	var buf stream.Buffer
	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c5", Query: "hello"},
		model.NewTravelContext(), &buf)

	assert.Equal(t, RetryMessage, result.Text)
	assert.Equal(t, RetryMessage, buf.String())
	assert.Empty(t, result.Steps)

	// The fallback reply is still persisted so the conversation stays
	// coherent.
	msgs := repo.messages["c5"]
	require.Len(t, msgs, 2)
	assert.Equal(t, RetryMessage, msgs[1].Content)
}

func TestProcessTurnNilSink(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{script: []*schema.Message{
		schema.AssistantMessage("ok", nil),
	}}
	o := newTestOrchestrator(t, cm, repo)

	assert.NotPanics(t, func() {
		result := o.ProcessTurn(context.Background(),
			model.TurnInput{ConversationID: "c6", Query: "hi"},
			model.NewTravelContext(), nil)
		assert.Equal(t, "ok", result.Text)
	})
}

func TestStageProgressionAcrossTurns(t *testing.T) {
	repo := newMemoryRepo()
	cm := &scriptedModel{script: []*schema.Message{
		schema.AssistantMessage("Tokyo is a great pick. Where will you fly from?", nil),
	}}

	classifier := intent.NewClassifier(&jsonIntentModel{
		payload: `{"type":"select_destination","data":{"destination":"Tokyo"}}`,
	})
	cfg := model.ConversationConfig{}
	cfg.History.MaxTurns = 10
	o := New(Config{
		ResponseModel: cm,
		Classifier:    classifier,
		Search:        search.NewAdapter(&staticBackend{}),
		Flights:       flights.NewService(nil, noFlightsClient{}),
		Messages:      conversations.NewMessagesManager(repo, cfg),
		Prompt:        model.TravelPromptConfig{AgencyName: "Wanderplan", Currency: "USD"},
		MaxSteps:      3,
	})

	travel := model.NewTravelContext()
	travel.Stage = model.StageDestinationSearch

	result := o.ProcessTurn(context.Background(),
		model.TurnInput{ConversationID: "c7", Query: "I like Tokyo"},
		travel, stream.Discard)

	assert.Equal(t, "Tokyo", result.UpdatedContext.SelectedDestination)
	assert.Equal(t, model.StageDepartureCity, result.UpdatedContext.Stage)
}

func TestDescribeKnown(t *testing.T) {
	empty := model.NewTravelContext()
	assert.Contains(t, describeKnown(empty), "Nothing yet")

	full := model.TravelContext{
		Stage:               model.StageFlightsSearch,
		SelectedDestination: "Tokyo",
		FromLocation:        "Los Angeles",
		Dates:               &model.TripDates{Departure: "2026-10-01", Return: "2026-10-10"},
	}
	known := describeKnown(full)
	assert.Contains(t, known, "Destination: Tokyo")
	assert.Contains(t, known, "Departure city: Los Angeles")
	assert.Contains(t, known, "Departure date: 2026-10-01")
	assert.Contains(t, known, "Return date: 2026-10-10")
	assert.NotContains(t, known, "Nothing yet")
}

func TestRenderTravelSystem(t *testing.T) {
	travel := model.NewTravelContext()
	travel.Stage = model.StageFlightsSearch

	out, err := RenderTravelSystem(context.Background(),
		model.TravelPromptConfig{AgencyName: "Wanderplan", Currency: "USD"}, travel)
	require.NoError(t, err)
	assert.Contains(t, out, "Wanderplan")
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, string(model.StageFlightsSearch))
	assert.Contains(t, out, ToolCheckFlights)
}

func TestSanitizeArguments(t *testing.T) {
	out := sanitizeArguments(ToolSearch, `{"query":"  Asia  ","type":" destination "}`)
	assert.JSONEq(t, `{"query":"Asia","type":"destination"}`, out)

	// Non-JSON input passes through untouched.
	assert.Equal(t, "not json", sanitizeArguments(ToolSearch, "not json"))

	out = sanitizeArguments(ToolCheckFlights, `{"fromCity":" Los Angeles","toCity":"Tokyo ","dates":{"departure":"2026-10-01"}}`)
	assert.JSONEq(t, `{"fromCity":"Los Angeles","toCity":"Tokyo","dates":{"departure":"2026-10-01"}}`, out)
}

func TestNewDefaults(t *testing.T) {
	o := New(Config{})
	assert.Equal(t, DefaultMaxSteps, o.maxSteps)
	assert.WithinDuration(t, time.Now(), o.now(), time.Minute)
}
