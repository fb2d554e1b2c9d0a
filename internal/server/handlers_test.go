package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/stream"
)

type fakeAgent struct {
	chunks   []string
	text     string
	stage    model.Stage
	lastIn   model.TurnInput
	gotStage model.Stage
}

func (a *fakeAgent) ProcessTurn(_ context.Context, in model.TurnInput, travel model.TravelContext, sink stream.ChunkSink) model.TurnResult {
	a.lastIn = in
	a.gotStage = travel.Stage
	for _, c := range a.chunks {
		sink.Emit(c)
	}
	updated := travel
	updated.Stage = a.stage
	return model.TurnResult{Text: a.text, UpdatedContext: updated}
}

type fakeRepo struct {
	contexts map[string]model.TravelContext
	cleared  []string
	loadErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{contexts: map[string]model.TravelContext{}}
}

func (r *fakeRepo) AddMessage(context.Context, string, *schema.Message) error { return nil }

func (r *fakeRepo) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationID: id}, nil
}

func (r *fakeRepo) GetMessageCount(context.Context, string) (int, error) { return 0, nil }

func (r *fakeRepo) LoadContext(_ context.Context, id string) (model.TravelContext, error) {
	if r.loadErr != nil {
		return model.TravelContext{}, r.loadErr
	}
	if c, ok := r.contexts[id]; ok {
		return c, nil
	}
	return model.NewTravelContext(), nil
}

func (r *fakeRepo) SaveContext(_ context.Context, id string, travel model.TravelContext) error {
	r.contexts[id] = travel
	return nil
}

func (r *fakeRepo) ClearHistory(_ context.Context, id string) error {
	r.cleared = append(r.cleared, id)
	delete(r.contexts, id)
	return nil
}

func newTestServer(agent *fakeAgent, repo *fakeRepo) *Server {
	gin.SetMode(gin.TestMode)
	return New(
		model.ServerConfig{Addr: ":0", AllowOrigins: []string{"http://localhost:5173"}},
		NewChatHandler(agent, repo),
	)
}

func TestChatStreamsChunksAndDone(t *testing.T) {
	agent := &fakeAgent{
		chunks: []string{"How about ", "Japan?"},
		text:   "How about Japan?",
		stage:  model.StageDestinationSearch,
	}
	repo := newFakeRepo()
	srv := newTestServer(agent, repo)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"somewhere in Asia"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	assert.Contains(t, body, "event:chunk")
	assert.Contains(t, body, "How about ")
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"stage":"destination_search"`)
	assert.Contains(t, body, `"text":"How about Japan?"`)

	// A fresh conversation gets a generated ID which is persisted and echoed.
	assert.NotEmpty(t, agent.lastIn.ConversationID)
	saved, ok := repo.contexts[agent.lastIn.ConversationID]
	require.True(t, ok, "updated context must be persisted")
	assert.Equal(t, model.StageDestinationSearch, saved.Stage)
	assert.Contains(t, body, agent.lastIn.ConversationID)
}

func TestChatReusesConversationContext(t *testing.T) {
	agent := &fakeAgent{text: "ok", stage: model.StageDatesInput}
	repo := newFakeRepo()
	existing := model.NewTravelContext()
	existing.Stage = model.StageDepartureCity
	existing.SelectedDestination = "Tokyo"
	repo.contexts["conv-1"] = existing

	srv := newTestServer(agent, repo)
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"conversation_id":"conv-1","message":"from Los Angeles"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "conv-1", agent.lastIn.ConversationID)
	assert.Equal(t, model.StageDepartureCity, agent.gotStage)
	assert.Equal(t, model.StageDatesInput, repo.contexts["conv-1"].Stage)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	srv := newTestServer(&fakeAgent{}, newFakeRepo())

	for _, body := range []string{`{}`, `{"message":"   "}`, `not json`} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestGreeting(t *testing.T) {
	srv := newTestServer(&fakeAgent{}, newFakeRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/greeting", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "travel agent")
	assert.Contains(t, w.Body.String(), "Popular Destinations")
}

func TestResetConversation(t *testing.T) {
	repo := newFakeRepo()
	repo.contexts["conv-9"] = model.NewTravelContext()
	srv := newTestServer(&fakeAgent{}, repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/conversations/conv-9", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"conv-9"}, repo.cleared)
	assert.NotContains(t, repo.contexts, "conv-9")
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeAgent{}, newFakeRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
