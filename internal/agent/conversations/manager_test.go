package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wanderplan/server/internal/agent/model"
)

type recordingRepo struct {
	messages []*schema.Message
}

func (r *recordingRepo) AddMessage(_ context.Context, _ string, m *schema.Message) error {
	r.messages = append(r.messages, m)
	return nil
}

func (r *recordingRepo) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationID: id, Messages: r.messages}, nil
}

func (r *recordingRepo) SaveContext(context.Context, string, model.TravelContext) error { return nil }

func (r *recordingRepo) LoadContext(context.Context, string) (model.TravelContext, error) {
	return model.NewTravelContext(), nil
}

func (r *recordingRepo) ClearHistory(context.Context, string) error { return nil }

func (r *recordingRepo) GetMessageCount(context.Context, string) (int, error) {
	return len(r.messages), nil
}

func newManager(repo model.ConversationRepository, maxTurns int) *MessagesManager {
	cfg := model.ConversationConfig{}
	cfg.History.MaxTurns = maxTurns
	return NewMessagesManager(repo, cfg)
}

func TestBuildTurnContextOrdering(t *testing.T) {
	repo := &recordingRepo{}
	mgr := newManager(repo, 10)
	ctx := context.Background()

	require.NoError(t, mgr.SaveUserMessage(ctx, "c1", "hello"))
	require.NoError(t, mgr.SaveResponse(ctx, "c1", "hi, where to?"))
	require.NoError(t, mgr.SaveUserMessage(ctx, "c1", "somewhere warm"))

	msgs, err := mgr.BuildTurnContext(ctx, "c1", "you are a travel agent")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, "you are a travel agent", msgs[0].Content)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "somewhere warm", msgs[3].Content)
}

func TestBuildTurnContextTrimsToRecentTurns(t *testing.T) {
	repo := &recordingRepo{}
	mgr := newManager(repo, 4)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, mgr.SaveUserMessage(ctx, "c1", fmt.Sprintf("question %d", i)))
		require.NoError(t, mgr.SaveResponse(ctx, "c1", fmt.Sprintf("answer %d", i)))
	}

	msgs, err := mgr.BuildTurnContext(ctx, "c1", "system")
	require.NoError(t, err)

	// System prompt plus the four most recent history entries.
	require.Len(t, msgs, 5)
	assert.Equal(t, "question 4", msgs[1].Content)
	assert.Equal(t, "answer 5", msgs[4].Content)
}

func TestTrimTailCopiesSlice(t *testing.T) {
	src := []*schema.Message{
		schema.UserMessage("a"),
		schema.UserMessage("b"),
	}
	out := trimTail(src, 10)
	require.Len(t, out, 2)

	out[0] = schema.UserMessage("mutated")
	assert.Equal(t, "a", src[0].Content)
}
