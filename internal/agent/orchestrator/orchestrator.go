// Package orchestrator drives one conversation turn: intent classification,
// stage transition, and the bounded tool-calling loop that streams response
// text back to the caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/conversations"
	"github.com/wanderplan/server/internal/agent/flights"
	"github.com/wanderplan/server/internal/agent/intent"
	"github.com/wanderplan/server/internal/agent/model"
	"github.com/wanderplan/server/internal/agent/search"
	"github.com/wanderplan/server/internal/agent/stage"
	"github.com/wanderplan/server/internal/agent/stream"
)

// RetryMessage is the worst-case reply; no turn ever surfaces an error
// beyond it.
const RetryMessage = "Sorry, I encountered an error. Please try again."

const wrapUpNotice = "SYSTEM NOTICE: You have reached the maximum tool call limit. " +
	"Please synthesize a helpful response using the information you've already gathered. " +
	"Acknowledge any limitations in your response if you couldn't complete all necessary tool calls."

const DefaultMaxSteps = 5

// Config wires the orchestrator's collaborators. ResponseModel is any
// tool-calling chat model; tests inject stubs here.
type Config struct {
	ResponseModel einomodel.ToolCallingChatModel
	Classifier    *intent.Classifier
	Search        *search.Adapter
	Flights       *flights.Service
	Messages      *conversations.MessagesManager
	Prompt        model.TravelPromptConfig
	MaxSteps      int
}

// Orchestrator processes turns sequentially for any number of conversations;
// all per-conversation state lives in the TravelContext threaded through
// ProcessTurn.
type Orchestrator struct {
	respModel  einomodel.ToolCallingChatModel
	classifier *intent.Classifier
	searcher   *search.Adapter
	flightSvc  *flights.Service
	mm         *conversations.MessagesManager
	promptCfg  model.TravelPromptConfig
	maxSteps   int
	now        func() time.Time
}

func New(cfg Config) *Orchestrator {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Orchestrator{
		respModel:  cfg.ResponseModel,
		classifier: cfg.Classifier,
		searcher:   cfg.Search,
		flightSvc:  cfg.Flights,
		mm:         cfg.Messages,
		promptCfg:  cfg.Prompt,
		maxSteps:   maxSteps,
		now:        time.Now,
	}
}

// ProcessTurn runs one full turn. Text fragments are forwarded to sink in
// emission order as they are produced; the returned result carries the final
// text, the step records and the updated travel context. No error and no
// panic escapes a turn.
func (o *Orchestrator) ProcessTurn(ctx context.Context, in model.TurnInput, travel model.TravelContext, sink stream.ChunkSink) (result model.TurnResult) {
	if sink == nil {
		sink = stream.Discard
	}
	result = model.TurnResult{UpdatedContext: travel}

	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("conversation_id", in.ConversationID).Msgf("turn panic recovered: %v", r)
			result.Text = RetryMessage
			sink.Emit(RetryMessage)
		}
	}()

	if err := o.mm.SaveUserMessage(ctx, in.ConversationID, in.Query); err != nil {
		// History is best-effort; the turn still runs.
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("Failed to save user message")
	}

	classified := o.classifier.Classify(ctx, in.Query)
	logx.Debug().
		Str("conversation_id", in.ConversationID).
		Str("intent", string(classified.Type)).
		Msg("Intent classified")

	updated := stage.Apply(travel, classified, o.now())
	result.UpdatedContext = updated
	logx.Debug().
		Str("conversation_id", in.ConversationID).
		Str("stage", string(updated.Stage)).
		Msg("Stage computed")

	text, steps, rec := o.runToolLoop(ctx, in, updated, sink)
	if rec != nil && rec.searchResults != "" {
		result.UpdatedContext.SearchResults = rec.searchResults
	}

	if strings.TrimSpace(text) == "" {
		text = RetryMessage
		sink.Emit(text)
	}
	result.Text = text
	result.Steps = steps

	if err := o.mm.SaveResponse(ctx, in.ConversationID, text); err != nil {
		logx.Warn().Err(err).Str("conversation_id", in.ConversationID).Msg("Failed to save assistant response")
	}
	return result
}

// runToolLoop drives the model until it answers without tool calls or the
// step budget is spent.
func (o *Orchestrator) runToolLoop(ctx context.Context, in model.TurnInput, travel model.TravelContext, sink stream.ChunkSink) (string, []model.TurnStep, *toolRecorder) {
	system, err := RenderTravelSystem(ctx, o.promptCfg, travel)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render system prompt")
		return "", nil, nil
	}

	rec := &toolRecorder{}
	toolset := newTravelTools(o.searcher, o.flightSvc, rec)
	infos, err := getToolInfos(ctx, toolset)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to collect tool infos")
		return "", nil, rec
	}
	invokable, err := indexInvokable(ctx, toolset)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to index tools")
		return "", nil, rec
	}

	cm, err := o.respModel.WithTools(infos)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools to response model")
		return "", nil, rec
	}

	messages, err := o.mm.BuildTurnContext(ctx, in.ConversationID, system)
	if err != nil {
		// Degrade to a history-less turn rather than failing it.
		logx.Warn().Err(err).Msg("Failed to load history, continuing without it")
		messages = []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(in.Query),
		}
	}

	var (
		finalText  string
		steps      []model.TurnStep
		toolCallID int
	)

	for step := 0; step < o.maxSteps; step++ {
		out, text := o.generateStep(ctx, cm, messages, sink)
		if out == nil {
			break
		}

		// Some providers omit tool_call IDs; synthesize them so tool
		// results can be correlated.
		for i := range out.ToolCalls {
			if strings.TrimSpace(out.ToolCalls[i].ID) == "" {
				toolCallID++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", toolCallID)
			}
		}
		messages = append(messages, out)
		finalText = text

		stepRec := model.TurnStep{Text: text}
		if len(out.ToolCalls) == 0 {
			steps = append(steps, stepRec)
			logx.Debug().Int("steps", step+1).Msg("AI response ready")
			return finalText, steps, rec
		}

		logx.Debug().Int("tool_count", len(out.ToolCalls)).Msg("Calling tools")
		for _, tc := range out.ToolCalls {
			toolResult := o.execTool(ctx, invokable, tc)
			stepRec.ToolCalls = append(stepRec.ToolCalls, model.ToolInvocation{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
				Result:    toolResult,
			})
			messages = append(messages, schema.ToolMessage(toolResult, tc.ID, schema.WithToolName(tc.Function.Name)))
		}
		steps = append(steps, stepRec)

		if step == o.maxSteps-2 {
			// The next model call is the last one; tell it to wrap up.
			messages = append(messages, &schema.Message{Role: schema.System, Content: wrapUpNotice})
		}
	}

	logx.Warn().Int("max_steps", o.maxSteps).Msg("Tool loop ended without a final answer")
	return finalText, steps, rec
}

// generateStep prefers streaming so the caller sees text as it is produced,
// falling back to a blocking Generate when the model cannot stream.
func (o *Orchestrator) generateStep(ctx context.Context, cm einomodel.ToolCallingChatModel, messages []*schema.Message, sink stream.ChunkSink) (*schema.Message, string) {
	sr, err := cm.Stream(ctx, messages)
	if err != nil {
		logx.Debug().Err(err).Msg("Stream unavailable, falling back to Generate")
		out, gerr := cm.Generate(ctx, messages)
		if gerr != nil {
			logx.Error().Err(gerr).Msg("Model generation failed")
			return nil, ""
		}
		if out.Content != "" {
			sink.Emit(out.Content)
		}
		return out, out.Content
	}
	defer sr.Close()

	var chunks []*schema.Message
	for {
		chunk, rerr := sr.Recv()
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			logx.Error().Err(rerr).Msg("Model stream failed")
			if len(chunks) == 0 {
				return nil, ""
			}
			break
		}
		if chunk.Content != "" {
			sink.Emit(chunk.Content)
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil, ""
	}

	out, err := schema.ConcatMessages(chunks)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to concatenate stream chunks")
		return nil, ""
	}
	return out, out.Content
}

// execTool runs one tool call. Tool failures become structured result text;
// nothing propagates.
func (o *Orchestrator) execTool(ctx context.Context, invokable map[string]tool.InvokableTool, tc schema.ToolCall) string {
	t, ok := invokable[tc.Function.Name]
	if !ok {
		return unknownToolResult(tc.Function.Name)
	}

	args := sanitizeArguments(tc.Function.Name, tc.Function.Arguments)
	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		logx.Error().Err(err).Str("tool", tc.Function.Name).Msg("Tool execution failed")
		return fmt.Sprintf("{\"error\":%q}", err.Error())
	}
	return out
}
