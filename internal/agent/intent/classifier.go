package intent

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	"github.com/samber/lo"

	logx "github.com/wanderplan/server/pkg/logger"

	"github.com/wanderplan/server/internal/agent/dates"
	"github.com/wanderplan/server/internal/agent/model"
)

//go:embed template/intent_prompt.txt
var intentSystemPrompt string

// ChatModel is the completion capability the classifier talks to.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// Classifier sends each utterance to the model under a strict JSON output
// contract and degrades to a keyword heuristic when the structured output
// cannot be parsed, so a turn always yields a usable intent.
type Classifier struct {
	cm  ChatModel
	now func() time.Time
}

func NewClassifier(cm ChatModel) *Classifier {
	return &Classifier{cm: cm, now: time.Now}
}

// Classify never fails; the worst case is the keyword fallback over the raw
// utterance.
func (c *Classifier) Classify(ctx context.Context, utterance string) model.ClassifiedIntent {
	now := c.now()

	system, err := renderIntentSystem(ctx, now)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to render intent prompt, using keyword fallback")
		return fallbackIntent(utterance)
	}

	out, err := c.cm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(utterance),
	})
	if err != nil {
		logx.Error().Err(err).Msg("Intent model call failed, using keyword fallback")
		return fallbackIntent(utterance)
	}

	parsed, err := ParseIntentResponse(out.Content)
	if err != nil {
		logx.Warn().Err(err).Msg("Intent response unparseable, using keyword fallback")
		return fallbackIntent(utterance)
	}

	repairDates(parsed, now)
	return *parsed
}

// renderIntentSystem renders the embedded template via the Eino prompt
// component so prompt callbacks fire.
func renderIntentSystem(ctx context.Context, now time.Time) (string, error) {
	content := strings.NewReplacer(
		"{current_date}", dates.Format(now),
	).Replace(intentSystemPrompt)

	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("intent prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("intent prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}

// repairDates enforces the future-date contract the model sometimes misses:
// a departure not strictly in the future is advanced by one year, and the
// return date is pulled into the same travel year.
func repairDates(in *model.ClassifiedIntent, now time.Time) {
	if in.Type != model.IntentProvideDates || in.Data.Dates == nil || in.Data.Dates.Departure == "" {
		return
	}
	d := in.Data.Dates
	if dates.IsFuture(d.Departure, now) {
		return
	}

	dep, err := dates.Parse(d.Departure)
	if err != nil {
		return
	}
	dep = dep.AddDate(1, 0, 0)
	logx.Debug().
		Str("original", d.Departure).
		Str("corrected", dates.Format(dep)).
		Msg("Advancing past departure date by one year")

	d.Departure = dates.Format(dep)
	if d.Return != "" {
		d.Return = dates.WithYear(d.Return, dep.Year())
	}
}

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{1,2}[/.]\d{1,2}`)

var (
	selectKeywords = []string{"like", "yes", "lets try", "let's try"}
	dateKeywords   = []string{"week", "day", "month"}
)

// fallbackIntent is the keyword heuristic used when structured output
// degrades. It keeps the turn loop progressing with a best guess.
func fallbackIntent(utterance string) model.ClassifiedIntent {
	lower := strings.ToLower(utterance)

	contains := func(k string) bool { return strings.Contains(lower, k) }
	switch {
	case lo.SomeBy(selectKeywords, contains):
		return model.ClassifiedIntent{Type: model.IntentSelectDestination}
	case lo.SomeBy(dateKeywords, contains) || datePattern.MatchString(lower):
		return model.ClassifiedIntent{Type: model.IntentProvideDates}
	default:
		return model.ClassifiedIntent{Type: model.IntentSearchDestination}
	}
}
