package chat

import (
	"context"
	"strings"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Fixed user-facing replies for the branches that produce no model answer.
const (
	NoContextMessage = "לא נמצא מידע רלוונטי לשאלה שלך. נסה לשאול שאלה אחרת או לפרט יותר."
	NoAnswerMessage  = "לא הצלחתי למצוא תשובה לשאלה שלך בהתבסס על המידע הקיים. נסה לשאול שאלה אחרת."
	ErrorMessage     = "אירעה שגיאה בעת יצירת תשובה. אנא נסה שוב מאוחר יותר."
)

// DefaultMaxTokens bounds answer length when no limit is configured.
const DefaultMaxTokens = 850

// Outcome tells which branch produced a reply.
type Outcome int

const (
	OutcomeAnswered Outcome = iota
	OutcomeNoContext
	OutcomeNoAnswer
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAnswered:
		return "answered"
	case OutcomeNoContext:
		return "no_context"
	case OutcomeNoAnswer:
		return "no_answer"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// AnswerRequest is everything one generation call needs.
type AnswerRequest struct {
	Question     string
	Context      string
	SystemPrompt string
	History      []Turn
}

// Generator answers questions through one Backend with fixed parameters.
type Generator struct {
	backend Backend
	params  Params
}

// NewGenerator creates a generator. Temperature is always 0.0 and a
// non-positive MaxTokens means DefaultMaxTokens.
func NewGenerator(backend Backend, model string, maxTokens int) *Generator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Generator{
		backend: backend,
		params: Params{
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: 0.0,
		},
	}
}

// Params returns the generation parameters sent with every request.
func (g *Generator) Params() Params {
	return g.params
}

// Generate produces the reply for req. It never fails: an empty context
// short-circuits without calling the backend, an empty completion becomes
// NoAnswerMessage and a backend failure is logged and becomes ErrorMessage.
func (g *Generator) Generate(ctx context.Context, req AnswerRequest) (string, Outcome) {
	if strings.TrimSpace(req.Context) == "" {
		ctxzap.Info(ctx, "no relevant context, skipping generation")
		return NoContextMessage, OutcomeNoContext
	}

	messages := BuildMessages(req.SystemPrompt, req.Context, req.History, req.Question)

	text, err := g.backend.Generate(ctx, messages, g.params)
	if err != nil {
		ctxzap.Error(ctx, "answer generation failed",
			zap.String("model", g.params.Model),
			zap.Error(err),
		)
		return ErrorMessage, OutcomeError
	}

	answer := strings.TrimSpace(text)
	if answer == "" {
		ctxzap.Warn(ctx, "backend returned an empty answer", zap.String("model", g.params.Model))
		return NoAnswerMessage, OutcomeNoAnswer
	}

	return answer, OutcomeAnswered
}

// Answer generates a reply using memory's history and, only when the
// backend produced an answer, records the turn in memory.
func (g *Generator) Answer(ctx context.Context, memory *Memory, question, retrieved, systemPrompt string) string {
	req := AnswerRequest{
		Question:     question,
		Context:      retrieved,
		SystemPrompt: systemPrompt,
	}
	if memory != nil {
		req.History = memory.Snapshot()
	}

	answer, outcome := g.Generate(ctx, req)
	if outcome == OutcomeAnswered && memory != nil {
		memory.Append(question, answer)
	}

	ctxzap.Debug(ctx, "answer ready",
		zap.Stringer("outcome", outcome),
		zap.Int("history_turns", len(req.History)),
	)
	return answer
}
