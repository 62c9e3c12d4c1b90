package chat

import (
	"context"
	"errors"
	"testing"
)

func TestGenerator_Answer_Success(t *testing.T) {
	backend := NewMockBackend("  הטלפון הוא 03-1234567  \n")
	gen := NewGenerator(backend, "test-model", 0)
	memory := NewMemory(10)
	memory.Append("שאלה קודמת", "תשובה קודמת")

	answer := gen.Answer(context.Background(), memory, "מה הטלפון?", "טלפון: 03-1234567", "sys")

	if answer != "הטלפון הוא 03-1234567" {
		t.Errorf("unexpected answer %q", answer)
	}
	if backend.Calls() != 1 {
		t.Errorf("expected 1 backend call, got %d", backend.Calls())
	}

	params := backend.LastParams()
	if params.Model != "test-model" || params.MaxTokens != DefaultMaxTokens || params.Temperature != 0 {
		t.Errorf("unexpected params %+v", params)
	}

	msgs := backend.LastMessages()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if msgs[2].Content != "שאלה קודמת" || msgs[3].Content != "תשובה קודמת" {
		t.Errorf("history not forwarded: %+v", msgs)
	}

	turns := memory.Snapshot()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[1].Question != "מה הטלפון?" || turns[1].Answer != answer {
		t.Errorf("unexpected recorded turn %+v", turns[1])
	}
}

func TestGenerator_EmptyContextSkipsBackend(t *testing.T) {
	for _, ctxText := range []string{"", "   \n\t"} {
		backend := NewMockBackend("should not be used")
		gen := NewGenerator(backend, "test-model", 850)
		memory := NewMemory(10)

		answer := gen.Answer(context.Background(), memory, "x", ctxText, "sys")

		if answer != NoContextMessage {
			t.Errorf("expected NoContextMessage, got %q", answer)
		}
		if backend.Calls() != 0 {
			t.Errorf("expected no backend calls, got %d", backend.Calls())
		}
		if memory.Len() != 0 {
			t.Errorf("memory should be unchanged, has %d turns", memory.Len())
		}
	}
}

func TestGenerator_EmptyAnswer(t *testing.T) {
	for _, response := range []string{"", "  \n "} {
		backend := NewMockBackend(response)
		gen := NewGenerator(backend, "test-model", 850)
		memory := NewMemory(10)

		answer := gen.Answer(context.Background(), memory, "q", "some context", "sys")

		if answer != NoAnswerMessage {
			t.Errorf("expected NoAnswerMessage, got %q", answer)
		}
		if memory.Len() != 0 {
			t.Errorf("memory should be unchanged, has %d turns", memory.Len())
		}
	}
}

func TestGenerator_BackendError(t *testing.T) {
	backend := NewMockBackendWithError(errors.New("connection reset by peer"))
	gen := NewGenerator(backend, "test-model", 850)
	memory := NewMemory(10)
	memory.Append("old", "turn")

	answer := gen.Answer(context.Background(), memory, "q", "some context", "sys")

	if answer != ErrorMessage {
		t.Errorf("expected ErrorMessage, got %q", answer)
	}
	turns := memory.Snapshot()
	if len(turns) != 1 || turns[0].Question != "old" {
		t.Errorf("memory should be unchanged, got %+v", turns)
	}
}

func TestGenerator_Generate_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		backend *MockBackend
		context string
		want    Outcome
	}{
		{name: "answered", backend: NewMockBackend("ok"), context: "c", want: OutcomeAnswered},
		{name: "no context", backend: NewMockBackend("ok"), context: " ", want: OutcomeNoContext},
		{name: "no answer", backend: NewMockBackend(""), context: "c", want: OutcomeNoAnswer},
		{name: "error", backend: NewMockBackendWithError(errors.New("503")), context: "c", want: OutcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(tt.backend, "m", 100)
			_, got := gen.Generate(context.Background(), AnswerRequest{Question: "q", Context: tt.context})
			if got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestGenerator_NilMemory(t *testing.T) {
	gen := NewGenerator(NewMockBackend("answer"), "m", 100)
	if got := gen.Answer(context.Background(), nil, "q", "ctx", "sys"); got != "answer" {
		t.Errorf("unexpected answer %q", got)
	}
}

func TestNewMockBackendWithError_Wraps(t *testing.T) {
	cause := errors.New("timeout")
	_, err := NewMockBackendWithError(cause).Generate(context.Background(), nil, Params{})
	if !errors.Is(err, ErrGenerationService) || !errors.Is(err, cause) {
		t.Errorf("expected wrapped service error, got %v", err)
	}
}
