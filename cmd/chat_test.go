package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeAsker struct {
	questions []string
	resets    int
	forgets   int
	err       error
}

func (f *fakeAsker) Ask(ctx context.Context, key, name, question, systemPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.questions = append(f.questions, question)
	return "answer to " + question, nil
}

func (f *fakeAsker) Reset(key string) {
	f.resets++
}

func (f *fakeAsker) Forget(key string) {
	f.forgets++
}

type fakeNotifier struct {
	titles []string
	err    error
}

func (f *fakeNotifier) Notify(ctx context.Context, title, text string) error {
	f.titles = append(f.titles, title)
	return f.err
}

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("מה השעות?\n\n/reset\nועוד שאלה\n/exit\nלא נשאל\n")
	var out bytes.Buffer
	a := &fakeAsker{}
	n := &fakeNotifier{}

	if err := chatLoop(context.Background(), in, &out, a, n, "topic", "info.pdf", "prompt"); err != nil {
		t.Fatalf("chatLoop failed: %v", err)
	}

	if len(a.questions) != 2 || a.questions[0] != "מה השעות?" || a.questions[1] != "ועוד שאלה" {
		t.Errorf("unexpected questions %q", a.questions)
	}
	if a.resets != 1 {
		t.Errorf("expected 1 reset, got %d", a.resets)
	}
	if a.forgets != 1 {
		t.Errorf("conversation should be forgotten on exit, got %d", a.forgets)
	}
	if len(n.titles) != 2 {
		t.Errorf("expected 2 notifications, got %d", len(n.titles))
	}
	if !strings.Contains(out.String(), "answer to ועוד שאלה") {
		t.Errorf("answer missing from output: %q", out.String())
	}
}

func TestChatLoop_EOF(t *testing.T) {
	a := &fakeAsker{}
	if err := chatLoop(context.Background(), strings.NewReader("שאלה"), &bytes.Buffer{}, a, &fakeNotifier{}, "k", "info.pdf", "p"); err != nil {
		t.Fatalf("chatLoop failed: %v", err)
	}
	if len(a.questions) != 1 {
		t.Errorf("expected the last line to be asked, got %d questions", len(a.questions))
	}
}

func TestChatLoop_PipelineErrorStops(t *testing.T) {
	a := &fakeAsker{err: errors.New("document not found")}
	err := chatLoop(context.Background(), strings.NewReader("a\nb\n"), &bytes.Buffer{}, a, &fakeNotifier{}, "k", "missing.pdf", "p")
	if err == nil {
		t.Fatal("expected pipeline error to end the loop")
	}
	if a.forgets != 1 {
		t.Errorf("conversation should be forgotten after an error, got %d", a.forgets)
	}
}

func TestChatLoop_NotifyErrorIgnored(t *testing.T) {
	a := &fakeAsker{}
	n := &fakeNotifier{err: errors.New("telegram down")}
	if err := chatLoop(context.Background(), strings.NewReader("a\nb\n"), &bytes.Buffer{}, a, n, "k", "info.pdf", "p"); err != nil {
		t.Fatalf("notification failures must not end the loop: %v", err)
	}
	if len(a.questions) != 2 {
		t.Errorf("expected 2 questions, got %d", len(a.questions))
	}
}

func TestReadSystemPrompt(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "prompt.txt")
	if err := os.WriteFile(file, []byte("  ענה בקצרה  \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(empty, []byte("\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		inline  string
		file    string
		want    string
		wantErr bool
	}{
		{name: "default", want: DefaultSystemPrompt},
		{name: "inline", inline: "be brief", want: "be brief"},
		{name: "file wins", inline: "be brief", file: file, want: "ענה בקצרה"},
		{name: "missing file", file: filepath.Join(dir, "nope.txt"), wantErr: true},
		{name: "empty file", file: empty, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readSystemPrompt(tt.inline, tt.file)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readSystemPrompt error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readSystemPrompt = %q, want %q", got, tt.want)
			}
		})
	}
}
