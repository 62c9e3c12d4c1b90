// Package notify delivers answers to an external channel after they are
// shown locally.
package notify

import (
	"context"
	"html"
)

// Notifier sends a titled message somewhere outside the terminal.
type Notifier interface {
	Notify(ctx context.Context, title, text string) error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) Notify(ctx context.Context, title, text string) error {
	return nil
}

// FormatHTML escapes title and text for HTML parse mode and puts the title
// in bold above the text. An empty title is omitted.
func FormatHTML(title, text string) string {
	body := html.EscapeString(text)
	if title == "" {
		return body
	}
	return "<b>" + html.EscapeString(title) + "</b>\n\n" + body
}
