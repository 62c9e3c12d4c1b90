package chat

import "github.com/emirpasic/gods/queues/circularbuffer"

// DefaultHistorySize is how many turns a Memory keeps by default.
const DefaultHistorySize = 10

// Turn is one answered question.
type Turn struct {
	Question string
	Answer   string
}

// Memory keeps the most recent turns of one conversation. Once full, each
// Append drops the oldest turn. Memory is not safe for concurrent use; give
// every conversation its own instance.
type Memory struct {
	turns    *circularbuffer.Queue
	capacity int
}

// NewMemory returns an empty memory holding at most capacity turns.
// A non-positive capacity means DefaultHistorySize.
func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &Memory{
		turns:    circularbuffer.New(capacity),
		capacity: capacity,
	}
}

// Append records a turn, evicting the oldest one when full.
func (m *Memory) Append(question, answer string) {
	m.turns.Enqueue(Turn{Question: question, Answer: answer})
}

// Snapshot returns a copy of the stored turns, oldest first.
func (m *Memory) Snapshot() []Turn {
	values := m.turns.Values()
	out := make([]Turn, 0, len(values))
	for _, v := range values {
		out = append(out, v.(Turn))
	}
	return out
}

// Clear drops every turn.
func (m *Memory) Clear() {
	m.turns.Clear()
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	return m.turns.Size()
}

// Cap returns the maximum number of stored turns.
func (m *Memory) Cap() int {
	return m.capacity
}
