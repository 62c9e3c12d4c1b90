package chat

// ContextPrefix starts the assistant message that carries retrieved context.
const ContextPrefix = "Context: "

// BuildMessages lays out a request: the system instruction, the context as
// an assistant note, every past turn as a user/assistant pair in order, and
// the question as the final user message.
func BuildMessages(systemPrompt, retrieved string, history []Turn, question string) []Message {
	messages := make([]Message, 0, 3+2*len(history))

	messages = append(messages,
		Message{Role: RoleSystem, Content: systemPrompt},
		Message{Role: RoleAssistant, Content: ContextPrefix + retrieved},
	)
	for _, turn := range history {
		messages = append(messages,
			Message{Role: RoleUser, Content: turn.Question},
			Message{Role: RoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, Message{Role: RoleUser, Content: question})

	return messages
}
