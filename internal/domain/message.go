package domain

// Role identifies who authored a transcript message.
type Role string

const (
	// RoleUser marks a message typed by the signed-in user.
	RoleUser Role = "user"
	// RoleBot marks a message produced by the lookup responder.
	RoleBot Role = "bot"
)

// Message is one turn of the chatbot transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage builds a user turn.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// BotMessage builds a bot turn.
func BotMessage(content string) Message {
	return Message{Role: RoleBot, Content: content}
}
