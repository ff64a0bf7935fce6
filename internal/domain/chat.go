// File: internal/domain/chat.go
package domain

// Model is the completion model a chat talks to.
type Model string

const (
	// ModelShaktimaan is the default model. The misspelled wire value matches
	// documents already written by the web client.
	ModelShaktimaan Model = "ShakitmaanGpt"
	ModelGPT4       Model = "GPT-4"

	DefaultModel = ModelShaktimaan
)

// Valid reports whether m is a known model.
func (m Model) Valid() bool {
	return m == ModelShaktimaan || m == ModelGPT4
}

// DefaultChatTitle is shown until the first message derives the real title.
const DefaultChatTitle = "New Chat"

// Chat represents a single conversation thread.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"` // Derived from the first message, e.g. "Capital of Sweden"
	Messages  []Message `json:"messages"`
	CreatedAt int64     `json:"createdAt"` // Unix milliseconds
	Model     Model     `json:"model"`
}

// Clone returns a copy of c that shares no message storage with it.
func (c Chat) Clone() Chat {
	out := c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	return out
}
