// File: internal/domain/message.go
package domain

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a single message within a chat.
// Messages are immutable once appended to a chat.
type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds at creation
}
