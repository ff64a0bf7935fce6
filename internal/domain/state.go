// File: internal/domain/state.go
package domain

// ChatState is the whole persisted conversation state of one user.
// Chats are ordered most-recently-created first.
type ChatState struct {
	Chats      []Chat `json:"chats"`
	ActiveChat string `json:"activeChat"` // empty when no chat is selected
	Model      Model  `json:"model"`      // default model for new chats
}

// NewChatState returns the state used when nothing has been persisted yet.
func NewChatState() ChatState {
	return ChatState{
		Chats: []Chat{},
		Model: DefaultModel,
	}
}

// Clone deep-copies the state so that callers can never mutate a committed value.
func (s ChatState) Clone() ChatState {
	out := s
	out.Chats = make([]Chat, len(s.Chats))
	for i, c := range s.Chats {
		out.Chats[i] = c.Clone()
	}
	return out
}

// FindChat returns the index of the chat with the given id, or -1.
func (s ChatState) FindChat(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.Chats {
		if s.Chats[i].ID == id {
			return i
		}
	}
	return -1
}

// Normalize repairs values that older documents may carry: nil chat lists,
// a missing default model and an active id pointing at a removed chat.
func (s ChatState) Normalize() ChatState {
	if s.Chats == nil {
		s.Chats = []Chat{}
	}
	for i := range s.Chats {
		if s.Chats[i].Messages == nil {
			s.Chats[i].Messages = []Message{}
		}
	}
	if !s.Model.Valid() {
		s.Model = DefaultModel
	}
	if s.ActiveChat != "" && s.FindChat(s.ActiveChat) < 0 {
		s.ActiveChat = ""
	}
	return s
}
