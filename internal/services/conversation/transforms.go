// Package conversation implements the thread operations as pure transforms
// over domain.ChatState. Every function returns a new value and leaves its
// input untouched; operations on unknown ids return the state unchanged.
package conversation

import (
	"strings"

	"github.com/iyunix/go-chatsync/internal/domain"
)

// Transform maps one committed state onto the next.
type Transform func(domain.ChatState) domain.ChatState

// CreateThread prepends an empty chat and makes it active.
func CreateThread(s domain.ChatState, id string, now int64, model domain.Model) domain.ChatState {
	if id == "" || s.FindChat(id) >= 0 {
		return s
	}
	if !model.Valid() {
		model = domain.DefaultModel
	}
	chat := domain.Chat{
		ID:        id,
		Title:     domain.DefaultChatTitle,
		Messages:  []domain.Message{},
		CreatedAt: now,
		Model:     model,
	}
	chats := make([]domain.Chat, 0, len(s.Chats)+1)
	chats = append(chats, chat)
	chats = append(chats, s.Chats...)
	s.Chats = chats
	s.ActiveChat = id
	return s
}

// AppendMessage appends msg to the chat identified by threadID. The first
// message of a chat also sets its title.
func AppendMessage(s domain.ChatState, threadID string, msg domain.Message) domain.ChatState {
	idx := s.FindChat(threadID)
	if idx < 0 {
		return s
	}
	chats := make([]domain.Chat, len(s.Chats))
	copy(chats, s.Chats)

	chat := chats[idx]
	messages := make([]domain.Message, len(chat.Messages), len(chat.Messages)+1)
	copy(messages, chat.Messages)
	chat.Messages = append(messages, msg)
	if len(chat.Messages) == 1 {
		chat.Title = DeriveTitle(msg.Content)
	}
	chats[idx] = chat

	s.Chats = chats
	return s
}

// SelectThread sets the active chat. Callers only offer ids present in the state.
func SelectThread(s domain.ChatState, threadID string) domain.ChatState {
	s.ActiveChat = threadID
	return s
}

// DeleteThread removes a chat. When the active chat is removed the first
// remaining chat becomes active, or none when the list is empty.
func DeleteThread(s domain.ChatState, threadID string) domain.ChatState {
	idx := s.FindChat(threadID)
	if idx < 0 {
		return s
	}
	chats := make([]domain.Chat, 0, len(s.Chats)-1)
	chats = append(chats, s.Chats[:idx]...)
	chats = append(chats, s.Chats[idx+1:]...)
	s.Chats = chats

	if s.ActiveChat == threadID {
		s.ActiveChat = ""
		if len(chats) > 0 {
			s.ActiveChat = chats[0].ID
		}
	}
	return s
}

// SetModel changes the default model for chats created afterwards.
func SetModel(s domain.ChatState, model domain.Model) domain.ChatState {
	if !model.Valid() {
		return s
	}
	s.Model = model
	return s
}

// RenameThread replaces a chat title chosen by the user.
func RenameThread(s domain.ChatState, threadID, title string) domain.ChatState {
	title = strings.TrimSpace(title)
	idx := s.FindChat(threadID)
	if idx < 0 || title == "" {
		return s
	}
	chats := make([]domain.Chat, len(s.Chats))
	copy(chats, s.Chats)
	chats[idx].Title = title
	s.Chats = chats
	return s
}

// ActiveThread returns the selected chat, if any.
func ActiveThread(s domain.ChatState) (domain.Chat, bool) {
	return FindThread(s, s.ActiveChat)
}

// FindThread returns the chat with the given id, if any.
func FindThread(s domain.ChatState, threadID string) (domain.Chat, bool) {
	idx := s.FindChat(threadID)
	if idx < 0 {
		return domain.Chat{}, false
	}
	return s.Chats[idx], true
}

// HasMessage reports whether the chat already holds a message with id.
func HasMessage(c domain.Chat, id string) bool {
	for _, m := range c.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}
