package conversation

import "github.com/iyunix/go-chatsync/internal/domain"

// The constructors below bind arguments into a Transform so callers can hand
// them straight to the state container.

func NewThread(id string, now int64) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return CreateThread(s, id, now, s.Model)
	}
}

func Append(threadID string, msg domain.Message) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return AppendMessage(s, threadID, msg)
	}
}

func Select(threadID string) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return SelectThread(s, threadID)
	}
}

func Delete(threadID string) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return DeleteThread(s, threadID)
	}
}

func Model(model domain.Model) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return SetModel(s, model)
	}
}

func Rename(threadID, title string) Transform {
	return func(s domain.ChatState) domain.ChatState {
		return RenameThread(s, threadID, title)
	}
}
