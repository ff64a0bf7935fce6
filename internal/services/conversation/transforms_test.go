package conversation

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/domain"
)

func userMsg(id, content string) domain.Message {
	return domain.Message{ID: id, Role: domain.RoleUser, Content: content, Timestamp: 1}
}

func TestCreateThread_PrependsAndActivates(t *testing.T) {
	s := domain.NewChatState()
	s = CreateThread(s, "a", 10, domain.ModelGPT4)
	s = CreateThread(s, "b", 20, s.Model)

	require.Len(t, s.Chats, 2)
	assert.Equal(t, "b", s.Chats[0].ID)
	assert.Equal(t, "a", s.Chats[1].ID)
	assert.Equal(t, "b", s.ActiveChat)
	assert.Equal(t, domain.DefaultChatTitle, s.Chats[0].Title)
	assert.Equal(t, domain.DefaultModel, s.Chats[0].Model)
	assert.Equal(t, domain.ModelGPT4, s.Chats[1].Model)
	assert.Equal(t, int64(20), s.Chats[0].CreatedAt)
	assert.Empty(t, s.Chats[0].Messages)
}

func TestCreateThread_DuplicateIDIsNoOp(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "a", 1, domain.DefaultModel)
	s = SelectThread(s, "")
	again := CreateThread(s, "a", 2, domain.DefaultModel)
	assert.Equal(t, s, again)
}

func TestAppendMessage_TitleDerivedOnce(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "t", 1, domain.DefaultModel)

	s = AppendMessage(s, "t", userMsg("m1", "Hello"))
	assert.Equal(t, "Hello", s.Chats[0].Title)

	s = AppendMessage(s, "t", userMsg("m2", "A completely different and much longer message"))
	assert.Equal(t, "Hello", s.Chats[0].Title)
	require.Len(t, s.Chats[0].Messages, 2)
	assert.Equal(t, "m1", s.Chats[0].Messages[0].ID)
	assert.Equal(t, "m2", s.Chats[0].Messages[1].ID)
}

func TestAppendMessage_UnknownThreadIsNoOp(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "t", 1, domain.DefaultModel)
	out := AppendMessage(s, "missing", userMsg("m1", "x"))
	assert.Equal(t, s, out)
}

func TestAppendMessage_DoesNotMutateInput(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "t", 1, domain.DefaultModel)
	s = AppendMessage(s, "t", userMsg("m1", "first"))
	before := s.Clone()

	_ = AppendMessage(s, "t", userMsg("m2", "second"))
	assert.Equal(t, before, s)
}

func TestDeriveTitle(t *testing.T) {
	exact := strings.Repeat("x", 30)
	long := strings.Repeat("y", 31)

	assert.Equal(t, "", DeriveTitle(""))
	assert.Equal(t, "short", DeriveTitle("short"))
	assert.Equal(t, exact, DeriveTitle(exact))
	assert.Equal(t, strings.Repeat("y", 30)+"...", DeriveTitle(long))

	multibyte := strings.Repeat("é", 40)
	assert.Equal(t, strings.Repeat("é", 30)+"...", DeriveTitle(multibyte))
}

func TestDeleteThread(t *testing.T) {
	build := func() domain.ChatState {
		s := domain.NewChatState()
		for _, id := range []string{"c", "b", "a"} {
			s = CreateThread(s, id, 1, domain.DefaultModel)
		}
		return s // order: a, b, c; active a
	}

	t.Run("active removed selects first remaining", func(t *testing.T) {
		s := SelectThread(build(), "b")
		s = DeleteThread(s, "b")
		assert.Equal(t, "a", s.ActiveChat)
		assert.Len(t, s.Chats, 2)
	})

	t.Run("removing first active selects new first", func(t *testing.T) {
		s := DeleteThread(build(), "a")
		assert.Equal(t, "b", s.ActiveChat)
	})

	t.Run("inactive removed keeps selection", func(t *testing.T) {
		s := SelectThread(build(), "c")
		s = DeleteThread(s, "a")
		assert.Equal(t, "c", s.ActiveChat)
	})

	t.Run("last removed clears selection", func(t *testing.T) {
		s := CreateThread(domain.NewChatState(), "only", 1, domain.DefaultModel)
		s = DeleteThread(s, "only")
		assert.Empty(t, s.ActiveChat)
		assert.Empty(t, s.Chats)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := build()
		assert.Equal(t, s, DeleteThread(s, "zzz"))
	})
}

func TestActiveChatAlwaysValid(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := domain.NewChatState()
	next := 0

	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(3); {
		case op == 0 || len(s.Chats) == 0:
			next++
			s = CreateThread(s, fmt.Sprintf("c%d", next), int64(step), s.Model)
		case op == 1:
			victim := s.Chats[rng.Intn(len(s.Chats))].ID
			s = DeleteThread(s, victim)
		default:
			s = SelectThread(s, s.Chats[rng.Intn(len(s.Chats))].ID)
		}

		if s.ActiveChat != "" {
			require.GreaterOrEqual(t, s.FindChat(s.ActiveChat), 0, "step %d", step)
		}
		if len(s.Chats) > 0 {
			require.NotEmpty(t, s.ActiveChat, "step %d", step)
		}
	}
}

func TestSetModel(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "old", 1, domain.DefaultModel)
	s = SetModel(s, domain.ModelGPT4)
	assert.Equal(t, domain.ModelGPT4, s.Model)
	assert.Equal(t, domain.DefaultModel, s.Chats[0].Model)

	s = NewThread("new", 2)(s)
	assert.Equal(t, domain.ModelGPT4, s.Chats[0].Model)

	assert.Equal(t, s, SetModel(s, domain.Model("claude")))
}

func TestRenameThread(t *testing.T) {
	s := CreateThread(domain.NewChatState(), "t", 1, domain.DefaultModel)
	s = AppendMessage(s, "t", userMsg("m1", "Hello"))

	s = RenameThread(s, "t", "  Greetings  ")
	assert.Equal(t, "Greetings", s.Chats[0].Title)

	assert.Equal(t, s, RenameThread(s, "t", "   "))
	assert.Equal(t, s, RenameThread(s, "missing", "x"))

	s = AppendMessage(s, "t", userMsg("m2", "next"))
	assert.Equal(t, "Greetings", s.Chats[0].Title)
}

func TestTransformConstructors(t *testing.T) {
	s := NewThread("t", 5)(domain.NewChatState())
	s = Append("t", userMsg("m", "hi"))(s)
	s = Rename("t", "renamed")(s)
	s = Model(domain.ModelGPT4)(s)
	s = NewThread("u", 6)(s)
	s = Select("t")(s)
	s = Delete("t")(s)

	assert.Equal(t, "u", s.ActiveChat)
	assert.Equal(t, domain.ModelGPT4, s.Model)
	chat, ok := ActiveThread(s)
	require.True(t, ok)
	assert.Equal(t, "u", chat.ID)

	_, ok = FindThread(s, "t")
	assert.False(t, ok)
}

func TestHasMessage(t *testing.T) {
	c := domain.Chat{Messages: []domain.Message{userMsg("a", "x")}}
	assert.True(t, HasMessage(c, "a"))
	assert.False(t, HasMessage(c, "b"))
}
