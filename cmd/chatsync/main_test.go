package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services/chat"
	"github.com/iyunix/go-chatsync/internal/services/completion"
	"github.com/iyunix/go-chatsync/internal/services/persistence"
)

type echoClient struct{}

func (echoClient) Complete(_ context.Context, req completion.Request) (domain.Message, error) {
	return domain.Message{Content: "echo: " + req.Message}, nil
}

// useMemorySessions points the CLI at one in-memory store for the test.
func useMemorySessions(t *testing.T) {
	t.Helper()
	repo := document.NewMemoryRepository()
	pcfg := persistence.DefaultConfig()
	pcfg.Debounce = 0

	prev := openSession
	openSession = func(ctx context.Context, key string) (*chat.Session, func() error, error) {
		s, err := chat.OpenSession(ctx, key, chat.Deps{Repo: repo, Client: echoClient{}, Persistence: pcfg})
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return s.Close(context.Background()) }, nil
	}
	t.Cleanup(func() { openSession = prev })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--session", "cli-test"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_SendListShow(t *testing.T) {
	useMemorySessions(t)

	out, err := run(t, "send", "Hello", "there")
	require.NoError(t, err)
	assert.Equal(t, "echo: Hello there\n", out)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* ")
	assert.Contains(t, out, "Hello there")
	assert.Contains(t, out, "2 msgs")

	out, err = run(t, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[user] Hello there")
	assert.Contains(t, out, "[assistant] echo: Hello there")
}

func TestCLI_ThreadCommands(t *testing.T) {
	useMemorySessions(t)

	out, err := run(t, "new")
	require.NoError(t, err)
	first := strings.TrimSpace(out)

	out, err = run(t, "new")
	require.NoError(t, err)
	second := strings.TrimSpace(out)

	_, err = run(t, "select", first)
	require.NoError(t, err)
	_, err = run(t, "rename", second, "Road", "trip")
	require.NoError(t, err)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "* "+first)
	assert.Contains(t, out, "Road trip")

	_, err = run(t, "delete", first)
	require.NoError(t, err)
	_, err = run(t, "select", first)
	assert.Error(t, err)

	out, err = run(t, "model")
	require.NoError(t, err)
	assert.Equal(t, string(domain.DefaultModel)+"\n", out)

	_, err = run(t, "model", "GPT-4")
	require.NoError(t, err)
	out, err = run(t, "model")
	require.NoError(t, err)
	assert.Equal(t, "GPT-4\n", out)

	_, err = run(t, "model", "gpt-2")
	assert.Error(t, err)
}

func TestCLI_Token(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "cli-secret")
	out, err := run(t, "token", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."))
}
