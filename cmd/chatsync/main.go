// File: cmd/chatsync/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/config"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/services/chat"
	"github.com/iyunix/go-chatsync/internal/services/completion"
)

var (
	sessionKey string
	timeout    time.Duration

	// session is opened before every subcommand and closed after it.
	session *chat.Session
	release func() error

	// openSession is replaced in tests.
	openSession = openConfiguredSession
)

var rootCmd = &cobra.Command{
	Use:   "chatsync",
	Short: "Terminal client for a persisted chat session",
	Long: `chatsync drives one chat session from the terminal.

Threads and messages are stored in the configured document store
(DOCSTORE_DRIVER) and replies come from the configured completion
endpoint (COMPLETION_PROVIDER), exactly as the HTTP server does.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations["session"] == "none" {
			return nil
		}
		s, closeFn, err := openSession(cmd.Context(), sessionKey)
		if err != nil {
			return err
		}
		session, release = s, closeFn
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if release == nil {
			return nil
		}
		err := release()
		session, release = nil, nil
		return err
	},
}

func init() {
	defaultKey := os.Getenv("CHATSYNC_SESSION")
	if defaultKey == "" {
		defaultKey = os.Getenv("USER")
	}
	if defaultKey == "" {
		defaultKey = "default"
	}
	rootCmd.PersistentFlags().StringVarP(&sessionKey, "session", "s", defaultKey, "session key whose threads are used")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "bound for flushing state on exit")

	rootCmd.AddCommand(sendCmd, listCmd, showCmd, newCmd, selectCmd, renameCmd, deleteCmd, modelCmd, tokenCmd)
}

// openConfiguredSession builds the same engine the server runs, for one key.
func openConfiguredSession(ctx context.Context, key string) (*chat.Session, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := services.NewLogger("chatsync-cli")

	repo, err := document.Open(ctx, cfg.Document(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open document store: %w", err)
	}
	client, err := completion.New(cfg.Completion(), logger)
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}

	s, err := chat.OpenSession(ctx, key, chat.Deps{
		Repo:        repo,
		Client:      client,
		Config:      cfg.Chat(),
		Persistence: cfg.Persistence(),
		Logger:      logger,
	})
	if err != nil {
		_ = repo.Close()
		return nil, nil, err
	}
	if s.Degraded() {
		fmt.Fprintln(os.Stderr, "warning: stored threads could not be read; changes made now will not be saved")
	}

	closeFn := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.Close(ctx)
		if cerr := repo.Close(); err == nil {
			err = cerr
		}
		return err
	}
	return s, closeFn, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
