// File: cmd/diagnostic/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-chatsync/internal/config"
	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/repository/document"
	"github.com/iyunix/go-chatsync/internal/services"
	"github.com/iyunix/go-chatsync/internal/services/completion"
)

// Checks that the configured document store and completion endpoint are
// reachable with the current environment.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}
	logger := services.NewLogger("chatsync-diagnostic")

	ok := true
	if err := checkDocumentStore(cfg, logger); err != nil {
		fmt.Printf("document store (%s): FAILED: %v\n", cfg.DocstoreDriver, err)
		ok = false
	} else {
		fmt.Printf("document store (%s): ok\n", cfg.DocstoreDriver)
	}

	reply, err := checkCompletion(cfg, logger)
	if err != nil {
		fmt.Printf("completion (%s): FAILED: %v\n", cfg.CompletionProvider, err)
		ok = false
	} else {
		fmt.Printf("completion (%s): ok, reply %q\n", cfg.CompletionProvider, reply)
	}

	if !ok {
		os.Exit(1)
	}
}

func checkDocumentStore(cfg *config.Config, logger services.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DocstoreTimeout)
	defer cancel()

	repo, err := document.Open(ctx, cfg.Document(), logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	key := "diagnostic:" + uuid.NewString()
	want := []byte(fmt.Sprintf(`{"probe":%d}`, time.Now().UnixMilli()))
	if err := repo.Set(ctx, key, want); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	got, err := repo.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read back: %w", err)
	}
	if string(got) != string(want) {
		return fmt.Errorf("read back %q, wrote %q", got, want)
	}
	return nil
}

func checkCompletion(cfg *config.Config, logger services.Logger) (string, error) {
	client, err := completion.New(cfg.Completion(), logger)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.CompletionTimeout)
	defer cancel()

	probe := domain.Message{ID: uuid.NewString(), Role: domain.RoleUser, Content: "ping", Timestamp: time.Now().UnixMilli()}
	msg, err := client.Complete(ctx, completion.Request{
		Message: probe.Content,
		History: []domain.Message{probe},
		Model:   domain.DefaultModel,
	})
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}
