// File: cmd/chatsync/commands.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatsync/internal/auth"
	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services/conversation"
)

var sendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message to the active thread and print the reply",
	Long: `Send appends the message to the active thread, creating a thread when
none is active, and waits for the reply. A failed request is recorded in
the thread as an error notice.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List threads, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show [thread-id]",
	Short: "Print the messages of a thread (default: the active one)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create an empty thread and make it active",
	Args:  cobra.NoArgs,
	RunE:  runNew,
}

var selectCmd = &cobra.Command{
	Use:   "select <thread-id>",
	Short: "Make a thread active",
	Args:  cobra.ExactArgs(1),
	RunE:  runSelect,
}

var renameCmd = &cobra.Command{
	Use:   "rename <thread-id> <title>",
	Short: "Give a thread a title of your choosing",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runRename,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <thread-id>",
	Short: "Delete a thread",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var modelCmd = &cobra.Command{
	Use:   "model [name]",
	Short: "Show or set the model used for new threads",
	Long: fmt.Sprintf(`Without an argument the current model is printed.

Known models: %s, %s`, domain.ModelShaktimaan, domain.ModelGPT4),
	Args: cobra.MaximumNArgs(1),
	RunE: runModel,
}

var tokenCmd = &cobra.Command{
	Use:         "token <session-key>",
	Short:       "Mint a bearer token for the HTTP API (uses JWT_SECRET_KEY)",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{"session": "none"},
	RunE:        runToken,
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is empty")
	}
	ex, ok := session.Send(text)
	if !ok {
		return fmt.Errorf("a reply is still pending")
	}

	res := ex.Result()
	if res.Err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "request failed: %v\n", res.Err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Reply.Content)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	st := session.View().State
	out := cmd.OutOrStdout()
	if len(st.Chats) == 0 {
		fmt.Fprintln(out, "no threads")
		return nil
	}
	for _, c := range st.Chats {
		marker := " "
		if c.ID == st.ActiveChat {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %-33s %3d msgs  %s\n", marker, c.ID, c.Title, len(c.Messages), c.Model)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	st := session.View().State
	var (
		c  domain.Chat
		ok bool
	)
	if len(args) == 1 {
		c, ok = conversation.FindThread(st, args[0])
	} else {
		c, ok = conversation.ActiveThread(st)
	}
	if !ok {
		return fmt.Errorf("thread not found")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s (%s)\n", c.Title, c.Model)
	for _, m := range c.Messages {
		fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
	}
	return nil
}

func runNew(cmd *cobra.Command, args []string) error {
	st := session.NewThread()
	fmt.Fprintln(cmd.OutOrStdout(), st.ActiveChat)
	return nil
}

func runSelect(cmd *cobra.Command, args []string) error {
	if _, ok := session.SelectThread(args[0]); !ok {
		return fmt.Errorf("thread %s not found", args[0])
	}
	return nil
}

func runRename(cmd *cobra.Command, args []string) error {
	title := strings.Join(args[1:], " ")
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title is empty")
	}
	if _, ok := session.RenameThread(args[0], title); !ok {
		return fmt.Errorf("thread %s not found", args[0])
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if _, ok := session.DeleteThread(args[0]); !ok {
		return fmt.Errorf("thread %s not found", args[0])
	}
	return nil
}

func runModel(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), session.View().State.Model)
		return nil
	}
	if _, ok := session.SetModel(domain.Model(args[0])); !ok {
		return fmt.Errorf("unknown model %q", args[0])
	}
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}
	tok, err := auth.GenerateToken(args[0], []byte(secret), auth.DefaultTTL)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
