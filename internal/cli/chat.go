package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/core/phase"
	"github.com/example/atelier/internal/ports/primary"
	"github.com/example/atelier/internal/wire"
)

// ChatCmd returns the chat command
func ChatCmd() *cobra.Command {
	var projectID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message to the design assistant",
		Long: `Send a message to the design assistant for the active project.

With a message argument a single submission is sent and the reply
printed. Without arguments an interactive session starts; type /quit to
leave, /history to print the conversation so far.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := projectID
			if id == "" {
				var err error
				if id, err = resolveProjectID(nil); err != nil {
					return err
				}
			}

			if len(args) > 0 {
				return sendOnce(id, strings.Join(args, " "))
			}
			return chatLoop(id)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "project ID (defaults to the active project)")
	return cmd
}

func sendOnce(projectID, text string) error {
	resp, err := wire.ChatService().SendMessage(context.Background(), primary.SendMessageRequest{
		ProjectID: projectID,
		Text:      text,
		OnPreview: printPreview,
	})
	clearPreview()
	if err != nil {
		return presentChatError(err)
	}
	printReply(resp)
	return nil
}

func chatLoop(projectID string) error {
	fmt.Printf("Chatting on project %s. /quit to leave.\n", projectID)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			if err := printHistory(projectID); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		if err := sendOnce(projectID, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func printHistory(projectID string) error {
	msgs, err := wire.ChatService().History(context.Background(), projectID, 0)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		role := m.Role
		if role == "assistant" {
			role = color.New(color.FgCyan).Sprint(role)
		}
		fmt.Printf("[%d] %s: %s\n", m.Sequence, role, m.Content)
	}
	return nil
}

func printReply(resp *primary.SendMessageResponse) {
	fmt.Println(resp.Reply)
	for _, a := range resp.Artifacts {
		fmt.Printf("%s %s v%d saved\n",
			color.New(color.FgGreen).Sprint("✓"), phase.Title(a.ArtifactType), a.Version)
		for _, staled := range a.Staled {
			fmt.Printf("  %s %s is now stale\n",
				color.New(color.FgYellow).Sprint("!"), phase.Title(staled))
		}
	}
	for _, perr := range resp.ParseErrors {
		fmt.Printf("%s %s\n", color.New(color.FgYellow).Sprint("!"), perr)
	}
}

func presentChatError(err error) error {
	switch {
	case errors.Is(err, primary.ErrCooldown):
		return fmt.Errorf("slow down: %w", err)
	case errors.Is(err, primary.ErrGenerationUnavailable):
		return fmt.Errorf("the assistant is unreachable, your message was not lost - retry: %w", err)
	default:
		return err
	}
}

// printPreview rewrites a single status line with the latest deliverable
// preview while the response streams.
func printPreview(preview string) {
	if preview == "" {
		fmt.Fprint(os.Stderr, "\r\033[K… generating")
		return
	}
	if len(preview) > 80 {
		preview = preview[len(preview)-80:]
	}
	fmt.Fprintf(os.Stderr, "\r\033[K%s", strings.ReplaceAll(preview, "\n", " "))
}

func clearPreview() {
	fmt.Fprint(os.Stderr, "\r\033[K")
}
