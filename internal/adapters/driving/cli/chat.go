package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// chat command flags.
var (
	chatUser         string
	chatConversation string
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the knowledge store",
	Long: `Chat runs a multi-turn conversation grounded in the knowledge store,
streaming the answer as it is generated. With a message argument it runs
a single exchange; without one it starts an interactive session.

Anonymous sessions live in memory and expire when idle; pass --user to
persist the conversation across runs (with the smart storage mode).`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "caller identity (empty = anonymous)")
	chatCmd.Flags().StringVarP(&chatConversation, "conversation", "c", "", "continue an existing conversation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if len(args) > 0 {
		_, err := exchange(cmd, a, strings.Join(args, " "), chatConversation)
		return err
	}

	return interactive(cmd, a)
}

// exchange runs one streamed exchange and returns the conversation id.
func exchange(cmd *cobra.Command, a *app, message, conversationID string) (string, error) {
	events, convID, err := a.chat.SendMessageStream(cmd.Context(), message, conversationID, chatUser)
	if err != nil {
		return "", err
	}

	var streamErr error
	var sources []domain.Source
	for event := range events {
		switch event.Kind {
		case domain.EventContent:
			fmt.Fprint(cmd.OutOrStdout(), event.Content)
		case domain.EventSources:
			sources = event.Sources
		case domain.EventDone:
			fmt.Fprintln(cmd.OutOrStdout())
		case domain.EventError:
			streamErr = event.Err
		}
	}

	if streamErr != nil {
		return convID, streamErr
	}
	printSources(cmd, sources)
	return convID, nil
}

// interactive reads messages from stdin until EOF or "exit".
func interactive(cmd *cobra.Command, a *app) error {
	fmt.Fprintln(cmd.OutOrStdout(), `type a message ("exit" to quit)`)

	conversationID := chatConversation
	scanner := bufio.NewScanner(cmd.InOrStdin())

	for {
		fmt.Fprint(cmd.OutOrStdout(), "> ")
		if !scanner.Scan() {
			break
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}
		if message == "exit" || message == "quit" {
			break
		}

		convID, err := exchange(cmd, a, message, conversationID)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
			continue
		}
		conversationID = convID
	}

	return scanner.Err()
}
