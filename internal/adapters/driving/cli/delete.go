package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete indexed material or conversations",
}

var deleteSourceCmd = &cobra.Command{
	Use:   "source <collection-id>",
	Short: "Delete all documents and chunks of a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.rag.DeleteBySource(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted collection %s\n", args[0])
		return nil
	},
}

var deleteConversationCmd = &cobra.Command{
	Use:   "conversation <conversation-id>",
	Short: "Delete a conversation and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.chat.DeleteConversation(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted conversation %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.AddCommand(deleteSourceCmd)
	deleteCmd.AddCommand(deleteConversationCmd)
	rootCmd.AddCommand(deleteCmd)
}
