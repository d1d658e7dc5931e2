package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document and chunk counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.ingestor.GetStats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "documents: %d\n", stats.Documents)
	fmt.Fprintf(cmd.OutOrStdout(), "chunks:    %d\n", stats.Chunks)
	for status, count := range stats.ByStatus {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %d\n", status+":", count)
	}
	return nil
}
