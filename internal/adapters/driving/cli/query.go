package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nimbus-labs/corpus/internal/core/domain"
)

// query command flags.
var (
	queryTopK     int
	queryMinScore float64
	querySource   string
	queryRetrieve bool
)

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the knowledge store",
	Long: `Query embeds the question, retrieves the most similar chunks, and asks
the generation provider for an answer grounded in them. With --retrieve-only
it prints the raw chunks instead of generating an answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0, "minimum similarity score")
	queryCmd.Flags().StringVarP(&querySource, "source", "s", "", "restrict retrieval to one collection")
	queryCmd.Flags().BoolVar(&queryRetrieve, "retrieve-only", false, "print retrieved chunks without generating an answer")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	question := strings.Join(args, " ")
	opts := a.retrieveOptions(queryTopK, queryMinScore)
	opts.SourceID = querySource

	if queryRetrieve {
		result, err := a.rag.Retrieve(cmd.Context(), question, opts)
		if err != nil {
			return err
		}
		if len(result.Chunks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matching chunks")
			return nil
		}
		for i, c := range result.Chunks {
			fmt.Fprintf(cmd.OutOrStdout(), "[%d] score=%.3f %s\n%s\n\n", i+1, c.Score, c.DocumentTitle, c.Chunk.Content)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "~%d tokens of context\n", result.EstimatedTokens)
		return nil
	}

	answer, err := a.rag.Query(cmd.Context(), question, domain.QueryOptions{RetrieveOptions: opts})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), answer.Content)
	printSources(cmd, answer.Sources)
	return nil
}

// printSources lists cited sources beneath an answer.
func printSources(cmd *cobra.Command, sources []domain.Source) {
	if len(sources) == 0 {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nSources:")
	for i, src := range sources {
		fmt.Fprintf(cmd.OutOrStdout(), "  [%d] %s (%.3f)\n", i+1, src.Origin, src.Score)
	}
}
