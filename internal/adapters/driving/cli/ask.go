package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your knowledge",
	Long: `Answer a question from the stored knowledge of --user.
The question and answer are added to the user's conversation history.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askShowSources, "sources", "s", false, "print the passages the answer was built from")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	result, err := knowledgeService.Ask(cmd.Context(), scope, joinArgs(args))
	if err != nil {
		return err
	}

	cmd.Println(result.Answer)
	if askShowSources {
		printSources(cmd, result.Sources)
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.RetrievedChunk) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i, s := range sources {
		cmd.Printf("  [%d] (%.3f) %s\n", i+1, s.Score, snippet(s.Content, 120))
	}
}

func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n]))
}
