package cli

import (
	"github.com/spf13/cobra"
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the files behind your knowledge",
	RunE:  runFilesList,
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored files",
	RunE:  runFilesList,
}

var filesRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a file and rebuild knowledge without it",
	Long: `Remove a stored file by the id shown in 'ragify files'. The knowledge
is rebuilt from the remaining files; removing the last file deletes it.`,
	Args: cobra.ExactArgs(1),
	RunE: runFilesRemove,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show your conversation history",
	RunE:  runHistory,
}

func init() {
	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesRemoveCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(historyCmd)
}

func runFilesList(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	files, err := knowledgeService.ListFiles(cmd.Context(), scope)
	if err != nil {
		return err
	}
	printFiles(cmd, files)
	return nil
}

func runFilesRemove(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	result, err := knowledgeService.RemoveFile(cmd.Context(), scope, args[0])
	if err != nil {
		return err
	}

	if result.Remaining == 0 {
		cmd.Printf("Removed %s. No files left; knowledge deleted.\n", result.Removed)
		return nil
	}
	cmd.Printf("Removed %s. Knowledge rebuilt from %d file(s), %d entries.\n",
		result.Removed, result.Remaining, result.Entries)
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := durableScope(cmd)
	if err != nil {
		return err
	}

	history, err := knowledgeService.History(cmd.Context(), scope)
	if err != nil {
		return err
	}
	printHistory(cmd, history)
	return nil
}
