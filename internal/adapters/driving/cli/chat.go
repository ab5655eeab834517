package cli

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/logger"
)

const chatHelp = `Commands:
  :add <file>...   add files to the knowledge
  :rm <ref>        remove a file (id with --user, name otherwise)
  :files           list files
  :rebuild         rebuild the knowledge from all files
  :history         show the conversation
  :help            show this help
  :quit            leave the chat
Anything else is asked as a question.`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive question session",
	Long: `Start an interactive session. With --user, the user's stored knowledge is
loaded and every change is saved. Without it, files added with :add live
only until the session ends.

` + chatHelp,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	scope, err := resolveScope(cmd, reader)
	if err != nil {
		return err
	}
	if !scope.IsDurable() {
		defer func() {
			if err := knowledgeService.ResetSession(cmd.Context(), scope.SessionID()); err != nil {
				logger.Warn("ending session: %v", err)
			}
		}()
	}

	greet(cmd, scope)

	for {
		cmd.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			if quit := chatLine(cmd, scope, line); quit {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			cmd.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if cmd.Context().Err() != nil {
			return nil
		}
	}
}

func greet(cmd *cobra.Command, scope domain.Scope) {
	if !scope.IsDurable() {
		cmd.Println("Temporary session. Add files with :add <file>..., :help for commands.")
		return
	}
	knowledge, err := knowledgeService.Open(cmd.Context(), scope)
	switch {
	case errors.Is(err, domain.ErrNoKnowledge):
		cmd.Println("No knowledge yet. Add files with :add <file>..., :help for commands.")
	case err != nil:
		cmd.Printf("Could not load knowledge: %s\n", domain.UserMessage(err))
	default:
		cmd.Printf("Loaded %d file(s), %d entries. :help for commands.\n",
			len(knowledge.Files), knowledge.Entries)
	}
}

// chatLine handles one input line and reports whether the session should end.
// Errors are printed and the session continues.
func chatLine(cmd *cobra.Command, scope domain.Scope, line string) bool {
	ctx := cmd.Context()
	if !strings.HasPrefix(line, ":") {
		result, err := knowledgeService.Ask(ctx, scope, line)
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		cmd.Println(result.Answer)
		return false
	}

	fields := strings.Fields(line)
	args := fields[1:]
	switch fields[0] {
	case ":quit", ":exit", ":q":
		return true
	case ":help":
		cmd.Println(chatHelp)
	case ":add":
		if len(args) == 0 {
			cmd.Println("Usage: :add <file>...")
			return false
		}
		blobs, err := readBlobs(args)
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		result, err := knowledgeService.ProcessFiles(ctx, scope, blobs)
		if result != nil {
			printReports(cmd, result.Files)
		}
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		cmd.Printf("Knowledge now holds %d entries.\n", result.Entries)
	case ":rm":
		if len(args) != 1 {
			cmd.Println("Usage: :rm <ref>")
			return false
		}
		result, err := knowledgeService.RemoveFile(ctx, scope, args[0])
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		cmd.Printf("Removed %s, %d file(s) left.\n", result.Removed, result.Remaining)
	case ":rebuild":
		result, err := knowledgeService.Reprocess(ctx, scope)
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		cmd.Printf("Rebuilt %d file(s), knowledge holds %d entries.\n", len(result.Files), result.Entries)
	case ":files":
		files, err := knowledgeService.ListFiles(ctx, scope)
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		printFiles(cmd, files)
	case ":history":
		history, err := knowledgeService.History(ctx, scope)
		if err != nil {
			cmd.Println(domain.UserMessage(err))
			return false
		}
		printHistory(cmd, history)
	default:
		cmd.Printf("Unknown command %s. :help for commands.\n", fields[0])
	}
	return false
}
