package cli

import (
	"bufio"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Users own stored knowledge. Pass --user <name> to other commands to
work with that user's files, knowledge and history.`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userLoginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Check a password and show the user's knowledge",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserLogin,
}

func init() {
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userLoginCmd)
	rootCmd.AddCommand(userCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	if userService == nil {
		return errors.New("user service not configured")
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	password := promptPassword(cmd, reader, "Password: ")
	if _, fromEnv := lookupPasswordEnv(); !fromEnv {
		confirm := promptPassword(cmd, reader, "Confirm password: ")
		if confirm != password {
			return errors.New("passwords do not match")
		}
	}

	user, err := userService.Register(cmd.Context(), args[0], password)
	if err != nil {
		return err
	}

	cmd.Printf("Created user %s.\n", user.Username)
	cmd.Printf("Add files with: ragify --user %s process <file>...\n", user.Username)
	return nil
}

func runUserLogin(cmd *cobra.Command, args []string) error {
	if err := requireKnowledge(); err != nil {
		return err
	}

	scope, err := loginScope(cmd, bufio.NewReader(cmd.InOrStdin()), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Logged in as %s.\n", args[0])

	knowledge, err := knowledgeService.Open(cmd.Context(), scope)
	if errors.Is(err, domain.ErrNoKnowledge) {
		cmd.Println("No knowledge yet. Add files with 'ragify process'.")
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Printf("Knowledge: %d file(s), %d entries, %d conversation turn(s).\n",
		len(knowledge.Files), knowledge.Entries, len(knowledge.History))
	return nil
}
