// Package cli provides the cobra command tree for ragify.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driving"
	"github.com/custodia-labs/ragify/internal/logger"
)

// PasswordEnv names the environment variable read before prompting for a password.
const PasswordEnv = "RAGIFY_PASSWORD"

// skipServices marks commands that run without the core services.
const skipServices = "skip-services"

// Services holds the driving ports the commands use.
type Services struct {
	Knowledge driving.KnowledgeService
	Users     driving.UserService
	Settings  driving.SettingsService

	// Unavailable explains a nil Knowledge, typically a misconfigured
	// provider that 'ragify settings' can fix.
	Unavailable error

	// Close releases whatever the builder opened. May be nil.
	Close func() error
}

// Builder constructs the services for a data directory.
// It runs after flags are parsed so --data-dir takes effect.
type Builder func(ctx context.Context, dataDir string) (*Services, error)

var (
	version = "dev"

	knowledgeService driving.KnowledgeService
	userService      driving.UserService
	settingsService  driving.SettingsService
	closeServices    func() error
	unavailable      error
	builder          Builder

	verboseFlag bool
	dataDirFlag string
	userFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "ragify",
	Short: "Ask questions about your documents",
	Long: `Ragify turns documents into a searchable knowledge base and answers
questions from it with a language model.

Without --user, knowledge lives only for the current chat or MCP session.
With --user, knowledge is stored on disk and survives restarts.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "print debug and info logs")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "directory for indexes, files and records (default ~/.ragify/data)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "user whose stored knowledge to use")
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// SetBuilder registers the function that wires services on first use.
func SetBuilder(b Builder) {
	builder = b
}

// SetServices installs already-built services, bypassing the builder.
func SetServices(s *Services) {
	if s == nil {
		knowledgeService, userService, settingsService, closeServices, unavailable = nil, nil, nil, nil, nil
		return
	}
	knowledgeService = s.Knowledge
	userService = s.Users
	settingsService = s.Settings
	closeServices = s.Close
	unavailable = s.Unavailable
}

func requireKnowledge() error {
	if knowledgeService != nil {
		return nil
	}
	if unavailable != nil {
		return unavailable
	}
	return errors.New("knowledge service not configured")
}

// Execute runs the command tree and releases services afterwards.
// Errors are printed in their user-facing form and returned.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil {
			logger.Warn("closing services: %v", cerr)
		}
	}
	if err != nil {
		rootCmd.PrintErrln("Error: " + errorText(err))
	}
	return err
}

// errorText keeps the detail of input errors, which name what was wrong.
func errorText(err error) string {
	if errors.Is(err, domain.ErrInvalidInput) {
		return err.Error()
	}
	return domain.UserMessage(err)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verboseFlag)
	if cmd.Annotations[skipServices] == "true" {
		return nil
	}
	if knowledgeService != nil || settingsService != nil || builder == nil {
		return nil
	}
	svc, err := builder(cmd.Context(), dataDirFlag)
	if err != nil {
		return fmt.Errorf("starting ragify: %w", err)
	}
	SetServices(svc)
	return nil
}

// resolveScope authenticates --user and returns its durable scope, or a
// fresh session scope when no user is given.
func resolveScope(cmd *cobra.Command, reader *bufio.Reader) (domain.Scope, error) {
	if userFlag == "" {
		return domain.SessionScope(uuid.NewString()), nil
	}
	return loginScope(cmd, reader, userFlag)
}

// durableScope is resolveScope for commands that only make sense with
// stored knowledge.
func durableScope(cmd *cobra.Command) (domain.Scope, error) {
	if userFlag == "" {
		return domain.Scope{}, errors.New("--user is required; use 'ragify chat' for a temporary session")
	}
	return loginScope(cmd, bufio.NewReader(cmd.InOrStdin()), userFlag)
}

func loginScope(cmd *cobra.Command, reader *bufio.Reader, username string) (domain.Scope, error) {
	if userService == nil {
		return domain.Scope{}, errors.New("user service not configured")
	}
	password := promptPassword(cmd, reader, "Password: ")
	user, err := userService.Authenticate(cmd.Context(), username, password)
	if err != nil {
		return domain.Scope{}, err
	}
	logger.Debug("authenticated %s as user %d", user.Username, user.ID)
	return domain.DurableScope(user.ID), nil
}

// promptPassword returns $RAGIFY_PASSWORD or reads a password from the terminal.
func promptPassword(cmd *cobra.Command, reader *bufio.Reader, prompt string) string {
	if pw, ok := lookupPasswordEnv(); ok {
		return pw
	}
	cmd.PrintErr(prompt)
	pw := readPassword(cmd, reader)
	cmd.PrintErrln()
	return pw
}

func lookupPasswordEnv() (string, bool) {
	return os.LookupEnv(PasswordEnv)
}

func printReports(cmd *cobra.Command, reports []domain.FileReport) {
	for _, r := range reports {
		switch r.Status {
		case domain.ExtractOK:
			cmd.Printf("  %-30s %d chars\n", r.Name, r.Chars)
		case domain.ExtractFailed:
			cmd.Printf("  %-30s failed: %s\n", r.Name, r.Err)
		default:
			cmd.Printf("  %-30s %s\n", r.Name, r.Status)
		}
	}
}

func printHistory(cmd *cobra.Command, history domain.History) {
	if len(history) == 0 {
		cmd.Println("No conversation yet.")
		return
	}
	for i, turn := range history {
		if i > 0 {
			cmd.Println()
		}
		cmd.Printf("Q: %s\n", turn.Question)
		cmd.Printf("A: %s\n", turn.Answer)
	}
}

func printFiles(cmd *cobra.Command, files []domain.FileInfo) {
	if len(files) == 0 {
		cmd.Println("No files.")
		return
	}
	for _, f := range files {
		cmd.Printf("  %-8s %-40s %s\n", f.Ref, f.Name, f.Source)
	}
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
