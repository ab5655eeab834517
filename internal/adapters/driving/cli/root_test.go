package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragify/internal/core/domain"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "ragify", rootCmd.Use)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"process", "ask", "chat", "files", "history", "user", "settings", "mcp", "watch", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"verbose", "data-dir", "user"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestPrepare_BuildsServicesWithDataDir(t *testing.T) {
	SetServices(nil)
	var gotDir string
	SetBuilder(func(_ context.Context, dataDir string) (*Services, error) {
		gotDir = dataDir
		return &Services{Knowledge: &stubKnowledge{}}, nil
	})
	t.Cleanup(func() {
		SetBuilder(nil)
		SetServices(nil)
	})

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	dataDirFlag = "/tmp/ragify-test"
	defer resetFlags()

	require.NoError(t, prepare(cmd, nil))
	assert.Equal(t, "/tmp/ragify-test", gotDir)
	assert.NotNil(t, knowledgeService)
}

func TestPrepare_SkipsServicesForVersion(t *testing.T) {
	SetServices(nil)
	called := false
	SetBuilder(func(context.Context, string) (*Services, error) {
		called = true
		return &Services{}, nil
	})
	t.Cleanup(func() { SetBuilder(nil) })

	_, err := execute(t, "", "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestExecute_PrintsUserMessage(t *testing.T) {
	setupTestServices(t)
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--user", testUser, "ask", "anything?"})
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := Execute(context.Background())

	assert.ErrorIs(t, err, domain.ErrNoKnowledge)
	assert.Contains(t, buf.String(), "Error: No previous knowledge found. Please process some files first.")
}

func TestDurableCommands_RequireUser(t *testing.T) {
	setupTestServices(t)

	for _, args := range [][]string{
		{"process", "a.txt"},
		{"ask", "q"},
		{"files"},
		{"history"},
		{"watch", "."},
	} {
		_, err := execute(t, "", args...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "--user is required")
	}
}

func TestDurableCommands_WrongPassword(t *testing.T) {
	setupTestServices(t)
	t.Setenv(PasswordEnv, "wrong")

	_, err := execute(t, "", "--user", testUser, "files")

	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestCommands_WithoutServices(t *testing.T) {
	SetServices(nil)

	for _, args := range [][]string{
		{"--user", "x", "process", "a.txt"},
		{"--user", "x", "ask", "q"},
		{"chat"},
		{"settings", "show"},
		{"user", "add", "bob"},
	} {
		_, err := execute(t, "", args...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "not configured")
	}
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Failed to rebuild knowledge.", errorText(fmt.Errorf("%w: boom", domain.ErrRebuildFailed)))
	assert.Equal(t, "invalid input: chunker.size must be a non-negative integer",
		errorText(fmt.Errorf("%w: chunker.size must be a non-negative integer", domain.ErrInvalidInput)))
}

func TestUnavailableKnowledge_ExplainsWhy(t *testing.T) {
	reason := fmt.Errorf("%w: embedding provider \"openai\" is not configured", domain.ErrInvalidInput)
	SetServices(&Services{Unavailable: reason})
	t.Cleanup(func() { SetServices(nil) })

	_, err := execute(t, "", "--user", testUser, "ask", "q")

	assert.ErrorIs(t, err, reason)
}
