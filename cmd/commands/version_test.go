package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestVersionCommand(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	t.Run("version command with full output", func(t *testing.T) {
		stdout, _, err := execute(NewVersionCommand(logger).cmd, "")

		require.NoError(t, err)
		assert.Contains(t, stdout, "promptchain version ")
		assert.Contains(t, stdout, "Go version: "+GoVersion)
	})

	t.Run("version command with short output", func(t *testing.T) {
		stdout, _, err := execute(NewVersionCommand(logger).cmd, "", "-s")

		require.NoError(t, err)
		assert.Equal(t, getVersion()+"\n", stdout)
	})

	t.Run("command structure validation", func(t *testing.T) {
		versionCmd := NewVersionCommand(logger)

		assert.Equal(t, "version", versionCmd.cmd.Use)
		assert.Equal(t, "Show version information", versionCmd.cmd.Short)
		assert.Equal(t, versionCmd.cmd, versionCmd.Command())

		shortFlag := versionCmd.cmd.Flags().Lookup("short")
		assert.NotNil(t, shortFlag)
		assert.Equal(t, "false", shortFlag.DefValue)
		assert.Equal(t, shortFlag, versionCmd.cmd.Flags().ShorthandLookup("s"))
	})

	t.Run("version command does not need shared services", func(t *testing.T) {
		assert.False(t, NewVersionCommand(logger).HasDependencies())
	})
}

func TestVersionCommand_SetBuildInfo(t *testing.T) {
	originalVersion := Version
	originalCommit := GitCommit
	originalBuildDate := BuildDate

	Version = "1.0.0"
	GitCommit = "abc123"
	BuildDate = "2024-01-01"

	defer func() {
		Version = originalVersion
		GitCommit = originalCommit
		BuildDate = originalBuildDate
	}()

	logger, _ := zap.NewDevelopment()
	stdout, _, err := execute(NewVersionCommand(logger).cmd, "")

	require.NoError(t, err)
	assert.Contains(t, stdout, "promptchain version 1.0.0")
	assert.Contains(t, stdout, "Git commit: abc123")
	assert.Contains(t, stdout, "Build date: 2024-01-01")
}
