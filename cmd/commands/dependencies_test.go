package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
)

func newIsolatedDependencies(t *testing.T) (*Dependencies, zap.AtomicLevel, string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PROMPTCHAIN_API_KEY", "")

	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	return NewDependencies(zaptest.NewLogger(t), level), level, dir
}

func TestDependencies_Load(t *testing.T) {
	t.Run("config file and debug from file", func(t *testing.T) {
		deps, level, dir := newIsolatedDependencies(t)
		path := filepath.Join(dir, "promptchain.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o\ndebug: true\n"), 0600))

		require.NoError(t, deps.Load(path, nil))

		assert.Equal(t, "gpt-4o", deps.Configuration().Model)
		assert.Equal(t, zap.DebugLevel, level.Level())
	})

	t.Run("debug flag", func(t *testing.T) {
		deps, level, _ := newIsolatedDependencies(t)
		flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flags.Bool("debug", false, "")
		require.NoError(t, flags.Parse([]string{"--debug"}))

		require.NoError(t, deps.Load("", flags.Lookup("debug")))

		assert.True(t, deps.Configuration().DebugMode)
		assert.Equal(t, zap.DebugLevel, level.Level())
	})

	t.Run("defaults stay quiet", func(t *testing.T) {
		deps, level, _ := newIsolatedDependencies(t)

		require.NoError(t, deps.Load("", nil))

		assert.Equal(t, zap.WarnLevel, level.Level())
	})

	t.Run("missing explicit file", func(t *testing.T) {
		deps, _, dir := newIsolatedDependencies(t)

		err := deps.Load(filepath.Join(dir, "missing.yaml"), nil)

		assert.Equal(t, errors.ErrConfigInvalid, errors.Code(err))
	})
}

func TestDependencies_Session(t *testing.T) {
	deps, _, _ := newIsolatedDependencies(t)

	first, err := deps.Session()
	require.NoError(t, err)
	second, err := deps.Session()
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, models.StateIdle, first.State())

	require.NoError(t, deps.Close())
	require.NoError(t, deps.Close())

	third, err := deps.Session()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	require.NoError(t, deps.Close())
}
