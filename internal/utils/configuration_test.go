package utils_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/utils"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestNewConfiguration_Defaults(t *testing.T) {
	f := setupTest(t)

	config := utils.NewConfiguration(f.logger)

	assert.Equal(t, "", config.APIKey)
	assert.Equal(t, "gpt-3.5-turbo", config.Model)
	assert.Equal(t, "", config.BaseURL)
	assert.Equal(t, time.Duration(0), config.RequestTimeout)
	assert.Equal(t, "localhost", config.ServerHost)
	assert.Equal(t, 8080, config.ServerPort)
	assert.Equal(t, ".", config.ExportDirectory)
	assert.False(t, config.DebugMode)
	assert.Equal(t, "localhost:8080", config.ServerAddress())
}

func TestConfiguration_Environment(t *testing.T) {
	f := setupTest(t)

	t.Run("openai key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-from-openai-env")
		config := utils.NewConfiguration(f.logger)
		assert.Equal(t, "sk-from-openai-env", config.APIKey)
	})

	t.Run("prefixed key wins", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-from-openai-env")
		t.Setenv("PROMPTCHAIN_API_KEY", "sk-from-prefixed-env")
		config := utils.NewConfiguration(f.logger)
		assert.Equal(t, "sk-from-prefixed-env", config.APIKey)
	})

	t.Run("nested keys", func(t *testing.T) {
		t.Setenv("PROMPTCHAIN_SERVER_PORT", "9191")
		t.Setenv("PROMPTCHAIN_REQUEST_TIMEOUT", "45s")
		config := utils.NewConfiguration(f.logger)
		assert.Equal(t, 9191, config.ServerPort)
		assert.Equal(t, 45*time.Second, config.RequestTimeout)
	})
}

func TestConfiguration_LoadFile(t *testing.T) {
	f := setupTest(t)
	path := filepath.Join(f.dir, "custom.yaml")
	writeFile(t, path, `
api_key: sk-from-file
model: gpt-4o-mini
base_url: http://localhost:1234/v1/
request_timeout: 30s
server:
  host: 0.0.0.0
  port: 3000
export:
  directory: /tmp/exports
debug: true
`)

	config := utils.NewConfiguration(f.logger)
	require.NoError(t, config.Load(path))

	assert.Equal(t, "sk-from-file", config.APIKey)
	assert.Equal(t, "gpt-4o-mini", config.Model)
	assert.Equal(t, "http://localhost:1234/v1/", config.BaseURL)
	assert.Equal(t, 30*time.Second, config.RequestTimeout)
	assert.Equal(t, "0.0.0.0:3000", config.ServerAddress())
	assert.Equal(t, "/tmp/exports", config.ExportDirectory)
	assert.True(t, config.DebugMode)
	assert.Equal(t, path, config.ConfigFileUsed())
}

func TestConfiguration_LoadDefaultLocation(t *testing.T) {
	f := setupTest(t)
	writeFile(t, filepath.Join(f.dir, ".promptchain.yaml"), "model: gpt-4o\n")

	config := utils.NewConfiguration(f.logger)
	require.NoError(t, config.Load(""))

	assert.Equal(t, "gpt-4o", config.Model)
}

func TestConfiguration_LoadWithoutFile(t *testing.T) {
	f := setupTest(t)

	config := utils.NewConfiguration(f.logger)
	require.NoError(t, config.Load(""))

	assert.Equal(t, "", config.ConfigFileUsed())
	assert.Equal(t, "gpt-3.5-turbo", config.Model)
}

func TestConfiguration_LoadDotEnv(t *testing.T) {
	f := setupTest(t)
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))
	writeFile(t, filepath.Join(f.dir, ".env"), "OPENAI_API_KEY=sk-from-dotenv\n")
	t.Cleanup(func() { os.Unsetenv("OPENAI_API_KEY") })

	config := utils.NewConfiguration(f.logger)
	require.NoError(t, config.Load(""))

	assert.Equal(t, "sk-from-dotenv", config.APIKey)
}

func TestConfiguration_LoadErrors(t *testing.T) {
	f := setupTest(t)

	t.Run("explicit file missing", func(t *testing.T) {
		config := utils.NewConfiguration(f.logger)
		err := config.Load(filepath.Join(f.dir, "missing.yaml"))
		assert.Equal(t, errors.ErrConfigInvalid, errors.Code(err))
	})

	t.Run("port out of range", func(t *testing.T) {
		path := filepath.Join(f.dir, "bad-port.yaml")
		writeFile(t, path, "server:\n  port: 70000\n")
		config := utils.NewConfiguration(f.logger)
		err := config.Load(path)
		assert.True(t, errors.IsValidation(err))
	})
}

func TestConfiguration_BindFlagAndSet(t *testing.T) {
	f := setupTest(t)
	config := utils.NewConfiguration(f.logger)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("debug", false, "")
	require.NoError(t, config.BindFlag(utils.KeyDebug, flags.Lookup("debug")))
	require.NoError(t, flags.Parse([]string{"--debug"}))
	require.NoError(t, config.Load(""))
	assert.True(t, config.DebugMode)

	config.Set(utils.KeyAPIKey, "sk-override")
	assert.Equal(t, "sk-override", config.APIKey)
}

func TestConfiguration_MaskedOutput(t *testing.T) {
	f := setupTest(t)
	config := utils.NewConfiguration(f.logger)
	config.Set(utils.KeyAPIKey, "sk-1234567890abcd")

	assert.Equal(t, "********abcd", config.MaskedAPIKey())
	assert.Equal(t, "********abcd", config.AsMap()[utils.KeyAPIKey])
	assert.NotContains(t, config.String(), "sk-1234567890abcd")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", utils.MaskSecret(""))
	assert.Equal(t, "*****", utils.MaskSecret("short"))
	assert.Equal(t, "********wxyz", utils.MaskSecret("sk-abcdefghwxyz"))
}

func TestNewLogger(t *testing.T) {
	level := utils.NewLogLevel(false)
	logger, err := utils.NewLogger(level)
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))

	level.SetLevel(zap.DebugLevel)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	assert.Equal(t, zap.DebugLevel, utils.NewLogLevel(true).Level())
}
