package utils

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/completion"
	"github.com/gi4nks/promptchain/internal/errors"
)

const (
	configName = ".promptchain"
	envPrefix  = "PROMPTCHAIN"
	dotEnvFile = ".env"
)

// Configuration keys
const (
	KeyAPIKey          = "api_key"
	KeyModel           = "model"
	KeyBaseURL         = "base_url"
	KeyRequestTimeout  = "request_timeout"
	KeyServerHost      = "server.host"
	KeyServerPort      = "server.port"
	KeyExportDirectory = "export.directory"
	KeyDebug           = "debug"
)

type Configuration struct {
	logger *zap.Logger
	v      *viper.Viper

	APIKey          string
	Model           string
	BaseURL         string
	RequestTimeout  time.Duration
	ServerHost      string
	ServerPort      int
	ExportDirectory string
	DebugMode       bool
}

// NewConfiguration returns defaults overlaid with the environment. Call Load
// to read a config file as well.
func NewConfiguration(logger *zap.Logger) *Configuration {
	v := viper.New()
	v.SetDefault(KeyModel, completion.DefaultModel)
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeyServerHost, "localhost")
	v.SetDefault(KeyServerPort, 8080)
	v.SetDefault(KeyExportDirectory, ".")
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyAPIKey, envPrefix+"_API_KEY", "OPENAI_API_KEY")

	c := &Configuration{logger: logger, v: v}
	c.refresh()
	return c
}

// Load reads .env (when present) and the YAML config file. An explicit
// configFile must exist; the default $HOME/.promptchain.yaml is optional.
func (c *Configuration) Load(configFile string) error {
	if err := godotenv.Load(dotEnvFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("Failed to load .env file", zap.Error(err))
	}

	if configFile != "" {
		c.v.SetConfigFile(configFile)
	} else {
		c.v.SetConfigName(configName)
		c.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(home)
		}
		c.v.AddConfigPath(".")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !stderrors.As(err, &notFound) {
			return errors.NewError(errors.ErrConfigInvalid, "failed to read configuration", err)
		}
		c.logger.Debug("No configuration file found, using defaults")
	} else {
		c.logger.Debug("Configuration file loaded", zap.String("file", c.v.ConfigFileUsed()))
	}

	c.refresh()
	return c.Validate()
}

// BindFlag lets a command line flag override key.
func (c *Configuration) BindFlag(key string, flag *pflag.Flag) error {
	if err := c.v.BindPFlag(key, flag); err != nil {
		return err
	}
	c.refresh()
	return nil
}

// Set overrides key for the lifetime of the process.
func (c *Configuration) Set(key string, value any) {
	c.v.Set(key, value)
	c.refresh()
}

func (c *Configuration) Validate() error {
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return errors.NewError(errors.ErrConfigInvalid, fmt.Sprintf("server port out of range: %d", c.ServerPort), nil)
	}
	if c.RequestTimeout < 0 {
		return errors.NewError(errors.ErrConfigInvalid, "request timeout must not be negative", nil)
	}
	return nil
}

func (c *Configuration) refresh() {
	c.APIKey = c.v.GetString(KeyAPIKey)
	c.Model = c.v.GetString(KeyModel)
	c.BaseURL = c.v.GetString(KeyBaseURL)
	c.RequestTimeout = c.v.GetDuration(KeyRequestTimeout)
	c.ServerHost = c.v.GetString(KeyServerHost)
	c.ServerPort = c.v.GetInt(KeyServerPort)
	c.ExportDirectory = c.v.GetString(KeyExportDirectory)
	c.DebugMode = c.v.GetBool(KeyDebug)
}

// ConfigFileUsed is empty when running on defaults and environment only.
func (c *Configuration) ConfigFileUsed() string {
	return c.v.ConfigFileUsed()
}

func (c *Configuration) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// MaskedAPIKey shows at most the last four characters of the key.
func (c *Configuration) MaskedAPIKey() string {
	return MaskSecret(c.APIKey)
}

// AsMap is the configuration as shown to users, with the key masked.
func (c *Configuration) AsMap() map[string]any {
	return map[string]any{
		KeyAPIKey:         c.MaskedAPIKey(),
		KeyModel:          c.Model,
		KeyBaseURL:        c.BaseURL,
		KeyRequestTimeout: c.RequestTimeout.String(),
		"server": map[string]any{
			"host": c.ServerHost,
			"port": c.ServerPort,
		},
		"export": map[string]any{
			"directory": c.ExportDirectory,
		},
		KeyDebug:     c.DebugMode,
		"configFile": c.ConfigFileUsed(),
	}
}

func (c *Configuration) String() string {
	return fmt.Sprintf(`{
	"apiKey": "%s",
	"model": "%s",
	"baseURL": "%s",
	"requestTimeout": "%s",
	"serverAddress": "%s",
	"exportDirectory": "%s",
	"debugMode": %t
}`, c.MaskedAPIKey(), c.Model, c.BaseURL, c.RequestTimeout, c.ServerAddress(), c.ExportDirectory, c.DebugMode)
}

func MaskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return strings.Repeat("*", len(secret))
	default:
		return strings.Repeat("*", 8) + secret[len(secret)-4:]
	}
}
