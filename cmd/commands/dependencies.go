package commands

import (
	"sync"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/chain"
	"github.com/gi4nks/promptchain/internal/completion"
	"github.com/gi4nks/promptchain/internal/repos"
	"github.com/gi4nks/promptchain/internal/session"
	"github.com/gi4nks/promptchain/internal/utils"
)

// Dependencies holds the services shared by commands. The configuration is
// loaded right before a command runs; the session is built on first use so
// commands that only read configuration never open a store.
type Dependencies struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	Config *utils.Configuration

	mu         sync.Mutex
	session    *session.Session
	repository *repos.Repository
}

func NewDependencies(logger *zap.Logger, level zap.AtomicLevel) *Dependencies {
	return &Dependencies{
		logger: logger,
		level:  level,
	}
}

// Load reads the configuration. A set debug flag overrides the config file.
func (d *Dependencies) Load(configFile string, debugFlag *pflag.Flag) error {
	config := utils.NewConfiguration(d.logger)
	if debugFlag != nil {
		if err := config.BindFlag(utils.KeyDebug, debugFlag); err != nil {
			return err
		}
	}
	if err := config.Load(configFile); err != nil {
		return err
	}

	if config.DebugMode {
		d.level.SetLevel(zap.DebugLevel)
	}

	d.Config = config
	d.logger.Debug("Configuration loaded",
		zap.String("file", config.ConfigFileUsed()),
		zap.String("model", config.Model))
	return nil
}

// Configuration returns the loaded configuration, or defaults and environment
// when Load was never called.
func (d *Dependencies) Configuration() *utils.Configuration {
	if d.Config == nil {
		d.Config = utils.NewConfiguration(d.logger)
	}
	return d.Config
}

// Session returns the process wide session, creating it on first use.
func (d *Dependencies) Session() (*session.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.session != nil {
		return d.session, nil
	}

	repo, err := repos.NewRepository(d.logger)
	if err != nil {
		return nil, err
	}

	config := d.Configuration()
	client := completion.NewOpenAIClient(d.logger,
		completion.WithModel(config.Model),
		completion.WithBaseURL(config.BaseURL),
		completion.WithRequestTimeout(config.RequestTimeout))

	d.repository = repo
	d.session = session.New(d.logger, chain.NewExecutor(d.logger, client), repo)
	return d.session, nil
}

// Close releases the run store, if one was opened.
func (d *Dependencies) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.repository == nil {
		return nil
	}
	err := d.repository.Close()
	d.repository = nil
	d.session = nil
	return err
}
