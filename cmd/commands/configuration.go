package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gi4nks/promptchain/internal/errors"
)

type ConfigurationCommand struct {
	*BaseCommand
	format string
}

func NewConfigurationCommand(logger *zap.Logger, deps *Dependencies) *ConfigurationCommand {
	cc := &ConfigurationCommand{}

	cmd := &cobra.Command{
		Use:     "configuration",
		Aliases: []string{"config"},
		Short:   "Show application configuration",
		Long: `Display the effective configuration: defaults, overridden by the config file,
overridden by PROMPTCHAIN_* environment variables. The API key is masked.

Examples:
  promptchain configuration                 # Show configuration as YAML
  promptchain configuration --format json   # Show as JSON`,
		Args: cobra.NoArgs,
		RunE: cc.runE,
	}

	cc.BaseCommand = NewBaseCommand(cmd, logger, deps)
	cc.cmd = cmd
	cc.setupFlags(cmd)
	return cc
}

func (cc *ConfigurationCommand) setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&cc.format, "format", "f", "yaml", "Output format (yaml or json)")
}

func (cc *ConfigurationCommand) runE(cmd *cobra.Command, args []string) error {
	cc.logger.Debug("Configuration command invoked",
		zap.String("format", cc.format))

	values := cc.deps.Configuration().AsMap()

	switch cc.format {
	case "json":
		return cc.outputJSON(cmd.OutOrStdout(), values)
	case "yaml":
		return cc.outputYAML(cmd.OutOrStdout(), values)
	default:
		return errors.NewError(errors.ErrInvalidRequest, fmt.Sprintf("unsupported format: %s", cc.format), nil)
	}
}

func (cc *ConfigurationCommand) outputJSON(out io.Writer, values map[string]any) error {
	jsonData, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		cc.logger.Error("Failed to marshal configuration to JSON", zap.Error(err))
		return err
	}

	fmt.Fprintln(out, string(jsonData))
	return nil
}

func (cc *ConfigurationCommand) outputYAML(out io.Writer, values map[string]any) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(values); err != nil {
		cc.logger.Error("Failed to marshal configuration to YAML", zap.Error(err))
		return err
	}
	return encoder.Close()
}

func (cc *ConfigurationCommand) Command() *cobra.Command {
	return cc.cmd
}
