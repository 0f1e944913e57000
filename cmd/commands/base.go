package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// BaseCommand is the base structure for all commands
type BaseCommand struct {
	cmd    *cobra.Command
	logger *zap.Logger
	deps   *Dependencies
}

// NewBaseCommand creates a new base command with access to the shared services
func NewBaseCommand(cmd *cobra.Command, logger *zap.Logger, deps *Dependencies) *BaseCommand {
	return &BaseCommand{
		cmd:    cmd,
		logger: logger,
		deps:   deps,
	}
}

// NewBaseCommandWithoutDeps creates a new base command that needs no shared services
func NewBaseCommandWithoutDeps(cmd *cobra.Command, logger *zap.Logger) *BaseCommand {
	return &BaseCommand{
		cmd:    cmd,
		logger: logger,
	}
}

// Command returns the cobra command
func (bc *BaseCommand) Command() *cobra.Command {
	return bc.cmd
}

// HasDependencies returns true if the command can reach the shared services
func (bc *BaseCommand) HasDependencies() bool {
	return bc.deps != nil
}

// Logger returns the logger instance
func (bc *BaseCommand) Logger() *zap.Logger {
	return bc.logger
}

// Dependencies returns the shared services
func (bc *BaseCommand) Dependencies() *Dependencies {
	return bc.deps
}
