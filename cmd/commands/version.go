package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version information - these can be set at build time
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

// getVersion prefers build-time injection over the module version
func getVersion() string {
	if Version != "dev" && Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

// VersionCommand represents the version command
type VersionCommand struct {
	*BaseCommand
	short bool
}

// NewVersionCommand creates a new version command
func NewVersionCommand(logger *zap.Logger) *VersionCommand {
	vc := &VersionCommand{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version information including build details and runtime information.`,
		Args:  cobra.NoArgs,
		RunE:  vc.runE,
	}

	vc.BaseCommand = NewBaseCommandWithoutDeps(cmd, logger)
	vc.cmd = cmd
	vc.setupFlags(cmd)
	return vc
}

func (vc *VersionCommand) setupFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&vc.short, "short", "s", false, "Show only version number")
}

func (vc *VersionCommand) runE(cmd *cobra.Command, args []string) error {
	actualVersion := getVersion()
	out := cmd.OutOrStdout()

	if vc.short {
		fmt.Fprintln(out, actualVersion)
		return nil
	}

	fmt.Fprintf(out, "promptchain version %s\n", actualVersion)
	fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
	fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	fmt.Fprintf(out, "Go version: %s\n", GoVersion)
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	vc.logger.Debug("Version information displayed",
		zap.String("version", actualVersion),
		zap.String("gitCommit", GitCommit),
		zap.String("buildDate", BuildDate),
		zap.String("goVersion", GoVersion),
	)

	return nil
}

func (vc *VersionCommand) Command() *cobra.Command {
	return vc.cmd
}
