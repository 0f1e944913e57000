package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/api"
	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
	"github.com/gi4nks/promptchain/internal/transcript"
)

const stdinMarker = "-"

// RunCommand executes one prompt chain and prints its transcript
type RunCommand struct {
	*BaseCommand
	systemPrompt string
	firstPrompt  string
	nextPrompt   string
	count        int
	apiKey       string
	export       bool
	exportDir    string
	quiet        bool

	stdinIsTerminal func() bool
}

// NewRunCommand creates a new run command
func NewRunCommand(logger *zap.Logger, deps *Dependencies) *RunCommand {
	rc := &RunCommand{
		stdinIsTerminal: func() bool {
			fd := os.Stdin.Fd()
			return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		},
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a prompt chain",
		Long: `Send the system prompt and the first prompt, then repeat the next prompt with
the previous response appended until count responses were collected.

The first prompt can be read from stdin with --first - or by piping it in.
A failing request aborts the run: nothing is printed but a single notice.

Examples:
  promptchain run -s "You are terse." -f "Name a color." -n "Name another." -c 3
  promptchain run -s "You are terse." -f "Name a color." -e        # export the transcript
  cat prompt.txt | promptchain run -s "You are a reviewer." --quiet`,
		Args: cobra.NoArgs,
		RunE: rc.runE,
	}

	rc.BaseCommand = NewBaseCommand(cmd, logger, deps)
	rc.cmd = cmd
	rc.setupFlags(cmd)
	return rc
}

func (rc *RunCommand) setupFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&rc.systemPrompt, "system", "s", "", "System prompt sent with every request")
	cmd.Flags().StringVarP(&rc.firstPrompt, "first", "f", "", "First user prompt, - reads it from stdin")
	cmd.Flags().StringVarP(&rc.nextPrompt, "next", "n", "", "Prompt template for every request after the first")
	cmd.Flags().IntVarP(&rc.count, "count", "c", 1, "Number of requests in the chain")
	cmd.Flags().StringVar(&rc.apiKey, "api-key", "", "API key (default from configuration or OPENAI_API_KEY)")
	cmd.Flags().BoolVarP(&rc.export, "export", "e", false, "Write the transcript to the export directory")
	cmd.Flags().StringVar(&rc.exportDir, "export-dir", "", "Export directory (default from configuration)")
	cmd.Flags().BoolVarP(&rc.quiet, "quiet", "q", false, "Print only the transcript")
}

func (rc *RunCommand) runE(cmd *cobra.Command, args []string) error {
	first, err := rc.resolveFirstPrompt(cmd.InOrStdin())
	if err != nil {
		return err
	}

	config := rc.deps.Configuration()
	credential := rc.apiKey
	if credential == "" {
		credential = config.APIKey
	}

	req := models.ChainRequest{
		Credential:               credential,
		SystemPrompt:             rc.systemPrompt,
		FirstUserPrompt:          first,
		SubsequentPromptTemplate: rc.nextPrompt,
		RepeatCount:              rc.count,
	}
	if err := req.Validate(); err != nil {
		return err
	}

	sess, err := rc.deps.Session()
	if err != nil {
		return err
	}

	rc.logger.Debug("Run command invoked",
		zap.Int("count", rc.count),
		zap.Bool("export", rc.export))

	stderr := cmd.ErrOrStderr()
	progress := func(step models.ChainStep, index, total int) {
		if !rc.quiet {
			fmt.Fprintf(stderr, "%s %d/%d\n", color.New(color.FgHiBlack).Sprint("completed request"), index+1, total)
		}
	}

	run, err := sess.Execute(cmd.Context(), req, progress)
	if err != nil {
		rc.logger.Debug("Run failed",
			zap.String("runId", run.ID),
			zap.String("errorKind", errors.Code(err)),
			zap.Error(err))
		color.New(color.FgRed, color.Bold).Fprintln(stderr, api.RequestFailedNotice)
		// The notice above is all the user sees; the error only sets the exit code.
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true
		return err
	}

	rc.printRun(cmd.OutOrStdout(), run)

	if rc.export {
		return rc.writeExport(stderr, config.ExportDirectory, run)
	}
	return nil
}

// resolveFirstPrompt reads the first prompt from stdin when asked to with "-"
// or when nothing was given and stdin is not a terminal.
func (rc *RunCommand) resolveFirstPrompt(stdin io.Reader) (string, error) {
	if rc.firstPrompt != stdinMarker && (rc.firstPrompt != "" || rc.stdinIsTerminal()) {
		return rc.firstPrompt, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.NewError(errors.ErrInvalidRequest, "failed to read first prompt from stdin", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (rc *RunCommand) printRun(out io.Writer, run models.Run) {
	if rc.quiet {
		fmt.Fprintln(out, transcript.Render(run.Steps))
		return
	}

	header := color.New(color.FgCyan, color.Bold)
	for i, step := range run.Steps {
		if i > 0 {
			fmt.Fprintln(out)
		}
		header.Fprintf(out, "Run %d\n", i+1)
		fmt.Fprintln(out, step.ResponseText)
	}
}

func (rc *RunCommand) writeExport(out io.Writer, configured string, run models.Run) error {
	dir := rc.exportDir
	if dir == "" {
		dir = configured
	}

	path, err := transcript.Write(dir, run)
	if err != nil {
		rc.logger.Error("Failed to export transcript", zap.String("dir", dir), zap.Error(err))
		return err
	}

	rc.logger.Debug("Transcript exported", zap.String("path", path))
	if !rc.quiet {
		color.New(color.FgGreen).Fprintf(out, "Transcript written to %s\n", path)
	}
	return nil
}

func (rc *RunCommand) Command() *cobra.Command {
	return rc.cmd
}
