package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gi4nks/promptchain/internal/api"
	"github.com/gi4nks/promptchain/internal/errors"
	"github.com/gi4nks/promptchain/internal/models"
	"github.com/gi4nks/promptchain/internal/transcript"
)

const maxHistoryLimit = 100

type MCPCommand struct {
	*BaseCommand
}

func NewMCPCommand(logger *zap.Logger, deps *Dependencies) *MCPCommand {
	mc := &MCPCommand{}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server exposing prompt chain tools",
		Long: `Start a Model Context Protocol (MCP) server that exposes prompt chains as tools.

The MCP server runs over stdio and provides the following tools:
  - promptchain_run: Run a prompt chain and return its transcript
  - promptchain_export: Get the transcript of the last completed run as a file
  - promptchain_history: List the runs of this server
  - promptchain_stats: Outcome statistics of the runs of this server

Example:
  promptchain mcp

Configure in Claude Desktop (~/.config/claude/claude_desktop_config.json):
  {
    "mcpServers": {
      "promptchain": {
        "command": "promptchain",
        "args": ["mcp"],
        "env": {"OPENAI_API_KEY": "sk-..."}
      }
    }
  }`,
		Args: cobra.NoArgs,
		RunE: mc.runE,
	}

	mc.BaseCommand = NewBaseCommand(cmd, logger, deps)
	mc.cmd = cmd
	return mc
}

func (mc *MCPCommand) runE(cmd *cobra.Command, args []string) error {
	mc.logger.Debug("Starting MCP server")

	s := server.NewMCPServer(
		"promptchain",
		getVersion(),
		server.WithToolCapabilities(true),
	)
	mc.registerTools(s)

	if err := server.ServeStdio(s); err != nil {
		mc.logger.Error("MCP server error", zap.Error(err))
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}

func (mc *MCPCommand) registerTools(s *server.MCPServer) {
	s.AddTool(
		mcp.NewTool("promptchain_run",
			mcp.WithDescription("Run a prompt chain: send the system prompt and first prompt, then repeat the next prompt with the previous response appended. Returns the responses separated by '-----' lines."),
			mcp.WithString("system_prompt",
				mcp.Required(),
				mcp.Description("System prompt sent with every request"),
			),
			mcp.WithString("first_prompt",
				mcp.Required(),
				mcp.Description("User prompt of the first request"),
			),
			mcp.WithString("next_prompt",
				mcp.Description("Prompt template for every request after the first (required when count > 1)"),
			),
			mcp.WithNumber("count",
				mcp.Description("Number of requests in the chain (default: 1)"),
			),
		),
		mc.handleRun,
	)

	s.AddTool(
		mcp.NewTool("promptchain_export",
			mcp.WithDescription("Get the transcript of the last completed run together with its export file name."),
		),
		mc.handleExport,
	)

	s.AddTool(
		mcp.NewTool("promptchain_history",
			mcp.WithDescription("List the runs started by this server, newest first."),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of runs to return (default: 10, max: 100)"),
			),
		),
		mc.handleHistory,
	)

	s.AddTool(
		mcp.NewTool("promptchain_stats",
			mcp.WithDescription("Get statistics about the runs of this server: completed and failed runs, success rate, failures by kind and average duration."),
		),
		mc.handleStats,
	)
}

// handleRun executes a chain with the configured credential
func (mc *MCPCommand) handleRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := mc.deps.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open session: %v", err)), nil
	}

	req := models.ChainRequest{
		Credential:               mc.deps.Configuration().APIKey,
		SystemPrompt:             request.GetString("system_prompt", ""),
		FirstUserPrompt:          request.GetString("first_prompt", ""),
		SubsequentPromptTemplate: request.GetString("next_prompt", ""),
		RepeatCount:              request.GetInt("count", 1),
	}

	run, err := sess.Execute(ctx, req)
	switch {
	case err == nil:
		return mcp.NewToolResultText(transcript.Render(run.Steps)), nil
	case errors.IsRequestFailure(err):
		mc.logger.Debug("MCP run failed",
			zap.String("errorKind", errors.Code(err)),
			zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("%s (%s)", api.RequestFailedNotice, errors.Code(err))), nil
	default:
		return mcp.NewToolResultError(err.Error()), nil
	}
}

// handleExport returns the export of the current run
func (mc *MCPCommand) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := mc.deps.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open session: %v", err)), nil
	}

	export, err := sess.Export()
	if err != nil {
		return mcp.NewToolResultError("No completed run to export"), nil
	}

	data, err := json.MarshalIndent(map[string]string{
		"file_name": export.FileName,
		"content":   export.Content,
	}, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode export: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleHistory returns one summary line per run
func (mc *MCPCommand) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := min(max(request.GetInt("limit", 10), 1), maxHistoryLimit)

	sess, err := mc.deps.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open session: %v", err)), nil
	}

	runs, err := sess.History(limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to retrieve runs: %v", err)), nil
	}
	if len(runs) == 0 {
		return mcp.NewToolResultText("No runs yet"), nil
	}

	lines := make([]string, 0, len(runs))
	for _, run := range runs {
		lines = append(lines, run.AsSummary())
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

// handleStats returns the analytics report as JSON
func (mc *MCPCommand) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := mc.deps.Session()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to open session: %v", err)), nil
	}

	report, err := sess.Stats()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze runs: %v", err)), nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode report: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (mc *MCPCommand) Command() *cobra.Command {
	return mc.cmd
}
