// Package mcp exposes the pipeline as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/YoshitsuguKoike/deepatch/internal/app"
	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/input"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/buildinfo"
	"github.com/YoshitsuguKoike/deepatch/internal/domain/model/event"
)

const instructions = `deepatch turns a natural-language change request into a pull request.
Call propose_patch with a repository URL and a prompt; it clones the repository in a sandbox,
generates edits, pushes a branch and opens a pull request. The result is the final event of the run.
Call list_runs to see recent runs.`

// NewServer registers the deepatch tools. runs may be nil when history is disabled.
func NewServer(pipeline input.PipelineUseCase, runs output.RunRepository, logger app.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		"deepatch",
		buildinfo.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	s.AddTools(tools(pipeline, runs, logger)...)
	return s
}

// tools lists the registered tools; list_runs needs run history
func tools(pipeline input.PipelineUseCase, runs output.RunRepository, logger app.Logger) []server.ServerTool {
	propose := NewProposePatchTool(pipeline, logger)
	out := []server.ServerTool{{Tool: propose.Definition(), Handler: propose.Handle}}

	if runs != nil {
		list := NewListRunsTool(runs)
		out = append(out, server.ServerTool{Tool: list.Definition(), Handler: list.Handle})
	}
	return out
}

// ServeStdio runs the server on stdin/stdout until the client disconnects
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// ProposePatchTool handles the propose_patch MCP tool.
type ProposePatchTool struct {
	pipeline input.PipelineUseCase
	logger   app.Logger
}

// NewProposePatchTool creates a ProposePatchTool.
func NewProposePatchTool(pipeline input.PipelineUseCase, logger app.Logger) *ProposePatchTool {
	if logger == nil {
		logger = app.NopLogger()
	}
	return &ProposePatchTool{pipeline: pipeline, logger: logger}
}

// Definition returns the MCP tool definition for propose_patch.
func (t *ProposePatchTool) Definition() mcp.Tool {
	return mcp.NewTool("propose_patch",
		mcp.WithDescription(
			"Generate a code change for a GitHub repository and open a pull request. "+
				"Returns the final event of the run as JSON: a summary with pr_url on success, "+
				"or an error with the failed stage.",
		),
		mcp.WithString("repo_url",
			mcp.Required(),
			mcp.Description("Repository to change, e.g. https://github.com/owner/repo or git@github.com:owner/repo.git"),
		),
		mcp.WithString("prompt",
			mcp.Required(),
			mcp.Description("What to change, in natural language"),
		),
	)
}

// Handle runs the pipeline and returns its terminal event.
// A failed run is a tool error carrying the same JSON.
func (t *ProposePatchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var terminal *event.Event
	collect := output.EventPresenterFunc(func(ev event.Event) error {
		t.logger.Debug("[%s] %3d%% %s", ev.RequestID, ev.Progress, ev.Message)
		if ev.Terminal() {
			e := ev
			terminal = &e
		}
		return nil
	})

	out := t.pipeline.Run(ctx, dto.RunInput{
		RepositoryURL: req.GetString("repo_url", ""),
		Prompt:        req.GetString("prompt", ""),
	}, collect)

	if terminal == nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %s ended without a result", out.RequestID)), nil
	}
	data, err := json.Marshal(terminal)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	if !out.Success {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ListRunsTool handles the list_runs MCP tool.
type ListRunsTool struct {
	runs output.RunRepository
}

// NewListRunsTool creates a ListRunsTool.
func NewListRunsTool(runs output.RunRepository) *ListRunsTool {
	return &ListRunsTool{runs: runs}
}

// Definition returns the MCP tool definition for list_runs.
func (t *ListRunsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_runs",
		mcp.WithDescription("List recent deepatch runs, newest first, as JSON."),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20, max: 100)"),
		),
	)
}

// Handle processes the list_runs tool call.
func (t *ListRunsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := t.runs.List(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list runs: %v", err)), nil
	}
	data, err := json.Marshal(dto.RunRecordsFromOutput(records))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode runs: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts an integer argument; JSON numbers arrive as float64.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
