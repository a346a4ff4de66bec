package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/recovery"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/regression"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/validator"
)

// MCPCmd represents the mcp command group
var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the pipeline as MCP tools",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Start the MCP server exposing pipeline capabilities over stdio.

This server provides:
- analyze_request: classify a user request (intent, complexity, domain, features)
- validate_artifact: score a generated artifact across the six quality dimensions
- classify_error: classify a failure message and get the retry decision
- run_regression_suite: run a named regression suite against the stub backend

Examples:
  genpipeline mcp serve                       # Start the stdio server
  genpipeline mcp serve --arena-dir /tmp/reg  # Custom regression arena directory`,
	Run: runMCPServer,
}

func init() {
	serveCmd.Flags().String("arena-dir", "", "directory regression arenas are created under (default: system temp)")

	MCPCmd.AddCommand(serveCmd)
}

func runMCPServer(cmd *cobra.Command, args []string) {
	// Stdout carries the MCP transport, so the logger writes to file only.
	level := viper.GetString("log-level")
	if viper.GetBool("debug") {
		level = "debug"
	}
	baseLog, err := logger.CreateLogger(viper.GetString("log-file"), level, viper.GetString("log-format"), false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	var log utils.ExtendedLogger = baseLog

	s := server.NewMCPServer(
		"generation-quality-pipeline",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	registerAnalyzeTool(s, analyzer.New(log))
	registerValidateTool(s, validator.New(validator.NewConfig(), log))
	registerClassifyTool(s, recovery.NewClassifier(log))
	registerRegressionTool(s, cmd, log)

	fmt.Fprintf(os.Stderr, "Starting MCP pipeline server with stdio transport...\n")
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func registerAnalyzeTool(s *server.MCPServer, a *analyzer.Analyzer) {
	s.AddTool(
		mcp.NewTool(
			"analyze_request",
			mcp.WithDescription("Analyze a user request and return intent, complexity, domain, detected features and confidence."),
			mcp.WithString("text",
				mcp.Required(),
				mcp.Description("The raw user request to analyze"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text := req.GetString("text", "")
			if text == "" {
				return mcp.NewToolResultError("'text' is required"), nil
			}
			return toolJSON(a.Analyze(text))
		},
	)
}

func registerValidateTool(s *server.MCPServer, v *validator.Validator) {
	s.AddTool(
		mcp.NewTool(
			"validate_artifact",
			mcp.WithDescription("Validate a generated artifact directory and return the per-dimension quality scores."),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Root directory of the artifact to validate"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			path := req.GetString("path", "")
			if path == "" {
				return mcp.NewToolResultError("'path' is required"), nil
			}
			artifact, err := validator.LoadArtifact(path)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to load artifact: %v", err)), nil
			}
			result, appCtx := v.ValidateWithContext(ctx, artifact)
			return toolJSON(map[string]any{
				"result":      result,
				"app_context": appCtx,
			})
		},
	)
}

func registerClassifyTool(s *server.MCPServer, c *recovery.Classifier) {
	s.AddTool(
		mcp.NewTool(
			"classify_error",
			mcp.WithDescription("Classify a failure message against the error taxonomy and return the retry decision."),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("The error message to classify"),
			),
			mcp.WithString("step",
				mcp.Description("Pipeline step where the failure happened (default: generation)"),
			),
			mcp.WithNumber("attempt",
				mcp.Description("1-indexed attempt number (default: 1)"),
			),
			mcp.WithNumber("max_attempts",
				mcp.Description("Attempt budget for the operation (default: 3)"),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			message := req.GetString("message", "")
			if message == "" {
				return mcp.NewToolResultError("'message' is required"), nil
			}
			errCtx := recovery.Context{
				Step:        req.GetString("step", "generation"),
				Attempt:     intArg(req, "attempt", 1),
				MaxAttempts: intArg(req, "max_attempts", 3),
			}
			decision := c.Decide(errors.New(message), errCtx, recovery.DefaultRetryConfig())
			return toolJSON(decision)
		},
	)
}

func registerRegressionTool(s *server.MCPServer, cmd *cobra.Command, log utils.ExtendedLogger) {
	arenaDir, _ := cmd.Flags().GetString("arena-dir")

	s.AddTool(
		mcp.NewTool(
			"run_regression_suite",
			mcp.WithDescription("Run a named regression suite against the stub backend and return per-case results."),
			mcp.WithString("suite",
				mcp.Description("Suite name (default: smoke). Available: "+fmt.Sprintf("%v", regression.SuiteNames())),
			),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			runner := regression.NewRunner(nil, log)
			if arenaDir != "" {
				runner.SetBaseDir(arenaDir)
			}
			result, err := runner.RunSuite(ctx, req.GetString("suite", "smoke"))
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("suite run failed: %v", err)), nil
			}
			return toolJSON(result)
		},
	)
}

// toolJSON marshals a payload as indented JSON for a text tool result.
func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// intArg extracts an integer argument, returning defaultVal if the key is
// missing or not a number (JSON numbers arrive as float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}
