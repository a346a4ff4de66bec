package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/bootstrap"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
)

// PipelineCmd represents the pipeline command group
var PipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the generation quality pipeline",
	Long:  "Analyze requests and drive the full analyze-personalize-generate-validate loop",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline for one request",
	Long: `Run one request through the full pipeline: intent analysis,
session personalization, generation, validation and classified retry.

Examples:
  genpipeline pipeline run --prompt "Create an online store with a product catalog"
  genpipeline pipeline run --prompt "Build a dashboard" --session user-42 --backend openai`,
	Run: runPipeline,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a request without generating anything",
	Run:   runAnalyze,
}

func init() {
	runCmd.Flags().String("prompt", "", "generation request text (required)")
	runCmd.Flags().String("session", "", "session ID for personalization (empty for anonymous)")
	runCmd.Flags().String("backend", "stub", "generation backend (stub, openai or anthropic)")
	runCmd.Flags().String("output-dir", "artifacts", "directory artifacts are written under")
	runCmd.Flags().String("model", "gpt-4o-mini", "backend model")
	runCmd.Flags().Int("max-attempts", 3, "maximum generation attempts")
	runCmd.Flags().Float64("quality", 70, "quality threshold when no session carries one")
	viper.BindPFlag("model", runCmd.Flags().Lookup("model"))

	analyzeCmd.Flags().String("prompt", "", "request text to analyze (required)")

	PipelineCmd.AddCommand(runCmd)
	PipelineCmd.AddCommand(analyzeCmd)
}

func runPipeline(cmd *cobra.Command, args []string) {
	prompt, _ := cmd.Flags().GetString("prompt")
	if strings.TrimSpace(prompt) == "" {
		fmt.Fprintln(os.Stderr, "❌ --prompt is required")
		os.Exit(1)
	}

	log, err := bootstrap.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	store, closeStore, err := bootstrap.Store(log)
	if err != nil {
		log.Errorf("❌ Failed to open session store: %v", err)
		os.Exit(1)
	}
	defer closeStore()

	backend, _ := cmd.Flags().GetString("backend")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	sessionID, _ := cmd.Flags().GetString("session")
	maxAttempts, _ := cmd.Flags().GetInt("max-attempts")
	quality, _ := cmd.Flags().GetFloat64("quality")

	// The stub backend scaffolds from the analyzed features, so analyze
	// up front to seed it.
	preview := analyzer.New(log).Analyze(prompt)
	generator, err := bootstrap.Generator(backend, outputDir, preview.KeyFeatures, log)
	if err != nil {
		log.Errorf("❌ %v", err)
		os.Exit(1)
	}

	config := pipeline.NewConfig().
		SetMaxAttempts(maxAttempts).
		SetQualityThreshold(quality)
	config.Generation.Model = viper.GetString("model")

	p := pipeline.New(config, generator, store, bootstrap.Tracer(log), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := p.Run(ctx, pipeline.RunRequest{SessionID: sessionID, Prompt: prompt})
	if result != nil {
		printJSON(result)
	}
	if err != nil {
		log.Errorf("❌ Pipeline run failed: %v", err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, args []string) {
	prompt, _ := cmd.Flags().GetString("prompt")
	if strings.TrimSpace(prompt) == "" {
		fmt.Fprintln(os.Stderr, "❌ --prompt is required")
		os.Exit(1)
	}

	log, err := bootstrap.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	analysis := analyzer.New(log).Analyze(prompt)
	printJSON(analysis)
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to render output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
