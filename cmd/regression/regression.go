package regression

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/bootstrap"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/regression"
)

// RegressionCmd represents the regression command group
var RegressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "Run regression suites against the pipeline",
	Long:  "Drive the full pipeline through named scenario batteries and report pass/fail statistics",
}

var runCmd = &cobra.Command{
	Use:   "run [suite]",
	Short: "Run one named suite, or all suites",
	Long: `Run a named regression suite. With no argument every suite runs.

Examples:
  genpipeline regression run smoke
  genpipeline regression run`,
	Args: cobra.MaximumNArgs(1),
	Run:  runSuites,
}

func init() {
	runCmd.Flags().String("arena-dir", "", "base directory for case arenas (default: system temp)")
	RegressionCmd.AddCommand(runCmd)
}

func runSuites(cmd *cobra.Command, args []string) {
	log, err := bootstrap.Logger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	runner := regression.NewRunner(bootstrap.Tracer(log), log)
	if arenaDir, _ := cmd.Flags().GetString("arena-dir"); arenaDir != "" {
		runner.SetBaseDir(arenaDir)
	}

	names := regression.SuiteNames()
	if len(args) == 1 {
		names = []string{args[0]}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failed := 0
	for _, name := range names {
		result, err := runner.RunSuite(ctx, name)
		if err != nil {
			log.Errorf("❌ Suite %s did not complete: %v", name, err)
			os.Exit(1)
		}
		out, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(out))
		failed += result.Failed
	}

	if failed > 0 {
		os.Exit(1)
	}
}
