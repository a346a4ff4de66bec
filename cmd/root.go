package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/mcp"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/regression"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/server"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "genpipeline",
	Short: "Adaptive generation quality and recovery pipeline",
	Long: `An adaptive quality pipeline for AI artifact generation.

This tool provides:
- Intent analysis of natural-language generation requests
- Session-based personalization of generation templates
- Six-dimension artifact validation with context-adaptive weights
- Error classification with exponential-backoff retry
- Named regression suites driving the full pipeline offline`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.genpipeline.yaml)")
	rootCmd.PersistentFlags().String("trace-provider", "console", "tracing provider (console, noop)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("db-path", "data/sessions.db", "SQLite session store path (empty for in-memory)")

	// Logging flags
	rootCmd.PersistentFlags().String("log-file", "", "log file path (optional)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	// Bind flags to viper
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("trace-provider", rootCmd.PersistentFlags().Lookup("trace-provider"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("db-path", rootCmd.PersistentFlags().Lookup("db-path"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Add command groups
	rootCmd.AddCommand(pipeline.PipelineCmd)
	rootCmd.AddCommand(regression.RegressionCmd)
	rootCmd.AddCommand(server.ServerCmd)
	rootCmd.AddCommand(mcp.MCPCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Load .env file first (if present)
	if err := godotenv.Load(".env"); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			fmt.Fprintln(os.Stderr, "No .env file found, using system environment variables")
		}
	}

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".genpipeline" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".genpipeline")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
