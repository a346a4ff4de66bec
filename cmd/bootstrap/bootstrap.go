// Package bootstrap assembles the shared runtime pieces every command
// needs: logger, tracer, session store and pipeline. Configuration comes
// from viper, which the root command has already bound to flags and env.
package bootstrap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/observability"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/database"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

// Logger builds the process logger from viper configuration.
func Logger() (utils.ExtendedLogger, error) {
	level := viper.GetString("log-level")
	if viper.GetBool("debug") {
		level = "debug"
	}
	log, err := logger.CreateLogger(viper.GetString("log-file"), level, viper.GetString("log-format"), true)
	if err != nil {
		return nil, err
	}
	return log, nil
}

// Tracer builds the configured tracer.
func Tracer(log utils.ExtendedLogger) observability.Tracer {
	return observability.GetTracerWithLogger(viper.GetString("trace-provider"), log)
}

// Store opens the session store. A non-empty db-path gets SQLite; an empty
// one gets the in-memory store. The returned closer is safe to defer either
// way.
func Store(log utils.ExtendedLogger) (session.Store, func(), error) {
	dbPath := viper.GetString("db-path")
	if dbPath == "" {
		log.Info("🆕 Using in-memory session store")
		return database.NewMemoryStore(), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create session store directory: %w", err)
	}
	store, err := database.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("✅ Session store ready at %s", dbPath)
	return store, func() { _ = store.Close() }, nil
}

// Generator builds the configured generation backend. The stub backend
// seeds its scaffold from the expected feature tags when the caller knows
// them; outputDir is where artifacts land.
func Generator(backend, outputDir string, features []string, log utils.ExtendedLogger) (pipeline.Generator, error) {
	switch backend {
	case "", "stub":
		return pipeline.NewStubGenerator(outputDir, features...), nil
	case "openai", "anthropic":
		return pipeline.NewLLMGenerator(backend, viper.GetString("model"), outputDir, log)
	default:
		return nil, fmt.Errorf("unknown generation backend: %s (use stub, openai or anthropic)", backend)
	}
}
