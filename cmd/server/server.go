package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/cmd/bootstrap"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/regression"
)

// ServerCmd represents the server command group
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the pipeline over HTTP",
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server exposing the pipeline.

The server provides:
- Request analysis and personalization endpoints
- Artifact validation
- Full pipeline runs with session tracking
- Session inspection and deletion
- Regression suite execution

Examples:
  genpipeline server start                 # Start with default settings
  genpipeline server start --port 8080     # Start on a custom port
  genpipeline server start --backend openai`,
	Run: runServer,
}

func init() {
	startCmd.Flags().Int("port", 8080, "listen port")
	startCmd.Flags().String("host", "0.0.0.0", "listen host")
	startCmd.Flags().String("backend", "stub", "generation backend (stub, openai or anthropic)")
	startCmd.Flags().String("output-dir", "artifacts", "directory artifacts are written under")
	startCmd.Flags().String("model", "gpt-4o-mini", "backend model")
	viper.BindPFlag("model", startCmd.Flags().Lookup("model"))

	ServerCmd.AddCommand(startCmd)
}

func runServer(cmd *cobra.Command, args []string) {
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

	var generator pipeline.Generator
	switch backend {
	case "", "stub":
		stub := pipeline.NewStubGenerator(outputDir)
		stub.Isolate = true
		generator = stub
	case "openai", "anthropic":
		generator, err = pipeline.NewLLMGenerator(backend, viper.GetString("model"), outputDir, log)
		if err != nil {
			log.Errorf("❌ Failed to create generation backend: %v", err)
			os.Exit(1)
		}
	default:
		log.Errorf("❌ Unknown generation backend: %s", backend)
		os.Exit(1)
	}

	tracer := bootstrap.Tracer(log)
	api := &apiServer{
		pipeline: pipeline.New(pipeline.NewConfig(), generator, store, tracer, log),
		runner:   regression.NewRunner(tracer, log),
		logger:   log,
	}

	if !viper.GetBool("debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(api)

	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}

	go func() {
		log.Infof("✅ API server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("🔄 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("❌ Forced shutdown: %v", err)
	}
	log.Info("✅ Server stopped")
}

// newRouter wires the API routes onto a gin engine.
func newRouter(api *apiServer) *gin.Engine {
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	group := router.Group("/api")
	{
		group.GET("/health", api.health)
		group.POST("/analyze", api.analyze)
		group.POST("/personalize", api.personalize)
		group.POST("/validate", api.validate)
		group.POST("/pipeline/run", api.runPipeline)
		group.GET("/sessions", api.listSessions)
		group.GET("/sessions/:id", api.getSession)
		group.DELETE("/sessions/:id", api.deleteSession)
		group.POST("/regression/:suite", api.runRegression)
	}
	return router
}

// apiServer holds the long-lived components behind the HTTP handlers. One
// pipeline serves all requests so per-session serialization holds across
// concurrent calls.
type apiServer struct {
	pipeline *pipeline.Pipeline
	runner   *regression.Runner
	logger   utils.ExtendedLogger
}
