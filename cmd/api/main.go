// Package main implements the Leave Buddy API server: the browser form,
// the submission endpoints, and the analysis endpoint.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/KLMSolutions/leavebuddy/engine/analysis"
	"github.com/KLMSolutions/leavebuddy/engine/ingest"
	"github.com/KLMSolutions/leavebuddy/engine/record"
	"github.com/KLMSolutions/leavebuddy/engine/roster"
	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
	"github.com/KLMSolutions/leavebuddy/pkg/metrics"
	"github.com/KLMSolutions/leavebuddy/pkg/mid"
	"github.com/KLMSolutions/leavebuddy/pkg/natsutil"
	"github.com/KLMSolutions/leavebuddy/pkg/ollama"
	"github.com/KLMSolutions/leavebuddy/pkg/openai"
	"github.com/KLMSolutions/leavebuddy/pkg/resilience"
)

// Config holds all environment-based configuration.
type Config struct {
	Port        string
	MetricsPort int
	Neo4jURL    string
	Neo4jUser   string
	Neo4jPass   string
	QdrantURL   string
	Collection  string
	NATSURL     string
	OpenAIKey   string
	EmbedDims   int
	OllamaURL   string
	CORSOrigin  string
	RateRPS     float64
}

func loadConfig() Config {
	godotenv.Load()
	return Config{
		Port:        envOr("PORT", "8080"),
		MetricsPort: envIntOr("METRICS_PORT", 9090),
		Neo4jURL:    envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:   envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:   envOr("NEO4J_PASS", "password"),
		QdrantURL:   envOr("QDRANT_URL", "localhost:6334"),
		Collection:  envOr("QDRANT_COLLECTION", "leave-buddy-index"),
		NATSURL:     os.Getenv("NATS_URL"),
		OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		EmbedDims:   envIntOr("EMBED_DIMS", 1536),
		OllamaURL:   envOr("OLLAMA_URL", "http://localhost:11434"),
		CORSOrigin:  envOr("CORS_ORIGIN", "*"),
		RateRPS:     float64(envIntOr("RATE_LIMIT_RPS", 20)),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// buildProviders wires the embed/chat stack: OpenAI primary behind a
// circuit breaker, Ollama as local fallback. Without an API key the
// local provider serves alone.
func buildProviders(cfg Config, logger *slog.Logger) (ai.Embedder, ai.Chatter) {
	local := ollama.New(cfg.OllamaURL, "", "")
	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, using local models only")
		return local, local
	}

	remote := openai.New(cfg.OpenAIKey)
	embedBreaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)
	chatBreaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)

	embedder := &ai.FallbackEmbedder{
		Primary:   &resilience.GuardedEmbedder{Inner: remote, Breaker: embedBreaker},
		Secondary: local,
		Logger:    logger,
	}
	chatter := &ai.FallbackChatter{
		Primary:   &resilience.GuardedChatter{Inner: remote, Breaker: chatBreaker},
		Secondary: local,
		Logger:    logger,
	}
	return embedder, chatter
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	met.ServeAsync(cfg.MetricsPort)

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()
	if err := vectorStore.EnsureCollection(ctx, cfg.EmbedDims); err != nil {
		return fmt.Errorf("qdrant ensure collection: %w", err)
	}

	// --- Connect to Neo4j and seed the roster ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	directory := roster.New(neo4jDriver)
	if err := directory.Seed(ctx, roster.DefaultRoster()); err != nil {
		return fmt.Errorf("roster seed: %w", err)
	}

	// --- AI providers ---
	embedder, chatter := buildProviders(cfg, logger)

	ingestDeps := ingest.Deps{
		Embedder:    embedder,
		VectorStore: vectorStore,
		EmbedDims:   cfg.EmbedDims,
		Logger:      logger,
	}

	// --- Submission sink: NATS when configured, inline otherwise ---
	var publish func(context.Context, record.Submission) error
	if cfg.NATSURL != "" {
		nc, err := nats.Connect(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("nats connect: %w", err)
		}
		defer nc.Close()
		logger.Info("publishing submissions to NATS", "url", cfg.NATSURL)
		publish = func(ctx context.Context, s record.Submission) error {
			return natsutil.Publish(ctx, nc, ingest.SubmissionSubject, s)
		}
	} else {
		logger.Info("no NATS_URL, running ingestion inline")
		publish = func(ctx context.Context, s record.Submission) error {
			_, err := ingest.Run(ctx, ingestDeps, s)
			return err
		}
	}

	analysisSvc := analysis.New(embedder, chatter, vectorStore, analysis.DefaultOptions(), logger)

	srvHandlers := &server{
		publish:   publish,
		embed:     embedder,
		search:    vectorStore,
		analysis:  analysisSvc,
		directory: directory,
		logger:    logger,
		met:       newAPIMetrics(met),
	}

	handler := mid.Chain(srvHandlers.routes(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("leavebuddy-api"),
		mid.RateLimit(cfg.RateRPS, int(cfg.RateRPS)*2),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
