// Command worker consumes form submissions from NATS and runs them
// through the ingestion pipeline into Qdrant. Failed submissions are
// retried and eventually parked on the DLQ subject.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/KLMSolutions/leavebuddy/engine/ingest"
	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
	"github.com/KLMSolutions/leavebuddy/pkg/metrics"
	"github.com/KLMSolutions/leavebuddy/pkg/ollama"
	"github.com/KLMSolutions/leavebuddy/pkg/openai"
	"github.com/KLMSolutions/leavebuddy/pkg/resilience"
)

// countingEmbedder wraps an embedder with outcome counters.
type countingEmbedder struct {
	inner    ai.Embedder
	ok, fail *metrics.Counter
	dur      *metrics.Histogram
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := c.inner.Embed(ctx, text)
	c.dur.Since(start)
	if err != nil {
		c.fail.Inc()
		return nil, err
	}
	c.ok.Inc()
	return vec, nil
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

	if err := run(logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	godotenv.Load()

	natsURL := envOr("NATS_URL", nats.DefaultURL)
	qdrantURL := envOr("QDRANT_URL", "localhost:6334")
	collection := envOr("QDRANT_COLLECTION", "leave-buddy-index")
	embedDims := envIntOr("EMBED_DIMS", 1536)
	ollamaURL := envOr("OLLAMA_URL", "http://localhost:11434")
	openaiKey := os.Getenv("OPENAI_API_KEY")
	metricsPort := envIntOr("METRICS_PORT", 9091)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	met := metrics.New()
	met.ServeAsync(metricsPort)

	vectorStore, err := semantic.New(qdrantURL, collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()
	if err := vectorStore.EnsureCollection(ctx, embedDims); err != nil {
		return fmt.Errorf("qdrant ensure collection: %w", err)
	}

	var embedder ai.Embedder = ollama.New(ollamaURL, "", "")
	if openaiKey != "" {
		embedder = &ai.FallbackEmbedder{
			Primary: &resilience.GuardedEmbedder{
				Inner:   openai.New(openaiKey),
				Breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
			},
			Secondary: embedder,
			Logger:    logger,
		}
	} else {
		logger.Warn("OPENAI_API_KEY not set, embedding with local model only")
	}

	embedder = &countingEmbedder{
		inner: embedder,
		ok:    met.Counter("leavebuddy_worker_embeds_total", "Successful embedding calls"),
		fail:  met.Counter("leavebuddy_worker_embed_errors_total", "Failed embedding calls"),
		dur:   met.Histogram("leavebuddy_worker_embed_duration_seconds", "Embedding call latency", nil),
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	deps := ingest.Deps{
		Embedder:    embedder,
		VectorStore: vectorStore,
		EmbedDims:   embedDims,
		Logger:      logger,
	}

	sub, err := ingest.StartConsumer(nc, deps)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	logger.Info("worker consuming submissions",
		"subject", ingest.SubmissionSubject,
		"collection", collection,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return nc.Drain()
}
