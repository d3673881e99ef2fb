// Command backfill re-embeds every stored record with the current
// embedding model and upserts it back under the same point ID. Points
// flagged degraded (stored with a fallback vector after an embedding
// outage) are repaired first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"

	"github.com/joho/godotenv"

	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
	"github.com/KLMSolutions/leavebuddy/pkg/fn"
	"github.com/KLMSolutions/leavebuddy/pkg/ollama"
	"github.com/KLMSolutions/leavebuddy/pkg/openai"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	godotenv.Load()

	var (
		qdrantAddr   = flag.String("qdrant", envOr("QDRANT_URL", "localhost:6334"), "Qdrant gRPC address")
		collection   = flag.String("collection", envOr("QDRANT_COLLECTION", "leave-buddy-index"), "Qdrant collection")
		ollamaURL    = flag.String("ollama", envOr("OLLAMA_URL", "http://localhost:11434"), "Ollama base URL")
		pageSize     = flag.Int("page", 100, "scroll page size")
		workers      = flag.Int("workers", 4, "concurrent embed calls")
		batchSize    = flag.Int("batch", 32, "upsert batch size")
		degradedOnly = flag.Bool("degraded-only", false, "repair degraded points only")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	vs, err := semantic.New(*qdrantAddr, *collection)
	if err != nil {
		log.Fatalf("qdrant connect: %v", err)
	}
	defer vs.Close()

	var embedder ai.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder = openai.New(key)
		log.Printf("embedding with OpenAI")
	} else {
		embedder = ollama.New(*ollamaURL, "", "")
		log.Printf("embedding with Ollama at %s", *ollamaURL)
	}

	var points []semantic.StoredPoint
	err = vs.ScrollAll(ctx, *pageSize, func(p semantic.StoredPoint) error {
		if p.Summary == "" {
			return nil
		}
		if *degradedOnly && !p.Degraded {
			return nil
		}
		points = append(points, p)
		return nil
	})
	if err != nil {
		log.Fatalf("scroll: %v", err)
	}

	// Degraded points carry fallback vectors; repair them first so an
	// interrupted run still fixes the worst data.
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Degraded && !points[j].Degraded
	})

	degraded := 0
	for _, p := range points {
		if p.Degraded {
			degraded++
		}
	}
	log.Printf("re-embedding %d points (%d degraded)", len(points), degraded)

	var done, errs int
	for _, batch := range fn.Chunk(points, *batchSize) {
		if ctx.Err() != nil {
			break
		}

		results := fn.ParMapResult(batch, *workers, func(p semantic.StoredPoint) fn.Result[semantic.VectorRecord] {
			vec, err := embedder.Embed(ctx, p.Summary)
			if err != nil {
				return fn.Err[semantic.VectorRecord](fmt.Errorf("embed %s: %w", p.ID, err))
			}
			return fn.Ok(semantic.VectorRecord{
				ID:        p.ID,
				Embedding: vec,
				Payload:   repairedPayload(p),
			})
		})

		var records []semantic.VectorRecord
		for _, r := range results {
			rec, err := r.Unwrap()
			if err != nil {
				log.Printf("skip: %v", err)
				errs++
				continue
			}
			records = append(records, rec)
		}
		if len(records) == 0 {
			continue
		}

		if err := vs.Upsert(ctx, records); err != nil {
			log.Printf("upsert batch failed: %v", err)
			errs += len(records)
			continue
		}
		done += len(records)
		log.Printf("progress: %d/%d re-embedded, %d errors", done, len(points), errs)
	}

	log.Printf("done: %d re-embedded, %d errors, %d total", done, errs, len(points))
}

// repairedPayload rebuilds the point payload with the degraded flag
// cleared, since the vector is now a real embedding.
func repairedPayload(p semantic.StoredPoint) map[string]any {
	payload := make(map[string]any, len(p.Payload)+2)
	for k, v := range p.Payload {
		payload[k] = v
	}
	payload["summary"] = p.Summary
	payload["degraded"] = false
	return payload
}
