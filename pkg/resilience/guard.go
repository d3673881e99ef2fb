package resilience

import (
	"context"

	"github.com/KLMSolutions/leavebuddy/pkg/ai"
)

// GuardedEmbedder wraps an ai.Embedder with a circuit breaker so a dead
// provider fails fast instead of stalling every submission.
type GuardedEmbedder struct {
	Inner   ai.Embedder
	Breaker *Breaker
}

// Embed implements ai.Embedder.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return Guard(g.Breaker, func() ([]float32, error) {
		return g.Inner.Embed(ctx, text)
	})
}

// GuardedChatter wraps an ai.Chatter with a circuit breaker.
type GuardedChatter struct {
	Inner   ai.Chatter
	Breaker *Breaker
}

// Chat implements ai.Chatter.
func (g *GuardedChatter) Chat(ctx context.Context, system, prompt string) (string, error) {
	return Guard(g.Breaker, func() (string, error) {
		return g.Inner.Chat(ctx, system, prompt)
	})
}
