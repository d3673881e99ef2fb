package ai

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
)

// FallbackEmbedder tries the primary (remote) embedder first and falls
// back to the secondary (local) one on connection or quota errors.
type FallbackEmbedder struct {
	Primary   Embedder
	Secondary Embedder
	Logger    *slog.Logger
}

func (f *FallbackEmbedder) log() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Embed implements Embedder. Like Chat, only connection and quota
// errors route to the secondary; other errors are returned as-is.
func (f *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.Primary != nil {
		vec, err := f.Primary.Embed(ctx, text)
		if err == nil {
			return vec, nil
		}
		if f.Secondary == nil || (!IsConnectionError(err) && !IsQuotaError(err)) {
			return nil, fmt.Errorf("ai: primary embed: %w", err)
		}
		f.log().Warn("primary embedder failed, trying secondary", "err", err)
	}
	if f.Secondary != nil {
		vec, err := f.Secondary.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("ai: secondary embed: %w", err)
		}
		return vec, nil
	}
	return nil, ErrNoProvider
}

// FallbackChatter routes chat calls: primary first, secondary on
// connection or quota errors. Other primary errors are returned as-is
// since retrying a different model rarely fixes a bad request.
type FallbackChatter struct {
	Primary   Chatter
	Secondary Chatter
	Logger    *slog.Logger
}

func (f *FallbackChatter) log() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

// Chat implements Chatter.
func (f *FallbackChatter) Chat(ctx context.Context, system, prompt string) (string, error) {
	if f.Primary != nil {
		reply, err := f.Primary.Chat(ctx, system, prompt)
		if err == nil {
			return reply, nil
		}
		if f.Secondary == nil || (!IsConnectionError(err) && !IsQuotaError(err)) {
			return "", fmt.Errorf("ai: primary chat: %w", err)
		}
		f.log().Warn("primary chatter failed, trying secondary", "err", err)
	}
	if f.Secondary != nil {
		reply, err := f.Secondary.Chat(ctx, system, prompt)
		if err != nil {
			return "", fmt.Errorf("ai: secondary chat: %w", err)
		}
		return reply, nil
	}
	return "", ErrNoProvider
}

// FallbackVector produces a deterministic pseudo-random vector for a
// text, stored when every embedding provider has failed so a submission
// is never lost. Seeding by the text keeps repeated attempts for the
// same record identical; points carrying these vectors are flagged
// degraded for later repair by cmd/backfill.
func FallbackVector(text string, dims int) []float32 {
	if dims <= 0 {
		dims = 1536
	}
	var seed int64
	for _, r := range text {
		seed = seed*31 + int64(r)
	}
	rng := rand.New(rand.NewSource(seed))
	vec := make([]float32, dims)
	for i := range vec {
		vec[i] = rng.Float32()*2 - 1
	}
	return vec
}
