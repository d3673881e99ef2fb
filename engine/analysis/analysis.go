// Package analysis orchestrates the commentary pipeline. It embeds a
// free-text question, retrieves the nearest submission records, filters
// them by employee and date window, and asks a chat model for
// human-readable commentary over what remains.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
)

// Searcher abstracts the vector search.
type Searcher interface {
	SearchFiltered(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]semantic.SearchResult, error)
}

// Options configures the analysis pipeline behaviour.
type Options struct {
	TopK          int
	SystemPrompt  string
	SearchTimeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:          10,
		SystemPrompt:  defaultSystemPrompt,
		SearchTimeout: 5 * time.Second,
	}
}

const defaultSystemPrompt = `You are Leave Buddy, an assistant that analyzes employee
attendance and leave records. Answer the question using ONLY the provided
records. Mention concrete dates and counts. If the records do not contain
enough information, say so.`

// Service runs the analysis pipeline.
type Service struct {
	embed  ai.Embedder
	chat   ai.Chatter
	search Searcher
	opts   Options
	logger *slog.Logger
}

// New creates an analysis Service.
func New(embed ai.Embedder, chat ai.Chatter, search Searcher, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embed: embed, chat: chat, search: search, opts: opts, logger: logger}
}

// Answer is the structured analysis response.
type Answer struct {
	Commentary string                  `json:"commentary"`
	Records    []semantic.SearchResult `json:"records"`
	Degraded   bool                    `json:"degraded,omitempty"`
}

// Query runs the full pipeline for a question. Chat failures degrade to
// returning the matched records without commentary.
func (s *Service) Query(ctx context.Context, question string, filter Filter) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("analysis: question is empty")
	}

	embedding, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("analysis: embed question: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	// Kind is the only server-side narrowing; name matching is a
	// substring scan and the date predicate is a range, both applied
	// client-side over the topK hits.
	serverFilter := map[string]string{}
	if filter.Kind != "" {
		serverFilter["kind"] = filter.Kind
	}

	hits, err := s.search.SearchFiltered(searchCtx, embedding, s.opts.TopK, serverFilter)
	if err != nil {
		return nil, fmt.Errorf("analysis: search: %w", err)
	}

	matched := filter.Apply(hits)
	s.logger.Info("analysis search done", "hits", len(hits), "matched", len(matched))

	if len(matched) == 0 {
		return &Answer{Commentary: "No matching records found.", Records: nil}, nil
	}

	prompt := buildPrompt(question, filter, matched)
	commentary, err := s.chat.Chat(ctx, s.opts.SystemPrompt, prompt)
	if err != nil {
		// Retrieval succeeded; surface the records instead of failing.
		s.logger.Warn("analysis: chat failed, returning records only", "err", err)
		return &Answer{Records: matched, Degraded: true}, nil
	}

	return &Answer{Commentary: commentary, Records: matched}, nil
}

// buildPrompt formats the matched records as numbered context lines.
func buildPrompt(question string, filter Filter, records []semantic.SearchResult) string {
	var b strings.Builder
	b.WriteString("Records:\n")
	for i, r := range records {
		fmt.Fprintf(&b, "%d. (score %.3f) %s\n", i+1, r.Score, r.Summary)
	}
	if filter.From != "" || filter.To != "" {
		fmt.Fprintf(&b, "\nDate window: %s to %s\n", orAny(filter.From), orAny(filter.To))
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

func orAny(s string) string {
	if s == "" {
		return "(open)"
	}
	return s
}
