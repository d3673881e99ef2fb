// Package ai defines the embedding and chat provider interfaces and a
// fallback chain that routes between a remote and a local provider.
package ai

import (
	"context"
	"errors"
	"net"
	"strings"
)

// Embedder produces a vector representation of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chatter produces a completion for a prompt with prior context.
type Chatter interface {
	Chat(ctx context.Context, system, prompt string) (string, error)
}

// ErrNoProvider is returned when every provider in a chain is unset.
var ErrNoProvider = errors.New("ai: no provider available")

// IsConnectionError reports whether err looks like a network failure,
// which routes the fallback chain to the other provider.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
		"circuit breaker",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}

// IsQuotaError reports whether err indicates API quota exhaustion.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
