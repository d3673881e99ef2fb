package ingest

import "github.com/KLMSolutions/leavebuddy/engine/record"

// ComposedRecord is a validated submission with its summary text built.
type ComposedRecord struct {
	Submission record.Submission
	Summary    string
}

// EmbeddedRecord is a composed record with its embedding vector.
// Degraded marks a fallback vector stored in place of a real embedding.
type EmbeddedRecord struct {
	ComposedRecord
	Embedding []float32
	Degraded  bool
}
