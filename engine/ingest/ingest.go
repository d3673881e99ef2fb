// Package ingest runs accepted submissions through validation, summary
// composition, embedding, and vector storage. The same pipeline serves
// the inline HTTP path and the NATS consumer.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/KLMSolutions/leavebuddy/engine/record"
	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
	"github.com/KLMSolutions/leavebuddy/pkg/fn"
	"github.com/KLMSolutions/leavebuddy/pkg/natsutil"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	// SubmissionSubject is the NATS subject for accepted form submissions.
	SubmissionSubject = "leavebuddy.submissions"
	// DLQSubject receives submissions that failed repeatedly.
	DLQSubject = "leavebuddy.submissions.dlq"
	// MaxRetries before sending to the DLQ.
	MaxRetries = 3
)

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Embedder    ai.Embedder
	VectorStore *semantic.VectorStore
	// EmbedDims is used for degraded fallback vectors; must match the
	// collection's dimensionality.
	EmbedDims int
	// Retry overrides the embed retry policy; nil uses fn.DefaultRetry.
	Retry  *fn.RetryOpts
	Logger *slog.Logger
}

// --- Pipeline stages ---

// Validate gates submissions through the record validation rules.
var Validate fn.Stage[record.Submission, record.Submission] = func(_ context.Context, s record.Submission) fn.Result[record.Submission] {
	if err := record.ValidateSubmission(s); err != nil {
		return fn.Err[record.Submission](err)
	}
	return fn.Ok(s)
}

// Compose renders the summary text that gets embedded and stored.
var Compose fn.Stage[record.Submission, ComposedRecord] = func(_ context.Context, s record.Submission) fn.Result[ComposedRecord] {
	return fn.Ok(ComposedRecord{Submission: s, Summary: s.Summary()})
}

// NewEmbed creates the embedding stage. Provider failures are retried;
// once retries are exhausted the record is stored with a deterministic
// fallback vector and flagged degraded rather than dropped. Vectors of
// the wrong dimensionality degrade too, since the collection would
// reject them at upsert.
func NewEmbed(embedder ai.Embedder, dims int, opts fn.RetryOpts, log *slog.Logger) fn.Stage[ComposedRecord, EmbeddedRecord] {
	if log == nil {
		log = slog.Default()
	}
	retried := fn.RetryStage(opts, func(ctx context.Context, c ComposedRecord) fn.Result[[]float32] {
		return fn.FromPair(embedder.Embed(ctx, c.Summary))
	})
	return func(ctx context.Context, c ComposedRecord) fn.Result[EmbeddedRecord] {
		vec, err := retried(ctx, c).Unwrap()
		if err == nil && (dims <= 0 || len(vec) == dims) {
			return fn.Ok(EmbeddedRecord{ComposedRecord: c, Embedding: vec})
		}
		if err != nil {
			log.Error("embedding failed, storing degraded vector", "err", err)
		} else {
			log.Error("embedding dimension mismatch, storing degraded vector", "got", len(vec), "want", dims)
		}
		return fn.Ok(EmbeddedRecord{ComposedRecord: c, Embedding: ai.FallbackVector(c.Summary, dims), Degraded: true})
	}
}

// NewStore creates the stage that upserts the embedded record into Qdrant.
func NewStore(vs *semantic.VectorStore) fn.Stage[EmbeddedRecord, string] {
	return func(ctx context.Context, e EmbeddedRecord) fn.Result[string] {
		recID := e.Submission.ID()
		rec := semantic.VectorRecord{
			ID:        PointID(recID),
			Embedding: e.Embedding,
			Payload:   payloadFor(e),
		}
		if err := vs.Upsert(ctx, []semantic.VectorRecord{rec}); err != nil {
			return fn.Err[string](fmt.Errorf("vector upsert: %w", err))
		}
		return fn.Ok(recID)
	}
}

// PointID derives the stable Qdrant point UUID for a record ID, so
// re-embedding a record replaces its point instead of duplicating it.
func PointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(recordID)).String()
}

func payloadFor(e EmbeddedRecord) map[string]any {
	s := e.Submission
	payload := map[string]any{
		"summary":  e.Summary,
		"kind":     string(s.Kind),
		"name":     s.Name(),
		"date":     s.Date(),
		"degraded": e.Degraded,
	}
	switch s.Kind {
	case record.KindAttendance:
		if a := s.Attendance; a != nil {
			payload["email"] = a.Email
			payload["time_in"] = a.TimeIn
			payload["time_out"] = a.TimeOut
		}
	case record.KindLeave:
		if l := s.Leave; l != nil {
			payload["email"] = l.Email
			payload["end_date"] = l.EndDate
			payload["leave_type"] = string(l.Type)
			if l.Approver != "" {
				payload["approver"] = l.Approver
			}
		}
	}
	return payload
}

// NewPipeline constructs the full submission pipeline with tracing.
func NewPipeline(deps Deps) fn.Stage[record.Submission, string] {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	retry := fn.DefaultRetry
	if deps.Retry != nil {
		retry = *deps.Retry
	}

	validated := fn.TracedStage("ingest.validate", Validate)
	composed := fn.Then(validated, fn.TracedStage("ingest.compose", Compose))
	embedded := fn.Then(composed, fn.TracedStage("ingest.embed", NewEmbed(deps.Embedder, deps.EmbedDims, retry, log)))
	return fn.Then(embedded, fn.TracedStage("ingest.store", NewStore(deps.VectorStore)))
}

// Run runs a single submission through the pipeline synchronously.
// Used by the API when no queue is configured.
func Run(ctx context.Context, deps Deps, s record.Submission) (string, error) {
	return NewPipeline(deps)(ctx, s).Unwrap()
}

// dlqMessage is published to the DLQ on repeated failure.
type dlqMessage struct {
	Submission record.Submission `json:"submission"`
	Error      string            `json:"error"`
	Retries    int               `json:"retries"`
}

// StartConsumer subscribes the pipeline to the submission subject with
// retry via republish and a DLQ after MaxRetries.
func StartConsumer(nc *nats.Conn, deps Deps) (*nats.Subscription, error) {
	pipeline := NewPipeline(deps)
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(SubmissionSubject, func(msg *nats.Msg) {
		var sub record.Submission
		if err := json.Unmarshal(msg.Data, &sub); err != nil {
			log.Error("ingest: unmarshal failed", "error", err)
			return
		}

		// Continue the trace the publisher started.
		ctx := natsutil.Extract(context.Background(), msg)

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get("X-Retry-Count"); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		result := pipeline(ctx, sub)
		if result.IsErr() {
			_, pipeErr := result.Unwrap()
			retries++
			log.Error("ingest: pipeline failed",
				"error", pipeErr,
				"kind", sub.Kind,
				"name", sub.Name(),
				"retry", retries,
			)

			if retries >= MaxRetries {
				dlq := dlqMessage{Submission: sub, Error: pipeErr.Error(), Retries: retries}
				data, _ := json.Marshal(dlq)
				if err := nc.Publish(DLQSubject, data); err != nil {
					log.Error("ingest: DLQ publish failed", "error", err)
				}
			} else {
				retryMsg := nats.NewMsg(SubmissionSubject)
				retryMsg.Data = msg.Data
				retryMsg.Header = nats.Header{}
				retryMsg.Header.Set("X-Retry-Count", fmt.Sprintf("%d", retries))
				if err := nc.PublishMsg(retryMsg); err != nil {
					log.Error("ingest: retry publish failed", "error", err)
				}
			}
			return
		}

		recID, _ := result.Unwrap()
		log.Info("ingest: stored", "record_id", recID, "kind", sub.Kind)
	})
}
