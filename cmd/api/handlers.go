package main

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/KLMSolutions/leavebuddy/engine/analysis"
	"github.com/KLMSolutions/leavebuddy/engine/record"
	"github.com/KLMSolutions/leavebuddy/engine/roster"
	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/ai"
	"github.com/KLMSolutions/leavebuddy/pkg/metrics"
)

//go:embed form.html
var formFS embed.FS

var formTmpl = template.Must(template.ParseFS(formFS, "form.html"))

// employeeDirectory is the roster surface the handlers need.
type employeeDirectory interface {
	All(ctx context.Context) ([]roster.Employee, error)
	LookupEmail(ctx context.Context, name string) (string, error)
	FindByName(ctx context.Context, name string) (roster.Employee, error)
	Approvers(ctx context.Context, employeeEmail string) ([]roster.Employee, error)
}

type apiMetrics struct {
	submissions func(kind string) *metrics.Counter
	rejected    *metrics.Counter
	analyses    *metrics.Counter
	analyzeDur  *metrics.Histogram
}

func newAPIMetrics(met *metrics.Registry) *apiMetrics {
	return &apiMetrics{
		submissions: func(kind string) *metrics.Counter {
			return met.Counter(metrics.WithLabels("leavebuddy_submissions_total", "kind", kind), "Accepted submissions")
		},
		rejected:   met.Counter("leavebuddy_submissions_rejected_total", "Submissions failing validation"),
		analyses:   met.Counter("leavebuddy_analyses_total", "Analysis queries served"),
		analyzeDur: met.Histogram("leavebuddy_analyze_duration_seconds", "Analysis query latency", nil),
	}
}

type server struct {
	publish   func(context.Context, record.Submission) error
	embed     ai.Embedder
	search    analysis.Searcher
	analysis  *analysis.Service
	directory employeeDirectory
	logger    *slog.Logger
	met       *apiMetrics
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleForm)
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/employees", s.handleEmployees)
	mux.HandleFunc("GET /api/employees/{name}/approvers", s.handleApprovers)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("POST /api/attendance", s.handleAttendance)
	mux.HandleFunc("POST /api/leave", s.handleLeave)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	return mux
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleForm(w http.ResponseWriter, r *http.Request) {
	employees, err := s.directory.All(r.Context())
	if err != nil {
		s.logger.Error("roster list failed", "err", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	formTmpl.Execute(w, map[string]any{"Employees": employees})
}

func (s *server) handleEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := s.directory.All(r.Context())
	if err != nil {
		s.logger.Error("roster list failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

func (s *server) handleApprovers(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	emp, err := s.directory.FindByName(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusNotFound, "employee not found")
		return
	}
	approvers, err := s.directory.Approvers(r.Context(), emp.Email)
	if err != nil {
		s.logger.Error("approver lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if approvers == nil {
		approvers = []roster.Employee{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"employee": emp, "approvers": approvers})
}

// SubmitResponse is the JSON response for accepted submissions.
type SubmitResponse struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
}

func (s *server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	var att record.Attendance
	if err := json.NewDecoder(r.Body).Decode(&att); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub := record.Submission{
		Kind:        record.KindAttendance,
		Attendance:  &att,
		SubmittedAt: time.Now().UTC(),
	}
	s.accept(w, r, sub, func() { att.Email = s.resolveEmail(r.Context(), att.Name, att.Email) })
}

func (s *server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var lv record.Leave
	if err := json.NewDecoder(r.Body).Decode(&lv); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if lv.Approver != "" {
		if _, err := s.directory.FindByName(r.Context(), lv.Approver); err != nil {
			writeError(w, http.StatusBadRequest, "approver not found in roster")
			return
		}
	}

	sub := record.Submission{
		Kind:        record.KindLeave,
		Leave:       &lv,
		SubmittedAt: time.Now().UTC(),
	}
	s.accept(w, r, sub, func() { lv.Email = s.resolveEmail(r.Context(), lv.Name, lv.Email) })
}

// accept resolves missing fields, validates, and hands the submission to
// the ingestion sink.
func (s *server) accept(w http.ResponseWriter, r *http.Request, sub record.Submission, resolve func()) {
	resolve()

	if err := record.ValidateSubmission(sub); err != nil {
		s.met.rejected.Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.publish(r.Context(), sub); err != nil {
		s.logger.Error("submission sink failed", "err", err, "kind", sub.Kind)
		writeError(w, http.StatusInternalServerError, "failed to store submission")
		return
	}

	s.met.submissions(string(sub.Kind)).Inc()
	writeJSON(w, http.StatusAccepted, SubmitResponse{RecordID: sub.ID(), Status: "accepted"})
}

// resolveEmail fills a missing email from the roster. Unknown names pass
// through empty and fail validation with a clear error.
func (s *server) resolveEmail(ctx context.Context, name, email string) string {
	if email != "" {
		return email
	}
	resolved, err := s.directory.LookupEmail(ctx, strings.TrimSpace(name))
	if err != nil {
		return email
	}
	return resolved
}

// AnalyzeRequest is the JSON body for POST /api/analyze.
type AnalyzeRequest struct {
	Question string          `json:"question"`
	Filter   analysis.Filter `json:"filter"`
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	start := time.Now()
	ans, err := s.analysis.Query(r.Context(), req.Question, req.Filter)
	s.met.analyzeDur.Since(start)
	if err != nil {
		s.logger.Error("analysis query failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.met.analyses.Inc()
	writeJSON(w, http.StatusOK, ans)
}

// recordsQueryText is embedded for GET /api/records when no free-text
// query is given; the real narrowing happens in the filter.
const recordsQueryText = "employee attendance and leave records"

func (s *server) handleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := analysis.Filter{
		Name: q.Get("name"),
		Kind: q.Get("kind"),
		From: q.Get("from"),
		To:   q.Get("to"),
	}
	text := q.Get("q")
	if text == "" {
		text = recordsQueryText
	}

	embedding, err := s.embed.Embed(r.Context(), text)
	if err != nil {
		s.logger.Error("records embed failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	serverFilter := map[string]string{}
	if filter.Kind != "" {
		serverFilter["kind"] = filter.Kind
	}
	hits, err := s.search.SearchFiltered(r.Context(), embedding, 50, serverFilter)
	if err != nil {
		s.logger.Error("records search failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	matched := filter.Apply(hits)
	if matched == nil {
		matched = []semantic.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": matched})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
