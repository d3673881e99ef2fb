package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/KLMSolutions/leavebuddy/engine/analysis"
	"github.com/KLMSolutions/leavebuddy/engine/record"
	"github.com/KLMSolutions/leavebuddy/engine/roster"
	"github.com/KLMSolutions/leavebuddy/engine/semantic"
	"github.com/KLMSolutions/leavebuddy/pkg/metrics"
)

type fakeDirectory struct {
	employees []roster.Employee
}

func (f *fakeDirectory) All(_ context.Context) ([]roster.Employee, error) {
	return f.employees, nil
}

func (f *fakeDirectory) FindByName(_ context.Context, name string) (roster.Employee, error) {
	for _, e := range f.employees {
		if e.Name == name {
			return e, nil
		}
	}
	return roster.Employee{}, fmt.Errorf("employee %q not found", name)
}

func (f *fakeDirectory) LookupEmail(ctx context.Context, name string) (string, error) {
	e, err := f.FindByName(ctx, name)
	return e.Email, err
}

func (f *fakeDirectory) Approvers(_ context.Context, employeeEmail string) ([]roster.Employee, error) {
	if employeeEmail == f.employees[0].Email {
		return nil, nil
	}
	return []roster.Employee{f.employees[0]}, nil
}

type fakeEmbedder struct{ err error }

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2}, f.err
}

type fakeChatter struct{ reply string }

func (f *fakeChatter) Chat(_ context.Context, _, _ string) (string, error) {
	return f.reply, nil
}

type fakeSearcher struct {
	hits   []semantic.SearchResult
	gotFlt map[string]string
}

func (f *fakeSearcher) SearchFiltered(_ context.Context, _ []float32, _ int, filters map[string]string) ([]semantic.SearchResult, error) {
	f.gotFlt = filters
	return f.hits, nil
}

func newTestServer(search *fakeSearcher) (*server, *[]record.Submission) {
	var published []record.Submission
	dir := &fakeDirectory{employees: roster.DefaultRoster()}
	emb := &fakeEmbedder{}
	chat := &fakeChatter{reply: "summary of records"}
	s := &server{
		publish: func(_ context.Context, sub record.Submission) error {
			published = append(published, sub)
			return nil
		},
		embed:     emb,
		search:    search,
		analysis:  analysis.New(emb, chat, search, analysis.DefaultOptions(), slog.Default()),
		directory: dir,
		logger:    slog.Default(),
		met:       newAPIMetrics(metrics.New()),
	}
	return s, &published
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
}

func TestAttendance_Accepted(t *testing.T) {
	s, published := newTestServer(&fakeSearcher{})
	rec := postJSON(t, s.routes(), "/api/attendance", map[string]string{
		"name": "Dhanush", "date": "2025-03-14", "time_in": "09:00", "time_out": "17:30",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	if len(*published) != 1 {
		t.Fatalf("expected 1 published submission, got %d", len(*published))
	}
	sub := (*published)[0]
	if sub.Attendance.Email != "dhanush@klmsolutions.in" {
		t.Errorf("email not resolved from roster: %q", sub.Attendance.Email)
	}

	var resp SubmitResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.RecordID == "" || resp.Status != "accepted" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestAttendance_ValidationRejected(t *testing.T) {
	s, published := newTestServer(&fakeSearcher{})
	rec := postJSON(t, s.routes(), "/api/attendance", map[string]string{
		"name": "Dhanush", "date": "14-03-2025", "time_in": "09:00", "time_out": "17:30",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(*published) != 0 {
		t.Error("invalid submission should not be published")
	}
}

func TestLeave_UnknownApprover(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	rec := postJSON(t, s.routes(), "/api/leave", map[string]string{
		"name": "Prateeka", "start_date": "2025-04-01", "end_date": "2025-04-02",
		"type": "casual", "reason": "travel", "approver": "Nobody",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown approver, got %d", rec.Code)
	}
}

func TestLeave_Accepted(t *testing.T) {
	s, published := newTestServer(&fakeSearcher{})
	rec := postJSON(t, s.routes(), "/api/leave", map[string]string{
		"name": "Prateeka", "start_date": "2025-04-01", "end_date": "2025-04-02",
		"type": "sick", "reason": "fever", "approver": "Nandhakumar",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body)
	}
	sub := (*published)[0]
	if sub.Kind != record.KindLeave || sub.Leave.Email != "prateeka@klmsolutions.in" {
		t.Errorf("unexpected submission: %+v", sub)
	}
}

func TestRecords_Filtered(t *testing.T) {
	search := &fakeSearcher{hits: []semantic.SearchResult{
		{ID: "1", Name: "Dhanush", Date: "2025-03-10", Summary: "a"},
		{ID: "2", Name: "Subashree", Date: "2025-03-11", Summary: "b"},
	}}
	s, _ := newTestServer(search)

	req := httptest.NewRequest(http.MethodGet, "/api/records?name=subashree&kind=attendance", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if search.gotFlt["kind"] != "attendance" {
		t.Errorf("kind filter not pushed server-side: %v", search.gotFlt)
	}
	var resp struct {
		Records []semantic.SearchResult `json:"records"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Records) != 1 || resp.Records[0].Name != "Subashree" {
		t.Errorf("unexpected records: %+v", resp.Records)
	}
}

func TestAnalyze_RequiresQuestion(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	rec := postJSON(t, s.routes(), "/api/analyze", map[string]string{"question": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAnalyze_HappyPath(t *testing.T) {
	search := &fakeSearcher{hits: []semantic.SearchResult{
		{ID: "1", Name: "Dhanush", Date: "2025-03-10", Summary: "attendance: name: Dhanush", Score: 0.9},
	}}
	s, _ := newTestServer(search)

	rec := postJSON(t, s.routes(), "/api/analyze", AnalyzeRequest{Question: "when was Dhanush in?"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var ans analysis.Answer
	json.Unmarshal(rec.Body.Bytes(), &ans)
	if ans.Commentary != "summary of records" || len(ans.Records) != 1 {
		t.Errorf("unexpected answer: %+v", ans)
	}
}

func TestApprovers(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/employees/Dhanush/approvers", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Employee  roster.Employee   `json:"employee"`
		Approvers []roster.Employee `json:"approvers"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Employee.Name != "Dhanush" {
		t.Errorf("unexpected employee: %+v", resp.Employee)
	}
	if len(resp.Approvers) != 1 || resp.Approvers[0].Name != "Nandhakumar" {
		t.Errorf("unexpected approvers: %+v", resp.Approvers)
	}
}

func TestApprovers_UnknownEmployee(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/employees/Nobody/approvers", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEmployees(t *testing.T) {
	s, _ := newTestServer(&fakeSearcher{})
	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)

	var resp struct {
		Employees []roster.Employee `json:"employees"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Employees) != 6 {
		t.Errorf("expected 6 employees, got %d", len(resp.Employees))
	}
}
