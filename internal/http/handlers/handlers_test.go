package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/notice-escalator/internal/domain"
	"github.com/tbourn/notice-escalator/internal/notify"
	"github.com/tbourn/notice-escalator/internal/services"
)

const caseID = "0f8fad5b-d9cb-469f-a165-70867728950e"

// ---------- stubs ----------

type stubCases struct {
	gotQuery services.CaseQuery
	gotPage  [2]int
	items    []domain.Case
	total    int64
	maxTS    *time.Time
	err      error
}

func (s *stubCases) Get(_ context.Context, id string) (*services.CaseView, error) {
	if id != caseID {
		return nil, services.ErrCaseNotFound
	}
	return &services.CaseView{Case: domain.Case{ID: id, State: domain.StateWarned}}, nil
}

func (s *stubCases) ListPage(_ context.Context, q services.CaseQuery, page, size int) ([]domain.Case, int64, error) {
	s.gotQuery, s.gotPage = q, [2]int{page, size}
	return s.items, s.total, s.err
}

func (s *stubCases) Stats(context.Context, services.CaseQuery) (int64, *time.Time, error) {
	return s.total, s.maxTS, nil
}

func (s *stubCases) StateCounts(context.Context) (map[domain.State]int64, error) {
	return map[domain.State]int64{domain.StatePending: 2, domain.StateEscalated: 1}, nil
}

type stubWorkflow struct {
	calls []string
	err   error
}

func (s *stubWorkflow) run(name string) (services.Summary, error) {
	s.calls = append(s.calls, name)
	return services.Summary{Selected: 3, Advanced: 2, Conflicts: 1}, s.err
}

func (s *stubWorkflow) SendPendingWarnings(context.Context) (services.Summary, error) {
	return s.run("warnings")
}

func (s *stubWorkflow) RunFollowUpScan(context.Context) (services.Summary, error) {
	return s.run("followups")
}

func (s *stubWorkflow) RunEscalationScan(context.Context) (services.Summary, error) {
	return s.run("escalations")
}

type stubReplies struct {
	sender, body string
	inboxErr     error
}

func (s *stubReplies) Correlate(_ context.Context, sender, body string) (services.Correlation, error) {
	s.sender, s.body = sender, body
	return services.Correlation{Outcome: services.OutcomeMatched, CaseID: caseID, Candidates: 1}, nil
}

func (s *stubReplies) ProcessInbox(context.Context) (services.InboxSummary, error) {
	if s.inboxErr != nil {
		return services.InboxSummary{}, s.inboxErr
	}
	return services.InboxSummary{Received: 2, Matched: 1, Ignored: 1}, nil
}

type stubIngest struct {
	recs     []services.Record
	rejected []services.RejectedRecord
	csv      string
}

func (s *stubIngest) IngestBatch(_ context.Context, b services.Batch) (services.IngestSummary, error) {
	s.recs, s.rejected = b.Records, b.Rejected
	n := len(b.Records) + len(b.Rejected)
	return services.IngestSummary{Received: n, Flagged: len(b.Records), Invalid: len(b.Rejected)}, nil
}

func (s *stubIngest) IngestCSV(_ context.Context, r io.Reader) (services.IngestSummary, error) {
	b, _ := io.ReadAll(r)
	s.csv = string(b)
	if !strings.HasPrefix(s.csv, "id,") {
		return services.IngestSummary{}, services.ErrIngestion
	}
	return services.IngestSummary{Received: 1, Flagged: 1}, nil
}

type stubRequests struct {
	err    error
	listed string
}

func (s *stubRequests) Generate(_ context.Context, in services.RequestInput) (*domain.LegalRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.LegalRequest{ID: "r1", CaseNumber: in.CaseNumber, DocumentRef: "legal_request_1.pdf"}, nil
}

func (s *stubRequests) List(_ context.Context, caseID string, _, _ int) ([]domain.LegalRequest, error) {
	s.listed = caseID
	return nil, nil
}

type stubDocs map[string][]byte

func (d stubDocs) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if strings.Contains(ref, "..") {
		return nil, notify.ErrInvalidDocumentName
	}
	b, ok := d[ref]
	if !ok {
		return nil, notify.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (d stubDocs) List(context.Context) ([]string, error) { return nil, nil }

// ---------- harness ----------

type harness struct {
	r        *gin.Engine
	cases    *stubCases
	workflow *stubWorkflow
	replies  *stubReplies
	ingest   *stubIngest
	requests *stubRequests
}

func newHarness() *harness {
	gin.SetMode(gin.TestMode)
	hs := &harness{
		cases:    &stubCases{},
		workflow: &stubWorkflow{},
		replies:  &stubReplies{},
		ingest:   &stubIngest{},
		requests: &stubRequests{},
	}
	h := New(Deps{
		Cases:     hs.cases,
		Workflow:  hs.workflow,
		Replies:   hs.replies,
		Ingest:    hs.ingest,
		Requests:  hs.requests,
		Documents: stubDocs{"crpc_1.pdf": []byte("%PDF-1.3")},
	})
	r := gin.New()
	r.GET("/cases", h.ListCases)
	r.GET("/cases/stats", h.CaseStats)
	r.GET("/cases/:id", h.GetCase)
	r.POST("/workflow/warnings", h.RunWarnings)
	r.POST("/workflow/followups", h.RunFollowUps)
	r.POST("/workflow/escalations", h.RunEscalations)
	r.POST("/workflow/replies", h.ProcessReplies)
	r.POST("/replies", h.CorrelateReply)
	r.POST("/ingest", h.IngestJSON)
	r.POST("/ingest/csv", h.IngestCSV)
	r.POST("/requests", h.CreateRequest)
	r.GET("/requests", h.ListRequests)
	r.GET("/documents", h.ListDocuments)
	r.GET("/documents/:name", h.GetDocument)
	hs.r = r
	return hs
}

func (hs *harness) do(method, path, contentType string, body io.Reader, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	hs.r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

// ---------- cases ----------

func TestListCases_FiltersAndPagination(t *testing.T) {
	hs := newHarness()
	hs.cases.items = []domain.Case{{ID: caseID}}
	hs.cases.total = 41

	w := hs.do(http.MethodGet, "/cases?state=Warned&responded=false&contact=a@b.io&page=2&page_size=20", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ListCasesResponse](t, w)
	if resp.Pagination.TotalPages != 3 || !resp.Pagination.HasNext || len(resp.Cases) != 1 {
		t.Fatalf("pagination: %+v", resp.Pagination)
	}
	q := hs.cases.gotQuery
	if q.State != domain.StateWarned || q.Responded == nil || *q.Responded || q.Contact != "a@b.io" {
		t.Fatalf("query not parsed: %+v", q)
	}
	if hs.cases.gotPage != [2]int{2, 20} {
		t.Fatalf("page args: %v", hs.cases.gotPage)
	}
}

func TestListCases_BadFilters(t *testing.T) {
	hs := newHarness()
	for _, u := range []string{"/cases?state=closed", "/cases?responded=maybe"} {
		if w := hs.do(http.MethodGet, u, "", nil); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d", u, w.Code)
		}
	}
}

func TestListCases_ETag304(t *testing.T) {
	hs := newHarness()
	ts := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	hs.cases.total, hs.cases.maxTS = 1, &ts

	first := hs.do(http.MethodGet, "/cases", "", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	if w := hs.do(http.MethodGet, "/cases", "", nil, "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/cases?page=2", "", nil, "If-None-Match", etag); w.Code != http.StatusOK {
		t.Fatalf("different page must not match the ETag, got %d", w.Code)
	}
}

func TestListCases_ServiceError(t *testing.T) {
	hs := newHarness()
	hs.cases.err = errors.New("db down")
	if w := hs.do(http.MethodGet, "/cases", "", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", w.Code)
	}
}

func TestGetCase(t *testing.T) {
	hs := newHarness()
	if w := hs.do(http.MethodGet, "/cases/"+caseID, "", nil); w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/cases/not-a-uuid", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: got %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/cases/11111111-1111-4111-8111-111111111111", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", w.Code)
	}
}

func TestCaseStats(t *testing.T) {
	resp := decode[StateCountsResponse](t, newHarness().do(http.MethodGet, "/cases/stats", "", nil))
	if resp.Total != 3 || resp.States[domain.StatePending] != 2 {
		t.Fatalf("stats: %+v", resp)
	}
}

// ---------- workflow ----------

func TestWorkflowTriggers(t *testing.T) {
	hs := newHarness()
	for _, p := range []string{"/workflow/warnings", "/workflow/followups", "/workflow/escalations"} {
		w := hs.do(http.MethodPost, p, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: %d", p, w.Code)
		}
		if sum := decode[services.Summary](t, w); sum.Advanced != 2 || sum.Conflicts != 1 {
			t.Fatalf("%s: summary %+v", p, sum)
		}
	}
	if got := strings.Join(hs.workflow.calls, ","); got != "warnings,followups,escalations" {
		t.Fatalf("calls: %s", got)
	}

	hs.workflow.err = errors.New("find failed")
	if w := hs.do(http.MethodPost, "/workflow/followups", "", nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("error scan: got %d", w.Code)
	}
}

func TestProcessReplies(t *testing.T) {
	hs := newHarness()
	if sum := decode[services.InboxSummary](t, hs.do(http.MethodPost, "/workflow/replies", "", nil)); sum.Matched != 1 {
		t.Fatalf("summary %+v", sum)
	}
	hs.replies.inboxErr = services.ErrNoMailbox
	if w := hs.do(http.MethodPost, "/workflow/replies", "", nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("no mailbox: got %d", w.Code)
	}
}

func TestCorrelateReply(t *testing.T) {
	hs := newHarness()
	w := hs.do(http.MethodPost, "/replies", "application/json", strings.NewReader(`{"from":"A@B.io","body":"removed"}`))
	if w.Code != http.StatusOK || decode[services.Correlation](t, w).Outcome != services.OutcomeMatched {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	if hs.replies.sender != "A@B.io" || hs.replies.body != "removed" {
		t.Fatalf("args not passed: %q %q", hs.replies.sender, hs.replies.body)
	}
	if w := hs.do(http.MethodPost, "/replies", "application/json", strings.NewReader(`{"body":"x"}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("missing from: got %d", w.Code)
	}
}

// ---------- ingest ----------

func TestIngestJSON(t *testing.T) {
	hs := newHarness()
	body := `[{"_id":"p1","username":"u","email":"u@x.io","text":"crypto"}]`
	w := hs.do(http.MethodPost, "/ingest", "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK || len(hs.ingest.recs) != 1 || hs.ingest.recs[0].SourceID != "p1" {
		t.Fatalf("got %d recs=%+v", w.Code, hs.ingest.recs)
	}
	if w := hs.do(http.MethodPost, "/ingest", "application/json", strings.NewReader(`{"not":"an array"}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed: got %d", w.Code)
	}
}

func TestIngestJSON_MixedBatchKeepsGoodRecords(t *testing.T) {
	hs := newHarness()
	body := `[
	  {"id":101,"email":"a@x.io","text":"crypto"},
	  {"id":"p2","email":"b@x.io","text":12345},
	  {"id":{"nested":true},"email":"c@x.io","text":"casino"},
	  {"id":"p4","email":"d@x.io","text":"bitcoin"}
	]`
	w := hs.do(http.MethodPost, "/ingest", "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}
	var ids []string
	for _, r := range hs.ingest.recs {
		ids = append(ids, r.SourceID)
	}
	if strings.Join(ids, ",") != "101,p2,p4" || hs.ingest.recs[1].Text != "12345" {
		t.Fatalf("records: %+v", hs.ingest.recs)
	}
	if len(hs.ingest.rejected) != 1 || hs.ingest.rejected[0].Position != 2 {
		t.Fatalf("rejected: %+v", hs.ingest.rejected)
	}
	sum := decode[services.IngestSummary](t, w)
	if sum.Received != 4 || sum.Invalid != 1 {
		t.Fatalf("summary: %+v", sum)
	}
}

func TestIngestCSV_RawAndMultipart(t *testing.T) {
	hs := newHarness()
	const csv = "id,username,email,text\np1,u,u@x.io,crypto\n"

	if w := hs.do(http.MethodPost, "/ingest/csv", "text/csv", strings.NewReader(csv)); w.Code != http.StatusOK {
		t.Fatalf("raw: %d %s", w.Code, w.Body.String())
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "export.csv")
	_, _ = fw.Write([]byte(csv))
	_ = mw.Close()
	if w := hs.do(http.MethodPost, "/ingest/csv", mw.FormDataContentType(), &buf); w.Code != http.StatusOK || hs.ingest.csv != csv {
		t.Fatalf("multipart: %d csv=%q", w.Code, hs.ingest.csv)
	}

	var empty bytes.Buffer
	mw2 := multipart.NewWriter(&empty)
	_ = mw2.WriteField("other", "x")
	_ = mw2.Close()
	if w := hs.do(http.MethodPost, "/ingest/csv", mw2.FormDataContentType(), &empty); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: got %d", w.Code)
	}

	if w := hs.do(http.MethodPost, "/ingest/csv", "text/csv", strings.NewReader("garbage")); w.Code != http.StatusBadRequest {
		t.Fatalf("bad csv: got %d", w.Code)
	}
}

// ---------- requests ----------

func TestCreateRequest(t *testing.T) {
	hs := newHarness()
	w := hs.do(http.MethodPost, "/requests", "application/json", strings.NewReader(`{"case_number":"CASE-1"}`))
	if w.Code != http.StatusCreated || decode[domain.LegalRequest](t, w).CaseNumber != "CASE-1" {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	if w := hs.do(http.MethodPost, "/requests", "application/json", strings.NewReader(`{`)); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: got %d", w.Code)
	}

	hs.requests.err = services.ErrInvalidRequest
	if w := hs.do(http.MethodPost, "/requests", "application/json", strings.NewReader(`{}`)); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid: got %d", w.Code)
	}

	hs.requests.err = notify.ErrDeliveryFailed
	if w := hs.do(http.MethodPost, "/requests", "application/json", strings.NewReader(`{}`)); w.Code != http.StatusBadGateway {
		t.Fatalf("delivery: got %d", w.Code)
	}
}

func TestListRequests(t *testing.T) {
	hs := newHarness()
	w := hs.do(http.MethodGet, "/requests?case_id="+caseID, "", nil)
	if w.Code != http.StatusOK || hs.requests.listed != caseID {
		t.Fatalf("got %d listed=%q", w.Code, hs.requests.listed)
	}
	if !strings.Contains(w.Body.String(), `"requests":[]`) {
		t.Fatalf("empty list should serialize as []: %s", w.Body.String())
	}
}

// ---------- documents ----------

func TestDocuments(t *testing.T) {
	hs := newHarness()

	w := hs.do(http.MethodGet, "/documents/crpc_1.pdf", "", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" || w.Body.String() != "%PDF-1.3" {
		t.Fatalf("download: %d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), `"crpc_1.pdf"`) {
		t.Fatalf("disposition: %q", w.Header().Get("Content-Disposition"))
	}
	if w := hs.do(http.MethodGet, "/documents/missing.pdf", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/documents/bad..name", "", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("traversal: got %d", w.Code)
	}
	if w := hs.do(http.MethodGet, "/documents", "", nil); !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Fatalf("list: %s", w.Body.String())
	}
}
