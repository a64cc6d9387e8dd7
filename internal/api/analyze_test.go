package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/api"
	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
	"go.uber.org/zap"
)

// ── Stubs ────────────────────────────────────────────────────────────────

type stubScanner struct {
	raw   any
	err   error
	calls int
}

func (s *stubScanner) Scan(_ context.Context, _ []byte) (any, error) {
	s.calls++
	return s.raw, s.err
}

type failingEngine struct{ msg string }

func (e failingEngine) Analyze(_ context.Context, _ []byte) (any, error) {
	return nil, errors.New(e.msg)
}

// ── Helpers ──────────────────────────────────────────────────────────────

func setupRouter(t *testing.T, s interface {
	Scan(context.Context, []byte) (any, error)
}, cfg api.RouterConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return api.NewRouter(ctx, cfg,
		api.NewAnalyzeHandler(s, zap.NewNop()),
		api.NewInfoHandler("test", nil),
		zap.NewNop(),
	)
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/quicksand-analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return resp
}

// ── Tests ────────────────────────────────────────────────────────────────

func TestAnalyze_200_legacyShape(t *testing.T) {
	s := &stubScanner{raw: map[string]any{
		"flow1": []any{
			map[string]any{"rule": "evil"},
			map[string]any{"rule": "evil"},
			map[string]any{"tag": "susp"},
		},
	}}
	router := setupRouter(t, s, api.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "invoice.doc", []byte("D0CF11E0")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp api.AnalyzeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != api.StatusCompleted {
		t.Errorf("expected status %q, got %q", api.StatusCompleted, resp.Status)
	}
	if resp.Filename != "invoice.doc" {
		t.Errorf("expected filename invoice.doc, got %q", resp.Filename)
	}
	if resp.ContentType != "application/octet-stream" {
		t.Errorf("expected octet-stream content type, got %q", resp.ContentType)
	}
	if resp.FileSize != 8 {
		t.Errorf("expected file_size 8, got %d", resp.FileSize)
	}
	got := resp.AnalysisResults
	if got.Score != 3 || got.Risk != "medium" {
		t.Errorf("expected score 3 / medium, got %d / %s", got.Score, got.Risk)
	}
	if len(got.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", got.Tags)
	}
	if _, ok := got.Results["flow1"]; !ok {
		t.Errorf("expected results to keep flow1, got %v", got.Results)
	}
}

func TestAnalyze_200_emptyEngineResultShape(t *testing.T) {
	router := setupRouter(t, &stubScanner{raw: map[string]any{}}, api.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "clean.pdf", []byte("%PDF-1.7")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	ar := resp["analysis_results"].(map[string]any)
	if ar["risk"] != "none" || ar["score"] != float64(0) {
		t.Errorf("expected none/0, got %v/%v", ar["risk"], ar["score"])
	}
	if tags, ok := ar["tags"].([]any); !ok || len(tags) != 0 {
		t.Errorf("expected empty tag array, got %#v", ar["tags"])
	}
	if results, ok := ar["results"].(map[string]any); !ok || len(results) != 0 {
		t.Errorf("expected empty results object, got %#v", ar["results"])
	}
}

func TestAnalyze_400_emptyFile(t *testing.T) {
	s := &stubScanner{raw: map[string]any{}}
	router := setupRouter(t, s, api.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "empty.doc", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if s.calls != 0 {
		t.Errorf("expected scanner not to be invoked, got %d calls", s.calls)
	}
	if resp := decodeBody(t, w); resp["detail"] == "" || resp["detail"] == nil {
		t.Errorf("expected detail message, got %v", resp)
	}
}

func TestAnalyze_400_missingField(t *testing.T) {
	s := &stubScanner{}
	router := setupRouter(t, s, api.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "attachment", "x.doc", []byte("x")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if s.calls != 0 {
		t.Errorf("expected scanner not to be invoked, got %d calls", s.calls)
	}
}

func TestAnalyze_500_engineFailure(t *testing.T) {
	scanner := engine.NewScanner(failingEngine{msg: "unsupported OLE stream"}, engine.ScannerConfig{}, zap.NewNop())
	router := setupRouter(t, scanner, api.RouterConfig{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "bad.doc", []byte("garbage")))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	resp := decodeBody(t, w)
	detail, _ := resp["detail"].(string)
	if !strings.Contains(detail, "unsupported OLE stream") {
		t.Errorf("expected engine message in detail, got %q", detail)
	}
	if _, ok := resp["analysis_results"]; ok {
		t.Error("expected no partial results on failure")
	}
}

func TestAnalyze_413_tooLarge(t *testing.T) {
	s := &stubScanner{raw: map[string]any{}}
	router := setupRouter(t, s, api.RouterConfig{MaxUploadBytes: 64})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "big.doc", bytes.Repeat([]byte("A"), 1024)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if s.calls != 0 {
		t.Errorf("expected scanner not to be invoked, got %d calls", s.calls)
	}
}

func TestAnalyze_artifactAtLimitAccepted(t *testing.T) {
	s := &stubScanner{raw: map[string]any{}}
	router := setupRouter(t, s, api.RouterConfig{MaxUploadBytes: 64})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "exact.doc", bytes.Repeat([]byte("A"), 64)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for artifact at the limit, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, api.FileField, "over.doc", bytes.Repeat([]byte("A"), 65)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for artifact one byte over, got %d: %s", w.Code, w.Body.String())
	}
	if s.calls != 1 {
		t.Errorf("expected exactly one scan, got %d", s.calls)
	}
}

func TestAnalyze_413_chunkedBody(t *testing.T) {
	s := &stubScanner{raw: map[string]any{}}
	router := setupRouter(t, s, api.RouterConfig{MaxUploadBytes: 64})

	req := uploadRequest(t, api.FileField, "big.doc", bytes.Repeat([]byte("A"), 2*api.MultipartOverhead))
	req.ContentLength = -1
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
	}
	if s.calls != 0 {
		t.Errorf("expected scanner not to be invoked, got %d calls", s.calls)
	}
}
