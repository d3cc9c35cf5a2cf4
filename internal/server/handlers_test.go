package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/vanshika/docstore/internal/files"
	"github.com/vanshika/docstore/internal/service"
	"github.com/vanshika/docstore/internal/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandlers wires handlers against the in-memory record store and
// a real file store rooted in a temp directory.
func newTestHandlers(t *testing.T) *APIHandlers {
	t.Helper()

	logger := discardLogger()
	registry := files.NewRegistry(t.TempDir(), logger)
	fileStore := files.NewStore(registry, 0, logger)

	return NewAPIHandlers(logger,
		service.NewRecordService(storage.NewMemoryStore()),
		service.NewFileService(registry, fileStore))
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(discardLogger(), RouterDependencies{API: newTestHandlers(t)})
}

func TestHandleIndex(t *testing.T) {
	handlers := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handlers.handleIndex(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != "success" {
		t.Fatalf("expected status success, got %q", payload.Status)
	}
	if payload.Message != "DocStore API is running" {
		t.Fatalf("unexpected message: %q", payload.Message)
	}
}

func TestGetRootPathNotSet(t *testing.T) {
	logger := discardLogger()
	registry := files.NewRegistry("", logger)
	fileStore := files.NewStore(registry, 0, logger)
	handlers := NewAPIHandlers(logger,
		service.NewRecordService(storage.NewMemoryStore()),
		service.NewFileService(registry, fileStore))

	req := httptest.NewRequest(http.MethodGet, "/config/path", nil)
	rec := httptest.NewRecorder()

	handlers.handleConfigPath(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Status != "not_set" {
		t.Fatalf("expected status not_set, got %q", payload.Status)
	}
	if payload.Message != "Root path has not been set" {
		t.Fatalf("unexpected message: %q", payload.Message)
	}
}

func TestSetRootPathInvalid(t *testing.T) {
	handlers := newTestHandlers(t)

	body := strings.NewReader(`{"path": "/definitely/not/a/real/dir"}`)
	req := httptest.NewRequest(http.MethodPost, "/config/path", body)
	rec := httptest.NewRecorder()

	handlers.handleConfigPath(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var payload apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Message != "Invalid path: directory does not exist" {
		t.Fatalf("unexpected message: %q", payload.Message)
	}
}

func TestSetRootPathRoundTrip(t *testing.T) {
	handlers := newTestHandlers(t)
	newRoot := t.TempDir()

	body, err := json.Marshal(setRootPathRequest{Path: newRoot})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/config/path", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handlers.handleConfigPath(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !strings.HasPrefix(payload.Message, "Root path set to: ") {
		t.Fatalf("unexpected message: %q", payload.Message)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/config/path", nil)
	getRec := httptest.NewRecorder()
	handlers.handleConfigPath(getRec, getReq)

	var current apiResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &current); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if current.Status != "success" {
		t.Fatalf("expected status success, got %q", current.Status)
	}
	if got := "Root path set to: " + current.Message; got != payload.Message {
		t.Fatalf("stored path %q does not match set response %q", current.Message, payload.Message)
	}
}

func multipartBody(t *testing.T, fileContents map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for name, content := range fileContents {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return buf, writer.FormDataContentType()
}

func TestUploadAndListAndFetch(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"report.pdf": "annual report"})
	req := httptest.NewRequest(http.MethodPost, "/files/upload/42", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded fileListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(uploaded.Files) != 1 || uploaded.Files[0] != "report.pdf" {
		t.Fatalf("unexpected saved files: %v", uploaded.Files)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/clients/42/files", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)

	if listRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", listRec.Code)
	}
	var names []string
	if err := json.Unmarshal(listRec.Body.Bytes(), &names); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(names) != 1 || names[0] != "report.pdf" {
		t.Fatalf("unexpected listed files: %v", names)
	}

	fetchReq := httptest.NewRequest(http.MethodGet, "/files/42/report.pdf", nil)
	fetchRec := httptest.NewRecorder()
	router.ServeHTTP(fetchRec, fetchReq)

	if fetchRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", fetchRec.Code)
	}
	if got := fetchRec.Body.String(); got != "annual report" {
		t.Fatalf("unexpected file content: %q", got)
	}
	if ct := fetchRec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf content type, got %s", ct)
	}
}

func TestUploadMultipleFiles(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{
		"w2.pdf":    "wages",
		"1099.pdf":  "misc",
		"notes.txt": "call back in april",
	})
	req := httptest.NewRequest(http.MethodPost, "/files/upload/42", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var uploaded fileListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	sort.Strings(uploaded.Files)
	want := []string{"1099.pdf", "notes.txt", "w2.pdf"}
	if len(uploaded.Files) != len(want) {
		t.Fatalf("expected %d saved files, got %v", len(want), uploaded.Files)
	}
	for i, name := range want {
		if uploaded.Files[i] != name {
			t.Fatalf("expected saved files %v, got %v", want, uploaded.Files)
		}
	}

	// Each part was read to the end and written out.
	for name, content := range map[string]string{"w2.pdf": "wages", "1099.pdf": "misc"} {
		fetchReq := httptest.NewRequest(http.MethodGet, "/files/42/"+name, nil)
		fetchRec := httptest.NewRecorder()
		router.ServeHTTP(fetchRec, fetchReq)
		if fetchRec.Code != http.StatusOK {
			t.Fatalf("expected status 200 for %s, got %d", name, fetchRec.Code)
		}
		if got := fetchRec.Body.String(); got != content {
			t.Fatalf("unexpected content for %s: %q", name, got)
		}
	}
}

func TestFetchFileUnderUploadDirectory(t *testing.T) {
	logger := discardLogger()
	root := t.TempDir()
	registry := files.NewRegistry(root, logger)
	fileStore := files.NewStore(registry, 0, logger)
	handlers := NewAPIHandlers(logger,
		service.NewRecordService(storage.NewMemoryStore()),
		service.NewFileService(registry, fileStore))
	router := NewRouter(logger, RouterDependencies{API: handlers})

	dir := filepath.Join(root, "upload")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("kept"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	// This path matches the longer /files/upload/ mux pattern but must
	// still be served as a stored file.
	req := httptest.NewRequest(http.MethodGet, "/files/upload/notes.txt", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "kept" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestUploadEmptyForm(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/files/upload/7", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"files":[]}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestUploadInvalidClientID(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, map[string]string{"a.txt": "x"})
	req := httptest.NewRequest(http.MethodPost, "/files/upload/nope", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestFileTraversalRejected(t *testing.T) {
	handlers := newTestHandlers(t)

	req := httptest.NewRequest(http.MethodGet, "/files/x", nil)
	req.URL.Path = "/files/../../etc/passwd"
	rec := httptest.NewRecorder()

	handlers.handleFile(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestFileRootNotConfigured(t *testing.T) {
	logger := discardLogger()
	registry := files.NewRegistry("", logger)
	fileStore := files.NewStore(registry, 0, logger)
	handlers := NewAPIHandlers(logger,
		service.NewRecordService(storage.NewMemoryStore()),
		service.NewFileService(registry, fileStore))

	req := httptest.NewRequest(http.MethodGet, "/files/1/report.pdf", nil)
	rec := httptest.NewRecorder()

	handlers.handleFile(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}

func TestCreateAndGetClient(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{
		"first_name": "Jane",
		"last_name": "Doe",
		"social_security_number": "123-45-6789",
		"address": "42 Main St",
		"phone_number": "555-0100",
		"email": "jane@example.com"
	}`)
	req := httptest.NewRequest(http.MethodPost, "/clients", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created statusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Status != "success" || created.ID != 1 {
		t.Fatalf("unexpected create response: %+v", created)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/clients/1", nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)

	if getRec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", getRec.Code)
	}
	var client clientResponse
	if err := json.Unmarshal(getRec.Body.Bytes(), &client); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if client.ClientID != 1 || client.FirstName != "Jane" || client.Email != "jane@example.com" {
		t.Fatalf("unexpected client: %+v", client)
	}
	if client.CreatedAt == "" {
		t.Fatal("expected created_at to be populated")
	}
}

func TestCreateClientValidation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/clients", strings.NewReader(`{"email": "x@example.com"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestGetClientNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/clients/99", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestListClientsEmpty(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/clients", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected empty array, got %s", got)
	}
}

func TestCreateReturnUnknownClient(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"client_id": 12, "tax_year": 2024, "filing_status": "single"}`)
	req := httptest.NewRequest(http.MethodPost, "/returns", body)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload apiResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Message != "client does not exist" {
		t.Fatalf("unexpected message: %q", payload.Message)
	}
}

func TestCreateReturnValidation(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/returns", strings.NewReader(`{"client_id": 1}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestReturnsOrderedByYearDescending(t *testing.T) {
	router := newTestRouter(t)

	createReq := httptest.NewRequest(http.MethodPost, "/clients",
		strings.NewReader(`{"first_name": "Sam", "last_name": "Lee"}`))
	createRec := httptest.NewRecorder()
	router.ServeHTTP(createRec, createReq)
	if createRec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", createRec.Code)
	}

	for _, year := range []int{2021, 2023, 2022} {
		body, err := json.Marshal(taxReturnRequest{
			ClientID:     1,
			TaxYear:      year,
			FilingStatus: "single",
			IncomeSources: map[string]float64{
				"w2": 52000,
			},
		})
		if err != nil {
			t.Fatalf("failed to marshal request: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/returns", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201 for year %d, got %d: %s", year, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/returns?client_id=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var returns []taxReturnResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &returns); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(returns) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(returns))
	}
	for i, want := range []int{2023, 2022, 2021} {
		if returns[i].TaxYear != want {
			t.Fatalf("expected year %d at index %d, got %d", want, i, returns[i].TaxYear)
		}
	}
}

func TestGetReturnNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/returns/500", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/clients", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET, POST" {
		t.Fatalf("unexpected Allow header: %q", allow)
	}
}

func TestHealthzWithoutProbe(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}
