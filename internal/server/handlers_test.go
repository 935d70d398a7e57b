package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"codeberg.org/snonux/vocabdeck/internal/anki"
	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/observe"
	"codeberg.org/snonux/vocabdeck/internal/pdftext"
	"codeberg.org/snonux/vocabdeck/internal/processor"
	"codeberg.org/snonux/vocabdeck/internal/session"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Run(ctx context.Context, id string) (*processor.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*processor.Report), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestHandlers(t *testing.T, opts ...HandlerOption) (*Handlers, *mockGenerator, *session.Store) {
	t.Helper()
	store, err := session.NewStore(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)

	gen := &mockGenerator{}
	return NewHandlers(gen, store, testLogger(), opts...), gen, store
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// writeArchive creates a finished session with a zip and returns a report
// pointing at it.
func writeArchive(t *testing.T, store *session.Store, id string) *processor.Report {
	t.Helper()
	s, err := store.Open(id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.ZipPath(), []byte("PK zip bytes"), 0644))
	return &processor.Report{SessionID: id, Cards: 3, ZipPath: s.ZipPath()}
}

func TestStatus(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "running", resp.Status)
}

func TestCreateSession(t *testing.T) {
	h, _, store := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.CreateSession(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, session.ValidID(resp.SessionID))
	assert.DirExists(t, filepath.Join(store.Root(), resp.SessionID))
}

func TestUpload_Success(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		handler func(*Handlers) http.HandlerFunc
		file    string
		message string
	}{
		{"pdf", "/upload/pdf?session_id=lesson1", func(h *Handlers) http.HandlerFunc { return h.UploadPDF }, session.PDFFile, "PDF uploaded"},
		{"audio", "/upload/audio?session_id=lesson1", func(h *Handlers) http.HandlerFunc { return h.UploadAudio }, session.AudioFile, "Audio uploaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, store := newTestHandlers(t)

			rec := httptest.NewRecorder()
			tt.handler(h)(rec, multipartRequest(t, tt.target, "file", "upload.bin", []byte("content")))

			assert.Equal(t, http.StatusOK, rec.Code)
			var resp UploadResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.message, resp.Message)
			assert.Equal(t, "lesson1", resp.SessionID)

			data, err := os.ReadFile(filepath.Join(store.Root(), "lesson1", tt.file))
			require.NoError(t, err)
			assert.Equal(t, "content", string(data))
		})
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
		code   string
	}{
		{
			name:   "missing session id",
			req:    func(t *testing.T) *http.Request { return multipartRequest(t, "/upload/pdf", "file", "a.pdf", []byte("x")) },
			status: http.StatusBadRequest,
			code:   "MISSING_SESSION_ID",
		},
		{
			name: "invalid session id",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload/pdf?session_id=..%2Fetc", "file", "a.pdf", []byte("x"))
			},
			status: http.StatusBadRequest,
			code:   "INVALID_SESSION_ID",
		},
		{
			name: "missing file field",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload/pdf?session_id=s1", "document", "a.pdf", []byte("x"))
			},
			status: http.StatusBadRequest,
			code:   "MISSING_FILE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandlers(t)

			rec := httptest.NewRecorder()
			h.UploadPDF(rec, tt.req(t))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestGenerate_Success(t *testing.T) {
	h, gen, store := newTestHandlers(t)
	report := writeArchive(t, store, "lesson1")
	gen.On("Run", mock.Anything, "lesson1").Return(report, nil)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodGet, "/generate?session_id=lesson1", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="anki_output_lesson1.zip"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", rec.Header().Get(HeaderCards))
	assert.Empty(t, rec.Header().Get(HeaderMismatch))
	assert.Equal(t, "PK zip bytes", rec.Body.String())
	gen.AssertExpectations(t)
}

func TestGenerate_MismatchHeader(t *testing.T) {
	h, gen, store := newTestHandlers(t)
	report := writeArchive(t, store, "short")
	report.Mismatch = &anki.Mismatch{Entries: 5, Clips: 3}
	report.URL = "https://bucket.s3.eu-west-1.amazonaws.com/anki_output_short.zip"
	gen.On("Run", mock.Anything, "short").Return(report, nil)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodGet, "/generate?session_id=short", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5 entries vs 3 clips", rec.Header().Get(HeaderMismatch))
	assert.Equal(t, report.URL, rec.Header().Get(HeaderURL))
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"input missing", fmt.Errorf("%w: vocab.mp3", session.ErrInputMissing), http.StatusBadRequest, "INPUT_MISSING"},
		{"unreadable pdf", fmt.Errorf("%w: bad xref", pdftext.ErrUnreadable), http.StatusUnprocessableEntity, "PDF_UNREADABLE"},
		{"segmentation", fmt.Errorf("%w: no duration", audio.ErrSegmentation), http.StatusUnprocessableEntity, "SEGMENTATION_FAILED"},
		{"formatter", formatting.ErrNoUsableLines, http.StatusBadGateway, "FORMATTER_FAILED"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "TIMEOUT"},
		{"other", errors.New("disk full"), http.StatusInternalServerError, "GENERATION_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, gen, _ := newTestHandlers(t)
			gen.On("Run", mock.Anything, "s1").Return(nil, tt.err)

			rec := httptest.NewRecorder()
			h.Generate(rec, httptest.NewRequest(http.MethodGet, "/generate?session_id=s1", nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestGenerate_MissingSessionID(t *testing.T) {
	h, gen, _ := newTestHandlers(t)

	rec := httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodGet, "/generate", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MISSING_SESSION_ID", decodeError(t, rec).Code)
	gen.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestRouter_Integration(t *testing.T) {
	h, gen, store := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	// Create a session
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created SessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	id := created.SessionID

	// Upload both inputs
	for _, route := range []string{"/upload/pdf", "/upload/audio"} {
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, multipartRequest(t, route+"?session_id="+id, "file", "f", []byte("x")))
		require.Equal(t, http.StatusOK, rec.Code, route)
	}

	// Generate
	gen.On("Run", mock.Anything, id).Return(writeArchive(t, store, id), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate?session_id="+id, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Delete
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoDirExists(t, filepath.Join(store.Root(), id))

	// Wrong method
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/upload/pdf", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeleteSession_InvalidID(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), DefaultConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/sessions/-bad", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SESSION_ID", decodeError(t, rec).Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	metrics, err := observe.NewMetrics(mp)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Metrics = metrics
	cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "vocabdeck_cards_total 0\n")
	})
	router := NewRouter(h, testLogger(), cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vocabdeck_cards_total")

	// Without a handler the route doesn't exist
	router = NewRouter(h, testLogger(), DefaultConfig())
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_LogsRequestsWithoutMetrics(t *testing.T) {
	h, _, _ := newTestHandlers(t)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	router := NewRouter(h, logger, DefaultConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	out := buf.String()
	assert.Contains(t, out, "request completed")
	assert.Contains(t, out, `route="GET /status"`)
	assert.Contains(t, out, "status=200")
}

func TestChainMiddleware_Order(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})
	ChainMiddleware(tag("outer"), tag("inner"))(final).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCORSMiddleware(t *testing.T) {
	h, _, _ := newTestHandlers(t)
	router := NewRouter(h, testLogger(), Config{AllowedOrigins: []string{"https://example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), HeaderMismatch)

	req = httptest.NewRequest(http.MethodOptions, "/generate", nil)
	req.Header.Set("Origin", "https://example.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	})

	handler := RecoveryMiddleware(testLogger())(panicHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}
