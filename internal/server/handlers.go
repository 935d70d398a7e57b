package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"codeberg.org/snonux/vocabdeck/internal/audio"
	"codeberg.org/snonux/vocabdeck/internal/formatting"
	"codeberg.org/snonux/vocabdeck/internal/pdftext"
	"codeberg.org/snonux/vocabdeck/internal/processor"
	"codeberg.org/snonux/vocabdeck/internal/session"
)

// DefaultMaxUpload limits the size of one uploaded file.
const DefaultMaxUpload = 200 << 20

// Generator runs the deck pipeline for a session.
type Generator interface {
	Run(ctx context.Context, id string) (*processor.Report, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	generator Generator
	store     *session.Store
	validator *validator.Validate
	logger    *slog.Logger
	maxUpload int64
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithMaxUpload limits the size of one uploaded file in bytes.
func WithMaxUpload(n int64) HandlerOption {
	return func(h *Handlers) {
		h.maxUpload = n
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(generator Generator, store *session.Store, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		generator: generator,
		store:     store,
		validator: newValidator(),
		logger:    logger,
		maxUpload: DefaultMaxUpload,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func newValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("session_id", func(fl validator.FieldLevel) bool {
		return session.ValidID(fl.Field().String())
	})
	if err != nil {
		panic("server: failed to register session_id validation: " + err.Error())
	}
	return v
}

// Status handles GET /status requests.
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "running"})
}

// CreateSession handles POST /sessions requests.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Create(r.Context())
	if err != nil {
		h.logger.Error("failed to create session",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create session", "SESSION_CREATION_FAILED")
		return
	}

	h.logger.Info("session created", slog.String("session_id", s.ID))
	writeJSON(w, http.StatusCreated, SessionResponse{SessionID: s.ID})
}

// UploadPDF handles POST /upload/pdf requests.
func (h *Handlers) UploadPDF(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, session.PDFFile, "PDF uploaded")
}

// UploadAudio handles POST /upload/audio requests.
func (h *Handlers) UploadAudio(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, session.AudioFile, "Audio uploaded")
}

func (h *Handlers) upload(w http.ResponseWriter, r *http.Request, name, message string) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large", "FILE_TOO_LARGE")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart field \"file\" is required", "MISSING_FILE")
		return
	}
	defer file.Close()

	s, err := h.store.Open(id)
	if err != nil {
		h.writeSessionError(w, id, err)
		return
	}

	if _, err := s.SaveInput(r.Context(), name, file); err != nil {
		h.logger.Error("failed to store upload",
			slog.String("session_id", id),
			slog.String("file", name),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to store upload", "UPLOAD_FAILED")
		return
	}

	h.logger.Info("input uploaded",
		slog.String("session_id", id),
		slog.String("file", name),
	)
	writeJSON(w, http.StatusOK, UploadResponse{Message: message, SessionID: id})
}

// Generate handles GET /generate requests. It runs the pipeline and
// answers with the session archive.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	report, err := h.generator.Run(r.Context(), id)
	if err != nil {
		h.writeGenerateError(w, id, err)
		return
	}

	f, err := os.Open(report.ZipPath)
	if err != nil {
		h.logger.Error("failed to open archive",
			slog.String("session_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read archive", "GENERATION_FAILED")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read archive", "GENERATION_FAILED")
		return
	}

	if report.Mismatch != nil {
		w.Header().Set(HeaderMismatch, report.Mismatch.String())
	}
	if report.URL != "" {
		w.Header().Set(HeaderURL, report.URL)
	}
	w.Header().Set(HeaderCards, strconv.Itoa(report.Cards))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+info.Name()+`"`)

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// DeleteSession handles DELETE /sessions/{id} requests.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Remove(id); err != nil {
		h.writeSessionError(w, id, err)
		return
	}

	h.logger.Info("session removed", slog.String("session_id", id))
	w.WriteHeader(http.StatusNoContent)
}

// sessionID validates the session_id query parameter, writing a 400 when
// it is missing or malformed.
func (h *Handlers) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	q := sessionQuery{SessionID: r.URL.Query().Get("session_id")}
	if err := h.validator.Struct(q); err != nil {
		if q.SessionID == "" {
			writeError(w, http.StatusBadRequest, "missing session_id", "MISSING_SESSION_ID")
		} else {
			writeError(w, http.StatusBadRequest, "invalid session_id", "INVALID_SESSION_ID")
		}
		return "", false
	}
	return q.SessionID, true
}

func (h *Handlers) writeSessionError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, session.ErrInvalidID) {
		writeError(w, http.StatusBadRequest, "invalid session_id", "INVALID_SESSION_ID")
		return
	}
	h.logger.Error("session operation failed",
		slog.String("session_id", id),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, "session operation failed", "SESSION_FAILED")
}

func (h *Handlers) writeGenerateError(w http.ResponseWriter, id string, err error) {
	h.logger.Warn("generation failed",
		slog.String("session_id", id),
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, session.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid session_id", "INVALID_SESSION_ID")
	case errors.Is(err, session.ErrInputMissing):
		writeError(w, http.StatusBadRequest, "missing PDF or audio", "INPUT_MISSING")
	case errors.Is(err, pdftext.ErrUnreadable):
		writeError(w, http.StatusUnprocessableEntity, "the PDF could not be read", "PDF_UNREADABLE")
	case errors.Is(err, audio.ErrSegmentation):
		writeError(w, http.StatusUnprocessableEntity, "the recording could not be split", "SEGMENTATION_FAILED")
	case errors.Is(err, formatting.ErrFailed):
		writeError(w, http.StatusBadGateway, "the formatter failed", "FORMATTER_FAILED")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "generation timed out", "TIMEOUT")
	default:
		writeError(w, http.StatusInternalServerError, "generation failed", "GENERATION_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
