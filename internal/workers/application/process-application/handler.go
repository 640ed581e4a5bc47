// internal/workers/application/process-application/handler.go
package processapplication

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"applysync/internal/common/errors"
	"applysync/internal/common/logger"
	"applysync/internal/common/metrics"
	"applysync/internal/common/middleware"
	"applysync/internal/models"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	formFieldFile  = "cv"
	multipartSlack = 1 << 20
)

// Processor is the orchestration entry point the handler drives.
type Processor interface {
	Process(ctx context.Context, sub models.Submission) (*Result, error)
}

type Handler struct {
	service Processor
	config  *Config
	logger  logger.Logger
}

func NewHandler(config *Config, service Processor, log logger.Logger) *Handler {
	if config == nil {
		config = DefaultConfig()
	}
	return &Handler{
		service: service,
		config:  config,
		logger:  log.WithFields(map[string]interface{}{"component": "intake-http"}),
	}
}

// Routes registers the intake, health and metrics endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/submit", h.Submit)
	mux.HandleFunc("GET /api/test", h.Test)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Router returns the routes wrapped in request id, access log and panic
// recovery middleware.
func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	h.Routes(mux)
	return middleware.Chain(
		middleware.RequestID,
		middleware.AccessLog(h.logger),
		middleware.Recovery(h.logger),
	)(mux)
}

func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is working!"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.config.MaxUploadBytes+multipartSlack)

	if err := r.ParseMultipartForm(h.config.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.reject(w, r, []string{fmt.Sprintf(msgFileTooLargeFn, h.config.MaxUploadBytes>>20)})
			return
		}
		if !stderrors.Is(err, http.ErrNotMultipart) {
			h.reject(w, r, []string{err.Error()})
			return
		}
	}

	sub := models.Submission{
		Name:  r.FormValue("name"),
		Email: r.FormValue("email"),
		Phone: r.FormValue("phone"),
	}

	file, header, err := r.FormFile(formFieldFile)
	hasFile := err == nil
	if hasFile {
		defer file.Close()
		if err := readUpload(file, header, &sub); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	if messages := ValidateSubmission(sub, hasFile, h.config.MaxUploadBytes); len(messages) > 0 {
		h.reject(w, r, messages)
		return
	}

	result, err := h.service.Process(r.Context(), sub)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{
		Status:  "success",
		Message: "Application submitted successfully",
		Data:    result,
	})
}

func readUpload(file multipart.File, header *multipart.FileHeader, sub *models.Submission) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	sub.Document = data
	sub.FileName = header.Filename
	sub.ContentType = header.Header.Get("Content-Type")
	return nil
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request, messages []string) {
	metrics.IntakeSubmissions.WithLabelValues("invalid").Inc()
	h.logger.Info("submission rejected by validation", map[string]interface{}{
		"errors":    messages,
		"requestId": middleware.RequestIDFromCtx(r.Context()),
	})
	stdErr := errors.NewValidationFailedError(messages)
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Status:  "error",
		Message: stdErr.Message,
		Code:    string(stdErr.Code),
		Errors:  messages,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.AsStandardError(err)
	body := errorResponse{
		Status:  "error",
		Message: "Internal server error",
		Code:    string(stdErr.Code),
	}
	if h.config.ExposeStack {
		body.Stack = err.Error()
	}
	h.logger.Error("submission failed", map[string]interface{}{
		"error":     err,
		"errorCode": string(stdErr.Code),
		"requestId": middleware.RequestIDFromCtx(r.Context()),
	})
	writeJSON(w, http.StatusInternalServerError, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
