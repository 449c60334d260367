package detect

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter exposes the detection engine over HTTP so it can run as a
// standalone scoring service. The workbench talks to the same surface via
// the analyzer client when running in remote mode.
func NewRouter(engine *Engine, maxUploadBytes int64) *chi.Mux {
	h := &serviceHandler{engine: engine, maxUploadBytes: maxUploadBytes}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	router.Get("/health", h.health)
	router.Post("/analyze", h.analyze)

	return router
}

type serviceHandler struct {
	engine         *Engine
	maxUploadBytes int64
}

func (h *serviceHandler) health(w http.ResponseWriter, r *http.Request) {
	writeServiceJSON(w, http.StatusOK, map[string]string{
		"status": "running",
	})
}

func (h *serviceHandler) analyze(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeServiceJSON(w, http.StatusBadRequest, map[string]string{
			"error": "file field is required",
		})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeServiceJSON(w, http.StatusBadRequest, map[string]string{
			"error": "failed to read upload",
		})
		return
	}

	resp, err := h.engine.Analyze(r.Context(), header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotCSV):
			writeServiceJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Only CSV files allowed",
			})
		case errors.Is(err, ErrInvalidCSV):
			writeServiceJSON(w, http.StatusBadRequest, map[string]string{
				"error": "Invalid CSV format",
			})
		case errors.Is(err, ErrValidation):
			writeServiceJSON(w, http.StatusBadRequest, map[string]string{
				"error": "CSV validation failed",
			})
		default:
			slog.Error("analysis failed", "file", header.Filename, "error", err)
			writeServiceJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "analysis failed",
			})
		}
		return
	}

	writeServiceJSON(w, http.StatusOK, resp)
}

func writeServiceJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
