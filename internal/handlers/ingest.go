package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/ingest"
)

// IngestHandler accepts ingestion requests for local files and
// directories.
type IngestHandler struct {
	service *ingest.Service
}

// NewIngestHandler creates an ingest handler.
func NewIngestHandler(service *ingest.Service) *IngestHandler {
	return &IngestHandler{service: service}
}

type ingestRequest struct {
	Path string `json:"path"`
}

// Ingest ingests the file or directory named in the request body.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"path\": \"...\"}")
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if info.IsDir() {
		summary, err := h.service.IngestDir(r.Context(), req.Path)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	res, err := h.service.IngestFile(r.Context(), req.Path)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
