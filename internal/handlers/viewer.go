package handlers

import (
	"bytes"
	"errors"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/cache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/framecache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/ingest"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metrics"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/render"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/repository"
)

// ViewerHandler serves the metadata query and frame rendering API.
type ViewerHandler struct {
	service     *ingest.Service
	store       repository.MetadataStore
	renderCache cache.Cache
	cacheTTL    time.Duration
}

// NewViewerHandler creates a viewer handler.
func NewViewerHandler(service *ingest.Service, store repository.MetadataStore, renderCache cache.Cache, cacheTTL time.Duration) *ViewerHandler {
	return &ViewerHandler{
		service:     service,
		store:       store,
		renderCache: renderCache,
		cacheTTL:    cacheTTL,
	}
}

// ListPatients returns all known patients.
func (h *ViewerHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.store.Patients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// ListStudies returns a patient's studies.
func (h *ViewerHandler) ListStudies(w http.ResponseWriter, r *http.Request) {
	studies, err := h.store.StudiesForPatient(r.Context(), chi.URLParam(r, "patientID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, studies)
}

// ListSeries returns a study's series.
func (h *ViewerHandler) ListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := h.store.SeriesForStudy(r.Context(), chi.URLParam(r, "studyUID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// ListImages returns a series' images in instance order.
func (h *ViewerHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.store.ImagesForSeries(r.Context(), chi.URLParam(r, "seriesUID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// GetImage returns one image record.
func (h *ViewerHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.store.ImageBySOP(r.Context(), chi.URLParam(r, "sopUID"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// RenderFrame serves one frame as PNG, honoring window/level, inversion,
// flips and rotation query parameters.
func (h *ViewerHandler) RenderFrame(w http.ResponseWriter, r *http.Request) {
	sopUID := chi.URLParam(r, "sopUID")
	frameIndex, err := strconv.Atoi(chi.URLParam(r, "frameIndex"))
	if err != nil || frameIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid frame index")
		return
	}
	state := presentationStateFromQuery(r)

	key := cache.RenderKey(sopUID, frameIndex, state)
	if data, cacheErr := h.renderCache.Get(r.Context(), key); cacheErr == nil {
		metrics.RenderCache.WithLabelValues("hit").Inc()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
		return
	}
	metrics.RenderCache.WithLabelValues("miss").Inc()

	viewer, ok := h.service.Viewer(sopUID)
	if !ok {
		writeError(w, http.StatusNotFound, "no displayable data for image")
		return
	}
	frame := viewer.Cache.Frame(frameIndex)
	if frame == nil {
		writeError(w, http.StatusNotFound, "frame index out of range")
		return
	}

	if err := viewer.Cache.EnsureFrameCached(frame); err != nil {
		if errors.Is(err, framecache.ErrVolumeReleased) {
			writeError(w, http.StatusGone, "image has been closed")
			return
		}
		log.Error().Err(err).Str("sop_uid", sopUID).Int("frame", frameIndex).Msg("Frame decode failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	img := render.RenderFrame(frame, state)
	if img == nil {
		writeError(w, http.StatusNotFound, "frame not displayable")
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.renderCache.Set(r.Context(), key, buf.Bytes(), h.cacheTTL); err != nil {
		log.Warn().Err(err).Msg("Failed to cache rendered frame")
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// Prefetch decodes every frame of one image in the background pool.
func (h *ViewerHandler) Prefetch(w http.ResponseWriter, r *http.Request) {
	sopUID := chi.URLParam(r, "sopUID")
	if err := h.service.Prefetch(r.Context(), sopUID); err != nil {
		writeError(w, http.StatusNotFound, "no displayable data for image")
		return
	}
	viewer, _ := h.service.Viewer(sopUID)
	writeJSON(w, http.StatusOK, viewer.Cache.Stats())
}

// CacheStats reports decode telemetry for one image.
func (h *ViewerHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	viewer, ok := h.service.Viewer(chi.URLParam(r, "sopUID"))
	if !ok {
		writeError(w, http.StatusNotFound, "no displayable data for image")
		return
	}
	writeJSON(w, http.StatusOK, viewer.Cache.Stats())
}

// CloseImage releases an image's volume and invalidates its rendered
// frames.
func (h *ViewerHandler) CloseImage(w http.ResponseWriter, r *http.Request) {
	sopUID := chi.URLParam(r, "sopUID")
	h.service.CloseImage(sopUID)
	if err := h.renderCache.Clear(r.Context(), cache.ImageKeyPattern(sopUID)); err != nil {
		log.Warn().Err(err).Str("sop_uid", sopUID).Msg("Failed to clear render cache")
	}
	w.WriteHeader(http.StatusNoContent)
}

func presentationStateFromQuery(r *http.Request) render.PresentationState {
	q := r.URL.Query()
	var state render.PresentationState
	if v, err := strconv.ParseFloat(q.Get("wc"), 64); err == nil {
		state.WindowCenter = v
	}
	if v, err := strconv.ParseFloat(q.Get("ww"), 64); err == nil {
		state.WindowWidth = v
	}
	state.InvertColors = q.Get("invert") == "true" || q.Get("invert") == "1"
	state.FlipHorizontal = q.Get("flip_h") == "true" || q.Get("flip_h") == "1"
	state.FlipVertical = q.Get("flip_v") == "true" || q.Get("flip_v") == "1"
	if v, err := strconv.Atoi(q.Get("rot")); err == nil {
		state.RotationSteps = v
	}
	return state
}
