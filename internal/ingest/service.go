// Package ingest drives the file-to-repository pipeline: parse a DICOM
// file, assemble metadata records, persist them, and register the
// decoded volume with a frame cache for display.
package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/framecache"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metadata"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metrics"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/pixel"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/repository"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/tagreader"
)

// Ingestion outcome statuses.
const (
	StatusIngested = "ingested"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Viewer holds the display-side state of one ingested image: the volume
// observer handle and its frame cache.
type Viewer struct {
	SOPInstanceUID string
	Handle         *pixel.Handle
	Cache          *framecache.Cache
}

// Result describes one file ingestion.
type Result struct {
	Path   string `json:"path"`
	SOPUID string `json:"sop_uid,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Summary aggregates a directory ingestion.
type Summary struct {
	Ingested int      `json:"ingested"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Results  []Result `json:"results"`
}

// Service wires the extraction pipeline to a metadata store and keeps
// the viewer registry.
type Service struct {
	store           repository.MetadataStore
	coverage        float64
	prefetchWorkers int

	mu      sync.RWMutex
	viewers map[string]*Viewer
}

// New creates an ingest service.
func New(store repository.MetadataStore, coverage float64, prefetchWorkers int) *Service {
	return &Service{
		store:           store,
		coverage:        coverage,
		prefetchWorkers: prefetchWorkers,
		viewers:         make(map[string]*Viewer),
	}
}

// IngestFile ingests a single DICOM file. Unreadable files fail the
// attempt; rejected modalities are skipped without error records beyond
// the audit trail.
func (s *Service) IngestFile(ctx context.Context, path string) (res Result, err error) {
	start := time.Now()
	res = Result{Path: path}

	defer func() {
		metrics.IngestedFiles.WithLabelValues(res.Status).Inc()
		audit := &metadata.AuditRecord{
			Path:     path,
			SOPUID:   res.SOPUID,
			Status:   res.Status,
			Duration: time.Since(start).Milliseconds(),
		}
		if err != nil {
			audit.ErrorMessage = err.Error()
		}
		if auditErr := s.store.SaveAudit(ctx, audit); auditErr != nil {
			log.Warn().Err(auditErr).Str("path", path).Msg("Failed to save audit record")
		}
	}()

	reader, err := tagreader.Open(path)
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		return res, err
	}

	builder := metadata.NewBuilder(reader)

	series := builder.BuildSeries()
	if series == nil {
		res.Status = StatusSkipped
		return res, nil
	}

	info := builder.BuildPixelInfo()
	scalar := builder.ScalarType()

	vol, volErr := BuildVolume(reader, info, scalar)
	if volErr != nil {
		// Metadata-only objects are still ingested; only display is
		// unavailable for them.
		log.Debug().Err(volErr).Str("path", path).Msg("No displayable pixel data")
	}

	img := builder.BuildImage(vol, path)
	patient := builder.BuildPatient()
	study := builder.BuildStudy()

	if err = s.store.SavePatient(ctx, patient); err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if err = s.store.SaveStudy(ctx, study); err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if err = s.store.SaveSeries(ctx, series); err != nil {
		res.Status = StatusFailed
		return res, err
	}
	if err = s.store.SaveImage(ctx, img); err != nil {
		res.Status = StatusFailed
		return res, err
	}

	if vol != nil {
		if err = s.register(img.SOPInstanceUID, vol, path); err != nil {
			res.Status = StatusFailed
			return res, err
		}
	}

	res.SOPUID = img.SOPInstanceUID
	res.Status = StatusIngested
	log.Info().
		Str("path", path).
		Str("sop_uid", img.SOPInstanceUID).
		Int("frames", img.NumberOfFrames).
		Msg("Ingested DICOM file")
	return res, nil
}

func (s *Service) register(sopUID string, vol *pixel.Volume, path string) error {
	handle := pixel.NewHandle(vol)
	fc, err := framecache.New(handle, path, s.coverage)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if old, ok := s.viewers[sopUID]; ok {
		old.Handle.Release()
	}
	s.viewers[sopUID] = &Viewer{
		SOPInstanceUID: sopUID,
		Handle:         handle,
		Cache:          fc,
	}
	s.mu.Unlock()
	return nil
}

// IngestDir walks root and ingests every regular file. Per-file
// failures are recorded and do not abort the walk.
func (s *Service) IngestDir(ctx context.Context, root string) (Summary, error) {
	var sum Summary
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		res, ingErr := s.IngestFile(ctx, path)
		if ingErr != nil {
			log.Warn().Err(ingErr).Str("path", path).Msg("Failed to ingest file")
		}
		switch res.Status {
		case StatusIngested:
			sum.Ingested++
		case StatusSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
		sum.Results = append(sum.Results, res)
		return nil
	})
	return sum, err
}

// Viewer resolves the display state of an ingested image.
func (s *Service) Viewer(sopUID string) (*Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.viewers[sopUID]
	return v, ok
}

// Prefetch decodes all frames of one image across the worker pool.
func (s *Service) Prefetch(ctx context.Context, sopUID string) error {
	v, ok := s.Viewer(sopUID)
	if !ok {
		return repository.ErrNotFound
	}
	v.Cache.PrefetchAllFrames(ctx, s.prefetchWorkers)
	return nil
}

// CloseImage releases the volume behind an image. In-flight decodes
// holding an acquired reference finish; later cache fills fail with a
// released-volume error.
func (s *Service) CloseImage(sopUID string) {
	s.mu.Lock()
	if v, ok := s.viewers[sopUID]; ok {
		v.Handle.Release()
		delete(s.viewers, sopUID)
	}
	s.mu.Unlock()
}
