// Package repository persists the metadata records produced by
// ingestion. Two implementations exist: a gorm/Postgres store for
// deployments with a database, and an in-memory store used otherwise and
// by tests.
package repository

import (
	"context"
	"errors"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metadata"
)

// ErrNotFound is returned when a UID does not resolve to a record.
var ErrNotFound = errors.New("record not found")

// MetadataStore owns the Patient/Study/Series/Image records for their
// lifetime. Saves are upserts keyed by the natural DICOM UID so
// re-ingesting a file is idempotent.
type MetadataStore interface {
	SavePatient(ctx context.Context, p *metadata.Patient) error
	SaveStudy(ctx context.Context, s *metadata.Study) error
	SaveSeries(ctx context.Context, s *metadata.Series) error
	SaveImage(ctx context.Context, i *metadata.Image) error

	Patients(ctx context.Context) ([]*metadata.Patient, error)
	StudiesForPatient(ctx context.Context, patientID string) ([]*metadata.Study, error)
	SeriesForStudy(ctx context.Context, studyUID string) ([]*metadata.Series, error)
	ImagesForSeries(ctx context.Context, seriesUID string) ([]*metadata.Image, error)
	ImageBySOP(ctx context.Context, sopUID string) (*metadata.Image, error)

	SaveAudit(ctx context.Context, rec *metadata.AuditRecord) error
}
