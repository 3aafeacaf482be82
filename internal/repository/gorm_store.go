package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/database"
	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metadata"
)

// GormStore persists metadata through the shared gorm connection.
type GormStore struct{}

// NewGormStore creates a gorm-backed metadata store.
func NewGormStore() *GormStore {
	return &GormStore{}
}

func upsert(ctx context.Context, uidColumn string, value interface{}) error {
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: uidColumn}},
			UpdateAll: true,
		}).
		Create(value).Error
}

// SavePatient upserts a patient by PatientID.
func (s *GormStore) SavePatient(ctx context.Context, p *metadata.Patient) error {
	if err := upsert(ctx, "patient_id", p); err != nil {
		return fmt.Errorf("failed to save patient: %w", err)
	}
	return nil
}

// SaveStudy upserts a study by StudyInstanceUID.
func (s *GormStore) SaveStudy(ctx context.Context, st *metadata.Study) error {
	if err := upsert(ctx, "study_instance_uid", st); err != nil {
		return fmt.Errorf("failed to save study: %w", err)
	}
	return nil
}

// SaveSeries upserts a series by SeriesInstanceUID.
func (s *GormStore) SaveSeries(ctx context.Context, se *metadata.Series) error {
	if err := upsert(ctx, "series_instance_uid", se); err != nil {
		return fmt.Errorf("failed to save series: %w", err)
	}
	return nil
}

// SaveImage upserts an image by SOPInstanceUID.
func (s *GormStore) SaveImage(ctx context.Context, i *metadata.Image) error {
	if err := upsert(ctx, "sop_instance_uid", i); err != nil {
		return fmt.Errorf("failed to save image: %w", err)
	}
	return nil
}

// Patients lists all patients.
func (s *GormStore) Patients(ctx context.Context) ([]*metadata.Patient, error) {
	var out []*metadata.Patient
	if err := database.DB.WithContext(ctx).
		Order("name ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return out, nil
}

// StudiesForPatient lists a patient's studies.
func (s *GormStore) StudiesForPatient(ctx context.Context, patientID string) ([]*metadata.Study, error) {
	var out []*metadata.Study
	if err := database.DB.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("date DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list studies: %w", err)
	}
	return out, nil
}

// SeriesForStudy lists a study's series.
func (s *GormStore) SeriesForStudy(ctx context.Context, studyUID string) ([]*metadata.Series, error) {
	var out []*metadata.Series
	if err := database.DB.WithContext(ctx).
		Where("study_instance_uid = ?", studyUID).
		Order("number ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	return out, nil
}

// ImagesForSeries lists a series' images in instance order.
func (s *GormStore) ImagesForSeries(ctx context.Context, seriesUID string) ([]*metadata.Image, error) {
	var out []*metadata.Image
	if err := database.DB.WithContext(ctx).
		Where("series_instance_uid = ?", seriesUID).
		Order("acquisition_number ASC, instance_number ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return out, nil
}

// ImageBySOP resolves one image by SOPInstanceUID.
func (s *GormStore) ImageBySOP(ctx context.Context, sopUID string) (*metadata.Image, error) {
	var img metadata.Image
	err := database.DB.WithContext(ctx).
		Where("sop_instance_uid = ?", sopUID).
		First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &img, nil
}

// SaveAudit appends an ingestion audit record.
func (s *GormStore) SaveAudit(ctx context.Context, rec *metadata.AuditRecord) error {
	if err := database.DB.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}
	return nil
}
