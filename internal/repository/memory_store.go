package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ThalesMMS/Isis-for-Windows-sub002/internal/metadata"
)

// MemoryStore keeps metadata in process memory. It is the store used
// when no database is configured; uniqueness-by-UID matches the gorm
// store's upsert behavior.
type MemoryStore struct {
	mu       sync.RWMutex
	patients map[string]*metadata.Patient
	studies  map[string]*metadata.Study
	series   map[string]*metadata.Series
	images   map[string]*metadata.Image
	audits   []*metadata.AuditRecord
}

// NewMemoryStore creates an empty in-memory metadata store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients: make(map[string]*metadata.Patient),
		studies:  make(map[string]*metadata.Study),
		series:   make(map[string]*metadata.Series),
		images:   make(map[string]*metadata.Image),
	}
}

// SavePatient upserts a patient by PatientID.
func (m *MemoryStore) SavePatient(ctx context.Context, p *metadata.Patient) error {
	m.mu.Lock()
	m.patients[p.PatientID] = p
	m.mu.Unlock()
	return nil
}

// SaveStudy upserts a study by StudyInstanceUID.
func (m *MemoryStore) SaveStudy(ctx context.Context, s *metadata.Study) error {
	m.mu.Lock()
	m.studies[s.StudyInstanceUID] = s
	m.mu.Unlock()
	return nil
}

// SaveSeries upserts a series by SeriesInstanceUID.
func (m *MemoryStore) SaveSeries(ctx context.Context, s *metadata.Series) error {
	m.mu.Lock()
	m.series[s.SeriesInstanceUID] = s
	m.mu.Unlock()
	return nil
}

// SaveImage upserts an image by SOPInstanceUID.
func (m *MemoryStore) SaveImage(ctx context.Context, i *metadata.Image) error {
	m.mu.Lock()
	m.images[i.SOPInstanceUID] = i
	m.mu.Unlock()
	return nil
}

// Patients lists all patients sorted by name.
func (m *MemoryStore) Patients(ctx context.Context) ([]*metadata.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*metadata.Patient, 0, len(m.patients))
	for _, p := range m.patients {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// StudiesForPatient lists a patient's studies, newest first.
func (m *MemoryStore) StudiesForPatient(ctx context.Context, patientID string) ([]*metadata.Study, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*metadata.Study
	for _, s := range m.studies {
		if s.PatientID == patientID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// SeriesForStudy lists a study's series by series number.
func (m *MemoryStore) SeriesForStudy(ctx context.Context, studyUID string) ([]*metadata.Series, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*metadata.Series
	for _, s := range m.series {
		if s.StudyInstanceUID == studyUID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// ImagesForSeries lists a series' images in acquisition/instance order.
func (m *MemoryStore) ImagesForSeries(ctx context.Context, seriesUID string) ([]*metadata.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*metadata.Image
	for _, i := range m.images {
		if i.SeriesInstanceUID == seriesUID {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].AcquisitionNumber != out[b].AcquisitionNumber {
			return out[a].AcquisitionNumber < out[b].AcquisitionNumber
		}
		return out[a].InstanceNumber < out[b].InstanceNumber
	})
	return out, nil
}

// ImageBySOP resolves one image by SOPInstanceUID.
func (m *MemoryStore) ImageBySOP(ctx context.Context, sopUID string) (*metadata.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	img, ok := m.images[sopUID]
	if !ok {
		return nil, ErrNotFound
	}
	return img, nil
}

// SaveAudit appends an ingestion audit record.
func (m *MemoryStore) SaveAudit(ctx context.Context, rec *metadata.AuditRecord) error {
	m.mu.Lock()
	m.audits = append(m.audits, rec)
	m.mu.Unlock()
	return nil
}

// Audits returns the accumulated audit records.
func (m *MemoryStore) Audits() []*metadata.AuditRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*metadata.AuditRecord(nil), m.audits...)
}
