package metadata

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vec3 is a patient-space direction or position vector.
type Vec3 [3]float64

// Patient is the top-level grouping record for ingested files.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	PatientID string    `gorm:"type:varchar(64);uniqueIndex" json:"patient_id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	BirthDate string    `gorm:"type:varchar(16)" json:"birth_date"`
	Age       string    `gorm:"type:varchar(16)" json:"age"`

	Studies []*Study `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Patient) TableName() string { return "patients" }

// BeforeCreate hook
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Study groups series acquired in one examination.
type Study struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	StudyInstanceUID string    `gorm:"type:varchar(128);uniqueIndex" json:"study_instance_uid"`
	StudyID          string    `gorm:"type:varchar(64)" json:"study_id"`
	Date             string    `gorm:"type:varchar(16)" json:"date"`
	Description      string    `gorm:"type:varchar(255)" json:"description"`
	PatientID        string    `gorm:"type:varchar(64);index" json:"patient_id"`

	Patient *Patient  `gorm:"-" json:"-"`
	Series  []*Series `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Study) TableName() string { return "studies" }

// BeforeCreate hook
func (s *Study) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Series groups images of one acquisition. Modality is already filtered
// through the non-image reject list by the builder.
type Series struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SeriesInstanceUID string    `gorm:"type:varchar(128);uniqueIndex" json:"series_instance_uid"`
	Number            int       `json:"number"`
	Description       string    `gorm:"type:varchar(255)" json:"description"`
	Date              string    `gorm:"type:varchar(16)" json:"date"`
	Modality          string    `gorm:"type:varchar(16);index" json:"modality"`
	StudyInstanceUID  string    `gorm:"type:varchar(128);index" json:"study_instance_uid"`

	Study  *Study   `gorm:"-" json:"-"`
	Images []*Image `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Series) TableName() string { return "series" }

// BeforeCreate hook
func (s *Series) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Image is the per-instance record. Window values are stored rounded;
// geometry fields are nil when the source vectors were absent or
// malformed (a partial vector is never stored).
type Image struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SOPInstanceUID string    `gorm:"type:varchar(128);uniqueIndex" json:"sop_instance_uid"`
	ClassUID       string    `gorm:"type:varchar(128)" json:"class_uid"`

	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	WindowCenter int `json:"window_center"`
	WindowWidth  int `json:"window_width"`

	SliceLocation     float64 `json:"slice_location"`
	AcquisitionNumber int     `json:"acquisition_number"`
	InstanceNumber    int     `json:"instance_number"`

	NumberOfFrames int  `json:"number_of_frames"`
	IsMultiFrame   bool `json:"is_multi_frame"`

	PixelSpacingX float64 `json:"pixel_spacing_x"`
	PixelSpacingY float64 `json:"pixel_spacing_y"`

	ImagePositionPatient *Vec3 `gorm:"serializer:json" json:"image_position_patient,omitempty"`
	OrientationRow       *Vec3 `gorm:"serializer:json" json:"orientation_row,omitempty"`
	OrientationColumn    *Vec3 `gorm:"serializer:json" json:"orientation_column,omitempty"`

	// Only populated for single-frame images.
	FrameOfReferenceID string `gorm:"type:varchar(128)" json:"frame_of_reference_id,omitempty"`

	SeriesInstanceUID string `gorm:"type:varchar(128);index" json:"series_instance_uid"`
	SourcePath        string `gorm:"type:varchar(1024)" json:"source_path"`

	Series *Series `gorm:"-" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the table name
func (Image) TableName() string { return "images" }

// BeforeCreate hook
func (i *Image) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// AuditRecord captures the outcome of one ingestion attempt.
type AuditRecord struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Path         string    `gorm:"type:varchar(1024)" json:"path"`
	SOPUID       string    `gorm:"type:varchar(128);index" json:"sop_uid"`
	Status       string    `gorm:"type:varchar(20);index" json:"status"` // ingested, skipped, failed
	ErrorMessage string    `gorm:"type:text" json:"error_message,omitempty"`
	Duration     int64     `json:"duration_ms"`
	CreatedAt    time.Time `gorm:"index" json:"timestamp"`
}

// TableName overrides the table name
func (AuditRecord) TableName() string { return "audit_records" }

// BeforeCreate hook
func (a *AuditRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
