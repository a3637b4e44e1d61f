// file: internals/features/school/years/model/school_year_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

type SchoolYearModel struct {
	// ============ PK & tenant ============
	SchoolYearID       uuid.UUID `gorm:"column:school_year_id;type:uuid;default:gen_random_uuid();primaryKey" json:"school_year_id"`
	SchoolYearSchoolID uuid.UUID `gorm:"column:school_year_school_id;type:uuid;not null;index"                json:"school_year_school_id"`

	// ============ Identity & state ============
	SchoolYearCode  string          `gorm:"column:school_year_code;type:varchar(80);not null;uniqueIndex:uq_school_year_code,where:school_year_deleted_at IS NULL" json:"school_year_code"`
	SchoolYearName  string          `gorm:"column:school_year_name;type:varchar(160);not null" json:"school_year_name"`
	SchoolYearState lifecycle.State `gorm:"column:school_year_state;type:varchar(16);not null" json:"school_year_state"`

	SchoolYearStartDate time.Time `gorm:"column:school_year_start_date;type:date;not null" json:"school_year_start_date"`
	SchoolYearEndDate   time.Time `gorm:"column:school_year_end_date;type:date;not null"   json:"school_year_end_date"`

	// ============ Remote wiring ============
	// Classes are created under this folder (registry unit).
	SchoolYearFolderID   *string `gorm:"column:school_year_folder_id;type:varchar(64)"   json:"school_year_folder_id,omitempty"`
	SchoolYearArtifactID *string `gorm:"column:school_year_artifact_id;type:varchar(64)" json:"school_year_artifact_id,omitempty"`

	// ============ Concurrency & audit ============
	SchoolYearVersion   int            `gorm:"column:school_year_version;not null;default:0"                          json:"school_year_version"`
	SchoolYearCreatedAt time.Time      `gorm:"column:school_year_created_at;type:timestamptz;not null;default:now()" json:"school_year_created_at"`
	SchoolYearUpdatedAt time.Time      `gorm:"column:school_year_updated_at;type:timestamptz;not null;default:now()" json:"school_year_updated_at"`
	SchoolYearDeletedAt gorm.DeletedAt `gorm:"column:school_year_deleted_at;index"                                    json:"school_year_deleted_at,omitempty"`
}

func (SchoolYearModel) TableName() string { return "school_years" }
