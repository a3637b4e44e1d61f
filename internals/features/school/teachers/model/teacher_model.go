// file: internals/features/school/teachers/model/teacher_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// TeacherModel is created lazily the first time an identity is assigned as a
// class or subject teacher.
type TeacherModel struct {
	// ============ PK & tenant ============
	TeacherID       uuid.UUID `gorm:"column:teacher_id;type:uuid;default:gen_random_uuid();primaryKey" json:"teacher_id"`
	TeacherSchoolID uuid.UUID `gorm:"column:teacher_school_id;type:uuid;not null;index"                json:"teacher_school_id"`

	// ============ Identity & state ============
	TeacherUUIdentity     string          `gorm:"column:teacher_uu_identity;type:varchar(64);not null;uniqueIndex:uq_teacher_identity,where:teacher_deleted_at IS NULL" json:"teacher_uu_identity"`
	TeacherPersonalCardID *string         `gorm:"column:teacher_personal_card_id;type:varchar(64)" json:"teacher_personal_card_id,omitempty"`
	TeacherState          lifecycle.State `gorm:"column:teacher_state;type:varchar(16);not null"   json:"teacher_state"`

	// ============ Remote wiring ============
	TeacherArtifactID *string `gorm:"column:teacher_artifact_id;type:varchar(64)" json:"teacher_artifact_id,omitempty"`

	// ============ Concurrency & audit ============
	TeacherVersion   int            `gorm:"column:teacher_version;not null;default:0"                          json:"teacher_version"`
	TeacherCreatedAt time.Time      `gorm:"column:teacher_created_at;type:timestamptz;not null;default:now()" json:"teacher_created_at"`
	TeacherUpdatedAt time.Time      `gorm:"column:teacher_updated_at;type:timestamptz;not null;default:now()" json:"teacher_updated_at"`
	TeacherDeletedAt gorm.DeletedAt `gorm:"column:teacher_deleted_at;index"                                    json:"teacher_deleted_at,omitempty"`
}

func (TeacherModel) TableName() string { return "teachers" }
