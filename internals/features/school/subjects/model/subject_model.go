// file: internals/features/school/subjects/model/subject_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// SubjectStudentEntry is one row of the JSONB enrollment list. Courses are the
// external course codes the student was registered into on enrollment.
type SubjectStudentEntry struct {
	StudentID uuid.UUID       `json:"student_id"`
	State     lifecycle.State `json:"state"` // active | former
	Courses   []string        `json:"courses,omitempty"`
}

type SubjectModel struct {
	// ============ PK & tenant ============
	SubjectID       uuid.UUID `gorm:"column:subject_id;type:uuid;default:gen_random_uuid();primaryKey" json:"subject_id"`
	SubjectSchoolID uuid.UUID `gorm:"column:subject_school_id;type:uuid;not null;index"                json:"subject_school_id"`

	// ============ FK ============
	SubjectClassID uuid.UUID `gorm:"column:subject_class_id;type:uuid;not null;index" json:"subject_class_id"`

	// ============ Identity & state ============
	SubjectCode  string          `gorm:"column:subject_code;type:varchar(80);not null;uniqueIndex:uq_subject_code,where:subject_deleted_at IS NULL" json:"subject_code"`
	SubjectName  string          `gorm:"column:subject_name;type:varchar(160);not null" json:"subject_name"`
	SubjectState lifecycle.State `gorm:"column:subject_state;type:varchar(16);not null" json:"subject_state"`

	// ============ Remote wiring ============
	SubjectTeacherRoleID *string `gorm:"column:subject_teacher_role_id;type:varchar(64)" json:"subject_teacher_role_id,omitempty"`
	SubjectArtifactID    *string `gorm:"column:subject_artifact_id;type:varchar(64)"     json:"subject_artifact_id,omitempty"`

	// ============ Relations (JSONB) ============
	SubjectStudentList datatypes.JSONSlice[SubjectStudentEntry] `gorm:"column:subject_student_list;type:jsonb" json:"subject_student_list"`
	// Registered external course integrations, keyed by course code. Values
	// hold the integration config (script uri etc) as opaque JSON.
	SubjectAppMap datatypes.JSONMap `gorm:"column:subject_app_map;type:jsonb" json:"subject_app_map,omitempty"`

	// ============ Concurrency & audit ============
	SubjectVersion   int            `gorm:"column:subject_version;not null;default:0"                          json:"subject_version"`
	SubjectCreatedAt time.Time      `gorm:"column:subject_created_at;type:timestamptz;not null;default:now()" json:"subject_created_at"`
	SubjectUpdatedAt time.Time      `gorm:"column:subject_updated_at;type:timestamptz;not null;default:now()" json:"subject_updated_at"`
	SubjectDeletedAt gorm.DeletedAt `gorm:"column:subject_deleted_at;index"                                    json:"subject_deleted_at,omitempty"`
}

func (SubjectModel) TableName() string { return "subjects" }

func (m *SubjectModel) ActiveStudent(studentID uuid.UUID) (SubjectStudentEntry, bool) {
	for _, e := range m.SubjectStudentList {
		if e.StudentID == studentID && e.State != lifecycle.StateFormer {
			return e, true
		}
	}
	return SubjectStudentEntry{}, false
}

func (m *SubjectModel) HasActiveStudents() bool {
	for _, e := range m.SubjectStudentList {
		if e.State != lifecycle.StateFormer {
			return true
		}
	}
	return false
}
