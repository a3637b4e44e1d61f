// file: internals/features/school/classes/model/class_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// ClassStudentEntry is one row of the JSONB student list. Entries are soft
// removed: leaving students go to state "former" and keep their number slot
// free for reuse.
type ClassStudentEntry struct {
	StudentID uuid.UUID       `json:"student_id"`
	Number    int             `json:"number"`
	State     lifecycle.State `json:"state"` // active | former
}

// ClassYearLink records a historical link to a class of another school year.
type ClassYearLink struct {
	ClassID uuid.UUID `json:"class_id"`
	Code    string    `json:"code,omitempty"`
}

type ClassModel struct {
	// ============ PK & tenant ============
	ClassID       uuid.UUID `gorm:"column:class_id;type:uuid;default:gen_random_uuid();primaryKey" json:"class_id"`
	ClassSchoolID uuid.UUID `gorm:"column:class_school_id;type:uuid;not null;index"                json:"class_school_id"`

	// ============ FK ============
	ClassSchoolYearID uuid.UUID `gorm:"column:class_school_year_id;type:uuid;not null;index" json:"class_school_year_id"`

	// ============ Identity & state ============
	ClassCode  string          `gorm:"column:class_code;type:varchar(80);not null;uniqueIndex:uq_class_code,where:class_deleted_at IS NULL" json:"class_code"`
	ClassName  string          `gorm:"column:class_name;type:varchar(160);not null" json:"class_name"`
	ClassState lifecycle.State `gorm:"column:class_state;type:varchar(16);not null" json:"class_state"`

	// ============ Remote wiring ============
	ClassTeacherRoleID    *string `gorm:"column:class_teacher_role_id;type:varchar(64)"    json:"class_teacher_role_id,omitempty"`
	ClassUnitID           *string `gorm:"column:class_unit_id;type:varchar(64)"            json:"class_unit_id,omitempty"`
	ClassArtifactID       *string `gorm:"column:class_artifact_id;type:varchar(64)"        json:"class_artifact_id,omitempty"`
	ClassSubjectsFolderID *string `gorm:"column:class_subjects_folder_id;type:varchar(64)" json:"class_subjects_folder_id,omitempty"`

	// ============ Relations (JSONB) ============
	ClassStudentList          datatypes.JSONSlice[ClassStudentEntry] `gorm:"column:class_student_list;type:jsonb"            json:"class_student_list"`
	ClassPreviousYearClassMap datatypes.JSONSlice[ClassYearLink]     `gorm:"column:class_previous_year_class_map;type:jsonb" json:"class_previous_year_class_map,omitempty"`
	ClassNextYearClassMap     datatypes.JSONSlice[ClassYearLink]     `gorm:"column:class_next_year_class_map;type:jsonb"     json:"class_next_year_class_map,omitempty"`

	// ============ Concurrency & audit ============
	ClassVersion   int            `gorm:"column:class_version;not null;default:0"                          json:"class_version"`
	ClassCreatedAt time.Time      `gorm:"column:class_created_at;type:timestamptz;not null;default:now()" json:"class_created_at"`
	ClassUpdatedAt time.Time      `gorm:"column:class_updated_at;type:timestamptz;not null;default:now()" json:"class_updated_at"`
	ClassDeletedAt gorm.DeletedAt `gorm:"column:class_deleted_at;index"                                    json:"class_deleted_at,omitempty"`
}

func (ClassModel) TableName() string { return "classes" }

// ActiveStudent returns the non-former entry for studentID, if any.
func (m *ClassModel) ActiveStudent(studentID uuid.UUID) (ClassStudentEntry, bool) {
	for _, e := range m.ClassStudentList {
		if e.StudentID == studentID && e.State != lifecycle.StateFormer {
			return e, true
		}
	}
	return ClassStudentEntry{}, false
}

// NumberTaken reports whether number is used by a non-former entry.
func (m *ClassModel) NumberTaken(number int) bool {
	for _, e := range m.ClassStudentList {
		if e.Number == number && e.State != lifecycle.StateFormer {
			return true
		}
	}
	return false
}

// HasActiveStudents reports whether any entry is non-former.
func (m *ClassModel) HasActiveStudents() bool {
	for _, e := range m.ClassStudentList {
		if e.State != lifecycle.StateFormer {
			return true
		}
	}
	return false
}
