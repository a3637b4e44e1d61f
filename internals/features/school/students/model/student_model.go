// file: internals/features/school/students/model/student_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// StudentRelatedPersonEntry links a student to a related person. While the
// student is non-closed the list must hold 1..2 legal guardians.
type StudentRelatedPersonEntry struct {
	RelatedPersonID uuid.UUID `json:"related_person_id"`
	IsLegalGuardian bool      `json:"is_legal_guardian"`
	RelationType    string    `json:"relation_type"` // mother | father | grandparent | sibling | other
	Note            string    `json:"note,omitempty"`
}

type StudentModel struct {
	// ============ PK & tenant ============
	StudentID       uuid.UUID `gorm:"column:student_id;type:uuid;default:gen_random_uuid();primaryKey" json:"student_id"`
	StudentSchoolID uuid.UUID `gorm:"column:student_school_id;type:uuid;not null;index"                json:"student_school_id"`

	// ============ Identity & state ============
	StudentCode           string          `gorm:"column:student_code;type:varchar(80);not null;uniqueIndex:uq_student_code,where:student_deleted_at IS NULL" json:"student_code"`
	StudentUUIdentity     *string         `gorm:"column:student_uu_identity;type:varchar(64)"      json:"student_uu_identity,omitempty"`
	StudentPersonalCardID *string         `gorm:"column:student_personal_card_id;type:varchar(64)" json:"student_personal_card_id,omitempty"`
	StudentState          lifecycle.State `gorm:"column:student_state;type:varchar(16);not null"   json:"student_state"`

	// ============ Remote wiring ============
	StudentArtifactID *string `gorm:"column:student_artifact_id;type:varchar(64)" json:"student_artifact_id,omitempty"`

	// ============ Relations (JSONB) ============
	StudentRelatedPersonList datatypes.JSONSlice[StudentRelatedPersonEntry] `gorm:"column:student_related_person_list;type:jsonb" json:"student_related_person_list"`

	// ============ Concurrency & audit ============
	StudentVersion   int            `gorm:"column:student_version;not null;default:0"                          json:"student_version"`
	StudentCreatedAt time.Time      `gorm:"column:student_created_at;type:timestamptz;not null;default:now()" json:"student_created_at"`
	StudentUpdatedAt time.Time      `gorm:"column:student_updated_at;type:timestamptz;not null;default:now()" json:"student_updated_at"`
	StudentDeletedAt gorm.DeletedAt `gorm:"column:student_deleted_at;index"                                    json:"student_deleted_at,omitempty"`
}

func (StudentModel) TableName() string { return "students" }

// LegalGuardianCount counts entries flagged as legal guardians.
func LegalGuardianCount(list []StudentRelatedPersonEntry) int {
	n := 0
	for _, e := range list {
		if e.IsLegalGuardian {
			n++
		}
	}
	return n
}

// HasRelatedPerson reports whether id is present in the list.
func (m *StudentModel) HasRelatedPerson(id uuid.UUID) bool {
	for _, e := range m.StudentRelatedPersonList {
		if e.RelatedPersonID == id {
			return true
		}
	}
	return false
}
