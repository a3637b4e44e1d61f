// file: internals/features/school/relatedpersons/model/related_person_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// RelatedPersonModel can be referenced by multiple students and cannot close
// while any non-closed student still references it.
type RelatedPersonModel struct {
	// ============ PK & tenant ============
	RelatedPersonID       uuid.UUID `gorm:"column:related_person_id;type:uuid;default:gen_random_uuid();primaryKey" json:"related_person_id"`
	RelatedPersonSchoolID uuid.UUID `gorm:"column:related_person_school_id;type:uuid;not null;index"                json:"related_person_school_id"`

	// ============ Identity & state ============
	RelatedPersonUUIdentity     *string         `gorm:"column:related_person_uu_identity;type:varchar(64)"      json:"related_person_uu_identity,omitempty"`
	RelatedPersonPersonalCardID *string         `gorm:"column:related_person_personal_card_id;type:varchar(64)" json:"related_person_personal_card_id,omitempty"`
	RelatedPersonState          lifecycle.State `gorm:"column:related_person_state;type:varchar(16);not null"   json:"related_person_state"`

	// ============ Remote wiring ============
	RelatedPersonArtifactID *string `gorm:"column:related_person_artifact_id;type:varchar(64)" json:"related_person_artifact_id,omitempty"`

	// ============ Concurrency & audit ============
	RelatedPersonVersion   int            `gorm:"column:related_person_version;not null;default:0"                          json:"related_person_version"`
	RelatedPersonCreatedAt time.Time      `gorm:"column:related_person_created_at;type:timestamptz;not null;default:now()" json:"related_person_created_at"`
	RelatedPersonUpdatedAt time.Time      `gorm:"column:related_person_updated_at;type:timestamptz;not null;default:now()" json:"related_person_updated_at"`
	RelatedPersonDeletedAt gorm.DeletedAt `gorm:"column:related_person_deleted_at;index"                                    json:"related_person_deleted_at,omitempty"`
}

func (RelatedPersonModel) TableName() string { return "related_persons" }
