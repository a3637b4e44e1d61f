// file: internals/features/school/instance/model/school_instance_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"schoolkit_backend/internals/features/school/lifecycle"
)

// SchoolInstanceModel is the per-tenant root record. One row per school_id
// (the awid); every other entity hangs off it.
type SchoolInstanceModel struct {
	// ============ PK & tenant ============
	SchoolInstanceID       uuid.UUID `gorm:"column:school_instance_id;type:uuid;default:gen_random_uuid();primaryKey" json:"school_instance_id"`
	SchoolInstanceSchoolID uuid.UUID `gorm:"column:school_instance_school_id;type:uuid;not null;uniqueIndex"          json:"school_instance_school_id"`

	// ============ Identity & state ============
	SchoolInstanceCode  string          `gorm:"column:school_instance_code;type:varchar(80);not null"  json:"school_instance_code"`
	SchoolInstanceName  string          `gorm:"column:school_instance_name;type:varchar(160);not null" json:"school_instance_name"`
	SchoolInstanceState lifecycle.State `gorm:"column:school_instance_state;type:varchar(16);not null" json:"school_instance_state"`

	// ============ Remote registry wiring ============
	SchoolInstanceArtifactBaseURI string  `gorm:"column:school_instance_artifact_base_uri;type:text" json:"school_instance_artifact_base_uri"`
	SchoolInstancePersonBaseURI   string  `gorm:"column:school_instance_person_base_uri;type:text"   json:"school_instance_person_base_uri"`
	SchoolInstanceScriptBaseURI   string  `gorm:"column:school_instance_script_base_uri;type:text"   json:"school_instance_script_base_uri"`
	SchoolInstanceArtifactID      *string `gorm:"column:school_instance_artifact_id;type:varchar(64)" json:"school_instance_artifact_id,omitempty"`
	SchoolInstanceUnitID          *string `gorm:"column:school_instance_unit_id;type:varchar(64)"     json:"school_instance_unit_id,omitempty"`
	SchoolInstancePrincipalRoleID *string `gorm:"column:school_instance_principal_role_id;type:varchar(64)" json:"school_instance_principal_role_id,omitempty"`

	// Registered external applications (course integrations etc), keyed by app code.
	SchoolInstanceRelatedAppMap datatypes.JSONMap `gorm:"column:school_instance_related_app_map;type:jsonb" json:"school_instance_related_app_map,omitempty"`

	// ============ Concurrency & audit ============
	SchoolInstanceVersion   int            `gorm:"column:school_instance_version;not null;default:0"                          json:"school_instance_version"`
	SchoolInstanceCreatedAt time.Time      `gorm:"column:school_instance_created_at;type:timestamptz;not null;default:now()" json:"school_instance_created_at"`
	SchoolInstanceUpdatedAt time.Time      `gorm:"column:school_instance_updated_at;type:timestamptz;not null;default:now()" json:"school_instance_updated_at"`
	SchoolInstanceDeletedAt gorm.DeletedAt `gorm:"column:school_instance_deleted_at;index"                                    json:"school_instance_deleted_at,omitempty"`
}

func (SchoolInstanceModel) TableName() string { return "school_instances" }
