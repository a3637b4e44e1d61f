// file: internals/features/school/instance/dto/school_instance_dto.go
package dto

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
)

type InitSchoolInstanceRequest struct {
	SchoolInstanceCode string `json:"school_instance_code" validate:"required,min=1,max=80"`
	SchoolInstanceName string `json:"school_instance_name" validate:"required,min=1,max=160"`

	SchoolInstanceArtifactBaseURI string `json:"school_instance_artifact_base_uri" validate:"required,url"`
	SchoolInstancePersonBaseURI   string `json:"school_instance_person_base_uri"   validate:"required,url"`
	SchoolInstanceScriptBaseURI   string `json:"school_instance_script_base_uri"   validate:"required,url"`

	SchoolInstanceRelatedAppMap map[string]interface{} `json:"school_instance_related_app_map,omitempty"`
}

type UpdateSchoolInstanceRequest struct {
	SchoolInstanceName          *string                `json:"school_instance_name,omitempty" validate:"omitempty,min=1,max=160"`
	SchoolInstanceRelatedAppMap map[string]interface{} `json:"school_instance_related_app_map,omitempty"`
}

type SetSchoolInstanceStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type SchoolInstanceResponse struct {
	SchoolInstanceID       uuid.UUID       `json:"school_instance_id"`
	SchoolInstanceSchoolID uuid.UUID       `json:"school_instance_school_id"`
	SchoolInstanceCode     string          `json:"school_instance_code"`
	SchoolInstanceName     string          `json:"school_instance_name"`
	SchoolInstanceState    lifecycle.State `json:"school_instance_state"`

	SchoolInstanceArtifactBaseURI string  `json:"school_instance_artifact_base_uri"`
	SchoolInstancePersonBaseURI   string  `json:"school_instance_person_base_uri"`
	SchoolInstanceScriptBaseURI   string  `json:"school_instance_script_base_uri"`
	SchoolInstanceArtifactID      *string `json:"school_instance_artifact_id,omitempty"`
	SchoolInstanceUnitID          *string `json:"school_instance_unit_id,omitempty"`
	SchoolInstancePrincipalRoleID *string `json:"school_instance_principal_role_id,omitempty"`

	SchoolInstanceRelatedAppMap datatypes.JSONMap `json:"school_instance_related_app_map,omitempty"`
	SchoolInstanceVersion       int               `json:"school_instance_version"`
}

func ToSchoolInstanceResponse(m *model.SchoolInstanceModel) SchoolInstanceResponse {
	return SchoolInstanceResponse{
		SchoolInstanceID:              m.SchoolInstanceID,
		SchoolInstanceSchoolID:        m.SchoolInstanceSchoolID,
		SchoolInstanceCode:            m.SchoolInstanceCode,
		SchoolInstanceName:            m.SchoolInstanceName,
		SchoolInstanceState:           m.SchoolInstanceState,
		SchoolInstanceArtifactBaseURI: m.SchoolInstanceArtifactBaseURI,
		SchoolInstancePersonBaseURI:   m.SchoolInstancePersonBaseURI,
		SchoolInstanceScriptBaseURI:   m.SchoolInstanceScriptBaseURI,
		SchoolInstanceArtifactID:      m.SchoolInstanceArtifactID,
		SchoolInstanceUnitID:          m.SchoolInstanceUnitID,
		SchoolInstancePrincipalRoleID: m.SchoolInstancePrincipalRoleID,
		SchoolInstanceRelatedAppMap:   m.SchoolInstanceRelatedAppMap,
		SchoolInstanceVersion:         m.SchoolInstanceVersion,
	}
}
