// file: internals/features/school/years/dto/school_year_dto.go
package dto

import (
	"time"

	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/years/model"
)

type CreateSchoolYearRequest struct {
	SchoolYearCode      string    `json:"school_year_code" validate:"required,min=1,max=80"`
	SchoolYearName      string    `json:"school_year_name" validate:"required,min=1,max=160"`
	SchoolYearStartDate time.Time `json:"school_year_start_date" validate:"required"`
	SchoolYearEndDate   time.Time `json:"school_year_end_date" validate:"required,gtfield=SchoolYearStartDate"`
}

type UpdateSchoolYearRequest struct {
	SchoolYearName      *string    `json:"school_year_name,omitempty" validate:"omitempty,min=1,max=160"`
	SchoolYearStartDate *time.Time `json:"school_year_start_date,omitempty"`
	SchoolYearEndDate   *time.Time `json:"school_year_end_date,omitempty"`
}

type SetSchoolYearStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type SchoolYearResponse struct {
	SchoolYearID        uuid.UUID       `json:"school_year_id"`
	SchoolYearCode      string          `json:"school_year_code"`
	SchoolYearName      string          `json:"school_year_name"`
	SchoolYearState     lifecycle.State `json:"school_year_state"`
	SchoolYearStartDate time.Time       `json:"school_year_start_date"`
	SchoolYearEndDate   time.Time       `json:"school_year_end_date"`
	SchoolYearFolderID  *string         `json:"school_year_folder_id,omitempty"`
	SchoolYearArtifactID *string        `json:"school_year_artifact_id,omitempty"`
	SchoolYearVersion   int             `json:"school_year_version"`
}

func ToSchoolYearResponse(m *model.SchoolYearModel) SchoolYearResponse {
	return SchoolYearResponse{
		SchoolYearID:         m.SchoolYearID,
		SchoolYearCode:       m.SchoolYearCode,
		SchoolYearName:       m.SchoolYearName,
		SchoolYearState:      m.SchoolYearState,
		SchoolYearStartDate:  m.SchoolYearStartDate,
		SchoolYearEndDate:    m.SchoolYearEndDate,
		SchoolYearFolderID:   m.SchoolYearFolderID,
		SchoolYearArtifactID: m.SchoolYearArtifactID,
		SchoolYearVersion:    m.SchoolYearVersion,
	}
}

func ToSchoolYearResponses(ms []model.SchoolYearModel) []SchoolYearResponse {
	out := make([]SchoolYearResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToSchoolYearResponse(&ms[i]))
	}
	return out
}
