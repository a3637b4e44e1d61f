// file: internals/features/school/teachers/dto/teacher_dto.go
package dto

import (
	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/teachers/model"
)

type CreateTeacherRequest struct {
	TeacherUUIdentity     string `json:"teacher_uu_identity" validate:"required,max=64"`
	TeacherPersonalCardID string `json:"teacher_personal_card_id,omitempty" validate:"omitempty,max=64"`
}

type UpdateTeacherRequest struct {
	TeacherPersonalCardID *string `json:"teacher_personal_card_id,omitempty" validate:"omitempty,max=64"`
}

type SetTeacherStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type TeacherResponse struct {
	TeacherID             uuid.UUID       `json:"teacher_id"`
	TeacherUUIdentity     string          `json:"teacher_uu_identity"`
	TeacherPersonalCardID *string         `json:"teacher_personal_card_id,omitempty"`
	TeacherState          lifecycle.State `json:"teacher_state"`
	TeacherArtifactID     *string         `json:"teacher_artifact_id,omitempty"`
	TeacherVersion        int             `json:"teacher_version"`
}

func ToTeacherResponse(m *model.TeacherModel) TeacherResponse {
	return TeacherResponse{
		TeacherID:             m.TeacherID,
		TeacherUUIdentity:     m.TeacherUUIdentity,
		TeacherPersonalCardID: m.TeacherPersonalCardID,
		TeacherState:          m.TeacherState,
		TeacherArtifactID:     m.TeacherArtifactID,
		TeacherVersion:        m.TeacherVersion,
	}
}

func ToTeacherResponses(ms []model.TeacherModel) []TeacherResponse {
	out := make([]TeacherResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToTeacherResponse(&ms[i]))
	}
	return out
}
