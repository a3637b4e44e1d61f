// file: internals/features/school/students/dto/student_dto.go
package dto

import (
	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/students/model"
)

/* =========================================================
   REQUESTS
========================================================= */

// RelatedPersonInput references an existing RelatedPerson by id, or by
// identity/card id for lazy creation during the workflow.
type RelatedPersonInput struct {
	RelatedPersonID *uuid.UUID `json:"related_person_id,omitempty"`
	UUIdentity      string     `json:"uu_identity,omitempty" validate:"omitempty,max=64"`
	PersonalCardID  string     `json:"personal_card_id,omitempty" validate:"omitempty,max=64"`

	IsLegalGuardian bool   `json:"is_legal_guardian"`
	RelationType    string `json:"relation_type" validate:"required,oneof=mother father grandparent sibling other"`
	Note            string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type CreateStudentRequest struct {
	StudentCode           string `json:"student_code" validate:"required,min=1,max=80"`
	StudentUUIdentity     string `json:"student_uu_identity,omitempty" validate:"omitempty,max=64"`
	StudentPersonalCardID string `json:"student_personal_card_id,omitempty" validate:"omitempty,max=64"`

	RelatedPersonList []RelatedPersonInput `json:"related_person_list" validate:"required,min=1,max=8,dive"`
}

type AddRelatedPersonsRequest struct {
	RelatedPersonList []RelatedPersonInput `json:"related_person_list" validate:"required,min=1,max=8,dive"`
}

type RemoveRelatedPersonRequest struct {
	RelatedPersonID uuid.UUID `json:"related_person_id" validate:"required"`
}

// SetRelatedPersonRequest rewrites the flags of one existing entry.
type SetRelatedPersonRequest struct {
	RelatedPersonID uuid.UUID `json:"related_person_id" validate:"required"`
	IsLegalGuardian bool      `json:"is_legal_guardian"`
	RelationType    string    `json:"relation_type" validate:"required,oneof=mother father grandparent sibling other"`
	Note            string    `json:"note,omitempty" validate:"omitempty,max=500"`
}

type UpdateStudentRequest struct {
	StudentPersonalCardID *string `json:"student_personal_card_id,omitempty" validate:"omitempty,max=64"`
}

type SetStudentStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

/* =========================================================
   RESPONSES
========================================================= */

type StudentResponse struct {
	StudentID             uuid.UUID       `json:"student_id"`
	StudentCode           string          `json:"student_code"`
	StudentUUIdentity     *string         `json:"student_uu_identity,omitempty"`
	StudentPersonalCardID *string         `json:"student_personal_card_id,omitempty"`
	StudentState          lifecycle.State `json:"student_state"`
	StudentArtifactID     *string         `json:"student_artifact_id,omitempty"`

	StudentRelatedPersonList []model.StudentRelatedPersonEntry `json:"student_related_person_list"`
	StudentVersion           int                               `json:"student_version"`
}

func ToStudentResponse(m *model.StudentModel) StudentResponse {
	return StudentResponse{
		StudentID:                m.StudentID,
		StudentCode:              m.StudentCode,
		StudentUUIdentity:        m.StudentUUIdentity,
		StudentPersonalCardID:    m.StudentPersonalCardID,
		StudentState:             m.StudentState,
		StudentArtifactID:        m.StudentArtifactID,
		StudentRelatedPersonList: m.StudentRelatedPersonList,
		StudentVersion:           m.StudentVersion,
	}
}

func ToStudentResponses(ms []model.StudentModel) []StudentResponse {
	out := make([]StudentResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToStudentResponse(&ms[i]))
	}
	return out
}
