// file: internals/features/school/subjects/dto/subject_dto.go
package dto

import (
	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/subjects/model"
)

/* =========================================================
   REQUESTS
========================================================= */

type CreateSubjectRequest struct {
	SubjectCode    string    `json:"subject_code" validate:"required,min=1,max=80"`
	SubjectName    string    `json:"subject_name" validate:"required,min=1,max=160"`
	SubjectClassID uuid.UUID `json:"subject_class_id" validate:"required"`

	SubjectTeacherIdentity string `json:"subject_teacher_identity,omitempty" validate:"omitempty,max=64"`
	SubjectDescription     string `json:"subject_description,omitempty" validate:"omitempty,max=1000"`

	// External course integrations keyed by course code; values are the
	// integration configs passed through to the script engine.
	SubjectAppMap map[string]interface{} `json:"subject_app_map,omitempty"`
}

type UpdateSubjectRequest struct {
	SubjectName        *string `json:"subject_name,omitempty" validate:"omitempty,min=1,max=160"`
	SubjectDescription *string `json:"subject_description,omitempty" validate:"omitempty,max=1000"`
}

type SetSubjectStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type AddSubjectStudentsRequest struct {
	StudentList []uuid.UUID `json:"student_list" validate:"required,min=1,max=64"`
}

type RemoveSubjectStudentRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

/* =========================================================
   RESPONSES
========================================================= */

type SubjectStudentResponse struct {
	StudentID uuid.UUID       `json:"student_id"`
	State     lifecycle.State `json:"state"`
	Courses   []string        `json:"courses,omitempty"`
}

type SubjectResponse struct {
	SubjectID      uuid.UUID       `json:"subject_id"`
	SubjectClassID uuid.UUID       `json:"subject_class_id"`
	SubjectCode    string          `json:"subject_code"`
	SubjectName    string          `json:"subject_name"`
	SubjectState   lifecycle.State `json:"subject_state"`

	SubjectTeacherRoleID *string `json:"subject_teacher_role_id,omitempty"`
	SubjectArtifactID    *string `json:"subject_artifact_id,omitempty"`

	SubjectStudentList []SubjectStudentResponse `json:"subject_student_list"`
	SubjectVersion     int                      `json:"subject_version"`
}

func ToSubjectResponse(m *model.SubjectModel) SubjectResponse {
	students := make([]SubjectStudentResponse, 0, len(m.SubjectStudentList))
	for _, e := range m.SubjectStudentList {
		students = append(students, SubjectStudentResponse{StudentID: e.StudentID, State: e.State, Courses: e.Courses})
	}
	return SubjectResponse{
		SubjectID:            m.SubjectID,
		SubjectClassID:       m.SubjectClassID,
		SubjectCode:          m.SubjectCode,
		SubjectName:          m.SubjectName,
		SubjectState:         m.SubjectState,
		SubjectTeacherRoleID: m.SubjectTeacherRoleID,
		SubjectArtifactID:    m.SubjectArtifactID,
		SubjectStudentList:   students,
		SubjectVersion:       m.SubjectVersion,
	}
}

func ToSubjectResponses(ms []model.SubjectModel) []SubjectResponse {
	out := make([]SubjectResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToSubjectResponse(&ms[i]))
	}
	return out
}
