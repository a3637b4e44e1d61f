// file: internals/features/school/classes/dto/class_dto.go
package dto

import (
	"github.com/google/uuid"

	"schoolkit_backend/internals/features/school/classes/model"
	"schoolkit_backend/internals/features/school/lifecycle"
)

/* =========================================================
   REQUESTS
========================================================= */

type CreateClassRequest struct {
	ClassCode         string    `json:"class_code" validate:"required,min=1,max=80"`
	ClassName         string    `json:"class_name" validate:"required,min=1,max=160"`
	ClassSchoolYearID uuid.UUID `json:"class_school_year_id" validate:"required"`

	// Identity cast as the class teacher. Defaults to the caller.
	ClassTeacherIdentity string `json:"class_teacher_identity,omitempty" validate:"omitempty,max=64"`

	ClassDescription string `json:"class_description,omitempty" validate:"omitempty,max=1000"`

	// Prior-year classes this one continues from. Unknown ids are dropped
	// with a warning instead of failing the whole creation.
	ClassPreviousYearClassList []uuid.UUID `json:"class_previous_year_class_list,omitempty" validate:"omitempty,max=16"`
}

type UpdateClassRequest struct {
	ClassName        *string `json:"class_name,omitempty" validate:"omitempty,min=1,max=160"`
	ClassDescription *string `json:"class_description,omitempty" validate:"omitempty,max=1000"`
}

type SetClassStateRequest struct {
	State string `json:"state" validate:"required,max=16"`
}

type AddStudentItem struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	Number    int       `json:"number" validate:"required,min=1,max=9999"`
}

type AddStudentsRequest struct {
	StudentList []AddStudentItem `json:"student_list" validate:"required,min=1,max=64,dive"`
}

type RemoveStudentRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
}

/* =========================================================
   RESPONSES
========================================================= */

type ClassStudentResponse struct {
	StudentID uuid.UUID       `json:"student_id"`
	Number    int             `json:"number"`
	State     lifecycle.State `json:"state"`
}

type ClassResponse struct {
	ClassID           uuid.UUID       `json:"class_id"`
	ClassSchoolYearID uuid.UUID       `json:"class_school_year_id"`
	ClassCode         string          `json:"class_code"`
	ClassName         string          `json:"class_name"`
	ClassState        lifecycle.State `json:"class_state"`

	ClassTeacherRoleID    *string `json:"class_teacher_role_id,omitempty"`
	ClassUnitID           *string `json:"class_unit_id,omitempty"`
	ClassArtifactID       *string `json:"class_artifact_id,omitempty"`
	ClassSubjectsFolderID *string `json:"class_subjects_folder_id,omitempty"`

	ClassStudentList          []ClassStudentResponse `json:"class_student_list"`
	ClassPreviousYearClassMap []model.ClassYearLink  `json:"class_previous_year_class_map,omitempty"`
	ClassNextYearClassMap     []model.ClassYearLink  `json:"class_next_year_class_map,omitempty"`

	ClassVersion int `json:"class_version"`
}

func ToClassResponse(m *model.ClassModel) ClassResponse {
	students := make([]ClassStudentResponse, 0, len(m.ClassStudentList))
	for _, e := range m.ClassStudentList {
		students = append(students, ClassStudentResponse{StudentID: e.StudentID, Number: e.Number, State: e.State})
	}
	return ClassResponse{
		ClassID:                   m.ClassID,
		ClassSchoolYearID:         m.ClassSchoolYearID,
		ClassCode:                 m.ClassCode,
		ClassName:                 m.ClassName,
		ClassState:                m.ClassState,
		ClassTeacherRoleID:        m.ClassTeacherRoleID,
		ClassUnitID:               m.ClassUnitID,
		ClassArtifactID:           m.ClassArtifactID,
		ClassSubjectsFolderID:     m.ClassSubjectsFolderID,
		ClassStudentList:          students,
		ClassPreviousYearClassMap: m.ClassPreviousYearClassMap,
		ClassNextYearClassMap:     m.ClassNextYearClassMap,
		ClassVersion:              m.ClassVersion,
	}
}

func ToClassResponses(ms []model.ClassModel) []ClassResponse {
	out := make([]ClassResponse, 0, len(ms))
	for i := range ms {
		out = append(out, ToClassResponse(&ms[i]))
	}
	return out
}
