// file: internals/features/school/subjects/controller/subject_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/subjects/dto"
	"schoolkit_backend/internals/features/school/subjects/service"
	helper "schoolkit_backend/internals/helpers"
)

type SubjectController struct {
	Service *service.Service
}

func New(svc *service.Service) *SubjectController { return &SubjectController{Service: svc} }

// POST /api/s/:school_id/subjects
func (h *SubjectController) Create(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	subject, warns, err := h.Service.Create(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "Subject created", dto.ToSubjectResponse(subject), warns)
}

// PATCH /api/s/:school_id/subjects/:subject_id
func (h *SubjectController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	var req dto.UpdateSubjectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	subject, warns, err := h.Service.Update(c.UserContext(), sess, subjectID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Subject updated", dto.ToSubjectResponse(subject), warns)
}

// POST /api/s/:school_id/subjects/:subject_id/state
func (h *SubjectController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	var req dto.SetSubjectStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	subject, warns, err := h.Service.SetState(c.UserContext(), sess, subjectID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Subject state updated", dto.ToSubjectResponse(subject), warns)
}

// POST /api/s/:school_id/subjects/:subject_id/final-state
func (h *SubjectController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	subject, warns, err := h.Service.SetFinalState(c.UserContext(), sess, subjectID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Subject closed", dto.ToSubjectResponse(subject), warns)
}

// POST /api/s/:school_id/subjects/:subject_id/students
func (h *SubjectController) AddStudents(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	var req dto.AddSubjectStudentsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	subject, warns, err := h.Service.AddStudents(c.UserContext(), sess, subjectID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Students added", dto.ToSubjectResponse(subject), warns)
}

// DELETE /api/s/:school_id/subjects/:subject_id/students
func (h *SubjectController) RemoveStudent(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	var req dto.RemoveSubjectStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	subject, warns, err := h.Service.RemoveStudent(c.UserContext(), sess, subjectID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Student removed", dto.ToSubjectResponse(subject), warns)
}

// GET /api/s/:school_id/subjects/:subject_id
func (h *SubjectController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	subjectID, err := helper.ParamUUID(c, "subject_id")
	if err != nil {
		return err
	}
	subject, profiles, err := h.Service.Load(c.UserContext(), sess, subjectID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Subject detail", fiber.Map{
		"subject":  dto.ToSubjectResponse(subject),
		"profiles": profiles,
	})
}

// GET /api/s/:school_id/subjects
func (h *SubjectController) List(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	p := helper.ResolvePaging(c, 20, 100)
	items, total, err := h.Service.List(c.UserContext(), sess, storage.ListFilter{
		State:  c.Query("state"),
		Search: c.Query("search"),
		Offset: p.Offset,
		Limit:  p.Limit,
	})
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Subject list", fiber.Map{
		"subjects":   dto.ToSubjectResponses(items),
		"pagination": helper.BuildPagination(p, total, len(items)),
	})
}
