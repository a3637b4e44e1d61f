// file: internals/features/school/teachers/controller/teacher_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/teachers/dto"
	"schoolkit_backend/internals/features/school/teachers/service"
	helper "schoolkit_backend/internals/helpers"
)

type TeacherController struct {
	Service *service.Service
}

func New(svc *service.Service) *TeacherController { return &TeacherController{Service: svc} }

// POST /api/s/:school_id/teachers
func (h *TeacherController) Create(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	teacher, warns, err := h.Service.Create(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "Teacher created", dto.ToTeacherResponse(teacher), warns)
}

// PATCH /api/s/:school_id/teachers/:teacher_id
func (h *TeacherController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	teacherID, err := helper.ParamUUID(c, "teacher_id")
	if err != nil {
		return err
	}
	var req dto.UpdateTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	teacher, warns, err := h.Service.Update(c.UserContext(), sess, teacherID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Teacher updated", dto.ToTeacherResponse(teacher), warns)
}

// POST /api/s/:school_id/teachers/:teacher_id/state
func (h *TeacherController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	teacherID, err := helper.ParamUUID(c, "teacher_id")
	if err != nil {
		return err
	}
	var req dto.SetTeacherStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	teacher, warns, err := h.Service.SetState(c.UserContext(), sess, teacherID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Teacher state updated", dto.ToTeacherResponse(teacher), warns)
}

// POST /api/s/:school_id/teachers/:teacher_id/final-state
func (h *TeacherController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	teacherID, err := helper.ParamUUID(c, "teacher_id")
	if err != nil {
		return err
	}
	teacher, warns, err := h.Service.SetFinalState(c.UserContext(), sess, teacherID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Teacher closed", dto.ToTeacherResponse(teacher), warns)
}

// GET /api/s/:school_id/teachers/:teacher_id
func (h *TeacherController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	teacherID, err := helper.ParamUUID(c, "teacher_id")
	if err != nil {
		return err
	}
	teacher, profiles, person, err := h.Service.Load(c.UserContext(), sess, teacherID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Teacher detail", fiber.Map{
		"teacher":  dto.ToTeacherResponse(teacher),
		"profiles": profiles,
		"person":   person,
	})
}

// GET /api/s/:school_id/teachers
func (h *TeacherController) List(c *fiber.Ctx) error {
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
	return helper.Success(c, "Teacher list", fiber.Map{
		"teachers":   dto.ToTeacherResponses(items),
		"pagination": helper.BuildPagination(p, total, len(items)),
	})
}
