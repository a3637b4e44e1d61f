// file: internals/features/school/classes/controller/class_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/classes/dto"
	"schoolkit_backend/internals/features/school/classes/service"
	"schoolkit_backend/internals/features/school/storage"
	helper "schoolkit_backend/internals/helpers"
)

type ClassController struct {
	Service *service.Service
}

func New(svc *service.Service) *ClassController { return &ClassController{Service: svc} }

// POST /api/s/:school_id/classes
func (h *ClassController) Create(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	class, warns, err := h.Service.Create(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "Class created", dto.ToClassResponse(class), warns)
}

// PATCH /api/s/:school_id/classes/:class_id
func (h *ClassController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	var req dto.UpdateClassRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	class, warns, err := h.Service.Update(c.UserContext(), sess, classID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Class updated", dto.ToClassResponse(class), warns)
}

// POST /api/s/:school_id/classes/:class_id/state
func (h *ClassController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	var req dto.SetClassStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	class, warns, err := h.Service.SetState(c.UserContext(), sess, classID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Class state updated", dto.ToClassResponse(class), warns)
}

// POST /api/s/:school_id/classes/:class_id/final-state
func (h *ClassController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	class, warns, err := h.Service.SetFinalState(c.UserContext(), sess, classID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Class closed", dto.ToClassResponse(class), warns)
}

// POST /api/s/:school_id/classes/:class_id/students
func (h *ClassController) AddStudents(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	var req dto.AddStudentsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	class, warns, err := h.Service.AddStudents(c.UserContext(), sess, classID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Students added", dto.ToClassResponse(class), warns)
}

// DELETE /api/s/:school_id/classes/:class_id/students
func (h *ClassController) RemoveStudent(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	var req dto.RemoveStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	class, warns, err := h.Service.RemoveStudent(c.UserContext(), sess, classID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Student removed", dto.ToClassResponse(class), warns)
}

// GET /api/s/:school_id/classes/:class_id
func (h *ClassController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	classID, err := helper.ParamUUID(c, "class_id")
	if err != nil {
		return err
	}
	class, profiles, err := h.Service.Load(c.UserContext(), sess, classID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Class detail", fiber.Map{
		"class":    dto.ToClassResponse(class),
		"profiles": profiles,
	})
}

// GET /api/s/:school_id/classes
func (h *ClassController) List(c *fiber.Ctx) error {
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
	return helper.Success(c, "Class list", fiber.Map{
		"classes":    dto.ToClassResponses(items),
		"pagination": helper.BuildPagination(p, total, len(items)),
	})
}
