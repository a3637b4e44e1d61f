// file: internals/features/school/instance/controller/school_instance_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/instance/dto"
	"schoolkit_backend/internals/features/school/instance/service"
	helper "schoolkit_backend/internals/helpers"
)

type SchoolInstanceController struct {
	Service *service.Service
}

func New(svc *service.Service) *SchoolInstanceController {
	return &SchoolInstanceController{Service: svc}
}

// POST /api/s/:school_id/instance
func (h *SchoolInstanceController) Init(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.InitSchoolInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	inst, warns, err := h.Service.Init(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "School instance initialized", dto.ToSchoolInstanceResponse(inst), warns)
}

// PATCH /api/s/:school_id/instance
func (h *SchoolInstanceController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateSchoolInstanceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	inst, warns, err := h.Service.Update(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "School instance updated", dto.ToSchoolInstanceResponse(inst), warns)
}

// POST /api/s/:school_id/instance/state
func (h *SchoolInstanceController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.SetSchoolInstanceStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	inst, warns, err := h.Service.SetState(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "School instance state updated", dto.ToSchoolInstanceResponse(inst), warns)
}

// GET /api/s/:school_id/instance
func (h *SchoolInstanceController) Get(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	inst, err := h.Service.Load(c.UserContext(), sess)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "School instance detail", dto.ToSchoolInstanceResponse(inst))
}
