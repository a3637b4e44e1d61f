// file: internals/features/school/years/controller/school_year_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/years/dto"
	"schoolkit_backend/internals/features/school/years/service"
	helper "schoolkit_backend/internals/helpers"
)

type SchoolYearController struct {
	Service *service.Service
}

func New(svc *service.Service) *SchoolYearController { return &SchoolYearController{Service: svc} }

// POST /api/s/:school_id/school-years
func (h *SchoolYearController) Create(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateSchoolYearRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	year, warns, err := h.Service.Create(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "School year created", dto.ToSchoolYearResponse(year), warns)
}

// PATCH /api/s/:school_id/school-years/:school_year_id
func (h *SchoolYearController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	yearID, err := helper.ParamUUID(c, "school_year_id")
	if err != nil {
		return err
	}
	var req dto.UpdateSchoolYearRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	year, warns, err := h.Service.Update(c.UserContext(), sess, yearID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "School year updated", dto.ToSchoolYearResponse(year), warns)
}

// POST /api/s/:school_id/school-years/:school_year_id/state
func (h *SchoolYearController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	yearID, err := helper.ParamUUID(c, "school_year_id")
	if err != nil {
		return err
	}
	var req dto.SetSchoolYearStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	year, warns, err := h.Service.SetState(c.UserContext(), sess, yearID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "School year state updated", dto.ToSchoolYearResponse(year), warns)
}

// POST /api/s/:school_id/school-years/:school_year_id/final-state
func (h *SchoolYearController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	yearID, err := helper.ParamUUID(c, "school_year_id")
	if err != nil {
		return err
	}
	year, warns, err := h.Service.SetFinalState(c.UserContext(), sess, yearID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "School year closed", dto.ToSchoolYearResponse(year), warns)
}

// GET /api/s/:school_id/school-years/:school_year_id
func (h *SchoolYearController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	yearID, err := helper.ParamUUID(c, "school_year_id")
	if err != nil {
		return err
	}
	year, err := h.Service.Load(c.UserContext(), sess, yearID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "School year detail", dto.ToSchoolYearResponse(year))
}

// GET /api/s/:school_id/school-years
func (h *SchoolYearController) List(c *fiber.Ctx) error {
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
	return helper.Success(c, "School year list", fiber.Map{
		"school_years": dto.ToSchoolYearResponses(items),
		"pagination":   helper.BuildPagination(p, total, len(items)),
	})
}
