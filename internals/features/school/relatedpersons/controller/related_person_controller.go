// file: internals/features/school/relatedpersons/controller/related_person_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/relatedpersons/dto"
	"schoolkit_backend/internals/features/school/relatedpersons/service"
	"schoolkit_backend/internals/features/school/storage"
	helper "schoolkit_backend/internals/helpers"
)

// Related persons are created through the student workflows, so this
// controller only exposes read, update and lifecycle endpoints.
type RelatedPersonController struct {
	Service *service.Service
}

func New(svc *service.Service) *RelatedPersonController {
	return &RelatedPersonController{Service: svc}
}

// PATCH /api/s/:school_id/related-persons/:related_person_id
func (h *RelatedPersonController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	rpID, err := helper.ParamUUID(c, "related_person_id")
	if err != nil {
		return err
	}
	var req dto.UpdateRelatedPersonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	rp, warns, err := h.Service.Update(c.UserContext(), sess, rpID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related person updated", dto.ToRelatedPersonResponse(rp), warns)
}

// POST /api/s/:school_id/related-persons/:related_person_id/state
func (h *RelatedPersonController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	rpID, err := helper.ParamUUID(c, "related_person_id")
	if err != nil {
		return err
	}
	var req dto.SetRelatedPersonStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	rp, warns, err := h.Service.SetState(c.UserContext(), sess, rpID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related person state updated", dto.ToRelatedPersonResponse(rp), warns)
}

// POST /api/s/:school_id/related-persons/:related_person_id/final-state
func (h *RelatedPersonController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	rpID, err := helper.ParamUUID(c, "related_person_id")
	if err != nil {
		return err
	}
	rp, warns, err := h.Service.SetFinalState(c.UserContext(), sess, rpID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related person closed", dto.ToRelatedPersonResponse(rp), warns)
}

// GET /api/s/:school_id/related-persons/:related_person_id
func (h *RelatedPersonController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	rpID, err := helper.ParamUUID(c, "related_person_id")
	if err != nil {
		return err
	}
	rp, profiles, person, err := h.Service.Load(c.UserContext(), sess, rpID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Related person detail", fiber.Map{
		"related_person": dto.ToRelatedPersonResponse(rp),
		"profiles":       profiles,
		"person":         person,
	})
}

// GET /api/s/:school_id/related-persons
func (h *RelatedPersonController) List(c *fiber.Ctx) error {
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
	return helper.Success(c, "Related person list", fiber.Map{
		"related_persons": dto.ToRelatedPersonResponses(items),
		"pagination":      helper.BuildPagination(p, total, len(items)),
	})
}
