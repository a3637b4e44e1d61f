// file: internals/features/school/students/controller/student_controller.go
package controller

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/students/dto"
	"schoolkit_backend/internals/features/school/students/service"
	helper "schoolkit_backend/internals/helpers"
)

type StudentController struct {
	Service *service.Service
}

func New(svc *service.Service) *StudentController { return &StudentController{Service: svc} }

// POST /api/s/:school_id/students
func (h *StudentController) Create(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.Create(c.UserContext(), sess, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusCreated, "Student created", dto.ToStudentResponse(student), warns)
}

// POST /api/s/:school_id/students/:student_id/related-persons
func (h *StudentController) AddRelatedPersons(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	var req dto.AddRelatedPersonsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.AddRelatedPersons(c.UserContext(), sess, studentID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related persons added", dto.ToStudentResponse(student), warns)
}

// DELETE /api/s/:school_id/students/:student_id/related-persons
func (h *StudentController) RemoveRelatedPerson(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	var req dto.RemoveRelatedPersonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.RemoveRelatedPerson(c.UserContext(), sess, studentID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related person removed", dto.ToStudentResponse(student), warns)
}

// PATCH /api/s/:school_id/students/:student_id/related-persons
func (h *StudentController) SetRelatedPerson(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	var req dto.SetRelatedPersonRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.SetRelatedPerson(c.UserContext(), sess, studentID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Related person updated", dto.ToStudentResponse(student), warns)
}

// PATCH /api/s/:school_id/students/:student_id
func (h *StudentController) Update(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	var req dto.UpdateStudentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.Update(c.UserContext(), sess, studentID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Student updated", dto.ToStudentResponse(student), warns)
}

// POST /api/s/:school_id/students/:student_id/state
func (h *StudentController) SetState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	var req dto.SetStudentStateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid payload")
	}
	if err := helper.Validate(req); err != nil {
		return helper.ValidationError(c, err)
	}
	student, warns, err := h.Service.SetState(c.UserContext(), sess, studentID, req)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Student state updated", dto.ToStudentResponse(student), warns)
}

// POST /api/s/:school_id/students/:student_id/final-state
func (h *StudentController) SetFinalState(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	student, warns, err := h.Service.SetFinalState(c.UserContext(), sess, studentID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.SuccessWithWarnings(c, fiber.StatusOK, "Student closed", dto.ToStudentResponse(student), warns)
}

// GET /api/s/:school_id/students/:student_id
func (h *StudentController) GetByID(c *fiber.Ctx) error {
	sess, err := helper.ResolveSchoolContext(c)
	if err != nil {
		return err
	}
	studentID, err := helper.ParamUUID(c, "student_id")
	if err != nil {
		return err
	}
	student, profiles, person, err := h.Service.Load(c.UserContext(), sess, studentID)
	if err != nil {
		return helper.FromAppError(c, err)
	}
	return helper.Success(c, "Student detail", fiber.Map{
		"student":  dto.ToStudentResponse(student),
		"profiles": profiles,
		"person":   person,
	})
}

// GET /api/s/:school_id/students
func (h *StudentController) List(c *fiber.Ctx) error {
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
	return helper.Success(c, "Student list", fiber.Map{
		"students":   dto.ToStudentResponses(items),
		"pagination": helper.BuildPagination(p, total, len(items)),
	})
}
