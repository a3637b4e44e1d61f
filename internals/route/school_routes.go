// file: internals/route/school_routes.go
package route

import (
	"github.com/gofiber/fiber/v2"

	"schoolkit_backend/internals/constants"
	classController "schoolkit_backend/internals/features/school/classes/controller"
	classService "schoolkit_backend/internals/features/school/classes/service"
	instanceController "schoolkit_backend/internals/features/school/instance/controller"
	instanceService "schoolkit_backend/internals/features/school/instance/service"
	rpController "schoolkit_backend/internals/features/school/relatedpersons/controller"
	rpService "schoolkit_backend/internals/features/school/relatedpersons/service"
	studentController "schoolkit_backend/internals/features/school/students/controller"
	studentService "schoolkit_backend/internals/features/school/students/service"
	subjectController "schoolkit_backend/internals/features/school/subjects/controller"
	subjectService "schoolkit_backend/internals/features/school/subjects/service"
	teacherController "schoolkit_backend/internals/features/school/teachers/controller"
	teacherService "schoolkit_backend/internals/features/school/teachers/service"
	"schoolkit_backend/internals/features/school/workflow"
	yearController "schoolkit_backend/internals/features/school/years/controller"
	yearService "schoolkit_backend/internals/features/school/years/service"
	"schoolkit_backend/internals/middlewares"
)

// SchoolRoutes mounts every tenant-scoped workflow under /api/s/:school_id.
// The group is expected to already carry the auth middleware.
func SchoolRoutes(s fiber.Router, deps workflow.Deps) {
	// Coarse route gates; the per-entity authorization resolver still runs
	// inside the Load workflows.
	privileged := middlewares.RequireProfiles(constants.PrivilegedProfiles...)
	teaching := middlewares.RequireProfiles(constants.TeacherAndAbove...)

	instances := instanceController.New(instanceService.New(deps))
	s.Post("/instance", privileged, instances.Init)
	s.Patch("/instance", privileged, instances.Update)
	s.Post("/instance/state", privileged, instances.SetState)
	s.Get("/instance", instances.Get)

	years := yearController.New(yearService.New(deps))
	s.Post("/school-years", privileged, years.Create)
	s.Get("/school-years", years.List)
	s.Get("/school-years/:school_year_id", years.GetByID)
	s.Patch("/school-years/:school_year_id", privileged, years.Update)
	s.Post("/school-years/:school_year_id/state", privileged, years.SetState)
	s.Post("/school-years/:school_year_id/final-state", privileged, years.SetFinalState)

	classes := classController.New(classService.New(deps))
	s.Post("/classes", privileged, classes.Create)
	s.Get("/classes", classes.List)
	s.Get("/classes/:class_id", classes.GetByID)
	s.Patch("/classes/:class_id", teaching, classes.Update)
	s.Post("/classes/:class_id/state", teaching, classes.SetState)
	s.Post("/classes/:class_id/final-state", privileged, classes.SetFinalState)
	s.Post("/classes/:class_id/students", teaching, classes.AddStudents)
	s.Delete("/classes/:class_id/students", teaching, classes.RemoveStudent)

	subjects := subjectController.New(subjectService.New(deps))
	s.Post("/subjects", teaching, subjects.Create)
	s.Get("/subjects", subjects.List)
	s.Get("/subjects/:subject_id", subjects.GetByID)
	s.Patch("/subjects/:subject_id", teaching, subjects.Update)
	s.Post("/subjects/:subject_id/state", teaching, subjects.SetState)
	s.Post("/subjects/:subject_id/final-state", teaching, subjects.SetFinalState)
	s.Post("/subjects/:subject_id/students", teaching, subjects.AddStudents)
	s.Delete("/subjects/:subject_id/students", teaching, subjects.RemoveStudent)

	students := studentController.New(studentService.New(deps))
	s.Post("/students", teaching, students.Create)
	s.Get("/students", students.List)
	s.Get("/students/:student_id", students.GetByID)
	s.Patch("/students/:student_id", teaching, students.Update)
	s.Post("/students/:student_id/state", teaching, students.SetState)
	s.Post("/students/:student_id/final-state", privileged, students.SetFinalState)
	// Guardian-list changes stay open to StandardUsers: the workflow itself
	// requires the caller to be a legal guardian (or privileged).
	s.Post("/students/:student_id/related-persons", students.AddRelatedPersons)
	s.Patch("/students/:student_id/related-persons", students.SetRelatedPerson)
	s.Delete("/students/:student_id/related-persons", students.RemoveRelatedPerson)

	teachers := teacherController.New(teacherService.New(deps))
	s.Post("/teachers", privileged, teachers.Create)
	s.Get("/teachers", teachers.List)
	s.Get("/teachers/:teacher_id", teachers.GetByID)
	s.Patch("/teachers/:teacher_id", privileged, teachers.Update)
	s.Post("/teachers/:teacher_id/state", privileged, teachers.SetState)
	s.Post("/teachers/:teacher_id/final-state", privileged, teachers.SetFinalState)

	relatedPersons := rpController.New(rpService.New(deps))
	s.Get("/related-persons", relatedPersons.List)
	s.Get("/related-persons/:related_person_id", relatedPersons.GetByID)
	s.Patch("/related-persons/:related_person_id", privileged, relatedPersons.Update)
	s.Post("/related-persons/:related_person_id/state", privileged, relatedPersons.SetState)
	s.Post("/related-persons/:related_person_id/final-state", privileged, relatedPersons.SetFinalState)
}
