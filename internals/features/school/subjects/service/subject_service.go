// file: internals/features/school/subjects/service/subject_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"schoolkit_backend/internals/configs"
	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/consistency"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/subjects/dto"
	"schoolkit_backend/internals/features/school/subjects/model"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	"schoolkit_backend/internals/features/school/workflow"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/helpers/saga"
	"schoolkit_backend/internals/registry"
)

type Service struct {
	workflow.Deps
}

func New(d workflow.Deps) *Service { return &Service{Deps: d} }

/* =========================================================
   CREATE
========================================================= */

// Create mirrors the class-creation shape with a shorter chain: the subject
// lives under its class's subjects folder and gets an artifact-to-artifact
// relation to the class so the registry knows who owns it.
func (s *Service) Create(ctx context.Context, sess helper.Session, req dto.CreateSubjectRequest) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, req.SubjectClassID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindClass, class.ClassState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	if _, err := s.Stores.Subjects.GetByCode(ctx, sess.SchoolID, req.SubjectCode); err == nil {
		return nil, warns, errs.Conflict("subjectWithCodeAlreadyExist", fmt.Sprintf("subject with code %q already exists", req.SubjectCode))
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	teacherIdentity := req.SubjectTeacherIdentity
	if teacherIdentity == "" {
		teacherIdentity = sess.Identity
	}
	if err := s.ensureTeacher(ctx, reg, sess.SchoolID, teacherIdentity, warns); err != nil {
		return nil, warns, err
	}

	location := ""
	if class.ClassSubjectsFolderID != nil {
		location = *class.ClassSubjectsFolderID
	} else if class.ClassUnitID != nil {
		location = *class.ClassUnitID
	}

	var (
		role     *registry.Role
		subject  *model.SubjectModel
		artifact *registry.Artifact
	)

	steps := []saga.Step{
		{
			// Orphaned on later failure, same gap as the class workflow.
			Name: "role/create",
			Run: func(ctx context.Context) error {
				role, err = reg.RoleCreate(ctx, "Subject teacher "+req.SubjectCode, location)
				if err != nil {
					return err
				}
				return reg.RoleAddCast(ctx, role.ID, teacherIdentity)
			},
		},
		{
			Name: "subject/createLocal",
			Run: func(ctx context.Context) error {
				subject = &model.SubjectModel{
					SubjectSchoolID:      sess.SchoolID,
					SubjectClassID:       class.ClassID,
					SubjectCode:          req.SubjectCode,
					SubjectName:          req.SubjectName,
					SubjectState:         lifecycle.StateInitial,
					SubjectTeacherRoleID: &role.ID,
					SubjectStudentList:   []model.SubjectStudentEntry{},
					SubjectAppMap:        datatypes.JSONMap(req.SubjectAppMap),
				}
				return s.Stores.Subjects.Create(ctx, subject)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Subjects.Delete(ctx, sess.SchoolID, subject.SubjectID)
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeSubject,
					Name:           req.SubjectName,
					Code:           req.SubjectCode,
					Desc:           req.SubjectDescription,
					Location:       location,
					OwnerObjectID:  subject.SubjectID.String(),
					OwnerObjectURI: fmt.Sprintf("schoolkit://%s/subject/%s", sess.SchoolID, subject.SubjectID),
					CompetentRole:  role.ID,
				})
				return err
			},
			Compensate: func(ctx context.Context) error {
				if _, err := reg.ArtifactSetState(ctx, artifact.ID, string(lifecycle.StateClosed), "creation rolled back"); err != nil {
					return err
				}
				return reg.ArtifactDelete(ctx, artifact.ID)
			},
		},
		{
			Name: "aar/create",
			Run: func(ctx context.Context) error {
				if class.ClassArtifactID == nil {
					return nil
				}
				return reg.RelationCreate(ctx, *class.ClassArtifactID, artifact.ID)
			},
			Compensate: func(ctx context.Context) error {
				if class.ClassArtifactID == nil {
					return nil
				}
				return reg.RelationDelete(ctx, *class.ClassArtifactID, "aar", artifact.ID)
			},
		},
		{
			Name: "subject/updateLocal",
			Run: func(ctx context.Context) error {
				subject.SubjectArtifactID = &artifact.ID
				return s.Stores.Subjects.Update(ctx, subject)
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}
	return subject, warns, nil
}

func (s *Service) ensureTeacher(ctx context.Context, reg registry.Registry, schoolID uuid.UUID, identity string, warns errs.Warnings) error {
	role, err := reg.RoleGet(ctx, identity)
	if err != nil {
		return err
	}
	if lifecycle.State(role.State) != lifecycle.StateActive {
		return errs.StateConflict("teacherRoleIsNotInProperState", fmt.Sprintf("role of %q is %q, expected active", identity, role.State))
	}
	if _, err := s.Stores.Teachers.GetByIdentity(ctx, schoolID, identity); err == nil {
		warns.Addf("teacherAlreadyExists", "teacher record for %q already exists", identity)
		return nil
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return err
	}
	return s.Stores.Teachers.Create(ctx, &teacherModel.TeacherModel{
		TeacherSchoolID:   schoolID,
		TeacherUUIdentity: identity,
		TeacherState:      lifecycle.StateActive,
	})
}

/* =========================================================
   ENROLLMENT
========================================================= */

// AddStudents admits only students already active in the owning class. On
// success every registered course integration gets one fire-and-forget
// registration request per student; those never fail the enrollment.
func (s *Service) AddStudents(ctx context.Context, sess helper.Session, subjectID uuid.UUID, req dto.AddSubjectStudentsRequest) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindSubject, subject.SubjectState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	courses := make([]string, 0, len(subject.SubjectAppMap))
	for code := range subject.SubjectAppMap {
		courses = append(courses, code)
	}

	added := make([]uuid.UUID, 0, len(req.StudentList))
	for _, studentID := range req.StudentList {
		if _, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID); err != nil {
			warns.Addf(workflow.WarnCode("addStudents", "studentDoesNotExist"), "student %s: %v", studentID, err)
			continue
		}
		if err := s.Engine.CheckSubjectEnrollment(ctx, subject, studentID); err != nil {
			warns.Addf(workflow.WarnCode("addStudents", errs.CodeOf(err)), "student %s: %v", studentID, err)
			continue
		}

		replaced := false
		for i, e := range subject.SubjectStudentList {
			if e.StudentID == studentID {
				subject.SubjectStudentList[i].State = lifecycle.StateActive
				subject.SubjectStudentList[i].Courses = courses
				replaced = true
				break
			}
		}
		if !replaced {
			subject.SubjectStudentList = append(subject.SubjectStudentList, model.SubjectStudentEntry{
				StudentID: studentID,
				State:     lifecycle.StateActive,
				Courses:   courses,
			})
		}
		added = append(added, studentID)
	}

	if len(added) == 0 {
		return nil, warns, errs.Conflict("noStudentAdded", "no candidate passed the enrollment checks")
	}
	if err := s.Stores.Subjects.Update(ctx, subject); err != nil {
		return nil, warns, err
	}

	if len(courses) > 0 {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("courseRegistrationNotTriggered", "%v", err)
			return subject, warns, nil
		}
		for _, studentID := range added {
			for _, course := range courses {
				if err := reg.ScriptRun(ctx, constants.ScriptCourseRegister, configs.DefaultScriptConsoleURI, map[string]interface{}{
					"subjectId": subject.SubjectID.String(),
					"studentId": studentID.String(),
					"course":    course,
				}); err != nil {
					warns.Addf("courseRegistrationFailed", "student %s course %s: %v", studentID, course, err)
				}
			}
		}
	}
	return subject, warns, nil
}

// RemoveStudent soft-removes the entry and fires course deregistrations for
// whatever courses the entry carried. Absent or former entries warn only.
func (s *Service) RemoveStudent(ctx context.Context, sess helper.Session, subjectID uuid.UUID, req dto.RemoveSubjectStudentRequest) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindSubject, subject.SubjectState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	var courses []string
	if e, ok := subject.ActiveStudent(req.StudentID); ok {
		courses = e.Courses
	}

	list, changed := consistency.MarkSubjectStudentFormer(subject.SubjectStudentList, req.StudentID)
	if !changed {
		warns.Addf(workflow.WarnCode("removeStudent", "studentIsNotInSubject"), "student %s is not an active member of subject %s", req.StudentID, subjectID)
		return subject, warns, nil
	}
	subject.SubjectStudentList = list
	if err := s.Stores.Subjects.Update(ctx, subject); err != nil {
		return nil, warns, err
	}

	if len(courses) > 0 {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("courseDeregistrationNotTriggered", "%v", err)
			return subject, warns, nil
		}
		for _, course := range courses {
			if err := reg.ScriptRun(ctx, constants.ScriptCourseDeregister, configs.DefaultScriptConsoleURI, map[string]interface{}{
				"subjectId": subject.SubjectID.String(),
				"studentId": req.StudentID.String(),
				"course":    course,
			}); err != nil {
				warns.Addf("courseDeregistrationFailed", "student %s course %s: %v", req.StudentID, course, err)
			}
		}
	}
	return subject, warns, nil
}

/* =========================================================
   STATE
========================================================= */

func (s *Service) SetState(ctx context.Context, sess helper.Session, subjectID uuid.UUID, req dto.SetSubjectStateRequest) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindSubject, subject.SubjectState, to); err != nil {
		return nil, warns, err
	}

	subject.SubjectState = to
	if err := s.Stores.Subjects.Update(ctx, subject); err != nil {
		return nil, warns, err
	}

	if subject.SubjectArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "subject %s: %v", subjectID, err)
			return subject, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *subject.SubjectArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "subject %s: %v", subjectID, err)
		}
	}
	return subject, warns, nil
}

// SetFinalState refuses to close a subject that still carries active students
// or active incoming artifact relations. Remote close and local close are not
// compensated against each other.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, subjectID uuid.UUID) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindSubject, subject.SubjectState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}
	if subject.HasActiveStudents() {
		return nil, warns, errs.StateConflict("subjectHasActiveStudents", fmt.Sprintf("subject %s still has active students", subjectID))
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}
	if subject.SubjectArtifactID != nil {
		rels, err := reg.RelationListByArtifactB(ctx, *subject.SubjectArtifactID)
		if err != nil {
			return nil, warns, err
		}
		for _, rel := range rels {
			// The owning class keeps its relation until the class itself
			// closes; only foreign active relations block.
			if subject.SubjectClassID != uuid.Nil && isOwningClassRelation(ctx, s.Stores, sess.SchoolID, subject.SubjectClassID, rel.ArtifactA) {
				continue
			}
			if lifecycle.State(rel.ArtifactAState) != lifecycle.StateClosed {
				return nil, warns, errs.StateConflict("subjectHasActiveRelatedArtifacts", fmt.Sprintf("artifact %s still relates to this subject", rel.ArtifactA))
			}
		}
		if _, err := reg.ArtifactSetState(ctx, *subject.SubjectArtifactID, string(lifecycle.StateClosed), "subject closed"); err != nil {
			return nil, warns, err
		}
	}

	subject.SubjectState = lifecycle.StateClosed
	if err := s.Stores.Subjects.Update(ctx, subject); err != nil {
		return nil, warns, err
	}
	return subject, warns, nil
}

func isOwningClassRelation(ctx context.Context, stores storage.Stores, schoolID, classID uuid.UUID, artifactA string) bool {
	class, err := stores.Classes.Get(ctx, schoolID, classID)
	if err != nil || class.ClassArtifactID == nil {
		return false
	}
	return *class.ClassArtifactID == artifactA
}

/* =========================================================
   UPDATE / LOAD / LIST
========================================================= */

func (s *Service) Update(ctx context.Context, sess helper.Session, subjectID uuid.UUID, req dto.UpdateSubjectRequest) (*model.SubjectModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindSubject, subject.SubjectState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	if req.SubjectName != nil {
		subject.SubjectName = *req.SubjectName
	}
	if err := s.Stores.Subjects.Update(ctx, subject); err != nil {
		return nil, warns, err
	}

	if subject.SubjectArtifactID != nil && req.SubjectName != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactAttributesNotPropagated", "subject %s: %v", subjectID, err)
			return subject, warns, nil
		}
		desc := ""
		if req.SubjectDescription != nil {
			desc = *req.SubjectDescription
		}
		if err := reg.ArtifactSetBasicAttributes(ctx, *subject.SubjectArtifactID, subject.SubjectName, subject.SubjectCode, desc); err != nil {
			warns.Addf("artifactAttributesNotPropagated", "subject %s: %v", subjectID, err)
		}
	}
	return subject, warns, nil
}

func (s *Service) Load(ctx context.Context, sess helper.Session, subjectID uuid.UUID) (*model.SubjectModel, []string, error) {
	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, nil, err
	}
	subject, err := s.Stores.Subjects.Get(ctx, sess.SchoolID, subjectID)
	if err != nil {
		return nil, nil, err
	}
	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, nil, err
	}

	d := authz.Descriptor{TeacherRoles: map[string]string{}}
	if subject.SubjectTeacherRoleID != nil {
		d.TeacherRoles[*subject.SubjectTeacherRoleID] = constants.ProfileSubjectTeacher
	}
	if student, err := s.Stores.Students.GetByIdentity(ctx, sess.SchoolID, sess.Identity); err == nil {
		if _, ok := subject.ActiveStudent(student.StudentID); ok {
			d.StudentIdentity = sess.Identity
		}
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, nil, err
	}

	profiles, err := s.Authz.Resolve(ctx, reg, sess.SchoolID, workflow.Caller(sess), d)
	if err != nil {
		return nil, nil, err
	}
	return subject, profiles, nil
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.SubjectModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.Subjects.List(ctx, sess.SchoolID, f)
}
