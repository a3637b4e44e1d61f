// file: internals/features/school/classes/service/class_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/classes/dto"
	"schoolkit_backend/internals/features/school/classes/model"
	"schoolkit_backend/internals/features/school/consistency"
	"schoolkit_backend/internals/features/school/lifecycle"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	"schoolkit_backend/internals/features/school/workflow"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/helpers/saga"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/registry"
)

type Service struct {
	workflow.Deps
}

func New(d workflow.Deps) *Service { return &Service{Deps: d} }

/* =========================================================
   CREATE
========================================================= */

// Create runs the class-creation workflow: gate tenant and school year, claim
// the code, mint the remote unit/role pair for the class teacher, persist the
// class, mirror it into the artifact registry and wire the year-to-year links.
// Remote failures after the local insert roll the insert back; rollback
// failures are reported as warnings next to the original error.
func (s *Service) Create(ctx context.Context, sess helper.Session, req dto.CreateClassRequest) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}

	year, err := s.Stores.Years.Get(ctx, sess.SchoolID, req.ClassSchoolYearID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindSchoolYear, year.SchoolYearState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	if _, err := s.Stores.Classes.GetByCode(ctx, sess.SchoolID, req.ClassCode); err == nil {
		return nil, warns, errs.Conflict("classWithCodeAlreadyExist", fmt.Sprintf("class with code %q already exists", req.ClassCode))
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	teacherIdentity := req.ClassTeacherIdentity
	if teacherIdentity == "" {
		teacherIdentity = sess.Identity
	}
	if err := s.ensureTeacher(ctx, reg, sess.SchoolID, teacherIdentity, warns); err != nil {
		return nil, warns, err
	}

	location := ""
	if year.SchoolYearFolderID != nil {
		location = *year.SchoolYearFolderID
	} else if inst.SchoolInstanceUnitID != nil {
		location = *inst.SchoolInstanceUnitID
	}

	var (
		unit           *registry.Unit
		role           *registry.Role
		class          *model.ClassModel
		artifact       *registry.Artifact
		subjectsFolder *registry.Unit
		prevLinks      []model.ClassYearLink
	)

	steps := []saga.Step{
		{
			// Unit and role creation leave orphans when a later step fails:
			// the registry offers no delete for either, so there is nothing
			// to compensate with.
			Name: "unit/create",
			Run: func(ctx context.Context) error {
				unit, err = reg.UnitCreate(ctx, registry.UnitCreateRequest{
					Name:     req.ClassName,
					Code:     req.ClassCode,
					Desc:     req.ClassDescription,
					Location: location,
				})
				return err
			},
		},
		{
			Name: "role/create",
			Run: func(ctx context.Context) error {
				role, err = reg.RoleCreate(ctx, "Class teacher "+req.ClassCode, unit.ID)
				if err != nil {
					return err
				}
				return reg.RoleAddCast(ctx, role.ID, teacherIdentity)
			},
		},
		{
			Name: "unit/setResponsibleRole",
			Run: func(ctx context.Context) error {
				return reg.UnitSetResponsibleRole(ctx, unit.ID, role.ID)
			},
		},
		{
			Name: "class/createLocal",
			Run: func(ctx context.Context) error {
				class = &model.ClassModel{
					ClassSchoolID:      sess.SchoolID,
					ClassSchoolYearID:  year.SchoolYearID,
					ClassCode:          req.ClassCode,
					ClassName:          req.ClassName,
					ClassState:         lifecycle.StateInitial,
					ClassTeacherRoleID: &role.ID,
					ClassUnitID:        &unit.ID,
					ClassStudentList:   []model.ClassStudentEntry{},
				}
				return s.Stores.Classes.Create(ctx, class)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Classes.Delete(ctx, sess.SchoolID, class.ClassID)
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeClass,
					Name:           req.ClassName,
					Code:           req.ClassCode,
					Desc:           req.ClassDescription,
					Location:       unit.ID,
					OwnerObjectID:  class.ClassID.String(),
					OwnerObjectURI: ownerURI(sess.SchoolID, "class", class.ClassID),
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
			Name: "subjectsFolder/create",
			Run: func(ctx context.Context) error {
				subjectsFolder, err = reg.UnitCreate(ctx, registry.UnitCreateRequest{
					Name:     "Subjects " + req.ClassCode,
					Code:     req.ClassCode + "-subjects",
					Location: unit.ID,
				})
				return err
			},
		},
		{
			Name: "previousYearMap/resolve",
			Run: func(ctx context.Context) error {
				prevLinks = s.resolvePreviousYearClasses(ctx, sess.SchoolID, req.ClassPreviousYearClassList, warns)
				return nil
			},
		},
		{
			Name: "class/updateLocal",
			Run: func(ctx context.Context) error {
				class.ClassArtifactID = &artifact.ID
				class.ClassSubjectsFolderID = &subjectsFolder.ID
				class.ClassPreviousYearClassMap = prevLinks
				return s.Stores.Classes.Update(ctx, class)
			},
		},
		{
			Name: "previousYearMap/backReferences",
			Run: func(ctx context.Context) error {
				s.appendNextYearBackrefs(ctx, sess.SchoolID, class, prevLinks, warns)
				return nil
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}

	// Permission propagation is fire-and-forget: a dead script engine never
	// fails a creation that already committed everywhere else.
	if err := reg.ScriptRun(ctx, constants.ScriptSetPermissions, configs.DefaultScriptConsoleURI, map[string]interface{}{
		"artifactId": artifact.ID,
		"roleId":     role.ID,
	}); err != nil {
		warns.Addf("setPermissionsScriptFailed", "class %s: %v", class.ClassID, err)
	}

	return class, warns, nil
}

// ensureTeacher verifies the identity's personal role is active and lazily
// creates the local Teacher row on first assignment.
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

// resolvePreviousYearClasses keeps only links to classes that exist; unknown
// ids are dropped with a warning, never a hard failure.
func (s *Service) resolvePreviousYearClasses(ctx context.Context, schoolID uuid.UUID, ids []uuid.UUID, warns errs.Warnings) []model.ClassYearLink {
	var links []model.ClassYearLink
	for _, id := range ids {
		prev, err := s.Stores.Classes.Get(ctx, schoolID, id)
		if err != nil {
			warns.Addf("previousYearClassDoesNotExist", "class %s dropped from previousYearClassMap: %v", id, err)
			continue
		}
		links = append(links, model.ClassYearLink{ClassID: prev.ClassID, Code: prev.ClassCode})
	}
	return links
}

func (s *Service) appendNextYearBackrefs(ctx context.Context, schoolID uuid.UUID, class *model.ClassModel, prevLinks []model.ClassYearLink, warns errs.Warnings) {
	for _, link := range prevLinks {
		prev, err := s.Stores.Classes.Get(ctx, schoolID, link.ClassID)
		if err != nil {
			warns.Addf("nextYearClassMapNotUpdated", "class %s: %v", link.ClassID, err)
			continue
		}
		prev.ClassNextYearClassMap = append(prev.ClassNextYearClassMap, model.ClassYearLink{ClassID: class.ClassID, Code: class.ClassCode})
		if err := s.Stores.Classes.Update(ctx, prev); err != nil {
			warns.Addf("nextYearClassMapNotUpdated", "class %s: %v", link.ClassID, err)
		}
	}
}

func ownerURI(schoolID uuid.UUID, kind string, id uuid.UUID) string {
	return fmt.Sprintf("schoolkit://%s/%s/%s", schoolID, kind, id)
}

/* =========================================================
   ENROLLMENT
========================================================= */

// AddStudents evaluates every candidate independently: ineligible candidates
// turn into warnings, and the call only hard-fails when nobody got in.
func (s *Service) AddStudents(ctx context.Context, sess helper.Session, classID uuid.UUID, req dto.AddStudentsRequest) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...); err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindClass, class.ClassState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	added := 0
	for _, item := range req.StudentList {
		student, err := s.Stores.Students.Get(ctx, sess.SchoolID, item.StudentID)
		if err != nil {
			warns.Addf(workflow.WarnCode("addStudents", "studentDoesNotExist"), "student %s: %v", item.StudentID, err)
			continue
		}
		if student.StudentState == lifecycle.StateClosed {
			warns.Addf(workflow.WarnCode("addStudents", "studentIsNotInProperState"), "student %s is closed", item.StudentID)
			continue
		}
		if err := s.Engine.CheckClassEnrollment(ctx, class, item.StudentID, item.Number); err != nil {
			warns.Addf(workflow.WarnCode("addStudents", errs.CodeOf(err)), "student %s: %v", item.StudentID, err)
			continue
		}

		// Returning students reuse their former entry; nobody else may hold
		// the number by now (checked above).
		replaced := false
		for i, e := range class.ClassStudentList {
			if e.StudentID == item.StudentID {
				class.ClassStudentList[i].State = lifecycle.StateActive
				class.ClassStudentList[i].Number = item.Number
				replaced = true
				break
			}
		}
		if !replaced {
			class.ClassStudentList = append(class.ClassStudentList, model.ClassStudentEntry{
				StudentID: item.StudentID,
				Number:    item.Number,
				State:     lifecycle.StateActive,
			})
		}

		if student.StudentState != lifecycle.StateActive {
			student.StudentState = lifecycle.StateActive
			if err := s.Stores.Students.Update(ctx, student); err != nil {
				warns.Addf(workflow.WarnCode("addStudents", "studentNotActivated"), "student %s: %v", item.StudentID, err)
			}
		}
		added++
	}

	if added == 0 {
		return nil, warns, errs.Conflict("noStudentAdded", "no candidate passed the enrollment checks")
	}
	if err := s.Stores.Classes.Update(ctx, class); err != nil {
		return nil, warns, err
	}
	return class, warns, nil
}

// RemoveStudent is an idempotent soft removal: the entry flips to "former"
// and stays in the list for history. Removing an absent or already-former
// student warns and changes nothing.
func (s *Service) RemoveStudent(ctx context.Context, sess helper.Session, classID uuid.UUID, req dto.RemoveStudentRequest) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...); err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindClass, class.ClassState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	list, changed := consistency.MarkClassStudentFormer(class.ClassStudentList, req.StudentID)
	if !changed {
		warns.Addf(workflow.WarnCode("removeStudent", consistency.CodeNotInClass), "student %s is not an active member of class %s", req.StudentID, classID)
		return class, warns, nil
	}
	class.ClassStudentList = list
	if err := s.Stores.Classes.Update(ctx, class); err != nil {
		return nil, warns, err
	}
	return class, warns, nil
}

/* =========================================================
   STATE
========================================================= */

func (s *Service) SetState(ctx context.Context, sess helper.Session, classID uuid.UUID, req dto.SetClassStateRequest) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindClass, class.ClassState, to); err != nil {
		return nil, warns, err
	}

	class.ClassState = to
	if err := s.Stores.Classes.Update(ctx, class); err != nil {
		return nil, warns, err
	}

	if class.ClassArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "class %s: %v", classID, err)
			return class, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *class.ClassArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "class %s: %v", classID, err)
		}
	}
	return class, warns, nil
}

// SetFinalState closes the class. The artifact-registry write and the local
// write are two independent steps with no compensation between them; if the
// second fails the stores diverge until repaired by hand.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, classID uuid.UUID) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindClass, class.ClassState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}

	subjects, err := s.Stores.Subjects.ListByClass(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	for _, sub := range subjects {
		if sub.SubjectState != lifecycle.StateClosed {
			return nil, warns, errs.StateConflict("classHasNonClosedSubjects", fmt.Sprintf("subject %s is still %q", sub.SubjectID, sub.SubjectState))
		}
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}
	if class.ClassArtifactID != nil {
		rels, err := reg.RelationListByArtifactB(ctx, *class.ClassArtifactID)
		if err != nil {
			return nil, warns, err
		}
		for _, rel := range rels {
			if lifecycle.State(rel.ArtifactAState) != lifecycle.StateClosed {
				return nil, warns, errs.StateConflict("classHasActiveRelatedArtifacts", fmt.Sprintf("artifact %s still relates to this class", rel.ArtifactA))
			}
		}
		if _, err := reg.ArtifactSetState(ctx, *class.ClassArtifactID, string(lifecycle.StateClosed), "class closed"); err != nil {
			return nil, warns, err
		}
	}

	class.ClassState = lifecycle.StateClosed
	if err := s.Stores.Classes.Update(ctx, class); err != nil {
		return nil, warns, err
	}
	return class, warns, nil
}

/* =========================================================
   UPDATE / LOAD / LIST
========================================================= */

func (s *Service) Update(ctx context.Context, sess helper.Session, classID uuid.UUID, req dto.UpdateClassRequest) (*model.ClassModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindClass, class.ClassState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	if req.ClassName != nil {
		class.ClassName = *req.ClassName
	}
	if err := s.Stores.Classes.Update(ctx, class); err != nil {
		return nil, warns, err
	}

	if class.ClassArtifactID != nil && req.ClassName != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactAttributesNotPropagated", "class %s: %v", classID, err)
			return class, warns, nil
		}
		desc := ""
		if req.ClassDescription != nil {
			desc = *req.ClassDescription
		}
		if err := reg.ArtifactSetBasicAttributes(ctx, *class.ClassArtifactID, class.ClassName, class.ClassCode, desc); err != nil {
			warns.Addf("artifactAttributesNotPropagated", "class %s: %v", classID, err)
		}
	}
	return class, warns, nil
}

// Load returns the class plus the caller's resolved profiles for it.
func (s *Service) Load(ctx context.Context, sess helper.Session, classID uuid.UUID) (*model.ClassModel, []string, error) {
	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, nil, err
	}
	class, err := s.Stores.Classes.Get(ctx, sess.SchoolID, classID)
	if err != nil {
		return nil, nil, err
	}
	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, nil, err
	}

	d := authz.Descriptor{TeacherRoles: map[string]string{}}
	if class.ClassTeacherRoleID != nil {
		d.TeacherRoles[*class.ClassTeacherRoleID] = constants.ProfileClassTeacher
	}
	// An enrolled caller counts as Student for this class.
	if student, err := s.Stores.Students.GetByIdentity(ctx, sess.SchoolID, sess.Identity); err == nil {
		if _, ok := class.ActiveStudent(student.StudentID); ok {
			d.StudentIdentity = sess.Identity
		}
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, nil, err
	}

	profiles, err := s.Authz.Resolve(ctx, reg, sess.SchoolID, workflow.Caller(sess), d)
	if err != nil {
		return nil, nil, err
	}
	return class, profiles, nil
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.ClassModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.Classes.List(ctx, sess.SchoolID, f)
}
