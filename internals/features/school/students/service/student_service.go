// file: internals/features/school/students/service/student_service.go
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/consistency"
	"schoolkit_backend/internals/features/school/lifecycle"
	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/students/dto"
	"schoolkit_backend/internals/features/school/students/model"
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

// Create persists the student and its artifact mirror. The related-person
// list must already satisfy the guardian bounds (1..2 legal guardians);
// referenced persons are resolved, unknown identities are lazily created and
// rolled back together with the student when a later step fails.
func (s *Service) Create(ctx context.Context, sess helper.Session, req dto.CreateStudentRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	if _, err := s.Stores.Students.GetByCode(ctx, sess.SchoolID, req.StudentCode); err == nil {
		return nil, warns, errs.Conflict("studentWithCodeAlreadyExist", fmt.Sprintf("student with code %q already exists", req.StudentCode))
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	// Guardian bounds are checkable from the raw input, so they fail fast
	// before anything is created anywhere.
	probe := make([]model.StudentRelatedPersonEntry, 0, len(req.RelatedPersonList))
	for _, in := range req.RelatedPersonList {
		probe = append(probe, model.StudentRelatedPersonEntry{IsLegalGuardian: in.IsLegalGuardian, RelationType: in.RelationType})
	}
	if err := consistency.CheckGuardianList(probe); err != nil {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	identity := req.StudentUUIdentity
	cardID := req.StudentPersonalCardID
	if identity != "" || cardID != "" {
		person, err := reg.PersonGet(ctx, registry.PersonQuery{UUIdentity: identity, PersonalCardID: cardID})
		if err != nil {
			warns.Addf("personNotResolved", "student %s: %v", req.StudentCode, err)
		} else if identity == "" {
			identity = person.UUIdentity
		}
	}

	var (
		entries   []model.StudentRelatedPersonEntry
		createdRP []uuid.UUID
		student   *model.StudentModel
		artifact  *registry.Artifact
	)

	steps := []saga.Step{
		{
			Name: "relatedPersons/resolve",
			Run: func(ctx context.Context) error {
				entries, createdRP, err = s.resolveRelatedPersons(ctx, sess.SchoolID, req.RelatedPersonList)
				return err
			},
			Compensate: func(ctx context.Context) error {
				var firstErr error
				for _, id := range createdRP {
					if err := s.Stores.RelatedPersons.Delete(ctx, sess.SchoolID, id); err != nil && firstErr == nil {
						firstErr = err
					}
				}
				return firstErr
			},
		},
		{
			Name: "student/createLocal",
			Run: func(ctx context.Context) error {
				student = &model.StudentModel{
					StudentSchoolID:          sess.SchoolID,
					StudentCode:              req.StudentCode,
					StudentState:             lifecycle.StateInitial,
					StudentRelatedPersonList: entries,
				}
				if identity != "" {
					student.StudentUUIdentity = &identity
				}
				if cardID != "" {
					student.StudentPersonalCardID = &cardID
				}
				return s.Stores.Students.Create(ctx, student)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Students.Delete(ctx, sess.SchoolID, student.StudentID)
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeStudent,
					Name:           req.StudentCode,
					Code:           req.StudentCode,
					Location:       derefOr(inst.SchoolInstanceUnitID, ""),
					OwnerObjectID:  student.StudentID.String(),
					OwnerObjectURI: fmt.Sprintf("schoolkit://%s/student/%s", sess.SchoolID, student.StudentID),
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
			Name: "student/updateLocal",
			Run: func(ctx context.Context) error {
				student.StudentArtifactID = &artifact.ID
				return s.Stores.Students.Update(ctx, student)
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}
	return student, warns, nil
}

// resolveRelatedPersons maps the inputs onto local RelatedPerson rows,
// creating rows for identities seen for the first time. Returns the entry
// list and the ids it created (for rollback).
func (s *Service) resolveRelatedPersons(ctx context.Context, schoolID uuid.UUID, inputs []dto.RelatedPersonInput) ([]model.StudentRelatedPersonEntry, []uuid.UUID, error) {
	entries := make([]model.StudentRelatedPersonEntry, 0, len(inputs))
	var created []uuid.UUID
	for _, in := range inputs {
		var rp *rpModel.RelatedPersonModel
		var err error
		switch {
		case in.RelatedPersonID != nil:
			rp, err = s.Stores.RelatedPersons.Get(ctx, schoolID, *in.RelatedPersonID)
			if err != nil {
				return nil, created, err
			}
		case in.UUIdentity != "":
			rp, err = s.Stores.RelatedPersons.GetByIdentity(ctx, schoolID, in.UUIdentity)
			if errs.IsKind(err, errs.KindNotFound) {
				rp, err = s.createRelatedPerson(ctx, schoolID, in)
				if err == nil {
					created = append(created, rp.RelatedPersonID)
				}
			}
			if err != nil {
				return nil, created, err
			}
		default:
			return nil, created, errs.Validation("relatedPersonNotIdentified", "related person needs an id or an identity")
		}
		entries = append(entries, model.StudentRelatedPersonEntry{
			RelatedPersonID: rp.RelatedPersonID,
			IsLegalGuardian: in.IsLegalGuardian,
			RelationType:    in.RelationType,
			Note:            in.Note,
		})
	}
	return entries, created, nil
}

func (s *Service) createRelatedPerson(ctx context.Context, schoolID uuid.UUID, in dto.RelatedPersonInput) (*rpModel.RelatedPersonModel, error) {
	rp := &rpModel.RelatedPersonModel{
		RelatedPersonSchoolID: schoolID,
		RelatedPersonState:    lifecycle.StateActive,
	}
	if in.UUIdentity != "" {
		ident := in.UUIdentity
		rp.RelatedPersonUUIdentity = &ident
	}
	if in.PersonalCardID != "" {
		card := in.PersonalCardID
		rp.RelatedPersonPersonalCardID = &card
	}
	if err := s.Stores.RelatedPersons.Create(ctx, rp); err != nil {
		return nil, err
	}
	return rp, nil
}

func derefOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}

/* =========================================================
   GUARDIANSHIP
========================================================= */

// ensureGuardianCaller allows privileged callers and existing legal guardians
// to touch the related-person list; everyone else is rejected.
func (s *Service) ensureGuardianCaller(ctx context.Context, sess helper.Session, student *model.StudentModel) error {
	if constants.IsPrivileged(sess.Profiles) {
		return nil
	}
	rp, err := s.Stores.RelatedPersons.GetByIdentity(ctx, sess.SchoolID, sess.Identity)
	if err != nil {
		if errs.IsKind(err, errs.KindNotFound) {
			return errs.NotAuthorized("callerIsNotLegalGuardian", "only a legal guardian or a privileged profile may change guardianship")
		}
		return err
	}
	for _, e := range student.StudentRelatedPersonList {
		if e.RelatedPersonID == rp.RelatedPersonID && e.IsLegalGuardian {
			return nil
		}
	}
	return errs.NotAuthorized("callerIsNotLegalGuardian", "only a legal guardian or a privileged profile may change guardianship")
}

// AddRelatedPersons evaluates candidates independently; a candidate that
// would push the guardian count past two warns instead of aborting, and the
// call hard-fails only when nothing was added.
func (s *Service) AddRelatedPersons(ctx context.Context, sess helper.Session, studentID uuid.UUID, req dto.AddRelatedPersonsRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...); err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindStudent, student.StudentState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}
	if err := s.ensureGuardianCaller(ctx, sess, student); err != nil {
		return nil, warns, err
	}

	added := 0
	var lazyCreated []uuid.UUID
	for _, in := range req.RelatedPersonList {
		entries, created, err := s.resolveRelatedPersons(ctx, sess.SchoolID, []dto.RelatedPersonInput{in})
		if err != nil {
			warns.Addf(workflow.WarnCode("addRelatedPersons", errs.CodeOf(err)), "%v", err)
			continue
		}
		entry := entries[0]
		if student.HasRelatedPerson(entry.RelatedPersonID) {
			warns.Addf(workflow.WarnCode("addRelatedPersons", "relatedPersonIsAlreadyPresent"), "related person %s already linked", entry.RelatedPersonID)
			continue
		}
		candidate := append(append([]model.StudentRelatedPersonEntry{}, student.StudentRelatedPersonList...), entry)
		if err := consistency.CheckGuardianList(candidate); err != nil {
			warns.Addf(workflow.WarnCode("addRelatedPersons", errs.CodeOf(err)), "related person %s: %v", entry.RelatedPersonID, err)
			// a lazily created row is useless without the link
			for _, id := range created {
				if delErr := s.Stores.RelatedPersons.Delete(ctx, sess.SchoolID, id); delErr != nil {
					warns.AddCompensation("relatedPerson/delete", delErr)
				}
			}
			continue
		}
		student.StudentRelatedPersonList = candidate
		lazyCreated = append(lazyCreated, created...)
		added++
	}

	if added == 0 {
		return nil, warns, errs.Conflict("noRelatedPersonAdded", "no candidate passed the guardian checks")
	}
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		// rows created for accepted candidates have no link to roll forward to
		for _, id := range lazyCreated {
			if delErr := s.Stores.RelatedPersons.Delete(ctx, sess.SchoolID, id); delErr != nil {
				warns.AddCompensation("relatedPerson/delete", delErr)
			}
		}
		return nil, warns, err
	}
	return student, warns, nil
}

// RemoveRelatedPerson hard-removes the entry. Dropping the last legal
// guardian of a non-closed student is rejected outright.
func (s *Service) RemoveRelatedPerson(ctx context.Context, sess helper.Session, studentID uuid.UUID, req dto.RemoveRelatedPersonRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...); err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindStudent, student.StudentState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}
	if err := s.ensureGuardianCaller(ctx, sess, student); err != nil {
		return nil, warns, err
	}

	if !student.HasRelatedPerson(req.RelatedPersonID) {
		warns.Addf(workflow.WarnCode("removeRelatedPerson", "relatedPersonIsNotPresent"), "related person %s is not linked", req.RelatedPersonID)
		return student, warns, nil
	}

	remaining := make([]model.StudentRelatedPersonEntry, 0, len(student.StudentRelatedPersonList))
	for _, e := range student.StudentRelatedPersonList {
		if e.RelatedPersonID != req.RelatedPersonID {
			remaining = append(remaining, e)
		}
	}
	if err := consistency.CheckGuardianList(remaining); err != nil {
		return nil, warns, err
	}

	student.StudentRelatedPersonList = remaining
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		return nil, warns, err
	}
	return student, warns, nil
}

// SetRelatedPerson rewrites the flags of one existing entry, keeping the
// guardian count inside bounds.
func (s *Service) SetRelatedPerson(ctx context.Context, sess helper.Session, studentID uuid.UUID, req dto.SetRelatedPersonRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...); err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindStudent, student.StudentState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}
	if err := s.ensureGuardianCaller(ctx, sess, student); err != nil {
		return nil, warns, err
	}

	idx := -1
	for i, e := range student.StudentRelatedPersonList {
		if e.RelatedPersonID == req.RelatedPersonID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, warns, errs.NotFound("relatedPersonIsNotPresent", fmt.Sprintf("related person %s is not linked to student %s", req.RelatedPersonID, studentID))
	}

	updated := append([]model.StudentRelatedPersonEntry{}, student.StudentRelatedPersonList...)
	updated[idx].IsLegalGuardian = req.IsLegalGuardian
	updated[idx].RelationType = req.RelationType
	updated[idx].Note = req.Note
	if err := consistency.CheckGuardianList(updated); err != nil {
		return nil, warns, err
	}

	student.StudentRelatedPersonList = updated
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		return nil, warns, err
	}
	return student, warns, nil
}

/* =========================================================
   STATE
========================================================= */

func (s *Service) Update(ctx context.Context, sess helper.Session, studentID uuid.UUID, req dto.UpdateStudentRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindStudent, student.StudentState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}

	if req.StudentPersonalCardID != nil {
		student.StudentPersonalCardID = req.StudentPersonalCardID
	}
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		return nil, warns, err
	}
	return student, warns, nil
}

func (s *Service) SetState(ctx context.Context, sess helper.Session, studentID uuid.UUID, req dto.SetStudentStateRequest) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindStudent, student.StudentState, to); err != nil {
		return nil, warns, err
	}

	student.StudentState = to
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		return nil, warns, err
	}

	if student.StudentArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "student %s: %v", studentID, err)
			return student, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *student.StudentArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "student %s: %v", studentID, err)
		}
	}
	return student, warns, nil
}

// SetFinalState closes the student, clears its related-person list and then
// closes every related person that no other non-closed student references.
// Cascade failures degrade to warnings; the student close itself is final.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, studentID uuid.UUID) (*model.StudentModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindStudent, student.StudentState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}

	classes, err := s.Stores.Classes.ListByStudent(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	for _, class := range classes {
		if _, active := class.ActiveStudent(studentID); active {
			return nil, warns, errs.StateConflict("studentIsStillInClass", fmt.Sprintf("student is an active member of class %s", class.ClassID))
		}
	}
	subjects, err := s.Stores.Subjects.ListByStudent(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, warns, err
	}
	for _, sub := range subjects {
		if _, active := sub.ActiveStudent(studentID); active {
			return nil, warns, errs.StateConflict("studentIsStillInSubject", fmt.Sprintf("student is an active member of subject %s", sub.SubjectID))
		}
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	if student.StudentArtifactID != nil {
		s.deleteRelations(ctx, reg, *student.StudentArtifactID, warns)
		if _, err := reg.ArtifactSetState(ctx, *student.StudentArtifactID, string(lifecycle.StateClosed), "student closed"); err != nil {
			return nil, warns, err
		}
	}

	formerlyLinked := student.StudentRelatedPersonList
	student.StudentState = lifecycle.StateClosed
	student.StudentRelatedPersonList = []model.StudentRelatedPersonEntry{}
	if err := s.Stores.Students.Update(ctx, student); err != nil {
		return nil, warns, err
	}

	for _, e := range formerlyLinked {
		s.closeOrphanedRelatedPerson(ctx, reg, sess.SchoolID, e.RelatedPersonID, warns)
	}
	return student, warns, nil
}

// deleteRelations removes every outgoing relation of the artifact, batched
// like the rest of the close workflows. Each failure turns into a warning;
// none of them stops the close.
func (s *Service) deleteRelations(ctx context.Context, reg registry.Registry, artifactID string, warns errs.Warnings) {
	rels, err := reg.RelationListByArtifactA(ctx, artifactID)
	if err != nil {
		warns.Addf("relationsNotDeleted", "artifact %s: %v", artifactID, err)
		return
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, rel := range rels {
		rel := rel
		g.Go(func() error {
			if err := reg.RelationDelete(gctx, rel.ArtifactA, rel.RelationCode, rel.ArtifactB); err != nil {
				mu.Lock()
				warns.Addf("relationsNotDeleted", "relation %s -> %s: %v", rel.ArtifactA, rel.ArtifactB, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) closeOrphanedRelatedPerson(ctx context.Context, reg registry.Registry, schoolID, rpID uuid.UUID, warns errs.Warnings) {
	refs, err := s.Stores.Students.ListByRelatedPerson(ctx, schoolID, rpID)
	if err != nil {
		warns.Addf("relatedPersonNotClosed", "related person %s: %v", rpID, err)
		return
	}
	for _, ref := range refs {
		if ref.StudentState != lifecycle.StateClosed {
			return // still referenced, nothing to do
		}
	}
	rp, err := s.Stores.RelatedPersons.Get(ctx, schoolID, rpID)
	if err != nil {
		warns.Addf("relatedPersonNotClosed", "related person %s: %v", rpID, err)
		return
	}
	if rp.RelatedPersonState == lifecycle.StateClosed {
		return
	}
	if rp.RelatedPersonArtifactID != nil {
		if _, err := reg.ArtifactSetState(ctx, *rp.RelatedPersonArtifactID, string(lifecycle.StateClosed), "orphaned by student close"); err != nil {
			warns.Addf("relatedPersonNotClosed", "related person %s: %v", rpID, err)
			return
		}
	}
	rp.RelatedPersonState = lifecycle.StateClosed
	if err := s.Stores.RelatedPersons.Update(ctx, rp); err != nil {
		warns.Addf("relatedPersonNotClosed", "related person %s: %v", rpID, err)
	}
}

/* =========================================================
   LOAD / LIST
========================================================= */

func (s *Service) Load(ctx context.Context, sess helper.Session, studentID uuid.UUID) (*model.StudentModel, []string, *registry.Person, error) {
	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	student, err := s.Stores.Students.Get(ctx, sess.SchoolID, studentID)
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, nil, nil, err
	}

	d := authz.Descriptor{}
	if student.StudentUUIdentity != nil {
		d.StudentIdentity = *student.StudentUUIdentity
	}
	for _, e := range student.StudentRelatedPersonList {
		rp, err := s.Stores.RelatedPersons.Get(ctx, sess.SchoolID, e.RelatedPersonID)
		if err != nil {
			continue
		}
		if rp.RelatedPersonUUIdentity != nil {
			d.RelatedPersonIdentities = append(d.RelatedPersonIdentities, *rp.RelatedPersonUUIdentity)
		}
	}

	profiles, err := s.Authz.Resolve(ctx, reg, sess.SchoolID, workflow.Caller(sess), d)
	if err != nil {
		return nil, nil, nil, err
	}

	// Person snapshot is best effort; the detail view renders without it.
	var person *registry.Person
	q := registry.PersonQuery{}
	if student.StudentUUIdentity != nil {
		q.UUIdentity = *student.StudentUUIdentity
	}
	if student.StudentPersonalCardID != nil {
		q.PersonalCardID = *student.StudentPersonalCardID
	}
	if q.UUIdentity != "" || q.PersonalCardID != "" {
		if p, err := reg.PersonGet(ctx, q); err == nil {
			person = p
		}
	}
	return student, profiles, person, nil
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.StudentModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.Students.List(ctx, sess.SchoolID, f)
}
