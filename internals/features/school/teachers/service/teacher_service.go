// file: internals/features/school/teachers/service/teacher_service.go
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/teachers/dto"
	"schoolkit_backend/internals/features/school/teachers/model"
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

// Create registers a teacher explicitly, ahead of any class assignment. Most
// teacher rows come from the lazy path inside class/subject creation; this
// one additionally mirrors the teacher into the artifact registry.
func (s *Service) Create(ctx context.Context, sess helper.Session, req dto.CreateTeacherRequest) (*model.TeacherModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	if _, err := s.Stores.Teachers.GetByIdentity(ctx, sess.SchoolID, req.TeacherUUIdentity); err == nil {
		return nil, warns, errs.Conflict("teacherAlreadyExists", fmt.Sprintf("teacher %q already exists", req.TeacherUUIdentity))
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	var (
		teacher  *model.TeacherModel
		artifact *registry.Artifact
	)
	steps := []saga.Step{
		{
			Name: "teacher/createLocal",
			Run: func(ctx context.Context) error {
				teacher = &model.TeacherModel{
					TeacherSchoolID:   sess.SchoolID,
					TeacherUUIdentity: req.TeacherUUIdentity,
					TeacherState:      lifecycle.StateActive,
				}
				if req.TeacherPersonalCardID != "" {
					card := req.TeacherPersonalCardID
					teacher.TeacherPersonalCardID = &card
				}
				return s.Stores.Teachers.Create(ctx, teacher)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Teachers.Delete(ctx, sess.SchoolID, teacher.TeacherID)
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeTeacher,
					Name:           req.TeacherUUIdentity,
					Code:           req.TeacherUUIdentity,
					Location:       derefOr(inst.SchoolInstanceUnitID, ""),
					OwnerObjectID:  teacher.TeacherID.String(),
					OwnerObjectURI: fmt.Sprintf("schoolkit://%s/teacher/%s", sess.SchoolID, teacher.TeacherID),
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
			Name: "teacher/updateLocal",
			Run: func(ctx context.Context) error {
				teacher.TeacherArtifactID = &artifact.ID
				return s.Stores.Teachers.Update(ctx, teacher)
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}
	return teacher, warns, nil
}

func (s *Service) Update(ctx context.Context, sess helper.Session, teacherID uuid.UUID, req dto.UpdateTeacherRequest) (*model.TeacherModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, warns, err
	}
	teacher, err := s.Stores.Teachers.Get(ctx, sess.SchoolID, teacherID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindTeacher, teacher.TeacherState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}

	if req.TeacherPersonalCardID != nil {
		teacher.TeacherPersonalCardID = req.TeacherPersonalCardID
	}
	if err := s.Stores.Teachers.Update(ctx, teacher); err != nil {
		return nil, warns, err
	}
	return teacher, warns, nil
}

func (s *Service) SetState(ctx context.Context, sess helper.Session, teacherID uuid.UUID, req dto.SetTeacherStateRequest) (*model.TeacherModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	teacher, err := s.Stores.Teachers.Get(ctx, sess.SchoolID, teacherID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindTeacher, teacher.TeacherState, to); err != nil {
		return nil, warns, err
	}

	teacher.TeacherState = to
	if err := s.Stores.Teachers.Update(ctx, teacher); err != nil {
		return nil, warns, err
	}

	if teacher.TeacherArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "teacher %s: %v", teacherID, err)
			return teacher, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *teacher.TeacherArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "teacher %s: %v", teacherID, err)
		}
	}
	return teacher, warns, nil
}

// SetFinalState refuses to close a teacher that still holds active role
// casts; outgoing relations are best-effort deleted first.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, teacherID uuid.UUID) (*model.TeacherModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	teacher, err := s.Stores.Teachers.Get(ctx, sess.SchoolID, teacherID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindTeacher, teacher.TeacherState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	casts, err := reg.RoleListCastsBySideB(ctx, teacher.TeacherUUIdentity)
	if err != nil {
		return nil, warns, err
	}
	for _, cast := range casts {
		if lifecycle.State(cast.State) == lifecycle.StateActive {
			return nil, warns, errs.StateConflict("teacherHasActiveRoleCasts", fmt.Sprintf("role %s is still cast to this teacher", cast.RoleID))
		}
	}

	if teacher.TeacherArtifactID != nil {
		deleteRelationsByA(ctx, reg, *teacher.TeacherArtifactID, warns)
		if _, err := reg.ArtifactSetState(ctx, *teacher.TeacherArtifactID, string(lifecycle.StateClosed), "teacher closed"); err != nil {
			return nil, warns, err
		}
	}

	teacher.TeacherState = lifecycle.StateClosed
	if err := s.Stores.Teachers.Update(ctx, teacher); err != nil {
		return nil, warns, err
	}
	return teacher, warns, nil
}

func deleteRelationsByA(ctx context.Context, reg registry.Registry, artifactID string, warns errs.Warnings) {
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

func (s *Service) Load(ctx context.Context, sess helper.Session, teacherID uuid.UUID) (*model.TeacherModel, []string, *registry.Person, error) {
	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	teacher, err := s.Stores.Teachers.Get(ctx, sess.SchoolID, teacherID)
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, nil, nil, err
	}

	// The teacher's own identity also grants access via the resolver's local
	// teacher lookup, so the descriptor stays empty of roles here.
	profiles, err := s.Authz.Resolve(ctx, reg, sess.SchoolID, workflow.Caller(sess), authz.Descriptor{})
	if err != nil {
		return nil, nil, nil, err
	}

	// Person snapshot is best effort; the detail view renders without it.
	person, err := reg.PersonGet(ctx, registry.PersonQuery{UUIdentity: teacher.TeacherUUIdentity})
	if err != nil {
		person = nil
	}
	return teacher, profiles, person, nil
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.TeacherModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.Teachers.List(ctx, sess.SchoolID, f)
}

func derefOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}
