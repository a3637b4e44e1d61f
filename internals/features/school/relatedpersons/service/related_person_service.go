// file: internals/features/school/relatedpersons/service/related_person_service.go
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/relatedpersons/dto"
	"schoolkit_backend/internals/features/school/relatedpersons/model"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/workflow"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry"
)

// Related persons are created lazily through the student workflows; this
// service carries the read and lifecycle surfaces.
type Service struct {
	workflow.Deps
}

func New(d workflow.Deps) *Service { return &Service{Deps: d} }

func (s *Service) Update(ctx context.Context, sess helper.Session, rpID uuid.UUID, req dto.UpdateRelatedPersonRequest) (*model.RelatedPersonModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, warns, err
	}
	rp, err := s.Stores.RelatedPersons.Get(ctx, sess.SchoolID, rpID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindRelatedPerson, rp.RelatedPersonState, lifecycle.NonClosedStates...); err != nil {
		return nil, warns, err
	}

	if req.RelatedPersonPersonalCardID != nil {
		rp.RelatedPersonPersonalCardID = req.RelatedPersonPersonalCardID
	}
	if err := s.Stores.RelatedPersons.Update(ctx, rp); err != nil {
		return nil, warns, err
	}
	return rp, warns, nil
}

func (s *Service) SetState(ctx context.Context, sess helper.Session, rpID uuid.UUID, req dto.SetRelatedPersonStateRequest) (*model.RelatedPersonModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	rp, err := s.Stores.RelatedPersons.Get(ctx, sess.SchoolID, rpID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindRelatedPerson, rp.RelatedPersonState, to); err != nil {
		return nil, warns, err
	}

	rp.RelatedPersonState = to
	if err := s.Stores.RelatedPersons.Update(ctx, rp); err != nil {
		return nil, warns, err
	}

	if rp.RelatedPersonArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "related person %s: %v", rpID, err)
			return rp, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *rp.RelatedPersonArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "related person %s: %v", rpID, err)
		}
	}
	return rp, warns, nil
}

// SetFinalState refuses to close while any non-closed student still links to
// this person.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, rpID uuid.UUID) (*model.RelatedPersonModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	rp, err := s.Stores.RelatedPersons.Get(ctx, sess.SchoolID, rpID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindRelatedPerson, rp.RelatedPersonState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}

	refs, err := s.Stores.Students.ListByRelatedPerson(ctx, sess.SchoolID, rpID)
	if err != nil {
		return nil, warns, err
	}
	for _, student := range refs {
		if student.StudentState != lifecycle.StateClosed {
			return nil, warns, errs.StateConflict("relatedPersonIsStillReferenced", fmt.Sprintf("student %s still references this person", student.StudentID))
		}
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}
	if rp.RelatedPersonArtifactID != nil {
		s.deleteRelations(ctx, reg, *rp.RelatedPersonArtifactID, warns)
		if _, err := reg.ArtifactSetState(ctx, *rp.RelatedPersonArtifactID, string(lifecycle.StateClosed), "related person closed"); err != nil {
			return nil, warns, err
		}
	}

	rp.RelatedPersonState = lifecycle.StateClosed
	if err := s.Stores.RelatedPersons.Update(ctx, rp); err != nil {
		return nil, warns, err
	}
	return rp, warns, nil
}

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

func (s *Service) Load(ctx context.Context, sess helper.Session, rpID uuid.UUID) (*model.RelatedPersonModel, []string, *registry.Person, error) {
	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, nil, nil, err
	}
	rp, err := s.Stores.RelatedPersons.Get(ctx, sess.SchoolID, rpID)
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, nil, nil, err
	}

	d := authz.Descriptor{}
	if rp.RelatedPersonUUIdentity != nil {
		d.RelatedPersonIdentities = []string{*rp.RelatedPersonUUIdentity}
	}
	profiles, err := s.Authz.Resolve(ctx, reg, sess.SchoolID, workflow.Caller(sess), d)
	if err != nil {
		return nil, nil, nil, err
	}

	// Person snapshot is best effort; the detail view renders without it.
	var person *registry.Person
	q := registry.PersonQuery{}
	if rp.RelatedPersonUUIdentity != nil {
		q.UUIdentity = *rp.RelatedPersonUUIdentity
	}
	if rp.RelatedPersonPersonalCardID != nil {
		q.PersonalCardID = *rp.RelatedPersonPersonalCardID
	}
	if q.UUIdentity != "" || q.PersonalCardID != "" {
		if p, err := reg.PersonGet(ctx, q); err == nil {
			person = p
		}
	}
	return rp, profiles, person, nil
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.RelatedPersonModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.RelatedPersons.List(ctx, sess.SchoolID, f)
}
