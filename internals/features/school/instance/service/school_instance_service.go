// file: internals/features/school/instance/service/school_instance_service.go
package service

import (
	"context"
	"fmt"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/instance/dto"
	"schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
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

// Init bootstraps a tenant: the local SchoolInstance row, the root unit in
// the registry, the principal role (cast to the caller), and the instance
// artifact. Everything else requires this row, so the remote base URIs come
// from the request rather than from a stored instance.
func (s *Service) Init(ctx context.Context, sess helper.Session, req dto.InitSchoolInstanceRequest) (*model.SchoolInstanceModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	if _, err := s.Stores.Instances.GetByTenant(ctx, sess.SchoolID); err == nil {
		return nil, warns, errs.Conflict("schoolInstanceAlreadyInitialized", "school instance is already initialized for this tenant")
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	inst := &model.SchoolInstanceModel{
		SchoolInstanceSchoolID:        sess.SchoolID,
		SchoolInstanceCode:            req.SchoolInstanceCode,
		SchoolInstanceName:            req.SchoolInstanceName,
		SchoolInstanceState:           lifecycle.StateInitial,
		SchoolInstanceArtifactBaseURI: req.SchoolInstanceArtifactBaseURI,
		SchoolInstancePersonBaseURI:   req.SchoolInstancePersonBaseURI,
		SchoolInstanceScriptBaseURI:   req.SchoolInstanceScriptBaseURI,
		SchoolInstanceRelatedAppMap:   req.SchoolInstanceRelatedAppMap,
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	var (
		rootUnit *registry.Unit
		role     *registry.Role
		artifact *registry.Artifact
	)
	steps := []saga.Step{
		{
			Name: "instance/createLocal",
			Run: func(ctx context.Context) error {
				return s.Stores.Instances.Create(ctx, inst)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Instances.Delete(ctx, sess.SchoolID)
			},
		},
		{
			// Root unit and principal role stay behind on rollback; both are
			// idempotent to re-point on the next init attempt.
			Name: "unit/createRoot",
			Run: func(ctx context.Context) error {
				rootUnit, err = reg.UnitCreate(ctx, registry.UnitCreateRequest{
					Name: req.SchoolInstanceName,
					Code: req.SchoolInstanceCode,
				})
				return err
			},
		},
		{
			Name: "role/createPrincipal",
			Run: func(ctx context.Context) error {
				role, err = reg.RoleCreate(ctx, "principal", rootUnit.Code)
				if err != nil {
					return err
				}
				return reg.RoleAddCast(ctx, role.ID, sess.Identity)
			},
		},
		{
			Name: "unit/setResponsibleRole",
			Run: func(ctx context.Context) error {
				return reg.UnitSetResponsibleRole(ctx, rootUnit.ID, role.ID)
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeSchoolInstance,
					Name:           req.SchoolInstanceName,
					Code:           req.SchoolInstanceCode,
					Location:       rootUnit.ID,
					OwnerObjectID:  inst.SchoolInstanceID.String(),
					OwnerObjectURI: fmt.Sprintf("schoolkit://%s/schoolInstance/%s", sess.SchoolID, inst.SchoolInstanceID),
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
			Name: "instance/updateLocal",
			Run: func(ctx context.Context) error {
				inst.SchoolInstanceUnitID = &rootUnit.ID
				inst.SchoolInstancePrincipalRoleID = &role.ID
				inst.SchoolInstanceArtifactID = &artifact.ID
				inst.SchoolInstanceState = lifecycle.StateActive
				return s.Stores.Instances.Update(ctx, inst)
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}
	return inst, warns, nil
}

func (s *Service) Update(ctx context.Context, sess helper.Session, req dto.UpdateSchoolInstanceRequest) (*model.SchoolInstanceModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.NonClosedStates...)
	if err != nil {
		return nil, warns, err
	}

	if req.SchoolInstanceName != nil {
		inst.SchoolInstanceName = *req.SchoolInstanceName
	}
	if req.SchoolInstanceRelatedAppMap != nil {
		inst.SchoolInstanceRelatedAppMap = req.SchoolInstanceRelatedAppMap
	}
	if err := s.Stores.Instances.Update(ctx, inst); err != nil {
		return nil, warns, err
	}

	if inst.SchoolInstanceArtifactID != nil && req.SchoolInstanceName != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactAttributesNotPropagated", "instance: %v", err)
			return inst, warns, nil
		}
		if err := reg.ArtifactSetBasicAttributes(ctx, *inst.SchoolInstanceArtifactID, inst.SchoolInstanceName, inst.SchoolInstanceCode, ""); err != nil {
			warns.Addf("artifactAttributesNotPropagated", "instance: %v", err)
		}
	}
	return inst, warns, nil
}

// SetState covers the non-final moves. Closing a tenant is the migration /
// drop path, deliberately not exposed as a workflow here.
func (s *Service) SetState(ctx context.Context, sess helper.Session, req dto.SetSchoolInstanceStateRequest) (*model.SchoolInstanceModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("instanceCannotBeClosedHere", "closing a school instance is not exposed as a workflow")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindInstance, inst.SchoolInstanceState, to); err != nil {
		return nil, warns, err
	}

	inst.SchoolInstanceState = to
	if err := s.Stores.Instances.Update(ctx, inst); err != nil {
		return nil, warns, err
	}

	if inst.SchoolInstanceArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "instance: %v", err)
			return inst, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *inst.SchoolInstanceArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "instance: %v", err)
		}
	}
	return inst, warns, nil
}

func (s *Service) Load(ctx context.Context, sess helper.Session) (*model.SchoolInstanceModel, error) {
	return s.Guard.EnsureInstance(ctx, sess.SchoolID)
}
