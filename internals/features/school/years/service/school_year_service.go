// file: internals/features/school/years/service/school_year_service.go
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/workflow"
	"schoolkit_backend/internals/features/school/years/dto"
	"schoolkit_backend/internals/features/school/years/model"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/helpers/saga"
	"schoolkit_backend/internals/registry"
)

type Service struct {
	workflow.Deps
}

func New(d workflow.Deps) *Service { return &Service{Deps: d} }

// Create persists the year, opens its folder unit (classes are created under
// it) and mirrors the year into the artifact registry.
func (s *Service) Create(ctx context.Context, sess helper.Session, req dto.CreateSchoolYearRequest) (*model.SchoolYearModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	if _, err := s.Stores.Years.GetByCode(ctx, sess.SchoolID, req.SchoolYearCode); err == nil {
		return nil, warns, errs.Conflict("schoolYearWithCodeAlreadyExist", fmt.Sprintf("school year with code %q already exists", req.SchoolYearCode))
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, warns, err
	}

	reg, err := s.RegistryFor(inst, sess)
	if err != nil {
		return nil, warns, err
	}

	var (
		year     *model.SchoolYearModel
		folder   *registry.Unit
		artifact *registry.Artifact
	)
	steps := []saga.Step{
		{
			Name: "year/createLocal",
			Run: func(ctx context.Context) error {
				year = &model.SchoolYearModel{
					SchoolYearSchoolID:  sess.SchoolID,
					SchoolYearCode:      req.SchoolYearCode,
					SchoolYearName:      req.SchoolYearName,
					SchoolYearState:     lifecycle.StateInitial,
					SchoolYearStartDate: req.SchoolYearStartDate,
					SchoolYearEndDate:   req.SchoolYearEndDate,
				}
				return s.Stores.Years.Create(ctx, year)
			},
			Compensate: func(ctx context.Context) error {
				return s.Stores.Years.Delete(ctx, sess.SchoolID, year.SchoolYearID)
			},
		},
		{
			// Folder units cannot be deleted; one orphan per failed creation.
			Name: "folder/create",
			Run: func(ctx context.Context) error {
				location := ""
				if inst.SchoolInstanceUnitID != nil {
					location = *inst.SchoolInstanceUnitID
				}
				folder, err = reg.UnitCreate(ctx, registry.UnitCreateRequest{
					Name:     req.SchoolYearName,
					Code:     req.SchoolYearCode,
					Location: location,
				})
				return err
			},
		},
		{
			Name: "artifact/create",
			Run: func(ctx context.Context) error {
				artifact, err = reg.ArtifactCreate(ctx, registry.ArtifactCreateRequest{
					TypeCode:       constants.ArtifactTypeSchoolYear,
					Name:           req.SchoolYearName,
					Code:           req.SchoolYearCode,
					Location:       folder.ID,
					OwnerObjectID:  year.SchoolYearID.String(),
					OwnerObjectURI: fmt.Sprintf("schoolkit://%s/schoolYear/%s", sess.SchoolID, year.SchoolYearID),
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
			Name: "year/updateLocal",
			Run: func(ctx context.Context) error {
				year.SchoolYearFolderID = &folder.ID
				year.SchoolYearArtifactID = &artifact.ID
				return s.Stores.Years.Update(ctx, year)
			},
		},
	}

	if err := saga.Execute(ctx, warns, steps); err != nil {
		return nil, warns, err
	}
	return year, warns, nil
}

func (s *Service) Update(ctx context.Context, sess helper.Session, yearID uuid.UUID, req dto.UpdateSchoolYearRequest) (*model.SchoolYearModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstanceAndState(ctx, sess.SchoolID, lifecycle.ActiveLikeStates...)
	if err != nil {
		return nil, warns, err
	}
	year, err := s.Stores.Years.Get(ctx, sess.SchoolID, yearID)
	if err != nil {
		return nil, warns, err
	}
	if err := s.Guard.EnsureEntityState(lifecycle.KindSchoolYear, year.SchoolYearState, lifecycle.NonFinalStates...); err != nil {
		return nil, warns, err
	}

	if req.SchoolYearName != nil {
		year.SchoolYearName = *req.SchoolYearName
	}
	if req.SchoolYearStartDate != nil {
		year.SchoolYearStartDate = *req.SchoolYearStartDate
	}
	if req.SchoolYearEndDate != nil {
		year.SchoolYearEndDate = *req.SchoolYearEndDate
	}
	if !year.SchoolYearEndDate.After(year.SchoolYearStartDate) {
		return nil, warns, errs.Validation("schoolYearDatesInvalid", "end date must be after start date")
	}
	if err := s.Stores.Years.Update(ctx, year); err != nil {
		return nil, warns, err
	}

	if year.SchoolYearArtifactID != nil && req.SchoolYearName != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactAttributesNotPropagated", "year %s: %v", yearID, err)
			return year, warns, nil
		}
		if err := reg.ArtifactSetBasicAttributes(ctx, *year.SchoolYearArtifactID, year.SchoolYearName, year.SchoolYearCode, ""); err != nil {
			warns.Addf("artifactAttributesNotPropagated", "year %s: %v", yearID, err)
		}
	}
	return year, warns, nil
}

func (s *Service) SetState(ctx context.Context, sess helper.Session, yearID uuid.UUID, req dto.SetSchoolYearStateRequest) (*model.SchoolYearModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	year, err := s.Stores.Years.Get(ctx, sess.SchoolID, yearID)
	if err != nil {
		return nil, warns, err
	}
	to := lifecycle.State(req.State)
	if to == lifecycle.StateClosed {
		return nil, warns, errs.Validation("useSetFinalState", "closing goes through setFinalState")
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindSchoolYear, year.SchoolYearState, to); err != nil {
		return nil, warns, err
	}

	year.SchoolYearState = to
	if err := s.Stores.Years.Update(ctx, year); err != nil {
		return nil, warns, err
	}

	if year.SchoolYearArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			warns.Addf("artifactStateNotPropagated", "year %s: %v", yearID, err)
			return year, warns, nil
		}
		if _, err := reg.ArtifactSetState(ctx, *year.SchoolYearArtifactID, string(to), ""); err != nil {
			warns.Addf("artifactStateNotPropagated", "year %s: %v", yearID, err)
		}
	}
	return year, warns, nil
}

// SetFinalState closes the year once every class in it is closed.
func (s *Service) SetFinalState(ctx context.Context, sess helper.Session, yearID uuid.UUID) (*model.SchoolYearModel, errs.Warnings, error) {
	warns := errs.NewWarnings()

	inst, err := s.Guard.EnsureInstance(ctx, sess.SchoolID)
	if err != nil {
		return nil, warns, err
	}
	year, err := s.Stores.Years.Get(ctx, sess.SchoolID, yearID)
	if err != nil {
		return nil, warns, err
	}
	if err := lifecycle.EnsureTransition(lifecycle.KindSchoolYear, year.SchoolYearState, lifecycle.StateClosed); err != nil {
		return nil, warns, err
	}

	classes, err := s.Stores.Classes.ListBySchoolYear(ctx, sess.SchoolID, yearID)
	if err != nil {
		return nil, warns, err
	}
	for _, class := range classes {
		if class.ClassState != lifecycle.StateClosed {
			return nil, warns, errs.StateConflict("schoolYearHasNonClosedClasses", fmt.Sprintf("class %s is still %q", class.ClassID, class.ClassState))
		}
	}

	if year.SchoolYearArtifactID != nil {
		reg, err := s.RegistryFor(inst, sess)
		if err != nil {
			return nil, warns, err
		}
		if _, err := reg.ArtifactSetState(ctx, *year.SchoolYearArtifactID, string(lifecycle.StateClosed), "school year closed"); err != nil {
			return nil, warns, err
		}
	}

	year.SchoolYearState = lifecycle.StateClosed
	if err := s.Stores.Years.Update(ctx, year); err != nil {
		return nil, warns, err
	}
	return year, warns, nil
}

func (s *Service) Load(ctx context.Context, sess helper.Session, yearID uuid.UUID) (*model.SchoolYearModel, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, err
	}
	return s.Stores.Years.Get(ctx, sess.SchoolID, yearID)
}

func (s *Service) List(ctx context.Context, sess helper.Session, f storage.ListFilter) ([]model.SchoolYearModel, int64, error) {
	if _, err := s.Guard.EnsureInstance(ctx, sess.SchoolID); err != nil {
		return nil, 0, err
	}
	return s.Stores.Years.List(ctx, sess.SchoolID, f)
}
