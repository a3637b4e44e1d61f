// file: internals/features/school/authz/resolver.go
//
// One polymorphic capability resolver for the Load/List surfaces of Class,
// Subject, Student, Teacher and RelatedPerson; each feature supplies an
// entity descriptor instead of re-implementing the profile computation.
package authz

import (
	"context"

	"github.com/google/uuid"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry"
)

type Caller struct {
	Identity string
	Profiles []string // gateway-granted profiles from the session token
}

// Descriptor names, per target entity, which fields count as teacher roles
// and direct relations.
type Descriptor struct {
	// TeacherRoles maps remote role id -> profile granted on a verified cast
	// (ClassTeacher / SubjectTeacher).
	TeacherRoles map[string]string
	// StudentIdentity grants Student when equal to the caller identity.
	StudentIdentity string
	// RelatedPersonIdentities grant RelatedPerson on a match.
	RelatedPersonIdentities []string
}

type Resolver struct {
	Teachers storage.TeacherStore
}

func New(teachers storage.TeacherStore) *Resolver {
	return &Resolver{Teachers: teachers}
}

// Resolve computes the caller's capability set against the described entity.
// Fails with NotAuthorized when nothing beyond StandardUsers applies.
func (r *Resolver) Resolve(ctx context.Context, reg registry.Registry, schoolID uuid.UUID, caller Caller, d Descriptor) ([]string, error) {
	// 1) privileged profiles short-circuit to full access
	var profiles []string
	for _, p := range caller.Profiles {
		switch p {
		case constants.ProfileAuthorities, constants.ProfileExecutives, constants.ProfileAuditors:
			profiles = append(profiles, p)
		}
	}
	if len(profiles) > 0 {
		return profiles, nil
	}

	// 2) role casts
	if len(d.TeacherRoles) > 0 {
		roleIDs := make([]string, 0, len(d.TeacherRoles))
		for id := range d.TeacherRoles {
			roleIDs = append(roleIDs, id)
		}
		matched, err := reg.CastVerify(ctx, roleIDs)
		if err != nil {
			return nil, err
		}
		for _, id := range matched {
			if profile, ok := d.TeacherRoles[id]; ok && !constants.HasProfile(profiles, profile) {
				profiles = append(profiles, profile)
			}
		}
	}

	// 3) direct relations
	if d.StudentIdentity != "" && d.StudentIdentity == caller.Identity {
		profiles = append(profiles, constants.ProfileStudent)
	}
	for _, ident := range d.RelatedPersonIdentities {
		if ident == caller.Identity {
			profiles = append(profiles, constants.ProfileRelatedPerson)
			break
		}
	}
	if teacher, err := r.Teachers.GetByIdentity(ctx, schoolID, caller.Identity); err == nil {
		if teacher.TeacherState != lifecycle.StateClosed && !constants.HasProfile(profiles, constants.ProfileTeacher) {
			profiles = append(profiles, constants.ProfileTeacher)
		}
	} else if !errs.IsKind(err, errs.KindNotFound) {
		return nil, err
	}

	// 4) StandardUsers alone is not enough
	if len(profiles) == 0 {
		return nil, errs.NotAuthorized("userIsNotAuthorized", "caller has no profile permitted to access this entity")
	}
	return profiles, nil
}
