// file: internals/features/school/workflow/deps.go
//
// Shared dependency bundle for the per-entity workflow services. Each service
// embeds Deps so tests can construct a whole feature against the in-memory
// stores and a fake registry factory in a couple of lines.
package workflow

import (
	"strings"

	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/authz"
	"schoolkit_backend/internals/features/school/consistency"
	"schoolkit_backend/internals/features/school/stateguard"
	"schoolkit_backend/internals/features/school/storage"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/registry"
)

type Deps struct {
	Stores   storage.Stores
	Guard    *stateguard.Guard
	Engine   *consistency.Engine
	Authz    *authz.Resolver
	Registry registry.Factory
}

func NewDeps(stores storage.Stores, factory registry.Factory) Deps {
	return Deps{
		Stores:   stores,
		Guard:    stateguard.New(stores.Instances),
		Engine:   consistency.New(stores.Classes, stores.Subjects),
		Authz:    authz.New(stores.Teachers),
		Registry: factory,
	}
}

// RegistryFor mints the short-lived token for this call chain and binds a
// client to the tenant's base URIs from the SchoolInstance row. Token minting
// failure is a hard failure of whichever step needed the registry.
func (d Deps) RegistryFor(inst *instanceModel.SchoolInstanceModel, sess helper.Session) (registry.Registry, error) {
	token, err := registry.MintToken(sess.Identity, inst.SchoolInstanceSchoolID.String(), inst.SchoolInstanceArtifactBaseURI)
	if err != nil {
		return nil, err
	}
	return d.Registry.New(registry.Config{
		ArtifactBase: inst.SchoolInstanceArtifactBaseURI,
		PersonBase:   inst.SchoolInstancePersonBaseURI,
		ScriptBase:   inst.SchoolInstanceScriptBaseURI,
		Token:        token,
	}), nil
}

// Caller adapts the session for the authorization resolver.
func Caller(sess helper.Session) authz.Caller {
	return authz.Caller{Identity: sess.Identity, Profiles: sess.Profiles}
}

// WarnCode prefixes a consistency-check code with the operation name, e.g.
// ("addStudents", "studentIsAlreadyInClass") -> "addStudentsStudentIsAlreadyInClass".
func WarnCode(op, code string) string {
	if code == "" {
		return op
	}
	return op + strings.ToUpper(code[:1]) + code[1:]
}
