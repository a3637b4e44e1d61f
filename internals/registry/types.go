// file: internals/registry/types.go
package registry

import "context"

// Artifact mirrors a local entity inside the external artifact registry.
type Artifact struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	State  string `json:"state"`
	UnitID string `json:"unit"`
}

type ArtifactCreateRequest struct {
	TypeCode       string `json:"type_code"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	Desc           string `json:"desc,omitempty"`
	Location       string `json:"location"`
	OwnerObjectID  string `json:"owner_object_id,omitempty"`
	OwnerObjectURI string `json:"owner_object_uri,omitempty"`
	CompetentRole  string `json:"competent_role,omitempty"`
}

type ArtifactEnvironment struct {
	ArtifactID      string `json:"artifact_id"`
	State           string `json:"state"`
	ResponsibleRole string `json:"responsible_role,omitempty"`
	UnitID          string `json:"unit,omitempty"`
	Context         string `json:"context,omitempty"`
}

type Unit struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type UnitCreateRequest struct {
	Name                string `json:"name"`
	Code                string `json:"code"`
	Desc                string `json:"desc,omitempty"`
	Location            string `json:"location"`
	ResponsibleRoleCode string `json:"responsible_role_code,omitempty"`
}

type Role struct {
	ID             string `json:"id"`
	State          string `json:"state"`
	MainUUIdentity string `json:"main_uu_identity,omitempty"`
}

type RoleCast struct {
	RoleID    string `json:"role_id"`
	SideBCode string `json:"side_b_code"`
	State     string `json:"state"`
}

// Relation is one artifact-to-artifact (AAR) link.
type Relation struct {
	ArtifactA      string `json:"artifact_a"`
	ArtifactB      string `json:"artifact_b"`
	RelationCode   string `json:"relation_code"`
	ArtifactAState string `json:"artifact_a_state,omitempty"`
	ArtifactBState string `json:"artifact_b_state,omitempty"`
}

// PersonQuery resolves by personal card id or identity, whichever is set.
type PersonQuery struct {
	PersonalCardID string `json:"personal_card_id,omitempty"`
	UUIdentity     string `json:"uu_identity,omitempty"`
}

type Person struct {
	Name        string   `json:"name"`
	Surname     string   `json:"surname"`
	Email       string   `json:"email,omitempty"`
	AddressList []string `json:"address_list,omitempty"`
	PhoneList   []string `json:"phone_list,omitempty"`
	UUIdentity  string   `json:"uu_identity"`
	ArtifactID  string   `json:"artifact_id,omitempty"`
}

// Registry is the remote surface the workflows depend on. Every method is a
// single network call: no retries, no rollback. Compensation belongs to the
// calling workflow.
type Registry interface {
	ArtifactCreate(ctx context.Context, req ArtifactCreateRequest) (*Artifact, error)
	ArtifactSetBasicAttributes(ctx context.Context, id, name, code, desc string) error
	ArtifactSetState(ctx context.Context, id, state, desc string) (*ArtifactEnvironment, error)
	ArtifactDelete(ctx context.Context, id string) error
	ArtifactLoadEnvironment(ctx context.Context, id string) (*ArtifactEnvironment, error)

	UnitCreate(ctx context.Context, req UnitCreateRequest) (*Unit, error)
	UnitSetResponsibleRole(ctx context.Context, unitID, roleID string) error

	RoleCreate(ctx context.Context, name, locationCode string) (*Role, error)
	RoleAddCast(ctx context.Context, roleID, sideBCode string) error
	RoleListCastsBySideB(ctx context.Context, sideBCode string) ([]RoleCast, error)
	RoleGet(ctx context.Context, idOrCode string) (*Role, error)

	RelationCreate(ctx context.Context, artifactA, artifactB string) error
	RelationDelete(ctx context.Context, artifactA, relationCode, artifactB string) error
	RelationListByArtifactA(ctx context.Context, artifactID string) ([]Relation, error)
	RelationListByArtifactB(ctx context.Context, artifactID string) ([]Relation, error)

	CastVerify(ctx context.Context, roleIDs []string) ([]string, error)

	PersonGet(ctx context.Context, q PersonQuery) (*Person, error)

	// ScriptRun triggers the script engine. Workflows call it fire-and-forget
	// and only record failures as warnings.
	ScriptRun(ctx context.Context, scriptURI, consoleURI string, dtoIn map[string]interface{}) error
}

// Config carries the per-tenant base URIs (from the SchoolInstance row) and
// the short-lived token minted for this call chain.
type Config struct {
	ArtifactBase string
	PersonBase   string
	ScriptBase   string
	Token        string
}

// Factory builds a Registry bound to one tenant+caller. Workflows hold the
// factory; tests swap in a fake.
type Factory interface {
	New(cfg Config) Registry
}
