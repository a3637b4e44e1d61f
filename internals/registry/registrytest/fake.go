// file: internals/registry/registrytest/fake.go
//
// In-memory Registry double for workflow tests. Records every call and lets a
// test fail a specific operation to exercise compensation paths.
package registrytest

import (
	"context"
	"fmt"
	"sync"

	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry"
)

type Fake struct {
	mu sync.Mutex

	// FailOn maps an operation name ("artifact/create", ...) to the error it
	// should return.
	FailOn map[string]error

	// FailOnNth fails only the n-th invocation (1-based) of an operation,
	// for workflows that call the same operation more than once.
	FailOnNth map[string]map[int]error

	// Casts returned by CastVerify (intersected with the requested ids).
	Casts []string

	// Persons returned by PersonGet keyed by identity or card id.
	Persons map[string]registry.Person

	calls     []string
	perOp     map[string]int
	artifacts map[string]string // id -> state
	deleted   []string
	relations []registry.Relation

	nextID int
}

var _ registry.Registry = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		FailOn:    map[string]error{},
		FailOnNth: map[string]map[int]error{},
		Persons:   map[string]registry.Person{},
		perOp:     map[string]int{},
		artifacts: map[string]string{},
	}
}

// Factory returns f for every Config, satisfying registry.Factory.
type Factory struct{ Fake *Fake }

func (f Factory) New(registry.Config) registry.Registry { return f.Fake }

// Calls returns the recorded operation names in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) CallCount(op string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// DeletedArtifacts returns ids passed to ArtifactDelete.
func (f *Fake) DeletedArtifacts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.deleted))
	copy(out, f.deleted)
	return out
}

// SeedRelations primes RelationListByArtifactA/B responses.
func (f *Fake) SeedRelations(rels ...registry.Relation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relations = append(f.relations, rels...)
}

func (f *Fake) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	f.perOp[op]++
	if err, ok := f.FailOnNth[op][f.perOp[op]]; ok {
		return err
	}
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) id(prefix string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *Fake) ArtifactCreate(_ context.Context, req registry.ArtifactCreateRequest) (*registry.Artifact, error) {
	if err := f.record("artifact/create"); err != nil {
		return nil, err
	}
	id := f.id("art")
	f.mu.Lock()
	f.artifacts[id] = "initial"
	f.mu.Unlock()
	return &registry.Artifact{ID: id, Code: req.Code, Name: req.Name, State: "initial"}, nil
}

func (f *Fake) ArtifactSetBasicAttributes(_ context.Context, id, name, code, desc string) error {
	return f.record("artifact/setBasicAttributes")
}

func (f *Fake) ArtifactSetState(_ context.Context, id, state, desc string) (*registry.ArtifactEnvironment, error) {
	if err := f.record("artifact/setState"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.artifacts[id] = state
	f.mu.Unlock()
	return &registry.ArtifactEnvironment{ArtifactID: id, State: state}, nil
}

func (f *Fake) ArtifactDelete(_ context.Context, id string) error {
	if err := f.record("artifact/delete"); err != nil {
		return err
	}
	f.mu.Lock()
	delete(f.artifacts, id)
	f.deleted = append(f.deleted, id)
	f.mu.Unlock()
	return nil
}

func (f *Fake) ArtifactLoadEnvironment(_ context.Context, id string) (*registry.ArtifactEnvironment, error) {
	if err := f.record("artifact/loadEnvironment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	state, ok := f.artifacts[id]
	f.mu.Unlock()
	if !ok {
		return nil, errs.NotFound("artifactDoesNotExist", "artifact does not exist")
	}
	return &registry.ArtifactEnvironment{ArtifactID: id, State: state}, nil
}

func (f *Fake) UnitCreate(_ context.Context, req registry.UnitCreateRequest) (*registry.Unit, error) {
	if err := f.record("unit/create"); err != nil {
		return nil, err
	}
	return &registry.Unit{ID: f.id("unit"), Code: req.Code}, nil
}

func (f *Fake) UnitSetResponsibleRole(_ context.Context, unitID, roleID string) error {
	return f.record("unit/setResponsibleRole")
}

func (f *Fake) RoleCreate(_ context.Context, name, locationCode string) (*registry.Role, error) {
	if err := f.record("role/create"); err != nil {
		return nil, err
	}
	return &registry.Role{ID: f.id("role"), State: "active"}, nil
}

func (f *Fake) RoleAddCast(_ context.Context, roleID, sideBCode string) error {
	return f.record("role/addCast")
}

func (f *Fake) RoleListCastsBySideB(_ context.Context, sideBCode string) ([]registry.RoleCast, error) {
	if err := f.record("role/listCastsBySideB"); err != nil {
		return nil, err
	}
	var out []registry.RoleCast
	for _, id := range f.Casts {
		out = append(out, registry.RoleCast{RoleID: id, SideBCode: sideBCode, State: "active"})
	}
	return out, nil
}

func (f *Fake) RoleGet(_ context.Context, idOrCode string) (*registry.Role, error) {
	if err := f.record("role/get"); err != nil {
		return nil, err
	}
	return &registry.Role{ID: idOrCode, State: "active", MainUUIdentity: idOrCode}, nil
}

func (f *Fake) RelationCreate(_ context.Context, artifactA, artifactB string) error {
	if err := f.record("aar/create"); err != nil {
		return err
	}
	f.mu.Lock()
	f.relations = append(f.relations, registry.Relation{ArtifactA: artifactA, ArtifactB: artifactB, RelationCode: "aar"})
	f.mu.Unlock()
	return nil
}

func (f *Fake) RelationDelete(_ context.Context, artifactA, relationCode, artifactB string) error {
	if err := f.record("aar/delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.relations[:0]
	for _, r := range f.relations {
		if !(r.ArtifactA == artifactA && r.ArtifactB == artifactB) {
			kept = append(kept, r)
		}
	}
	f.relations = kept
	return nil
}

func (f *Fake) RelationListByArtifactA(_ context.Context, artifactID string) ([]registry.Relation, error) {
	if err := f.record("aar/listByArtifactA"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []registry.Relation
	for _, r := range f.relations {
		if r.ArtifactA == artifactID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) RelationListByArtifactB(_ context.Context, artifactID string) ([]registry.Relation, error) {
	if err := f.record("aar/listByArtifactB"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []registry.Relation
	for _, r := range f.relations {
		if r.ArtifactB == artifactID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) CastVerify(_ context.Context, roleIDs []string) ([]string, error) {
	if err := f.record("castVerification/verify"); err != nil {
		return nil, err
	}
	var matched []string
	for _, want := range roleIDs {
		for _, have := range f.Casts {
			if want == have {
				matched = append(matched, want)
			}
		}
	}
	return matched, nil
}

func (f *Fake) PersonGet(_ context.Context, q registry.PersonQuery) (*registry.Person, error) {
	if err := f.record("person/get"); err != nil {
		return nil, err
	}
	key := q.UUIdentity
	if key == "" {
		key = q.PersonalCardID
	}
	if p, ok := f.Persons[key]; ok {
		return &p, nil
	}
	return nil, errs.NotFound("personDoesNotExist", "person does not exist")
}

func (f *Fake) ScriptRun(_ context.Context, scriptURI, consoleURI string, dtoIn map[string]interface{}) error {
	return f.record("script/run")
}
