// file: internals/features/school/stateguard/guard.go
package stateguard

import (
	"context"

	"github.com/google/uuid"

	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
)

// Guard gates every mutating workflow: the tenant instance must exist and be
// in an allowed state before any local or remote side effect is attempted.
type Guard struct {
	Instances storage.SchoolInstanceStore
}

func New(instances storage.SchoolInstanceStore) *Guard {
	return &Guard{Instances: instances}
}

// EnsureInstance loads the tenant's SchoolInstance or fails with NotFound.
func (g *Guard) EnsureInstance(ctx context.Context, schoolID uuid.UUID) (*instanceModel.SchoolInstanceModel, error) {
	return g.Instances.GetByTenant(ctx, schoolID)
}

// EnsureInstanceAndState additionally requires the instance state to be one
// of allowed.
func (g *Guard) EnsureInstanceAndState(ctx context.Context, schoolID uuid.UUID, allowed ...lifecycle.State) (*instanceModel.SchoolInstanceModel, error) {
	inst, err := g.Instances.GetByTenant(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.EnsureEntityState(lifecycle.KindInstance, inst.SchoolInstanceState, allowed...); err != nil {
		return nil, err
	}
	return inst, nil
}

// EnsureEntityState re-exports the lifecycle check so workflows gate entity
// states through the same component that gates the instance.
func (g *Guard) EnsureEntityState(kind lifecycle.Kind, current lifecycle.State, allowed ...lifecycle.State) error {
	return lifecycle.EnsureEntityState(kind, current, allowed...)
}
