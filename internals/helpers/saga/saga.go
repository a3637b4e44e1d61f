// file: internals/helpers/saga/saga.go
//
// Minimal staged-rollback runner for the lifecycle workflows. Each workflow is
// a fixed, hand-ordered list of steps; there is no generic saga framework and
// no retry here. When a step fails, the compensations of every step that
// already succeeded run in reverse order. Compensation failures are downgraded
// to warnings so the caller always sees the primary cause.
package saga

import (
	"context"

	"schoolkit_backend/internals/helpers/errs"
)

type Step struct {
	Name string
	Run  func(ctx context.Context) error
	// Compensate undoes Run after a later step failed. Nil means the step
	// leaves nothing to undo (or its residue is an accepted gap).
	Compensate func(ctx context.Context) error
}

// Execute runs steps in order. On the first failure it invokes the
// compensations of all previously succeeded steps in reverse order, records
// each compensation failure into warns, and returns the original error.
func Execute(ctx context.Context, warns errs.Warnings, steps []Step) error {
	done := make([]Step, 0, len(steps))
	for _, step := range steps {
		if err := step.Run(ctx); err != nil {
			compensate(ctx, warns, done)
			return err
		}
		done = append(done, step)
	}
	return nil
}

func compensate(ctx context.Context, warns errs.Warnings, done []Step) {
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			warns.AddCompensation(step.Name, err)
		}
	}
}
