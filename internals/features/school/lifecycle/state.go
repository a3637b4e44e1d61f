// file: internals/features/school/lifecycle/state.go
package lifecycle

import (
	"fmt"

	"schoolkit_backend/internals/helpers/errs"
)

// State is the lifecycle lattice shared by all school entities.
type State string

const (
	StateInitial  State = "initial"
	StatePrepared State = "prepared"
	StateActive   State = "active"
	StateWarning  State = "warning"
	StateProblem  State = "problem"
	StatePassive  State = "passive"
	StateClosed   State = "closed" // terminal
	// StateFormer only appears on relation entries (studentList), never on an
	// entity's own state column.
	StateFormer State = "former"
)

// Kind names an entity kind for transition-table lookups and error codes.
type Kind string

const (
	KindInstance      Kind = "schoolInstance"
	KindSchoolYear    Kind = "schoolYear"
	KindClass         Kind = "class"
	KindSubject       Kind = "subject"
	KindStudent       Kind = "student"
	KindTeacher       Kind = "teacher"
	KindRelatedPerson Kind = "relatedPerson"
)

// NonFinalStates are the states a mutating workflow may normally start from.
var NonFinalStates = []State{StateInitial, StatePrepared, StateActive, StateWarning, StateProblem}

// ActiveLikeStates gate workflows that must not run against passive tenants.
var ActiveLikeStates = []State{StateActive, StateWarning, StateProblem}

// NonClosedStates is everything but the terminal state.
var NonClosedStates = []State{StateInitial, StatePrepared, StateActive, StateWarning, StateProblem, StatePassive}

var fullForward = []State{StateInitial, StatePrepared, StateActive, StateWarning, StateProblem, StatePassive, StateClosed}

// Teachers and related persons are created straight into active duty; their
// lattice has no prepared step.
var noPreparedForward = []State{StateInitial, StateActive, StateWarning, StateProblem, StatePassive, StateClosed}

var forwardByKind = map[Kind][]State{
	KindInstance:      fullForward,
	KindSchoolYear:    fullForward,
	KindClass:         fullForward,
	KindSubject:       fullForward,
	KindStudent:       fullForward,
	KindTeacher:       noPreparedForward,
	KindRelatedPerson: noPreparedForward,
}

// allowedNext maps kind -> current state -> legal next states. Forward moves
// may skip states; `closed` has no outgoing edges.
var allowedNext = func() map[Kind]map[State]map[State]bool {
	t := make(map[Kind]map[State]map[State]bool, len(forwardByKind))
	for kind, forward := range forwardByKind {
		k := make(map[State]map[State]bool, len(forward))
		for i, from := range forward {
			next := make(map[State]bool)
			for _, to := range forward[i+1:] {
				next[to] = true
			}
			// warning/problem/passive may also settle back to active.
			if from == StateWarning || from == StateProblem || from == StatePassive {
				next[StateActive] = true
			}
			k[from] = next
		}
		t[kind] = k
	}
	return t
}()

// Valid reports whether s is an entity state at all, for any kind.
func Valid(s State) bool {
	for _, f := range fullForward {
		if s == f {
			return true
		}
	}
	return false
}

// CanTransition reports whether from -> to is a legal forward move for kind.
func CanTransition(kind Kind, from, to State) bool {
	next, ok := allowedNext[kind][from]
	return ok && next[to]
}

// EnsureEntityState fails with a state conflict unless current is allowed.
// Every workflow calls this before touching remote services, so no remote
// side effect is ever attempted against an entity in a disallowed state.
func EnsureEntityState(kind Kind, current State, allowed ...State) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return errs.StateConflict(
		string(kind)+"IsNotInProperState",
		fmt.Sprintf("%s is in state %q, expected one of %v", kind, current, allowed),
	)
}

// EnsureTransition gates an explicit setState request against the table.
func EnsureTransition(kind Kind, from, to State) error {
	if !Valid(to) {
		return errs.Validation("invalidState", fmt.Sprintf("unknown state %q", to))
	}
	if !CanTransition(kind, from, to) {
		return errs.StateConflict(
			string(kind)+"IsNotInProperState",
			fmt.Sprintf("%s cannot move from %q to %q", kind, from, to),
		)
	}
	return nil
}
