package lifecycle

import (
	"testing"

	"schoolkit_backend/internals/helpers/errs"
)

func TestTransitionsOnlyMoveForward(t *testing.T) {
	cases := []struct {
		kind     Kind
		from, to State
		ok       bool
	}{
		{KindClass, StateInitial, StateActive, true},
		{KindClass, StateInitial, StateClosed, true},
		{KindClass, StateActive, StateInitial, false},
		{KindClass, StateActive, StatePassive, true},
		{KindClass, StateWarning, StateActive, true}, // recovery edge
		{KindClass, StatePassive, StateActive, true},
		{KindClass, StateClosed, StateActive, false},
		{KindClass, StateClosed, StateClosed, false},
		{KindSubject, StateInitial, StatePrepared, true},
		{KindStudent, StateInitial, StatePrepared, true},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.kind, tc.from, tc.to); got != tc.ok {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.kind, tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestClosedIsTerminal(t *testing.T) {
	for kind := range forwardByKind {
		for _, to := range []State{StateInitial, StatePrepared, StateActive, StateWarning, StateProblem, StatePassive, StateClosed} {
			if CanTransition(kind, StateClosed, to) {
				t.Errorf("%s: closed must not transition to %s", kind, to)
			}
		}
	}
}

func TestTeacherLatticeHasNoPrepared(t *testing.T) {
	for _, kind := range []Kind{KindTeacher, KindRelatedPerson} {
		err := EnsureTransition(kind, StateInitial, StatePrepared)
		if !errs.IsKind(err, errs.KindStateConflict) {
			t.Fatalf("%s initial -> prepared: err = %v, want state conflict", kind, err)
		}
		if CanTransition(kind, StatePrepared, StateActive) {
			t.Errorf("%s must have no outgoing edges from prepared", kind)
		}
		// the rest of the lattice is unaffected
		if err := EnsureTransition(kind, StateInitial, StateActive); err != nil {
			t.Fatalf("%s initial -> active: %v", kind, err)
		}
		if err := EnsureTransition(kind, StateActive, StatePassive); err != nil {
			t.Fatalf("%s active -> passive: %v", kind, err)
		}
	}
}

func TestEnsureEntityState(t *testing.T) {
	if err := EnsureEntityState(KindClass, StateActive, NonFinalStates...); err != nil {
		t.Fatalf("EnsureEntityState: %v", err)
	}

	err := EnsureEntityState(KindClass, StateClosed, NonFinalStates...)
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if errs.CodeOf(err) != "classIsNotInProperState" {
		t.Fatalf("code = %q", errs.CodeOf(err))
	}
}

func TestEnsureTransitionRejectsUnknownState(t *testing.T) {
	if err := EnsureTransition(KindSubject, StateActive, State("limbo")); !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("err = %v, want validation failure", err)
	}
	if err := EnsureTransition(KindSubject, StateActive, StatePassive); err != nil {
		t.Fatalf("EnsureTransition: %v", err)
	}
}

func TestFormerIsNotAnEntityState(t *testing.T) {
	if Valid(StateFormer) {
		t.Fatal("former must not be a valid entity state")
	}
}
