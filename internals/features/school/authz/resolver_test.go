package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/constants"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry/registrytest"
)

func newResolver(t *testing.T) (*Resolver, *registrytest.Fake, storage.Stores, uuid.UUID) {
	t.Helper()
	mem := storage.NewMemoryStores()
	stores := mem.Stores()
	return New(stores.Teachers), registrytest.New(), stores, uuid.New()
}

func TestPrivilegedProfilesShortCircuit(t *testing.T) {
	r, reg, _, schoolID := newResolver(t)

	profiles, err := r.Resolve(context.Background(), reg, schoolID,
		Caller{Identity: "u-1", Profiles: []string{constants.ProfileAuthorities}},
		Descriptor{TeacherRoles: map[string]string{"role-1": constants.ProfileClassTeacher}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(profiles) != 1 || profiles[0] != constants.ProfileAuthorities {
		t.Fatalf("profiles = %v", profiles)
	}
	if reg.CallCount("castVerification/verify") != 0 {
		t.Fatal("privileged caller must not trigger cast verification")
	}
}

func TestCastMatchGrantsTeacherProfile(t *testing.T) {
	r, reg, _, schoolID := newResolver(t)
	reg.Casts = []string{"role-1"}

	profiles, err := r.Resolve(context.Background(), reg, schoolID,
		Caller{Identity: "u-1", Profiles: []string{constants.ProfileStandardUsers}},
		Descriptor{TeacherRoles: map[string]string{"role-1": constants.ProfileClassTeacher}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !constants.HasProfile(profiles, constants.ProfileClassTeacher) {
		t.Fatalf("profiles = %v, want ClassTeacher", profiles)
	}
}

func TestStudentIdentityGrantsStudentProfile(t *testing.T) {
	r, reg, _, schoolID := newResolver(t)

	profiles, err := r.Resolve(context.Background(), reg, schoolID,
		Caller{Identity: "stu-9"},
		Descriptor{StudentIdentity: "stu-9"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !constants.HasProfile(profiles, constants.ProfileStudent) {
		t.Fatalf("profiles = %v, want Student", profiles)
	}
}

func TestNonClosedTeacherRecordGrantsTeacherProfile(t *testing.T) {
	r, reg, stores, schoolID := newResolver(t)
	if err := stores.Teachers.Create(context.Background(), &teacherModel.TeacherModel{
		TeacherSchoolID:   schoolID,
		TeacherUUIdentity: "t-1",
		TeacherState:      lifecycle.StateActive,
	}); err != nil {
		t.Fatal(err)
	}

	profiles, err := r.Resolve(context.Background(), reg, schoolID, Caller{Identity: "t-1"}, Descriptor{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !constants.HasProfile(profiles, constants.ProfileTeacher) {
		t.Fatalf("profiles = %v, want Teacher", profiles)
	}
}

func TestClosedTeacherRecordDoesNotAuthorize(t *testing.T) {
	r, reg, stores, schoolID := newResolver(t)
	if err := stores.Teachers.Create(context.Background(), &teacherModel.TeacherModel{
		TeacherSchoolID:   schoolID,
		TeacherUUIdentity: "t-closed",
		TeacherState:      lifecycle.StateClosed,
	}); err != nil {
		t.Fatal(err)
	}

	_, err := r.Resolve(context.Background(), reg, schoolID, Caller{Identity: "t-closed"}, Descriptor{})
	if !errs.IsKind(err, errs.KindNotAuthorized) {
		t.Fatalf("err = %v, want NotAuthorized", err)
	}
}

func TestEmptyCapabilitySetFails(t *testing.T) {
	r, reg, _, schoolID := newResolver(t)

	_, err := r.Resolve(context.Background(), reg, schoolID,
		Caller{Identity: "nobody", Profiles: []string{constants.ProfileStandardUsers}},
		Descriptor{StudentIdentity: "someone-else"})
	if !errs.IsKind(err, errs.KindNotAuthorized) {
		t.Fatalf("err = %v, want NotAuthorized", err)
	}
}
