package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	"schoolkit_backend/internals/features/school/instance/dto"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/workflow"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry/registrytest"
)

func init() {
	configs.RegistryJWTSecret = "test-secret"
}

func newFixture(t *testing.T) (*Service, storage.Stores, *registrytest.Fake, helper.Session) {
	t.Helper()
	stores := storage.NewMemoryStores().Stores()
	fake := registrytest.New()
	svc := New(workflow.NewDeps(stores, registrytest.Factory{Fake: fake}))
	sess := helper.Session{UserID: uuid.New(), Identity: "principal-1", SchoolID: uuid.New(), Profiles: []string{"Authorities"}}
	return svc, stores, fake, sess
}

func initRequest() dto.InitSchoolInstanceRequest {
	return dto.InitSchoolInstanceRequest{
		SchoolInstanceCode:            "SK1",
		SchoolInstanceName:            "School one",
		SchoolInstanceArtifactBaseURI: "https://artifacts.test",
		SchoolInstancePersonBaseURI:   "https://persons.test",
		SchoolInstanceScriptBaseURI:   "https://scripts.test",
	}
}

func TestInitSchoolInstance(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	inst, warns, err := svc.Init(context.Background(), sess, initRequest())
	if err != nil {
		t.Fatalf("init: %v (warnings %v)", err, warns)
	}
	if inst.SchoolInstanceState != lifecycle.StateActive {
		t.Fatalf("state = %s, want active", inst.SchoolInstanceState)
	}
	if inst.SchoolInstanceUnitID == nil || inst.SchoolInstancePrincipalRoleID == nil || inst.SchoolInstanceArtifactID == nil {
		t.Fatalf("remote ids not stored: %+v", inst)
	}
	if got := fake.CallCount("role/addCast"); got != 1 {
		t.Fatalf("role/addCast calls = %d, want 1 (caller cast as principal)", got)
	}
	if got := fake.CallCount("unit/setResponsibleRole"); got != 1 {
		t.Fatalf("unit/setResponsibleRole calls = %d, want 1", got)
	}
}

func TestInitTwiceConflicts(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	if _, _, err := svc.Init(context.Background(), sess, initRequest()); err != nil {
		t.Fatalf("first init: %v", err)
	}
	before := len(fake.Calls())

	_, _, err := svc.Init(context.Background(), sess, initRequest())
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("second init err = %v, want conflict", err)
	}
	if got := len(fake.Calls()); got != before {
		t.Fatalf("second init made %d remote calls, want 0", got-before)
	}
}

func TestInitArtifactFailureRollsBackLocalRow(t *testing.T) {
	svc, stores, fake, sess := newFixture(t)
	boom := errors.New("artifact registry down")
	fake.FailOn = map[string]error{"artifact/create": boom}

	_, _, err := svc.Init(context.Background(), sess, initRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("init err = %v, want %v", err, boom)
	}
	if _, err := stores.Instances.GetByTenant(context.Background(), sess.SchoolID); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("instance row survived rollback: %v", err)
	}

	// The tenant can retry after the registry recovers.
	fake.FailOn = nil
	if _, _, err := svc.Init(context.Background(), sess, initRequest()); err != nil {
		t.Fatalf("retry init: %v", err)
	}
}

func TestSetStateRejectsClosed(t *testing.T) {
	svc, _, _, sess := newFixture(t)
	if _, _, err := svc.Init(context.Background(), sess, initRequest()); err != nil {
		t.Fatalf("init: %v", err)
	}

	_, _, err := svc.SetState(context.Background(), sess, dto.SetSchoolInstanceStateRequest{State: "closed"})
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("setState(closed) err = %v, want validation", err)
	}

	inst, _, err := svc.SetState(context.Background(), sess, dto.SetSchoolInstanceStateRequest{State: "passive"})
	if err != nil {
		t.Fatalf("setState(passive): %v", err)
	}
	if inst.SchoolInstanceState != lifecycle.StatePassive {
		t.Fatalf("state = %s, want passive", inst.SchoolInstanceState)
	}
}

func TestUpdatePropagatesNameToArtifact(t *testing.T) {
	svc, _, fake, sess := newFixture(t)
	if _, _, err := svc.Init(context.Background(), sess, initRequest()); err != nil {
		t.Fatalf("init: %v", err)
	}

	name := "School one, renamed"
	inst, warns, err := svc.Update(context.Background(), sess, dto.UpdateSchoolInstanceRequest{SchoolInstanceName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !warns.Empty() {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if inst.SchoolInstanceName != name {
		t.Fatalf("name = %q, want %q", inst.SchoolInstanceName, name)
	}
	if got := fake.CallCount("artifact/setBasicAttributes"); got != 1 {
		t.Fatalf("artifact/setBasicAttributes calls = %d, want 1", got)
	}
}
