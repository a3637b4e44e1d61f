package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/teachers/dto"
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

	schoolID := uuid.New()
	inst := &instanceModel.SchoolInstanceModel{
		SchoolInstanceSchoolID:        schoolID,
		SchoolInstanceCode:            "SK1",
		SchoolInstanceName:            "School one",
		SchoolInstanceState:           lifecycle.StateActive,
		SchoolInstanceArtifactBaseURI: "https://artifacts.test",
		SchoolInstancePersonBaseURI:   "https://persons.test",
		SchoolInstanceScriptBaseURI:   "https://scripts.test",
	}
	if err := stores.Instances.Create(context.Background(), inst); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	svc := New(workflow.NewDeps(stores, registrytest.Factory{Fake: fake}))
	sess := helper.Session{UserID: uuid.New(), Identity: "admin-1", SchoolID: schoolID, Profiles: []string{"Authorities"}}
	return svc, stores, fake, sess
}

func TestCreateTeacherMirrorsArtifact(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	teacher, warns, err := svc.Create(context.Background(), sess, dto.CreateTeacherRequest{
		TeacherUUIdentity:     "teacher-7",
		TeacherPersonalCardID: "card-7",
	})
	if err != nil {
		t.Fatalf("create: %v (warnings %v)", err, warns)
	}
	if teacher.TeacherState != lifecycle.StateActive {
		t.Fatalf("state = %s, want active", teacher.TeacherState)
	}
	if teacher.TeacherArtifactID == nil {
		t.Fatal("artifact id not stored")
	}
	if got := fake.CallCount("artifact/create"); got != 1 {
		t.Fatalf("artifact/create calls = %d, want 1", got)
	}

	_, _, err = svc.Create(context.Background(), sess, dto.CreateTeacherRequest{TeacherUUIdentity: "teacher-7"})
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("duplicate create err = %v, want conflict", err)
	}
}

func TestSetFinalStateBlockedByActiveRoleCast(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	teacher, _, err := svc.Create(context.Background(), sess, dto.CreateTeacherRequest{TeacherUUIdentity: "teacher-7"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fake.Casts = []string{"role-class-7a"}
	_, _, err = svc.SetFinalState(context.Background(), sess, teacher.TeacherID)
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("close with active cast err = %v, want state conflict", err)
	}

	fake.Casts = nil
	closed, warns, err := svc.SetFinalState(context.Background(), sess, teacher.TeacherID)
	if err != nil {
		t.Fatalf("close: %v (warnings %v)", err, warns)
	}
	if closed.TeacherState != lifecycle.StateClosed {
		t.Fatalf("state = %s, want closed", closed.TeacherState)
	}
}

func TestSetFinalStateDeletesOutgoingRelations(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	teacher, _, err := svc.Create(context.Background(), sess, dto.CreateTeacherRequest{TeacherUUIdentity: "teacher-7"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two relations hanging off the teacher artifact, both must go.
	if err := fake.RelationCreate(context.Background(), *teacher.TeacherArtifactID, "art-class-1"); err != nil {
		t.Fatalf("seed relation: %v", err)
	}
	if err := fake.RelationCreate(context.Background(), *teacher.TeacherArtifactID, "art-class-2"); err != nil {
		t.Fatalf("seed relation: %v", err)
	}

	if _, _, err := svc.SetFinalState(context.Background(), sess, teacher.TeacherID); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := fake.CallCount("aar/delete"); got != 2 {
		t.Fatalf("aar/delete calls = %d, want 2", got)
	}
}

func TestUpdateTeacherRejectedAfterClose(t *testing.T) {
	svc, stores, _, sess := newFixture(t)

	teacher, _, err := svc.Create(context.Background(), sess, dto.CreateTeacherRequest{TeacherUUIdentity: "teacher-9"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	card := "card-9"
	updated, warns, err := svc.Update(context.Background(), sess, teacher.TeacherID, dto.UpdateTeacherRequest{TeacherPersonalCardID: &card})
	if err != nil {
		t.Fatalf("update: %v (warnings %v)", err, warns)
	}
	if updated.TeacherPersonalCardID == nil || *updated.TeacherPersonalCardID != "card-9" {
		t.Fatalf("personal card id = %v, want card-9", updated.TeacherPersonalCardID)
	}

	fresh, err := stores.Teachers.Get(context.Background(), sess.SchoolID, teacher.TeacherID)
	if err != nil {
		t.Fatalf("reload teacher: %v", err)
	}
	fresh.TeacherState = lifecycle.StateClosed
	if err := stores.Teachers.Update(context.Background(), fresh); err != nil {
		t.Fatalf("close teacher: %v", err)
	}
	if _, _, err := svc.Update(context.Background(), sess, teacher.TeacherID, dto.UpdateTeacherRequest{TeacherPersonalCardID: &card}); !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("update after close: err = %v, want StateConflict", err)
	}
}

func TestSetStateRejectsPreparedForTeacher(t *testing.T) {
	svc, stores, _, sess := newFixture(t)

	teacher, _, err := svc.Create(context.Background(), sess, dto.CreateTeacherRequest{TeacherUUIdentity: "teacher-11"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh, err := stores.Teachers.Get(context.Background(), sess.SchoolID, teacher.TeacherID)
	if err != nil {
		t.Fatalf("reload teacher: %v", err)
	}
	fresh.TeacherState = lifecycle.StateInitial
	if err := stores.Teachers.Update(context.Background(), fresh); err != nil {
		t.Fatalf("reset teacher: %v", err)
	}

	// prepared is a forward move from initial for most kinds, but teachers
	// have no prepared step.
	_, _, err = svc.SetState(context.Background(), sess, teacher.TeacherID, dto.SetTeacherStateRequest{State: "prepared"})
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("set prepared: err = %v, want state conflict", err)
	}
	if _, _, err := svc.SetState(context.Background(), sess, teacher.TeacherID, dto.SetTeacherStateRequest{State: "active"}); err != nil {
		t.Fatalf("set active: %v", err)
	}
}
