package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/workflow"
	"schoolkit_backend/internals/features/school/years/dto"
	yearModel "schoolkit_backend/internals/features/school/years/model"
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

func createRequest(code string) dto.CreateSchoolYearRequest {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return dto.CreateSchoolYearRequest{
		SchoolYearCode:      code,
		SchoolYearName:      "School year " + code,
		SchoolYearStartDate: start,
		SchoolYearEndDate:   start.AddDate(0, 10, 0),
	}
}

func TestCreateSchoolYear(t *testing.T) {
	svc, _, fake, sess := newFixture(t)

	year, warns, err := svc.Create(context.Background(), sess, createRequest("2026-27"))
	if err != nil {
		t.Fatalf("create: %v (warnings %v)", err, warns)
	}
	if year.SchoolYearFolderID == nil || year.SchoolYearArtifactID == nil {
		t.Fatalf("remote ids not stored: %+v", year)
	}
	if got := fake.CallCount("unit/create"); got != 1 {
		t.Fatalf("unit/create calls = %d, want 1", got)
	}

	before := len(fake.Calls())
	_, _, err = svc.Create(context.Background(), sess, createRequest("2026-27"))
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("duplicate create err = %v, want conflict", err)
	}
	if got := len(fake.Calls()); got != before {
		t.Fatalf("duplicate create made %d remote calls, want 0", got-before)
	}
}

func TestCreateSchoolYearArtifactFailureRollsBack(t *testing.T) {
	svc, stores, fake, sess := newFixture(t)
	boom := errors.New("artifact registry down")
	fake.FailOn = map[string]error{"artifact/create": boom}

	_, _, err := svc.Create(context.Background(), sess, createRequest("2026-27"))
	if !errors.Is(err, boom) {
		t.Fatalf("create err = %v, want %v", err, boom)
	}
	if _, err := stores.Years.GetByCode(context.Background(), sess.SchoolID, "2026-27"); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("year row survived rollback: %v", err)
	}

	// The code is free again once the registry recovers.
	fake.FailOn = nil
	if _, _, err := svc.Create(context.Background(), sess, createRequest("2026-27")); err != nil {
		t.Fatalf("retry create: %v", err)
	}
}

func TestUpdateRejectsInvertedDates(t *testing.T) {
	svc, _, _, sess := newFixture(t)

	year, _, err := svc.Create(context.Background(), sess, createRequest("2026-27"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	bad := year.SchoolYearStartDate.AddDate(0, -1, 0)
	_, _, err = svc.Update(context.Background(), sess, year.SchoolYearID, dto.UpdateSchoolYearRequest{SchoolYearEndDate: &bad})
	if !errs.IsKind(err, errs.KindValidation) {
		t.Fatalf("update err = %v, want validation", err)
	}
}

func TestSetFinalStateRequiresAllClassesClosed(t *testing.T) {
	svc, stores, _, sess := newFixture(t)

	year, _, err := svc.Create(context.Background(), sess, createRequest("2026-27"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	class := &classModel.ClassModel{
		ClassSchoolID:     sess.SchoolID,
		ClassSchoolYearID: year.SchoolYearID,
		ClassCode:         "7A",
		ClassName:         "Class 7A",
		ClassState:        lifecycle.StateActive,
	}
	if err := stores.Classes.Create(context.Background(), class); err != nil {
		t.Fatalf("seed class: %v", err)
	}

	_, _, err = svc.SetFinalState(context.Background(), sess, year.SchoolYearID)
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("close with open class err = %v, want state conflict", err)
	}

	class.ClassState = lifecycle.StateClosed
	if err := stores.Classes.Update(context.Background(), class); err != nil {
		t.Fatalf("close class: %v", err)
	}

	closed, warns, err := svc.SetFinalState(context.Background(), sess, year.SchoolYearID)
	if err != nil {
		t.Fatalf("close: %v (warnings %v)", err, warns)
	}
	if closed.SchoolYearState != lifecycle.StateClosed {
		t.Fatalf("state = %s, want closed", closed.SchoolYearState)
	}

	var stored *yearModel.SchoolYearModel
	stored, err = stores.Years.Get(context.Background(), sess.SchoolID, year.SchoolYearID)
	if err != nil {
		t.Fatalf("reload year: %v", err)
	}
	if stored.SchoolYearState != lifecycle.StateClosed {
		t.Fatalf("stored state = %s, want closed", stored.SchoolYearState)
	}
}
