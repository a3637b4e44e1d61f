package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	"schoolkit_backend/internals/features/school/storage"
	"schoolkit_backend/internals/features/school/students/dto"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	"schoolkit_backend/internals/features/school/workflow"
	helper "schoolkit_backend/internals/helpers"
	"schoolkit_backend/internals/helpers/errs"
	"schoolkit_backend/internals/registry"
	"schoolkit_backend/internals/registry/registrytest"
)

func init() {
	configs.RegistryJWTSecret = "test-secret"
}

type fixture struct {
	svc      *Service
	stores   storage.Stores
	fake     *registrytest.Fake
	sess     helper.Session
	schoolID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := storage.NewMemoryStores().Stores()
	fake := registrytest.New()
	schoolID := uuid.New()

	unitID := "unit-root"
	if err := stores.Instances.Create(context.Background(), &instanceModel.SchoolInstanceModel{
		SchoolInstanceSchoolID:        schoolID,
		SchoolInstanceCode:            "SK1",
		SchoolInstanceName:            "School one",
		SchoolInstanceState:           lifecycle.StateActive,
		SchoolInstanceArtifactBaseURI: "https://artifacts.test",
		SchoolInstanceUnitID:          &unitID,
	}); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	return &fixture{
		svc:      New(workflow.NewDeps(stores, registrytest.Factory{Fake: fake})),
		stores:   stores,
		fake:     fake,
		sess:     helper.Session{UserID: uuid.New(), Identity: "admin-1", SchoolID: schoolID, Profiles: []string{"Authorities"}},
		schoolID: schoolID,
	}
}

func (f *fixture) seedRelatedPerson(t *testing.T, identity string) *rpModel.RelatedPersonModel {
	t.Helper()
	rp := &rpModel.RelatedPersonModel{
		RelatedPersonSchoolID:   f.schoolID,
		RelatedPersonState:      lifecycle.StateActive,
		RelatedPersonUUIdentity: &identity,
	}
	if err := f.stores.RelatedPersons.Create(context.Background(), rp); err != nil {
		t.Fatalf("seed related person: %v", err)
	}
	return rp
}

func (f *fixture) createStudent(t *testing.T, code string, guardians ...dto.RelatedPersonInput) *studentModel.StudentModel {
	t.Helper()
	if len(guardians) == 0 {
		guardians = []dto.RelatedPersonInput{{UUIdentity: "guardian-" + code, IsLegalGuardian: true, RelationType: "mother"}}
	}
	student, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateStudentRequest{
		StudentCode:       code,
		RelatedPersonList: guardians,
	})
	if err != nil {
		t.Fatalf("create student %s: %v (%v)", code, err, warns)
	}
	return student
}

func TestCreateStudentResolvesPersonAndGuardians(t *testing.T) {
	f := newFixture(t)
	f.fake.Persons["card-1"] = registry.Person{Name: "Ada", Surname: "L", UUIdentity: "ada-1"}

	student, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateStudentRequest{
		StudentCode:           "S1",
		StudentPersonalCardID: "card-1",
		RelatedPersonList: []dto.RelatedPersonInput{
			{UUIdentity: "mom-1", IsLegalGuardian: true, RelationType: "mother"},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v (%v)", err, warns)
	}
	if student.StudentUUIdentity == nil || *student.StudentUUIdentity != "ada-1" {
		t.Errorf("identity not resolved from person registry: %v", student.StudentUUIdentity)
	}
	if student.StudentArtifactID == nil {
		t.Error("artifact id not set")
	}
	if len(student.StudentRelatedPersonList) != 1 {
		t.Fatalf("related person list = %v", student.StudentRelatedPersonList)
	}
	// mom-1 was lazily created
	if _, err := f.stores.RelatedPersons.GetByIdentity(context.Background(), f.schoolID, "mom-1"); err != nil {
		t.Errorf("related person not created: %v", err)
	}
}

func TestCreateStudentRejectsGuardianBounds(t *testing.T) {
	f := newFixture(t)

	// no guardian at all
	_, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateStudentRequest{
		StudentCode: "S1",
		RelatedPersonList: []dto.RelatedPersonInput{
			{UUIdentity: "aunt-1", IsLegalGuardian: false, RelationType: "other"},
		},
	})
	if errs.CodeOf(err) != "studentCantHaveAnyRelatedPerson" {
		t.Fatalf("err = %v, want guardian floor violation", err)
	}

	// three guardians
	_, _, err = f.svc.Create(context.Background(), f.sess, dto.CreateStudentRequest{
		StudentCode: "S1",
		RelatedPersonList: []dto.RelatedPersonInput{
			{UUIdentity: "g1", IsLegalGuardian: true, RelationType: "mother"},
			{UUIdentity: "g2", IsLegalGuardian: true, RelationType: "father"},
			{UUIdentity: "g3", IsLegalGuardian: true, RelationType: "grandparent"},
		},
	})
	if errs.CodeOf(err) != "studentCanHaveMaxTwoLegalGuardians" {
		t.Fatalf("err = %v, want guardian ceiling violation", err)
	}
	// fail-fast: nothing was created
	if got := len(f.fake.Calls()); got != 0 {
		t.Errorf("remote calls made: %v", f.fake.Calls())
	}
}

func TestCreateStudentArtifactFailureRollsBackLazyRows(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn["artifact/create"] = errs.RemoteCall("artifact/create", errs.Validation("x", "down"))

	_, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateStudentRequest{
		StudentCode: "S1",
		RelatedPersonList: []dto.RelatedPersonInput{
			{UUIdentity: "mom-1", IsLegalGuardian: true, RelationType: "mother"},
		},
	})
	if !errs.IsKind(err, errs.KindRemoteCall) {
		t.Fatalf("err = %v, want remote-call failure", err)
	}
	if warns.Has("compensationFailed") {
		t.Errorf("compensation should succeed, got %v", warns)
	}
	if _, err := f.stores.Students.GetByCode(context.Background(), f.schoolID, "S1"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("local student survived rollback: %v", err)
	}
	if _, err := f.stores.RelatedPersons.GetByIdentity(context.Background(), f.schoolID, "mom-1"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("lazily created related person survived rollback: %v", err)
	}
}

func TestRemoveRelatedPersonGuardianFloor(t *testing.T) {
	f := newFixture(t)
	student := f.createStudent(t, "S1")
	guardianID := student.StudentRelatedPersonList[0].RelatedPersonID

	_, _, err := f.svc.RemoveRelatedPerson(context.Background(), f.sess, student.StudentID, dto.RemoveRelatedPersonRequest{
		RelatedPersonID: guardianID,
	})
	if errs.CodeOf(err) != "studentCantHaveAnyRelatedPerson" {
		t.Fatalf("err = %v, want guardian floor violation", err)
	}

	// record unchanged
	got, err := f.stores.Students.Get(context.Background(), f.schoolID, student.StudentID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(got.StudentRelatedPersonList) != 1 {
		t.Errorf("list mutated: %v", got.StudentRelatedPersonList)
	}
}

func TestRemoveRelatedPersonAbsentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	student := f.createStudent(t, "S1")

	got, warns, err := f.svc.RemoveRelatedPerson(context.Background(), f.sess, student.StudentID, dto.RemoveRelatedPersonRequest{
		RelatedPersonID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("RemoveRelatedPerson: %v", err)
	}
	if !warns.Has("removeRelatedPersonRelatedPersonIsNotPresent") {
		t.Errorf("want absence warning, got %v", warns)
	}
	if len(got.StudentRelatedPersonList) != 1 {
		t.Errorf("list mutated: %v", got.StudentRelatedPersonList)
	}
}

func TestAddRelatedPersonsPartialSuccessOnCeiling(t *testing.T) {
	f := newFixture(t)
	student := f.createStudent(t, "S1",
		dto.RelatedPersonInput{UUIdentity: "g1", IsLegalGuardian: true, RelationType: "mother"},
	)

	got, warns, err := f.svc.AddRelatedPersons(context.Background(), f.sess, student.StudentID, dto.AddRelatedPersonsRequest{
		RelatedPersonList: []dto.RelatedPersonInput{
			{UUIdentity: "g2", IsLegalGuardian: true, RelationType: "father"},
			{UUIdentity: "g3", IsLegalGuardian: true, RelationType: "grandparent"},
		},
	})
	if err != nil {
		t.Fatalf("AddRelatedPersons: %v", err)
	}
	if len(got.StudentRelatedPersonList) != 2 {
		t.Errorf("list = %v, want two entries", got.StudentRelatedPersonList)
	}
	if !warns.Has("addRelatedPersonsStudentCanHaveMaxTwoLegalGuardians") {
		t.Errorf("want ceiling warning for g3, got %v", warns)
	}
}

func TestGuardianChangesRequireGuardianCaller(t *testing.T) {
	f := newFixture(t)
	rp := f.seedRelatedPerson(t, "mom-1")
	student := f.createStudent(t, "S1",
		dto.RelatedPersonInput{RelatedPersonID: &rp.RelatedPersonID, IsLegalGuardian: true, RelationType: "mother"},
	)

	stranger := helper.Session{UserID: uuid.New(), Identity: "stranger", SchoolID: f.schoolID, Profiles: []string{"StandardUsers"}}
	_, _, err := f.svc.AddRelatedPersons(context.Background(), stranger, student.StudentID, dto.AddRelatedPersonsRequest{
		RelatedPersonList: []dto.RelatedPersonInput{{UUIdentity: "g2", IsLegalGuardian: false, RelationType: "other"}},
	})
	if !errs.IsKind(err, errs.KindNotAuthorized) {
		t.Fatalf("err = %v, want not-authorized", err)
	}

	// the guardian herself may change the list
	guardian := helper.Session{UserID: uuid.New(), Identity: "mom-1", SchoolID: f.schoolID, Profiles: []string{"StandardUsers"}}
	if _, _, err := f.svc.AddRelatedPersons(context.Background(), guardian, student.StudentID, dto.AddRelatedPersonsRequest{
		RelatedPersonList: []dto.RelatedPersonInput{{UUIdentity: "g2", IsLegalGuardian: false, RelationType: "other"}},
	}); err != nil {
		t.Fatalf("guardian AddRelatedPersons: %v", err)
	}
}

func TestStudentSetFinalStateCascadesToOrphanedRelatedPersons(t *testing.T) {
	f := newFixture(t)
	shared := f.seedRelatedPerson(t, "shared-guardian")
	s1 := f.createStudent(t, "S1",
		dto.RelatedPersonInput{RelatedPersonID: &shared.RelatedPersonID, IsLegalGuardian: true, RelationType: "mother"},
	)
	s2 := f.createStudent(t, "S2",
		dto.RelatedPersonInput{RelatedPersonID: &shared.RelatedPersonID, IsLegalGuardian: true, RelationType: "mother"},
	)

	// closing S1 must not close the still-referenced guardian
	if _, _, err := f.svc.SetFinalState(context.Background(), f.sess, s1.StudentID); err != nil {
		t.Fatalf("close S1: %v", err)
	}
	rp, err := f.stores.RelatedPersons.Get(context.Background(), f.schoolID, shared.RelatedPersonID)
	if err != nil {
		t.Fatalf("reload rp: %v", err)
	}
	if rp.RelatedPersonState == lifecycle.StateClosed {
		t.Fatal("guardian closed while still referenced by S2")
	}

	// closing S2 orphans the guardian and cascades
	if _, _, err := f.svc.SetFinalState(context.Background(), f.sess, s2.StudentID); err != nil {
		t.Fatalf("close S2: %v", err)
	}
	rp, err = f.stores.RelatedPersons.Get(context.Background(), f.schoolID, shared.RelatedPersonID)
	if err != nil {
		t.Fatalf("reload rp: %v", err)
	}
	if rp.RelatedPersonState != lifecycle.StateClosed {
		t.Errorf("guardian state = %q, want closed", rp.RelatedPersonState)
	}
}

func TestStudentSetFinalStateTwiceFails(t *testing.T) {
	f := newFixture(t)
	student := f.createStudent(t, "S1")

	if _, _, err := f.svc.SetFinalState(context.Background(), f.sess, student.StudentID); err != nil {
		t.Fatalf("first close: %v", err)
	}
	_, _, err := f.svc.SetFinalState(context.Background(), f.sess, student.StudentID)
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("second close: err = %v, want state conflict", err)
	}
}

// studentStoreFailingUpdate lets a test fail the final list write the way a
// lost optimistic-concurrency race would.
type studentStoreFailingUpdate struct {
	storage.StudentStore
	fail bool
}

func (s *studentStoreFailingUpdate) Update(ctx context.Context, m *studentModel.StudentModel) error {
	if s.fail {
		return errs.StateConflict("studentConcurrentUpdate", "student was modified concurrently")
	}
	return s.StudentStore.Update(ctx, m)
}

func TestAddRelatedPersonsCleansUpLazyRowsOnUpdateFailure(t *testing.T) {
	f := newFixture(t)
	student := f.createStudent(t, "S-77")

	failing := &studentStoreFailingUpdate{StudentStore: f.stores.Students}
	stores := f.stores
	stores.Students = failing
	svc := New(workflow.NewDeps(stores, registrytest.Factory{Fake: f.fake}))

	failing.fail = true
	_, _, err := svc.AddRelatedPersons(context.Background(), f.sess, student.StudentID, dto.AddRelatedPersonsRequest{
		RelatedPersonList: []dto.RelatedPersonInput{{UUIdentity: "uncle-77", RelationType: "other"}},
	})
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("err = %v, want state conflict", err)
	}
	if _, err := f.stores.RelatedPersons.GetByIdentity(context.Background(), f.schoolID, "uncle-77"); !errs.IsKind(err, errs.KindNotFound) {
		t.Fatalf("lazily created related person survived the failed update: err = %v", err)
	}

	failing.fail = false
	updated, warns, err := svc.AddRelatedPersons(context.Background(), f.sess, student.StudentID, dto.AddRelatedPersonsRequest{
		RelatedPersonList: []dto.RelatedPersonInput{{UUIdentity: "uncle-77", RelationType: "other"}},
	})
	if err != nil {
		t.Fatalf("retry: %v (warnings %v)", err, warns)
	}
	if len(updated.StudentRelatedPersonList) != 2 {
		t.Fatalf("related person list = %d entries, want 2", len(updated.StudentRelatedPersonList))
	}
}
