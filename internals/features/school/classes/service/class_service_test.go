package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	"schoolkit_backend/internals/features/school/classes/dto"
	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	"schoolkit_backend/internals/features/school/workflow"
	yearModel "schoolkit_backend/internals/features/school/years/model"
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
	yearID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storage.NewMemoryStores()
	stores := mem.Stores()
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

	year := &yearModel.SchoolYearModel{
		SchoolYearSchoolID: schoolID,
		SchoolYearCode:     "2026-27",
		SchoolYearName:     "School year 2026/27",
		SchoolYearState:    lifecycle.StateActive,
	}
	if err := stores.Years.Create(context.Background(), year); err != nil {
		t.Fatalf("seed year: %v", err)
	}

	return &fixture{
		svc:      New(workflow.NewDeps(stores, registrytest.Factory{Fake: fake})),
		stores:   stores,
		fake:     fake,
		sess:     helper.Session{UserID: uuid.New(), Identity: "teacher-1", SchoolID: schoolID, Profiles: []string{"Authorities"}},
		schoolID: schoolID,
		yearID:   year.SchoolYearID,
	}
}

func (f *fixture) createClass(t *testing.T, code string) *classModel.ClassModel {
	t.Helper()
	class, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         code,
		ClassName:         "Class " + code,
		ClassSchoolYearID: f.yearID,
	})
	if err != nil {
		t.Fatalf("create class %s: %v (warnings %v)", code, err, warns)
	}
	return class
}

func (f *fixture) seedStudent(t *testing.T, code string, state lifecycle.State) *studentModel.StudentModel {
	t.Helper()
	m := &studentModel.StudentModel{
		StudentSchoolID: f.schoolID,
		StudentCode:     code,
		StudentState:    state,
		StudentRelatedPersonList: []studentModel.StudentRelatedPersonEntry{
			{RelatedPersonID: uuid.New(), IsLegalGuardian: true, RelationType: "mother"},
		},
	}
	if err := f.stores.Students.Create(context.Background(), m); err != nil {
		t.Fatalf("seed student %s: %v", code, err)
	}
	return m
}

func TestCreateClass(t *testing.T) {
	f := newFixture(t)

	class, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         "C1",
		ClassName:         "Class 1",
		ClassSchoolYearID: f.yearID,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if class.ClassState != lifecycle.StateInitial {
		t.Errorf("state = %q, want initial", class.ClassState)
	}
	if class.ClassTeacherRoleID == nil || *class.ClassTeacherRoleID == "" {
		t.Error("teacher role id not set")
	}
	if class.ClassArtifactID == nil || *class.ClassArtifactID == "" {
		t.Error("artifact id not set")
	}
	if class.ClassSubjectsFolderID == nil {
		t.Error("subjects folder id not set")
	}
	if warns.Has("compensationFailed") {
		t.Errorf("unexpected compensation warning: %v", warns)
	}

	// lazy teacher record
	if _, err := f.stores.Teachers.GetByIdentity(context.Background(), f.schoolID, "teacher-1"); err != nil {
		t.Errorf("teacher not lazily created: %v", err)
	}

	// second class with the same teacher warns instead of failing
	_, warns, err = f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         "C2",
		ClassName:         "Class 2",
		ClassSchoolYearID: f.yearID,
	})
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}
	if !warns.Has("teacherAlreadyExists") {
		t.Errorf("want teacherAlreadyExists warning, got %v", warns)
	}
}

func TestCreateClassDuplicateCodeMakesNoRemoteCalls(t *testing.T) {
	f := newFixture(t)
	f.createClass(t, "C1")
	callsBefore := len(f.fake.Calls())

	_, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         "C1",
		ClassName:         "Duplicate",
		ClassSchoolYearID: f.yearID,
	})
	if errs.CodeOf(err) != "classWithCodeAlreadyExist" {
		t.Fatalf("err = %v, want classWithCodeAlreadyExist", err)
	}
	if got := len(f.fake.Calls()); got != callsBefore {
		t.Errorf("remote calls made during duplicate create: %v", f.fake.Calls()[callsBefore:])
	}
}

func TestCreateClassArtifactFailureRollsBackLocalRecord(t *testing.T) {
	f := newFixture(t)
	boom := errs.RemoteCall("artifact/create", errors.New("registry down"))
	f.fake.FailOn["artifact/create"] = boom

	_, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         "C1",
		ClassName:         "Class 1",
		ClassSchoolYearID: f.yearID,
	})
	if !errs.IsKind(err, errs.KindRemoteCall) {
		t.Fatalf("err = %v, want remote-call failure", err)
	}
	if warns.Has("compensationFailed") {
		t.Errorf("compensation should have succeeded, got %v", warns)
	}
	if _, err := f.stores.Classes.GetByCode(context.Background(), f.schoolID, "C1"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("local class survived rollback: %v", err)
	}
}

func TestCreateClassCompensationFailureBecomesWarning(t *testing.T) {
	f := newFixture(t)
	// The second unit/create (the subjects folder) fails after the artifact
	// exists, and the artifact rollback (setState closed) fails too.
	folderErr := errs.RemoteCall("unit/create", errors.New("folder rejected"))
	f.fake.FailOnNth["unit/create"] = map[int]error{2: folderErr}
	f.fake.FailOn["artifact/setState"] = errs.RemoteCall("artifact/setState", errors.New("busy"))

	_, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateClassRequest{
		ClassCode:         "C1",
		ClassName:         "Class 1",
		ClassSchoolYearID: f.yearID,
	})
	if !errors.Is(err, folderErr) {
		t.Fatalf("err = %v, want the original folder failure", err)
	}
	if !warns.Has("compensationFailed") {
		t.Errorf("want compensationFailed warning, got %v", warns)
	}
	// The local record compensation still ran.
	if _, err := f.stores.Classes.GetByCode(context.Background(), f.schoolID, "C1"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("local class survived rollback: %v", err)
	}
}

func TestAddStudentsPartialSuccess(t *testing.T) {
	f := newFixture(t)
	classA := f.createClass(t, "A1")
	classB := f.createClass(t, "B1")
	s1 := f.seedStudent(t, "S1", lifecycle.StateActive)
	s2 := f.seedStudent(t, "S2", lifecycle.StateInitial)

	// S1 is active in class A
	_, _, err := f.svc.AddStudents(context.Background(), f.sess, classA.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s1.StudentID, Number: 1}},
	})
	if err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}

	class, warns, err := f.svc.AddStudents(context.Background(), f.sess, classB.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{
			{StudentID: s1.StudentID, Number: 1},
			{StudentID: s2.StudentID, Number: 2},
		},
	})
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	if !warns.Has("addStudentsStudentIsAlreadyInOtherClassInAcitveState") {
		t.Errorf("want exclusivity warning for S1, got %v", warns)
	}
	if _, ok := class.ActiveStudent(s2.StudentID); !ok {
		t.Error("S2 not enrolled")
	}
	if _, ok := class.ActiveStudent(s1.StudentID); ok {
		t.Error("S1 must not be enrolled twice")
	}

	// S2 was activated globally
	got, err := f.stores.Students.Get(context.Background(), f.schoolID, s2.StudentID)
	if err != nil {
		t.Fatalf("reload S2: %v", err)
	}
	if got.StudentState != lifecycle.StateActive {
		t.Errorf("S2 state = %q, want active", got.StudentState)
	}
}

func TestAddStudentsAllRejectedFailsHard(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")
	s1 := f.seedStudent(t, "S1", lifecycle.StateActive)

	if _, _, err := f.svc.AddStudents(context.Background(), f.sess, class.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s1.StudentID, Number: 1}},
	}); err != nil {
		t.Fatalf("first enrollment: %v", err)
	}

	_, _, err := f.svc.AddStudents(context.Background(), f.sess, class.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s1.StudentID, Number: 2}},
	})
	if errs.CodeOf(err) != "noStudentAdded" {
		t.Fatalf("err = %v, want noStudentAdded", err)
	}
}

func TestRemoveStudentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")
	s1 := f.seedStudent(t, "S1", lifecycle.StateActive)

	if _, _, err := f.svc.AddStudents(context.Background(), f.sess, class.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s1.StudentID, Number: 1}},
	}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	got, warns, err := f.svc.RemoveStudent(context.Background(), f.sess, class.ClassID, dto.RemoveStudentRequest{StudentID: s1.StudentID})
	if err != nil {
		t.Fatalf("RemoveStudent: %v", err)
	}
	if !warns.Empty() {
		t.Errorf("first removal should be clean, got %v", warns)
	}
	entry := got.ClassStudentList[0]
	if entry.State != lifecycle.StateFormer {
		t.Errorf("entry state = %q, want former", entry.State)
	}

	// second removal warns and changes nothing
	got2, warns, err := f.svc.RemoveStudent(context.Background(), f.sess, class.ClassID, dto.RemoveStudentRequest{StudentID: s1.StudentID})
	if err != nil {
		t.Fatalf("second RemoveStudent: %v", err)
	}
	if !warns.Has("removeStudentStudentIsNotInClass") {
		t.Errorf("want idempotence warning, got %v", warns)
	}
	if got2.ClassVersion != got.ClassVersion {
		t.Error("second removal must not write")
	}
}

func TestRemoveStudentFreesTheNumber(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")
	s1 := f.seedStudent(t, "S1", lifecycle.StateActive)
	s2 := f.seedStudent(t, "S2", lifecycle.StateActive)

	if _, _, err := f.svc.AddStudents(context.Background(), f.sess, class.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s1.StudentID, Number: 7}},
	}); err != nil {
		t.Fatalf("enroll S1: %v", err)
	}
	if _, _, err := f.svc.RemoveStudent(context.Background(), f.sess, class.ClassID, dto.RemoveStudentRequest{StudentID: s1.StudentID}); err != nil {
		t.Fatalf("remove S1: %v", err)
	}

	got, warns, err := f.svc.AddStudents(context.Background(), f.sess, class.ClassID, dto.AddStudentsRequest{
		StudentList: []dto.AddStudentItem{{StudentID: s2.StudentID, Number: 7}},
	})
	if err != nil {
		t.Fatalf("enroll S2 on freed number: %v (%v)", err, warns)
	}
	if _, ok := got.ActiveStudent(s2.StudentID); !ok {
		t.Error("S2 should hold the freed number")
	}
}

func TestSetFinalStateIsTerminal(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")

	closed, warns, err := f.svc.SetFinalState(context.Background(), f.sess, class.ClassID)
	if err != nil {
		t.Fatalf("SetFinalState: %v (%v)", err, warns)
	}
	if closed.ClassState != lifecycle.StateClosed {
		t.Fatalf("state = %q, want closed", closed.ClassState)
	}

	_, _, err = f.svc.SetFinalState(context.Background(), f.sess, class.ClassID)
	if !errs.IsKind(err, errs.KindStateConflict) {
		t.Fatalf("second close: err = %v, want state conflict", err)
	}
}

func TestSetFinalStateBlockedByOpenSubject(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")

	sub := newSubjectFor(f, class.ClassID)
	if err := f.stores.Subjects.Create(context.Background(), sub); err != nil {
		t.Fatalf("seed subject: %v", err)
	}

	_, _, err := f.svc.SetFinalState(context.Background(), f.sess, class.ClassID)
	if errs.CodeOf(err) != "classHasNonClosedSubjects" {
		t.Fatalf("err = %v, want classHasNonClosedSubjects", err)
	}
}

func TestSetFinalStateBlockedByActiveRelation(t *testing.T) {
	f := newFixture(t)
	class := f.createClass(t, "A1")
	f.fake.SeedRelations(activeRelationTo(*class.ClassArtifactID))

	_, _, err := f.svc.SetFinalState(context.Background(), f.sess, class.ClassID)
	if errs.CodeOf(err) != "classHasActiveRelatedArtifacts" {
		t.Fatalf("err = %v, want classHasActiveRelatedArtifacts", err)
	}
}

func newSubjectFor(f *fixture, classID uuid.UUID) *subjectModel.SubjectModel {
	return &subjectModel.SubjectModel{
		SubjectSchoolID: f.schoolID,
		SubjectClassID:  classID,
		SubjectCode:     "SUB-" + uuid.NewString()[:8],
		SubjectName:     "Subject",
		SubjectState:    lifecycle.StateActive,
	}
}

func activeRelationTo(artifactB string) registry.Relation {
	return registry.Relation{
		ArtifactA:      "ext-artifact",
		ArtifactB:      artifactB,
		RelationCode:   "aar",
		ArtifactAState: "active",
	}
}
