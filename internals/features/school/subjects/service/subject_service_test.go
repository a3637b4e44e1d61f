package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"schoolkit_backend/internals/configs"
	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	"schoolkit_backend/internals/features/school/subjects/dto"
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
	class    *classModel.ClassModel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stores := storage.NewMemoryStores().Stores()
	fake := registrytest.New()
	schoolID := uuid.New()

	if err := stores.Instances.Create(context.Background(), &instanceModel.SchoolInstanceModel{
		SchoolInstanceSchoolID:        schoolID,
		SchoolInstanceCode:            "SK1",
		SchoolInstanceName:            "School one",
		SchoolInstanceState:           lifecycle.StateActive,
		SchoolInstanceArtifactBaseURI: "https://artifacts.test",
	}); err != nil {
		t.Fatalf("seed instance: %v", err)
	}

	classArtifact := "art-class"
	folder := "unit-folder"
	class := &classModel.ClassModel{
		ClassSchoolID:         schoolID,
		ClassSchoolYearID:     uuid.New(),
		ClassCode:             "C1",
		ClassName:             "Class 1",
		ClassState:            lifecycle.StateActive,
		ClassArtifactID:       &classArtifact,
		ClassSubjectsFolderID: &folder,
		ClassStudentList:      []classModel.ClassStudentEntry{},
	}
	if err := stores.Classes.Create(context.Background(), class); err != nil {
		t.Fatalf("seed class: %v", err)
	}

	return &fixture{
		svc:      New(workflow.NewDeps(stores, registrytest.Factory{Fake: fake})),
		stores:   stores,
		fake:     fake,
		sess:     helper.Session{UserID: uuid.New(), Identity: "teacher-1", SchoolID: schoolID, Profiles: []string{"Authorities"}},
		schoolID: schoolID,
		class:    class,
	}
}

func (f *fixture) enrollInClass(t *testing.T, studentID uuid.UUID, number int) {
	t.Helper()
	f.class.ClassStudentList = append(f.class.ClassStudentList, classModel.ClassStudentEntry{
		StudentID: studentID,
		Number:    number,
		State:     lifecycle.StateActive,
	})
	if err := f.stores.Classes.Update(context.Background(), f.class); err != nil {
		t.Fatalf("enroll in class: %v", err)
	}
}

func (f *fixture) seedStudent(t *testing.T, code string) *studentModel.StudentModel {
	t.Helper()
	m := &studentModel.StudentModel{
		StudentSchoolID: f.schoolID,
		StudentCode:     code,
		StudentState:    lifecycle.StateActive,
		StudentRelatedPersonList: []studentModel.StudentRelatedPersonEntry{
			{RelatedPersonID: uuid.New(), IsLegalGuardian: true, RelationType: "father"},
		},
	}
	if err := f.stores.Students.Create(context.Background(), m); err != nil {
		t.Fatalf("seed student %s: %v", code, err)
	}
	return m
}

func TestCreateSubject(t *testing.T) {
	f := newFixture(t)

	sub, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
	})
	if err != nil {
		t.Fatalf("Create: %v (%v)", err, warns)
	}
	if sub.SubjectState != lifecycle.StateInitial {
		t.Errorf("state = %q, want initial", sub.SubjectState)
	}
	if sub.SubjectTeacherRoleID == nil || sub.SubjectArtifactID == nil {
		t.Error("remote ids not recorded")
	}
	// subject is related to the owning class in the registry
	if f.fake.CallCount("aar/create") != 1 {
		t.Errorf("aar/create calls = %d, want 1", f.fake.CallCount("aar/create"))
	}
}

func TestCreateSubjectArtifactFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.fake.FailOn["artifact/create"] = errs.RemoteCall("artifact/create", errs.Validation("x", "down"))

	_, warns, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
	})
	if !errs.IsKind(err, errs.KindRemoteCall) {
		t.Fatalf("err = %v, want remote-call failure", err)
	}
	if warns.Has("compensationFailed") {
		t.Errorf("compensation should succeed, got %v", warns)
	}
	if _, err := f.stores.Subjects.GetByCode(context.Background(), f.schoolID, "MATH"); !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("local subject survived rollback: %v", err)
	}
}

func TestAddStudentsRequiresClassMembership(t *testing.T) {
	f := newFixture(t)
	sub, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
	})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	inClass := f.seedStudent(t, "S1")
	outside := f.seedStudent(t, "S2")
	f.enrollInClass(t, inClass.StudentID, 1)

	got, warns, err := f.svc.AddStudents(context.Background(), f.sess, sub.SubjectID, dto.AddSubjectStudentsRequest{
		StudentList: []uuid.UUID{inClass.StudentID, outside.StudentID},
	})
	if err != nil {
		t.Fatalf("AddStudents: %v", err)
	}
	if _, ok := got.ActiveStudent(inClass.StudentID); !ok {
		t.Error("class member not enrolled")
	}
	if _, ok := got.ActiveStudent(outside.StudentID); ok {
		t.Error("non-member must not be enrolled")
	}
	if !warns.Has("addStudentsStudentIsNotInClass") {
		t.Errorf("want membership warning, got %v", warns)
	}
}

func TestAddStudentsTriggersCourseRegistration(t *testing.T) {
	f := newFixture(t)
	sub, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
		SubjectAppMap:  map[string]interface{}{"algebra-101": map[string]interface{}{"provider": "ext"}},
	})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	student := f.seedStudent(t, "S1")
	f.enrollInClass(t, student.StudentID, 1)

	got, warns, err := f.svc.AddStudents(context.Background(), f.sess, sub.SubjectID, dto.AddSubjectStudentsRequest{
		StudentList: []uuid.UUID{student.StudentID},
	})
	if err != nil {
		t.Fatalf("AddStudents: %v (%v)", err, warns)
	}
	if f.fake.CallCount("script/run") != 1 {
		t.Errorf("script/run calls = %d, want 1", f.fake.CallCount("script/run"))
	}
	entry, _ := got.ActiveStudent(student.StudentID)
	if len(entry.Courses) != 1 || entry.Courses[0] != "algebra-101" {
		t.Errorf("courses = %v, want [algebra-101]", entry.Courses)
	}

	// a dead script engine degrades to a warning
	f.fake.FailOn["script/run"] = errs.RemoteCall("script/run", errs.Validation("x", "down"))
	if _, _, err := f.svc.RemoveStudent(context.Background(), f.sess, sub.SubjectID, dto.RemoveSubjectStudentRequest{StudentID: student.StudentID}); err != nil {
		t.Fatalf("RemoveStudent: %v", err)
	}
}

func TestRemoveSubjectStudentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sub, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
	})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}

	_, warns, err := f.svc.RemoveStudent(context.Background(), f.sess, sub.SubjectID, dto.RemoveSubjectStudentRequest{StudentID: uuid.New()})
	if err != nil {
		t.Fatalf("RemoveStudent: %v", err)
	}
	if !warns.Has("removeStudentStudentIsNotInSubject") {
		t.Errorf("want idempotence warning, got %v", warns)
	}
}

func TestSubjectSetFinalStateGuards(t *testing.T) {
	f := newFixture(t)
	sub, _, err := f.svc.Create(context.Background(), f.sess, dto.CreateSubjectRequest{
		SubjectCode:    "MATH",
		SubjectName:    "Mathematics",
		SubjectClassID: f.class.ClassID,
	})
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	student := f.seedStudent(t, "S1")
	f.enrollInClass(t, student.StudentID, 1)
	if _, _, err := f.svc.AddStudents(context.Background(), f.sess, sub.SubjectID, dto.AddSubjectStudentsRequest{
		StudentList: []uuid.UUID{student.StudentID},
	}); err != nil {
		t.Fatalf("enroll: %v", err)
	}

	// active student blocks the close
	if _, _, err := f.svc.SetFinalState(context.Background(), f.sess, sub.SubjectID); errs.CodeOf(err) != "subjectHasActiveStudents" {
		t.Fatalf("err = %v, want subjectHasActiveStudents", err)
	}

	if _, _, err := f.svc.RemoveStudent(context.Background(), f.sess, sub.SubjectID, dto.RemoveSubjectStudentRequest{StudentID: student.StudentID}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// a foreign active relation blocks the close; the owning class's own
	// relation does not
	sub2, err := f.stores.Subjects.Get(context.Background(), f.schoolID, sub.SubjectID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	f.fake.SeedRelations(registry.Relation{
		ArtifactA:      "foreign-artifact",
		ArtifactB:      *sub2.SubjectArtifactID,
		RelationCode:   "aar",
		ArtifactAState: "active",
	})
	if _, _, err := f.svc.SetFinalState(context.Background(), f.sess, sub.SubjectID); errs.CodeOf(err) != "subjectHasActiveRelatedArtifacts" {
		t.Fatalf("err = %v, want subjectHasActiveRelatedArtifacts", err)
	}
}
