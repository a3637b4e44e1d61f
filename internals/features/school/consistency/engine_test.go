package consistency

import (
	"context"
	"testing"

	"github.com/google/uuid"

	classModel "schoolkit_backend/internals/features/school/classes/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	"schoolkit_backend/internals/helpers/errs"
)

func setup(t *testing.T) (*Engine, storage.Stores, uuid.UUID) {
	t.Helper()
	mem := storage.NewMemoryStores()
	stores := mem.Stores()
	return New(stores.Classes, stores.Subjects), stores, uuid.New()
}

func TestClassEnrollmentRejectsActiveMemberOfOtherClass(t *testing.T) {
	eng, stores, schoolID := setup(t)
	ctx := context.Background()
	studentID := uuid.New()

	other := &classModel.ClassModel{
		ClassSchoolID: schoolID,
		ClassCode:     "OTHER",
		ClassState:    lifecycle.StateActive,
		ClassStudentList: []classModel.ClassStudentEntry{
			{StudentID: studentID, Number: 1, State: lifecycle.StateActive},
		},
	}
	if err := stores.Classes.Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	target := &classModel.ClassModel{ClassSchoolID: schoolID, ClassCode: "TARGET", ClassState: lifecycle.StateActive}
	if err := stores.Classes.Create(ctx, target); err != nil {
		t.Fatal(err)
	}

	err := eng.CheckClassEnrollment(ctx, target, studentID, 5)
	if errs.CodeOf(err) != CodeAlreadyActiveElsewhere {
		t.Fatalf("err = %v, want %s", err, CodeAlreadyActiveElsewhere)
	}
}

func TestClassEnrollmentAllowsFormerMemberOfOtherClass(t *testing.T) {
	eng, stores, schoolID := setup(t)
	ctx := context.Background()
	studentID := uuid.New()

	other := &classModel.ClassModel{
		ClassSchoolID: schoolID,
		ClassCode:     "OTHER",
		ClassState:    lifecycle.StateActive,
		ClassStudentList: []classModel.ClassStudentEntry{
			{StudentID: studentID, Number: 1, State: lifecycle.StateFormer},
		},
	}
	if err := stores.Classes.Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	target := &classModel.ClassModel{ClassSchoolID: schoolID, ClassCode: "TARGET", ClassState: lifecycle.StateActive}
	if err := stores.Classes.Create(ctx, target); err != nil {
		t.Fatal(err)
	}

	if err := eng.CheckClassEnrollment(ctx, target, studentID, 5); err != nil {
		t.Fatalf("CheckClassEnrollment: %v", err)
	}
}

func TestClassEnrollmentRejectsTakenNumber(t *testing.T) {
	eng, stores, schoolID := setup(t)
	ctx := context.Background()

	target := &classModel.ClassModel{
		ClassSchoolID: schoolID,
		ClassCode:     "TARGET",
		ClassState:    lifecycle.StateActive,
		ClassStudentList: []classModel.ClassStudentEntry{
			{StudentID: uuid.New(), Number: 7, State: lifecycle.StateActive},
		},
	}
	if err := stores.Classes.Create(ctx, target); err != nil {
		t.Fatal(err)
	}

	err := eng.CheckClassEnrollment(ctx, target, uuid.New(), 7)
	if errs.CodeOf(err) != CodeNumberTaken {
		t.Fatalf("err = %v, want %s", err, CodeNumberTaken)
	}
}

func TestClassEnrollmentNumberFreedByFormerEntry(t *testing.T) {
	eng, stores, schoolID := setup(t)
	ctx := context.Background()

	target := &classModel.ClassModel{
		ClassSchoolID: schoolID,
		ClassCode:     "TARGET",
		ClassState:    lifecycle.StateActive,
		ClassStudentList: []classModel.ClassStudentEntry{
			{StudentID: uuid.New(), Number: 7, State: lifecycle.StateFormer},
		},
	}
	if err := stores.Classes.Create(ctx, target); err != nil {
		t.Fatal(err)
	}

	if err := eng.CheckClassEnrollment(ctx, target, uuid.New(), 7); err != nil {
		t.Fatalf("CheckClassEnrollment: %v", err)
	}
}

func TestSubjectEnrollmentRequiresClassMembership(t *testing.T) {
	eng, stores, schoolID := setup(t)
	ctx := context.Background()
	studentID := uuid.New()

	class := &classModel.ClassModel{ClassSchoolID: schoolID, ClassCode: "C1", ClassState: lifecycle.StateActive}
	if err := stores.Classes.Create(ctx, class); err != nil {
		t.Fatal(err)
	}
	subject := &subjectModel.SubjectModel{
		SubjectSchoolID: schoolID,
		SubjectClassID:  class.ClassID,
		SubjectCode:     "MATH",
		SubjectState:    lifecycle.StateActive,
	}

	err := eng.CheckSubjectEnrollment(ctx, subject, studentID)
	if errs.CodeOf(err) != CodeNotInClass {
		t.Fatalf("err = %v, want %s", err, CodeNotInClass)
	}

	// enroll into the class and retry
	class.ClassStudentList = []classModel.ClassStudentEntry{
		{StudentID: studentID, Number: 1, State: lifecycle.StateActive},
	}
	if err := stores.Classes.Update(ctx, class); err != nil {
		t.Fatal(err)
	}
	if err := eng.CheckSubjectEnrollment(ctx, subject, studentID); err != nil {
		t.Fatalf("CheckSubjectEnrollment: %v", err)
	}
}

func TestGuardianListBounds(t *testing.T) {
	guardian := func() studentModel.StudentRelatedPersonEntry {
		return studentModel.StudentRelatedPersonEntry{RelatedPersonID: uuid.New(), IsLegalGuardian: true, RelationType: "mother"}
	}
	other := func() studentModel.StudentRelatedPersonEntry {
		return studentModel.StudentRelatedPersonEntry{RelatedPersonID: uuid.New(), RelationType: "sibling"}
	}

	cases := []struct {
		name string
		list []studentModel.StudentRelatedPersonEntry
		code string
	}{
		{"no guardian", []studentModel.StudentRelatedPersonEntry{other()}, CodeGuardianFloor},
		{"one guardian", []studentModel.StudentRelatedPersonEntry{guardian()}, ""},
		{"two guardians", []studentModel.StudentRelatedPersonEntry{guardian(), guardian(), other()}, ""},
		{"three guardians", []studentModel.StudentRelatedPersonEntry{guardian(), guardian(), guardian()}, CodeGuardianCeiling},
	}
	for _, tc := range cases {
		err := CheckGuardianList(tc.list)
		if errs.CodeOf(err) != tc.code {
			t.Errorf("%s: err = %v, want code %q", tc.name, err, tc.code)
		}
	}
}

func TestMarkClassStudentFormerIsIdempotent(t *testing.T) {
	studentID := uuid.New()
	list := []classModel.ClassStudentEntry{
		{StudentID: studentID, Number: 1, State: lifecycle.StateActive},
	}

	list, changed := MarkClassStudentFormer(list, studentID)
	if !changed || list[0].State != lifecycle.StateFormer {
		t.Fatalf("first removal: changed=%v list=%v", changed, list)
	}

	list, changed = MarkClassStudentFormer(list, studentID)
	if changed {
		t.Fatal("second removal must be a no-op")
	}

	if _, changed = MarkClassStudentFormer(list, uuid.New()); changed {
		t.Fatal("absent student must be a no-op")
	}
}
