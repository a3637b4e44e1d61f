// file: internals/features/school/consistency/engine.go
//
// Cross-entity invariants: enrollment exclusivity and number uniqueness on
// classes, class-membership requirement on subject enrollment, legal-guardian
// cardinality on students.
package consistency

import (
	"context"

	"github.com/google/uuid"

	classModel "schoolkit_backend/internals/features/school/classes/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	"schoolkit_backend/internals/features/school/storage"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	"schoolkit_backend/internals/helpers/errs"
)

// Error codes surfaced per rejected candidate. "Acitve" keeps the historical
// spelling clients already match on.
const (
	CodeAlreadyActiveElsewhere = "studentIsAlreadyInOtherClassInAcitveState"
	CodeAlreadyEnrolled        = "studentIsAlreadyInClass"
	CodeNumberTaken            = "studentNumberIsAlreadyUsed"
	CodeNotInClass             = "studentIsNotInClass"
	CodeGuardianFloor          = "studentCantHaveAnyRelatedPerson"
	CodeGuardianCeiling        = "studentCanHaveMaxTwoLegalGuardians"
)

const (
	MinLegalGuardians = 1
	MaxLegalGuardians = 2
)

type Engine struct {
	Classes  storage.ClassStore
	Subjects storage.SubjectStore
}

func New(classes storage.ClassStore, subjects storage.SubjectStore) *Engine {
	return &Engine{Classes: classes, Subjects: subjects}
}

// CheckClassEnrollment validates one candidate for enrollment into class.
// Candidates are evaluated independently; the caller turns failures into
// per-item warnings.
func (e *Engine) CheckClassEnrollment(ctx context.Context, class *classModel.ClassModel, studentID uuid.UUID, number int) error {
	if _, active := class.ActiveStudent(studentID); active {
		return errs.Conflict(CodeAlreadyEnrolled, "student is already a member of this class")
	}
	if class.NumberTaken(number) {
		return errs.Conflict(CodeNumberTaken, "number is already taken by an active member")
	}

	others, err := e.Classes.ListByStudent(ctx, class.ClassSchoolID, studentID)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ClassID == class.ClassID {
			continue
		}
		if _, active := other.ActiveStudent(studentID); active {
			return errs.Conflict(CodeAlreadyActiveElsewhere, "student is an active member of another class")
		}
	}
	return nil
}

// CheckSubjectEnrollment additionally requires the student to be an active
// member of the subject's owning class.
func (e *Engine) CheckSubjectEnrollment(ctx context.Context, subject *subjectModel.SubjectModel, studentID uuid.UUID) error {
	if _, active := subject.ActiveStudent(studentID); active {
		return errs.Conflict(CodeAlreadyEnrolled, "student is already enrolled in this subject")
	}

	class, err := e.Classes.Get(ctx, subject.SubjectSchoolID, subject.SubjectClassID)
	if err != nil {
		return err
	}
	if _, active := class.ActiveStudent(studentID); !active {
		return errs.Conflict(CodeNotInClass, "student is not an active member of the subject's class")
	}
	return nil
}

// CheckGuardianList validates the full related-person list about to be stored
// for a non-closed student.
func CheckGuardianList(list []studentModel.StudentRelatedPersonEntry) error {
	n := studentModel.LegalGuardianCount(list)
	if n < MinLegalGuardians {
		return errs.Validation(CodeGuardianFloor, "student must keep at least one legal guardian")
	}
	if n > MaxLegalGuardians {
		return errs.Validation(CodeGuardianCeiling, "student can have at most two legal guardians")
	}
	return nil
}

// MarkClassStudentFormer soft-removes studentID from the list. Returns the
// updated list and whether anything changed; removing an absent or already
// former student is a no-op.
func MarkClassStudentFormer(list []classModel.ClassStudentEntry, studentID uuid.UUID) ([]classModel.ClassStudentEntry, bool) {
	changed := false
	out := make([]classModel.ClassStudentEntry, len(list))
	for i, e := range list {
		if e.StudentID == studentID && e.State != lifecycle.StateFormer {
			e.State = lifecycle.StateFormer
			changed = true
		}
		out[i] = e
	}
	return out, changed
}

// MarkSubjectStudentFormer is the subject-list analogue.
func MarkSubjectStudentFormer(list []subjectModel.SubjectStudentEntry, studentID uuid.UUID) ([]subjectModel.SubjectStudentEntry, bool) {
	changed := false
	out := make([]subjectModel.SubjectStudentEntry, len(list))
	for i, e := range list {
		if e.StudentID == studentID && e.State != lifecycle.StateFormer {
			e.State = lifecycle.StateFormer
			changed = true
		}
		out[i] = e
	}
	return out, changed
}
