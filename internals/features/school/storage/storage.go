// file: internals/features/school/storage/storage.go
//
// Store interfaces for every entity kind, keyed by (tenant, id) and
// (tenant, code). Workflows receive stores explicitly (no package-level DB
// singletons), so tests construct them against the in-memory implementation.
package storage

import (
	"context"

	"github.com/google/uuid"

	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	yearModel "schoolkit_backend/internals/features/school/years/model"
)

// ListFilter narrows List calls. Zero value lists everything in the tenant.
type ListFilter struct {
	State  string
	Search string // matched against code/name
	Offset int
	Limit  int
}

type SchoolInstanceStore interface {
	GetByTenant(ctx context.Context, schoolID uuid.UUID) (*instanceModel.SchoolInstanceModel, error)
	Create(ctx context.Context, m *instanceModel.SchoolInstanceModel) error
	// Update is compare-and-swap on the version column.
	Update(ctx context.Context, m *instanceModel.SchoolInstanceModel) error
	Delete(ctx context.Context, schoolID uuid.UUID) error
}

type SchoolYearStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*yearModel.SchoolYearModel, error)
	GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*yearModel.SchoolYearModel, error)
	Create(ctx context.Context, m *yearModel.SchoolYearModel) error
	Update(ctx context.Context, m *yearModel.SchoolYearModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]yearModel.SchoolYearModel, int64, error)
}

type ClassStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*classModel.ClassModel, error)
	GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*classModel.ClassModel, error)
	Create(ctx context.Context, m *classModel.ClassModel) error
	Update(ctx context.Context, m *classModel.ClassModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]classModel.ClassModel, int64, error)
	ListBySchoolYear(ctx context.Context, schoolID, yearID uuid.UUID) ([]classModel.ClassModel, error)
	// ListByStudent returns every class whose student list mentions the
	// student, regardless of the entry state.
	ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]classModel.ClassModel, error)
}

type SubjectStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*subjectModel.SubjectModel, error)
	GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*subjectModel.SubjectModel, error)
	Create(ctx context.Context, m *subjectModel.SubjectModel) error
	Update(ctx context.Context, m *subjectModel.SubjectModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]subjectModel.SubjectModel, int64, error)
	ListByClass(ctx context.Context, schoolID, classID uuid.UUID) ([]subjectModel.SubjectModel, error)
	ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]subjectModel.SubjectModel, error)
}

type StudentStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*studentModel.StudentModel, error)
	GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*studentModel.StudentModel, error)
	GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*studentModel.StudentModel, error)
	Create(ctx context.Context, m *studentModel.StudentModel) error
	Update(ctx context.Context, m *studentModel.StudentModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]studentModel.StudentModel, int64, error)
	ListByRelatedPerson(ctx context.Context, schoolID, relatedPersonID uuid.UUID) ([]studentModel.StudentModel, error)
}

type TeacherStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*teacherModel.TeacherModel, error)
	GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*teacherModel.TeacherModel, error)
	Create(ctx context.Context, m *teacherModel.TeacherModel) error
	Update(ctx context.Context, m *teacherModel.TeacherModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]teacherModel.TeacherModel, int64, error)
}

type RelatedPersonStore interface {
	Get(ctx context.Context, schoolID, id uuid.UUID) (*rpModel.RelatedPersonModel, error)
	GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*rpModel.RelatedPersonModel, error)
	Create(ctx context.Context, m *rpModel.RelatedPersonModel) error
	Update(ctx context.Context, m *rpModel.RelatedPersonModel) error
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
	List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]rpModel.RelatedPersonModel, int64, error)
}

// Stores bundles every store for workflow construction.
type Stores struct {
	Instances      SchoolInstanceStore
	Years          SchoolYearStore
	Classes        ClassStore
	Subjects       SubjectStore
	Students       StudentStore
	Teachers       TeacherStore
	RelatedPersons RelatedPersonStore
}
