// file: internals/features/school/storage/memory.go
package storage

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	classModel "schoolkit_backend/internals/features/school/classes/model"
	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/features/school/lifecycle"
	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	studentModel "schoolkit_backend/internals/features/school/students/model"
	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	yearModel "schoolkit_backend/internals/features/school/years/model"
	"schoolkit_backend/internals/helpers/errs"
)

// MemoryStores is a map-backed Stores implementation with the same
// (tenant, id)/(tenant, code) keying and compare-and-swap semantics as the
// postgres one. Used by workflow tests and the local dev mode.
type MemoryStores struct {
	mu sync.RWMutex

	instances      map[uuid.UUID]instanceModel.SchoolInstanceModel // keyed by school id
	years          map[uuid.UUID]yearModel.SchoolYearModel
	classes        map[uuid.UUID]classModel.ClassModel
	subjects       map[uuid.UUID]subjectModel.SubjectModel
	students       map[uuid.UUID]studentModel.StudentModel
	teachers       map[uuid.UUID]teacherModel.TeacherModel
	relatedPersons map[uuid.UUID]rpModel.RelatedPersonModel
}

func NewMemoryStores() *MemoryStores {
	return &MemoryStores{
		instances:      map[uuid.UUID]instanceModel.SchoolInstanceModel{},
		years:          map[uuid.UUID]yearModel.SchoolYearModel{},
		classes:        map[uuid.UUID]classModel.ClassModel{},
		subjects:       map[uuid.UUID]subjectModel.SubjectModel{},
		students:       map[uuid.UUID]studentModel.StudentModel{},
		teachers:       map[uuid.UUID]teacherModel.TeacherModel{},
		relatedPersons: map[uuid.UUID]rpModel.RelatedPersonModel{},
	}
}

// Stores returns the bundle view over the memory stores.
func (m *MemoryStores) Stores() Stores {
	return Stores{
		Instances:      (*memInstanceStore)(m),
		Years:          (*memYearStore)(m),
		Classes:        (*memClassStore)(m),
		Subjects:       (*memSubjectStore)(m),
		Students:       (*memStudentStore)(m),
		Teachers:       (*memTeacherStore)(m),
		RelatedPersons: (*memRelatedPersonStore)(m),
	}
}

func matches(f ListFilter, state lifecycle.State, code, name string) bool {
	if f.State != "" && string(state) != f.State {
		return false
	}
	if f.Search != "" {
		s := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(code), s) && !strings.Contains(strings.ToLower(name), s) {
			return false
		}
	}
	return true
}

func page[T any](items []T, f ListFilter) []T {
	if f.Limit <= 0 {
		return items
	}
	if f.Offset >= len(items) {
		return nil
	}
	end := f.Offset + f.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[f.Offset:end]
}

/* =========================================================
   Instance
   ========================================================= */

type memInstanceStore MemoryStores

func (s *memInstanceStore) GetByTenant(_ context.Context, schoolID uuid.UUID) (*instanceModel.SchoolInstanceModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.instances[schoolID]
	if !ok {
		return nil, errs.NotFound("schoolInstanceDoesNotExist", "school instance does not exist for tenant")
	}
	return &m, nil
}

func (s *memInstanceStore) Create(_ context.Context, m *instanceModel.SchoolInstanceModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.instances[m.SchoolInstanceSchoolID]; ok {
		return errs.Conflict("schoolInstanceAlreadyExist", "school instance already exists for tenant")
	}
	if m.SchoolInstanceID == uuid.Nil {
		m.SchoolInstanceID = uuid.New()
	}
	s.instances[m.SchoolInstanceSchoolID] = *m
	return nil
}

func (s *memInstanceStore) Update(_ context.Context, m *instanceModel.SchoolInstanceModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.instances[m.SchoolInstanceSchoolID]
	if !ok {
		return errs.NotFound("schoolInstanceDoesNotExist", "school instance does not exist for tenant")
	}
	if cur.SchoolInstanceVersion != m.SchoolInstanceVersion {
		return errs.StateConflict("schoolInstanceConcurrentUpdate", "school instance was modified concurrently")
	}
	m.SchoolInstanceVersion++
	s.instances[m.SchoolInstanceSchoolID] = *m
	return nil
}

func (s *memInstanceStore) Delete(_ context.Context, schoolID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.instances, schoolID)
	return nil
}

/* =========================================================
   SchoolYear
   ========================================================= */

type memYearStore MemoryStores

func (s *memYearStore) Get(_ context.Context, schoolID, id uuid.UUID) (*yearModel.SchoolYearModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.years[id]
	if !ok || m.SchoolYearSchoolID != schoolID {
		return nil, errs.NotFound("schoolYearDoesNotExist", "school year does not exist")
	}
	return &m, nil
}

func (s *memYearStore) GetByCode(_ context.Context, schoolID uuid.UUID, code string) (*yearModel.SchoolYearModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.years {
		if m.SchoolYearSchoolID == schoolID && m.SchoolYearCode == code {
			return &m, nil
		}
	}
	return nil, errs.NotFound("schoolYearDoesNotExist", "school year does not exist")
}

func (s *memYearStore) Create(_ context.Context, m *yearModel.SchoolYearModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.years {
		if cur.SchoolYearSchoolID == m.SchoolYearSchoolID && cur.SchoolYearCode == m.SchoolYearCode {
			return errs.Conflict("schoolYearWithCodeAlreadyExist", "school year with this code already exists")
		}
	}
	if m.SchoolYearID == uuid.Nil {
		m.SchoolYearID = uuid.New()
	}
	s.years[m.SchoolYearID] = *m
	return nil
}

func (s *memYearStore) Update(_ context.Context, m *yearModel.SchoolYearModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.years[m.SchoolYearID]
	if !ok {
		return errs.NotFound("schoolYearDoesNotExist", "school year does not exist")
	}
	if cur.SchoolYearVersion != m.SchoolYearVersion {
		return errs.StateConflict("schoolYearConcurrentUpdate", "school year was modified concurrently")
	}
	m.SchoolYearVersion++
	s.years[m.SchoolYearID] = *m
	return nil
}

func (s *memYearStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.years[id]; ok && m.SchoolYearSchoolID == schoolID {
		delete(s.years, id)
	}
	return nil
}

func (s *memYearStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]yearModel.SchoolYearModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []yearModel.SchoolYearModel
	for _, m := range s.years {
		if m.SchoolYearSchoolID == schoolID && matches(f, m.SchoolYearState, m.SchoolYearCode, m.SchoolYearName) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SchoolYearCode < items[j].SchoolYearCode })
	total := int64(len(items))
	return page(items, f), total, nil
}

/* =========================================================
   Class
   ========================================================= */

type memClassStore MemoryStores

func (s *memClassStore) Get(_ context.Context, schoolID, id uuid.UUID) (*classModel.ClassModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.classes[id]
	if !ok || m.ClassSchoolID != schoolID {
		return nil, errs.NotFound("classDoesNotExist", "class does not exist")
	}
	return &m, nil
}

func (s *memClassStore) GetByCode(_ context.Context, schoolID uuid.UUID, code string) (*classModel.ClassModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.classes {
		if m.ClassSchoolID == schoolID && m.ClassCode == code {
			return &m, nil
		}
	}
	return nil, errs.NotFound("classDoesNotExist", "class does not exist")
}

func (s *memClassStore) Create(_ context.Context, m *classModel.ClassModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.classes {
		if cur.ClassSchoolID == m.ClassSchoolID && cur.ClassCode == m.ClassCode {
			return errs.Conflict("classWithCodeAlreadyExist", "class with this code already exists")
		}
	}
	if m.ClassID == uuid.Nil {
		m.ClassID = uuid.New()
	}
	s.classes[m.ClassID] = *m
	return nil
}

func (s *memClassStore) Update(_ context.Context, m *classModel.ClassModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.classes[m.ClassID]
	if !ok {
		return errs.NotFound("classDoesNotExist", "class does not exist")
	}
	if cur.ClassVersion != m.ClassVersion {
		return errs.StateConflict("classConcurrentUpdate", "class was modified concurrently")
	}
	m.ClassVersion++
	s.classes[m.ClassID] = *m
	return nil
}

func (s *memClassStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.classes[id]; ok && m.ClassSchoolID == schoolID {
		delete(s.classes, id)
	}
	return nil
}

func (s *memClassStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]classModel.ClassModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []classModel.ClassModel
	for _, m := range s.classes {
		if m.ClassSchoolID == schoolID && matches(f, m.ClassState, m.ClassCode, m.ClassName) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ClassCode < items[j].ClassCode })
	total := int64(len(items))
	return page(items, f), total, nil
}

func (s *memClassStore) ListBySchoolYear(_ context.Context, schoolID, yearID uuid.UUID) ([]classModel.ClassModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []classModel.ClassModel
	for _, m := range s.classes {
		if m.ClassSchoolID == schoolID && m.ClassSchoolYearID == yearID {
			items = append(items, m)
		}
	}
	return items, nil
}

func (s *memClassStore) ListByStudent(_ context.Context, schoolID, studentID uuid.UUID) ([]classModel.ClassModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []classModel.ClassModel
	for _, m := range s.classes {
		if m.ClassSchoolID != schoolID {
			continue
		}
		for _, e := range m.ClassStudentList {
			if e.StudentID == studentID {
				items = append(items, m)
				break
			}
		}
	}
	return items, nil
}

/* =========================================================
   Subject
   ========================================================= */

type memSubjectStore MemoryStores

func (s *memSubjectStore) Get(_ context.Context, schoolID, id uuid.UUID) (*subjectModel.SubjectModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.subjects[id]
	if !ok || m.SubjectSchoolID != schoolID {
		return nil, errs.NotFound("subjectDoesNotExist", "subject does not exist")
	}
	return &m, nil
}

func (s *memSubjectStore) GetByCode(_ context.Context, schoolID uuid.UUID, code string) (*subjectModel.SubjectModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.subjects {
		if m.SubjectSchoolID == schoolID && m.SubjectCode == code {
			return &m, nil
		}
	}
	return nil, errs.NotFound("subjectDoesNotExist", "subject does not exist")
}

func (s *memSubjectStore) Create(_ context.Context, m *subjectModel.SubjectModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.subjects {
		if cur.SubjectSchoolID == m.SubjectSchoolID && cur.SubjectCode == m.SubjectCode {
			return errs.Conflict("subjectWithCodeAlreadyExist", "subject with this code already exists")
		}
	}
	if m.SubjectID == uuid.Nil {
		m.SubjectID = uuid.New()
	}
	s.subjects[m.SubjectID] = *m
	return nil
}

func (s *memSubjectStore) Update(_ context.Context, m *subjectModel.SubjectModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.subjects[m.SubjectID]
	if !ok {
		return errs.NotFound("subjectDoesNotExist", "subject does not exist")
	}
	if cur.SubjectVersion != m.SubjectVersion {
		return errs.StateConflict("subjectConcurrentUpdate", "subject was modified concurrently")
	}
	m.SubjectVersion++
	s.subjects[m.SubjectID] = *m
	return nil
}

func (s *memSubjectStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.subjects[id]; ok && m.SubjectSchoolID == schoolID {
		delete(s.subjects, id)
	}
	return nil
}

func (s *memSubjectStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]subjectModel.SubjectModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []subjectModel.SubjectModel
	for _, m := range s.subjects {
		if m.SubjectSchoolID == schoolID && matches(f, m.SubjectState, m.SubjectCode, m.SubjectName) {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].SubjectCode < items[j].SubjectCode })
	total := int64(len(items))
	return page(items, f), total, nil
}

func (s *memSubjectStore) ListByClass(_ context.Context, schoolID, classID uuid.UUID) ([]subjectModel.SubjectModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []subjectModel.SubjectModel
	for _, m := range s.subjects {
		if m.SubjectSchoolID == schoolID && m.SubjectClassID == classID {
			items = append(items, m)
		}
	}
	return items, nil
}

func (s *memSubjectStore) ListByStudent(_ context.Context, schoolID, studentID uuid.UUID) ([]subjectModel.SubjectModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []subjectModel.SubjectModel
	for _, m := range s.subjects {
		if m.SubjectSchoolID != schoolID {
			continue
		}
		for _, e := range m.SubjectStudentList {
			if e.StudentID == studentID {
				items = append(items, m)
				break
			}
		}
	}
	return items, nil
}

/* =========================================================
   Student
   ========================================================= */

type memStudentStore MemoryStores

func (s *memStudentStore) Get(_ context.Context, schoolID, id uuid.UUID) (*studentModel.StudentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.students[id]
	if !ok || m.StudentSchoolID != schoolID {
		return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
	}
	return &m, nil
}

func (s *memStudentStore) GetByCode(_ context.Context, schoolID uuid.UUID, code string) (*studentModel.StudentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.students {
		if m.StudentSchoolID == schoolID && m.StudentCode == code {
			return &m, nil
		}
	}
	return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
}

func (s *memStudentStore) GetByIdentity(_ context.Context, schoolID uuid.UUID, identity string) (*studentModel.StudentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.students {
		if m.StudentSchoolID == schoolID && m.StudentUUIdentity != nil && *m.StudentUUIdentity == identity {
			return &m, nil
		}
	}
	return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
}

func (s *memStudentStore) Create(_ context.Context, m *studentModel.StudentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.students {
		if cur.StudentSchoolID == m.StudentSchoolID && cur.StudentCode == m.StudentCode {
			return errs.Conflict("studentWithCodeAlreadyExist", "student with this code already exists")
		}
	}
	if m.StudentID == uuid.Nil {
		m.StudentID = uuid.New()
	}
	s.students[m.StudentID] = *m
	return nil
}

func (s *memStudentStore) Update(_ context.Context, m *studentModel.StudentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.students[m.StudentID]
	if !ok {
		return errs.NotFound("studentDoesNotExist", "student does not exist")
	}
	if cur.StudentVersion != m.StudentVersion {
		return errs.StateConflict("studentConcurrentUpdate", "student was modified concurrently")
	}
	m.StudentVersion++
	s.students[m.StudentID] = *m
	return nil
}

func (s *memStudentStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.students[id]; ok && m.StudentSchoolID == schoolID {
		delete(s.students, id)
	}
	return nil
}

func (s *memStudentStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]studentModel.StudentModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []studentModel.StudentModel
	for _, m := range s.students {
		if m.StudentSchoolID == schoolID && matches(f, m.StudentState, m.StudentCode, "") {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StudentCode < items[j].StudentCode })
	total := int64(len(items))
	return page(items, f), total, nil
}

func (s *memStudentStore) ListByRelatedPerson(_ context.Context, schoolID, relatedPersonID uuid.UUID) ([]studentModel.StudentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []studentModel.StudentModel
	for _, m := range s.students {
		if m.StudentSchoolID != schoolID {
			continue
		}
		for _, e := range m.StudentRelatedPersonList {
			if e.RelatedPersonID == relatedPersonID {
				items = append(items, m)
				break
			}
		}
	}
	return items, nil
}

/* =========================================================
   Teacher
   ========================================================= */

type memTeacherStore MemoryStores

func (s *memTeacherStore) Get(_ context.Context, schoolID, id uuid.UUID) (*teacherModel.TeacherModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.teachers[id]
	if !ok || m.TeacherSchoolID != schoolID {
		return nil, errs.NotFound("teacherDoesNotExist", "teacher does not exist")
	}
	return &m, nil
}

func (s *memTeacherStore) GetByIdentity(_ context.Context, schoolID uuid.UUID, identity string) (*teacherModel.TeacherModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.teachers {
		if m.TeacherSchoolID == schoolID && m.TeacherUUIdentity == identity {
			return &m, nil
		}
	}
	return nil, errs.NotFound("teacherDoesNotExist", "teacher does not exist")
}

func (s *memTeacherStore) Create(_ context.Context, m *teacherModel.TeacherModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cur := range s.teachers {
		if cur.TeacherSchoolID == m.TeacherSchoolID && cur.TeacherUUIdentity == m.TeacherUUIdentity {
			return errs.Conflict("teacherAlreadyExist", "teacher already exists for this identity")
		}
	}
	if m.TeacherID == uuid.Nil {
		m.TeacherID = uuid.New()
	}
	s.teachers[m.TeacherID] = *m
	return nil
}

func (s *memTeacherStore) Update(_ context.Context, m *teacherModel.TeacherModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.teachers[m.TeacherID]
	if !ok {
		return errs.NotFound("teacherDoesNotExist", "teacher does not exist")
	}
	if cur.TeacherVersion != m.TeacherVersion {
		return errs.StateConflict("teacherConcurrentUpdate", "teacher was modified concurrently")
	}
	m.TeacherVersion++
	s.teachers[m.TeacherID] = *m
	return nil
}

func (s *memTeacherStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.teachers[id]; ok && m.TeacherSchoolID == schoolID {
		delete(s.teachers, id)
	}
	return nil
}

func (s *memTeacherStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]teacherModel.TeacherModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []teacherModel.TeacherModel
	for _, m := range s.teachers {
		if m.TeacherSchoolID == schoolID && matches(f, m.TeacherState, m.TeacherUUIdentity, "") {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].TeacherUUIdentity < items[j].TeacherUUIdentity })
	total := int64(len(items))
	return page(items, f), total, nil
}

/* =========================================================
   RelatedPerson
   ========================================================= */

type memRelatedPersonStore MemoryStores

func (s *memRelatedPersonStore) Get(_ context.Context, schoolID, id uuid.UUID) (*rpModel.RelatedPersonModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.relatedPersons[id]
	if !ok || m.RelatedPersonSchoolID != schoolID {
		return nil, errs.NotFound("relatedPersonDoesNotExist", "related person does not exist")
	}
	return &m, nil
}

func (s *memRelatedPersonStore) GetByIdentity(_ context.Context, schoolID uuid.UUID, identity string) (*rpModel.RelatedPersonModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.relatedPersons {
		if m.RelatedPersonSchoolID == schoolID && m.RelatedPersonUUIdentity != nil && *m.RelatedPersonUUIdentity == identity {
			return &m, nil
		}
	}
	return nil, errs.NotFound("relatedPersonDoesNotExist", "related person does not exist")
}

func (s *memRelatedPersonStore) Create(_ context.Context, m *rpModel.RelatedPersonModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.RelatedPersonID == uuid.Nil {
		m.RelatedPersonID = uuid.New()
	}
	s.relatedPersons[m.RelatedPersonID] = *m
	return nil
}

func (s *memRelatedPersonStore) Update(_ context.Context, m *rpModel.RelatedPersonModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.relatedPersons[m.RelatedPersonID]
	if !ok {
		return errs.NotFound("relatedPersonDoesNotExist", "related person does not exist")
	}
	if cur.RelatedPersonVersion != m.RelatedPersonVersion {
		return errs.StateConflict("relatedPersonConcurrentUpdate", "related person was modified concurrently")
	}
	m.RelatedPersonVersion++
	s.relatedPersons[m.RelatedPersonID] = *m
	return nil
}

func (s *memRelatedPersonStore) Delete(_ context.Context, schoolID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.relatedPersons[id]; ok && m.RelatedPersonSchoolID == schoolID {
		delete(s.relatedPersons, id)
	}
	return nil
}

func (s *memRelatedPersonStore) List(_ context.Context, schoolID uuid.UUID, f ListFilter) ([]rpModel.RelatedPersonModel, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []rpModel.RelatedPersonModel
	for _, m := range s.relatedPersons {
		if m.RelatedPersonSchoolID != schoolID {
			continue
		}
		ident := ""
		if m.RelatedPersonUUIdentity != nil {
			ident = *m.RelatedPersonUUIdentity
		}
		if matches(f, m.RelatedPersonState, ident, "") {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].RelatedPersonCreatedAt.Before(items[j].RelatedPersonCreatedAt)
	})
	total := int64(len(items))
	return page(items, f), total, nil
}
