// file: internals/features/school/storage/gorm_student.go
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	studentModel "schoolkit_backend/internals/features/school/students/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormStudentStore struct {
	db *gorm.DB
}

func (s *gormStudentStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*studentModel.StudentModel, error) {
	var m studentModel.StudentModel
	err := s.db.WithContext(ctx).
		Where("student_school_id = ? AND student_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormStudentStore) GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*studentModel.StudentModel, error) {
	var m studentModel.StudentModel
	err := s.db.WithContext(ctx).
		Where("student_school_id = ? AND student_code = ?", schoolID, code).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormStudentStore) GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*studentModel.StudentModel, error) {
	var m studentModel.StudentModel
	err := s.db.WithContext(ctx).
		Where("student_school_id = ? AND student_uu_identity = ?", schoolID, identity).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("studentDoesNotExist", "student does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormStudentStore) Create(ctx context.Context, m *studentModel.StudentModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return errs.Conflict("studentWithCodeAlreadyExist", "student with this code already exists")
	}
	return err
}

func (s *gormStudentStore) Update(ctx context.Context, m *studentModel.StudentModel) error {
	prev := m.StudentVersion
	m.StudentVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("student_school_id = ? AND student_version = ?", m.StudentSchoolID, prev).
		Select("*").Omit("student_id", "student_created_at", "student_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.StudentVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.StudentVersion = prev
		return errs.StateConflict("studentConcurrentUpdate", "student was modified concurrently")
	}
	return nil
}

func (s *gormStudentStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("student_school_id = ? AND student_id = ?", schoolID, id).
		Delete(&studentModel.StudentModel{}).Error
}

func (s *gormStudentStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]studentModel.StudentModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&studentModel.StudentModel{}).
		Where("student_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("student_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("student_code ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []studentModel.StudentModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("student_code ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *gormStudentStore) ListByRelatedPerson(ctx context.Context, schoolID, relatedPersonID uuid.UUID) ([]studentModel.StudentModel, error) {
	var items []studentModel.StudentModel
	needle := fmt.Sprintf(`[{"related_person_id": %q}]`, relatedPersonID.String())
	err := s.db.WithContext(ctx).
		Where("student_school_id = ? AND student_related_person_list @> ?::jsonb", schoolID, needle).
		Find(&items).Error
	return items, err
}
