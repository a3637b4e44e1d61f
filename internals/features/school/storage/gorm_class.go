// file: internals/features/school/storage/gorm_class.go
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	classModel "schoolkit_backend/internals/features/school/classes/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormClassStore struct {
	db *gorm.DB
}

func (s *gormClassStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*classModel.ClassModel, error) {
	var m classModel.ClassModel
	err := s.db.WithContext(ctx).
		Where("class_school_id = ? AND class_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("classDoesNotExist", "class does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormClassStore) GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*classModel.ClassModel, error) {
	var m classModel.ClassModel
	err := s.db.WithContext(ctx).
		Where("class_school_id = ? AND class_code = ?", schoolID, code).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("classDoesNotExist", "class does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormClassStore) Create(ctx context.Context, m *classModel.ClassModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		// Same code as the pre-check so a duplicate-code race is
		// indistinguishable for the caller.
		return errs.Conflict("classWithCodeAlreadyExist", "class with this code already exists")
	}
	return err
}

func (s *gormClassStore) Update(ctx context.Context, m *classModel.ClassModel) error {
	prev := m.ClassVersion
	m.ClassVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("class_school_id = ? AND class_version = ?", m.ClassSchoolID, prev).
		Select("*").Omit("class_id", "class_created_at", "class_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.ClassVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.ClassVersion = prev
		return errs.StateConflict("classConcurrentUpdate", "class was modified concurrently")
	}
	return nil
}

func (s *gormClassStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("class_school_id = ? AND class_id = ?", schoolID, id).
		Delete(&classModel.ClassModel{}).Error
}

func (s *gormClassStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]classModel.ClassModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&classModel.ClassModel{}).
		Where("class_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("class_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("class_code ILIKE ? OR class_name ILIKE ?", "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []classModel.ClassModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("class_code ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *gormClassStore) ListBySchoolYear(ctx context.Context, schoolID, yearID uuid.UUID) ([]classModel.ClassModel, error) {
	var items []classModel.ClassModel
	err := s.db.WithContext(ctx).
		Where("class_school_id = ? AND class_school_year_id = ?", schoolID, yearID).
		Find(&items).Error
	return items, err
}

func (s *gormClassStore) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]classModel.ClassModel, error) {
	var items []classModel.ClassModel
	// jsonb containment over the student list entries.
	needle := fmt.Sprintf(`[{"student_id": %q}]`, studentID.String())
	err := s.db.WithContext(ctx).
		Where("class_school_id = ? AND class_student_list @> ?::jsonb", schoolID, needle).
		Find(&items).Error
	return items, err
}
