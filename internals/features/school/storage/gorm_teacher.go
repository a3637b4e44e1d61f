// file: internals/features/school/storage/gorm_teacher.go
package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	teacherModel "schoolkit_backend/internals/features/school/teachers/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormTeacherStore struct {
	db *gorm.DB
}

func (s *gormTeacherStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*teacherModel.TeacherModel, error) {
	var m teacherModel.TeacherModel
	err := s.db.WithContext(ctx).
		Where("teacher_school_id = ? AND teacher_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("teacherDoesNotExist", "teacher does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormTeacherStore) GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*teacherModel.TeacherModel, error) {
	var m teacherModel.TeacherModel
	err := s.db.WithContext(ctx).
		Where("teacher_school_id = ? AND teacher_uu_identity = ?", schoolID, identity).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("teacherDoesNotExist", "teacher does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormTeacherStore) Create(ctx context.Context, m *teacherModel.TeacherModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return errs.Conflict("teacherAlreadyExist", "teacher already exists for this identity")
	}
	return err
}

func (s *gormTeacherStore) Update(ctx context.Context, m *teacherModel.TeacherModel) error {
	prev := m.TeacherVersion
	m.TeacherVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("teacher_school_id = ? AND teacher_version = ?", m.TeacherSchoolID, prev).
		Select("*").Omit("teacher_id", "teacher_created_at", "teacher_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.TeacherVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.TeacherVersion = prev
		return errs.StateConflict("teacherConcurrentUpdate", "teacher was modified concurrently")
	}
	return nil
}

func (s *gormTeacherStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("teacher_school_id = ? AND teacher_id = ?", schoolID, id).
		Delete(&teacherModel.TeacherModel{}).Error
}

func (s *gormTeacherStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]teacherModel.TeacherModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&teacherModel.TeacherModel{}).
		Where("teacher_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("teacher_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("teacher_uu_identity ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []teacherModel.TeacherModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("teacher_uu_identity ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
