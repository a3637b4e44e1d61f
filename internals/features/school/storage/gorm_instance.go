// file: internals/features/school/storage/gorm_instance.go
package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	instanceModel "schoolkit_backend/internals/features/school/instance/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormInstanceStore struct {
	db *gorm.DB
}

func (s *gormInstanceStore) GetByTenant(ctx context.Context, schoolID uuid.UUID) (*instanceModel.SchoolInstanceModel, error) {
	var m instanceModel.SchoolInstanceModel
	err := s.db.WithContext(ctx).
		Where("school_instance_school_id = ?", schoolID).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("schoolInstanceDoesNotExist", "school instance does not exist for tenant")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormInstanceStore) Create(ctx context.Context, m *instanceModel.SchoolInstanceModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return errs.Conflict("schoolInstanceAlreadyExist", "school instance already exists for tenant")
	}
	return err
}

func (s *gormInstanceStore) Delete(ctx context.Context, schoolID uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("school_instance_school_id = ?", schoolID).
		Delete(&instanceModel.SchoolInstanceModel{}).Error
}

func (s *gormInstanceStore) Update(ctx context.Context, m *instanceModel.SchoolInstanceModel) error {
	prev := m.SchoolInstanceVersion
	m.SchoolInstanceVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("school_instance_school_id = ? AND school_instance_version = ?", m.SchoolInstanceSchoolID, prev).
		Select("*").Omit("school_instance_id", "school_instance_created_at", "school_instance_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.SchoolInstanceVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.SchoolInstanceVersion = prev
		return errs.StateConflict("schoolInstanceConcurrentUpdate", "school instance was modified concurrently")
	}
	return nil
}
