// file: internals/features/school/storage/gorm_year.go
package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	yearModel "schoolkit_backend/internals/features/school/years/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormYearStore struct {
	db *gorm.DB
}

func (s *gormYearStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*yearModel.SchoolYearModel, error) {
	var m yearModel.SchoolYearModel
	err := s.db.WithContext(ctx).
		Where("school_year_school_id = ? AND school_year_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("schoolYearDoesNotExist", "school year does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormYearStore) GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*yearModel.SchoolYearModel, error) {
	var m yearModel.SchoolYearModel
	err := s.db.WithContext(ctx).
		Where("school_year_school_id = ? AND school_year_code = ?", schoolID, code).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("schoolYearDoesNotExist", "school year does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormYearStore) Create(ctx context.Context, m *yearModel.SchoolYearModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return errs.Conflict("schoolYearWithCodeAlreadyExist", "school year with this code already exists")
	}
	return err
}

func (s *gormYearStore) Update(ctx context.Context, m *yearModel.SchoolYearModel) error {
	prev := m.SchoolYearVersion
	m.SchoolYearVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("school_year_school_id = ? AND school_year_version = ?", m.SchoolYearSchoolID, prev).
		Select("*").Omit("school_year_id", "school_year_created_at", "school_year_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.SchoolYearVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.SchoolYearVersion = prev
		return errs.StateConflict("schoolYearConcurrentUpdate", "school year was modified concurrently")
	}
	return nil
}

func (s *gormYearStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("school_year_school_id = ? AND school_year_id = ?", schoolID, id).
		Delete(&yearModel.SchoolYearModel{}).Error
}

func (s *gormYearStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]yearModel.SchoolYearModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&yearModel.SchoolYearModel{}).
		Where("school_year_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("school_year_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("school_year_code ILIKE ? OR school_year_name ILIKE ?", "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []yearModel.SchoolYearModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("school_year_start_date DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
