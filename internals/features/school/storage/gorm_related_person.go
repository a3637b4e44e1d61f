// file: internals/features/school/storage/gorm_related_person.go
package storage

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	rpModel "schoolkit_backend/internals/features/school/relatedpersons/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormRelatedPersonStore struct {
	db *gorm.DB
}

func (s *gormRelatedPersonStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*rpModel.RelatedPersonModel, error) {
	var m rpModel.RelatedPersonModel
	err := s.db.WithContext(ctx).
		Where("related_person_school_id = ? AND related_person_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("relatedPersonDoesNotExist", "related person does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormRelatedPersonStore) GetByIdentity(ctx context.Context, schoolID uuid.UUID, identity string) (*rpModel.RelatedPersonModel, error) {
	var m rpModel.RelatedPersonModel
	err := s.db.WithContext(ctx).
		Where("related_person_school_id = ? AND related_person_uu_identity = ?", schoolID, identity).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("relatedPersonDoesNotExist", "related person does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormRelatedPersonStore) Create(ctx context.Context, m *rpModel.RelatedPersonModel) error {
	return s.db.WithContext(ctx).Create(m).Error
}

func (s *gormRelatedPersonStore) Update(ctx context.Context, m *rpModel.RelatedPersonModel) error {
	prev := m.RelatedPersonVersion
	m.RelatedPersonVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("related_person_school_id = ? AND related_person_version = ?", m.RelatedPersonSchoolID, prev).
		Select("*").Omit("related_person_id", "related_person_created_at", "related_person_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.RelatedPersonVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.RelatedPersonVersion = prev
		return errs.StateConflict("relatedPersonConcurrentUpdate", "related person was modified concurrently")
	}
	return nil
}

func (s *gormRelatedPersonStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("related_person_school_id = ? AND related_person_id = ?", schoolID, id).
		Delete(&rpModel.RelatedPersonModel{}).Error
}

func (s *gormRelatedPersonStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]rpModel.RelatedPersonModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&rpModel.RelatedPersonModel{}).
		Where("related_person_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("related_person_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("related_person_uu_identity ILIKE ?", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []rpModel.RelatedPersonModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("related_person_created_at ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
