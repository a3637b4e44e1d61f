// file: internals/features/school/storage/gorm_subject.go
package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	subjectModel "schoolkit_backend/internals/features/school/subjects/model"
	"schoolkit_backend/internals/helpers/errs"
)

type gormSubjectStore struct {
	db *gorm.DB
}

func (s *gormSubjectStore) Get(ctx context.Context, schoolID, id uuid.UUID) (*subjectModel.SubjectModel, error) {
	var m subjectModel.SubjectModel
	err := s.db.WithContext(ctx).
		Where("subject_school_id = ? AND subject_id = ?", schoolID, id).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("subjectDoesNotExist", "subject does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormSubjectStore) GetByCode(ctx context.Context, schoolID uuid.UUID, code string) (*subjectModel.SubjectModel, error) {
	var m subjectModel.SubjectModel
	err := s.db.WithContext(ctx).
		Where("subject_school_id = ? AND subject_code = ?", schoolID, code).
		First(&m).Error
	if isNotFound(err) {
		return nil, errs.NotFound("subjectDoesNotExist", "subject does not exist")
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *gormSubjectStore) Create(ctx context.Context, m *subjectModel.SubjectModel) error {
	err := s.db.WithContext(ctx).Create(m).Error
	if isUniqueViolation(err) {
		return errs.Conflict("subjectWithCodeAlreadyExist", "subject with this code already exists")
	}
	return err
}

func (s *gormSubjectStore) Update(ctx context.Context, m *subjectModel.SubjectModel) error {
	prev := m.SubjectVersion
	m.SubjectVersion = prev + 1
	res := s.db.WithContext(ctx).Model(m).
		Where("subject_school_id = ? AND subject_version = ?", m.SubjectSchoolID, prev).
		Select("*").Omit("subject_id", "subject_created_at", "subject_deleted_at").
		Updates(m)
	if res.Error != nil {
		m.SubjectVersion = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		m.SubjectVersion = prev
		return errs.StateConflict("subjectConcurrentUpdate", "subject was modified concurrently")
	}
	return nil
}

func (s *gormSubjectStore) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Where("subject_school_id = ? AND subject_id = ?", schoolID, id).
		Delete(&subjectModel.SubjectModel{}).Error
}

func (s *gormSubjectStore) List(ctx context.Context, schoolID uuid.UUID, f ListFilter) ([]subjectModel.SubjectModel, int64, error) {
	q := s.db.WithContext(ctx).Model(&subjectModel.SubjectModel{}).
		Where("subject_school_id = ?", schoolID)
	if f.State != "" {
		q = q.Where("subject_state = ?", f.State)
	}
	if f.Search != "" {
		q = q.Where("subject_code ILIKE ? OR subject_name ILIKE ?", "%"+f.Search+"%", "%"+f.Search+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []subjectModel.SubjectModel
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Order("subject_code ASC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *gormSubjectStore) ListByClass(ctx context.Context, schoolID, classID uuid.UUID) ([]subjectModel.SubjectModel, error) {
	var items []subjectModel.SubjectModel
	err := s.db.WithContext(ctx).
		Where("subject_school_id = ? AND subject_class_id = ?", schoolID, classID).
		Find(&items).Error
	return items, err
}

func (s *gormSubjectStore) ListByStudent(ctx context.Context, schoolID, studentID uuid.UUID) ([]subjectModel.SubjectModel, error) {
	var items []subjectModel.SubjectModel
	needle := fmt.Sprintf(`[{"student_id": %q}]`, studentID.String())
	err := s.db.WithContext(ctx).
		Where("subject_school_id = ? AND subject_student_list @> ?::jsonb", schoolID, needle).
		Find(&items).Error
	return items, err
}
