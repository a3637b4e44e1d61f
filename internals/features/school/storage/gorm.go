// file: internals/features/school/storage/gorm.go
package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// NewGormStores wires every store against the shared *gorm.DB.
func NewGormStores(db *gorm.DB) Stores {
	return Stores{
		Instances:      &gormInstanceStore{db: db},
		Years:          &gormYearStore{db: db},
		Classes:        &gormClassStore{db: db},
		Subjects:       &gormSubjectStore{db: db},
		Students:       &gormStudentStore{db: db},
		Teachers:       &gormTeacherStore{db: db},
		RelatedPersons: &gormRelatedPersonStore{db: db},
	}
}

const uniqueViolation = "23505"

// isUniqueViolation detects a unique-index race regardless of which postgres
// driver produced the error (pgx native or lib/pq via simple protocol).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
