package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"crmnice/internal/database"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("already exists")
	ErrInUse     = errors.New("record is in use")
)

// InUseError refuses a delete while other rows still reference the record.
type InUseError struct {
	Count      int64
	Dependents string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("still referenced by %d %s", e.Count, e.Dependents)
}

func (e *InUseError) Is(target error) bool { return target == ErrInUse }

// mapErr converts driver level errors into repository sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
