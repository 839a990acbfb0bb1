package repositories

import (
	"errors"

	"gorm.io/gorm"

	"github.com/gyanguru/gyanguru-backend/apperrors"
)

// classify maps gorm sentinel errors onto the application taxonomy.
// The DB must be opened with TranslateError so unique violations surface
// as gorm.ErrDuplicatedKey.
func classify(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(entity + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrap(apperrors.ErrConflict, entity+" already exists", err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperrors.Wrap(apperrors.ErrValidation, entity+" references a missing record", err)
	}
	return err
}
