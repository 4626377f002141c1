package question

import (
	"errors"
	"strings"

	"mathtutor/internal/failure"
	"mathtutor/internal/metrics"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	sqlStateUniqueViolation = "23505"
	// sqlStateIntegrityClass 完整性约束类（非空、外键、检查约束等）
	sqlStateIntegrityClass = "23"
)

// translateError 将存储层错误转换为分类错误
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := failure.As(err); ok {
		return err
	}

	f := classifyStorageError(err)
	metrics.StorageFailuresTotal.WithLabelValues(op, f.Code()).Inc()
	return f
}

func classifyStorageError(err error) *failure.Failure {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return failure.Wrap(failure.KindNotFound, err, "")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return failure.Wrap(failure.KindDuplicateEntry, err, "")
	case errors.Is(err, gorm.ErrForeignKeyViolated), errors.Is(err, gorm.ErrCheckConstraintViolated):
		return failure.Wrap(failure.KindValidationFailed, err, err.Error())
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateUniqueViolation:
			return failure.Wrap(failure.KindDuplicateEntry, err, "")
		case strings.HasPrefix(pgErr.Code, sqlStateIntegrityClass):
			return failure.Wrap(failure.KindValidationFailed, err, pgErr.Message)
		}
	}

	return failure.Wrap(failure.KindStorageFailed, err, "")
}
