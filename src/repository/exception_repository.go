package repository

import (
	"context"
	"encoding/json"
	"runtime/debug"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"intradaybot/src/database"
	"intradaybot/src/model"
)

// ServiceName is the service recorded on every persisted exception.
const ServiceName = "intradaybot"

// ExceptionRepository handles persistence of system exceptions.
type ExceptionRepository struct {
	db *gorm.DB
}

// NewExceptionRepository creates a new repository instance.
func NewExceptionRepository() *ExceptionRepository {
	return &ExceptionRepository{
		db: database.MainDB,
	}
}

func NewExceptionRepositoryWithDB(db *gorm.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

// Create persists a new exception in the database.
func (r *ExceptionRepository) Create(
	ctx context.Context,
	exc *model.Exception,
) error {

	logger.WithFields(map[string]interface{}{
		"service": exc.Service,
		"module":  exc.Module,
		"method":  exc.Method,
		"level":   exc.Level,
	}).Error("Persisting system exception")

	return r.db.WithContext(ctx).Create(exc).Error
}

// Capture records a handled failure with the current stack. Persistence
// errors are logged and swallowed so callers never fail on auditing.
func (r *ExceptionRepository) Capture(
	ctx context.Context,
	module, method, level string,
	err error,
	data map[string]interface{},
) {
	if err == nil {
		return
	}

	exc := &model.Exception{
		Service: ServiceName,
		Module:  module,
		Method:  method,
		Message: err.Error(),
		Stack:   string(debug.Stack()),
		Level:   level,
	}
	if len(data) > 0 {
		if b, mErr := json.Marshal(data); mErr == nil {
			exc.Context = string(b)
		}
	}

	if cErr := r.Create(ctx, exc); cErr != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "ExceptionRepository",
			"op":     "Capture",
			"module": module,
			"method": method,
		}).WithError(cErr).Error("Failed to persist exception")
	}
}

// FindLatest returns the most recent exceptions, newest first.
func (r *ExceptionRepository) FindLatest(ctx context.Context, limit int) ([]model.Exception, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []model.Exception
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
