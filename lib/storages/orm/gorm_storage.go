package orm

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/pescuma/pushguard/lib/consoles"
	"github.com/pescuma/pushguard/lib/model"
	"github.com/pescuma/pushguard/lib/storages"
)

type gormStorage struct {
	mutex   sync.Mutex
	db      *gorm.DB
	console consoles.Console
}

func NewGormStorage(d gorm.Dialector, console consoles.Console) (storages.Storage, error) {
	l := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(d, &gorm.Config{
		NamingStrategy: namingStrategy{},
		Logger:         l,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error opening audit database")
	}

	if d.Name() == "sqlite" {
		// sqlite has a single writer, and every connection to :memory: is a new database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, errors.Wrap(err, "error opening audit database")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(
		&sqlEvaluation{},
	)
	if err != nil {
		return nil, errors.Wrap(err, "error creating audit tables")
	}

	return &gormStorage{
		db:      db,
		console: console,
	}, nil
}

func (s *gormStorage) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}

	return db.Close()
}

func (s *gormStorage) WriteEvaluation(e *model.Evaluation) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.console.Debugf("Writing evaluation %v to the audit log\n", e.ID)

	err := s.db.Create(newSqlEvaluation(e)).Error
	if err != nil {
		return errors.Wrapf(err, "error writing evaluation %v", e.ID)
	}

	return nil
}

func (s *gormStorage) ListEvaluations(repository string, limit int) ([]*model.Evaluation, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := s.db.Order("date desc")
	if repository != "" {
		query = query.Where("repository = ?", repository)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []*sqlEvaluation
	err := query.Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "error listing evaluations")
	}

	return lo.Map(rows, func(r *sqlEvaluation, _ int) *model.Evaluation { return r.toModel() }), nil
}

// namingStrategy drops the sql prefix of the row types from the table names.
type namingStrategy struct {
	schema.NamingStrategy
}

func (n namingStrategy) TableName(table string) string {
	return strings.TrimPrefix(n.NamingStrategy.TableName(table), "sql_")
}
