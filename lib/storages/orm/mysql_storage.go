package orm

import (
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// WithMysql opens a shared audit log, for servers where many repositories push to one place.
func WithMysql(dsn string) (gorm.Dialector, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mysql DSN")
	}

	// evaluation dates are scanned into time.Time
	cfg.ParseTime = true

	return gormmysql.Open(cfg.FormatDSN()), nil
}
