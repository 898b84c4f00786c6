// Package sqldb opens the database/sql backed history stores.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/fastygo/crm-analytics/internal/config"
)

// Open connects to MySQL or SQLite according to cfg.Driver and pings the database.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		driverName string
		dsn        string
		err        error
	)
	switch cfg.Driver {
	case config.DriverMySQL:
		driverName = "mysql"
		dsn, err = toMySQLDSN(cfg.URL)
	case config.DriverSQLite:
		driverName = "sqlite"
		dsn = strings.TrimPrefix(cfg.URL, "sqlite://")
	default:
		err = fmt.Errorf("driver %q is not served by database/sql", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	}
	if cfg.Driver == config.DriverSQLite {
		// one writer at a time and a shared view of in-memory databases
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connected to history store", zap.String("driver", cfg.Driver))
	return db, nil
}

// toMySQLDSN converts mysql:// and mariadb:// URLs into the driver's DSN format.
// Other values are assumed to already be driver DSNs.
func toMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}
	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	db := strings.TrimPrefix(u.Path, "/")
	if user == "" || u.Host == "" || db == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}

	params := url.Values{}
	params.Set("parseTime", "true")
	params.Set("loc", "UTC")
	params.Set("time_zone", "'+00:00'")
	for k, v := range u.Query() {
		params[k] = v
	}
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s", user, pass, u.Host, db, params.Encode()), nil
}
