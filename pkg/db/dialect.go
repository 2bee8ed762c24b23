package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/menuya/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// customerKeySize fits an email address, the longest customer key.
const customerKeySize = 320

// Dialect picks the gorm dialector for DB_TYPE. Postgres is the only backend
// with a change-feed trigger; the others serve single-node setups and tests.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.DBType)) {
	case "postgres", "":
		return postgres.New(postgres.Config{DSN: PostgresDSN(cfg)}), nil
	case "mysql":
		return mysql.New(mysql.Config{
			DSN:               MySQLDSN(cfg),
			DefaultStringSize: customerKeySize,
		}), nil
	case "sqlite":
		return sqlite.Open(SQLiteDSN(cfg.DBPath)), nil
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

// PostgresDSN builds the keyword/value DSN shared by gorm and the change-feed listener.
func PostgresDSN(cfg config.Config) string {
	parts := []string{
		"host=" + cfg.DBHost,
		"port=" + cfg.DBPort,
		"user=" + cfg.DBUser,
		"password=" + cfg.DBPassword,
		"dbname=" + cfg.DBName,
		"sslmode=" + cfg.DBSSLMode,
		"TimeZone=UTC",
		"application_name=menuya",
	}
	return strings.Join(parts, " ")
}

func MySQLDSN(cfg config.Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// SQLiteDSN enables foreign keys and a busy timeout so concurrent bill
// requests wait instead of failing with SQLITE_BUSY.
func SQLiteDSN(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "menuya.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}
