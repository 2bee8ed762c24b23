package db

import (
	"testing"

	"github.com/smallbiznis/menuya/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectByType(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBPort: "5432", DBUser: "menuya", DBPassword: "secret", DBName: "menuya", DBSSLMode: "disable"}

	for typ, name := range map[string]string{"": "postgres", "postgres": "postgres", "mysql": "mysql", "sqlite": "sqlite"} {
		cfg.DBType = typ
		dialector, err := Dialect(cfg)
		require.NoError(t, err, typ)
		assert.Equal(t, name, dialector.Name(), typ)
	}

	cfg.DBType = "oracle"
	_, err := Dialect(cfg)
	assert.Error(t, err)
}

func TestDSNs(t *testing.T) {
	cfg := config.Config{DBHost: "db", DBPort: "5432", DBUser: "menuya", DBPassword: "secret", DBName: "menuya", DBSSLMode: "disable"}

	assert.Equal(t,
		"host=db port=5432 user=menuya password=secret dbname=menuya sslmode=disable TimeZone=UTC application_name=menuya",
		PostgresDSN(cfg))
	assert.Equal(t, "menuya:secret@tcp(db:5432)/menuya?charset=utf8mb4&parseTime=True&loc=UTC", MySQLDSN(cfg))
	assert.Equal(t, "menuya.db?_foreign_keys=on&_busy_timeout=5000", SQLiteDSN(""))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on&_busy_timeout=5000", SQLiteDSN("file::memory:?cache=shared"))
}
