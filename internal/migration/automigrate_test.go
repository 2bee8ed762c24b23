package migration_test

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	"github.com/smallbiznis/menuya/internal/migration"
	"github.com/smallbiznis/menuya/internal/testsupport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func account(id snowflake.ID, table int, state accountdomain.State) *accountdomain.Account {
	now := time.Now().UTC()
	return &accountdomain.Account{ID: id, TableNumber: table, State: state, CreatedAt: now, UpdatedAt: now}
}

func TestAutoMigrateIsRepeatable(t *testing.T) {
	db := testsupport.OpenDB(t)
	require.NoError(t, migration.AutoMigrate(db))
}

func TestOneOpenBillPerTable(t *testing.T) {
	db := testsupport.OpenDB(t)

	require.NoError(t, db.Create(account(1, 3, accountdomain.StateSolicitada)).Error)
	assert.Error(t, db.Create(account(2, 3, accountdomain.StatePropinaHabilitada)).Error)

	require.NoError(t, db.Create(account(3, 4, accountdomain.StateConfirmado)).Error)
	require.NoError(t, db.Create(account(4, 4, accountdomain.StateSolicitada)).Error)

	require.NoError(t, db.Create(account(5, accountdomain.DeliveryTableNumber, accountdomain.StateSolicitada)).Error)
	require.NoError(t, db.Create(account(6, accountdomain.DeliveryTableNumber, accountdomain.StateSolicitada)).Error)
}
