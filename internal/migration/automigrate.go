package migration

import (
	"fmt"

	accountdomain "github.com/smallbiznis/menuya/internal/account/domain"
	discountdomain "github.com/smallbiznis/menuya/internal/discount/domain"
	orderdomain "github.com/smallbiznis/menuya/internal/order/domain"
	tabledomain "github.com/smallbiznis/menuya/internal/table/domain"
	"gorm.io/gorm"
)

// activeAccountIndex keeps one open bill per real table.
const activeAccountIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ux_accounts_active_table
ON accounts (table_number)
WHERE state IN ('solicitada', 'propina_habilitada', 'pago_pendiente') AND table_number <> 9999`

// AutoMigrate builds the schema from the models for dialects without the
// embedded SQL migrations (sqlite, mysql).
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&tabledomain.Table{},
		&orderdomain.Order{},
		&accountdomain.Account{},
		&accountdomain.AccountOrder{},
		&discountdomain.Eligibility{},
		&discountdomain.GameResult{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// MySQL has no partial indexes; the table lock and the re-read on
	// conflict cover it there.
	if db.Dialector.Name() == "mysql" {
		return nil
	}
	if err := db.Exec(activeAccountIndex).Error; err != nil {
		return fmt.Errorf("create active account index: %w", err)
	}
	return nil
}
