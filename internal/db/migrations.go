package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/nurpe/logistics-billing/internal/model"
)

// Models lists every table in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Account{},
		&model.Destination{},
		&model.Tariff{},
		&model.Expedition{},
		&model.Invoice{},
		&model.ExpeditionInvoice{},
		&model.Payment{},
		&model.Driver{},
		&model.Vehicle{},
		&model.Tour{},
		&model.TourExpedition{},
	}
}

// Migrate creates tables and the unique indexes the services rely on.
// It is dialect-neutral and is what tests run against sqlite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Postgres-only constraints layered on top of Migrate.
var migrationStatements = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_expeditions_positive') THEN
			ALTER TABLE expeditions ADD CONSTRAINT ck_expeditions_positive CHECK (weight > 0 AND volume > 0);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_payments_amount_positive') THEN
			ALTER TABLE payments ADD CONSTRAINT ck_payments_amount_positive CHECK (amount > 0);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_invoices_totals') THEN
			ALTER TABLE invoices ADD CONSTRAINT ck_invoices_totals CHECK (ht >= 0 AND tva >= 0 AND ttc = ht + tva);
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_drivers_license_number') THEN
			ALTER TABLE drivers ADD CONSTRAINT ck_drivers_license_number CHECK (license_number ~ '^[0-9]{10}$');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_drivers_license_category') THEN
			ALTER TABLE drivers ADD CONSTRAINT ck_drivers_license_category CHECK (license_category IN ('A', 'B', 'C'));
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_vehicles_matricule') THEN
			ALTER TABLE vehicles ADD CONSTRAINT ck_vehicles_matricule CHECK (matricule ~ '^[0-9]{6}$');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'ck_vehicles_capacity') THEN
			ALTER TABLE vehicles ADD CONSTRAINT ck_vehicles_capacity CHECK (
				max_weight > 0 AND max_volume > 0
				AND (type <> 'MOTO' OR max_weight <= 100)
				AND (type <> 'VOITURE' OR max_weight <= 500)
			);
		END IF;
	END
	$$;`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_unpaid ON invoices (issue_date) WHERE paid = false;`,
	`CREATE INDEX IF NOT EXISTS idx_drivers_available ON drivers (code) WHERE available = true;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
