package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var forUpdate = clause.Locking{Strength: "UPDATE"}

// Store groups the repositories that share one database handle. Inside
// Transaction every repository is bound to the same transaction.
type Store struct {
	db       *gorm.DB
	Billing  *BillingRepository
	Dispatch *DispatchRepository
	Reports  *ReportRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Billing:  NewBillingRepository(db),
		Dispatch: NewDispatchRepository(db),
		Reports:  NewReportRepository(db),
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping is used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
