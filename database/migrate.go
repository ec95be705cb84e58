package database

import (
	"fmt"
	"time"

	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
)

// Migration is a forward-only schema or data change.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

type SchemaMigration struct {
	Version   int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"type:varchar(100);not null"`
	AppliedAt time.Time
}

func (SchemaMigration) TableName() string { return "schema_migrations" }

var Migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(models.All()...)
		},
	},
	{
		Version: 2,
		Name:    "order_status_log_backfill",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`
				INSERT INTO order_status_log (order_id, old_status, new_status, changed_by, created_at)
				SELECT o.id, '', o.status, 'backfill', o.created_at
				FROM orders o
				WHERE NOT EXISTS (SELECT 1 FROM order_status_log l WHERE l.order_id = o.id)
			`).Error
		},
	},
	{
		Version: 3,
		Name:    "disable_sold_out_items",
		Up: func(tx *gorm.DB) error {
			return tx.Model(&models.MenuItem{}).
				Where("stock_qty <= ? AND is_available = ?", 0, true).
				Update("is_available", false).Error
		},
	},
}

// Migrate applies pending migrations in version order, each in its own transaction.
func Migrate(db *gorm.DB) error {
	return Apply(db, Migrations)
}

func Apply(db *gorm.DB, migrations []Migration) error {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied []SchemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return err
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	last := 0
	for _, m := range migrations {
		if m.Version <= last {
			return fmt.Errorf("migration %d (%s) is out of order", m.Version, m.Name)
		}
		last = m.Version
		if done[m.Version] {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: m.Version, Name: m.Name, AppliedAt: time.Now()}).Error
		})
		if err != nil {
			utils.ErrorLogger.Errorf("Migration %d (%s) failed: %v", m.Version, m.Name, err)
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		utils.InfoLogger.Infof("Applied migration %d (%s)", m.Version, m.Name)
	}
	return nil
}
