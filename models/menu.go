package models

import (
	"time"

	"gorm.io/gorm"
)

// MenuItem is soft deleted so past orders keep their lines.
type MenuItem struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"type:decimal(10,2);not null" json:"price"`
	StockQty    int            `gorm:"not null;default:0" json:"stock_qty"`
	IsAvailable bool           `gorm:"not null;index" json:"is_available"`
	Image       string         `gorm:"type:varchar(255)" json:"image,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (MenuItem) TableName() string { return "menu_items" }

// Orderable reports whether the item can be put in a cart right now.
func (m *MenuItem) Orderable() bool {
	return m.IsAvailable && m.StockQty > 0
}

type RawItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	StockQty    int       `gorm:"not null;default:0" json:"stock_qty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (RawItem) TableName() string { return "raw_items" }
