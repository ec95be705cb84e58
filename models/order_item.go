package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID       uint     `gorm:"primaryKey" json:"id"`
	OrderID  uint     `gorm:"index;not null" json:"order_id"`
	Order    Order    `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	ItemID   uint     `gorm:"index;not null" json:"item_id"`
	MenuItem MenuItem `gorm:"foreignKey:ItemID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"menu_item"`
	Quantity int      `gorm:"not null" json:"quantity"`
	// Price is the unit price at checkout time.
	Price     float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *OrderItem) Subtotal() float64 {
	return i.subtotal().Round(2).InexactFloat64()
}
