package models

import (
	"time"

	"gorm.io/datatypes"
)

type SalesSummary struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Date         datatypes.Date `gorm:"uniqueIndex;not null" json:"date"`
	TotalOrders  int            `gorm:"not null;default:0" json:"total_orders"`
	TotalRevenue float64        `gorm:"type:decimal(10,2);not null;default:0" json:"total_revenue"`
	PeakHour     *int           `json:"peak_hour,omitempty"`
	TopItemID    *uint          `json:"top_item_id,omitempty"`
	TopItem      *MenuItem      `gorm:"foreignKey:TopItemID;references:ID;constraint:OnDelete:SET NULL" json:"top_item,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (SalesSummary) TableName() string { return "sales_summary" }

type ItemPerformance struct {
	ItemID        uint       `gorm:"primaryKey;autoIncrement:false" json:"item_id"`
	MenuItem      MenuItem   `gorm:"foreignKey:ItemID;references:ID;constraint:OnDelete:CASCADE" json:"menu_item"`
	TotalSold     int        `gorm:"not null;default:0" json:"total_sold"`
	TotalRevenue  float64    `gorm:"type:decimal(10,2);not null;default:0" json:"total_revenue"`
	AverageRating *float64   `json:"average_rating,omitempty"`
	LastSoldAt    *time.Time `json:"last_sold_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (ItemPerformance) TableName() string { return "item_performance" }

type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	ItemID    uint      `gorm:"index;not null" json:"item_id"`
	MenuItem  MenuItem  `gorm:"foreignKey:ItemID;references:ID;constraint:OnDelete:CASCADE" json:"menu_item"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comments  string    `gorm:"type:text" json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

func (Feedback) TableName() string { return "feedback" }

const (
	ActivityView      = "view"
	ActivityAddToCart = "add_to_cart"
	ActivityCheckout  = "checkout"
	ActivityReorder   = "reorder"
	ActivityFeedback  = "feedback"
	ActivityLogin     = "login"
)

type UserActivity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	ItemID    *uint     `gorm:"index" json:"item_id,omitempty"`
	MenuItem  *MenuItem `gorm:"foreignKey:ItemID;references:ID;constraint:OnDelete:SET NULL" json:"menu_item,omitempty"`
	Action    string    `gorm:"type:varchar(50);not null" json:"action"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (UserActivity) TableName() string { return "user_activity" }

type OrderStatusLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"index;not null" json:"order_id"`
	Order     Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	OldStatus string    `gorm:"type:varchar(20)" json:"old_status"`
	NewStatus string    `gorm:"type:varchar(20);not null" json:"new_status"`
	ChangedBy string    `gorm:"type:varchar(100)" json:"changed_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (OrderStatusLog) TableName() string { return "order_status_log" }
