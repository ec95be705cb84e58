package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
)

// statusRank orders the forward path; cancelled sits outside it.
var statusRank = map[string]int{
	OrderPending:   0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderCompleted: 3,
}

// ActiveStatuses are the states an order can be in before pickup.
var ActiveStatuses = []string{OrderPending, OrderPreparing, OrderReady}

var AllStatuses = []string{OrderPending, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled}

func ValidStatus(s string) bool {
	_, ok := statusRank[s]
	return ok || s == OrderCancelled
}

func IsTerminalStatus(s string) bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransition allows forward moves along
// pending -> preparing -> ready -> completed (skips included) and
// cancellation from any non-terminal state.
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) || IsTerminalStatus(from) {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

type Order struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	UserID     uint        `gorm:"index;not null" json:"user_id"`
	User       User        `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Status     string      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	PickupSlot *time.Time  `json:"pickup_slot,omitempty"`
	TokenCode  string      `gorm:"type:varchar(16);not null;index" json:"token_code"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
	Items      []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) IsTerminal() bool { return IsTerminalStatus(o.Status) }

// Total sums the snapshotted line prices.
func (o *Order) Total() float64 {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.subtotal())
	}
	return total.Round(2).InexactFloat64()
}

func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
