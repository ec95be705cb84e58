package models

import "time"

const (
	TxnTopUp      = "topup"
	TxnAdjustment = "adjustment"
	TxnDebit      = "debit"
)

type Wallet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance   float64   `gorm:"type:decimal(10,2);not null;default:0" json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string { return "wallet" }

type Transaction struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	TxnType   string    `gorm:"type:varchar(20);not null" json:"txn_type"`
	Note      string    `gorm:"type:varchar(255)" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

func (Transaction) TableName() string { return "transactions" }
