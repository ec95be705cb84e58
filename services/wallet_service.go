package services

import (
	"context"
	"errors"
	"math"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletService struct {
	DB *gorm.DB
}

func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{DB: db}
}

// Adjust credits (positive) or debits (negative) a user's wallet and records
// the transaction. The balance never goes below zero.
func (s *WalletService) Adjust(ctx context.Context, userID uint, amount float64, note string) (*models.Wallet, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, ErrInvalidAmount
	}
	delta := decimal.NewFromFloat(amount).Round(2)
	if delta.IsZero() {
		return nil, ErrZeroAmount
	}

	var wallet models.Wallet
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&wallet).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			wallet = models.Wallet{UserID: userID}
			err = tx.Create(&wallet).Error
		}
		if err != nil {
			return err
		}

		balance := decimal.NewFromFloat(wallet.Balance).Add(delta)
		if balance.IsNegative() {
			return ErrInsufficientFunds
		}
		wallet.Balance = balance.Round(2).InexactFloat64()
		if err := tx.Model(&wallet).Update("balance", wallet.Balance).Error; err != nil {
			return err
		}

		txnType := models.TxnTopUp
		if delta.IsNegative() {
			txnType = models.TxnAdjustment
		}
		return tx.Create(&models.Transaction{
			UserID:  userID,
			Amount:  delta.InexactFloat64(),
			TxnType: txnType,
			Note:    note,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Infof("Wallet of user %d adjusted by %s", userID, delta.StringFixed(2))
	return &wallet, nil
}

func (s *WalletService) Transactions(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var txns []models.Transaction
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&txns).Error
	return txns, err
}
