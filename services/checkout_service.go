package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const tokenAttempts = 5

type CheckoutService struct {
	DB           *gorm.DB
	Notifier     notify.Notifier
	Settings     *CanteenSettings
	DiscountRate float64
	Now          func() time.Time
}

func NewCheckoutService(db *gorm.DB, n notify.Notifier, settings *CanteenSettings, discountRate float64) *CheckoutService {
	if n == nil {
		n = notify.Noop{}
	}
	return &CheckoutService{DB: db, Notifier: n, Settings: settings, DiscountRate: discountRate, Now: time.Now}
}

type CheckoutRequest struct {
	UserID     uint
	Cart       cart.State
	PickupSlot *time.Time
}

// DiscountFor returns the rate that applies to user.
func DiscountFor(user *models.User, rate float64) float64 {
	if user == nil || rate <= 0 || !user.EligibleForStudentDiscount() {
		return 0
	}
	return rate
}

// Checkout turns the cart into an order in one transaction. Each line is
// clamped to the stock left when its row is locked; unknown, unavailable or
// sold out items are skipped. If nothing remains no order is written.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*models.Order, error) {
	entries := req.Cart.Entries()
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}
	if req.UserID == 0 {
		return nil, ErrNotAuthenticated
	}
	if s.Settings != nil && !s.Settings.IsOpen() {
		return nil, ErrCanteenClosed
	}
	if req.PickupSlot != nil && req.PickupSlot.Before(s.Now()) {
		return nil, ErrInvalidPickupSlot
	}

	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, err
	}
	rate := DiscountFor(&user, s.DiscountRate)

	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, err := uniqueToken(tx)
		if err != nil {
			return err
		}

		order = models.Order{
			UserID:     user.ID,
			Status:     models.OrderPending,
			PickupSlot: req.PickupSlot,
			TokenCode:  token,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, e := range entries {
			var item models.MenuItem
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, e.ItemID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !item.Orderable() {
				continue
			}

			qty := e.Quantity
			if qty > item.StockQty {
				qty = item.StockQty
			}
			line := models.OrderItem{
				OrderID:  order.ID,
				ItemID:   item.ID,
				Quantity: qty,
				Price:    cart.UnitPrice(item.Price, rate),
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
			if err := tx.Model(&item).Update("stock_qty", item.StockQty-qty).Error; err != nil {
				return err
			}
			line.MenuItem = item
			line.MenuItem.StockQty -= qty
			order.Items = append(order.Items, line)
		}

		if len(order.Items) == 0 {
			return ErrNoAvailableItems
		}

		if err := tx.Create(&models.OrderStatusLog{
			OrderID:   order.ID,
			NewStatus: models.OrderPending,
			ChangedBy: "checkout",
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserActivity{UserID: user.ID, Action: models.ActivityCheckout}).Error
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.Infof("Order %d placed by user %d with %d line(s), token %s", order.ID, user.ID, len(order.Items), order.TokenCode)
	s.Notifier.Notify(ctx, notify.Event{
		Name:      notify.EventNewOrder,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Token:     order.TokenCode,
		Timestamp: s.Now(),
	})
	return &order, nil
}

// uniqueToken draws a 6 hex char pickup token not used by any open order.
func uniqueToken(tx *gorm.DB) (string, error) {
	for i := 0; i < tokenAttempts; i++ {
		token, err := newToken()
		if err != nil {
			return "", err
		}
		var count int64
		err = tx.Model(&models.Order{}).
			Where("token_code = ? AND status NOT IN ?", token, []string{models.OrderCompleted, models.OrderCancelled}).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return token, nil
		}
	}
	return "", fmt.Errorf("could not allocate a unique pickup token after %d attempts", tokenAttempts)
}

func newToken() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ParsePickupSlot accepts "2006-01-02T15:04" or a bare "15:04" meaning today.
// An empty string means no slot.
func ParsePickupSlot(raw string, now time.Time) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", raw, now.Location()); err == nil {
		return &t, nil
	}
	if t, err := time.ParseInLocation("15:04", raw, now.Location()); err == nil {
		slot := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		return &slot, nil
	}
	return nil, &CustomError{"Pickup slot must look like 13:30"}
}
