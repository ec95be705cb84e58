package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderService struct {
	DB       *gorm.DB
	Notifier notify.Notifier
	Now      func() time.Time
}

func NewOrderService(db *gorm.DB, n notify.Notifier) *OrderService {
	if n == nil {
		n = notify.Noop{}
	}
	return &OrderService{DB: db, Notifier: n, Now: time.Now}
}

// withItems preloads lines and their menu items, deleted ones included.
func withItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("order_items.id ASC")
	}).Preload("Items.MenuItem", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	})
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := withItems(s.DB.WithContext(ctx)).Preload("User").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// GetForViewer hides orders that belong to someone else behind ErrOrderNotFound.
func (s *OrderService) GetForViewer(ctx context.Context, id, viewerID uint, role string) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != models.RoleOwner && order.UserID != viewerID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListActive returns pending, preparing and ready orders oldest first. A
// non-empty status narrows the list to that status.
func (s *OrderService) ListActive(ctx context.Context, status string) ([]models.Order, error) {
	statuses := models.ActiveStatuses
	if status != "" {
		if !models.ValidStatus(status) {
			return nil, ErrInvalidStatus
		}
		statuses = []string{status}
	}
	var orders []models.Order
	err := withItems(s.DB.WithContext(ctx)).Preload("User").
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

func (s *OrderService) History(ctx context.Context, userID uint, limit int) ([]models.Order, error) {
	var orders []models.Order
	q := withItems(s.DB.WithContext(ctx)).Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&orders).Error
	return orders, err
}

// UpdateStatus moves an order along its lifecycle and logs the change.
// Setting the current status again is a no-op.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status, changedBy string) (*models.Order, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	var order models.Order
	changed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}
		if order.Status == status {
			return nil
		}
		if !models.CanTransition(order.Status, status) {
			return ErrInvalidTransition
		}
		changed = true
		return s.applyStatus(tx, &order, status, changedBy)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.announce(ctx, &order)
	}
	return s.Get(ctx, order.ID)
}

// MarkCollected closes the open order holding token. The raw value may be
// the bare token or the JSON payload printed in the ticket QR code.
func (s *OrderService) MarkCollected(ctx context.Context, raw, changedBy string) (*models.Order, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(token, "{") {
		if payload, err := ParseTicketPayload(raw); err == nil {
			token = strings.ToLower(payload.Token)
		}
	}
	if token == "" {
		return nil, ErrTokenRequired
	}

	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_code = ? AND status IN ?", token, models.ActiveStatuses).
			Order("id DESC").
			First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			var closed models.Order
			if tx.Where("token_code = ?", token).Order("id DESC").First(&closed).Error == nil {
				order = closed
				return ErrOrderClosed
			}
			return ErrTokenNotFound
		}
		if err != nil {
			return err
		}
		return s.applyStatus(tx, &order, models.OrderCompleted, changedBy)
	})
	if err != nil {
		if errors.Is(err, ErrOrderClosed) {
			return &order, err
		}
		return nil, err
	}
	s.announce(ctx, &order)
	return s.Get(ctx, order.ID)
}

func (s *OrderService) applyStatus(tx *gorm.DB, order *models.Order, status, changedBy string) error {
	old := order.Status
	if err := tx.Model(order).Update("status", status).Error; err != nil {
		return err
	}
	order.Status = status
	return tx.Create(&models.OrderStatusLog{
		OrderID:   order.ID,
		OldStatus: old,
		NewStatus: status,
		ChangedBy: changedBy,
	}).Error
}

func (s *OrderService) announce(ctx context.Context, order *models.Order) {
	utils.InfoLogger.Infof("Order %d is now %s", order.ID, order.Status)
	s.Notifier.Notify(ctx, notify.Event{
		Name:      notify.EventOrderUpdate,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Token:     order.TokenCode,
		Timestamp: s.Now(),
	})
}

// Reorder builds a fresh cart from a past order of the user. Items that are
// gone or unavailable are left out and quantities are capped by stock.
func (s *OrderService) Reorder(ctx context.Context, orderID, userID uint) (cart.State, int, error) {
	order, err := s.GetForViewer(ctx, orderID, userID, models.RoleStudent)
	if err != nil {
		return nil, 0, err
	}

	state := cart.New()
	skipped := 0
	for _, line := range order.Items {
		var item models.MenuItem
		if err := s.DB.WithContext(ctx).First(&item, line.ItemID).Error; err != nil || !item.Orderable() {
			skipped++
			continue
		}
		state.Add(item.ID, line.Quantity, item.StockQty)
	}
	RecordActivity(s.DB.WithContext(ctx), userID, nil, models.ActivityReorder)
	return state, skipped, nil
}

func (s *OrderService) StatusLog(ctx context.Context, orderID uint) ([]models.OrderStatusLog, error) {
	var logs []models.OrderStatusLog
	err := s.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&logs).Error
	return logs, err
}
