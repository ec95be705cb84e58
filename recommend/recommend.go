// Package recommend ranks menu items by popularity and, when history is
// thin, asks a language model for more suggestions.
package recommend

import (
	"context"
	"strings"

	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 5
	MaxLimit     = 50
	popularPool  = 20
)

type TopItem struct {
	ItemID        uint    `json:"item_id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	Image         string  `json:"image,omitempty"`
	IsAvailable   bool    `json:"is_available"`
	StockQty      int     `json:"stock_qty"`
	TotalQuantity int64   `json:"total_quantity"`
}

func (t TopItem) Orderable() bool { return t.IsAvailable && t.StockQty > 0 }

type HistoryEntry struct {
	ItemID        uint
	Name          string
	Description   string
	TotalQuantity int64
}

type Request struct {
	History    []HistoryEntry
	Candidates []models.MenuItem
	Limit      int
}

// Recommender returns item names picked from req.Candidates.
type Recommender interface {
	Suggest(ctx context.Context, req Request) ([]string, error)
}

type Service struct {
	DB          *gorm.DB
	Recommender Recommender
}

func NewService(db *gorm.DB, r Recommender) *Service {
	return &Service{DB: db, Recommender: r}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

const itemColumns = "menu_items.id, menu_items.name, menu_items.description, menu_items.price, menu_items.image, menu_items.is_available, menu_items.stock_qty"

// TopOrders ranks live menu items by total quantity ordered, ties broken by
// ascending id.
func (s *Service) TopOrders(ctx context.Context, limit int) ([]TopItem, error) {
	var out []TopItem
	err := s.DB.WithContext(ctx).Table("order_items").
		Select("menu_items.id AS item_id, menu_items.name AS name, menu_items.description AS description, " +
			"menu_items.price AS price, menu_items.image AS image, menu_items.is_available AS is_available, " +
			"menu_items.stock_qty AS stock_qty, SUM(order_items.quantity) AS total_quantity").
		Joins("JOIN menu_items ON menu_items.id = order_items.item_id").
		Where("menu_items.deleted_at IS NULL").
		Group(itemColumns).
		Order("total_quantity DESC, menu_items.id ASC").
		Limit(clampLimit(limit)).
		Scan(&out).Error
	return out, err
}

func (s *Service) history(ctx context.Context, userID uint) ([]HistoryEntry, error) {
	var out []HistoryEntry
	err := s.DB.WithContext(ctx).Table("order_items").
		Select("menu_items.id AS item_id, menu_items.name AS name, menu_items.description AS description, " +
			"SUM(order_items.quantity) AS total_quantity").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN menu_items ON menu_items.id = order_items.item_id").
		Where("orders.user_id = ?", userID).
		Group("menu_items.id, menu_items.name, menu_items.description").
		Order("total_quantity DESC, menu_items.id ASC").
		Scan(&out).Error
	return out, err
}

// UserRecommendations suggests items the user has not ordered yet. Users without history
// get the global top sellers. Popular unseen items come first; when there
// are not enough of them the Recommender fills the gap, and any failure
// there falls back to the popularity list alone.
func (s *Service) UserRecommendations(ctx context.Context, userID uint, limit int) ([]TopItem, error) {
	limit = clampLimit(limit)
	history, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return s.TopOrders(ctx, limit)
	}

	seen := make(map[uint]bool, len(history))
	for _, h := range history {
		seen[h.ItemID] = true
	}

	popular, err := s.TopOrders(ctx, popularPool)
	if err != nil {
		return nil, err
	}
	picks := make([]TopItem, 0, limit)
	for _, p := range popular {
		if !seen[p.ItemID] && p.Orderable() {
			picks = append(picks, p)
			seen[p.ItemID] = true
		}
		if len(picks) == limit {
			return picks, nil
		}
	}

	if s.Recommender == nil {
		return picks, nil
	}

	var candidates []models.MenuItem
	if err := s.DB.WithContext(ctx).Where("is_available = ? AND stock_qty > ?", true, 0).Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}
	byName := map[string]models.MenuItem{}
	unseen := candidates[:0]
	for _, c := range candidates {
		if seen[c.ID] {
			continue
		}
		unseen = append(unseen, c)
		byName[strings.ToLower(strings.TrimSpace(c.Name))] = c
	}
	if len(unseen) == 0 {
		return picks, nil
	}

	names, err := s.Recommender.Suggest(ctx, Request{History: history, Candidates: unseen, Limit: limit - len(picks)})
	if err != nil {
		utils.ErrorLogger.Warnf("recommender failed for user %d, using popularity only: %v", userID, err)
		return picks, nil
	}
	for _, name := range names {
		item, ok := byName[strings.ToLower(strings.TrimSpace(name))]
		if !ok || seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		picks = append(picks, TopItem{
			ItemID:      item.ID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Image:       item.Image,
			IsAvailable: item.IsAvailable,
			StockQty:    item.StockQty,
		})
		if len(picks) == limit {
			break
		}
	}
	return picks, nil
}
