package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsService struct {
	DB                *gorm.DB
	LowStockThreshold int
}

func NewAnalyticsService(db *gorm.DB, lowStockThreshold int) *AnalyticsService {
	return &AnalyticsService{DB: db, LowStockThreshold: lowStockThreshold}
}

type Dashboard struct {
	ActiveOrders   int64
	RevenueToday   float64
	OrdersToday    int64
	LowStock       []models.MenuItem
	RecentOrders   []models.Order
	Summaries      []models.SalesSummary
	TopItems       []models.ItemPerformance
	RecentFeedback []models.Feedback
	RecentActivity []models.UserActivity
	StatusChanges  []models.OrderStatusLog
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// Dashboard gathers the owner overview. Queries run concurrently on
// separate sessions of the same pool.
func (s *AnalyticsService) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	d := &Dashboard{}
	start, end := dayBounds(now)
	db := s.DB.WithContext(ctx)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.Model(&models.Order{}).Where("status IN ?", models.ActiveStatuses).Count(&d.ActiveOrders).Error
	})
	g.Go(func() error {
		var err error
		d.RevenueToday, d.OrdersToday, err = s.revenueBetween(db, start, end)
		return err
	})
	g.Go(func() error {
		return db.Where("stock_qty <= ?", s.LowStockThreshold).
			Order("stock_qty ASC, id ASC").Limit(10).Find(&d.LowStock).Error
	})
	g.Go(func() error {
		return withItems(db).Preload("User").Order("created_at DESC, id DESC").Limit(15).Find(&d.RecentOrders).Error
	})
	g.Go(func() error {
		return db.Preload("TopItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Order("date DESC").Limit(7).Find(&d.Summaries).Error
	})
	g.Go(func() error {
		return db.Preload("MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Order("total_sold DESC, item_id ASC").Limit(10).Find(&d.TopItems).Error
	})
	g.Go(func() error {
		return db.Preload("User").Preload("MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Order("created_at DESC, id DESC").Limit(10).Find(&d.RecentFeedback).Error
	})
	g.Go(func() error {
		return db.Preload("User").Preload("MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
			Order("created_at DESC, id DESC").Limit(15).Find(&d.RecentActivity).Error
	})
	g.Go(func() error {
		return db.Order("created_at DESC, id DESC").Limit(15).Find(&d.StatusChanges).Error
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// revenueBetween sums line totals of non-cancelled orders created in [start, end).
func (s *AnalyticsService) revenueBetween(db *gorm.DB, start, end time.Time) (float64, int64, error) {
	var row struct {
		Revenue sql.NullFloat64
		Orders  int64
	}
	err := db.Table("order_items").
		Select("SUM(order_items.price * order_items.quantity) AS revenue, COUNT(DISTINCT orders.id) AS orders").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.created_at >= ? AND orders.created_at < ? AND orders.status <> ?", start, end, models.OrderCancelled).
		Scan(&row).Error
	if err != nil {
		return 0, 0, err
	}
	return utils.RoundMoney(row.Revenue.Float64), row.Orders, nil
}

// RebuildDailySummary recomputes the sales_summary row for the day holding t.
func (s *AnalyticsService) RebuildDailySummary(ctx context.Context, t time.Time) (*models.SalesSummary, error) {
	start, end := dayBounds(t)

	var orders []models.Order
	err := s.DB.WithContext(ctx).Preload("Items").
		Where("created_at >= ? AND created_at < ? AND status <> ?", start, end, models.OrderCancelled).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	summary := models.SalesSummary{Date: datatypes.Date(start), TotalOrders: len(orders)}
	revenue := decimal.Zero
	hours := map[int]int{}
	sold := map[uint]int{}
	for _, o := range orders {
		hours[o.CreatedAt.In(t.Location()).Hour()]++
		for _, line := range o.Items {
			revenue = revenue.Add(decimal.NewFromFloat(line.Price).Mul(decimal.NewFromInt(int64(line.Quantity))))
			sold[line.ItemID] += line.Quantity
		}
	}
	summary.TotalRevenue = revenue.Round(2).InexactFloat64()
	if h, ok := argmax(hours); ok {
		summary.PeakHour = &h
	}
	if id, ok := argmax(sold); ok {
		summary.TopItemID = &id
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("date = ?", datatypes.Date(start)).Delete(&models.SalesSummary{}).Error; err != nil {
			return err
		}
		return tx.Create(&summary).Error
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// argmax picks the key with the highest count, the smallest key on ties.
func argmax[K int | uint](counts map[K]int) (K, bool) {
	var best K
	found := false
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if !found || counts[k] > counts[best] {
			best, found = k, true
		}
	}
	return best, found
}

// RebuildItemPerformance recomputes per item totals from all non-cancelled orders.
func (s *AnalyticsService) RebuildItemPerformance(ctx context.Context) (int, error) {
	type aggregate struct {
		ItemID  uint
		Sold    int
		Revenue float64
	}
	var rows []aggregate
	db := s.DB.WithContext(ctx)
	err := db.Table("order_items").
		Select("order_items.item_id AS item_id, SUM(order_items.quantity) AS sold, SUM(order_items.price * order_items.quantity) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", models.OrderCancelled).
		Group("order_items.item_id").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	for _, r := range rows {
		perf := models.ItemPerformance{
			ItemID:       r.ItemID,
			TotalSold:    r.Sold,
			TotalRevenue: utils.RoundMoney(r.Revenue),
		}

		var last []time.Time
		if err := db.Model(&models.Order{}).
			Joins("JOIN order_items ON order_items.order_id = orders.id").
			Where("order_items.item_id = ? AND orders.status <> ?", r.ItemID, models.OrderCancelled).
			Order("orders.created_at DESC").Limit(1).
			Pluck("orders.created_at", &last).Error; err != nil {
			return 0, err
		}
		if len(last) == 1 {
			perf.LastSoldAt = &last[0]
		}

		var avg sql.NullFloat64
		if err := db.Model(&models.Feedback{}).Select("AVG(rating)").Where("item_id = ?", r.ItemID).Scan(&avg).Error; err != nil {
			return 0, err
		}
		if avg.Valid {
			rating := utils.RoundMoney(avg.Float64)
			perf.AverageRating = &rating
		}

		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "item_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_sold", "total_revenue", "average_rating", "last_sold_at", "updated_at"}),
		}).Create(&perf).Error
		if err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

type UserStat struct {
	User        models.User
	OrdersCount int
	TotalSpent  float64
	LastOrderAt *time.Time
}

// UserStats lists every user with order count, spend and last order time,
// biggest spenders first.
func (s *AnalyticsService) UserStats(ctx context.Context) ([]UserStat, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Preload("Wallet").Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := s.DB.WithContext(ctx).Preload("Items").Where("status <> ?", models.OrderCancelled).Find(&orders).Error; err != nil {
		return nil, err
	}

	byUser := map[uint]*UserStat{}
	stats := make([]UserStat, len(users))
	for i, u := range users {
		stats[i] = UserStat{User: u}
		byUser[u.ID] = &stats[i]
	}
	for _, o := range orders {
		st, ok := byUser[o.UserID]
		if !ok {
			continue
		}
		st.OrdersCount++
		st.TotalSpent = utils.RoundMoney(st.TotalSpent + o.Total())
		if st.LastOrderAt == nil || o.CreatedAt.After(*st.LastOrderAt) {
			created := o.CreatedAt
			st.LastOrderAt = &created
		}
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].TotalSpent > stats[j].TotalSpent })
	return stats, nil
}

type UserSummary struct {
	Stat         UserStat
	RecentOrders []models.Order
	Favourites   []FavouriteItem
	Activity     []models.UserActivity
	Transactions []models.Transaction
}

type FavouriteItem struct {
	ItemID   uint
	Name     string
	Quantity int
}

// UserSummary is the per-user view shared by the student dashboard and the
// owner's user detail page.
func (s *AnalyticsService) UserSummary(ctx context.Context, userID uint) (*UserSummary, error) {
	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Preload("Wallet").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	var orders []models.Order
	if err := withItems(db).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}

	sum := &UserSummary{Stat: UserStat{User: user}}
	counts := map[uint]*FavouriteItem{}
	for i, o := range orders {
		if i < 10 {
			sum.RecentOrders = append(sum.RecentOrders, o)
		}
		if o.Status == models.OrderCancelled {
			continue
		}
		sum.Stat.OrdersCount++
		sum.Stat.TotalSpent = utils.RoundMoney(sum.Stat.TotalSpent + o.Total())
		if sum.Stat.LastOrderAt == nil {
			created := o.CreatedAt
			sum.Stat.LastOrderAt = &created
		}
		for _, line := range o.Items {
			fav, ok := counts[line.ItemID]
			if !ok {
				fav = &FavouriteItem{ItemID: line.ItemID, Name: line.MenuItem.Name}
				counts[line.ItemID] = fav
			}
			fav.Quantity += line.Quantity
		}
	}
	for _, fav := range counts {
		sum.Favourites = append(sum.Favourites, *fav)
	}
	sort.Slice(sum.Favourites, func(i, j int) bool {
		if sum.Favourites[i].Quantity != sum.Favourites[j].Quantity {
			return sum.Favourites[i].Quantity > sum.Favourites[j].Quantity
		}
		return sum.Favourites[i].ItemID < sum.Favourites[j].ItemID
	})
	if len(sum.Favourites) > 5 {
		sum.Favourites = sum.Favourites[:5]
	}

	if err := db.Preload("MenuItem", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(15).
		Find(&sum.Activity).Error; err != nil {
		return nil, err
	}
	if err := db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").Limit(15).
		Find(&sum.Transactions).Error; err != nil {
		return nil, err
	}
	return sum, nil
}

// AddFeedback stores a 1..5 rating for an item.
func (s *AnalyticsService) AddFeedback(ctx context.Context, userID, itemID uint, rating int, comments string) (*models.Feedback, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	db := s.DB.WithContext(ctx)
	var item models.MenuItem
	if err := db.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	fb := models.Feedback{UserID: userID, ItemID: itemID, Rating: rating, Comments: comments}
	if err := db.Create(&fb).Error; err != nil {
		return nil, err
	}
	RecordActivity(db, userID, &itemID, models.ActivityFeedback)
	return &fb, nil
}
