package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLoggerWithLevel("error")

	dsn := fmt.Sprintf("file:services_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createUser(t *testing.T, db *gorm.DB, phone, role string) models.User {
	t.Helper()
	u := models.User{Phone: phone, Name: "User " + phone, Role: role, PasswordHash: "x"}
	require.NoError(t, db.Create(&u).Error)
	require.NoError(t, db.Create(&models.Wallet{UserID: u.ID}).Error)
	return u
}

func createItem(t *testing.T, db *gorm.DB, name string, price float64, stock int) models.MenuItem {
	t.Helper()
	item := models.MenuItem{Name: name, Description: name + " of the day", Price: price, StockQty: stock, IsAvailable: true}
	require.NoError(t, db.Create(&item).Error)
	return item
}

func reloadItem(t *testing.T, db *gorm.DB, id uint) models.MenuItem {
	t.Helper()
	var item models.MenuItem
	require.NoError(t, db.Unscoped().First(&item, id).Error)
	return item
}

func newCheckout(db *gorm.DB, rec *notify.Recorder) *CheckoutService {
	var n notify.Notifier = notify.Noop{}
	if rec != nil {
		n = rec
	}
	return NewCheckoutService(db, n, NewCanteenSettings(true, ""), 0)
}

func placeOrder(t *testing.T, db *gorm.DB, userID uint, lines map[uint]int) *models.Order {
	t.Helper()
	state := cart.New()
	for id, qty := range lines {
		state.Set(id, qty, qty)
	}
	order, err := newCheckout(db, nil).Checkout(context.Background(), CheckoutRequest{UserID: userID, Cart: state})
	require.NoError(t, err)
	return order
}
