package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteenkart/config"
	"github.com/yeremiapane/canteenkart/database"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/router"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/storage"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	utils.InitLoggerWithLevel("error")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// TestEndToEndIntegration walks the main flow:
// 0. seed an owner, a student and the menu
// 1. the student fills a cart and checks out
// 2. the owner moves the order to preparing and ready
// 3. the student polls the status over the API
// 4. the owner scans the pickup token
func TestEndToEndIntegration(t *testing.T) {
	db := setupTestDB(t)
	cfg := config.Default()
	cfg.Storage.UploadDir = t.TempDir()
	utils.SetJWTSecret("integration-secret", cfg.JWTTTL)

	events := &notify.Recorder{}
	r, err := router.SetupRouter(db, router.Options{
		Config:   cfg,
		Notifier: events,
		Images:   storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.URLPrefix),
	})
	require.NoError(t, err)

	menu := seedMenu(t, db)

	student := newClient(r)
	student.loginTest(t, "9000000002")
	orderID, token := checkoutTest(t, db, student, menu)

	owner := newClient(r)
	owner.loginTest(t, "9000000001")
	for _, status := range []string{models.OrderPreparing, models.OrderReady} {
		w := owner.postForm(fmt.Sprintf("/owner/orders/%d/status", orderID), url.Values{"status": {status}})
		require.Equal(t, http.StatusFound, w.Code)
	}

	apiToken := apiTokenTest(t, r, "9000000002")
	assert.Equal(t, models.OrderReady, apiStatusTest(t, r, orderID, apiToken))

	w := owner.postForm("/owner/scanner", url.Values{"token": {token}})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, models.OrderCompleted, apiStatusTest(t, r, orderID, apiToken))

	var item models.MenuItem
	require.NoError(t, db.First(&item, menu["Masala dosa"]).Error)
	assert.Equal(t, 8, item.StockQty)

	names := make([]string, 0)
	for _, ev := range events.Events() {
		names = append(names, ev.Name+":"+ev.Status)
	}
	assert.Equal(t, []string{
		"new_order:pending",
		"order_update:preparing",
		"order_update:ready",
		"order_update:completed",
	}, names)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	auth := services.NewAuthService(db)
	_, _, err = auth.EnsureOwner(context.Background(), "9000000001", "Owner", "secret123")
	require.NoError(t, err)
	_, err = auth.Register(context.Background(), services.RegisterInput{
		Phone: "9000000002", Name: "Ravi", Password: "secret123", ConfirmPassword: "secret123",
	})
	require.NoError(t, err)
	return db
}

func seedMenu(t *testing.T, db *gorm.DB) map[string]uint {
	items := []models.MenuItem{
		{Name: "Masala dosa", Price: 45, StockQty: 10, IsAvailable: true},
		{Name: "Filter coffee", Price: 15, StockQty: 40, IsAvailable: true},
	}
	require.NoError(t, db.Create(&items).Error)
	ids := map[string]uint{}
	for _, item := range items {
		ids[item.Name] = item.ID
	}
	return ids
}

type client struct {
	r       *gin.Engine
	cookies []*http.Cookie
}

func newClient(r *gin.Engine) *client {
	return &client{r: r}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	if set := w.Result().Cookies(); len(set) > 0 {
		c.cookies = set
	}
	return w
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) loginTest(t *testing.T, phone string) {
	w := c.postForm("/auth/login", url.Values{"phone": {phone}, "password": {"secret123"}})
	require.Equal(t, http.StatusFound, w.Code, "login failed")
}

func checkoutTest(t *testing.T, db *gorm.DB, c *client, menu map[string]uint) (uint, string) {
	w := c.postForm(fmt.Sprintf("/cart/add/%d", menu["Masala dosa"]), url.Values{"quantity": {"2"}})
	require.Equal(t, http.StatusFound, w.Code)
	w = c.postForm(fmt.Sprintf("/cart/add/%d", menu["Filter coffee"]), url.Values{})
	require.Equal(t, http.StatusFound, w.Code)

	w = c.postForm("/checkout", url.Values{})
	require.Equal(t, http.StatusFound, w.Code)
	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/order_status/"), location)

	var orderID uint
	_, err := fmt.Sscanf(location, "/order_status/%d", &orderID)
	require.NoError(t, err)

	page := c.do(httptest.NewRequest(http.MethodGet, location, nil))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "₹105.00")

	var order models.Order
	require.NoError(t, db.First(&order, orderID).Error)
	return orderID, order.TokenCode
}

func apiTokenTest(t *testing.T, r *gin.Engine, phone string) string {
	body, _ := json.Marshal(map[string]string{"phone": phone, "password": "secret123"})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func apiStatusTest(t *testing.T, r *gin.Engine, orderID uint, token string) string {
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/orders/%d/status", orderID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.Status
}
