package controllers_test

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/canteenkart/cart"
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

const (
	ownerPhone   = "9000000001"
	studentPhone = "9000000002"
	password     = "secret123"
)

var dbSeq int64

type app struct {
	t        *testing.T
	r        *gin.Engine
	db       *gorm.DB
	events   *notify.Recorder
	settings *services.CanteenSettings
	cfg      *config.Config
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.InitLoggerWithLevel("error")

	dsn := fmt.Sprintf("file:controllers_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), atomic.AddInt64(&dbSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	cfg := config.Default()
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.URLPrefix = "/static/uploads"

	a := &app{
		t:        t,
		db:       db,
		events:   &notify.Recorder{},
		settings: services.NewCanteenSettings(true, ""),
		cfg:      cfg,
	}
	a.r, err = router.SetupRouter(db, router.Options{
		Config:   cfg,
		Notifier: a.events,
		Images:   storage.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.URLPrefix),
		Settings: a.settings,
	})
	require.NoError(t, err)
	return a
}

func (a *app) createStudent(phone string) *models.User {
	a.t.Helper()
	user, err := services.NewAuthService(a.db).Register(context.Background(), services.RegisterInput{
		Phone: phone, Name: "Student " + phone, Password: password, ConfirmPassword: password,
	})
	require.NoError(a.t, err)
	return user
}

func (a *app) createOwner() *models.User {
	a.t.Helper()
	user, _, err := services.NewAuthService(a.db).EnsureOwner(context.Background(), ownerPhone, "Owner", password)
	require.NoError(a.t, err)
	return user
}

func (a *app) createItem(name string, price float64, stock int) *models.MenuItem {
	a.t.Helper()
	item := &models.MenuItem{Name: name, Description: name + " fresh", Price: price, StockQty: stock, IsAvailable: true}
	require.NoError(a.t, a.db.Create(item).Error)
	return item
}

func (a *app) item(id uint) models.MenuItem {
	a.t.Helper()
	var item models.MenuItem
	require.NoError(a.t, a.db.Unscoped().First(&item, id).Error)
	return item
}

func (a *app) orderCount() int64 {
	var n int64
	require.NoError(a.t, a.db.Model(&models.Order{}).Count(&n).Error)
	return n
}

// browser carries the session cookie between requests.
type browser struct {
	a       *app
	cookies map[string]*http.Cookie
}

func (a *app) browser() *browser {
	return &browser{a: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) send(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.a.r.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.send(httptest.NewRequest(http.MethodGet, target, nil))
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.send(req)
}

func (b *browser) upload(target string, fields map[string]string, file string, data []byte) *httptest.ResponseRecorder {
	b.a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(b.a.t, mw.WriteField(k, v))
	}
	if data != nil {
		fw, err := mw.CreateFormFile("image", file)
		require.NoError(b.a.t, err)
		_, err = io.Copy(fw, bytes.NewReader(data))
		require.NoError(b.a.t, err)
	}
	require.NoError(b.a.t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return b.send(req)
}

// follow requests the redirect target of w.
func (b *browser) follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.a.t.Helper()
	require.Equal(b.a.t, http.StatusFound, w.Code, w.Body.String())
	return b.get(w.Header().Get("Location"))
}

func (b *browser) login(phone string) {
	b.a.t.Helper()
	w := b.post("/auth/login", url.Values{"phone": {phone}, "password": {password}})
	require.Equal(b.a.t, http.StatusFound, w.Code)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func itoa(id uint) string {
	return fmt.Sprintf("%d", id)
}

// placeOrder checks out lines for userID through the service layer.
func (a *app) placeOrder(userID uint, lines map[uint]int) *models.Order {
	a.t.Helper()
	state := cart.New()
	for id, qty := range lines {
		state.Set(id, qty, qty)
	}
	order, err := services.NewCheckoutService(a.db, notify.Noop{}, a.settings, 0).
		Checkout(context.Background(), services.CheckoutRequest{UserID: userID, Cart: state})
	require.NoError(a.t, err)
	return order
}
