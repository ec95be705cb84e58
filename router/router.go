package router

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/config"
	"github.com/yeremiapane/canteenkart/controllers"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/notify"
	"github.com/yeremiapane/canteenkart/realtime"
	"github.com/yeremiapane/canteenkart/recommend"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/storage"
	"github.com/yeremiapane/canteenkart/templates"
	"gorm.io/gorm"
)

// Options carries the collaborators of the router. Zero fields get local
// defaults: a fresh hub that also serves as notifier, disk image storage,
// popularity-only recommendations and settings from the config.
type Options struct {
	Config      *config.Config
	Hub         *realtime.Hub
	Notifier    notify.Notifier
	Recommender recommend.Recommender
	Images      storage.ImageStore
	Settings    *services.CanteenSettings
	Now         func() time.Time
}

func (o *Options) defaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Hub == nil {
		o.Hub = realtime.NewHub()
	}
	if o.Notifier == nil {
		o.Notifier = o.Hub
	}
	if o.Images == nil {
		o.Images = storage.NewLocalStore(o.Config.Storage.UploadDir, o.Config.Storage.URLPrefix)
	}
	if o.Settings == nil {
		o.Settings = services.NewCanteenSettings(o.Config.Canteen.Open, o.Config.Canteen.Announcement)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

var imageSuffixes = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// uploadsOnlyImages refuses anything under prefix that is not an image file.
func uploadsOnlyImages(prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := strings.ToLower(c.Request.URL.Path)
		if strings.HasPrefix(p, prefix+"/") {
			ok := false
			for _, suffix := range imageSuffixes {
				if strings.HasSuffix(p, suffix) {
					ok = true
					break
				}
			}
			if !ok {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}
		c.Next()
	}
}

func SetupRouter(db *gorm.DB, opts Options) (*gin.Engine, error) {
	opts.defaults()
	cfg := opts.Config

	r := gin.New()
	tmpl, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	// services
	checkout := services.NewCheckoutService(db, opts.Notifier, opts.Settings, cfg.Canteen.StudentDiscount)
	checkout.Now = opts.Now
	orders := services.NewOrderService(db, opts.Notifier)
	orders.Now = opts.Now
	auth := services.NewAuthService(db)
	analytics := services.NewAnalyticsService(db, cfg.Canteen.LowStockThreshold)
	wallets := services.NewWalletService(db)
	tickets := services.NewTicketService(cfg.BaseURL)
	recs := recommend.NewService(db, opts.Recommender)

	view := controllers.NewView(opts.Settings, cart.NewSessionStore())

	// controllers
	authCtrl := controllers.NewAuthController(view, auth)
	menuCtrl := controllers.NewMenuController(view, db, recs, opts.Images, cfg.Storage.MaxBytes)
	cartCtrl := controllers.NewCartController(view, db, checkout)
	orderCtrl := controllers.NewOrderController(view, orders)
	ticketCtrl := controllers.NewTicketController(orderCtrl, tickets)
	ownerCtrl := controllers.NewOwnerController(view, db, analytics, wallets, auth)
	ownerCtrl.Now = opts.Now
	userCtrl := controllers.NewUserController(view, auth, analytics, recs)
	recCtrl := controllers.NewRecommendationController(recs)
	rtCtrl := controllers.NewRealtimeController(opts.Hub)

	r.Use(middlewares.LoggerMiddleware())
	r.Use(middlewares.Session(cfg.SessionSecret, cfg.SessionSecure))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		view.ServerError(c, fmt.Errorf("panic: %v", recovered))
		c.Abort()
	}))
	r.Use(middlewares.SecurityHeaders(cfg.SessionSecure))
	r.Use(middlewares.Authenticate())
	if len(cfg.CORSOrigins) > 0 {
		// global so that preflight requests to unrouted OPTIONS still get answered
		apiCORS := middlewares.CORS(cfg.CORSOrigins)
		r.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				apiCORS(c)
			}
		})
	}

	if cfg.Storage.S3Bucket == "" && cfg.Storage.URLPrefix != "" {
		prefix := path.Clean("/" + cfg.Storage.URLPrefix)
		r.Use(uploadsOnlyImages(strings.ToLower(prefix)))
		r.Static(prefix, cfg.Storage.UploadDir)
	}

	r.NoRoute(view.NotFound)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/menu")
	})

	limiter := middlewares.NewRateLimiter(cfg.AuthRatePerMin)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/menu", menuCtrl.Menu)

	r.GET("/cart", cartCtrl.ShowCart)
	r.POST("/cart/add/:id", cartCtrl.Add)
	r.POST("/cart/update/:id", cartCtrl.Update)
	r.POST("/cart/remove/:id", cartCtrl.Remove)

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/login", authCtrl.LoginPage)
		authGroup.POST("/login", limiter.Limit(), authCtrl.Login)
		authGroup.GET("/register", authCtrl.RegisterPage)
		authGroup.POST("/register", limiter.Limit(), authCtrl.Register)
		authGroup.GET("/logout", authCtrl.Logout)
	}

	// ----------------------------------------------------------------
	//                      LOGGED IN ROUTES
	// ----------------------------------------------------------------
	member := r.Group("/")
	member.Use(middlewares.RequireLogin())
	{
		member.GET("/checkout", cartCtrl.CheckoutPage)
		member.POST("/checkout", cartCtrl.PlaceOrder)

		member.GET("/order_status/:id", orderCtrl.Status)
		member.GET("/order_status/:id/qr.png", ticketCtrl.QRCode)
		member.GET("/order_status/:id/ticket.pdf", ticketCtrl.PDF)

		member.GET("/orders/history", orderCtrl.History)
		member.POST("/orders/:id/reorder", orderCtrl.Reorder)

		member.GET("/dashboard", userCtrl.Dashboard)
		member.GET("/profile", userCtrl.ProfilePage)
		member.POST("/profile", userCtrl.UpdateProfile)
		member.POST("/feedback/:item_id", userCtrl.Feedback)

		member.GET("/ws", rtCtrl.Connect)
	}

	// ----------------------------------------------------------------
	//                      OWNER ROUTES
	// ----------------------------------------------------------------
	owner := r.Group("/owner")
	owner.Use(middlewares.RequireRole(models.RoleOwner))
	{
		owner.GET("/dashboard", ownerCtrl.Dashboard)
		owner.POST("/open", ownerCtrl.SetOpen)
		owner.POST("/announcement", ownerCtrl.SetAnnouncement)

		owner.GET("/menu", menuCtrl.OwnerMenu)
		owner.POST("/menu/add", menuCtrl.AddItem)
		owner.POST("/menu/edit/:id", menuCtrl.EditItem)
		owner.POST("/menu/delete/:id", menuCtrl.DeleteItem)

		owner.GET("/orders", orderCtrl.OwnerOrders)
		owner.POST("/orders/:id/status", orderCtrl.UpdateStatus)
		owner.GET("/scanner", orderCtrl.ScannerPage)
		owner.POST("/scanner", orderCtrl.Scan)

		owner.GET("/stock", ownerCtrl.Stock)
		owner.POST("/stock/update/:id", ownerCtrl.StockUpdate)
		owner.POST("/stock/auto_disable", ownerCtrl.AutoDisable)

		owner.GET("/raw", ownerCtrl.RawItems)
		owner.POST("/raw/add", ownerCtrl.RawAdd)
		owner.POST("/raw/edit/:id", ownerCtrl.RawEdit)
		owner.POST("/raw/delete/:id", ownerCtrl.RawDelete)

		owner.GET("/users", ownerCtrl.Users)
		owner.GET("/users/:id", ownerCtrl.UserDetail)
		owner.POST("/users/:id/verify_email", ownerCtrl.VerifyEmail)
		owner.POST("/users/:id/wallet", ownerCtrl.WalletAdjust)

		owner.GET("/reports/sales.xlsx", ownerCtrl.SalesExport)
		owner.GET("/reports/revenue.png", ownerCtrl.RevenueChart)
		owner.POST("/analytics/rebuild", ownerCtrl.RebuildAnalytics)
	}

	// ----------------------------------------------------------------
	//                      JSON API
	// ----------------------------------------------------------------
	api := r.Group("/api")
	{
		api.POST("/auth/token", limiter.Limit(), authCtrl.APIToken)
		api.GET("/menu", menuCtrl.APIMenu)
		api.GET("/recommendations/top", recCtrl.Top)
	}
	apiAuth := api.Group("/")
	apiAuth.Use(middlewares.APIRequireLogin())
	{
		apiAuth.GET("/orders/:id/status", orderCtrl.APIStatus)
		apiAuth.GET("/recommendations", recCtrl.ForUser)
	}

	return r, nil
}
