package controllers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
)

const (
	dateLayout       = "2006-01-02"
	exportWindowDays = 30
	transactionLimit = 20
)

type OwnerController struct {
	*View
	DB        *gorm.DB
	Analytics *services.AnalyticsService
	Wallets   *services.WalletService
	Auth      *services.AuthService
	Now       func() time.Time
}

func NewOwnerController(view *View, db *gorm.DB, analytics *services.AnalyticsService, wallets *services.WalletService, auth *services.AuthService) *OwnerController {
	return &OwnerController{View: view, DB: db, Analytics: analytics, Wallets: wallets, Auth: auth, Now: time.Now}
}

func (oc *OwnerController) Dashboard(c *gin.Context) {
	d, err := oc.Analytics.Dashboard(c.Request.Context(), oc.Now())
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "owner_dashboard.html", gin.H{
		"Title":     "Owner dashboard",
		"Dashboard": d,
		"Threshold": oc.Analytics.LowStockThreshold,
	})
}

func (oc *OwnerController) SetOpen(c *gin.Context) {
	open := formBool(c, "open")
	oc.Settings.SetOpen(open)
	utils.InfoLogger.WithField("open", open).Info("canteen open flag changed")
	if open {
		middlewares.FlashRedirect(c, "success", "Canteen is now open", "/owner/dashboard")
		return
	}
	middlewares.FlashRedirect(c, "info", "Canteen is now closed. New orders are refused", "/owner/dashboard")
}

func (oc *OwnerController) SetAnnouncement(c *gin.Context) {
	text := strings.TrimSpace(c.PostForm("announcement"))
	oc.Settings.SetAnnouncement(text)
	if text == "" {
		middlewares.FlashRedirect(c, "info", "Announcement cleared", "/owner/dashboard")
		return
	}
	middlewares.FlashRedirect(c, "success", "Announcement published", "/owner/dashboard")
}

func (oc *OwnerController) Stock(c *gin.Context) {
	var items []models.MenuItem
	if err := oc.DB.WithContext(c.Request.Context()).Order("stock_qty ASC, name ASC").Find(&items).Error; err != nil {
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "owner_stock.html", gin.H{
		"Title":     "Stock",
		"Items":     items,
		"Threshold": oc.Analytics.LowStockThreshold,
	})
}

// StockUpdate sets the stock of a menu item. Zero stock also takes the
// item off the menu.
func (oc *OwnerController) StockUpdate(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	qty, err := strconv.Atoi(strings.TrimSpace(c.PostForm("stock_qty")))
	if err != nil {
		middlewares.FlashRedirect(c, "warning", "Stock must be a whole number", "/owner/stock")
		return
	}
	if qty < 0 {
		qty = 0
	}

	var item models.MenuItem
	if err := oc.DB.WithContext(c.Request.Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			oc.NotFound(c)
			return
		}
		oc.ServerError(c, err)
		return
	}

	updates := map[string]interface{}{"stock_qty": qty}
	if qty == 0 {
		updates["is_available"] = false
	} else if c.PostForm("is_available") != "" {
		updates["is_available"] = formBool(c, "is_available")
	}
	if err := oc.DB.WithContext(c.Request.Context()).Model(&item).Updates(updates).Error; err != nil {
		oc.ServerError(c, err)
		return
	}

	msg := fmt.Sprintf("%s stock set to %d", item.Name, qty)
	if qty == 0 {
		msg += " and marked unavailable"
	}
	middlewares.FlashRedirect(c, "success", msg, "/owner/stock")
}

// AutoDisable takes every sold out item off the menu.
func (oc *OwnerController) AutoDisable(c *gin.Context) {
	res := oc.DB.WithContext(c.Request.Context()).Model(&models.MenuItem{}).
		Where("stock_qty <= 0 AND is_available = ?", true).
		Update("is_available", false)
	if res.Error != nil {
		oc.ServerError(c, res.Error)
		return
	}
	middlewares.FlashRedirect(c, "info", fmt.Sprintf("%d sold out item(s) disabled", res.RowsAffected), "/owner/stock")
}

func (oc *OwnerController) RawItems(c *gin.Context) {
	var items []models.RawItem
	if err := oc.DB.WithContext(c.Request.Context()).Order("name ASC").Find(&items).Error; err != nil {
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "owner_raw.html", gin.H{
		"Title":     "Raw materials",
		"Items":     items,
		"Threshold": oc.Analytics.LowStockThreshold,
	})
}

func parseRawForm(c *gin.Context) (*models.RawItem, error) {
	item := &models.RawItem{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Description: strings.TrimSpace(c.PostForm("description")),
	}
	if item.Name == "" {
		return nil, &services.CustomError{Message: "Name is required"}
	}
	if raw := strings.TrimSpace(c.PostForm("stock_qty")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil || qty < 0 {
			return nil, &services.CustomError{Message: "Stock must be a whole number of zero or more"}
		}
		item.StockQty = qty
	}
	return item, nil
}

func (oc *OwnerController) RawAdd(c *gin.Context) {
	item, err := parseRawForm(c)
	if err != nil {
		oc.fail(c, err, "/owner/raw")
		return
	}
	if err := oc.DB.WithContext(c.Request.Context()).Create(item).Error; err != nil {
		oc.ServerError(c, err)
		return
	}
	middlewares.FlashRedirect(c, "success", "Added "+item.Name, "/owner/raw")
}

func (oc *OwnerController) RawEdit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	form, err := parseRawForm(c)
	if err != nil {
		oc.fail(c, err, "/owner/raw")
		return
	}
	db := oc.DB.WithContext(c.Request.Context())
	var item models.RawItem
	if err := db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			oc.NotFound(c)
			return
		}
		oc.ServerError(c, err)
		return
	}
	err = db.Model(&item).Updates(map[string]interface{}{
		"name":        form.Name,
		"description": form.Description,
		"stock_qty":   form.StockQty,
	}).Error
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	middlewares.FlashRedirect(c, "success", "Updated "+form.Name, "/owner/raw")
}

func (oc *OwnerController) RawDelete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	res := oc.DB.WithContext(c.Request.Context()).Delete(&models.RawItem{}, id)
	if res.Error != nil {
		oc.ServerError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		oc.NotFound(c)
		return
	}
	middlewares.FlashRedirect(c, "info", "Raw material deleted", "/owner/raw")
}

func (oc *OwnerController) Users(c *gin.Context) {
	stats, err := oc.Analytics.UserStats(c.Request.Context())
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "owner_users.html", gin.H{
		"Title": "Users",
		"Stats": stats,
	})
}

func (oc *OwnerController) UserDetail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	summary, err := oc.Analytics.UserSummary(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			oc.NotFound(c)
			return
		}
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "owner_user_detail.html", gin.H{
		"Title":   summary.Stat.User.Name,
		"Summary": summary,
	})
}

func (oc *OwnerController) VerifyEmail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	back := fmt.Sprintf("/owner/users/%d", id)
	verified := formBool(c, "verified")
	if err := oc.Auth.SetEmailVerified(c.Request.Context(), id, verified); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			oc.NotFound(c)
			return
		}
		oc.fail(c, err, back)
		return
	}
	if verified {
		middlewares.FlashRedirect(c, "success", "Email marked as verified", back)
		return
	}
	middlewares.FlashRedirect(c, "info", "Email verification removed", back)
}

func (oc *OwnerController) WalletAdjust(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	back := fmt.Sprintf("/owner/users/%d", id)
	amount, ok := formFloat(c, "amount")
	if !ok {
		middlewares.FlashRedirect(c, "warning", services.ErrInvalidAmount.Message, back)
		return
	}

	wallet, err := oc.Wallets.Adjust(c.Request.Context(), id, amount, strings.TrimSpace(c.PostForm("note")))
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			oc.NotFound(c)
			return
		}
		oc.fail(c, err, back)
		return
	}
	middlewares.FlashRedirect(c, "success", "Wallet balance is now "+utils.FormatCurrency(wallet.Balance), back)
}

// exportRange reads ?from=&to= as inclusive dates, defaulting to the last
// thirty days.
func (oc *OwnerController) exportRange(c *gin.Context) (time.Time, time.Time, error) {
	now := oc.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -exportWindowDays+1)
	to := today
	var err error
	if raw := c.Query("from"); raw != "" {
		if from, err = time.ParseInLocation(dateLayout, raw, now.Location()); err != nil {
			return from, to, &services.CustomError{Message: "Dates must look like 2024-01-31"}
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = time.ParseInLocation(dateLayout, raw, now.Location()); err != nil {
			return from, to, &services.CustomError{Message: "Dates must look like 2024-01-31"}
		}
	}
	if to.Before(from) {
		return from, to, &services.CustomError{Message: "The end date is before the start date"}
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (oc *OwnerController) SalesExport(c *gin.Context) {
	from, to, err := oc.exportRange(c)
	if err != nil {
		oc.fail(c, err, "/owner/dashboard")
		return
	}
	file, err := oc.Analytics.SalesWorkbook(c.Request.Context(), from, to)
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		oc.ServerError(c, err)
		return
	}
	name := fmt.Sprintf("sales_%s_%s.xlsx", from.Format(dateLayout), to.AddDate(0, 0, -1).Format(dateLayout))
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (oc *OwnerController) RevenueChart(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		days = 7
	}
	series, err := oc.Analytics.DailyRevenue(c.Request.Context(), oc.Now(), days)
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := services.RenderRevenueChart(series, &buf); err != nil {
		utils.InfoLogger.WithError(err).Info("revenue chart not rendered")
		c.String(http.StatusServiceUnavailable, "Chart unavailable")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// RebuildAnalytics recomputes the sales summary of the given day (today by
// default) and every item's performance row.
func (oc *OwnerController) RebuildAnalytics(c *gin.Context) {
	day := oc.Now()
	if raw := strings.TrimSpace(c.PostForm("date")); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, day.Location())
		if err != nil {
			middlewares.FlashRedirect(c, "warning", "Dates must look like 2024-01-31", "/owner/dashboard")
			return
		}
		day = parsed
	}

	ctx := c.Request.Context()
	summary, err := oc.Analytics.RebuildDailySummary(ctx, day)
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	items, err := oc.Analytics.RebuildItemPerformance(ctx)
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	middlewares.FlashRedirect(c, "success",
		fmt.Sprintf("Rebuilt %s: %d order(s), %s revenue, %d item(s) scored",
			day.Format(dateLayout), summary.TotalOrders, utils.FormatCurrency(summary.TotalRevenue), items),
		"/owner/dashboard")
}
