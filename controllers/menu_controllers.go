package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/recommend"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/storage"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
)

type MenuController struct {
	*View
	DB            *gorm.DB
	Recs          *recommend.Service
	Images        storage.ImageStore
	MaxImageBytes int64
}

func NewMenuController(view *View, db *gorm.DB, recs *recommend.Service, images storage.ImageStore, maxImageBytes int64) *MenuController {
	return &MenuController{View: view, DB: db, Recs: recs, Images: images, MaxImageBytes: maxImageBytes}
}

// Menu lists every item with the current best sellers on top.
func (mc *MenuController) Menu(c *gin.Context) {
	var items []models.MenuItem
	if err := mc.DB.WithContext(c.Request.Context()).Order("name ASC, id ASC").Find(&items).Error; err != nil {
		mc.ServerError(c, err)
		return
	}

	top, err := mc.Recs.TopOrders(c.Request.Context(), recommend.DefaultLimit)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("top orders unavailable")
		top = nil
	}

	mc.Render(c, http.StatusOK, "menu.html", gin.H{
		"Title":     "Menu",
		"Items":     items,
		"TopOrders": top,
	})
}

// APIMenu returns the items a student can order right now.
func (mc *MenuController) APIMenu(c *gin.Context) {
	var items []models.MenuItem
	err := mc.DB.WithContext(c.Request.Context()).
		Where("is_available = ? AND stock_qty > 0", true).
		Order("name ASC, id ASC").
		Find(&items).Error
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) OwnerMenu(c *gin.Context) {
	var items []models.MenuItem
	if err := mc.DB.WithContext(c.Request.Context()).Order("name ASC, id ASC").Find(&items).Error; err != nil {
		mc.ServerError(c, err)
		return
	}
	mc.Render(c, http.StatusOK, "owner_menu.html", gin.H{
		"Title": "Manage menu",
		"Items": items,
	})
}

type menuForm struct {
	Name        string
	Description string
	Price       float64
	StockQty    int
	IsAvailable bool
}

func parseMenuForm(c *gin.Context) (*menuForm, error) {
	f := &menuForm{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Description: strings.TrimSpace(c.PostForm("description")),
		IsAvailable: formBool(c, "is_available"),
	}
	if f.Name == "" {
		return nil, &services.CustomError{Message: "Name is required"}
	}
	price, ok := formFloat(c, "price")
	if !ok || price < 0 {
		return nil, &services.CustomError{Message: "Price must be a positive number"}
	}
	f.Price = utils.RoundMoney(price)
	if raw := strings.TrimSpace(c.PostForm("stock_qty")); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return nil, &services.CustomError{Message: "Stock must be a whole number of zero or more"}
		}
		f.StockQty = stock
	}
	return f, nil
}

// uploadImage stores the optional "image" file and returns its URL, or ""
// when no file was sent.
func (mc *MenuController) uploadImage(c *gin.Context) (string, error) {
	fh, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	img, err := storage.ReadImage(fh, mc.MaxImageBytes)
	if err != nil {
		return "", err
	}
	url, err := mc.Images.Save(c.Request.Context(), img.Data, img.ContentType, img.Extension)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("store menu image")
		return "", &services.CustomError{Message: "Could not store the image"}
	}
	return url, nil
}

func imageErrorMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotImage):
		return "Only PNG, JPEG, GIF or WebP images are accepted"
	case errors.Is(err, storage.ErrTooLarge):
		return "Image is too large"
	}
	return err.Error()
}

func (mc *MenuController) AddItem(c *gin.Context) {
	form, err := parseMenuForm(c)
	if err != nil {
		middlewares.FlashRedirect(c, "warning", err.Error(), "/owner/menu")
		return
	}
	image, err := mc.uploadImage(c)
	if err != nil {
		middlewares.FlashRedirect(c, "warning", imageErrorMessage(err), "/owner/menu")
		return
	}

	item := models.MenuItem{
		Name:        form.Name,
		Description: form.Description,
		Price:       form.Price,
		StockQty:    form.StockQty,
		IsAvailable: form.IsAvailable,
		Image:       image,
	}
	if err := mc.DB.WithContext(c.Request.Context()).Create(&item).Error; err != nil {
		mc.ServerError(c, err)
		return
	}
	utils.InfoLogger.WithField("item_id", item.ID).Infof("Menu item %q added", item.Name)
	middlewares.FlashRedirect(c, "success", "Added "+item.Name, "/owner/menu")
}

func (mc *MenuController) findItem(c *gin.Context) (*models.MenuItem, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		mc.NotFound(c)
		return nil, false
	}
	var item models.MenuItem
	if err := mc.DB.WithContext(c.Request.Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			mc.NotFound(c)
		} else {
			mc.ServerError(c, err)
		}
		return nil, false
	}
	return &item, true
}

func (mc *MenuController) EditItem(c *gin.Context) {
	item, ok := mc.findItem(c)
	if !ok {
		return
	}
	form, err := parseMenuForm(c)
	if err != nil {
		middlewares.FlashRedirect(c, "warning", err.Error(), "/owner/menu")
		return
	}
	image, err := mc.uploadImage(c)
	if err != nil {
		middlewares.FlashRedirect(c, "warning", imageErrorMessage(err), "/owner/menu")
		return
	}

	updates := map[string]interface{}{
		"name":         form.Name,
		"description":  form.Description,
		"price":        form.Price,
		"stock_qty":    form.StockQty,
		"is_available": form.IsAvailable,
	}
	if image != "" {
		updates["image"] = image
	}
	if err := mc.DB.WithContext(c.Request.Context()).Model(item).Updates(updates).Error; err != nil {
		mc.ServerError(c, err)
		return
	}
	middlewares.FlashRedirect(c, "success", "Updated "+form.Name, "/owner/menu")
}

// DeleteItem soft deletes the item; existing order lines still resolve it.
func (mc *MenuController) DeleteItem(c *gin.Context) {
	item, ok := mc.findItem(c)
	if !ok {
		return
	}
	if err := mc.DB.WithContext(c.Request.Context()).Delete(item).Error; err != nil {
		mc.ServerError(c, err)
		return
	}
	utils.InfoLogger.WithField("item_id", item.ID).Infof("Menu item %q deleted", item.Name)
	middlewares.FlashRedirect(c, "info", "Deleted "+item.Name, "/owner/menu")
}
