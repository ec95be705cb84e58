package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/cart"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/services"
	"gorm.io/gorm"
)

type CartController struct {
	*View
	DB       *gorm.DB
	Checkout *services.CheckoutService
}

func NewCartController(view *View, db *gorm.DB, checkout *services.CheckoutService) *CartController {
	return &CartController{View: view, DB: db, Checkout: checkout}
}

// quote prices the cart for the current viewer.
func (cc *CartController) quote(c *gin.Context, state cart.State) (cart.Quote, error) {
	ctx := c.Request.Context()
	var items []models.MenuItem
	if ids := state.ItemIDs(); len(ids) > 0 {
		if err := cc.DB.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error; err != nil {
			return cart.Quote{}, err
		}
	}

	rate := 0.0
	if id, ok := middlewares.CurrentUserID(c); ok {
		var user models.User
		if err := cc.DB.WithContext(ctx).First(&user, id).Error; err == nil {
			rate = services.DiscountFor(&user, cc.Checkout.DiscountRate)
		}
	}
	return cart.Price(state, items, rate), nil
}

func (cc *CartController) ShowCart(c *gin.Context) {
	state := cc.Cart.Load(c)
	q, err := cc.quote(c, state)
	if err != nil {
		cc.ServerError(c, err)
		return
	}
	cc.Render(c, http.StatusOK, "cart.html", gin.H{
		"Title": "Your cart",
		"Quote": q,
	})
}

func (cc *CartController) item(c *gin.Context) (*models.MenuItem, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		cc.NotFound(c)
		return nil, false
	}
	var item models.MenuItem
	if err := cc.DB.WithContext(c.Request.Context()).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cc.NotFound(c)
		} else {
			cc.ServerError(c, err)
		}
		return nil, false
	}
	return &item, true
}

// Add puts one more of the item in the cart, never more than the stock.
func (cc *CartController) Add(c *gin.Context) {
	item, ok := cc.item(c)
	if !ok {
		return
	}
	back := safeNext(c.PostForm("next"), "/menu")
	if !item.Orderable() {
		middlewares.FlashRedirect(c, "warning", item.Name+" is not available right now", back)
		return
	}

	qty := 1
	if raw := c.PostForm("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			middlewares.FlashRedirect(c, "warning", "Quantity must be at least 1", back)
			return
		}
		qty = n
	}

	state := cc.Cart.Load(c)
	before := state.Quantity(item.ID)
	after := state.Add(item.ID, qty, item.StockQty)
	cc.Cart.Put(c, state)

	if id, ok := middlewares.CurrentUserID(c); ok {
		services.RecordActivity(cc.DB.WithContext(c.Request.Context()), id, &item.ID, models.ActivityAddToCart)
	}
	if after-before < qty {
		middlewares.FlashRedirect(c, "warning", fmt.Sprintf("Only %d %s left in stock", item.StockQty, item.Name), back)
		return
	}
	middlewares.FlashRedirect(c, "success", "Added "+item.Name+" to your cart", back)
}

// Update sets an exact quantity, or steps it with action=inc|dec. The result
// is clamped to the stock; zero removes the line.
func (cc *CartController) Update(c *gin.Context) {
	item, ok := cc.item(c)
	if !ok {
		return
	}
	state := cc.Cart.Load(c)
	stock := item.StockQty
	if !item.IsAvailable {
		stock = 0
	}

	var after int
	switch strings.ToLower(c.PostForm("action")) {
	case "inc":
		after = state.Add(item.ID, 1, stock)
	case "dec":
		after = state.Add(item.ID, -1, stock)
	default:
		qty, err := strconv.Atoi(strings.TrimSpace(c.PostForm("quantity")))
		if err != nil {
			middlewares.FlashRedirect(c, "warning", "Quantity must be a number", "/cart")
			return
		}
		after = state.Set(item.ID, qty, stock)
		if qty > after && after > 0 {
			middlewares.AddFlash(c, "warning", fmt.Sprintf("Only %d %s left in stock", stock, item.Name))
		}
	}
	cc.Cart.Put(c, state)

	if after == 0 {
		middlewares.FlashRedirect(c, "info", item.Name+" removed from your cart", "/cart")
		return
	}
	middlewares.Redirect(c, "/cart")
}

// Remove drops the line even when the item no longer exists.
func (cc *CartController) Remove(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		cc.NotFound(c)
		return
	}
	state := cc.Cart.Load(c)
	if state.Remove(id) {
		cc.Cart.Put(c, state)
		middlewares.AddFlash(c, "info", "Item removed from your cart")
	}
	middlewares.Redirect(c, "/cart")
}

func (cc *CartController) CheckoutPage(c *gin.Context) {
	state := cc.Cart.Load(c)
	if state.IsEmpty() {
		middlewares.FlashRedirect(c, "warning", services.ErrEmptyCart.Message, "/menu")
		return
	}
	q, err := cc.quote(c, state)
	if err != nil {
		cc.ServerError(c, err)
		return
	}
	cc.Render(c, http.StatusOK, "checkout.html", gin.H{
		"Title": "Checkout",
		"Quote": q,
	})
}

func (cc *CartController) PlaceOrder(c *gin.Context) {
	userID, ok := middlewares.CurrentUserID(c)
	if !ok {
		middlewares.FlashRedirect(c, "warning", services.ErrNotAuthenticated.Message, "/auth/login?next=%2Fcheckout")
		return
	}
	state := cc.Cart.Load(c)
	if state.IsEmpty() {
		middlewares.FlashRedirect(c, "warning", services.ErrEmptyCart.Message, "/menu")
		return
	}

	slot, err := services.ParsePickupSlot(strings.TrimSpace(c.PostForm("pickup_slot")), cc.Checkout.Now())
	if err != nil {
		cc.fail(c, err, "/checkout")
		return
	}

	order, err := cc.Checkout.Checkout(c.Request.Context(), services.CheckoutRequest{
		UserID:     userID,
		Cart:       state,
		PickupSlot: slot,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			middlewares.FlashRedirect(c, "warning", services.ErrEmptyCart.Message, "/menu")
		case errors.Is(err, services.ErrNoAvailableItems):
			cc.Cart.Clear(c)
			middlewares.FlashRedirect(c, "warning", services.ErrNoAvailableItems.Message, "/menu")
		default:
			cc.fail(c, err, "/cart")
		}
		return
	}

	cc.Cart.Clear(c)
	if order.ItemCount() < state.TotalQuantity() {
		middlewares.AddFlash(c, "info", "Some items were out of stock and were left out of your order")
	}
	middlewares.FlashRedirect(c, "success",
		fmt.Sprintf("Order #%d placed. Your pickup token is %s", order.ID, strings.ToUpper(order.TokenCode)),
		fmt.Sprintf("/order_status/%d", order.ID))
}
