package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/middlewares"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
)

const historyLimit = 50

type OrderController struct {
	*View
	Orders *services.OrderService
}

func NewOrderController(view *View, orders *services.OrderService) *OrderController {
	return &OrderController{View: view, Orders: orders}
}

// viewerOrder loads the :id order if the caller may see it, rendering the
// 404 or 500 page otherwise.
func (oc *OrderController) viewerOrder(c *gin.Context) (*models.Order, bool) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return nil, false
	}
	uid, _ := middlewares.CurrentUserID(c)
	order, err := oc.Orders.GetForViewer(c.Request.Context(), id, uid, middlewares.CurrentRole(c))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			oc.NotFound(c)
		} else {
			oc.ServerError(c, err)
		}
		return nil, false
	}
	return order, true
}

func (oc *OrderController) Status(c *gin.Context) {
	order, ok := oc.viewerOrder(c)
	if !ok {
		return
	}
	logs, err := oc.Orders.StatusLog(c.Request.Context(), order.ID)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("order_id", order.ID).Warn("status log unavailable")
	}
	oc.Render(c, http.StatusOK, "order_status.html", gin.H{
		"Title":     fmt.Sprintf("Order #%d", order.ID),
		"Order":     order,
		"StatusLog": logs,
	})
}

// APIStatus is the polling fallback for clients without a websocket.
func (oc *OrderController) APIStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		utils.RespondError(c, http.StatusNotFound, services.ErrOrderNotFound)
		return
	}
	uid, _ := middlewares.CurrentUserID(c)
	order, err := oc.Orders.GetForViewer(c.Request.Context(), id, uid, middlewares.CurrentRole(c))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
			return
		}
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order status", gin.H{
		"order_id":    order.ID,
		"status":      order.Status,
		"token":       order.TokenCode,
		"total":       order.Total(),
		"pickup_slot": order.PickupSlot,
		"updated_at":  order.UpdatedAt,
	})
}

func (oc *OrderController) History(c *gin.Context) {
	uid, _ := middlewares.CurrentUserID(c)
	orders, err := oc.Orders.History(c.Request.Context(), uid, historyLimit)
	if err != nil {
		oc.ServerError(c, err)
		return
	}
	oc.Render(c, http.StatusOK, "history.html", gin.H{
		"Title":  "Order history",
		"Orders": orders,
	})
}

// Reorder replaces the cart with the lines of a past order.
func (oc *OrderController) Reorder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	uid, _ := middlewares.CurrentUserID(c)
	state, skipped, err := oc.Orders.Reorder(c.Request.Context(), id, uid)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			oc.NotFound(c)
			return
		}
		oc.fail(c, err, "/orders/history")
		return
	}
	if state.IsEmpty() {
		middlewares.FlashRedirect(c, "warning", "None of those items can be ordered right now", "/orders/history")
		return
	}

	oc.Cart.Put(c, state)
	if skipped > 0 {
		middlewares.AddFlash(c, "info", fmt.Sprintf("%d item(s) from that order are no longer available", skipped))
	}
	middlewares.FlashRedirect(c, "success", "Your cart has been filled from that order", "/cart")
}

func (oc *OrderController) OwnerOrders(c *gin.Context) {
	status := c.Query("status")
	orders, err := oc.Orders.ListActive(c.Request.Context(), status)
	if err != nil {
		oc.fail(c, err, "/owner/orders")
		return
	}
	oc.Render(c, http.StatusOK, "owner_orders.html", gin.H{
		"Title":    "Orders",
		"Orders":   orders,
		"Filter":   status,
		"Filters":  models.ActiveStatuses,
		"Statuses": models.AllStatuses,
	})
}

func changedBy(c *gin.Context) string {
	uid, _ := middlewares.CurrentUserID(c)
	return fmt.Sprintf("owner:%d", uid)
}

func (oc *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		oc.NotFound(c)
		return
	}
	back := safeNext(c.PostForm("next"), "/owner/orders")
	status := strings.ToLower(strings.TrimSpace(c.PostForm("status")))

	order, err := oc.Orders.UpdateStatus(c.Request.Context(), id, status, changedBy(c))
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			oc.NotFound(c)
			return
		}
		oc.fail(c, err, back)
		return
	}
	middlewares.FlashRedirect(c, "success", fmt.Sprintf("Order #%d is now %s", order.ID, order.Status), back)
}

func (oc *OrderController) ScannerPage(c *gin.Context) {
	oc.Render(c, http.StatusOK, "owner_scanner.html", gin.H{"Title": "Pickup scanner"})
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// Scan completes the open order holding the submitted token or QR payload.
// Browsers get a flash and redirect, scanner clients asking for JSON get
// the envelope.
func (oc *OrderController) Scan(c *gin.Context) {
	raw := c.PostForm("token")
	order, err := oc.Orders.MarkCollected(c.Request.Context(), raw, changedBy(c))

	if wantsJSON(c) {
		switch {
		case err == nil:
			utils.RespondJSON(c, http.StatusOK, fmt.Sprintf("Order #%d collected", order.ID), order)
		case errors.Is(err, services.ErrTokenRequired):
			utils.RespondError(c, http.StatusBadRequest, err)
		case errors.Is(err, services.ErrTokenNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, services.ErrOrderClosed):
			utils.RespondError(c, http.StatusConflict, fmt.Errorf("Order #%d is already %s", order.ID, order.Status))
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	switch {
	case err == nil:
		middlewares.FlashRedirect(c, "success", fmt.Sprintf("Order #%d collected", order.ID), "/owner/scanner")
	case errors.Is(err, services.ErrOrderClosed):
		middlewares.FlashRedirect(c, "info", fmt.Sprintf("Order #%d is already %s", order.ID, order.Status), "/owner/scanner")
	default:
		oc.fail(c, err, "/owner/scanner")
	}
}
