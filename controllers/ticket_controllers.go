package controllers

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/canteenkart/services"
	"github.com/yeremiapane/canteenkart/utils"
)

const qrSize = 256

// TicketController serves the pickup QR code and the printable ticket.
type TicketController struct {
	*OrderController
	Tickets *services.TicketService
}

func NewTicketController(orders *OrderController, tickets *services.TicketService) *TicketController {
	return &TicketController{OrderController: orders, Tickets: tickets}
}

func (tc *TicketController) QRCode(c *gin.Context) {
	order, ok := tc.viewerOrder(c)
	if !ok {
		return
	}
	png, err := tc.Tickets.QRCode(order, qrSize)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("order_id", order.ID).Error("render QR code")
		c.String(http.StatusServiceUnavailable, "QR code unavailable")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (tc *TicketController) PDF(c *gin.Context) {
	order, ok := tc.viewerOrder(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := tc.Tickets.WritePDF(order, &buf); err != nil {
		utils.ErrorLogger.WithError(err).WithField("order_id", order.ID).Error("render ticket PDF")
		c.String(http.StatusServiceUnavailable, "Ticket unavailable")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=order-%d.pdf", order.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
