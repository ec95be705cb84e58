package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
)

// TicketPayload is what the pickup QR code encodes.
type TicketPayload struct {
	OrderID uint   `json:"order_id"`
	Token   string `json:"token"`
	URL     string `json:"url"`
}

func ParseTicketPayload(raw string) (*TicketPayload, error) {
	var p TicketPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, err
	}
	if p.Token == "" {
		return nil, ErrTokenNotFound
	}
	return &p, nil
}

type TicketService struct {
	BaseURL string
}

func NewTicketService(baseURL string) *TicketService {
	return &TicketService{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (t *TicketService) Payload(order *models.Order) TicketPayload {
	return TicketPayload{
		OrderID: order.ID,
		Token:   order.TokenCode,
		URL:     fmt.Sprintf("%s/order_status/%d", t.BaseURL, order.ID),
	}
}

// QRCode renders the ticket payload as a PNG.
func (t *TicketService) QRCode(order *models.Order, size int) ([]byte, error) {
	payload, err := json.Marshal(t.Payload(order))
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(string(payload), qrcode.Medium, size)
}

// WritePDF writes a one page pickup ticket with the QR code and order lines.
func (t *TicketService) WritePDF(order *models.Order, w io.Writer) error {
	png, err := t.QRCode(order, 256)
	if err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A5", "")
	pdf.SetTitle(fmt.Sprintf("Order #%d", order.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, fmt.Sprintf("Order #%d", order.ID), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Pickup token: "+strings.ToUpper(order.TokenCode), "", 1, "C", false, 0, "")
	if order.PickupSlot != nil {
		pdf.CellFormat(0, 8, "Pickup at "+order.PickupSlot.Format("02 Jan 15:04"), "", 1, "C", false, 0, "")
	}

	pdf.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("qr", (pageW-50)/2, pdf.GetY()+2, 50, 50, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	pdf.SetY(pdf.GetY() + 56)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(70, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(38, 7, "Amount", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range order.Items {
		pdf.CellFormat(70, 7, line.MenuItem.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", line.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(38, 7, pdfMoney(line.Subtotal()), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(90, 8, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(38, 8, pdfMoney(order.Total()), "T", 1, "R", false, 0, "")

	return pdf.Output(w)
}

// The core fonts are latin-1 only, so the rupee sign is spelled out.
func pdfMoney(amount float64) string {
	return strings.Replace(utils.FormatCurrency(amount), "₹", "Rs ", 1)
}
