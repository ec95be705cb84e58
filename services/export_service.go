package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tealeg/xlsx"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/yeremiapane/canteenkart/models"
)

// SalesWorkbook builds an xlsx export of orders created in [from, to) with
// one sheet of orders and one of order lines.
func (s *AnalyticsService) SalesWorkbook(ctx context.Context, from, to time.Time) (*xlsx.File, error) {
	var orders []models.Order
	err := withItems(s.DB.WithContext(ctx)).Preload("User").
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	file := xlsx.NewFile()
	ordersSheet, err := file.AddSheet("Orders")
	if err != nil {
		return nil, err
	}
	linesSheet, err := file.AddSheet("Order Items")
	if err != nil {
		return nil, err
	}

	addRow(ordersSheet, "Order ID", "Created At", "Customer", "Phone", "Status", "Token", "Items", "Total")
	addRow(linesSheet, "Order ID", "Item", "Quantity", "Unit Price", "Subtotal")

	for _, o := range orders {
		row := ordersSheet.AddRow()
		row.AddCell().SetInt(int(o.ID))
		row.AddCell().SetDateTime(o.CreatedAt)
		row.AddCell().SetString(o.User.Name)
		row.AddCell().SetString(o.User.Phone)
		row.AddCell().SetString(o.Status)
		row.AddCell().SetString(o.TokenCode)
		row.AddCell().SetInt(o.ItemCount())
		row.AddCell().SetFloat(o.Total())

		for _, line := range o.Items {
			lr := linesSheet.AddRow()
			lr.AddCell().SetInt(int(o.ID))
			lr.AddCell().SetString(line.MenuItem.Name)
			lr.AddCell().SetInt(line.Quantity)
			lr.AddCell().SetFloat(line.Price)
			lr.AddCell().SetFloat(line.Subtotal())
		}
	}
	return file, nil
}

func addRow(sheet *xlsx.Sheet, headers ...string) {
	row := sheet.AddRow()
	for _, h := range headers {
		row.AddCell().SetString(h)
	}
}

type DailyRevenue struct {
	Day     time.Time
	Revenue float64
	Orders  int64
}

// DailyRevenue returns revenue for each of the last days days ending with now.
func (s *AnalyticsService) DailyRevenue(ctx context.Context, now time.Time, days int) ([]DailyRevenue, error) {
	if days <= 0 {
		days = 7
	}
	db := s.DB.WithContext(ctx)
	today, _ := dayBounds(now)
	out := make([]DailyRevenue, 0, days)
	for i := days - 1; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		revenue, orders, err := s.revenueBetween(db, start, start.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		out = append(out, DailyRevenue{Day: start, Revenue: revenue, Orders: orders})
	}
	return out, nil
}

// RenderRevenueChart draws a PNG bar chart of daily revenue.
func RenderRevenueChart(series []DailyRevenue, w io.Writer) error {
	bars := make([]chart.Value, 0, len(series))
	hasRevenue := false
	for _, d := range series {
		bars = append(bars, chart.Value{Label: d.Day.Format("Jan 02"), Value: d.Revenue})
		if d.Revenue > 0 {
			hasRevenue = true
		}
	}
	if !hasRevenue {
		return fmt.Errorf("no revenue to chart")
	}

	graph := chart.BarChart{
		Title:    "Daily revenue",
		Height:   400,
		Width:    max(400, 100*len(bars)),
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
