package cart

import (
	"github.com/shopspring/decimal"
	"github.com/yeremiapane/canteenkart/models"
)

type Line struct {
	Item      models.MenuItem
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

type Quote struct {
	Lines        []Line
	DiscountRate float64
	Savings      float64
	Total        float64
}

// UnitPrice applies the discount rate to a list price, rounded to paise.
func UnitPrice(price, discountRate float64) float64 {
	p := decimal.NewFromFloat(price)
	if discountRate > 0 {
		p = p.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountRate)))
	}
	return p.Round(2).InexactFloat64()
}

// Price builds a quote for the cart from the given menu items. Lines whose
// item is not in items are left out.
func Price(s State, items []models.MenuItem, discountRate float64) Quote {
	byID := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	q := Quote{DiscountRate: discountRate}
	total := decimal.Zero
	listTotal := decimal.Zero
	for _, e := range s.Entries() {
		item, ok := byID[e.ItemID]
		if !ok {
			continue
		}
		qty := decimal.NewFromInt(int64(e.Quantity))
		unit := UnitPrice(item.Price, discountRate)
		sub := decimal.NewFromFloat(unit).Mul(qty)

		q.Lines = append(q.Lines, Line{
			Item:      item,
			Quantity:  e.Quantity,
			UnitPrice: unit,
			Subtotal:  sub.Round(2).InexactFloat64(),
		})
		total = total.Add(sub)
		listTotal = listTotal.Add(decimal.NewFromFloat(item.Price).Mul(qty))
	}
	q.Total = total.Round(2).InexactFloat64()
	q.Savings = listTotal.Sub(total).Round(2).InexactFloat64()
	return q
}
