package models

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Wallet{},
		&Transaction{},
		&MenuItem{},
		&RawItem{},
		&Order{},
		&OrderItem{},
		&SalesSummary{},
		&ItemPerformance{},
		&Feedback{},
		&UserActivity{},
		&OrderStatusLog{},
	}
}
