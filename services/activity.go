package services

import (
	"github.com/yeremiapane/canteenkart/models"
	"github.com/yeremiapane/canteenkart/utils"
	"gorm.io/gorm"
)

// RecordActivity stores a user action. Failures are logged, not returned,
// since activity rows only feed the dashboards.
func RecordActivity(db *gorm.DB, userID uint, itemID *uint, action string) {
	if userID == 0 {
		return
	}
	row := models.UserActivity{UserID: userID, ItemID: itemID, Action: action}
	if err := db.Create(&row).Error; err != nil {
		utils.ErrorLogger.Errorf("record %s activity for user %d: %v", action, userID, err)
	}
}
