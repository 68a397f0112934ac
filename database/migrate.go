package database

import (
	"fmt"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates every table. db_changes is filled by the services in
// the same transaction as the change, so no database triggers are installed.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Restaurant{},
		&models.Table{},
		&models.MenuCategory{},
		&models.Menu{},
		&models.Ingredient{},
		&models.RecipeLink{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.DBChange{},
	)
	if err != nil {
		return fmt.Errorf("failed to AutoMigrate: %w", err)
	}

	utils.InfoLogger.Info("AutoMigrate completed.")

	if n, err := PurgeOutbox(db, 7*24*time.Hour); err != nil {
		utils.InfoLogger.WithError(err).Warn("outbox cleanup failed")
	} else if n > 0 {
		utils.InfoLogger.Infof("removed %d relayed changes", n)
	}
	return nil
}

// PurgeOutbox deletes relayed changes older than maxAge.
func PurgeOutbox(db *gorm.DB, maxAge time.Duration) (int64, error) {
	res := db.Where("processed = ? AND changed_at < ?", true, time.Now().Add(-maxAge)).
		Delete(&models.DBChange{})
	return res.RowsAffected, res.Error
}
