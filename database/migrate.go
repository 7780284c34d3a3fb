package database

import (
	"github.com/yeremiapane/restqr/models"
	"github.com/yeremiapane/restqr/utils"
	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.TableToken{},
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
	)
	if err != nil {
		return err
	}
	utils.InfoLogger.Info("AutoMigrate completed")
	return nil
}

// SeedMenu inserts the sample menu when the catalog is empty.
func SeedMenu(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.MenuItem{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		utils.InfoLogger.WithField("items", count).Info("menu already seeded, skipping")
		return nil
	}

	items := []models.MenuItem{
		{Name: "Margherita Pizza", Description: "Tomato, mozzarella, basil", Price: 12.50, Category: "Mains", Available: true},
		{Name: "Caesar Salad", Description: "Romaine, parmesan, croutons", Price: 8.75, Category: "Starters", Available: true},
		{Name: "Lemonade", Price: 4.50, Category: "Drinks", Available: true},
		{Name: "Espresso", Price: 3.00, Category: "Drinks", Available: true},
		{Name: "Tiramisu", Price: 6.25, Category: "Desserts", Available: true},
		{Name: "Garlic Bread", Price: 4.00, Available: true},
	}
	if err := db.Create(&items).Error; err != nil {
		return err
	}
	utils.InfoLogger.WithField("items", len(items)).Info("menu seeded")
	return nil
}
