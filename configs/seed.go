package configs

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"homechef/entity"
)

// SeedDemoMenu creates one open menu for a demo chef so the order flow can be
// exercised locally. It does nothing when the menu already exists.
func SeedDemoMenu(db *gorm.DB, sellerID uint, log *zap.Logger) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	var count int64
	if err := db.Model(&entity.Menu{}).Where("seller_id = ? AND date = ?", sellerID, today).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Info("demo menu already exists", zap.Uint("seller_id", sellerID))
		return nil
	}

	menu := entity.Menu{
		SellerID:          sellerID,
		Date:              today,
		OrderDeadline:     today.Add(23 * time.Hour),
		IsActive:          true,
		PickupAvailable:   true,
		DeliveryAvailable: true,
		Items: []entity.MenuItem{
			{Name: "Paneer Butter Masala", Price: decimal.NewFromInt(100), IsAvailable: true, AvailableQuantity: 10, PreparationMinutes: 30},
			{Name: "Jeera Rice", Price: decimal.NewFromInt(50), IsAvailable: true, AvailableQuantity: 10, PreparationMinutes: 20},
		},
		DeliveryAreas: []entity.DeliveryArea{
			{Area: "Kothrud", DeliveryFee: decimal.NewFromInt(50), EstimatedMinutes: 45},
		},
	}
	if err := db.Create(&menu).Error; err != nil {
		return err
	}
	log.Info("demo menu seeded", zap.Uint("seller_id", sellerID), zap.Uint("menu_id", menu.ID))
	return nil
}
