package sql

import (
	"github.com/rentdesk/rentdesk/internal/models"

	"gorm.io/gorm"
)

func ListPromos(db *gorm.DB, activeOnly bool) ([]models.Promo, error) {
	query := db.Preload("Vehicle").Preload("Vehicle.Brand").Order("position ASC, id ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var promos []models.Promo
	err := query.Find(&promos).Error
	return promos, err
}

// NextPromoPosition returns the position after the last promo.
func NextPromoPosition(tx *gorm.DB) (int, error) {
	var count int64
	if err := tx.Model(&models.Promo{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// ApplyPromoOrder writes positions 0..n-1 following ids.
func ApplyPromoOrder(tx *gorm.DB, ids []uint) error {
	for position, id := range ids {
		err := tx.Model(&models.Promo{}).Where("id = ?", id).Update("position", position).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// CompactPromoPositions renumbers the remaining promos so positions stay contiguous.
func CompactPromoPositions(tx *gorm.DB) error {
	var ids []uint
	if err := tx.Model(&models.Promo{}).Order("position ASC, id ASC").Pluck("id", &ids).Error; err != nil {
		return err
	}
	return ApplyPromoOrder(tx, ids)
}
