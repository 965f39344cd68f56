package sql

import (
	"errors"
	"net/http"

	"github.com/rentdesk/rentdesk/internal/configuration"
	apierrors "github.com/rentdesk/rentdesk/internal/errors"
	"github.com/rentdesk/rentdesk/internal/models"

	"gorm.io/gorm"
)

func preloadVehicle(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Brand").
		Preload("Category").
		Preload("PricingOptions", func(db *gorm.DB) *gorm.DB {
			return db.Order("monthly_price_cents ASC, id ASC")
		})
}

// Pagination normalizes page and page size from query parameters.
func Pagination(page int, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = configuration.DefaultPageSize
	}
	if pageSize > configuration.MaxPageSize {
		pageSize = configuration.MaxPageSize
	}
	return page, pageSize
}

// ListVehicles applies the catalog filters. Brand and category match on slug; maxPrice
// keeps vehicles with at least one pricing option at or below it (in cents).
func ListVehicles(db *gorm.DB, filter models.VehicleListQueryParams, publishedOnly bool) ([]models.Vehicle, int64, error) {
	query := db.Model(&models.Vehicle{})

	if publishedOnly {
		query = query.Where("vehicles.published = ?", true)
	}
	if filter.Brand != "" {
		query = query.Where("vehicles.brand_id IN (?)",
			db.Model(&models.Brand{}).Select("id").Where("slug = ?", filter.Brand))
	}
	if filter.Category != "" {
		query = query.Where("vehicles.category_id IN (?)",
			db.Model(&models.Category{}).Select("id").Where("slug = ?", filter.Category))
	}
	if filter.Fuel != "" {
		query = query.Where("vehicles.fuel = ?", filter.Fuel)
	}
	if filter.Transmission != "" {
		query = query.Where("vehicles.transmission = ?", filter.Transmission)
	}
	if filter.MaxPrice > 0 {
		query = query.Where("vehicles.id IN (?)",
			db.Model(&models.RentalPricingOption{}).Select("vehicle_id").Where("monthly_price_cents <= ?", filter.MaxPrice))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := Pagination(filter.Page, filter.PageSize)

	var vehicles []models.Vehicle
	err := preloadVehicle(query).
		Order("vehicles.created_at DESC, vehicles.id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&vehicles).Error
	if err != nil {
		return nil, 0, err
	}

	return vehicles, total, nil
}

func GetVehicleByID(db *gorm.DB, id uint, publishedOnly bool) (models.Vehicle, error) {
	var vehicle models.Vehicle

	query := preloadVehicle(db).Where("id = ?", id)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	if err := query.First(&vehicle).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Vehicle{}, apierrors.NewAPIError(http.StatusNotFound, apierrors.CodeVehicleNotFound)
		}
		return models.Vehicle{}, err
	}

	return vehicle, nil
}

// ClearDefaultPricing unsets the default flag on every option of the vehicle except keepID.
func ClearDefaultPricing(tx *gorm.DB, vehicleID uint, keepID uint) error {
	return tx.Model(&models.RentalPricingOption{}).
		Where("vehicle_id = ? AND id <> ? AND is_default = ?", vehicleID, keepID, true).
		Update("is_default", false).Error
}
