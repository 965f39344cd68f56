package models

import (
	"time"

	"gorm.io/gorm"
)

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelHybrid   FuelType = "hybrid"
	FuelElectric FuelType = "electric"
	FuelLPG      FuelType = "lpg"
)

type Transmission string

const (
	TransmissionManual    Transmission = "manual"
	TransmissionAutomatic Transmission = "automatic"
)

type Vehicle struct {
	ID             uint                  `gorm:"primarykey"                       json:"id"`
	BrandID        uint                  `gorm:"index;not null"                   json:"brandId"`
	Brand          *Brand                `                                        json:"brand,omitempty"`
	CategoryID     uint                  `gorm:"index;not null"                   json:"categoryId"`
	Category       *Category             `                                        json:"category,omitempty"`
	Model          string                `gorm:"type:varchar(100);not null"       json:"model"`
	Version        string                `gorm:"type:varchar(150)"                json:"version"`
	Year           int                   `gorm:"not null"                         json:"year"`
	Fuel           FuelType              `gorm:"type:varchar(16);not null"        json:"fuel"`
	Transmission   Transmission          `gorm:"type:varchar(16);not null"        json:"transmission"`
	Seats          int                   `gorm:"not null;default:5"               json:"seats"`
	Description    string                `gorm:"type:text"                        json:"description"`
	Published      bool                  `gorm:"not null;default:false;index"     json:"published"`
	ImageKeys      StringList            `gorm:"type:text"                        json:"imageKeys"`
	PricingOptions []RentalPricingOption `gorm:"constraint:OnDelete:CASCADE"      json:"pricingOptions,omitempty"`
	CreatedAt      time.Time             `                                        json:"createdAt"`
	UpdatedAt      time.Time             `                                        json:"updatedAt"`
	DeletedAt      gorm.DeletedAt        `gorm:"index"                            json:"-"`
}

func (v *Vehicle) ToActivity() VehicleActivity {
	return VehicleActivity{ID: v.ID, Model: v.Model, Version: v.Version}
}

type VehicleActivity struct {
	ID      uint   `json:"id"`
	Model   string `json:"model"`
	Version string `json:"version"`
}

// DefaultPricing returns the option flagged as default, falling back to the cheapest one.
func (v *Vehicle) DefaultPricing() *RentalPricingOption {
	var cheapest *RentalPricingOption
	for i := range v.PricingOptions {
		option := &v.PricingOptions[i]
		if option.IsDefault {
			return option
		}
		if cheapest == nil || option.MonthlyPriceCents < cheapest.MonthlyPriceCents {
			cheapest = option
		}
	}
	return cheapest
}

type RentalPricingOption struct {
	ID                uint      `gorm:"primarykey"            json:"id"`
	VehicleID         uint      `gorm:"index;not null"        json:"vehicleId"`
	DurationMonths    int       `gorm:"not null"              json:"durationMonths"`
	MileagePerYear    int       `gorm:"not null"              json:"mileagePerYear"`
	MonthlyPriceCents int64     `gorm:"not null;index"        json:"monthlyPriceCents"`
	DownPaymentCents  int64     `gorm:"not null;default:0"    json:"downPaymentCents"`
	IsDefault         bool      `gorm:"not null;default:false" json:"isDefault"`
	CreatedAt         time.Time `                             json:"createdAt"`
	UpdatedAt         time.Time `                             json:"updatedAt"`
}

type VehicleBody struct {
	BrandID      uint         `json:"brandId"      validate:"required"`
	CategoryID   uint         `json:"categoryId"   validate:"required"`
	Model        string       `json:"model"        validate:"required,min=1,max=100"`
	Version      string       `json:"version"      validate:"omitempty,max=150"`
	Year         int          `json:"year"         validate:"required,gte=1950,lte=2100"`
	Fuel         FuelType     `json:"fuel"         validate:"required,oneof=petrol diesel hybrid electric lpg"`
	Transmission Transmission `json:"transmission" validate:"required,oneof=manual automatic"`
	Seats        int          `json:"seats"        validate:"omitempty,gte=1,lte=9"`
	Description  string       `json:"description"  validate:"omitempty,max=5000"`
	Published    bool         `json:"published"`
}

type PricingOptionBody struct {
	DurationMonths    int   `json:"durationMonths"    validate:"required,oneof=12 24 36 48 60"`
	MileagePerYear    int   `json:"mileagePerYear"    validate:"required,gte=5000,lte=100000"`
	MonthlyPriceCents int64 `json:"monthlyPriceCents" validate:"required,gt=0"`
	DownPaymentCents  int64 `json:"downPaymentCents"  validate:"gte=0"`
	IsDefault         bool  `json:"isDefault"`
}

type VehicleImageUploadBody struct {
	ContentType string `json:"contentType" validate:"required,oneof=image/jpeg image/png image/webp"`
}

type VehicleImageUploadResponse struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
}

// VehicleImageKeyBody names an object key under the vehicle's prefix, to confirm an
// upload or to remove it.
type VehicleImageKeyBody struct {
	Key string `json:"key" validate:"required,max=255"`
}

// VehicleListQueryParams are the public catalog filters.
type VehicleListQueryParams struct {
	Brand        string `json:"brand"        validate:"omitempty,max=100"`
	Category     string `json:"category"     validate:"omitempty,max=100"`
	Fuel         string `json:"fuel"         validate:"omitempty,oneof=petrol diesel hybrid electric lpg"`
	Transmission string `json:"transmission" validate:"omitempty,oneof=manual automatic"`
	MaxPrice     int64  `json:"maxPrice"     validate:"omitempty,gt=0"`
	Page         int    `json:"page"         validate:"omitempty,gte=1"`
	PageSize     int    `json:"pageSize"     validate:"omitempty,gte=1,lte=100"`
}

// VehicleCard is the catalog listing view with resolved image URLs.
type VehicleCard struct {
	Vehicle
	ImageURLs []string `json:"imageUrls"`
}

type VehicleListResponse struct {
	Items    []VehicleCard `json:"items"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"pageSize"`
}
