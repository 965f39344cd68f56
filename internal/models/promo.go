package models

import "time"

// Promo places a vehicle in the homepage carousel at Position (0-based).
type Promo struct {
	ID        uint      `gorm:"primarykey"                json:"id"`
	VehicleID uint      `gorm:"index;not null"            json:"vehicleId"`
	Vehicle   *Vehicle  `                                 json:"vehicle,omitempty"`
	Title     string    `gorm:"type:varchar(150)"         json:"title"`
	Position  int       `gorm:"not null;default:0;index"  json:"position"`
	Active    bool      `gorm:"not null"                  json:"active"`
	CreatedAt time.Time `                                 json:"createdAt"`
	UpdatedAt time.Time `                                 json:"updatedAt"`
}

type PromoBody struct {
	VehicleID uint   `json:"vehicleId" validate:"required"`
	Title     string `json:"title"     validate:"omitempty,max=150"`
	Active    *bool  `json:"active"`
}

type PromoOrderBody struct {
	IDs []uint `json:"ids" validate:"required,min=1,dive,required"`
}
