package models

import (
	"time"

	"gorm.io/gorm"
)

type Brand struct {
	ID        uint           `gorm:"primarykey"                            json:"id"`
	Name      string         `gorm:"type:varchar(100);not null"            json:"name"`
	Slug      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time      `                                             json:"createdAt"`
	UpdatedAt time.Time      `                                             json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index"                                 json:"-"`
}

type Category struct {
	ID        uint           `gorm:"primarykey"                            json:"id"`
	Name      string         `gorm:"type:varchar(100);not null"            json:"name"`
	Slug      string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time      `                                             json:"createdAt"`
	UpdatedAt time.Time      `                                             json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index"                                 json:"-"`
}

type BrandBody struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
	Slug string `json:"slug" validate:"omitempty,max=100,lowercase"`
}

type CategoryBody struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
	Slug string `json:"slug" validate:"omitempty,max=100,lowercase"`
}
