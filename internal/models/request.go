package models

import "time"

type InfoRequestStatus string

const (
	InfoRequestStatusNew       InfoRequestStatus = "new"
	InfoRequestStatusContacted InfoRequestStatus = "contacted"
	InfoRequestStatusClosed    InfoRequestStatus = "closed"
)

// InfoRequest is a lead captured by the public "request info" form.
type InfoRequest struct {
	ID             uint              `gorm:"primarykey"                             json:"id"`
	VehicleID      *uint             `gorm:"index"                                  json:"vehicleId,omitempty"`
	Vehicle        *Vehicle          `                                              json:"vehicle,omitempty"`
	FirstName      string            `gorm:"type:varchar(100);not null"             json:"firstName"`
	LastName       string            `gorm:"type:varchar(100);not null"             json:"lastName"`
	Email          string            `gorm:"type:varchar(254);not null"             json:"email"`
	Phone          string            `gorm:"type:varchar(32)"                       json:"phone"`
	Message        string            `gorm:"type:text"                              json:"message"`
	PrivacyConsent bool              `gorm:"not null"                               json:"privacyConsent"`
	Status         InfoRequestStatus `gorm:"type:varchar(16);not null;default:'new'" json:"status"`
	CreatedAt      time.Time         `                                              json:"createdAt"`
	UpdatedAt      time.Time         `                                              json:"updatedAt"`
}

func (r *InfoRequest) ToActivity() InfoRequestActivity {
	return InfoRequestActivity{ID: r.ID, Email: r.Email, Status: r.Status}
}

type InfoRequestActivity struct {
	ID     uint              `json:"id"`
	Email  string            `json:"email"`
	Status InfoRequestStatus `json:"status"`
}

type InfoRequestBody struct {
	VehicleID      *uint  `json:"vehicleId"      validate:"omitempty"`
	FirstName      string `json:"firstName"      validate:"required,min=1,max=100"`
	LastName       string `json:"lastName"       validate:"required,min=1,max=100"`
	Email          string `json:"email"          validate:"required,email,max=254"`
	Phone          string `json:"phone"          validate:"omitempty,max=32"`
	Message        string `json:"message"        validate:"omitempty,max=2000"`
	PrivacyConsent bool   `json:"privacyConsent"`
}

type InfoRequestStatusBody struct {
	Status InfoRequestStatus `json:"status" validate:"required,oneof=new contacted closed"`
}

type InfoRequestListQueryParams struct {
	Status string `json:"status" validate:"omitempty,oneof=new contacted closed"`
}
