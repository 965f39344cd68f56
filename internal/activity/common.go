package activity

import (
	"slices"
	"strconv"
	"time"

	"github.com/rentdesk/rentdesk/internal/models"
)

// Activity messages, also used as the "action" filter value.
const (
	UserLoggedIn         = "USER_LOGGED_IN"
	UserLoggedOut        = "USER_LOGGED_OUT"
	UserRegistered       = "USER_REGISTERED"
	UserRoleUpdated      = "USER_ROLE_UPDATED"
	UserDeleted          = "USER_DELETED"
	TwoFactorEnrollStart = "TWO_FACTOR_ENROLLMENT_STARTED"
	TwoFactorEnabled     = "TWO_FACTOR_ENABLED"
	TwoFactorDisabled    = "TWO_FACTOR_DISABLED"
	TwoFactorReset       = "TWO_FACTOR_RESET"
	BackupCodesRegen     = "BACKUP_CODES_REGENERATED"
	BackupCodeUsed       = "BACKUP_CODE_USED"
	VehicleCreated       = "VEHICLE_CREATED"
	VehicleUpdated       = "VEHICLE_UPDATED"
	VehicleDeleted       = "VEHICLE_DELETED"
	VehicleImageAdded    = "VEHICLE_IMAGE_ADDED"
	VehicleImageRemoved  = "VEHICLE_IMAGE_REMOVED"
	PricingOptionSaved   = "PRICING_OPTION_SAVED"
	PricingOptionDeleted = "PRICING_OPTION_DELETED"
	BrandSaved           = "BRAND_SAVED"
	BrandDeleted         = "BRAND_DELETED"
	CategorySaved        = "CATEGORY_SAVED"
	CategoryDeleted      = "CATEGORY_DELETED"
	PromoSaved           = "PROMO_SAVED"
	PromoDeleted         = "PROMO_DELETED"
	PromosReordered      = "PROMOS_REORDERED"
	InfoRequestCreated   = "INFO_REQUEST_CREATED"
	InfoRequestUpdated   = "INFO_REQUEST_UPDATED"
	InfoRequestDeleted   = "INFO_REQUEST_DELETED"
	SettingsUpdated      = "SETTINGS_UPDATED"
)

// Object types whose payload may be stored with the entry. Anything else is logged
// without its object.
var authorizedObjectTypes = []string{
	"user",
	"vehicle",
	"pricing_option",
	"brand",
	"category",
	"promo",
	"info_request",
	"settings",
}

func isAuthorizedObject(objectType string) bool {
	return slices.Contains(authorizedObjectTypes, objectType)
}

// NewLogFilter stamps the filter fields with the current time.
func NewLogFilter(fields map[string]string) models.LogFilter {
	return models.LogFilter{
		Fields:    fields,
		Timestamp: strconv.FormatInt(time.Now().UnixNano(), 10),
	}
}
