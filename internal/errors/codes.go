package apierrors

const (
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserExists         = "USER_ALREADY_EXISTS"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeInvalidPassword    = "INVALID_PASSWORD"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"
)

// Two-factor codes.
const (
	CodeNoPendingEnrollment  = "NO_PENDING_ENROLLMENT"
	CodeEnrollmentExpired    = "ENROLLMENT_EXPIRED"
	CodeInvalidCode          = "INVALID_CODE"
	CodeRateLimited          = "RATE_LIMITED"
	CodeInvalidChallenge     = "INVALID_CHALLENGE"
	CodeTwoFactorNotEnabled  = "TWO_FACTOR_NOT_ENABLED"
	CodeTwoFactorSetupFailed = "TWO_FACTOR_SETUP_FAILED"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// Catalog and back-office codes.
const (
	CodeVehicleNotFound       = "VEHICLE_NOT_FOUND"
	CodeBrandNotFound         = "BRAND_NOT_FOUND"
	CodeCategoryNotFound      = "CATEGORY_NOT_FOUND"
	CodePricingNotFound       = "PRICING_OPTION_NOT_FOUND"
	CodePromoNotFound         = "PROMO_NOT_FOUND"
	CodeRequestNotFound       = "REQUEST_NOT_FOUND"
	CodeSlugConflict          = "SLUG_CONFLICT"
	CodeResourceInUse         = "RESOURCE_IN_USE"
	CodePromoOrderMismatch    = "PROMO_ORDER_MISMATCH"
	CodeStorageDisabled       = "STORAGE_DISABLED"
	CodeImageNotFound         = "IMAGE_NOT_FOUND"
	CodePrivacyConsentMissing = "PRIVACY_CONSENT_REQUIRED"
	CodeCannotModifySelf      = "CANNOT_MODIFY_SELF"
)

var defaultMessages = map[string]string{
	CodeInternal:              "Internal server error",
	CodeInvalidCredentials:    "Invalid username or password",
	CodeUserExists:            "Username already taken",
	CodeInvalidPassword:       "Invalid password",
	CodeNoPendingEnrollment:   "No two-factor enrollment in progress",
	CodeEnrollmentExpired:     "Two-factor enrollment expired, start again",
	CodeInvalidCode:           "Invalid verification code",
	CodeRateLimited:           "Too many attempts, try again later",
	CodeInvalidChallenge:      "Login challenge missing or expired",
	CodeTwoFactorNotEnabled:   "Two-factor authentication is not enabled",
	CodePrivacyConsentMissing: "Privacy consent is required",
	CodePromoOrderMismatch:    "Order must list every promo exactly once",
	CodeStorageDisabled:       "Image storage is not configured",
}
