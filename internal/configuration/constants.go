package configuration

const AppName = "RentDesk"

// JWT Audience constants for token type separation.
const (
	AudienceSession        = "app:*"
	AudienceTwoFactorLogin = "auth:2fa:login"
)

// Cookie names.
const (
	SessionCookieName   = "rentdesk_session"
	ChallengeCookieName = "rentdesk_2fa"
	OIDCStateCookieName = "rentdesk_oidc_state"
	OIDCNonceCookieName = "rentdesk_oidc_nonce"
)

const (
	CacheMaxAppIdentityLifetime = 60
	CacheAppIdentityKey         = "app:identity"
	CacheAppRateLimitKey        = "app:ratelimit:%s"
	CacheAppWorkerLockKey       = "app:worker:lock:%s" //nolint:gosec // not a credential
	CacheAppWorkerLockTTL       = 60
	CacheAppWorkerLockRefresh   = 55
	CacheMFAAttemptsKey         = "2fa:attempts:%s"
	CacheTOTPUsedKey            = "totp:used:%s:%s"
	CacheRevokedSessionKey      = "session:revoked:%s"
)

const (
	EventsNotifications = "notifications"
)

const UploadPolicyExpirationInMinutes = 15

// BulkActionsLimit caps the keys sent in one DeleteObjects call.
const BulkActionsLimit = 1000

const VehicleImagePrefix = "vehicles"

const (
	// TOTPCodeTTL is the time-to-live for TOTP code replay protection (in seconds).
	TOTPCodeTTL = 90
	// MFAMaxAttempts is the maximum number of failed verification attempts before lockout.
	MFAMaxAttempts = 5
	// MFALockoutSeconds is the lockout duration after max failed attempts (in seconds).
	MFALockoutSeconds = 900
	// BackupCodeCount is the number of backup codes issued per enrollment.
	BackupCodeCount = 10
)

// Catalog pagination.
const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// Storage and messaging provider types.
const (
	ProviderJetstream = "jetstream"
	ProviderMinio     = "minio"
	ProviderGCP       = "gcp"
	ProviderAWS       = "aws"
	ProviderS3        = "s3"
	ProviderMemory    = "memory"
	ProviderNone      = "none"
)

var ArrayConfigFields = []string{
	"app.trusted_proxies",
	"app.allowed_origins",
	"cache.redis.hosts",
	"cache.valkey.hosts",
}

var ConfigFileSearchPaths = []string{
	"./config.yaml",
	"templates/config.yaml",
}

var OIDCProviderKeys = []string{
	"client_id",
	"client_secret",
	"issuer",
}
