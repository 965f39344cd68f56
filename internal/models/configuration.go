package models

type Configuration struct {
	App       AppConfiguration       `mapstructure:"app"       validate:"required"`
	Database  DatabaseConfiguration  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfiguration      `mapstructure:"auth"`
	Cache     CacheConfiguration     `mapstructure:"cache"     validate:"required"`
	Storage   StorageConfiguration   `mapstructure:"storage"   validate:"required"`
	Events    EventsConfiguration    `mapstructure:"events"    validate:"required"`
	Notifier  NotifierConfiguration  `mapstructure:"notifier"  validate:"required"`
	Activity  ActivityConfiguration  `mapstructure:"activity"  validate:"required"`
	Tracing   TracingConfiguration   `mapstructure:"tracing"`
	Profiling ProfilingConfiguration `mapstructure:"profiling"`
}

type AppConfiguration struct {
	Profile                   string   `mapstructure:"profile"                     validate:"oneof=default api worker"`
	AdminUsername             string   `mapstructure:"admin_username"              validate:"required,min=3,max=50"`
	AdminEmail                string   `mapstructure:"admin_email"                 validate:"required,email"`
	AdminPassword             string   `mapstructure:"admin_password"              validate:"required"`
	APIURL                    string   `mapstructure:"api_url"                     validate:"required"`
	WebURL                    string   `mapstructure:"web_url"                     validate:"required"`
	AllowedOrigins            []string `mapstructure:"allowed_origins"             validate:"required"`
	TrustedProxies            []string `mapstructure:"trusted_proxies"`
	JWTSecret                 string   `mapstructure:"jwt_secret"                  validate:"required,min=16"`
	TwoFactorEncryptionKey    string   `mapstructure:"two_factor_encryption_key"   validate:"len=32"`
	SessionExpiry             int      `mapstructure:"session_expiry"              validate:"gte=1,lte=10080"`
	ChallengeExpiry           int      `mapstructure:"challenge_expiry"            validate:"gte=1,lte=30"`
	TwoFactorEnrollmentTTL    int      `mapstructure:"two_factor_enrollment_ttl"   validate:"gte=1,lte=60"`
	EnrollmentCleanupInterval int      `mapstructure:"enrollment_cleanup_interval" validate:"gte=1,lte=1440"`
	SecureCookies             bool     `mapstructure:"secure_cookies"`
	RequestsPerMinute         int      `mapstructure:"requests_per_minute"         validate:"gte=1"`
	LogLevel                  string   `mapstructure:"log_level"                   validate:"oneof=debug info warn error fatal panic"`
	Port                      int      `mapstructure:"port"                        validate:"gte=80,lte=65535"`
}

type DatabaseConfiguration struct {
	Type     string `mapstructure:"type"     validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"     validate:"required_if=Type postgres"`
	Port     int32  `mapstructure:"port"     validate:"gte=0,lte=65535"`
	User     string `mapstructure:"user"     validate:"required_if=Type postgres"`
	Password string `mapstructure:"password" validate:"required_if=Type postgres"`
	Name     string `mapstructure:"name"     validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type AuthConfiguration struct {
	Providers map[string]ProviderConfiguration `mapstructure:"providers" validate:"omitempty,dive"`
}

type ProviderConfiguration struct {
	Name string            `mapstructure:"name" validate:"required"`
	Type ProviderType      `mapstructure:"type" validate:"required,oneof=local oidc"`
	OIDC OIDCConfiguration `mapstructure:"oidc"`
}

type OIDCConfiguration struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Issuer       string   `mapstructure:"issuer"`
	Scopes       []string `mapstructure:"scopes"`
}

type CacheConfiguration struct {
	Type   string                    `mapstructure:"type"   validate:"required,oneof=redis valkey"`
	Redis  *RedisCacheConfiguration  `mapstructure:"redis"  validate:"required_if=Type redis"`
	Valkey *ValkeyCacheConfiguration `mapstructure:"valkey" validate:"required_if=Type valkey"`
}

type RedisCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type ValkeyCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

// StorageConfiguration selects where vehicle photos live. "none" disables image uploads.
type StorageConfiguration struct {
	Type  string                 `mapstructure:"type"  validate:"required,oneof=minio s3 none"`
	Minio *S3StorageConfiguration `mapstructure:"minio" validate:"required_if=Type minio"`
	S3    *S3StorageConfiguration `mapstructure:"s3"    validate:"required_if=Type s3"`
}

type S3StorageConfiguration struct {
	BucketName       string `mapstructure:"bucket_name"       validate:"required"`
	Endpoint         string `mapstructure:"endpoint"          validate:"required"`
	ExternalEndpoint string `mapstructure:"external_endpoint" validate:"required,http_url"`
	AccessKey        string `mapstructure:"access_key"        validate:"required"`
	SecretKey        string `mapstructure:"secret_key"        validate:"required"`
	Region           string `mapstructure:"region"`
	ForcePathStyle   bool   `mapstructure:"force_path_style"`
	UseTLS           bool   `mapstructure:"use_tls"`
}

type QueueConfig struct {
	Name string `mapstructure:"name" validate:"required"`
}

type EventsConfiguration struct {
	Type      string                 `mapstructure:"type"      validate:"required,oneof=jetstream gcp aws memory"`
	Queues    map[string]QueueConfig `mapstructure:"queues"    validate:"required"`
	Jetstream *JetStreamEventsConfig `mapstructure:"jetstream" validate:"required_if=Type jetstream"`
	PubSub    *PubSubConfiguration   `mapstructure:"gcp"       validate:"required_if=Type gcp"`
	AWS       *AWSEventsConfig       `mapstructure:"aws"`
}

type AWSEventsConfig struct {
	Region string `mapstructure:"region"`
}

type PubSubConfiguration struct {
	ProjectID          string `mapstructure:"project_id"          validate:"required"`
	SubscriptionSuffix string `mapstructure:"subscription_suffix"`
}

type JetStreamEventsConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

type MailerConfiguration struct {
	Host          string `mapstructure:"host"            validate:"required"`
	Port          int    `mapstructure:"port"            validate:"required"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"          validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type NotifierConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=smtp filesystem"`
	SMTP       *MailerConfiguration             `mapstructure:"smtp"       validate:"required_if=Type smtp"`
	Filesystem *FilesystemNotifierConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemNotifierConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type ActivityConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=filesystem"`
	Filesystem *FilesystemActivityConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemActivityConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type TracingConfiguration struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"     validate:"required_if=Enabled true"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

type ProfilingConfiguration struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServerAddress string `mapstructure:"server_address" validate:"required_if=Enabled true"`
}

// AuthConfig groups authentication-related configuration for services.
type AuthConfig struct {
	JWTSecret       string
	EncryptionKey   string
	SessionExpiry   int
	ChallengeExpiry int
	EnrollmentTTL   int
	SecureCookies   bool
	WebURL          string
}

// GetAuthConfig extracts authentication configuration from AppConfiguration.
func (c *AppConfiguration) GetAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       c.JWTSecret,
		EncryptionKey:   c.TwoFactorEncryptionKey,
		SessionExpiry:   c.SessionExpiry,
		ChallengeExpiry: c.ChallengeExpiry,
		EnrollmentTTL:   c.TwoFactorEnrollmentTTL,
		SecureCookies:   c.SecureCookies,
		WebURL:          c.WebURL,
	}
}
