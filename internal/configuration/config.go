package configuration

import (
	"fmt"
	"os"
	"strings"

	"github.com/rentdesk/rentdesk/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

func parseArrayFields(k *koanf.Koanf) {
	for _, field := range ArrayConfigFields {
		if stringVal := k.String(field); stringVal != "" {
			stringVal = strings.Trim(stringVal, "[]")
			var items []string
			if strings.Contains(stringVal, ",") {
				items = strings.Split(stringVal, ",")
			} else {
				items = strings.Fields(stringVal)
			}
			for i, item := range items {
				items[i] = strings.TrimSpace(item)
			}
			err := k.Set(field, items)
			if err != nil {
				zap.L().
					Error("Error parsing array field", zap.String("field", field), zap.Error(err))
			}
		}
	}
}

// parseAuthProviders completes providers declared through AUTH__PROVIDERS__KEYS=google,local.
// Nested values arrive through the generic env loader (AUTH__PROVIDERS__GOOGLE__OIDC__CLIENT_ID).
func parseAuthProviders(k *koanf.Koanf) {
	providersStr := k.String("auth.providers.keys")
	if providersStr == "" {
		return
	}

	for _, provider := range strings.Split(providersStr, ",") {
		provider = strings.ToLower(strings.TrimSpace(provider))
		if provider == "" {
			continue
		}

		setIfMissing(k, fmt.Sprintf("auth.providers.%s.name", provider), provider)
		if provider == string(models.LocalProviderType) {
			setIfMissing(k, fmt.Sprintf("auth.providers.%s.type", provider), string(models.LocalProviderType))
		} else {
			setIfMissing(k, fmt.Sprintf("auth.providers.%s.type", provider), string(models.OIDCProviderType))
		}

		scopesKey := fmt.Sprintf("auth.providers.%s.oidc.scopes", provider)
		if scopes := k.String(scopesKey); scopes != "" {
			items := strings.Split(strings.Trim(scopes, "[]"), ",")
			for i, item := range items {
				items[i] = strings.TrimSpace(item)
			}
			if err := k.Set(scopesKey, items); err != nil {
				zap.L().Error("Failed to parse provider scopes", zap.String("provider", provider), zap.Error(err))
			}
		}

		if k.String(fmt.Sprintf("auth.providers.%s.type", provider)) != string(models.OIDCProviderType) {
			continue
		}
		for _, key := range OIDCProviderKeys {
			if !k.Exists(fmt.Sprintf("auth.providers.%s.oidc.%s", provider, key)) {
				zap.L().Warn("OIDC provider is missing a setting",
					zap.String("provider", provider), zap.String("key", key))
			}
		}
	}

	// Remove the keys entry to avoid conflict with providers map
	k.Delete("auth.providers.keys")
}

func readEnvVars(k *koanf.Koanf) {
	err := k.Load(env.Provider("", ".", func(s string) string {
		s = strings.ToLower(s)
		segments := strings.Split(s, "__")
		result := strings.Join(segments, ".")
		return result
	}), nil)
	if err != nil {
		zap.L().Warn("Error loading environment variables", zap.Error(err))
	}

	parseArrayFields(k)
	parseAuthProviders(k)
}

func readFileConfig(k *koanf.Koanf) error {
	configFilePath := os.Getenv("CONFIG_FILE_PATH")
	var filePath string
	if configFilePath == "" {
		for _, path := range ConfigFileSearchPaths {
			if _, err := os.Stat(path); err == nil {
				filePath = path
				break
			}
		}
	} else {
		filePath = configFilePath
	}

	if filePath == "" {
		zap.L().Warn("No configuration file found")
		return nil
	}

	if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", filePath, err)
	}
	zap.L().Info("Read configuration from file " + filePath)
	return nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]interface{}{
		"app.profile":                     ProfileDefault,
		"app.session_expiry":              720,
		"app.challenge_expiry":            5,
		"app.two_factor_enrollment_ttl":   10,
		"app.enrollment_cleanup_interval": 15,
		"app.secure_cookies":              true,
		"app.requests_per_minute":         120,
		"app.log_level":                   "info",
		"app.port":                        8080,

		"database.type": "postgres",
		"database.port": int32(5432),

		"storage.type": ProviderNone,

		"events.type":                       ProviderMemory,
		"events.queues.notifications.name": "rentdesk-notifications",

		"activity.type": "filesystem",
		"activity.filesystem.directory": "data/activity",

		"tracing.sample_ratio": 1.0,
	}

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return fmt.Errorf("failed to load default configuration: %w", err)
	}
	return nil
}

func setIfMissing(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func loadConditionalDefaults(k *koanf.Koanf) {
	if k.String("storage.type") == ProviderS3 {
		setIfMissing(k, "storage.s3.region", "us-east-1")
		setIfMissing(k, "storage.s3.force_path_style", true)
		setIfMissing(k, "storage.s3.use_tls", true)
	}
	if k.String("storage.type") == ProviderMinio {
		setIfMissing(k, "storage.minio.force_path_style", true)
	}
	if k.String("notifier.type") == "smtp" {
		setIfMissing(k, "notifier.smtp.enable_tls", false)
		setIfMissing(k, "notifier.smtp.skip_verify_tls", false)
	}
	if k.String("events.type") == ProviderGCP {
		setIfMissing(k, "events.gcp.subscription_suffix", "-sub")
	}
	if k.String("database.type") == "postgres" {
		setIfMissing(k, "database.sslmode", "disable")
	}
}

// Load builds the configuration from defaults, the YAML file, then environment variables,
// and validates the result.
func Load() (models.Configuration, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return models.Configuration{}, err
	}
	if err := readFileConfig(k); err != nil {
		return models.Configuration{}, err
	}
	readEnvVars(k)
	loadConditionalDefaults(k)

	var config models.Configuration
	err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			Result:           &config,
			WeaklyTypedInput: true,
		},
	})
	if err != nil {
		return models.Configuration{}, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	validate := validator.New()
	if err = validate.Struct(config); err != nil {
		return models.Configuration{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func Read() models.Configuration {
	config, err := Load()
	if err != nil {
		zap.L().Fatal("Failed to read configuration", zap.Error(err))
	}
	return config
}
