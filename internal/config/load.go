package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar overrides where the YAML file is looked for.
const PathEnvVar = "YAMDB_CONFIG"

const defaultPath = "config.yaml"

// envMappings maps lower-cased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	"yamdb_host":             "server.host",
	"yamdb_port":             "server.port",
	"yamdb_read_timeout":     "server.read_timeout",
	"yamdb_write_timeout":    "server.write_timeout",
	"yamdb_request_timeout":  "server.request_timeout",
	"yamdb_shutdown_timeout": "server.shutdown_timeout",

	"yamdb_db_path": "database.path",

	"yamdb_jwt_secret":            "auth.jwt_secret",
	"yamdb_jwt_issuer":            "auth.issuer",
	"yamdb_token_ttl":             "auth.token_ttl",
	"yamdb_confirmation_code_ttl": "auth.confirmation_code_ttl",
	"yamdb_bcrypt_cost":           "auth.bcrypt_cost",

	"yamdb_mail_backend":              "mail.backend",
	"yamdb_mail_from":                 "mail.from",
	"yamdb_smtp_host":                 "mail.smtp_host",
	"yamdb_smtp_port":                 "mail.smtp_port",
	"yamdb_smtp_username":             "mail.smtp_username",
	"yamdb_smtp_password":             "mail.smtp_password",
	"yamdb_smtp_starttls":             "mail.smtp_starttls",
	"yamdb_mail_send_timeout":         "mail.send_timeout",
	"yamdb_mail_rate_per_second":      "mail.rate_per_second",
	"yamdb_mail_burst":                "mail.burst",
	"yamdb_mail_breaker_max_failures": "mail.breaker_max_failures",
	"yamdb_mail_breaker_timeout":      "mail.breaker_timeout",

	"yamdb_default_page_size": "api.default_page_size",
	"yamdb_max_page_size":     "api.max_page_size",

	"yamdb_cors_origins":             "security.cors_origins",
	"yamdb_rate_limit_requests":      "security.rate_limit_requests",
	"yamdb_auth_rate_limit_requests": "security.auth_rate_limit_requests",
	"yamdb_rate_limit_window":        "security.rate_limit_window",

	"yamdb_log_level":  "logging.level",
	"yamdb_log_format": "logging.format",
}

// sliceKeys arrive from the environment as comma-separated strings.
var sliceKeys = []string{"security.cors_origins"}

func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds the configuration from defaults, the optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: loading defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}
	return ""
}

// splitSlices turns "a, b" strings from the environment into []string.
// Values that came from YAML are already slices and are left alone.
func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("config: setting %s: %w", key, err)
		}
	}
	return nil
}
