package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds the verifier configuration: the three positional
// command-line arguments plus tunables parsed from environment
// variables.
type AppConfig struct {
	// CurrentFile is the rule list before the change.
	CurrentFile string `koanf:"-" validate:"required"`

	// PullRequestFile is the rule list after the change.
	PullRequestFile string `koanf:"-" validate:"required"`

	// PullRequestID is the pull request the DNS proofs must reference.
	PullRequestID int `koanf:"-" validate:"required,gte=1"`

	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Nameservers is a list of DNS servers in ip:port format. Empty
	// means the system resolvers.
	Nameservers []string `koanf:"nameservers" validate:"omitempty,dive,ip_port"`

	// Timeout bounds each individual DNS query.
	Timeout time.Duration `koanf:"timeout" validate:"required,gt=0"`

	// CacheSize bounds the per-run TXT answer cache.
	CacheSize int `koanf:"cache_size" validate:"required,gte=1"`

	// DisableCache bypasses the TXT answer cache entirely.
	DisableCache bool `koanf:"disable_cache"`
}

// DEFAULT_APP_CONFIG defines the default settings for the verifier.
// The file paths and pull request id have no defaults; they always
// come from the command line.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:       "prod",
	LogLevel:  "info",
	Timeout:   5 * time.Second,
	CacheSize: 256,
}

// validIPPort validates whether the provided field value is a valid IP address and port
// combination in the format "IP:Port".
func validIPPort(fl validator.FieldLevel) bool {
	addr := fl.Field().String()
	ip, port, err := net.SplitHostPort(addr)
	if err != nil || ip == "" || port == "" {
		return false
	}
	if net.ParseIP(ip) == nil {
		return false
	}
	portNum, err := strconv.ParseUint(port, 10, 16)
	return err == nil && portNum > 0 && portNum < 65536
}

// envLoader loads environment variables with the prefix "PSL_",
// lowercasing keys and splitting list values on spaces or commas.
// It is a package variable so tests can swap it out.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "PSL_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "PSL_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG into the koanf instance via
// the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the custom "ip_port" validation rule.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("ip_port", validIPPort)
}

// Load builds an AppConfig from the positional command-line arguments
// (current file, pull request file, pull request id) and PSL_-prefixed
// environment variables, applying defaults and validation.
func Load(args []string) (*AppConfig, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("expected 3 arguments (current_rules_file pull_request_rules_file pr_id), got %d", len(args))
	}

	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	cfg.CurrentFile = args[0]
	cfg.PullRequestFile = args[1]

	prID, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, fmt.Errorf("pr_id must be an integer: %w", err)
	}
	cfg.PullRequestID = prID

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidation(validate); err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
