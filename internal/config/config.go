package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hyperbill/cashier/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Chip       ChipConfig       `validate:"required"`
	Webhook    WebhookConfig    `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

// ChipConfig configures the outbound gateway client. All gateway calls are
// bounded by Timeout; RetryMax/RetryWait apply at the transport layer only.
type ChipConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	APIKey    string        `mapstructure:"api_key"`
	BrandID   string        `mapstructure:"brand_id"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RetryMax  int           `mapstructure:"retry_max"`
	RetryWait time.Duration `mapstructure:"retry_wait"`
}

// WebhookConfig configures inbound webhook verification. An empty Secret
// skips signature verification entirely; that is a development convenience,
// never a safe production default.
type WebhookConfig struct {
	Secret    string        `mapstructure:"secret"`
	Tolerance time.Duration `mapstructure:"tolerance"`
}

// BillingConfig replaces the original's process-wide billing defaults with
// explicit configuration passed into service constructors.
type BillingConfig struct {
	DefaultCurrency string `mapstructure:"default_currency"`
	// PlanAmounts maps a plan id to its per-cycle amount in minor units.
	// Used to synthesize forecast invoices for active subscriptions.
	PlanAmounts map[string]int64 `mapstructure:"plan_amounts"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

func NewConfig() (*Configuration, error) {
	// Optional .env for local development
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/cashier")

	v.SetEnvPrefix("CASHIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("chip.api_url", "https://gate.chip-in.asia/api/v1")
	v.SetDefault("chip.timeout", 30*time.Second)
	v.SetDefault("chip.retry_max", 3)
	v.SetDefault("chip.retry_wait", time.Second)
	v.SetDefault("webhook.tolerance", 300*time.Second)
	v.SetDefault("billing.default_currency", "myr")
	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Chip: ChipConfig{
			APIURL:    "https://gate.chip-in.asia/api/v1",
			Timeout:   30 * time.Second,
			RetryMax:  3,
			RetryWait: time.Second,
		},
		Webhook: WebhookConfig{Tolerance: 300 * time.Second},
		Billing: BillingConfig{
			DefaultCurrency: "myr",
			PlanAmounts:     map[string]int64{},
		},
		Logging: LoggingConfig{Level: types.LogLevelDebug},
	}
}
