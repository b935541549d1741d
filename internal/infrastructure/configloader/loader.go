package configloader

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"wallet_session/internal/domain/entity"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string   `yaml:"port" validate:"required"`
	ReadTimeout  int      `yaml:"readTimeout"`
	WriteTimeout int      `yaml:"writeTimeout"`
	IdleTimeout  int      `yaml:"idleTimeout"`
	CORSOrigins  []string `yaml:"corsOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	Handler string `yaml:"handler" validate:"omitempty,oneof=slogzap zapslog"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	SpecFile string `yaml:"specFile"`
}

// MetricsConfig toggles the Prometheus recorder and /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MemoryProviderConfig seeds the in-memory wallet.
type MemoryProviderConfig struct {
	PrivateKeyHex    string   `yaml:"privateKeyHex"`
	ChainID          string   `yaml:"chainId"`
	KnownChains      []string `yaml:"knownChains"`
	NativeBalanceWei string   `yaml:"nativeBalanceWei"`
	Authorized       bool     `yaml:"authorized"`
}

// ProviderConfig selects and configures the wallet provider.
type ProviderConfig struct {
	Mode                 string               `yaml:"mode" validate:"oneof=rpc memory"`
	URLs                 []string             `yaml:"urls" validate:"required_if=Mode rpc,dive,url"`
	RequestTimeoutMillis int64                `yaml:"requestTimeoutMillis"`
	ConnectTimeoutSecs   int                  `yaml:"connectTimeoutSeconds"`
	PollIntervalMillis   int64                `yaml:"pollIntervalMillis"`
	PollBurst            int                  `yaml:"pollBurst"`
	Memory               MemoryProviderConfig `yaml:"memory"`
}

// PaymentConfig describes where and how verification fees are paid.
type PaymentConfig struct {
	FeeChainID       string                  `yaml:"feeChainId" validate:"required"`
	TokensDir        string                  `yaml:"tokensDir"`
	Tokens           []entity.TokenInfo      `yaml:"tokens" validate:"dive"`
	DefaultDirective entity.PaymentDirective `yaml:"defaultDirective"`
}

// MockVerifierConfig is the fixed outcome returned by the mock verifier.
type MockVerifierConfig struct {
	Verified  bool                     `yaml:"verified"`
	Reason    string                   `yaml:"reason"`
	Directive *entity.PaymentDirective `yaml:"directive"`
}

// VerifierConfig selects and configures the identity verifier.
type VerifierConfig struct {
	Mode                 string             `yaml:"mode" validate:"oneof=callback mock"`
	StartURL             string             `yaml:"startURL" validate:"required_if=Mode callback"`
	CallbackURL          string             `yaml:"callbackURL"`
	Scope                string             `yaml:"scope"`
	TimeoutSeconds       int                `yaml:"timeoutSeconds"`
	RequestTimeoutMillis int64              `yaml:"requestTimeoutMillis"`
	Mock                 MockVerifierConfig `yaml:"mock"`
}

// RecordsConfig selects where completed verification records go.
type RecordsConfig struct {
	Mode                 string `yaml:"mode" validate:"oneof=memory http"`
	Endpoint             string `yaml:"endpoint" validate:"required_if=Mode http"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// CacheConfig holds configuration for caching.
type CacheConfig struct {
	BalanceTTLSeconds      int `yaml:"balanceTTLSeconds"`
	CleanupIntervalSeconds int `yaml:"cleanupIntervalSeconds"`
}

// IdentityConfig configures identity linking.
type IdentityConfig struct {
	VerifySignatures bool `yaml:"verifySignatures"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"maxConcurrentRoutines"`
	RPCCallTimeoutSeconds int `yaml:"rpcCallTimeoutSeconds"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig               `yaml:"server"`
	Logging     LoggingConfig              `yaml:"logging"`
	Swagger     SwaggerConfig              `yaml:"swagger"`
	Metrics     MetricsConfig              `yaml:"metrics"`
	Provider    ProviderConfig             `yaml:"provider"`
	Networks    []entity.NetworkDescriptor `yaml:"networks" validate:"dive"`
	Payment     PaymentConfig              `yaml:"payment"`
	Verifier    VerifierConfig             `yaml:"verifier"`
	Records     RecordsConfig              `yaml:"records"`
	Cache       CacheConfig                `yaml:"cache"`
	Identity    IdentityConfig             `yaml:"identity"`
	Performance PerformanceConfig          `yaml:"performance"`
}

var validate = validator.New()

// Load reads the YAML configuration file from the given path, applies defaults and
// validates the result.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals raw YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.Errorf("Failed to unmarshal config data: %v", err)
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate.Struct(&cfg); err != nil {
		logrus.Errorf("Configuration is invalid: %v", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Logging.Handler == "" {
		cfg.Logging.Handler = "slogzap"
	}
	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "/swagger"
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}

	if cfg.Provider.Mode == "" {
		cfg.Provider.Mode = "memory"
		logrus.Infof("Provider.Mode not set, defaulting to %s", cfg.Provider.Mode)
	}
	if cfg.Provider.RequestTimeoutMillis <= 0 {
		cfg.Provider.RequestTimeoutMillis = 10000
	}
	if cfg.Provider.ConnectTimeoutSecs <= 0 {
		cfg.Provider.ConnectTimeoutSecs = 120
	}
	if cfg.Provider.PollIntervalMillis <= 0 {
		cfg.Provider.PollIntervalMillis = 1000
	}
	if cfg.Provider.PollBurst <= 0 {
		cfg.Provider.PollBurst = 1
	}

	if cfg.Payment.FeeChainID == "" {
		cfg.Payment.FeeChainID = "0xaef3"
		logrus.Infof("Payment.FeeChainID not set, defaulting to %s", cfg.Payment.FeeChainID)
	}
	if cfg.Payment.TokensDir == "" {
		cfg.Payment.TokensDir = "data/tokens"
	}
	if cfg.Payment.DefaultDirective.Amount == "" {
		cfg.Payment.DefaultDirective = entity.PaymentDirective{
			Required:         true,
			Amount:           "0.001",
			Currency:         "CELO",
			RecipientAddress: "0xBDDd946e2B547496Ddb0e507ECCCde35D1AF9597",
			Description:      "Verification fee for Self identity verification",
		}
		logrus.Infof("Payment.DefaultDirective not set, defaulting to %s %s", cfg.Payment.DefaultDirective.Amount, cfg.Payment.DefaultDirective.Currency)
	}

	if cfg.Verifier.Mode == "" {
		cfg.Verifier.Mode = "mock"
		logrus.Warnf("Verifier.Mode not set, defaulting to %s", cfg.Verifier.Mode)
	}
	if cfg.Verifier.TimeoutSeconds <= 0 {
		cfg.Verifier.TimeoutSeconds = 120
	}
	if cfg.Verifier.RequestTimeoutMillis <= 0 {
		cfg.Verifier.RequestTimeoutMillis = 10000
	}

	if cfg.Records.Mode == "" {
		cfg.Records.Mode = "memory"
	}
	if cfg.Records.RequestTimeoutMillis <= 0 {
		cfg.Records.RequestTimeoutMillis = 5000
	}

	if cfg.Cache.BalanceTTLSeconds <= 0 {
		cfg.Cache.BalanceTTLSeconds = 30
	}
	if cfg.Cache.CleanupIntervalSeconds <= 0 {
		cfg.Cache.CleanupIntervalSeconds = 60
	}

	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 10
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
}
