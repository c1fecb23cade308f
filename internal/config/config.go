package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"vibepay/internal/models"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Auth struct {
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTLMins int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	Payment struct {
		DefaultGateway string `yaml:"default_gateway"`
		MinCardAmount  int64  `yaml:"min_card_amount"`
		Inicis         struct {
			APIURL  string `yaml:"api_url"`
			MID     string `yaml:"mid"`
			SignKey string `yaml:"sign_key"`
		} `yaml:"inicis"`
		Toss struct {
			APIURL    string `yaml:"api_url"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"toss"`
	} `yaml:"payment"`
	Points struct {
		InitialBalance int64 `yaml:"initial_balance"`
	} `yaml:"points"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("TOKEN_TTL_MINUTES"); v != "" {
		cfg.Auth.TokenTTLMins = atoiOr(cfg.Auth.TokenTTLMins, v)
	}
	if v := os.Getenv("DEFAULT_GATEWAY"); v != "" {
		cfg.Payment.DefaultGateway = v
	}
	if v := os.Getenv("MIN_CARD_AMOUNT"); v != "" {
		cfg.Payment.MinCardAmount = atoi64Or(cfg.Payment.MinCardAmount, v)
	}
	if v := os.Getenv("INICIS_API_URL"); v != "" {
		cfg.Payment.Inicis.APIURL = v
	}
	if v := os.Getenv("INICIS_MID"); v != "" {
		cfg.Payment.Inicis.MID = v
	}
	if v := os.Getenv("INICIS_SIGN_KEY"); v != "" {
		cfg.Payment.Inicis.SignKey = v
	}
	if v := os.Getenv("TOSS_API_URL"); v != "" {
		cfg.Payment.Toss.APIURL = v
	}
	if v := os.Getenv("TOSS_SECRET_KEY"); v != "" {
		cfg.Payment.Toss.SecretKey = v
	}
	if v := os.Getenv("INITIAL_POINT_BALANCE"); v != "" {
		cfg.Points.InitialBalance = atoi64Or(cfg.Points.InitialBalance, v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.TokenTTLMins == 0 {
		cfg.Auth.TokenTTLMins = 60
	}
	if cfg.Payment.MinCardAmount == 0 {
		cfg.Payment.MinCardAmount = 100
	}
	if cfg.Points.InitialBalance == 0 {
		cfg.Points.InitialBalance = 100000
	}
	if cfg.Payment.Inicis.APIURL == "" {
		cfg.Payment.Inicis.APIURL = "https://iniapi.inicis.com"
	}
	if cfg.Payment.Toss.APIURL == "" {
		cfg.Payment.Toss.APIURL = "https://api.tosspayments.com"
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return errors.New("db.dsn is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	// Unknown gateway keys are rejected here, not at call time.
	switch models.GatewayType(cfg.Payment.DefaultGateway) {
	case models.GatewayInicis, models.GatewayToss:
	default:
		return fmt.Errorf("payment.default_gateway is not a supported gateway: %q", cfg.Payment.DefaultGateway)
	}
	if cfg.Payment.Inicis.MID == "" || cfg.Payment.Inicis.SignKey == "" {
		return errors.New("payment.inicis credentials are incomplete")
	}
	if cfg.Payment.Toss.SecretKey == "" {
		return errors.New("payment.toss credentials are incomplete")
	}
	return nil
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
