package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/recallhq/recall"
)

// Config is the full server configuration, loaded from YAML with environment
// overrides. It satisfies recall.Config.
type Config struct {
	Env    string `yaml:"env" env:"APP_ENV" env-default:"local"`
	Server struct {
		Address string `yaml:"address" env:"SERVER_ADDRESS" env-default:":8080"`
	} `yaml:"http_server"`
	DB struct {
		DSN string `yaml:"dsn" env:"DB_DSN" env-default:"file:recall.db?cache=shared&mode=rwc"`
	} `yaml:"db"`
	Auth AuthConfig `yaml:"auth"`
}

type AuthConfig struct {
	Issuer                 string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"recall"`
	ContextKey             string        `yaml:"context_key" env:"AUTH_CONTEXT_KEY" env-default:"user"`
	TokenLookup            string        `yaml:"token_lookup" env:"AUTH_TOKEN_LOOKUP" env-default:"header:Authorization,cookie:accessToken"`
	AuthScheme             string        `yaml:"auth_scheme" env:"AUTH_SCHEME" env-default:"Bearer"`
	CookieSecure           bool          `yaml:"cookie_secure" env:"AUTH_COOKIE_SECURE" env-default:"true"`
	AccessTokenSecret      string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	AccessTokenExpiration  time.Duration `yaml:"access_token_expiration" env:"ACCESS_TOKEN_EXPIRATION" env-default:"15m"`
	RefreshTokenSecret     string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	RefreshTokenExpiration time.Duration `yaml:"refresh_token_expiration" env:"REFRESH_TOKEN_EXPIRATION" env-default:"720h"`
	ShareTokenSecret       string        `yaml:"share_token_secret" env:"SHARE_TOKEN_SECRET" env-required:"true"`
	ShareTokenExpiration   time.Duration `yaml:"share_token_expiration" env:"SHARE_TOKEN_EXPIRATION" env-default:"1h"`
}

func MustLoadConfig(configPath string) *Config {
	config, err := loadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if err := config.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}

	return config
}

func loadConfig(path string) (*Config, error) {
	var config Config

	if path == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, err
		}
		return &config, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if err := cleanenv.ReadConfig(path, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate enforces the secret isolation contract: all three signing secrets
// must be present and pairwise distinct, so no token kind ever validates
// under another kind's key.
func (c *Config) Validate() error {
	secrets := map[string]string{
		"access":  c.Auth.AccessTokenSecret,
		"refresh": c.Auth.RefreshTokenSecret,
		"share":   c.Auth.ShareTokenSecret,
	}

	for name, secret := range secrets {
		if secret == "" {
			return fmt.Errorf("%s token secret must not be empty", name)
		}
	}

	if c.Auth.AccessTokenSecret == c.Auth.RefreshTokenSecret ||
		c.Auth.AccessTokenSecret == c.Auth.ShareTokenSecret ||
		c.Auth.RefreshTokenSecret == c.Auth.ShareTokenSecret {
		return fmt.Errorf("access, refresh, and share token secrets must be pairwise distinct")
	}

	return nil
}

func (c *Config) GetAccessTokenSecret() string { return c.Auth.AccessTokenSecret }

func (c *Config) GetAccessTokenExpiration() time.Duration { return c.Auth.AccessTokenExpiration }

func (c *Config) GetRefreshTokenSecret() string { return c.Auth.RefreshTokenSecret }

func (c *Config) GetRefreshTokenExpiration() time.Duration { return c.Auth.RefreshTokenExpiration }

func (c *Config) GetShareTokenSecret() string { return c.Auth.ShareTokenSecret }

func (c *Config) GetShareTokenExpiration() time.Duration { return c.Auth.ShareTokenExpiration }

func (c *Config) GetIssuer() string { return c.Auth.Issuer }

func (c *Config) GetContextKey() string { return c.Auth.ContextKey }

func (c *Config) GetTokenLookup() string { return c.Auth.TokenLookup }

func (c *Config) GetAuthScheme() string { return c.Auth.AuthScheme }

func (c *Config) GetCookieSecure() bool { return c.Auth.CookieSecure }

var _ recall.Config = (*Config)(nil)
