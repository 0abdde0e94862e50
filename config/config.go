package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const minSecretKeyLength = 32

type ServerConfig struct {
	Name     string        `mapstructure:"name"`
	Host     string        `mapstructure:"host"`
	HTTPPort string        `mapstructure:"HTTPPort"`
	Timeout  time.Duration `mapstructure:"HTTPTimeout"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AuthConfig holds the process-wide signing configuration. Loaded once at
// startup and treated as immutable afterwards.
type AuthConfig struct {
	SecretKey          string `mapstructure:"secretKey"`
	TokenExpireMinutes int    `mapstructure:"tokenExpireMinutes"`
	Issuer             string `mapstructure:"issuer"`
}

type Config struct {
	Mode         string       `mapstructure:"mode"`
	Server       ServerConfig `mapstructure:"server"`
	Repositories struct {
		Postgres PostgresConfig `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Auth     AuthConfig `mapstructure:"auth"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Environment variables override file values, e.g. AUTH_SECRETKEY,
	// REPOSITORIES_POSTGRES_PASSWORD.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %s", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %s", err)
	}

	if err = config.validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("auth.secretKey must be configured")
	}
	if len(c.Auth.SecretKey) < minSecretKeyLength {
		return fmt.Errorf("auth.secretKey must be at least %d characters", minSecretKeyLength)
	}
	if c.Auth.TokenExpireMinutes <= 0 {
		return fmt.Errorf("auth.tokenExpireMinutes must be positive")
	}
	return nil
}
