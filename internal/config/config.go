package config

import (
	"encoding/json"
	"os"
	"strconv"
)

type Config struct {
	Server      ServerConfig      `json:"server"`
	Redis       RedisConfig       `json:"redis"`
	Database    DatabaseConfig    `json:"database"`
	Auth        AuthConfig        `json:"auth"`
	RateLimit   RateLimitConfig   `json:"rate_limit"`
	Entitlement EntitlementConfig `json:"entitlement"`
	Gate        GateConfig        `json:"gate"`
	AI          AIConfig          `json:"ai"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type AuthConfig struct {
	JWTSecret   string `json:"-"`
	ExpiryHours int    `json:"expiry_hours"`
}

type PolicyConfig struct {
	WindowSeconds int `json:"window_seconds"`
	MaxRequests   int `json:"max_requests"`
}

type RateLimitConfig struct {
	StoreTimeoutMs       int                     `json:"store_timeout_ms"`
	FallbackSweepSeconds int                     `json:"fallback_sweep_seconds"`
	Policies             map[string]PolicyConfig `json:"policies"`
}

type EntitlementConfig struct {
	LookupTimeoutMs int `json:"lookup_timeout_ms"`
}

type GateConfig struct {
	PreviewCharBudget int `json:"preview_char_budget"`
}

type AIConfig struct {
	Targets               []string `json:"targets"`
	HealthEndpoint        string   `json:"health_endpoint"`
	HealthIntervalSeconds int      `json:"health_interval_seconds"`
}

// Load reads the JSON config file and applies env overrides.
func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.Auth.ExpiryHours <= 0 {
		c.Auth.ExpiryHours = 24
	}
	if c.RateLimit.StoreTimeoutMs <= 0 {
		c.RateLimit.StoreTimeoutMs = 500
	}
	if c.RateLimit.FallbackSweepSeconds <= 0 {
		c.RateLimit.FallbackSweepSeconds = 300
	}
	if c.Entitlement.LookupTimeoutMs <= 0 {
		c.Entitlement.LookupTimeoutMs = 800
	}
	if c.Gate.PreviewCharBudget <= 0 {
		c.Gate.PreviewCharBudget = 500
	}
	if c.AI.HealthEndpoint == "" {
		c.AI.HealthEndpoint = "/health"
	}
	if c.AI.HealthIntervalSeconds <= 0 {
		c.AI.HealthIntervalSeconds = 10
	}
}
