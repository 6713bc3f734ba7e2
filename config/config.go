package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Persona  PersonaConfig  `mapstructure:"persona"`
}

type ServerConfig struct {
	Port           int     `mapstructure:"port"`
	Mode           string  `mapstructure:"mode"` // debug, release, test
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	Gzip           bool    `mapstructure:"gzip"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // postgres, sqlite
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"` // silent, error, warn, info
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig 活跃身份绑定的存储
type SessionConfig struct {
	Store string        `mapstructure:"store"` // redis, memory
	TTL   time.Duration `mapstructure:"ttl"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

// GraphConfig 关注图后端
type GraphConfig struct {
	Backend       string `mapstructure:"backend"` // sql, neo4j
	Neo4jURI      string `mapstructure:"neo4j_uri"`
	Neo4jUser     string `mapstructure:"neo4j_user"`
	Neo4jPassword string `mapstructure:"neo4j_password"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Env   string `mapstructure:"env"` // development, production
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	SentryDSN    string `mapstructure:"sentry_dsn"`
}

// PersonaConfig 身份格式策略（名称最多几个分组）
type PersonaConfig struct {
	NameMaxGroups int `mapstructure:"name_max_groups"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.rate_limit_rps", 50)
	v.SetDefault("server.rate_limit_burst", 100)
	v.SetDefault("server.gzip", true)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=personas port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.store", "redis")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", 24*time.Hour)

	v.SetDefault("graph.backend", "sql")
	v.SetDefault("graph.neo4j_uri", "bolt://localhost:7687")
	v.SetDefault("graph.neo4j_user", "neo4j")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "development")

	v.SetDefault("tracing.service_name", "persona-graph")
	v.SetDefault("tracing.otlp_endpoint", "localhost:4318")

	v.SetDefault("persona.name_max_groups", 6)
}

// Load 读取 config.yaml 与 PERSONA_ 前缀的环境变量
func Load() (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	setDefaults(v)

	v.SetEnvPrefix("PERSONA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查枚举项与必填项
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Session.Store {
	case "redis", "memory":
	default:
		return fmt.Errorf("config: unsupported session store %q", c.Session.Store)
	}
	switch c.Graph.Backend {
	case "sql", "neo4j":
	default:
		return fmt.Errorf("config: unsupported graph backend %q", c.Graph.Backend)
	}
	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		return errors.New("config: jwt.secret is required in release mode")
	}
	if c.Persona.NameMaxGroups < 1 {
		return fmt.Errorf("config: persona.name_max_groups must be positive, got %d", c.Persona.NameMaxGroups)
	}
	return nil
}

// Addr 返回 HTTP 监听地址
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }
