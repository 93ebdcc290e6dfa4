package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	// Driver is "mysql" or "sqlite".
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	Path         string `mapstructure:"path"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type EtcdConfig struct {
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type MongoDBConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type TelegramConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// ExpiresIn accepts plain seconds or <n>s|m|h|d.
	ExpiresIn string `mapstructure:"expires_in"`
}

type AdminConfig struct {
	// TelegramIDs is the comma separated allow-list as read from the
	// environment; use IDs() for the parsed form.
	TelegramIDs string `mapstructure:"telegram_ids"`
}

type CORSConfig struct {
	Origin string `mapstructure:"origin"`
}

type PaymentsConfig struct {
	// DevMarkPaid exposes the unauthenticated mark-paid endpoint.
	DevMarkPaid bool `mapstructure:"dev_mark_paid"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

// envBindings maps config keys to the environment variable names the
// storefront has always been deployed with.
var envBindings = map[string]string{
	"server.port":              "PORT",
	"database.driver":          "DATABASE_DRIVER",
	"database.dsn":             "DATABASE_DSN",
	"redis.addr":               "REDIS_ADDR",
	"mongodb.uri":              "MONGODB_URI",
	"telegram.bot_token":       "TELEGRAM_BOT_TOKEN",
	"telegram.public_base_url": "PUBLIC_BASE_URL",
	"jwt.secret":               "JWT_SECRET",
	"jwt.expires_in":           "JWT_EXPIRES_IN",
	"admin.telegram_ids":       "ADMIN_TELEGRAM_IDS",
	"cors.origin":              "CORS_ORIGIN",
	"payments.dev_mark_paid":   "PAYMENTS_DEV_MARK_PAID",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront-api")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 4000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "storefront.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("mongodb.database", "storefront")
	v.SetDefault("mongodb.collection", "audit_logs")
	v.SetDefault("telegram.public_base_url", "http://localhost:4000")
	v.SetDefault("jwt.expires_in", "7d")
	v.SetDefault("cors.origin", "http://localhost:3000")
	v.SetDefault("cache.ttl", time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads the YAML file at configPath (optional when empty or
// missing) and applies environment overrides on top of it.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func (c *DatabaseConfig) MySQLDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func (c *DatabaseConfig) SQLitePath() string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.Path
}

// IDs parses the comma separated allow-list. Blank and non-numeric
// entries are skipped.
func (c *AdminConfig) IDs() []int64 {
	var ids []int64
	for _, part := range strings.Split(c.TelegramIDs, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
