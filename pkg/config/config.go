package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env            string
	Port           int
	APIPrefix      string
	TrustedProxies []string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Links    LinksConfig
	Argon2   Argon2Config
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LinksConfig holds disclosure link policy.
type LinksConfig struct {
	// BaseURL prefixes "/s/<token>" in issued links. It points either at a
	// recipient front end or at this API's mount, which is the default.
	BaseURL         string
	MaxLifetime     time.Duration
	ConcealNotFound bool
	AttemptLimit    int
	AttemptWindow   time.Duration
	TokenRetries    int
	ResourceTypes   []string
}

// Argon2Config tunes the password KDF used for link passwords.
type Argon2Config struct {
	MemoryKiB     uint32
	Iterations    uint32
	Parallelism   uint8
	MaxConcurrent int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.TrustedProxies = splitAndTrim(v.GetString("TRUSTED_PROXIES"))

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	baseURL := v.GetString("LINKS_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d%s", cfg.Port, cfg.APIPrefix)
	}

	cfg.Links = LinksConfig{
		BaseURL:         strings.TrimRight(baseURL, "/"),
		MaxLifetime:     parseDuration(v.GetString("LINKS_MAX_LIFETIME"), 30*24*time.Hour),
		ConcealNotFound: v.GetBool("LINKS_CONCEAL_NOT_FOUND"),
		AttemptLimit:    v.GetInt("LINKS_ATTEMPT_LIMIT"),
		AttemptWindow:   parseDuration(v.GetString("LINKS_ATTEMPT_WINDOW"), 15*time.Minute),
		TokenRetries:    v.GetInt("LINKS_TOKEN_RETRIES"),
		ResourceTypes:   splitAndTrim(v.GetString("LINKS_RESOURCE_TYPES")),
	}

	cfg.Argon2 = Argon2Config{
		MemoryKiB:     v.GetUint32("ARGON2_MEMORY_KIB"),
		Iterations:    v.GetUint32("ARGON2_ITERATIONS"),
		Parallelism:   uint8(v.GetUint("ARGON2_PARALLELISM")),
		MaxConcurrent: v.GetInt("ARGON2_MAX_CONCURRENT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("TRUSTED_PROXIES", "")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "compliance_links")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("LINKS_MAX_LIFETIME", "720h")
	v.SetDefault("LINKS_CONCEAL_NOT_FOUND", true)
	v.SetDefault("LINKS_ATTEMPT_LIMIT", 10)
	v.SetDefault("LINKS_ATTEMPT_WINDOW", "15m")
	v.SetDefault("LINKS_TOKEN_RETRIES", 3)
	v.SetDefault("LINKS_RESOURCE_TYPES", "employees,drug-tests,background-checks,dot-records,trainings")

	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("ARGON2_MAX_CONCURRENT", 4)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
