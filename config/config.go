package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"launchpad/models"
	"launchpad/utils"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB        *gorm.DB
	Redis     *redis.Client
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
	Prefix   string `json:"prefix"`
}

type OracleConfig struct {
	URL     string        `json:"url" validate:"omitempty,url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

type Config struct {
	Environment    string `json:"environment"`
	LogLevel       string `json:"log_level"`
	ServerPort     string `json:"server_port" validate:"required"`
	StoreDriver    string `json:"store_driver" validate:"oneof=postgres memory"`
	RealtimeDriver string `json:"realtime_driver" validate:"oneof=hub redis"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis  RedisConfig  `json:"redis"`
	Oracle OracleConfig `json:"oracle"`

	JWTSecret   string   `json:"-" validate:"required,min=16"`
	SentryDSN   string   `json:"-"`
	CORSOrigins []string `json:"cors_origins"`

	CommandRateLimit   int           `json:"command_rate_limit" validate:"min=1"`
	DirectoryStaleness time.Duration `json:"directory_staleness"`
	DirectoryRefresh   time.Duration `json:"directory_refresh"`
	PresenceChannel    string        `json:"presence_channel" validate:"required"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
	envLoaded = true
}

func LoadConfig() error {
	AppConfig = Config{
		Environment:    getEnv("ENVIRONMENT", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServerPort:     getEnv("SERVER_PORT", "5000"),
		StoreDriver:    getEnv("STORE_DRIVER", "postgres"),
		RealtimeDriver: getEnv("REALTIME_DRIVER", "hub"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "launchpad"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "launchpad"),
		},
		Oracle: OracleConfig{
			URL:     getEnv("ORACLE_URL", ""),
			APIKey:  getEnv("ORACLE_API_KEY", ""),
			Timeout: getEnvAsDuration("ORACLE_TIMEOUT", 20*time.Second),
		},

		JWTSecret:   getEnv("JWT_SECRET", ""),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		CommandRateLimit:   getEnvAsInt("COMMAND_RATE_LIMIT", 30),
		DirectoryStaleness: getEnvAsDuration("DIRECTORY_STALENESS", 2*time.Minute),
		DirectoryRefresh:   getEnvAsDuration("DIRECTORY_REFRESH_INTERVAL", time.Minute),
		PresenceChannel:    getEnv("PRESENCE_CHANNEL", "program"),
	}

	if err := utils.ValidateStruct(AppConfig); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate driver dependent configurations
	if AppConfig.StoreDriver == "postgres" && AppConfig.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required when STORE_DRIVER=postgres")
	}
	if AppConfig.RealtimeDriver == "redis" && !AppConfig.Redis.Enabled {
		return fmt.Errorf("REDIS_ENABLED must be true when REALTIME_DRIVER=redis")
	}
	if AppConfig.Environment == "production" && AppConfig.StoreDriver == "memory" {
		return fmt.Errorf("STORE_DRIVER=memory is not allowed in production")
	}

	logConfig()
	return nil
}

// SetupLogger configures the standard logrus logger from AppConfig
func SetupLogger() {
	level, err := logrus.ParseLevel(AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if AppConfig.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func ConnectDB() error {
	logrus.Info("Attempting to connect to database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	logrus.WithField("dsn", maskPassword(dsn)).Debug("Using connection string")

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logrus.Info("Successfully connected to the database")

	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	logrus.Info("Database migration completed")
	return nil
}

// ConnectRedis opens the shared Redis client used by the realtime transport
// and the rate limiter.
func ConnectRedis(ctx context.Context) error {
	Redis = redis.NewClient(&redis.Options{
		Addr:     AppConfig.Redis.Address,
		Password: AppConfig.Redis.Password,
		DB:       AppConfig.Redis.DB,
	})
	if err := Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	logrus.WithField("address", AppConfig.Redis.Address).Info("Connected to Redis")
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		logrus.Warnf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	d, err := time.ParseDuration(valueStr)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	logrus.WithFields(logrus.Fields{
		"environment":     AppConfig.Environment,
		"port":            AppConfig.ServerPort,
		"store_driver":    AppConfig.StoreDriver,
		"realtime_driver": AppConfig.RealtimeDriver,
		"database":        fmt.Sprintf("%s@%s:%s/%s", AppConfig.DBUser, AppConfig.DBHost, AppConfig.DBPort, AppConfig.DBName),
		"redis":           AppConfig.Redis.Enabled,
		"oracle":          AppConfig.Oracle.URL != "",
		"sentry":          AppConfig.SentryDSN != "",
	}).Info("Loaded configuration")
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Team{},
		&models.Profile{},
		&models.Update{},
		&models.TeamStatus{},
		&models.Message{},
	)
}
