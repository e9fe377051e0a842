package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	Storage string // postgres / memory

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	RedisAddr     string // 空ならメモリのセッションストア
	RedisPassword string
	RedisDB       int

	JWTSecret string // JWT署名シークレット

	SessionTTL time.Duration // テーブルセッションの有効期間

	PaymentBaseURL string // 決済ページのURL
	PaymentSecret  string // コールバック署名の鍵

	// 料率が未設定のときの既定値
	DefaultServiceChargeRate decimal.Decimal
	DefaultTaxRate           decimal.Decimal

	RequestTimeout time.Duration
	// POST /orders の1秒あたりの上限（0で無効）
	OrderRateLimit float64

	LogLevel string

	// 開発用のメニューと客席を投入する
	SeedDemo bool
}

// LoadEnvFiles は存在する .env だけを読み込む（既存の環境変数は上書きしない）
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		Storage: getenv("STORAGE", StoragePostgres),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "tableorder"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		PaymentBaseURL: getenv("PAYMENT_BASE_URL", "https://pay.example.com/checkout"),
		PaymentSecret:  os.Getenv("PAYMENT_SECRET"),

		LogLevel: getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PostgresPort, err = atoiDefault("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = atoiDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = durationDefault("SESSION_TTL", 3*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationDefault("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.DefaultServiceChargeRate, err = decimalDefault("DEFAULT_SERVICE_CHARGE_RATE", "0.07"); err != nil {
		return Config{}, err
	}
	if cfg.DefaultTaxRate, err = decimalDefault("DEFAULT_TAX_RATE", "0.10"); err != nil {
		return Config{}, err
	}
	if v := os.Getenv("ORDER_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("ORDER_RATE_LIMIT must be number: %w", err)
		}
		cfg.OrderRateLimit = f
	}

	seedDef := "false"
	if cfg.Storage == StorageMemory {
		seedDef = "true"
	}
	if cfg.SeedDemo, err = strconv.ParseBool(getenv("SEED_DEMO", seedDef)); err != nil {
		return Config{}, fmt.Errorf("SEED_DEMO must be bool: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	//必須チェック
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.PaymentSecret == "" {
		return errors.New("PAYMENT_SECRET is required")
	}
	if c.Storage != StoragePostgres && c.Storage != StorageMemory {
		return fmt.Errorf("STORAGE must be %q or %q", StoragePostgres, StorageMemory)
	}
	if c.DefaultServiceChargeRate.IsNegative() || c.DefaultTaxRate.IsNegative() {
		return errors.New("default rates must not be negative")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	return nil
}

// PostgresDSN は DATABASE_URL がなければ個別の値から組み立てる
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func (c Config) Addr() string {
	if c.Port != "" && c.Port[0] == ':' {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func decimalDefault(key string, def string) (decimal.Decimal, error) {
	v := getenv(key, def)
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s must be decimal: %w", key, err)
	}
	return d, nil
}
