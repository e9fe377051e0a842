package config

import (
	"errors"
	"os"
	"time"
)

// ClientConfig は cmd/station と cmd/customer が使う設定
type ClientConfig struct {
	APIBaseURL   string        // APIのURL（http://localhost:8080）
	StaffToken   string        // スタッフ用JWT
	PollInterval time.Duration // 画面ごとのポーリング間隔
	FetchTimeout time.Duration // 1回の取得のタイムアウト
	CartDBPath   string        // 端末内のカート保存先（SQLite）
	DeviceID     string
	LogLevel     string
}

func LoadClient() (ClientConfig, error) {
	cfg := ClientConfig{
		APIBaseURL: getenv("API_BASE_URL", "http://localhost:8080"),
		StaffToken: os.Getenv("STAFF_TOKEN"),
		CartDBPath: getenv("CART_DB_PATH", "cart.db"),
		DeviceID:   getenv("DEVICE_ID", "default"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
	}

	var err error
	if cfg.PollInterval, err = durationDefault("POLL_INTERVAL", 3*time.Second); err != nil {
		return ClientConfig{}, err
	}
	if cfg.FetchTimeout, err = durationDefault("FETCH_TIMEOUT", 5*time.Second); err != nil {
		return ClientConfig{}, err
	}
	if cfg.PollInterval <= 0 {
		return ClientConfig{}, errors.New("POLL_INTERVAL must be positive")
	}
	if cfg.FetchTimeout <= 0 || cfg.FetchTimeout > cfg.PollInterval*10 {
		return ClientConfig{}, errors.New("FETCH_TIMEOUT must be positive and bounded")
	}
	return cfg, nil
}
