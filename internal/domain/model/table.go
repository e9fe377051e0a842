package model

import "time"

// 客席。QRコードの値からテーブルを引く。
type DiningTable struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Number   int    `gorm:"not null;uniqueIndex" json:"number"`
	QRCode   string `gorm:"type:varchar(128);not null;uniqueIndex" json:"-"`
	IsActive bool   `gorm:"not null;default:false" json:"is_active"`
}

// テーブルに紐づいたセッション（Redisに保存）
type TableSession struct {
	Token       string    `json:"token"`
	TableNumber int       `json:"table_number"`
	ExpiresAt   time.Time `json:"expires_at"`
}
