package models

import "time"

// IdentityPairModel 聊天身份与语音身份的一一映射
type IdentityPairModel struct {
	ChatID    string    `gorm:"primaryKey;size:64"`
	VoiceID   string    `gorm:"uniqueIndex;size:512;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (IdentityPairModel) TableName() string {
	return "identity_pairs"
}

// PendingCodeModel 待兑换的配对码
type PendingCodeModel struct {
	Code      string    `gorm:"primaryKey;size:6"`
	VoiceID   string    `gorm:"index;size:512;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
}

// TableName 指定表名
func (PendingCodeModel) TableName() string {
	return "pending_codes"
}
