package models

import "time"

// MessageModel 数据库消息模型
type MessageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	VoiceID   string    `gorm:"index:idx_messages_voice_read,priority:1;size:512;not null"`
	Kind      string    `gorm:"size:16;not null"` // TEXT, VOICE
	Payload   string    `gorm:"type:text;not null"`
	IsRead    bool      `gorm:"index:idx_messages_voice_read,priority:2;not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName 指定表名
func (MessageModel) TableName() string {
	return "messages"
}
