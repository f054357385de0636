package entity

import (
	"time"

	"github.com/korjavin/echobridge/internal/domain/valueobject"
)

// Message 邮箱中的一条消息
type Message struct {
	id        int64
	voiceID   string
	content   valueobject.MessageContent
	isRead    bool
	createdAt time.Time
}

// NewMessage 创建新消息（工厂方法）, id 由存储层分配
func NewMessage(voiceID string, content valueobject.MessageContent) (*Message, error) {
	if voiceID == "" {
		return nil, ErrInvalidVoiceID
	}
	return &Message{
		voiceID:   voiceID,
		content:   content,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructMessage 重建消息（用于从持久化层恢复）
func ReconstructMessage(
	id int64,
	voiceID string,
	content valueobject.MessageContent,
	isRead bool,
	createdAt time.Time,
) *Message {
	return &Message{
		id:        id,
		voiceID:   voiceID,
		content:   content,
		isRead:    isRead,
		createdAt: createdAt,
	}
}

// ID 返回消息ID
func (m *Message) ID() int64 {
	return m.id
}

// AssignID is called once by the store after insertion.
func (m *Message) AssignID(id int64) {
	if m.id == 0 {
		m.id = id
	}
}

// VoiceID 返回收件人
func (m *Message) VoiceID() string {
	return m.voiceID
}

// Content 返回消息内容
func (m *Message) Content() valueobject.MessageContent {
	return m.content
}

// Kind 消息类型
func (m *Message) Kind() valueobject.MessageKind {
	return m.content.Kind()
}

// Payload 文本内容或音频文件名
func (m *Message) Payload() string {
	return m.content.Payload()
}

// IsRead 是否已读
func (m *Message) IsRead() bool {
	return m.isRead
}

// MarkRead 标记已读, 已读状态不可回退
func (m *Message) MarkRead() {
	m.isRead = true
}

// CreatedAt 返回创建时间
func (m *Message) CreatedAt() time.Time {
	return m.createdAt
}

// IsVoice 判断是否为语音消息
func (m *Message) IsVoice() bool {
	return m.content.Kind() == valueobject.MessageKindVoice
}
