package valueobject

import (
	"path"
	"strings"
)

// MessageKind 消息类型
type MessageKind string

const (
	MessageKindText  MessageKind = "TEXT"
	MessageKindVoice MessageKind = "VOICE"
)

// ParseMessageKind accepts the wire spelling of a kind, case-insensitively.
func ParseMessageKind(s string) (MessageKind, bool) {
	switch MessageKind(strings.ToUpper(strings.TrimSpace(s))) {
	case MessageKindText:
		return MessageKindText, true
	case MessageKindVoice:
		return MessageKindVoice, true
	}
	return "", false
}

// Valid 判断类型是否合法
func (k MessageKind) Valid() bool {
	return k == MessageKindText || k == MessageKindVoice
}

// MessageContent 消息内容值对象（不可变）
//
// For TEXT the payload is the literal text. For VOICE it is the bare filename
// of an asset; never a path or URL.
type MessageContent struct {
	kind    MessageKind
	payload string
}

// NewMessageContent 创建消息内容值对象
func NewMessageContent(kind MessageKind, payload string) (MessageContent, error) {
	if !kind.Valid() {
		return MessageContent{}, ErrInvalidMessageKind
	}
	if strings.TrimSpace(payload) == "" {
		return MessageContent{}, ErrEmptyPayload
	}
	if kind == MessageKindVoice && !IsBareFilename(payload) {
		return MessageContent{}, ErrVoicePayloadNotFilename
	}
	return MessageContent{kind: kind, payload: payload}, nil
}

// Kind 返回类型
func (c MessageContent) Kind() MessageKind {
	return c.kind
}

// Payload 返回负载
func (c MessageContent) Payload() string {
	return c.payload
}

// IsBareFilename reports whether name is a single path element without a
// scheme, separators or dot segments.
func IsBareFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\:?#`) {
		return false
	}
	return path.Base(name) == name
}
