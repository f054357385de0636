package entity

import "time"

// IdentityPair links one chat identity to one voice identity.
type IdentityPair struct {
	ChatID    string
	VoiceID   string
	CreatedAt time.Time
}

// NewIdentityPair 创建配对
func NewIdentityPair(chatID, voiceID string, now time.Time) (*IdentityPair, error) {
	if chatID == "" {
		return nil, ErrInvalidChatID
	}
	if voiceID == "" {
		return nil, ErrInvalidVoiceID
	}
	return &IdentityPair{ChatID: chatID, VoiceID: voiceID, CreatedAt: now}, nil
}

// PairingCode 一次性配对码
type PairingCode struct {
	Code      string
	VoiceID   string
	ExpiresAt time.Time
}

// NewPairingCode 创建配对码
func NewPairingCode(code, voiceID string, now time.Time, ttl time.Duration) (*PairingCode, error) {
	if code == "" {
		return nil, ErrInvalidPairingCode
	}
	if voiceID == "" {
		return nil, ErrInvalidVoiceID
	}
	return &PairingCode{Code: code, VoiceID: voiceID, ExpiresAt: now.Add(ttl)}, nil
}

// ExpiredAt reports whether the code is unusable at t. A code is valid strictly
// before its expiry instant.
func (c *PairingCode) ExpiredAt(t time.Time) bool {
	return !t.Before(c.ExpiresAt)
}
