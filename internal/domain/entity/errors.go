package entity

import "errors"

var (
	// Message errors
	ErrInvalidMessageID = errors.New("invalid message id")
	ErrInvalidVoiceID   = errors.New("invalid voice identity")

	// Pairing errors
	ErrInvalidChatID      = errors.New("invalid chat identity")
	ErrInvalidPairingCode = errors.New("invalid pairing code")
)
