package valueobject

import "errors"

var (
	ErrInvalidMessageKind      = errors.New("invalid message kind")
	ErrEmptyPayload            = errors.New("empty message payload")
	ErrVoicePayloadNotFilename = errors.New("voice payload must be a bare asset filename")
	ErrMalformedPairingCode    = errors.New("pairing code must be six digits")
)
