package telegram

import (
	"context"
	"fmt"
	"io"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/echobridge/internal/application/usecase"
)

// VoiceInfo describes a relayable audio attachment.
type VoiceInfo struct {
	FileID   string
	MimeType string
	Size     int64
	// Note is true for voice notes, false for audio files.
	Note bool
}

// ExtractVoice returns the voice note or audio file attached to msg, if any.
func ExtractVoice(msg *tgbotapi.Message) *VoiceInfo {
	if msg == nil {
		return nil
	}

	if msg.Voice != nil {
		mime := msg.Voice.MimeType
		if mime == "" {
			mime = "audio/ogg"
		}
		return &VoiceInfo{
			FileID:   msg.Voice.FileID,
			MimeType: mime,
			Size:     int64(msg.Voice.FileSize),
			Note:     true,
		}
	}

	if msg.Audio != nil {
		mime := msg.Audio.MimeType
		if mime == "" {
			mime = "audio/mpeg"
		}
		return &VoiceInfo{
			FileID:   msg.Audio.FileID,
			MimeType: mime,
			Size:     int64(msg.Audio.FileSize),
		}
	}

	return nil
}

// fileFetcher resolves the download URL lazily so the bot token only
// appears inside the HTTP request.
func (a *Adapter) fileFetcher(fileID string) usecase.AudioFetcher {
	return func(ctx context.Context, w io.Writer) error {
		url, err := a.bot.GetFileDirectURL(fileID)
		if err != nil {
			return fmt.Errorf("get file: %w", err)
		}
		return a.fetchers.Fetcher(url)(ctx, w)
	}
}
