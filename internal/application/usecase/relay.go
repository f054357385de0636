package usecase

import (
	"context"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/domain/service"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// AudioFetcher streams source audio into w.
type AudioFetcher func(ctx context.Context, w io.Writer) error

// Transcoder turns a source file into a committed asset name.
type Transcoder interface {
	Transcode(ctx context.Context, sourcePath string) (string, error)
}

// AssetRemover deletes a committed asset that no message will reference.
type AssetRemover interface {
	Delete(ctx context.Context, name string) error
}

// RelayUseCase moves messages from the chat side into voice mailboxes.
type RelayUseCase struct {
	pairing    *service.PairingEngine
	mailbox    *service.Mailbox
	transcoder Transcoder
	assets     AssetRemover
	tempDir    string
	metrics    Metrics
	logger     *zap.Logger
}

// NewRelayUseCase 创建转发用例
func NewRelayUseCase(
	pairing *service.PairingEngine,
	mailbox *service.Mailbox,
	transcoder Transcoder,
	assets AssetRemover,
	tempDir string,
	metrics Metrics,
	logger *zap.Logger,
) *RelayUseCase {
	return &RelayUseCase{
		pairing:    pairing,
		mailbox:    mailbox,
		transcoder: transcoder,
		assets:     assets,
		tempDir:    tempDir,
		metrics:    orNoop(metrics),
		logger:     logger.With(zap.String("component", "relay")),
	}
}

// Pair redeems a pairing code for chatID.
func (uc *RelayUseCase) Pair(ctx context.Context, chatID, code string) (*service.PairingResult, error) {
	result, err := uc.pairing.ConfirmPairing(ctx, chatID, code)
	switch {
	case err == nil:
		uc.metrics.IncPairing("paired")
	case apperrors.IsInvalidCode(err):
		uc.metrics.IncPairing("invalid_code")
	default:
		uc.metrics.IncPairing("error")
		uc.logger.Error("Pairing failed", zap.String("chat_id", chatID), zap.Error(err))
	}
	return result, err
}

// Status 返回配对的语音身份及其未读数量
func (uc *RelayUseCase) Status(ctx context.Context, chatID string) (string, int64, error) {
	voiceID, err := uc.pairing.ResolveVoiceID(ctx, chatID)
	if err != nil {
		return "", 0, err
	}
	n, err := uc.mailbox.CountUnread(ctx, voiceID)
	if err != nil {
		return "", 0, err
	}
	return voiceID, n, nil
}

// RelayText delivers text from a paired chat identity.
func (uc *RelayUseCase) RelayText(ctx context.Context, chatID, text string) (int64, error) {
	voiceID, err := uc.pairing.ResolveVoiceID(ctx, chatID)
	if err != nil {
		uc.metrics.IncRelayed(SourceTelegram, string(valueobject.MessageKindText), "not_paired")
		return 0, err
	}
	return uc.deliverText(ctx, SourceTelegram, voiceID, text)
}

// RelayVoice fetches, transcodes and delivers a voice note from a paired
// chat identity.
func (uc *RelayUseCase) RelayVoice(ctx context.Context, chatID string, fetch AudioFetcher) (int64, error) {
	voiceID, err := uc.pairing.ResolveVoiceID(ctx, chatID)
	if err != nil {
		uc.metrics.IncRelayed(SourceTelegram, string(valueobject.MessageKindVoice), "not_paired")
		return 0, err
	}
	return uc.deliverVoice(ctx, SourceTelegram, voiceID, fetch)
}

// EnsureRecipient checks that voiceID has a chat partner.
func (uc *RelayUseCase) EnsureRecipient(ctx context.Context, voiceID string) error {
	_, err := uc.pairing.ResolveChatID(ctx, voiceID)
	return err
}

// RelayTextToVoiceID delivers text addressed directly to a voice identity.
func (uc *RelayUseCase) RelayTextToVoiceID(ctx context.Context, voiceID, text string) (int64, error) {
	if err := uc.EnsureRecipient(ctx, voiceID); err != nil {
		uc.metrics.IncRelayed(SourceInternalAPI, string(valueobject.MessageKindText), "not_paired")
		return 0, err
	}
	return uc.deliverText(ctx, SourceInternalAPI, voiceID, text)
}

// RelayVoiceToVoiceID is the voice counterpart of RelayTextToVoiceID.
func (uc *RelayUseCase) RelayVoiceToVoiceID(ctx context.Context, voiceID string, fetch AudioFetcher) (int64, error) {
	if err := uc.EnsureRecipient(ctx, voiceID); err != nil {
		uc.metrics.IncRelayed(SourceInternalAPI, string(valueobject.MessageKindVoice), "not_paired")
		return 0, err
	}
	return uc.deliverVoice(ctx, SourceInternalAPI, voiceID, fetch)
}

func (uc *RelayUseCase) deliverText(ctx context.Context, source, voiceID, text string) (int64, error) {
	id, err := uc.mailbox.Deliver(ctx, voiceID, valueobject.MessageKindText, text)
	if err != nil {
		uc.metrics.IncRelayed(source, string(valueobject.MessageKindText), "failed")
		return 0, err
	}
	uc.metrics.IncRelayed(source, string(valueobject.MessageKindText), "delivered")
	return id, nil
}

// deliverVoice 下载到临时文件 → 转码 → 入邮箱; 临时文件在所有路径上删除
func (uc *RelayUseCase) deliverVoice(ctx context.Context, source, voiceID string, fetch AudioFetcher) (int64, error) {
	kind := string(valueobject.MessageKindVoice)

	srcPath, err := uc.fetchToTemp(ctx, fetch)
	if srcPath != "" {
		defer os.Remove(srcPath)
	}
	if err != nil {
		uc.metrics.IncRelayed(source, kind, "fetch_failed")
		return 0, err
	}

	name, err := uc.transcoder.Transcode(ctx, srcPath)
	if err != nil {
		uc.metrics.IncRelayed(source, kind, "transcode_failed")
		return 0, err
	}

	id, err := uc.mailbox.Deliver(ctx, voiceID, valueobject.MessageKindVoice, name)
	if err != nil {
		uc.metrics.IncRelayed(source, kind, "failed")
		// 没有消息引用该资源, 删除以免遗留
		if uc.assets != nil {
			if delErr := uc.assets.Delete(context.WithoutCancel(ctx), name); delErr != nil {
				uc.logger.Warn("Failed to remove orphaned asset", zap.String("asset", name), zap.Error(delErr))
			}
		}
		return 0, err
	}

	uc.metrics.IncRelayed(source, kind, "delivered")
	uc.logger.Info("Voice message relayed",
		zap.String("voice_id", voiceID),
		zap.String("asset", name),
		zap.Int64("message_id", id),
	)
	return id, nil
}

// fetchToTemp returns the temp path even on failure so the caller can remove it.
func (uc *RelayUseCase) fetchToTemp(ctx context.Context, fetch AudioFetcher) (string, error) {
	f, err := os.CreateTemp(uc.tempDir, "echobridge-src-*")
	if err != nil {
		return "", apperrors.NewInternalErrorWithCause("create temp file", err)
	}
	path := f.Name()

	fetchErr := fetch(ctx, f)
	closeErr := f.Close()
	if fetchErr != nil {
		if apperrors.CodeOf(fetchErr) != "" {
			return path, fetchErr
		}
		return path, apperrors.NewTranscodeError("fetch source audio", fetchErr)
	}
	if closeErr != nil {
		return path, apperrors.NewTranscodeError("write source audio", closeErr)
	}
	return path, nil
}
