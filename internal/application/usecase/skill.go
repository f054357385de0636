package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/service"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// URLResolver turns an asset name into a streamable URL.
type URLResolver interface {
	URL(ctx context.Context, name string) (string, error)
}

// LaunchResult 技能启动结果
type LaunchResult struct {
	Paired bool
	Unread int64
	// Code is set when the caller was not paired and a code was issued.
	Code string
}

// ReadResult is the head message of a mailbox, already marked read.
type ReadResult struct {
	Message *entity.Message
	// AudioURL is set for voice messages.
	AudioURL string
}

// SkillUseCase serves the voice assistant side.
type SkillUseCase struct {
	pairing  *service.PairingEngine
	mailbox  *service.Mailbox
	resolver URLResolver
	metrics  Metrics
	logger   *zap.Logger
}

// NewSkillUseCase 创建语音技能用例
func NewSkillUseCase(
	pairing *service.PairingEngine,
	mailbox *service.Mailbox,
	resolver URLResolver,
	metrics Metrics,
	logger *zap.Logger,
) *SkillUseCase {
	return &SkillUseCase{
		pairing:  pairing,
		mailbox:  mailbox,
		resolver: resolver,
		metrics:  orNoop(metrics),
		logger:   logger.With(zap.String("component", "skill")),
	}
}

// Launch greets a paired caller with its unread count, or issues a pairing
// code to an unpaired one.
func (uc *SkillUseCase) Launch(ctx context.Context, voiceID string) (*LaunchResult, error) {
	_, err := uc.pairing.ResolveChatID(ctx, voiceID)
	if err == nil {
		n, err := uc.mailbox.CountUnread(ctx, voiceID)
		if err != nil {
			return nil, err
		}
		return &LaunchResult{Paired: true, Unread: n}, nil
	}
	if !apperrors.IsNotPaired(err) {
		return nil, err
	}

	code, err := uc.RequestCode(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	return &LaunchResult{Code: code}, nil
}

// RequestCode issues a fresh pairing code regardless of pairing state.
func (uc *SkillUseCase) RequestCode(ctx context.Context, voiceID string) (string, error) {
	code, err := uc.pairing.StartPairing(ctx, voiceID)
	if err != nil {
		uc.metrics.IncPairing("error")
		return "", err
	}
	uc.metrics.IncPairing("issued")
	return code, nil
}

// ReadNext returns the oldest unread message or nil when there is none.
// Unpaired callers never reach the mailbox.
func (uc *SkillUseCase) ReadNext(ctx context.Context, voiceID string) (*ReadResult, error) {
	if _, err := uc.pairing.ResolveChatID(ctx, voiceID); err != nil {
		if apperrors.IsNotPaired(err) {
			uc.metrics.IncMailboxRead("not_paired")
		}
		return nil, err
	}

	msg, err := uc.mailbox.TakeNext(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		uc.metrics.IncMailboxRead("empty")
		return nil, nil
	}

	result := &ReadResult{Message: msg}
	if msg.IsVoice() {
		url, err := uc.resolver.URL(ctx, msg.Payload())
		if err != nil {
			return nil, apperrors.NewInternalErrorWithCause("resolve asset url", err)
		}
		result.AudioURL = url
		uc.metrics.IncMailboxRead("voice")
	} else {
		uc.metrics.IncMailboxRead("text")
	}
	return result, nil
}
