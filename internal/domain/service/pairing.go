package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// DefaultCodeTTL 配对码有效期
const DefaultCodeTTL = 5 * time.Minute

const (
	pairingSuccessMessage = "Successfully paired!"
	pairingInvalidMessage = "Invalid or expired code."

	// 生成配对码时遇到未过期的他人配对码时的最大重试次数
	maxCodeAttempts = 5
)

// CodeGenerator returns a six digit pairing code.
type CodeGenerator func() (string, error)

// RandomCode draws a code uniformly from 100000..999999 using crypto/rand.
func RandomCode() (string, error) {
	span := big.NewInt(valueobject.PairingCodeMax - valueobject.PairingCodeMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+valueobject.PairingCodeMin), nil
}

// PairingResult 配对结果
type PairingResult struct {
	Success bool
	Message string
	Pair    *entity.IdentityPair
}

// PairingOptions 配对引擎参数
type PairingOptions struct {
	CodeTTL time.Duration
	// SingleCodePerIdentity drops earlier unredeemed codes of an identity when
	// a new one is issued.
	SingleCodePerIdentity bool
	Now                   func() time.Time
	Generate              CodeGenerator
}

// PairingEngine 配对领域服务
type PairingEngine struct {
	repo   repository.PairingRepository
	opts   PairingOptions
	logger *zap.Logger
}

// NewPairingEngine 创建配对引擎
func NewPairingEngine(repo repository.PairingRepository, opts PairingOptions, logger *zap.Logger) *PairingEngine {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Generate == nil {
		opts.Generate = RandomCode
	}
	return &PairingEngine{
		repo:   repo,
		opts:   opts,
		logger: logger.With(zap.String("component", "pairing")),
	}
}

// StartPairing issues a fresh code owned by voiceID and returns it for display.
func (e *PairingEngine) StartPairing(ctx context.Context, voiceID string) (string, error) {
	if voiceID == "" {
		return "", apperrors.NewInvalidInputError("voice identity is required")
	}
	now := e.opts.Now().UTC()

	if e.opts.SingleCodePerIdentity {
		if _, err := e.repo.DeleteCodesForVoiceID(ctx, voiceID); err != nil {
			return "", apperrors.WrapStore("delete previous codes", err)
		}
	}

	var code string
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		candidate, err := e.opts.Generate()
		if err != nil {
			return "", apperrors.NewInternalErrorWithCause("generate pairing code", err)
		}
		code = candidate

		existing, err := e.repo.FindCode(ctx, candidate)
		if err != nil && !apperrors.IsNotFound(err) {
			return "", apperrors.WrapStore("lookup pairing code", err)
		}
		// 仅在撞上他人仍有效的配对码时重新生成, 否则直接覆盖
		if existing == nil || existing.VoiceID == voiceID || existing.ExpiredAt(now) {
			break
		}
	}

	pc, err := entity.NewPairingCode(code, voiceID, now, e.opts.CodeTTL)
	if err != nil {
		return "", apperrors.NewInternalErrorWithCause("build pairing code", err)
	}
	if err := e.repo.SaveCode(ctx, pc); err != nil {
		return "", apperrors.WrapStore("save pairing code", err)
	}

	e.logger.Info("Pairing code issued",
		zap.String("voice_id", voiceID),
		zap.Time("expires_at", pc.ExpiresAt),
	)
	return code, nil
}

// ConfirmPairing redeems code on behalf of chatID. A malformed, unknown,
// expired or already used code yields an unsuccessful result together with an
// INVALID_CODE error; store failures return a nil result.
func (e *PairingEngine) ConfirmPairing(ctx context.Context, chatID, code string) (*PairingResult, error) {
	if chatID == "" {
		return nil, apperrors.NewInvalidInputError("chat identity is required")
	}
	normalized, err := valueobject.NormalizePairingCode(code)
	if err != nil {
		return &PairingResult{Message: pairingInvalidMessage}, apperrors.NewInvalidCodeError()
	}

	pair, err := e.repo.RedeemCode(ctx, normalized, chatID, e.opts.Now().UTC())
	if err != nil {
		if apperrors.IsInvalidCode(err) {
			e.logger.Info("Pairing code rejected", zap.String("chat_id", chatID))
			return &PairingResult{Message: pairingInvalidMessage}, err
		}
		return nil, apperrors.WrapStore("redeem pairing code", err)
	}

	e.logger.Info("Identities paired",
		zap.String("chat_id", pair.ChatID),
		zap.String("voice_id", pair.VoiceID),
	)
	return &PairingResult{Success: true, Message: pairingSuccessMessage, Pair: pair}, nil
}

// ResolveVoiceID returns the voice identity paired with chatID.
func (e *PairingEngine) ResolveVoiceID(ctx context.Context, chatID string) (string, error) {
	pair, err := e.repo.FindByChatID(ctx, chatID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", apperrors.NewNotPairedError(chatID)
		}
		return "", apperrors.WrapStore("resolve chat identity", err)
	}
	return pair.VoiceID, nil
}

// ResolveChatID returns the chat identity paired with voiceID.
func (e *PairingEngine) ResolveChatID(ctx context.Context, voiceID string) (string, error) {
	pair, err := e.repo.FindByVoiceID(ctx, voiceID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", apperrors.NewNotPairedError(voiceID)
		}
		return "", apperrors.WrapStore("resolve voice identity", err)
	}
	return pair.ChatID, nil
}

// PurgeExpired 清理过期配对码
func (e *PairingEngine) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := e.repo.PurgeExpiredCodes(ctx, e.opts.Now().UTC())
	if err != nil {
		return 0, apperrors.WrapStore("purge expired codes", err)
	}
	return n, nil
}
