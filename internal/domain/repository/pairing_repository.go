package repository

import (
	"context"
	"time"

	"github.com/korjavin/echobridge/internal/domain/entity"
)

// PairingRepository 配对仓储接口
type PairingRepository interface {
	// SaveCode 保存配对码, 主键冲突时覆盖
	SaveCode(ctx context.Context, code *entity.PairingCode) error

	// FindCode returns the stored code row or a NOT_FOUND error. Expiry is not
	// checked here.
	FindCode(ctx context.Context, code string) (*entity.PairingCode, error)

	// RedeemCode atomically consumes a code that is still valid at now and
	// upserts the pair (chatID, owner). Exactly one concurrent caller succeeds;
	// the others get an INVALID_CODE error.
	RedeemCode(ctx context.Context, code, chatID string, now time.Time) (*entity.IdentityPair, error)

	// DeleteCodesForVoiceID 删除某个语音身份名下的全部配对码
	DeleteCodesForVoiceID(ctx context.Context, voiceID string) (int64, error)

	// PurgeExpiredCodes 清理过期配对码
	PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error)

	// FindByChatID 根据聊天身份查找配对
	FindByChatID(ctx context.Context, chatID string) (*entity.IdentityPair, error)

	// FindByVoiceID 根据语音身份查找配对
	FindByVoiceID(ctx context.Context, voiceID string) (*entity.IdentityPair, error)
}
