package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/infrastructure/persistence/models"
	domainErrors "github.com/korjavin/echobridge/pkg/errors"
)

// GormPairingRepository GORM 实现的配对仓储
type GormPairingRepository struct {
	db *gorm.DB
}

// NewGormPairingRepository 创建 GORM 配对仓储
func NewGormPairingRepository(db *gorm.DB) repository.PairingRepository {
	return &GormPairingRepository{db: db}
}

// SaveCode 保存配对码, 主键冲突时覆盖原有记录
func (r *GormPairingRepository) SaveCode(ctx context.Context, code *entity.PairingCode) error {
	model := models.PendingCodeModel{
		Code:      code.Code,
		VoiceID:   code.VoiceID,
		ExpiresAt: code.ExpiresAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"voice_id", "expires_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return domainErrors.NewStoreError("failed to save pairing code", err)
	}
	return nil
}

// FindCode 查找配对码, 不检查过期
func (r *GormPairingRepository) FindCode(ctx context.Context, code string) (*entity.PairingCode, error) {
	var model models.PendingCodeModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("pairing code not found")
		}
		return nil, domainErrors.NewStoreError("failed to find pairing code", err)
	}
	return &entity.PairingCode{Code: model.Code, VoiceID: model.VoiceID, ExpiresAt: model.ExpiresAt}, nil
}

// RedeemCode 在单个事务内兑换配对码并建立配对
//
// The conditional delete is the serialization point: only the transaction
// whose delete removes the row goes on to write the pair.
func (r *GormPairingRepository) RedeemCode(ctx context.Context, code, chatID string, now time.Time) (*entity.IdentityPair, error) {
	var pair *entity.IdentityPair

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending models.PendingCodeModel
		if err := tx.First(&pending, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.NewInvalidCodeError()
			}
			return err
		}
		if !now.Before(pending.ExpiresAt) {
			return domainErrors.NewInvalidCodeError()
		}

		res := tx.Where("code = ? AND voice_id = ? AND expires_at > ?", code, pending.VoiceID, now).
			Delete(&models.PendingCodeModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return domainErrors.NewInvalidCodeError()
		}

		p, err := entity.NewIdentityPair(chatID, pending.VoiceID, now)
		if err != nil {
			return err
		}
		if err := upsertPair(tx, p); err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		if domainErrors.IsInvalidCode(err) {
			return nil, err
		}
		return nil, domainErrors.NewStoreError("failed to redeem pairing code", err)
	}
	return pair, nil
}

// upsertPair 最后一次配对生效: 先删除涉及任一身份的旧配对
func upsertPair(tx *gorm.DB, pair *entity.IdentityPair) error {
	if err := tx.Where("chat_id = ? OR voice_id = ?", pair.ChatID, pair.VoiceID).
		Delete(&models.IdentityPairModel{}).Error; err != nil {
		return err
	}
	return tx.Create(&models.IdentityPairModel{
		ChatID:    pair.ChatID,
		VoiceID:   pair.VoiceID,
		CreatedAt: pair.CreatedAt.UTC(),
	}).Error
}

// DeleteCodesForVoiceID 删除某个语音身份名下的全部配对码
func (r *GormPairingRepository) DeleteCodesForVoiceID(ctx context.Context, voiceID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("voice_id = ?", voiceID).Delete(&models.PendingCodeModel{})
	if res.Error != nil {
		return 0, domainErrors.NewStoreError("failed to delete pairing codes", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeExpiredCodes 清理过期配对码
func (r *GormPairingRepository) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.PendingCodeModel{})
	if res.Error != nil {
		return 0, domainErrors.NewStoreError("failed to purge expired codes", res.Error)
	}
	return res.RowsAffected, nil
}

// FindByChatID 根据聊天身份查找配对
func (r *GormPairingRepository) FindByChatID(ctx context.Context, chatID string) (*entity.IdentityPair, error) {
	return r.findPair(ctx, "chat_id = ?", chatID)
}

// FindByVoiceID 根据语音身份查找配对
func (r *GormPairingRepository) FindByVoiceID(ctx context.Context, voiceID string) (*entity.IdentityPair, error) {
	return r.findPair(ctx, "voice_id = ?", voiceID)
}

func (r *GormPairingRepository) findPair(ctx context.Context, query string, arg string) (*entity.IdentityPair, error) {
	var model models.IdentityPairModel
	if err := r.db.WithContext(ctx).First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("identity pair not found")
		}
		return nil, domainErrors.NewStoreError("failed to find identity pair", err)
	}
	return &entity.IdentityPair{ChatID: model.ChatID, VoiceID: model.VoiceID, CreatedAt: model.CreatedAt}, nil
}
