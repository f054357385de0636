package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	"github.com/korjavin/echobridge/internal/infrastructure/persistence/models"
	domainErrors "github.com/korjavin/echobridge/pkg/errors"
)

// GormMessageRepository GORM 实现的消息仓储
type GormMessageRepository struct {
	db *gorm.DB
}

// NewGormMessageRepository 创建 GORM 消息仓储
func NewGormMessageRepository(db *gorm.DB) repository.MessageRepository {
	return &GormMessageRepository{
		db: db,
	}
}

// Append 插入消息, ID 由数据库自增分配
func (r *GormMessageRepository) Append(ctx context.Context, message *entity.Message) (int64, error) {
	model := r.toModel(message)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, domainErrors.NewStoreError("failed to append message", err)
	}
	message.AssignID(model.ID)
	return model.ID, nil
}

// FindByID 根据ID查找消息
func (r *GormMessageRepository) FindByID(ctx context.Context, id int64) (*entity.Message, error) {
	var model models.MessageModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainErrors.NewNotFoundError("message not found")
		}
		return nil, domainErrors.NewStoreError("failed to find message", err)
	}
	return r.toEntity(&model)
}

// ListUnread 按自增 ID 升序返回未读消息
func (r *GormMessageRepository) ListUnread(ctx context.Context, voiceID string) ([]*entity.Message, error) {
	var rows []models.MessageModel
	err := r.db.WithContext(ctx).
		Where("voice_id = ? AND is_read = ?", voiceID, false).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, domainErrors.NewStoreError("failed to list unread messages", err)
	}

	messages := make([]*entity.Message, 0, len(rows))
	for i := range rows {
		msg, err := r.toEntity(&rows[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// MarkRead 标记已读; 未知 ID 或已读消息不报错
func (r *GormMessageRepository) MarkRead(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("id = ? AND is_read = ?", id, false).
		Update("is_read", true).Error
	if err != nil {
		return domainErrors.NewStoreError("failed to mark message read", err)
	}
	return nil
}

// CountUnread 统计未读消息数量
func (r *GormMessageRepository) CountUnread(ctx context.Context, voiceID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.MessageModel{}).
		Where("voice_id = ? AND is_read = ?", voiceID, false).
		Count(&count).Error
	if err != nil {
		return 0, domainErrors.NewStoreError("failed to count unread messages", err)
	}
	return count, nil
}

// toModel 实体转换为模型
func (r *GormMessageRepository) toModel(message *entity.Message) *models.MessageModel {
	createdAt := message.CreatedAt()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &models.MessageModel{
		ID:        message.ID(),
		VoiceID:   message.VoiceID(),
		Kind:      string(message.Kind()),
		Payload:   message.Payload(),
		IsRead:    message.IsRead(),
		CreatedAt: createdAt,
	}
}

// toEntity 模型转换为实体
func (r *GormMessageRepository) toEntity(model *models.MessageModel) (*entity.Message, error) {
	kind, ok := valueobject.ParseMessageKind(model.Kind)
	if !ok {
		return nil, domainErrors.NewStoreError("corrupt message kind "+model.Kind, nil)
	}
	content, err := valueobject.NewMessageContent(kind, model.Payload)
	if err != nil {
		return nil, domainErrors.NewStoreError("corrupt message payload", err)
	}
	return entity.ReconstructMessage(model.ID, model.VoiceID, content, model.IsRead, model.CreatedAt), nil
}
