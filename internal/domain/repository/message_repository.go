package repository

import (
	"context"

	"github.com/korjavin/echobridge/internal/domain/entity"
)

// MessageRepository 消息仓储接口
type MessageRepository interface {
	// Append 追加消息并分配单调递增的 ID
	Append(ctx context.Context, message *entity.Message) (int64, error)

	// FindByID 根据ID查找消息
	FindByID(ctx context.Context, id int64) (*entity.Message, error)

	// ListUnread 按 ID 升序返回未读消息
	ListUnread(ctx context.Context, voiceID string) ([]*entity.Message, error)

	// MarkRead 标记已读, 未知 ID 静默忽略
	MarkRead(ctx context.Context, id int64) error

	// CountUnread 统计未读消息数量
	CountUnread(ctx context.Context, voiceID string) (int64, error)
}
