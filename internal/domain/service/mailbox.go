package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// Mailbox 邮箱领域服务
// 每个语音身份一个 FIFO 邮箱, 顺序由自增 ID 保证
type Mailbox struct {
	repo   repository.MessageRepository
	logger *zap.Logger
}

// NewMailbox 创建邮箱服务
func NewMailbox(repo repository.MessageRepository, logger *zap.Logger) *Mailbox {
	return &Mailbox{
		repo:   repo,
		logger: logger.With(zap.String("component", "mailbox")),
	}
}

// Deliver appends an unread message for voiceID and returns its id.
func (m *Mailbox) Deliver(ctx context.Context, voiceID string, kind valueobject.MessageKind, payload string) (int64, error) {
	content, err := valueobject.NewMessageContent(kind, payload)
	if err != nil {
		return 0, apperrors.NewInvalidInputError(err.Error())
	}
	msg, err := entity.NewMessage(voiceID, content)
	if err != nil {
		return 0, apperrors.NewInvalidInputError(err.Error())
	}

	id, err := m.repo.Append(ctx, msg)
	if err != nil {
		return 0, apperrors.WrapStore("append message", err)
	}
	m.logger.Debug("Message delivered",
		zap.Int64("id", id),
		zap.String("voice_id", voiceID),
		zap.String("kind", string(kind)),
	)
	return id, nil
}

// ListUnread 返回未读消息快照, 不修改状态
func (m *Mailbox) ListUnread(ctx context.Context, voiceID string) ([]*entity.Message, error) {
	msgs, err := m.repo.ListUnread(ctx, voiceID)
	if err != nil {
		return nil, apperrors.WrapStore("list unread messages", err)
	}
	return msgs, nil
}

// MarkRead is idempotent and tolerates unknown ids.
func (m *Mailbox) MarkRead(ctx context.Context, id int64) error {
	if err := m.repo.MarkRead(ctx, id); err != nil {
		return apperrors.WrapStore("mark message read", err)
	}
	return nil
}

// CountUnread 未读数量
func (m *Mailbox) CountUnread(ctx context.Context, voiceID string) (int64, error) {
	n, err := m.repo.CountUnread(ctx, voiceID)
	if err != nil {
		return 0, apperrors.WrapStore("count unread messages", err)
	}
	return n, nil
}

// TakeNext consumes the head of the mailbox. The message is marked read
// before it is returned, so a failure during playback loses it rather than
// playing it twice. Returns nil when the mailbox is empty.
func (m *Mailbox) TakeNext(ctx context.Context, voiceID string) (*entity.Message, error) {
	msgs, err := m.ListUnread(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	head := msgs[0]
	if err := m.MarkRead(ctx, head.ID()); err != nil {
		return nil, err
	}
	head.MarkRead()
	return head, nil
}
