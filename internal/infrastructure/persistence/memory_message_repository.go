package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/pkg/errors"
)

// MemoryMessageRepository 内存实现的消息仓储（用于开发/测试）
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	nextID   int64
	messages map[int64]*entity.Message
	// 语音身份到消息ID列表的映射, 按插入顺序
	mailboxes map[string][]int64
}

// NewMemoryMessageRepository 创建内存消息仓储
func NewMemoryMessageRepository() repository.MessageRepository {
	return &MemoryMessageRepository{
		messages:  make(map[int64]*entity.Message),
		mailboxes: make(map[string][]int64),
	}
}

// Append 追加消息
func (r *MemoryMessageRepository) Append(ctx context.Context, message *entity.Message) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	stored := entity.ReconstructMessage(id, message.VoiceID(), message.Content(), message.IsRead(), message.CreatedAt())
	r.messages[id] = stored
	r.mailboxes[message.VoiceID()] = append(r.mailboxes[message.VoiceID()], id)
	message.AssignID(id)
	return id, nil
}

// FindByID 根据ID查找消息
func (r *MemoryMessageRepository) FindByID(ctx context.Context, id int64) (*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	message, ok := r.messages[id]
	if !ok {
		return nil, errors.NewNotFoundError("message not found")
	}
	return copyMessage(message), nil
}

// ListUnread 返回未读消息副本, 按 ID 升序
func (r *MemoryMessageRepository) ListUnread(ctx context.Context, voiceID string) ([]*entity.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.mailboxes[voiceID]
	result := make([]*entity.Message, 0, len(ids))
	for _, id := range ids {
		if msg := r.messages[id]; !msg.IsRead() {
			result = append(result, copyMessage(msg))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result, nil
}

// MarkRead 标记已读, 未知 ID 静默忽略
func (r *MemoryMessageRepository) MarkRead(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg, ok := r.messages[id]; ok {
		msg.MarkRead()
	}
	return nil
}

// CountUnread 统计未读消息数量
func (r *MemoryMessageRepository) CountUnread(ctx context.Context, voiceID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, id := range r.mailboxes[voiceID] {
		if !r.messages[id].IsRead() {
			n++
		}
	}
	return n, nil
}

// copyMessage 返回快照, 调用方修改不影响仓储
func copyMessage(m *entity.Message) *entity.Message {
	return entity.ReconstructMessage(m.ID(), m.VoiceID(), m.Content(), m.IsRead(), m.CreatedAt())
}
