package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/pkg/errors"
)

// MemoryPairingRepository 内存实现的配对仓储（用于开发/测试）
type MemoryPairingRepository struct {
	mu     sync.Mutex
	codes  map[string]entity.PairingCode
	byChat map[string]entity.IdentityPair
	// voiceID -> chatID
	byVoice map[string]string
}

// NewMemoryPairingRepository 创建内存配对仓储
func NewMemoryPairingRepository() repository.PairingRepository {
	return &MemoryPairingRepository{
		codes:   make(map[string]entity.PairingCode),
		byChat:  make(map[string]entity.IdentityPair),
		byVoice: make(map[string]string),
	}
}

// SaveCode 保存配对码, 主键冲突时覆盖
func (r *MemoryPairingRepository) SaveCode(ctx context.Context, code *entity.PairingCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.Code] = *code
	return nil
}

// FindCode 查找配对码
func (r *MemoryPairingRepository) FindCode(ctx context.Context, code string) (*entity.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc, ok := r.codes[code]
	if !ok {
		return nil, errors.NewNotFoundError("pairing code not found")
	}
	return &pc, nil
}

// RedeemCode 兑换配对码, 整个过程持有锁
func (r *MemoryPairingRepository) RedeemCode(ctx context.Context, code, chatID string, now time.Time) (*entity.IdentityPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pc, ok := r.codes[code]
	if !ok || pc.ExpiredAt(now) {
		return nil, errors.NewInvalidCodeError()
	}
	delete(r.codes, code)

	pair, err := entity.NewIdentityPair(chatID, pc.VoiceID, now)
	if err != nil {
		return nil, errors.NewStoreError("failed to build identity pair", err)
	}

	if old, ok := r.byChat[chatID]; ok {
		delete(r.byVoice, old.VoiceID)
	}
	if oldChat, ok := r.byVoice[pc.VoiceID]; ok {
		delete(r.byChat, oldChat)
	}
	r.byChat[chatID] = *pair
	r.byVoice[pc.VoiceID] = chatID
	return pair, nil
}

// DeleteCodesForVoiceID 删除某个语音身份名下的全部配对码
func (r *MemoryPairingRepository) DeleteCodesForVoiceID(ctx context.Context, voiceID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code, pc := range r.codes {
		if pc.VoiceID == voiceID {
			delete(r.codes, code)
			n++
		}
	}
	return n, nil
}

// PurgeExpiredCodes 清理过期配对码
func (r *MemoryPairingRepository) PurgeExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for code, pc := range r.codes {
		if pc.ExpiredAt(now) {
			delete(r.codes, code)
			n++
		}
	}
	return n, nil
}

// FindByChatID 根据聊天身份查找配对
func (r *MemoryPairingRepository) FindByChatID(ctx context.Context, chatID string) (*entity.IdentityPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair, ok := r.byChat[chatID]
	if !ok {
		return nil, errors.NewNotFoundError("identity pair not found")
	}
	return &pair, nil
}

// FindByVoiceID 根据语音身份查找配对
func (r *MemoryPairingRepository) FindByVoiceID(ctx context.Context, voiceID string) (*entity.IdentityPair, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chatID, ok := r.byVoice[voiceID]
	if !ok {
		return nil, errors.NewNotFoundError("identity pair not found")
	}
	pair := r.byChat[chatID]
	return &pair, nil
}
