package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	"github.com/korjavin/echobridge/internal/infrastructure/config"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

type repoSet struct {
	pairs    repository.PairingRepository
	messages repository.MessageRepository
}

func newSQLiteRepos(t *testing.T) repoSet {
	t.Helper()
	db, err := NewDBConnection(&config.DatabaseConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "echobridge.sqlite"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	return repoSet{pairs: NewGormPairingRepository(db), messages: NewGormMessageRepository(db)}
}

func newMemoryRepos(t *testing.T) repoSet {
	return repoSet{pairs: NewMemoryPairingRepository(), messages: NewMemoryMessageRepository()}
}

// forEachBackend runs fn against every repository implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, r repoSet)) {
	backends := map[string]func(*testing.T) repoSet{
		"sqlite": newSQLiteRepos,
		"memory": newMemoryRepos,
	}
	for name, build := range backends {
		t.Run(name, func(t *testing.T) {
			fn(t, build(t))
		})
	}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func saveCode(t *testing.T, r repoSet, code, voiceID string, now time.Time) {
	t.Helper()
	pc, err := entity.NewPairingCode(code, voiceID, now, 5*time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.pairs.SaveCode(context.Background(), pc); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
}

func newText(t *testing.T, voiceID, text string) *entity.Message {
	t.Helper()
	content, err := valueobject.NewMessageContent(valueobject.MessageKindText, text)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := entity.NewMessage(voiceID, content)
	if err != nil {
		t.Fatal(err)
	}
	return msg
}

func TestRedeemCodeCreatesPairAndConsumesCode(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		saveCode(t, r, "123456", "alexaUser123", t0)

		pair, err := r.pairs.RedeemCode(ctx, "123456", "chat456", t0.Add(time.Minute))
		if err != nil {
			t.Fatalf("RedeemCode: %v", err)
		}
		if pair.ChatID != "chat456" || pair.VoiceID != "alexaUser123" {
			t.Fatalf("pair = %+v", pair)
		}

		if _, err := r.pairs.FindCode(ctx, "123456"); !apperrors.IsNotFound(err) {
			t.Fatalf("code should be gone, err = %v", err)
		}
		byVoice, err := r.pairs.FindByVoiceID(ctx, "alexaUser123")
		if err != nil || byVoice.ChatID != "chat456" {
			t.Fatalf("FindByVoiceID = %+v, %v", byVoice, err)
		}

		if _, err := r.pairs.RedeemCode(ctx, "123456", "chat456", t0.Add(time.Minute)); !apperrors.IsInvalidCode(err) {
			t.Fatalf("second redemption err = %v, want INVALID_CODE", err)
		}
	})
}

func TestRedeemCodeRejectsExpiredRow(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		saveCode(t, r, "654321", "alexaUser123", t0)

		_, err := r.pairs.RedeemCode(ctx, "654321", "chat456", t0.Add(5*time.Minute))
		if !apperrors.IsInvalidCode(err) {
			t.Fatalf("err = %v, want INVALID_CODE", err)
		}
		// 过期记录仍然存在, 只是不可用
		if _, err := r.pairs.FindCode(ctx, "654321"); err != nil {
			t.Fatalf("expired row should still exist until purged: %v", err)
		}
		if _, err := r.pairs.FindByChatID(ctx, "chat456"); !apperrors.IsNotFound(err) {
			t.Fatalf("no pair expected, err = %v", err)
		}
	})
}

func TestRedeemCodeSingleWinnerUnderConcurrency(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		saveCode(t, r, "111222", "alexaUser123", t0)

		const workers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			wins    int
			invalid int
		)
		start := make(chan struct{})
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				_, err := r.pairs.RedeemCode(context.Background(), "111222", "chat"+string(rune('a'+i)), t0.Add(time.Second))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case apperrors.IsInvalidCode(err):
					invalid++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		close(start)
		wg.Wait()

		if wins != 1 || invalid != workers-1 {
			t.Fatalf("wins = %d, invalid = %d", wins, invalid)
		}
	})
}

func TestRepairingReplacesBothDirections(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		saveCode(t, r, "100001", "voiceA", t0)
		saveCode(t, r, "100002", "voiceB", t0)
		saveCode(t, r, "100003", "voiceB", t0)

		mustRedeem := func(code, chat string) {
			t.Helper()
			if _, err := r.pairs.RedeemCode(ctx, code, chat, t0); err != nil {
				t.Fatalf("redeem %s: %v", code, err)
			}
		}
		mustRedeem("100001", "chat1")
		// chat1 改配 voiceB, voiceA 的旧配对被替换
		mustRedeem("100002", "chat1")
		if _, err := r.pairs.FindByVoiceID(ctx, "voiceA"); !apperrors.IsNotFound(err) {
			t.Fatalf("voiceA should be unpaired, err = %v", err)
		}
		// voiceB 改配 chat2, chat1 的旧配对被替换
		mustRedeem("100003", "chat2")
		if _, err := r.pairs.FindByChatID(ctx, "chat1"); !apperrors.IsNotFound(err) {
			t.Fatalf("chat1 should be unpaired, err = %v", err)
		}
		pair, err := r.pairs.FindByVoiceID(ctx, "voiceB")
		if err != nil || pair.ChatID != "chat2" {
			t.Fatalf("voiceB pair = %+v, %v", pair, err)
		}
	})
}

func TestSaveCodeReplacesOnCollision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		saveCode(t, r, "222333", "voiceA", t0)
		saveCode(t, r, "222333", "voiceB", t0.Add(time.Minute))

		pc, err := r.pairs.FindCode(context.Background(), "222333")
		if err != nil {
			t.Fatal(err)
		}
		if pc.VoiceID != "voiceB" || !pc.ExpiresAt.Equal(t0.Add(6*time.Minute)) {
			t.Fatalf("code = %+v", pc)
		}
	})
}

func TestPurgeAndDeleteCodes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		saveCode(t, r, "300001", "voiceA", t0)
		saveCode(t, r, "300002", "voiceA", t0.Add(10*time.Minute))
		saveCode(t, r, "300003", "voiceB", t0.Add(10*time.Minute))

		n, err := r.pairs.PurgeExpiredCodes(ctx, t0.Add(6*time.Minute))
		if err != nil || n != 1 {
			t.Fatalf("purged %d, %v", n, err)
		}
		n, err = r.pairs.DeleteCodesForVoiceID(ctx, "voiceA")
		if err != nil || n != 1 {
			t.Fatalf("deleted %d, %v", n, err)
		}
		if _, err := r.pairs.FindCode(ctx, "300003"); err != nil {
			t.Fatalf("voiceB code should remain: %v", err)
		}
	})
}

func TestMessageRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		id, err := r.messages.Append(ctx, newText(t, "alexaUser123", "hello"))
		if err != nil {
			t.Fatal(err)
		}

		unread, err := r.messages.ListUnread(ctx, "alexaUser123")
		if err != nil {
			t.Fatal(err)
		}
		if len(unread) != 1 || unread[0].Payload() != "hello" || unread[0].IsRead() || unread[0].ID() != id {
			t.Fatalf("unread = %+v", unread)
		}

		if err := r.messages.MarkRead(ctx, id); err != nil {
			t.Fatal(err)
		}
		if err := r.messages.MarkRead(ctx, id); err != nil {
			t.Fatalf("second MarkRead: %v", err)
		}
		if err := r.messages.MarkRead(ctx, 99999); err != nil {
			t.Fatalf("unknown id: %v", err)
		}

		msg, err := r.messages.FindByID(ctx, id)
		if err != nil || !msg.IsRead() {
			t.Fatalf("message = %+v, %v", msg, err)
		}
		unread, _ = r.messages.ListUnread(ctx, "alexaUser123")
		if len(unread) != 0 {
			t.Fatalf("expected empty mailbox, got %d", len(unread))
		}
	})
}

func TestListUnreadOrderAndIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, r repoSet) {
		ctx := context.Background()
		for _, text := range []string{"one", "two", "three"} {
			if _, err := r.messages.Append(ctx, newText(t, "voiceA", text)); err != nil {
				t.Fatal(err)
			}
			if _, err := r.messages.Append(ctx, newText(t, "voiceB", "other "+text)); err != nil {
				t.Fatal(err)
			}
		}

		unread, err := r.messages.ListUnread(ctx, "voiceA")
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for i, m := range unread {
			got = append(got, m.Payload())
			if i > 0 && m.ID() <= unread[i-1].ID() {
				t.Fatalf("ids not ascending: %d after %d", m.ID(), unread[i-1].ID())
			}
		}
		if len(got) != 3 || got[0] != "one" || got[2] != "three" {
			t.Fatalf("payloads = %v", got)
		}

		n, err := r.messages.CountUnread(ctx, "voiceB")
		if err != nil || n != 3 {
			t.Fatalf("CountUnread = %d, %v", n, err)
		}
	})
}
