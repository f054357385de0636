package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/infrastructure/persistence"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestPairing(opts PairingOptions) (*PairingEngine, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	return NewPairingEngine(persistence.NewMemoryPairingRepository(), opts, zap.NewNop()), clock
}

// sequence returns a generator yielding codes in order.
func sequence(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func TestRandomCodeRange(t *testing.T) {
	re := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 500; i++ {
		code, err := RandomCode()
		if err != nil {
			t.Fatal(err)
		}
		if !re.MatchString(code) {
			t.Fatalf("code %q out of range", code)
		}
	}
}

func TestStartAndConfirmPairing(t *testing.T) {
	engine, _ := newTestPairing(PairingOptions{})
	ctx := context.Background()

	code, err := engine.StartPairing(ctx, "alexaUser123")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 {
		t.Fatalf("code = %q", code)
	}
	if _, err := engine.ResolveChatID(ctx, "alexaUser123"); !apperrors.IsNotPaired(err) {
		t.Fatalf("expected NOT_PAIRED before confirmation, got %v", err)
	}

	result, err := engine.ConfirmPairing(ctx, "chat456", " "+code+" ")
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success || result.Message != "Successfully paired!" {
		t.Fatalf("result = %+v", result)
	}

	voiceID, err := engine.ResolveVoiceID(ctx, "chat456")
	if err != nil || voiceID != "alexaUser123" {
		t.Fatalf("ResolveVoiceID = %q, %v", voiceID, err)
	}
	chatID, err := engine.ResolveChatID(ctx, "alexaUser123")
	if err != nil || chatID != "chat456" {
		t.Fatalf("ResolveChatID = %q, %v", chatID, err)
	}

	again, err := engine.ConfirmPairing(ctx, "chat456", code)
	if !apperrors.IsInvalidCode(err) || again == nil || again.Success {
		t.Fatalf("reuse = %+v, %v", again, err)
	}
}

func TestConfirmPairingRejectsMalformedAndExpired(t *testing.T) {
	engine, clock := newTestPairing(PairingOptions{Generate: sequence("424242")})
	ctx := context.Background()

	for _, bad := range []string{"", "abc", "12345", "4242420"} {
		result, err := engine.ConfirmPairing(ctx, "chat456", bad)
		if !apperrors.IsInvalidCode(err) || result.Success {
			t.Errorf("ConfirmPairing(%q) = %+v, %v", bad, result, err)
		}
	}

	if _, err := engine.StartPairing(ctx, "alexaUser123"); err != nil {
		t.Fatal(err)
	}
	clock.now = clock.now.Add(5 * time.Minute)
	result, err := engine.ConfirmPairing(ctx, "chat456", "424242")
	if !apperrors.IsInvalidCode(err) {
		t.Fatalf("expired code err = %v", err)
	}
	if result.Message != "Invalid or expired code." {
		t.Errorf("message = %q", result.Message)
	}
}

func TestStartPairingKeepsOtherCodesByDefault(t *testing.T) {
	engine, _ := newTestPairing(PairingOptions{Generate: sequence("111111", "222222")})
	ctx := context.Background()

	first, _ := engine.StartPairing(ctx, "alexaUser123")
	second, _ := engine.StartPairing(ctx, "alexaUser123")

	if _, err := engine.ConfirmPairing(ctx, "chat456", first); err != nil {
		t.Fatalf("first code should still be valid: %v", err)
	}
	if _, err := engine.ConfirmPairing(ctx, "chat789", second); err != nil {
		t.Fatalf("second code should still be valid: %v", err)
	}
}

func TestStartPairingSingleCodePerIdentity(t *testing.T) {
	engine, _ := newTestPairing(PairingOptions{
		SingleCodePerIdentity: true,
		Generate:              sequence("111111", "222222"),
	})
	ctx := context.Background()

	first, _ := engine.StartPairing(ctx, "alexaUser123")
	second, _ := engine.StartPairing(ctx, "alexaUser123")

	if _, err := engine.ConfirmPairing(ctx, "chat456", first); !apperrors.IsInvalidCode(err) {
		t.Fatalf("superseded code err = %v", err)
	}
	if _, err := engine.ConfirmPairing(ctx, "chat456", second); err != nil {
		t.Fatalf("latest code: %v", err)
	}
}

func TestStartPairingAvoidsLiveCollision(t *testing.T) {
	engine, _ := newTestPairing(PairingOptions{Generate: sequence("333333", "333333", "444444")})
	ctx := context.Background()

	if _, err := engine.StartPairing(ctx, "voiceA"); err != nil {
		t.Fatal(err)
	}
	code, err := engine.StartPairing(ctx, "voiceB")
	if err != nil {
		t.Fatal(err)
	}
	if code != "444444" {
		t.Fatalf("code = %s, want a fresh code instead of clobbering voiceA", code)
	}
}

func TestPurgeExpired(t *testing.T) {
	engine, clock := newTestPairing(PairingOptions{Generate: sequence("555555", "666666")})
	ctx := context.Background()

	_, _ = engine.StartPairing(ctx, "voiceA")
	clock.now = clock.now.Add(3 * time.Minute)
	_, _ = engine.StartPairing(ctx, "voiceB")
	clock.now = clock.now.Add(3 * time.Minute)

	n, err := engine.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("PurgeExpired = %d, %v", n, err)
	}
}
