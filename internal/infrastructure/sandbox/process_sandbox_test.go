package sandbox

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestSandbox(t *testing.T, timeout time.Duration, bins ...string) *ProcessSandbox {
	t.Helper()
	dir := t.TempDir()
	sb, err := NewProcessSandbox(&Config{
		WorkDir:     dir,
		TempDir:     dir,
		Timeout:     timeout,
		AllowedBins: bins,
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return sb
}

func TestExecuteRejectsUnlistedCommand(t *testing.T) {
	sb := newTestSandbox(t, time.Second, "ffmpeg")
	if _, err := sb.Execute(context.Background(), "sh", []string{"-c", "true"}); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
}

func TestExecuteReportsExitCode(t *testing.T) {
	sb := newTestSandbox(t, 5*time.Second, "sh")
	res, err := sb.Execute(context.Background(), "sh", []string{"-c", "echo boom >&2; exit 3"})
	if err != nil {
		t.Fatal(err)
	}
	if res.ExitCode != 3 || !strings.Contains(res.Stderr, "boom") {
		t.Fatalf("result = %+v", res)
	}
}

func TestExecuteKillsOnTimeout(t *testing.T) {
	sb := newTestSandbox(t, 200*time.Millisecond, "sh")
	start := time.Now()
	res, err := sb.Execute(context.Background(), "sh", []string{"-c", "sleep 10 & sleep 10"})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !res.Killed {
		t.Fatal("result should be marked killed")
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("process group was not killed promptly")
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	b := &tailBuffer{limit: 5}
	b.Write([]byte("abc"))
	b.Write([]byte("defg"))
	if b.String() != "cdefg" {
		t.Fatalf("tail = %q", b.String())
	}
	b.Write([]byte("0123456789"))
	if b.String() != "56789" {
		t.Fatalf("tail = %q", b.String())
	}
}
