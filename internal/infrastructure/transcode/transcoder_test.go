package transcode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/infrastructure/assets"
	"github.com/korjavin/echobridge/internal/infrastructure/sandbox"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// fakeFFmpeg records its arguments, fails on inputs containing "corrupt",
// hangs on inputs containing "slow" and otherwise writes a tiny mp3.
const fakeFFmpeg = `#!/bin/sh
echo "$*" > "$(dirname "$0")/args.txt"
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    *) out="$1"; shift ;;
  esac
done
if grep -q corrupt "$in"; then
  echo "$in: Invalid data found when processing input" >&2
  exit 1
fi
if grep -q slow "$in"; then
  sleep 10
fi
printf 'ID3fake-mp3-frames' > "$out"
`

type recordingObserver struct {
	outcomes []string
}

func (o *recordingObserver) ObserveTranscode(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

type fixture struct {
	transcoder *Transcoder
	store      *assets.Local
	binDir     string
	srcDir     string
	observer   *recordingObserver
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	binDir := t.TempDir()
	ffmpeg := filepath.Join(binDir, "ffmpeg")
	if err := os.WriteFile(ffmpeg, []byte(fakeFFmpeg), 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := assets.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	sb, err := sandbox.NewProcessSandbox(&sandbox.Config{
		WorkDir:     binDir,
		TempDir:     binDir,
		Timeout:     timeout,
		AllowedBins: []string{"ffmpeg"},
	}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	obs := &recordingObserver{}
	tr := NewTranscoder(sb, store, Options{FFmpegPath: ffmpeg}, obs, zap.NewNop())
	return &fixture{transcoder: tr, store: store, binDir: binDir, srcDir: t.TempDir(), observer: obs}
}

func (f *fixture) source(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(f.srcDir, "note.ogg")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) assetDirEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestTranscodeProducesCommittedAsset(t *testing.T) {
	f := newFixture(t, 5*time.Second)
	src := f.source(t, "OggS voice data")

	name, err := f.transcoder.Transcode(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if !assets.ValidName(name) {
		t.Fatalf("asset name %q", name)
	}
	if entries := f.assetDirEntries(t); len(entries) != 1 || entries[0] != name {
		t.Fatalf("asset dir = %v", entries)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatal("source must be left for the caller to remove")
	}

	args, err := os.ReadFile(filepath.Join(f.binDir, "args.txt"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"-i " + src, "-vn", "-acodec libmp3lame", "-b:a 48k", "-ar 24000", "-f mp3", "-y "} {
		if !strings.Contains(string(args), want) {
			t.Errorf("ffmpeg args %q missing %q", args, want)
		}
	}
	if len(f.observer.outcomes) != 1 || f.observer.outcomes[0] != "success" {
		t.Errorf("observer = %v", f.observer.outcomes)
	}
}

func TestTranscodeFailuresLeaveNoAsset(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"corrupt input", strPtr("corrupt bytes")},
		{"empty input", strPtr("")},
		{"missing input", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5*time.Second)
			src := filepath.Join(f.srcDir, "missing.ogg")
			if tt.content != nil {
				src = f.source(t, *tt.content)
			}

			name, err := f.transcoder.Transcode(context.Background(), src)
			if !apperrors.IsTranscode(err) {
				t.Fatalf("err = %v, want TRANSCODE_FAILED", err)
			}
			if name != "" {
				t.Fatalf("name = %q", name)
			}
			if entries := f.assetDirEntries(t); len(entries) != 0 {
				t.Fatalf("asset dir not empty: %v", entries)
			}
			if f.observer.outcomes[0] != "failure" {
				t.Errorf("observer = %v", f.observer.outcomes)
			}
		})
	}
}

func TestTranscodeTimeout(t *testing.T) {
	f := newFixture(t, 300*time.Millisecond)
	src := f.source(t, "slow input")

	_, err := f.transcoder.Transcode(context.Background(), src)
	if !apperrors.IsTranscode(err) {
		t.Fatalf("err = %v, want TRANSCODE_FAILED", err)
	}
	if entries := f.assetDirEntries(t); len(entries) != 0 {
		t.Fatalf("asset dir not empty: %v", entries)
	}
}

func strPtr(s string) *string { return &s }
