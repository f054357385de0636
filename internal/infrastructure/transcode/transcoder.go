// Package transcode converts arbitrary audio into the low bitrate MP3 assets
// the voice channel streams.
package transcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/infrastructure/assets"
	"github.com/korjavin/echobridge/internal/infrastructure/sandbox"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// Runner executes an external binary; *sandbox.ProcessSandbox satisfies it.
type Runner interface {
	Execute(ctx context.Context, command string, args []string) (*sandbox.Result, error)
}

// Observer receives one observation per Transcode call.
type Observer interface {
	ObserveTranscode(outcome string, elapsed time.Duration)
}

// Options 转码参数
type Options struct {
	FFmpegPath string
	Bitrate    string // e.g. 48k
	SampleRate int    // Hz
}

// DefaultOptions 语音清晰度优先的默认参数
func DefaultOptions() Options {
	return Options{FFmpegPath: "ffmpeg", Bitrate: "48k", SampleRate: 24000}
}

// Transcoder runs ffmpeg into a hidden staging file and commits the result
// to the asset store under a fresh name.
type Transcoder struct {
	runner   Runner
	store    assets.Store
	opts     Options
	observer Observer
	logger   *zap.Logger
}

// NewTranscoder 创建转码器, observer 可以为 nil
func NewTranscoder(runner Runner, store assets.Store, opts Options, observer Observer, logger *zap.Logger) *Transcoder {
	def := DefaultOptions()
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = def.FFmpegPath
	}
	if opts.Bitrate == "" {
		opts.Bitrate = def.Bitrate
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = def.SampleRate
	}
	return &Transcoder{
		runner:   runner,
		store:    store,
		opts:     opts,
		observer: observer,
		logger:   logger.With(zap.String("component", "transcoder")),
	}
}

// Args returns the ffmpeg argument list for one conversion.
func (t *Transcoder) Args(src, dst string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", src,
		"-vn",
		"-acodec", "libmp3lame",
		"-b:a", t.opts.Bitrate,
		"-ar", strconv.Itoa(t.opts.SampleRate),
		"-f", "mp3",
		"-y", dst,
	}
}

// Transcode converts sourcePath and returns the committed asset name. Every
// failure is a TRANSCODE_FAILED error and leaves no asset behind. The source
// file belongs to the caller and is never removed here.
func (t *Transcoder) Transcode(ctx context.Context, sourcePath string) (string, error) {
	start := time.Now()
	name, err := t.transcode(ctx, sourcePath)
	if t.observer != nil {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		t.observer.ObserveTranscode(outcome, time.Since(start))
	}
	if err != nil {
		t.logger.Warn("Transcode failed", zap.String("source", sourcePath), zap.Error(err))
		return "", err
	}
	t.logger.Info("Transcode completed",
		zap.String("asset", name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return name, nil
}

func (t *Transcoder) transcode(ctx context.Context, sourcePath string) (string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return "", apperrors.NewTranscodeError("source unavailable", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return "", apperrors.NewTranscodeError("source is empty", nil)
	}

	name := assets.NewName()
	staging := filepath.Join(t.store.Dir(), assets.StagingName(name))
	// Commit 成功后暂存文件已被移走, 这里只清理失败路径
	defer os.Remove(staging)

	res, err := t.runner.Execute(ctx, t.opts.FFmpegPath, t.Args(sourcePath, staging))
	if err != nil {
		return "", apperrors.NewTranscodeError("ffmpeg did not complete", err)
	}
	if res.ExitCode != 0 {
		return "", apperrors.NewTranscodeError(
			fmt.Sprintf("ffmpeg exited with %d", res.ExitCode),
			fmt.Errorf("%s", lastLine(res.Stderr)),
		)
	}

	out, err := os.Stat(staging)
	if err != nil || out.Size() == 0 {
		return "", apperrors.NewTranscodeError("ffmpeg produced no output", err)
	}

	if err := t.store.Commit(ctx, name, staging); err != nil {
		return "", apperrors.NewTranscodeError("commit asset", err)
	}
	return name, nil
}

// lastLine 返回 ffmpeg 错误输出的最后一行
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	if s == "" {
		return "no diagnostic output"
	}
	return s
}
