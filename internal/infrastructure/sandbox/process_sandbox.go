package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotAllowed 命令不在白名单中
	ErrNotAllowed = errors.New("sandbox: command not allowed")
	// ErrTimeout 命令执行超时被杀死
	ErrTimeout = errors.New("sandbox: command timed out")
)

// maxCapture bounds how much of each output stream is kept.
const maxCapture = 64 << 10

// Config 沙箱配置
type Config struct {
	WorkDir     string        // 工作目录
	Timeout     time.Duration // 执行超时
	AllowedBins []string      // 允许的二进制文件
	TempDir     string        // 临时文件目录
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		WorkDir:     os.TempDir(),
		Timeout:     60 * time.Second,
		AllowedBins: []string{"ffmpeg", "ffprobe"},
		TempDir:     os.TempDir(),
	}
}

// ProcessSandbox runs allow-listed binaries in their own process group so a
// timeout kills the whole tree.
type ProcessSandbox struct {
	config *Config
	logger *zap.Logger
}

// NewProcessSandbox 创建进程沙箱
func NewProcessSandbox(config *Config, logger *zap.Logger) (*ProcessSandbox, error) {
	// 确保工作目录存在
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	if err := os.MkdirAll(config.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &ProcessSandbox{
		config: config,
		logger: logger.With(zap.String("component", "sandbox")),
	}, nil
}

// Result 执行结果
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Killed   bool // 是否被超时杀死
}

// Execute runs command with args. A non-zero exit status is reported through
// Result.ExitCode, not as an error.
func (s *ProcessSandbox) Execute(ctx context.Context, command string, args []string) (*Result, error) {
	startTime := time.Now()

	// 验证命令是否被允许
	if !s.isAllowed(command) {
		return nil, fmt.Errorf("%w: %s", ErrNotAllowed, command)
	}

	// 查找命令的完整路径
	cmdPath, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("command not found: %s: %w", command, err)
	}

	execCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, cmdPath, args...)
	cmd.Dir = s.config.WorkDir
	cmd.Env = s.buildEnvironment()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// 超时时杀死整个进程组
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = 2 * time.Second

	stdout := &tailBuffer{limit: maxCapture}
	stderr := &tailBuffer{limit: maxCapture}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	s.logger.Debug("Executing sandboxed command",
		zap.String("command", command),
		zap.Strings("args", args),
	)

	err = cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(startTime),
	}

	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		result.Killed = true
		result.ExitCode = -1
		s.logger.Warn("Command killed due to timeout",
			zap.String("command", command),
			zap.Duration("timeout", s.config.Timeout),
		)
		return result, fmt.Errorf("%w after %v", ErrTimeout, s.config.Timeout)
	}
	if ctx.Err() != nil {
		result.Killed = true
		result.ExitCode = -1
		return result, ctx.Err()
	}

	// 获取退出码
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("execution failed: %w", err)
		}
	}

	s.logger.Debug("Command completed",
		zap.String("command", command),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// Timeout 返回单次执行超时
func (s *ProcessSandbox) Timeout() time.Duration {
	return s.config.Timeout
}

// isAllowed 检查命令是否被允许
func (s *ProcessSandbox) isAllowed(command string) bool {
	baseName := filepath.Base(command)
	for _, allowed := range s.config.AllowedBins {
		if allowed == baseName || allowed == command {
			return true
		}
	}
	return false
}

// buildEnvironment 构建最小环境变量
func (s *ProcessSandbox) buildEnvironment() []string {
	sysPath := os.Getenv("PATH")
	if sysPath == "" {
		sysPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"
	}
	return []string{
		"PATH=" + sysPath,
		"HOME=" + s.config.WorkDir,
		"TMPDIR=" + s.config.TempDir,
		"LANG=C.UTF-8",
	}
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[len(p)-b.limit:])
		return n, nil
	}
	if over := b.buf.Len() + len(p) - b.limit; over > 0 {
		b.buf.Next(over)
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	return b.buf.String()
}
