package application

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronParser accepts 5-field expressions and descriptors such as "@every 10m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Purger removes expired pairing codes.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// CodeJanitor periodically drops expired pairing codes. Redemption already
// rejects them; this only keeps the table small.
type CodeJanitor struct {
	cron    *cron.Cron
	purger  Purger
	timeout time.Duration
	logger  *zap.Logger
}

// NewCodeJanitor 创建定时清理任务
func NewCodeJanitor(purger Purger, schedule string, logger *zap.Logger) (*CodeJanitor, error) {
	j := &CodeJanitor{
		cron:    cron.New(cron.WithParser(cronParser)),
		purger:  purger,
		timeout: 30 * time.Second,
		logger:  logger.With(zap.String("component", "code_janitor")),
	}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce purges immediately.
func (j *CodeJanitor) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		j.logger.Error("Failed to purge expired pairing codes", zap.Error(err))
		return
	}
	if n > 0 {
		j.logger.Info("Purged expired pairing codes", zap.Int64("count", n))
	}
}

// Start 启动调度
func (j *CodeJanitor) Start() {
	j.cron.Start()
}

// Stop waits for a running purge to finish or ctx to expire.
func (j *CodeJanitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}
