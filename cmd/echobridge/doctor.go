package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/infrastructure/config"
	"github.com/korjavin/echobridge/internal/infrastructure/persistence"
)

type check struct {
	name string
	run  func(cfg *config.Config) (string, bool)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "◇ EchoBridge Doctor %s\n\n", version)

	cfg, _, used, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if used == "" {
		used = "未找到配置文件, 使用默认值与环境变量"
	}
	fmt.Fprintf(out, "  配置文件: %s\n\n", used)

	checks := []check{
		{"配置校验", checkValidate},
		{"ffmpeg", checkFFmpeg},
		{"资源目录", checkAssetDir},
		{"数据库", checkDatabase},
	}

	allOK := true
	for _, c := range checks {
		val, ok := c.run(cfg)
		icon := "\033[92m✓\033[0m"
		if !ok {
			icon = "\033[91m✗\033[0m"
			allOK = false
		}
		fmt.Fprintf(out, "  %s %s: %s\n", icon, c.name, val)
	}

	fmt.Fprintln(out)
	if !allOK {
		fmt.Fprintln(out, "存在问题, 请检查上方标记")
		return fmt.Errorf("doctor found problems")
	}
	fmt.Fprintln(out, "所有检查通过 ✓")
	return nil
}

func checkValidate(cfg *config.Config) (string, bool) {
	if err := cfg.Validate(); err != nil {
		return err.Error(), false
	}
	return "OK", true
}

func checkFFmpeg(cfg *config.Config) (string, bool) {
	path, err := exec.LookPath(cfg.Transcode.FFmpegPath)
	if err != nil {
		return fmt.Sprintf("%s 未找到", cfg.Transcode.FFmpegPath), false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, path, "-hide_banner", "-version").Run(); err != nil {
		return fmt.Sprintf("%s 无法运行: %v", path, err), false
	}
	return path, true
}

func checkAssetDir(cfg *config.Config) (string, bool) {
	if cfg.Assets.Backend != "local" {
		return fmt.Sprintf("%s 后端 (bucket %s), 跳过", cfg.Assets.Backend, cfg.Assets.S3.Bucket), true
	}
	if err := os.MkdirAll(cfg.Assets.Dir, 0o755); err != nil {
		return err.Error(), false
	}
	probe, err := os.CreateTemp(cfg.Assets.Dir, ".doctor-*")
	if err != nil {
		return fmt.Sprintf("%s 不可写: %v", cfg.Assets.Dir, err), false
	}
	probe.Close()
	os.Remove(probe.Name())
	abs, _ := filepath.Abs(cfg.Assets.Dir)
	return abs, true
}

func checkDatabase(cfg *config.Config) (string, bool) {
	if cfg.Database.Type == "memory" {
		return "内存模式, 重启后数据丢失", true
	}
	if cfg.Database.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			return err.Error(), false
		}
	}
	db, err := persistence.NewDBConnection(&cfg.Database, zap.NewNop())
	if err != nil {
		return err.Error(), false
	}
	defer persistence.Close(db)
	return cfg.Database.Type + " OK", true
}
