package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application"
	"github.com/korjavin/echobridge/internal/infrastructure/config"
	"github.com/korjavin/echobridge/internal/infrastructure/logger"
)

const appName = "echobridge"

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          appName,
		Short:        "EchoBridge relays Telegram messages to Alexa",
		Long:         "EchoBridge 将 Telegram 文本和语音消息转发到 Alexa 技能, 通过六位配对码绑定身份",
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().String("log-level", "", "覆盖配置中的日志级别")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "启动服务 (HTTP + Telegram)",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "version",
			Short: "显示版本",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
			},
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "环境诊断",
			RunE:  runDoctor,
		},
		&cobra.Command{
			Use:   "config",
			Short: "打印生效的配置 (YAML)",
			RunE:  runConfig,
		},
		&cobra.Command{
			Use:   "purge-codes",
			Short: "立即清理过期配对码",
			Args:  cobra.NoArgs,
			RunE:  runPurgeCodes,
		},
		&cobra.Command{
			Use:   "pair <voice-id>",
			Short: "为语音身份签发配对码",
			Args:  cobra.ExactArgs(1),
			RunE:  runPair,
		},
	)
	return rootCmd
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, *config.Loader, string, error) {
	loader := config.NewLoader()
	cfg, used, err := loader.Load()
	if err != nil {
		return nil, nil, "", fmt.Errorf("config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	return cfg, loader, used, nil
}

// openCore builds the app without servers for one-shot commands.
func openCore(cmd *cobra.Command) (*application.App, func(), error) {
	cfg, _, _, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewLogger(logger.Config{Level: "warn", Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, nil, fmt.Errorf("logger init: %w", err)
	}
	app, err := application.NewApp(cfg, log, application.WithoutInterfaces())
	if err != nil {
		return nil, nil, err
	}
	return app, func() {
		if err := app.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
		_ = log.Sync()
	}, nil
}
