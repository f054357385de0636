package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fsnotify/fsnotify"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/korjavin/echobridge/internal/application/usecase"
	"github.com/korjavin/echobridge/internal/domain/repository"
	"github.com/korjavin/echobridge/internal/domain/service"
	"github.com/korjavin/echobridge/internal/infrastructure/assets"
	"github.com/korjavin/echobridge/internal/infrastructure/config"
	"github.com/korjavin/echobridge/internal/infrastructure/download"
	"github.com/korjavin/echobridge/internal/infrastructure/logger"
	"github.com/korjavin/echobridge/internal/infrastructure/monitoring"
	"github.com/korjavin/echobridge/internal/infrastructure/persistence"
	"github.com/korjavin/echobridge/internal/infrastructure/sandbox"
	"github.com/korjavin/echobridge/internal/infrastructure/transcode"
	"github.com/korjavin/echobridge/internal/interfaces/alexa"
	httpServer "github.com/korjavin/echobridge/internal/interfaces/http"
	"github.com/korjavin/echobridge/internal/interfaces/http/handlers"
	"github.com/korjavin/echobridge/internal/interfaces/telegram"
	"github.com/korjavin/echobridge/pkg/safego"
)

// Option customises NewApp.
type Option func(*App)

// WithLogLevel hands the app the level handle of its logger so config
// reloads can change verbosity.
func WithLogLevel(level zap.AtomicLevel) Option {
	return func(app *App) { app.level = &level }
}

// WithoutInterfaces builds only the core, for one-shot CLI commands.
func WithoutInterfaces() Option {
	return func(app *App) { app.skipInterfaces = true }
}

// App 应用程序
type App struct {
	// 配置
	config         *config.Config
	logger         *zap.Logger
	level          *zap.AtomicLevel
	db             *gorm.DB
	skipInterfaces bool

	// 仓储层
	pairingRepo repository.PairingRepository
	messageRepo repository.MessageRepository

	// 领域服务
	pairing *service.PairingEngine
	mailbox *service.Mailbox

	// 基础设施
	metrics    *monitoring.Metrics
	assets     assets.Store
	resolver   assets.URLResolver
	transcoder *transcode.Transcoder
	downloader *download.Downloader
	background *safego.Group
	janitor    *CodeJanitor

	// 应用服务
	relay *usecase.RelayUseCase
	skill *usecase.SkillUseCase

	// 接口层
	telegramAdapter *telegram.Adapter
	httpServer      *httpServer.Server
}

// NewApp 创建应用程序（依赖注入容器）
func NewApp(cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if err := config.Bootstrap(cfg, log); err != nil {
		return nil, fmt.Errorf("failed to bootstrap directories: %w", err)
	}

	app := &App{
		config: cfg,
		logger: log,
	}
	for _, opt := range opts {
		opt(app)
	}

	// 初始化各层组件
	if err := app.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := app.initDomainServices(); err != nil {
		return nil, fmt.Errorf("failed to init domain services: %w", err)
	}

	if err := app.initInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to init infrastructure: %w", err)
	}

	if err := app.initApplicationServices(); err != nil {
		return nil, fmt.Errorf("failed to init application services: %w", err)
	}

	if app.skipInterfaces {
		return app, nil
	}
	if err := app.initInterfaces(); err != nil {
		return nil, fmt.Errorf("failed to init interfaces: %w", err)
	}

	return app, nil
}

// initRepositories 初始化仓储层
func (app *App) initRepositories() error {
	app.logger.Info("Initializing repositories", zap.String("type", app.config.Database.Type))

	if app.config.Database.Type == "memory" {
		app.pairingRepo = persistence.NewMemoryPairingRepository()
		app.messageRepo = persistence.NewMemoryMessageRepository()
		return nil
	}

	db, err := persistence.NewDBConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.db = db

	app.pairingRepo = persistence.NewGormPairingRepository(db)
	app.messageRepo = persistence.NewGormMessageRepository(db)
	return nil
}

// initDomainServices 初始化领域服务
func (app *App) initDomainServices() error {
	app.logger.Info("Initializing domain services")

	app.pairing = service.NewPairingEngine(app.pairingRepo, service.PairingOptions{
		CodeTTL:               app.config.Pairing.CodeTTL,
		SingleCodePerIdentity: app.config.Pairing.SingleCodePerIdentity,
	}, app.logger)
	app.mailbox = service.NewMailbox(app.messageRepo, app.logger)
	return nil
}

// initInfrastructure 初始化基础设施
func (app *App) initInfrastructure() error {
	app.logger.Info("Initializing infrastructure")
	cfg := app.config

	app.metrics = monitoring.NewMetrics()
	app.background = safego.NewGroup(app.logger)

	store, resolver, err := assets.FromConfig(cfg)
	if err != nil {
		return err
	}
	app.assets = store
	app.resolver = resolver

	sbCfg := sandbox.DefaultConfig()
	sbCfg.Timeout = cfg.Transcode.Timeout
	sbCfg.TempDir = cfg.Transcode.TempDir
	sbCfg.WorkDir = cfg.Transcode.TempDir
	sbCfg.AllowedBins = append(sbCfg.AllowedBins, cfg.Transcode.FFmpegPath)
	runner, err := sandbox.NewProcessSandbox(sbCfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to init sandbox: %w", err)
	}
	app.transcoder = transcode.NewTranscoder(runner, store, transcode.Options{
		FFmpegPath: cfg.Transcode.FFmpegPath,
		Bitrate:    cfg.Transcode.Bitrate,
		SampleRate: cfg.Transcode.SampleRate,
	}, app.metrics, app.logger)

	app.downloader = download.New(nil, cfg.InternalAPI.DownloadLimit, cfg.InternalAPI.FetchTimeout)

	janitor, err := NewCodeJanitor(app.pairing, cfg.Pairing.PurgeSchedule, app.logger)
	if err != nil {
		return err
	}
	app.janitor = janitor
	return nil
}

// initApplicationServices 初始化应用服务
func (app *App) initApplicationServices() error {
	app.logger.Info("Initializing application services")

	app.relay = usecase.NewRelayUseCase(app.pairing, app.mailbox, app.transcoder, app.assets,
		app.config.Transcode.TempDir, app.metrics, app.logger)
	app.skill = usecase.NewSkillUseCase(app.pairing, app.mailbox, app.resolver, app.metrics, app.logger)
	return nil
}

// initInterfaces 初始化接口层
func (app *App) initInterfaces() error {
	app.logger.Info("Initializing interfaces")
	cfg := app.config

	h := httpServer.Handlers{
		Alexa:      handlers.NewAlexaHandler(alexa.NewSkill(app.skill, cfg.Alexa.SkillID, cfg.Alexa.MaxSpeechRunes, app.logger), app.logger),
		Metrics:    app.metrics.Handler(),
		Middleware: []gin.HandlerFunc{app.metrics.GinMiddleware()},
	}
	if local, ok := app.assets.(*assets.Local); ok {
		h.Media = handlers.NewMediaHandler(local, app.logger)
	}
	if cfg.InternalAPI.Enabled {
		// 下载与转码共享一个超时预算
		timeout := cfg.InternalAPI.FetchTimeout + cfg.Transcode.Timeout
		h.Messages = handlers.NewMessageHandler(app.relay, app.downloader, app.background, timeout, app.logger)
	}
	app.httpServer = httpServer.NewServer(httpServer.Config{
		Host:   cfg.Server.Host,
		Port:   cfg.Server.Port,
		Mode:   cfg.Server.Mode,
		APIKey: cfg.InternalAPI.APIKey,
	}, h, app.logger)

	if cfg.Telegram.Enabled {
		tgCfg := &telegram.Config{
			BotToken:       cfg.Telegram.BotToken,
			AllowedUserIDs: cfg.Telegram.AllowIDs,
			Debug:          cfg.Telegram.Debug,
			PollingTimeout: cfg.Telegram.PollingTimeout,
			MaxVoiceBytes:  cfg.Telegram.MaxVoiceBytes,
		}
		tgFetch := download.New(nil, cfg.Telegram.MaxVoiceBytes, cfg.InternalAPI.FetchTimeout)
		adapter, err := telegram.NewAdapter(tgCfg, app.relay, tgFetch, app.background, app.logger)
		if err != nil {
			return err
		}
		app.telegramAdapter = adapter
	}
	return nil
}

// Start 启动应用
func (app *App) Start(ctx context.Context) error {
	app.logger.Info("Starting application")

	if err := app.httpServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if app.telegramAdapter != nil {
		if err := app.telegramAdapter.Start(ctx); err != nil {
			return fmt.Errorf("failed to start telegram adapter: %w", err)
		}
	}

	app.janitor.Start()

	app.logger.Info("Application started successfully")
	return nil
}

// Stop 停止应用; 等待后台任务结束后再关闭数据库
func (app *App) Stop(ctx context.Context) error {
	app.logger.Info("Stopping application")

	if app.telegramAdapter != nil {
		app.telegramAdapter.Stop()
	}

	if app.httpServer != nil {
		if err := app.httpServer.Stop(ctx); err != nil {
			app.logger.Error("Failed to stop HTTP server", zap.Error(err))
		}
	}

	app.janitor.Stop(ctx)

	if err := app.background.Wait(ctx); err != nil {
		app.logger.Warn("Background tasks still running at shutdown", zap.Error(err))
	}

	if app.db != nil {
		if err := persistence.Close(app.db); err != nil {
			app.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	app.logger.Info("Application stopped successfully")
	return nil
}

// Close releases resources of an app built WithoutInterfaces.
func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return persistence.Close(app.db)
}

// ApplyConfig reacts to a reloaded config file. Only the log level is hot;
// everything else needs a restart.
func (app *App) ApplyConfig(cfg *config.Config, e fsnotify.Event) {
	if app.level == nil {
		return
	}
	next := logger.ParseLevel(cfg.Log.Level)
	if next == app.level.Level() {
		return
	}
	app.level.SetLevel(next)
	app.logger.Info("Log level changed",
		zap.String("file", e.Name),
		zap.Stringer("level", next),
	)
}

// Relay 转发用例
func (app *App) Relay() *usecase.RelayUseCase {
	return app.relay
}

// Skill 语音技能用例
func (app *App) Skill() *usecase.SkillUseCase {
	return app.skill
}

// Pairing 配对引擎
func (app *App) Pairing() *service.PairingEngine {
	return app.pairing
}

// Logger 日志
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// AppConfig 配置
func (app *App) AppConfig() *config.Config {
	return app.config
}

// HTTPHandler exposes the router; nil when built WithoutInterfaces.
func (app *App) HTTPHandler() http.Handler {
	if app.httpServer == nil {
		return nil
	}
	return app.httpServer.Handler()
}
