package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application/usecase"
	"github.com/korjavin/echobridge/internal/domain/service"
	"github.com/korjavin/echobridge/internal/infrastructure/download"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// Config Telegram 适配器配置
type Config struct {
	BotToken       string
	AllowedUserIDs []int64 // 为空表示不限制
	Debug          bool
	PollingTimeout int   // seconds
	MaxVoiceBytes  int64 // 0 表示不限制
}

// Bot is the part of *tgbotapi.BotAPI the adapter uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Relay is the application surface the bot drives.
type Relay interface {
	Pair(ctx context.Context, chatID, code string) (*service.PairingResult, error)
	Status(ctx context.Context, chatID string) (string, int64, error)
	RelayText(ctx context.Context, chatID, text string) (int64, error)
	RelayVoice(ctx context.Context, chatID string, fetch usecase.AudioFetcher) (int64, error)
}

// Fetchers builds fetchers for file URLs.
type Fetchers interface {
	Fetcher(url string) usecase.AudioFetcher
}

// Background runs tracked update handlers.
type Background interface {
	Go(name string, fn func())
}

// Adapter Telegram 适配器
type Adapter struct {
	bot        Bot
	config     *Config
	relay      Relay
	fetchers   Fetchers
	background Background
	allowed    map[int64]struct{}
	logger     *zap.Logger
	cancel     context.CancelFunc
}

// NewAdapter 创建 Telegram 适配器
func NewAdapter(config *Config, relay Relay, fetchers Fetchers, background Background, logger *zap.Logger) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(config.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	bot.Debug = config.Debug

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))
	return NewAdapterWithBot(bot, config, relay, fetchers, background, logger), nil
}

// NewAdapterWithBot wires an adapter around an existing bot client.
func NewAdapterWithBot(bot Bot, config *Config, relay Relay, fetchers Fetchers, background Background, logger *zap.Logger) *Adapter {
	allowed := make(map[int64]struct{}, len(config.AllowedUserIDs))
	for _, id := range config.AllowedUserIDs {
		allowed[id] = struct{}{}
	}
	return &Adapter{
		bot:        bot,
		config:     config,
		relay:      relay,
		fetchers:   fetchers,
		background: background,
		allowed:    allowed,
		logger:     logger.With(zap.String("component", "telegram")),
	}
}

// Start 启动适配器 (轮询模式)
func (a *Adapter) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = a.config.PollingTimeout
	if u.Timeout <= 0 {
		u.Timeout = 60
	}

	innerCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if _, err := a.bot.Request(tgbotapi.NewSetMyCommands(botCommands()...)); err != nil {
		a.logger.Warn("Failed to setup bot commands", zap.Error(err))
	}

	updates := a.bot.GetUpdatesChan(u)
	a.logger.Info("Starting Telegram polling")

	go func() {
		for {
			select {
			case <-innerCtx.Done():
				a.bot.StopReceivingUpdates()
				a.logger.Info("Telegram adapter stopped")
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				a.background.Go("telegram-update", func() {
					a.handleUpdate(innerCtx, update)
				})
			}
		}
	}()

	return nil
}

// Stop 停止适配器
func (a *Adapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
}

// handleUpdate 处理更新
func (a *Adapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if !a.isAllowed(msg.Chat.ID) {
		a.logger.Warn("Unauthorized access", zap.Int64("chat_id", msg.Chat.ID))
		return
	}

	a.dispatch(ctx, msg.Chat.ID, Classify(msg))
}

func (a *Adapter) dispatch(ctx context.Context, chatID int64, event InboundEvent) {
	chat := strconv.FormatInt(chatID, 10)
	log := a.logger.With(zap.Int64("chat_id", chatID), zap.String("event", fmt.Sprintf("%T", event)))

	// 这三种事件不需要已配对
	switch ev := event.(type) {
	case StartCommand:
		a.reply(chatID, replyWelcome)
		return
	case HelpCommand:
		a.reply(chatID, replyHelp)
		return
	case PairCommand:
		a.pair(ctx, log, chatID, chat, ev.Code)
		return
	}

	voiceID, unread, err := a.relay.Status(ctx, chat)
	if err != nil {
		if apperrors.IsNotPaired(err) {
			a.reply(chatID, replyAccessDenied)
			return
		}
		log.Error("Failed to resolve pairing", zap.Error(err))
		a.reply(chatID, replyInternal)
		return
	}

	switch ev := event.(type) {
	case StatusCommand:
		a.reply(chatID, statusText(voiceID, unread))
	case TextMessage:
		if _, err := a.relay.RelayText(ctx, chat, ev.Text); err != nil {
			log.Error("Failed to relay text", zap.String("error_code", string(apperrors.CodeOf(err))), zap.Error(err))
			a.reply(chatID, replyTextFailed)
			return
		}
		a.reply(chatID, replyTextSaved)
	case VoiceMessage:
		a.voice(ctx, log, chatID, chat, ev.Voice)
	case UnsupportedMessage:
		a.reply(chatID, replyUnsupported)
	case UnknownCommand:
		a.reply(chatID, replyUnknownCmd)
	}
}

func (a *Adapter) pair(ctx context.Context, log *zap.Logger, chatID int64, chat, code string) {
	if code == "" {
		a.reply(chatID, replyPairUsage)
		return
	}
	result, err := a.relay.Pair(ctx, chat, code)
	switch {
	case result != nil && result.Success:
		a.reply(chatID, result.Message)
	case result != nil:
		a.reply(chatID, "❌ "+result.Message)
	default:
		log.Error("Pairing error", zap.Error(err))
		a.reply(chatID, replyPairFailed)
	}
}

func (a *Adapter) voice(ctx context.Context, log *zap.Logger, chatID int64, chat string, v VoiceInfo) {
	if a.config.MaxVoiceBytes > 0 && v.Size > a.config.MaxVoiceBytes {
		a.reply(chatID, replyVoiceTooLarge)
		return
	}
	a.reply(chatID, replyVoiceWorking)

	id, err := a.relay.RelayVoice(ctx, chat, a.fileFetcher(v.FileID))
	if err != nil {
		log.Error("Failed to relay voice",
			zap.String("file_id", v.FileID),
			zap.String("mime", v.MimeType),
			zap.String("error_code", string(apperrors.CodeOf(err))),
			zap.Error(err),
		)
		if errors.Is(err, download.ErrTooLarge) {
			a.reply(chatID, replyVoiceTooLarge)
			return
		}
		a.reply(chatID, replyVoiceFailed)
		return
	}
	log.Info("Voice message relayed", zap.Int64("message_id", id))
	a.reply(chatID, replyVoiceSent)
}

func (a *Adapter) reply(chatID int64, text string) {
	if _, err := a.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		a.logger.Warn("Failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (a *Adapter) isAllowed(chatID int64) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[chatID]
	return ok
}

func statusText(voiceID string, unread int64) string {
	suffix := "s"
	if unread == 1 {
		suffix = ""
	}
	return fmt.Sprintf("🔗 Paired with Alexa device %s.\n📬 %d unread message%s waiting.", maskID(voiceID), unread, suffix)
}

// maskID keeps voice identities out of chat transcripts.
func maskID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return "…" + id[len(id)-6:]
}
