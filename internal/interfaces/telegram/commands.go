package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// 回复文案
const (
	replyWelcome = "Welcome to EchoBridge! 🌉\n" +
		"To get started, enable the EchoBridge skill on your Alexa device and say \"Alexa, pair device\".\n" +
		"Then enter the code here using: /pair <code>"
	replyHelp = "EchoBridge relays your Telegram messages to Alexa.\n\n" +
		"/pair <code> - link this chat with the code Alexa reads to you\n" +
		"/status - show the linked device and unread messages\n" +
		"/help - show this message\n\n" +
		"Once paired, send a text or a voice message and ask Alexa to read your messages."
	replyPairUsage     = "Please provide the 6-digit code. Example: /pair 123456"
	replyPairFailed    = "❌ An internal error occurred during pairing."
	replyAccessDenied  = "⚠️ Access denied. You need to pair your account with Alexa first.\nUse the command: /pair <code>"
	replyTextSaved     = "✅ Text message saved for Alexa."
	replyTextFailed    = "❌ Failed to save message."
	replyVoiceWorking  = "🎤 Processing voice message..."
	replyVoiceSent     = "✅ Voice message sent to Alexa."
	replyVoiceFailed   = "❌ Failed to process voice message."
	replyVoiceTooLarge = "❌ This voice message is too large to relay."
	replyUnsupported   = "Sorry, I can only process text and voice messages."
	replyUnknownCmd    = "Unknown command. Send /help to see what I can do."
	replyInternal      = "❌ An internal error occurred. Please try again later."
)

// Command 解析后的命令
type Command struct {
	Name    string // 命令名 (不含 /)
	RawArgs string // 原始参数字符串
}

// ParseCommand 解析 "/cmd@bot args", 非命令返回 nil
func ParseCommand(text string) *Command {
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	parts := strings.SplitN(text[1:], " ", 2)
	name := parts[0]
	// 群组中的 /cmd@botname
	if idx := strings.Index(name, "@"); idx != -1 {
		name = name[:idx]
	}
	if name == "" {
		return nil
	}

	cmd := &Command{Name: strings.ToLower(name)}
	if len(parts) > 1 {
		cmd.RawArgs = strings.TrimSpace(parts[1])
	}
	return cmd
}

// botCommands is the menu registered on start.
func botCommands() []tgbotapi.BotCommand {
	return []tgbotapi.BotCommand{
		{Command: "pair", Description: "🔗 Link this chat with Alexa"},
		{Command: "status", Description: "📊 Pairing status"},
		{Command: "help", Description: "❓ Help"},
	}
}
