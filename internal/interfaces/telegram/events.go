package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// InboundEvent is the closed set of chat updates the bot reacts to.
type InboundEvent interface {
	inboundEvent()
}

// StartCommand /start
type StartCommand struct{}

// HelpCommand /help
type HelpCommand struct{}

// PairCommand /pair <code>; Code is the raw argument and may be empty.
type PairCommand struct{ Code string }

// StatusCommand /status
type StatusCommand struct{}

// TextMessage 普通文本
type TextMessage struct{ Text string }

// VoiceMessage is a voice note or an audio file.
type VoiceMessage struct{ Voice VoiceInfo }

// UnsupportedMessage 图片、贴纸等无法转发的内容
type UnsupportedMessage struct{}

// UnknownCommand 未注册的命令
type UnknownCommand struct{ Name string }

func (StartCommand) inboundEvent()       {}
func (HelpCommand) inboundEvent()        {}
func (PairCommand) inboundEvent()        {}
func (StatusCommand) inboundEvent()      {}
func (TextMessage) inboundEvent()        {}
func (VoiceMessage) inboundEvent()       {}
func (UnsupportedMessage) inboundEvent() {}
func (UnknownCommand) inboundEvent()     {}

// Classify maps a chat message to exactly one event.
func Classify(msg *tgbotapi.Message) InboundEvent {
	if cmd := ParseCommand(msg.Text); cmd != nil {
		switch cmd.Name {
		case "start":
			return StartCommand{}
		case "help":
			return HelpCommand{}
		case "pair":
			return PairCommand{Code: cmd.RawArgs}
		case "status":
			return StatusCommand{}
		}
		return UnknownCommand{Name: cmd.Name}
	}
	if voice := ExtractVoice(msg); voice != nil {
		return VoiceMessage{Voice: *voice}
	}
	if msg.Text != "" {
		return TextMessage{Text: msg.Text}
	}
	return UnsupportedMessage{}
}
