package alexa

// 请求类型与意图名
const (
	RequestLaunch       = "LaunchRequest"
	RequestIntent       = "IntentRequest"
	RequestSessionEnded = "SessionEndedRequest"

	IntentReadMessages = "ReadMyMessagesIntent"
	IntentPairDevice   = "PairDeviceIntent"
	IntentHelp         = "AMAZON.HelpIntent"
	IntentCancel       = "AMAZON.CancelIntent"
	IntentStop         = "AMAZON.StopIntent"
)

// SkillEvent is the closed set of requests the skill understands. Decode
// maps every envelope to exactly one of them.
type SkillEvent interface {
	skillEvent()
}

// LaunchEvent 打开技能
type LaunchEvent struct{ UserID string }

// ReadMessagesEvent 读取下一条消息
type ReadMessagesEvent struct{ UserID string }

// PairDeviceEvent 请求配对码
type PairDeviceEvent struct{ UserID string }

// HelpEvent 帮助
type HelpEvent struct{}

// StopEvent covers both cancel and stop.
type StopEvent struct{}

// SessionEndedEvent 会话结束
type SessionEndedEvent struct{ Reason string }

// PlaybackEvent is any AudioPlayer or PlaybackController callback.
type PlaybackEvent struct {
	Type  string
	Token string
}

// UnknownEvent is anything else, including unknown intents.
type UnknownEvent struct {
	Type   string
	Intent string
}

func (LaunchEvent) skillEvent()       {}
func (ReadMessagesEvent) skillEvent() {}
func (PairDeviceEvent) skillEvent()   {}
func (HelpEvent) skillEvent()         {}
func (StopEvent) skillEvent()         {}
func (SessionEndedEvent) skillEvent() {}
func (PlaybackEvent) skillEvent()     {}
func (UnknownEvent) skillEvent()      {}

// Decode classifies an envelope.
func Decode(env *RequestEnvelope) SkillEvent {
	userID := env.UserID()
	switch env.Request.Type {
	case RequestLaunch:
		return LaunchEvent{UserID: userID}
	case RequestSessionEnded:
		return SessionEndedEvent{Reason: env.Request.Reason}
	case RequestIntent:
		switch env.Request.Intent.Name {
		case IntentReadMessages:
			return ReadMessagesEvent{UserID: userID}
		case IntentPairDevice:
			return PairDeviceEvent{UserID: userID}
		case IntentHelp:
			return HelpEvent{}
		case IntentCancel, IntentStop:
			return StopEvent{}
		}
		return UnknownEvent{Type: env.Request.Type, Intent: env.Request.Intent.Name}
	}
	if env.IsAudioPlayerEvent() {
		return PlaybackEvent{Type: env.Request.Type, Token: env.Request.Token}
	}
	return UnknownEvent{Type: env.Request.Type}
}
