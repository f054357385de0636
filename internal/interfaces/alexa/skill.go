package alexa

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application/usecase"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// ErrSkillMismatch is returned for requests addressed to another skill.
var ErrSkillMismatch = errors.New("alexa: request for a different skill")

const (
	speechError      = "Sorry, I had trouble doing what you asked. Please try again."
	speechHelp       = "You can ask me to read your messages or pair your device. How can I help?"
	speechGoodbye    = "Goodbye!"
	speechNotPaired  = "You are not paired yet. Please invoke the skill again to get a pairing code."
	speechNoMessages = "You have no new messages."
	speechPlaying    = "Playing voice message..."
	speechSendCode   = "Please send this code to the EchoBridge Telegram bot."
)

// Service is what the skill needs from the application layer;
// *usecase.SkillUseCase satisfies it.
type Service interface {
	Launch(ctx context.Context, voiceID string) (*usecase.LaunchResult, error)
	ReadNext(ctx context.Context, voiceID string) (*usecase.ReadResult, error)
	RequestCode(ctx context.Context, voiceID string) (string, error)
}

// Skill turns request envelopes into responses.
type Skill struct {
	service  Service
	skillID  string
	maxRunes int
	logger   *zap.Logger
}

// NewSkill 创建技能分发器; skillID 为空时不校验
func NewSkill(service Service, skillID string, maxRunes int, logger *zap.Logger) *Skill {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxSpeechRunes
	}
	return &Skill{
		service:  service,
		skillID:  skillID,
		maxRunes: maxRunes,
		logger:   logger.With(zap.String("component", "alexa")),
	}
}

// Handle answers one request. Only ErrSkillMismatch is returned as an
// error; every other failure becomes a spoken apology.
func (s *Skill) Handle(ctx context.Context, env *RequestEnvelope) (*ResponseEnvelope, error) {
	if s.skillID != "" && env.ApplicationID() != s.skillID {
		return nil, ErrSkillMismatch
	}

	event := Decode(env)
	resp, err := s.dispatch(ctx, event)
	if err != nil {
		s.logger.Error("Skill request failed",
			zap.String("request_type", env.Request.Type),
			zap.String("request_id", env.Request.RequestID),
			zap.String("error_code", string(apperrors.CodeOf(err))),
			zap.Error(err),
		)
		return Speak(speechError).WithReprompt(speechError), nil
	}
	return resp, nil
}

func (s *Skill) dispatch(ctx context.Context, event SkillEvent) (*ResponseEnvelope, error) {
	switch ev := event.(type) {
	case LaunchEvent:
		return s.launch(ctx, ev.UserID)
	case ReadMessagesEvent:
		return s.readMessages(ctx, ev.UserID)
	case PairDeviceEvent:
		code, err := s.service.RequestCode(ctx, ev.UserID)
		if err != nil {
			return nil, err
		}
		return Speak("Your pairing code is " + Digits(code) + ". " + speechSendCode).EndSession(), nil
	case HelpEvent:
		return Speak(speechHelp).WithReprompt(speechHelp), nil
	case StopEvent:
		return Speak(speechGoodbye).EndSession(), nil
	case SessionEndedEvent:
		s.logger.Info("Session ended", zap.String("reason", ev.Reason))
		return Empty(), nil
	case PlaybackEvent:
		s.logger.Debug("Playback event", zap.String("type", ev.Type), zap.String("token", ev.Token))
		return Empty(), nil
	case UnknownEvent:
		return nil, fmt.Errorf("unhandled request %s %s", ev.Type, ev.Intent)
	default:
		return nil, fmt.Errorf("unexpected event %T", event)
	}
}

func (s *Skill) launch(ctx context.Context, voiceID string) (*ResponseEnvelope, error) {
	res, err := s.service.Launch(ctx, voiceID)
	if err != nil {
		return nil, err
	}
	if !res.Paired {
		return Speak("Welcome to EchoBridge. I am not linked to your Telegram account yet. " +
			"Your pairing code is " + Digits(res.Code) + ". " + speechSendCode).EndSession(), nil
	}

	plural := "s"
	if res.Unread == 1 {
		plural = ""
	}
	text := fmt.Sprintf("Welcome back to EchoBridge. You have %d new message%s. Say \"read messages\" to hear them.", res.Unread, plural)
	text = EscapeText(text)
	return Speak(text).WithReprompt(text), nil
}

func (s *Skill) readMessages(ctx context.Context, voiceID string) (*ResponseEnvelope, error) {
	res, err := s.service.ReadNext(ctx, voiceID)
	if err != nil {
		if apperrors.IsNotPaired(err) {
			return Speak(speechNotPaired).EndSession(), nil
		}
		return nil, err
	}
	if res == nil {
		return Speak(speechNoMessages).EndSession(), nil
	}

	msg := res.Message
	if msg.IsVoice() {
		return Speak(speechPlaying).
			WithAudio(res.AudioURL, strconv.FormatInt(msg.ID(), 10)).
			EndSession(), nil
	}
	body := EscapeText(Truncate(msg.Payload(), s.maxRunes))
	return Speak("Message from Telegram: " + body).EndSession(), nil
}
