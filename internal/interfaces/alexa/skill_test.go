package alexa

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application/usecase"
	"github.com/korjavin/echobridge/internal/domain/entity"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

type fakeService struct {
	launch  *usecase.LaunchResult
	read    *usecase.ReadResult
	code    string
	err     error
	readErr error
	calls   []string
}

func (f *fakeService) Launch(_ context.Context, voiceID string) (*usecase.LaunchResult, error) {
	f.calls = append(f.calls, "launch:"+voiceID)
	return f.launch, f.err
}

func (f *fakeService) ReadNext(_ context.Context, voiceID string) (*usecase.ReadResult, error) {
	f.calls = append(f.calls, "read:"+voiceID)
	return f.read, f.readErr
}

func (f *fakeService) RequestCode(_ context.Context, voiceID string) (string, error) {
	f.calls = append(f.calls, "code:"+voiceID)
	return f.code, f.err
}

func envelope(reqType, intent string) *RequestEnvelope {
	env := &RequestEnvelope{Version: "1.0"}
	env.Context.System.User.UserID = "alexaUser123"
	env.Context.System.Application.ApplicationID = "amzn1.ask.skill.echobridge"
	env.Request.Type = reqType
	env.Request.Intent.Name = intent
	return env
}

func message(t *testing.T, id int64, kind valueobject.MessageKind, payload string) *entity.Message {
	t.Helper()
	content, err := valueobject.NewMessageContent(kind, payload)
	require.NoError(t, err)
	return entity.ReconstructMessage(id, "alexaUser123", content, true, fixedTime)
}

func ssml(resp *ResponseEnvelope) string {
	if resp.Response.OutputSpeech == nil {
		return ""
	}
	return resp.Response.OutputSpeech.SSML
}

func TestDecode(t *testing.T) {
	tests := []struct {
		reqType, intent string
		want            SkillEvent
	}{
		{RequestLaunch, "", LaunchEvent{UserID: "alexaUser123"}},
		{RequestIntent, IntentReadMessages, ReadMessagesEvent{UserID: "alexaUser123"}},
		{RequestIntent, IntentPairDevice, PairDeviceEvent{UserID: "alexaUser123"}},
		{RequestIntent, IntentHelp, HelpEvent{}},
		{RequestIntent, IntentCancel, StopEvent{}},
		{RequestIntent, IntentStop, StopEvent{}},
		{RequestIntent, "OrderPizzaIntent", UnknownEvent{Type: RequestIntent, Intent: "OrderPizzaIntent"}},
		{RequestSessionEnded, "", SessionEndedEvent{}},
		{"AudioPlayer.PlaybackFinished", "", PlaybackEvent{Type: "AudioPlayer.PlaybackFinished"}},
		{"Display.ElementSelected", "", UnknownEvent{Type: "Display.ElementSelected"}},
	}
	for _, tt := range tests {
		t.Run(tt.reqType+"/"+tt.intent, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(envelope(tt.reqType, tt.intent)))
		})
	}
}

func TestLaunchUnpairedSpeaksDigits(t *testing.T) {
	svc := &fakeService{launch: &usecase.LaunchResult{Code: "482913"}}
	skill := NewSkill(svc, "", 0, zap.NewNop())

	resp, err := skill.Handle(context.Background(), envelope(RequestLaunch, ""))
	require.NoError(t, err)
	assert.Contains(t, ssml(resp), `<say-as interpret-as="digits">482913</say-as>`)
	assert.Contains(t, ssml(resp), "not linked to your Telegram account")
}

func TestLaunchPairedCountsMessages(t *testing.T) {
	for n, want := range map[int64]string{0: "0 new messages", 1: "1 new message.", 3: "3 new messages"} {
		svc := &fakeService{launch: &usecase.LaunchResult{Paired: true, Unread: n}}
		resp, err := NewSkill(svc, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestLaunch, ""))
		require.NoError(t, err)
		assert.Contains(t, ssml(resp), want)
		require.NotNil(t, resp.Response.Reprompt)
	}
}

func TestReadMessagesOutcomes(t *testing.T) {
	t.Run("not paired", func(t *testing.T) {
		svc := &fakeService{readErr: apperrors.NewNotPairedError("alexaUser123")}
		resp, err := NewSkill(svc, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, IntentReadMessages))
		require.NoError(t, err)
		assert.Contains(t, ssml(resp), "not paired yet")
	})

	t.Run("empty", func(t *testing.T) {
		resp, err := NewSkill(&fakeService{}, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, IntentReadMessages))
		require.NoError(t, err)
		assert.Contains(t, ssml(resp), "no new messages")
	})

	t.Run("text is escaped and truncated", func(t *testing.T) {
		svc := &fakeService{read: &usecase.ReadResult{
			Message: message(t, 7, valueobject.MessageKindText, "Tom & Jerry <3 "+strings.Repeat("a", 50)),
		}}
		resp, err := NewSkill(svc, "", 20, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, IntentReadMessages))
		require.NoError(t, err)
		assert.Equal(t, "<speak>Message from Telegram: Tom &amp; Jerry &lt;3 aaaaa</speak>", ssml(resp))
		assert.Empty(t, resp.Response.Directives)
	})

	t.Run("voice plays audio", func(t *testing.T) {
		svc := &fakeService{read: &usecase.ReadResult{
			Message:  message(t, 42, valueobject.MessageKindVoice, "0b6c7c1e-4a8f-4e44-9a43-2f1d8d7b3c11.mp3"),
			AudioURL: "https://bridge.example.org/media/0b6c7c1e-4a8f-4e44-9a43-2f1d8d7b3c11.mp3",
		}}
		resp, err := NewSkill(svc, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, IntentReadMessages))
		require.NoError(t, err)
		require.Len(t, resp.Response.Directives, 1)
		d := resp.Response.Directives[0]
		assert.Equal(t, "AudioPlayer.Play", d.Type)
		assert.Equal(t, "REPLACE_ALL", d.PlayBehavior)
		assert.Equal(t, "42", d.AudioItem.Stream.Token)
		assert.Equal(t, svc.read.AudioURL, d.AudioItem.Stream.URL)
		assert.Zero(t, d.AudioItem.Stream.OffsetInMilliseconds)
	})
}

func TestFailuresBecomeApology(t *testing.T) {
	svc := &fakeService{err: apperrors.NewStoreError("boom", errors.New("disk full"))}
	resp, err := NewSkill(svc, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, IntentPairDevice))
	require.NoError(t, err)
	assert.Equal(t, "<speak>"+speechError+"</speak>", ssml(resp))
	assert.NotContains(t, ssml(resp), "disk full")

	resp, err = NewSkill(&fakeService{}, "", 0, zap.NewNop()).Handle(context.Background(), envelope(RequestIntent, "OrderPizzaIntent"))
	require.NoError(t, err)
	assert.Contains(t, ssml(resp), "trouble")
}

func TestPlaybackAndSessionEndAreSilent(t *testing.T) {
	skill := NewSkill(&fakeService{}, "", 0, zap.NewNop())
	for _, rt := range []string{"AudioPlayer.PlaybackStarted", RequestSessionEnded} {
		resp, err := skill.Handle(context.Background(), envelope(rt, ""))
		require.NoError(t, err)
		raw, _ := json.Marshal(resp)
		assert.JSONEq(t, `{"version":"1.0","response":{}}`, string(raw))
	}
}

func TestSkillIDMismatch(t *testing.T) {
	svc := &fakeService{}
	skill := NewSkill(svc, "amzn1.ask.skill.other", 0, zap.NewNop())
	_, err := skill.Handle(context.Background(), envelope(RequestLaunch, ""))
	assert.ErrorIs(t, err, ErrSkillMismatch)
	assert.Empty(t, svc.calls)
}
