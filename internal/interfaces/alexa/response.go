package alexa

// ResponseEnvelope 技能响应
type ResponseEnvelope struct {
	Version  string   `json:"version"`
	Response Response `json:"response"`
}

// Response 响应体
type Response struct {
	OutputSpeech     *OutputSpeech `json:"outputSpeech,omitempty"`
	Reprompt         *Reprompt     `json:"reprompt,omitempty"`
	Directives       []Directive   `json:"directives,omitempty"`
	ShouldEndSession *bool         `json:"shouldEndSession,omitempty"`
}

// OutputSpeech SSML 语音
type OutputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

// Reprompt 追问
type Reprompt struct {
	OutputSpeech OutputSpeech `json:"outputSpeech"`
}

// Directive is an AudioPlayer.Play directive.
type Directive struct {
	Type         string    `json:"type"`
	PlayBehavior string    `json:"playBehavior"`
	AudioItem    AudioItem `json:"audioItem"`
}

// AudioItem 音频条目
type AudioItem struct {
	Stream Stream `json:"stream"`
}

// Stream 音频流
type Stream struct {
	URL                  string `json:"url"`
	Token                string `json:"token"`
	OffsetInMilliseconds int    `json:"offsetInMilliseconds"`
}

// Empty returns a response with no speech, used for session end and
// playback callbacks.
func Empty() *ResponseEnvelope {
	return &ResponseEnvelope{Version: "1.0"}
}

// Speak returns a response speaking ssml (without the <speak> wrapper).
func Speak(ssml string) *ResponseEnvelope {
	env := Empty()
	env.Response.OutputSpeech = &OutputSpeech{Type: "SSML", SSML: wrapSpeak(ssml)}
	return env
}

// WithReprompt keeps the session open and asks again with ssml.
func (e *ResponseEnvelope) WithReprompt(ssml string) *ResponseEnvelope {
	e.Response.Reprompt = &Reprompt{OutputSpeech: OutputSpeech{Type: "SSML", SSML: wrapSpeak(ssml)}}
	open := false
	e.Response.ShouldEndSession = &open
	return e
}

// EndSession 结束会话
func (e *ResponseEnvelope) EndSession() *ResponseEnvelope {
	end := true
	e.Response.ShouldEndSession = &end
	return e
}

// WithAudio appends an AudioPlayer.Play directive replacing the queue.
func (e *ResponseEnvelope) WithAudio(url, token string) *ResponseEnvelope {
	e.Response.Directives = append(e.Response.Directives, Directive{
		Type:         "AudioPlayer.Play",
		PlayBehavior: "REPLACE_ALL",
		AudioItem: AudioItem{Stream: Stream{
			URL:                  url,
			Token:                token,
			OffsetInMilliseconds: 0,
		}},
	})
	return e
}

func wrapSpeak(ssml string) string {
	return "<speak>" + ssml + "</speak>"
}
