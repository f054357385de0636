package alexa

import "strings"

// RequestEnvelope is the subset of the skill request body EchoBridge reads.
type RequestEnvelope struct {
	Version string  `json:"version"`
	Session Session `json:"session"`
	Context Context `json:"context"`
	Request Request `json:"request"`
}

// Session 会话信息, AudioPlayer 事件不携带
type Session struct {
	New         bool        `json:"new"`
	SessionID   string      `json:"sessionId"`
	Application Application `json:"application"`
	User        User        `json:"user"`
}

// Context 设备上下文
type Context struct {
	System System `json:"System"`
}

// System 系统信息
type System struct {
	Application Application `json:"application"`
	User        User        `json:"user"`
}

// Application 技能标识
type Application struct {
	ApplicationID string `json:"applicationId"`
}

// User 语音平台用户
type User struct {
	UserID string `json:"userId"`
}

// Request 请求体
type Request struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
	Locale    string `json:"locale"`
	Intent    Intent `json:"intent"`
	Reason    string `json:"reason"`
	Token     string `json:"token"`
}

// Intent 意图
type Intent struct {
	Name string `json:"name"`
}

// UserID prefers context.System, which every request type carries.
func (e *RequestEnvelope) UserID() string {
	if id := e.Context.System.User.UserID; id != "" {
		return id
	}
	return e.Session.User.UserID
}

// ApplicationID 返回请求所属技能
func (e *RequestEnvelope) ApplicationID() string {
	if id := e.Context.System.Application.ApplicationID; id != "" {
		return id
	}
	return e.Session.Application.ApplicationID
}

// IsAudioPlayerEvent 判断是否为 AudioPlayer 回调
func (e *RequestEnvelope) IsAudioPlayerEvent() bool {
	return strings.HasPrefix(e.Request.Type, "AudioPlayer.") || strings.HasPrefix(e.Request.Type, "PlaybackController.")
}
