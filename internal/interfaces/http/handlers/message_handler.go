package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/application/usecase"
	"github.com/korjavin/echobridge/internal/domain/valueobject"
	apperrors "github.com/korjavin/echobridge/pkg/errors"
)

// Relay is the slice of the relay use case the internal API drives.
type Relay interface {
	EnsureRecipient(ctx context.Context, voiceID string) error
	RelayTextToVoiceID(ctx context.Context, voiceID, text string) (int64, error)
	RelayVoiceToVoiceID(ctx context.Context, voiceID string, fetch usecase.AudioFetcher) (int64, error)
}

// Fetchers builds an AudioFetcher for a remote URL.
type Fetchers interface {
	Fetcher(url string) usecase.AudioFetcher
}

// Background runs tracked tasks that outlive the request.
type Background interface {
	Go(name string, fn func())
}

// MessageHandler 内部可信 API
type MessageHandler struct {
	relay      Relay
	fetchers   Fetchers
	background Background
	timeout    time.Duration
	logger     *zap.Logger
}

// NewMessageHandler 创建消息处理器; timeout bounds each background voice job
func NewMessageHandler(relay Relay, fetchers Fetchers, background Background, timeout time.Duration, logger *zap.Logger) *MessageHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &MessageHandler{
		relay:      relay,
		fetchers:   fetchers,
		background: background,
		timeout:    timeout,
		logger:     logger.With(zap.String("component", "internal_api")),
	}
}

// SendMessageRequest is the body of POST /api/v1/messages.
type SendMessageRequest struct {
	MessageType    string         `json:"messageType"`
	Payload        MessagePayload `json:"payload"`
	RecipientToken string         `json:"recipientToken"`
}

// MessagePayload carries text for TEXT and audioUrl for VOICE.
type MessagePayload struct {
	Text     string `json:"text"`
	AudioURL string `json:"audioUrl"`
}

// SendMessageResponse 受理响应
type SendMessageResponse struct {
	Status    string `json:"status"`
	MessageID string `json:"messageId"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// RequireAPIKey rejects requests without the shared key. It runs before the
// handler so an unauthenticated body is never read.
func RequireAPIKey(key string) gin.HandlerFunc {
	want := []byte(key)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-API-Key"))
		if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

// SendMessage 处理 POST /api/v1/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed JSON body", Code: string(apperrors.CodeInvalidInput)})
		return
	}

	kind, problem := validate(&req)
	if problem != "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: problem, Code: string(apperrors.CodeInvalidInput)})
		return
	}

	ctx := c.Request.Context()
	voiceID := strings.TrimSpace(req.RecipientToken)
	correlationID := uuid.NewString()
	log := h.logger.With(zap.String("correlation_id", correlationID), zap.String("kind", string(kind)))

	if err := h.relay.EnsureRecipient(ctx, voiceID); err != nil {
		h.fail(c, log, err)
		return
	}

	switch kind {
	case valueobject.MessageKindText:
		id, err := h.relay.RelayTextToVoiceID(ctx, voiceID, req.Payload.Text)
		if err != nil {
			h.fail(c, log, err)
			return
		}
		log.Info("Internal text message delivered", zap.Int64("message_id", id))

	case valueobject.MessageKindVoice:
		fetch := h.fetchers.Fetcher(req.Payload.AudioURL)
		h.background.Go("internal-api-voice", func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), h.timeout)
			defer cancel()
			id, err := h.relay.RelayVoiceToVoiceID(jobCtx, voiceID, fetch)
			if err != nil {
				log.Error("Internal voice message failed",
					zap.String("error_code", string(apperrors.CodeOf(err))),
					zap.Error(err))
				return
			}
			log.Info("Internal voice message delivered", zap.Int64("message_id", id))
		})
	}

	c.JSON(http.StatusAccepted, SendMessageResponse{Status: "success", MessageID: correlationID})
}

func (h *MessageHandler) fail(c *gin.Context, log *zap.Logger, err error) {
	switch {
	case apperrors.IsNotPaired(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipient is not paired", Code: string(apperrors.CodeNotPaired)})
	case apperrors.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message", Code: string(apperrors.CodeInvalidInput)})
	default:
		log.Error("Internal API request failed",
			zap.String("error_code", string(apperrors.CodeOf(err))),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

func validate(req *SendMessageRequest) (valueobject.MessageKind, string) {
	kind, ok := valueobject.ParseMessageKind(req.MessageType)
	if !ok {
		return "", "messageType must be TEXT or VOICE"
	}
	if strings.TrimSpace(req.RecipientToken) == "" {
		return "", "recipientToken is required"
	}
	switch kind {
	case valueobject.MessageKindText:
		if strings.TrimSpace(req.Payload.Text) == "" {
			return "", "payload.text is required"
		}
	case valueobject.MessageKindVoice:
		u, err := url.Parse(req.Payload.AudioURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return "", "payload.audioUrl must be an https URL"
		}
	}
	return kind, ""
}
