package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/korjavin/echobridge/internal/interfaces/alexa"
)

// AlexaHandler 语音技能入口
type AlexaHandler struct {
	skill  *alexa.Skill
	logger *zap.Logger
}

// NewAlexaHandler 创建技能处理器
func NewAlexaHandler(skill *alexa.Skill, logger *zap.Logger) *AlexaHandler {
	return &AlexaHandler{skill: skill, logger: logger}
}

// Handle 处理 POST /alexa
func (h *AlexaHandler) Handle(c *gin.Context) {
	var env alexa.RequestEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed request envelope"})
		return
	}

	resp, err := h.skill.Handle(c.Request.Context(), &env)
	if err != nil {
		if errors.Is(err, alexa.ErrSkillMismatch) {
			h.logger.Warn("Rejected request for foreign skill", zap.String("application_id", env.ApplicationID()))
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "unknown skill"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}
