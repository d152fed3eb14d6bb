package httptransport

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/service"
	"murmur/backend/internal/storage"
)

// MessageHandler 消息相关 API 处理器
type MessageHandler struct {
	messages *service.MessageService
	log      *zap.Logger
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(messages *service.MessageService, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		log:      log,
	}
}

type sendMessageRequest struct {
	LinkToken string `json:"linkToken"`
	Content   string `json:"content"`
}

type sendMessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type messageItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

type messageListResponse struct {
	Success      bool          `json:"success"`
	Messages     []messageItem `json:"messages"`
	MessageCount int           `json:"messageCount"`
	Handle       string        `json:"handle"`
}

type markReadResponse struct {
	Success bool `json:"success"`
}

// Send 向令牌对应的身份投递一条匿名消息
func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: MsgInvalidRequest})
		return
	}

	_, err := h.messages.Send(req.LinkToken, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyContent):
			c.JSON(http.StatusBadRequest, errorResponse{Error: MsgEmptyContent})
		case errors.Is(err, domain.ErrContentTooLong):
			c.JSON(http.StatusBadRequest, errorResponse{Error: MsgContentTooLong})
		case errors.Is(err, service.ErrRecipientNotFound):
			c.JSON(http.StatusNotFound, errorResponse{Error: MsgUserNotFound})
		default:
			h.log.Error("failed to send message", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
		}
		return
	}

	c.JSON(http.StatusCreated, sendMessageResponse{
		Success: true,
		Message: "Message sent successfully",
	})
}

// List 返回某身份收到的全部未过期消息
func (h *MessageHandler) List(c *gin.Context) {
	linkToken := c.Param("linkToken")

	identity, messages, err := h.messages.List(linkToken)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: MsgUserNotFound})
			return
		}
		h.log.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
		return
	}

	items := make([]messageItem, 0, len(messages))
	for _, msg := range messages {
		items = append(items, messageItem{
			ID:        msg.ID,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
			IsRead:    msg.IsRead,
		})
	}

	c.JSON(http.StatusOK, messageListResponse{
		Success:      true,
		Messages:     items,
		MessageCount: identity.MessageCount,
		Handle:       identity.Handle,
	})
}

// MarkRead 将一条消息标记为已读
func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID := c.Param("id")

	if _, err := h.messages.MarkRead(messageID); err != nil {
		if errors.Is(err, storage.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: MsgMessageNotFound})
			return
		}
		h.log.Error("failed to mark message as read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
		return
	}

	c.JSON(http.StatusOK, markReadResponse{Success: true})
}
