package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/service"
	"murmur/backend/internal/storage"
)

// IdentityHandler 身份相关 API 处理器
type IdentityHandler struct {
	identities *service.IdentityService
	log        *zap.Logger
}

// NewIdentityHandler 创建身份处理器
func NewIdentityHandler(identities *service.IdentityService, log *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		identities: identities,
		log:        log,
	}
}

type createIdentityRequest struct {
	Handle string `json:"handle"`
}

type identityPayload struct {
	Handle    string `json:"handle"`
	LinkToken string `json:"linkToken"`
}

type createIdentityResponse struct {
	Success bool            `json:"success"`
	User    identityPayload `json:"user"`
}

type checkIdentityResponse struct {
	Exists bool   `json:"exists"`
	Handle string `json:"handle"`
}

// Create 注册一个新昵称并返回私密链接令牌
func (h *IdentityHandler) Create(c *gin.Context) {
	var req createIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: MsgInvalidRequest})
		return
	}

	identity, err := h.identities.Create(req.Handle)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrHandleTooShort), errors.Is(err, domain.ErrHandleTooLong):
			c.JSON(http.StatusBadRequest, errorResponse{Error: MsgHandleLength})
		case errors.Is(err, domain.ErrInvalidHandle):
			c.JSON(http.StatusBadRequest, errorResponse{Error: MsgHandleCharset})
		case errors.Is(err, storage.ErrHandleTaken):
			c.JSON(http.StatusBadRequest, errorResponse{Error: MsgHandleTaken})
		default:
			h.log.Error("failed to create identity", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
		}
		return
	}

	c.JSON(http.StatusCreated, createIdentityResponse{
		Success: true,
		User: identityPayload{
			Handle:    identity.Handle,
			LinkToken: identity.LinkToken,
		},
	})
}

// Check 校验令牌对应的身份是否存在
func (h *IdentityHandler) Check(c *gin.Context) {
	linkToken := c.Param("linkToken")

	identity, err := h.identities.GetByToken(linkToken)
	if err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: MsgUserNotFound})
			return
		}
		h.log.Error("failed to check identity", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: MsgInternalError})
		return
	}

	c.JSON(http.StatusOK, checkIdentityResponse{
		Exists: true,
		Handle: identity.Handle,
	})
}
