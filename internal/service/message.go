package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/security"
	"murmur/backend/internal/storage"
)

// ErrRecipientNotFound 收件身份不存在
var ErrRecipientNotFound = errors.New("recipient not found")

// MessageService 封装消息处理逻辑。
type MessageService struct {
	repo       storage.MessageRepository
	identities storage.IdentityRepository
	filter     *security.ContentFilter
	log        *zap.Logger
}

// NewMessageService 创建消息业务服务。
func NewMessageService(repo storage.MessageRepository, identities storage.IdentityRepository, log *zap.Logger) *MessageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MessageService{
		repo:       repo,
		identities: identities,
		filter:     security.NewContentFilter(),
		log:        log,
	}
}

// Send 向指定身份投递一条匿名消息。
//
// 先校验内容、确认收件身份存在，再写入消息，保证不会产生指向
// 不存在令牌的孤儿消息。计数累加是尽力而为：失败只记日志，
// 已写入的消息不回滚。
func (s *MessageService) Send(linkToken, content string) (*domain.Message, error) {
	content = domain.NormalizeContent(content)
	if err := domain.ValidateContent(content); err != nil {
		return nil, err
	}

	if _, err := s.identities.GetIdentityByToken(linkToken); err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	// 审核信号只记日志，不拦截投递
	if suspicious, reason := s.filter.Scan(content); suspicious {
		s.log.Warn("suspicious message content",
			zap.String("link_token", linkToken),
			zap.String("reason", reason),
		)
	}

	message := &domain.Message{
		ID:             uuid.NewString(),
		RecipientToken: linkToken,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
		IsRead:         false,
	}

	if err := s.repo.SaveMessage(message); err != nil {
		if errors.Is(err, storage.ErrIdentityNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	if err := s.identities.IncrementMessageCount(linkToken); err != nil {
		s.log.Warn("failed to increment message count",
			zap.String("link_token", linkToken),
			zap.Error(err),
		)
	}

	return message, nil
}

// List 返回某身份的收件身份信息与全部未过期消息（按创建时间倒序）。
func (s *MessageService) List(linkToken string) (*domain.Identity, []domain.Message, error) {
	identity, err := s.identities.GetIdentityByToken(linkToken)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.repo.ListMessagesByToken(linkToken)
	if err != nil {
		return nil, nil, err
	}
	return identity, messages, nil
}

// MarkRead 将消息标记为已读（幂等）。
//
// 消息可能在列表返回后被清理任务删除，这时返回 storage.ErrMessageNotFound。
func (s *MessageService) MarkRead(messageID string) (*domain.Message, error) {
	return s.repo.MarkMessageRead(messageID)
}
