package sql

import (
	"database/sql"
	"errors"
	"time"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
)

// ========== Message Repository ==========

// SaveMessage 保存消息，收件身份必须已存在。
func (s *Store) SaveMessage(message *domain.Message) error {
	var exists int
	check := s.rebind(`SELECT 1 FROM identities WHERE link_token = ?`)
	if err := s.db.QueryRow(check, message.RecipientToken).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrIdentityNotFound
		}
		return err
	}

	query := s.rebind(`
		INSERT INTO messages (id, recipient_token, content, created_at, is_read)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		message.ID,
		message.RecipientToken,
		message.Content,
		message.CreatedAt,
		message.IsRead,
	)
	return err
}

// ListMessagesByToken 返回某身份的全部未过期消息，按创建时间倒序。
//
// 查询用 retention 推出的 cutoff 过滤，和 DeleteExpiredMessages
// 遵循同一条过期规则，清理滞后不会影响可见性。
func (s *Store) ListMessagesByToken(linkToken string) ([]domain.Message, error) {
	if _, err := s.GetIdentityByToken(linkToken); err != nil {
		return nil, err
	}

	query := `
		SELECT id, recipient_token, content, created_at, is_read
		FROM messages
		WHERE recipient_token = ?
	`
	args := []interface{}{linkToken}
	if cutoff, ok := s.cutoff(time.Now().UTC()); ok {
		query += ` AND created_at > ?`
		args = append(args, cutoff)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0)
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.ID, &msg.RecipientToken, &msg.Content, &msg.CreatedAt, &msg.IsRead); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// MarkMessageRead 将消息标记为已读（幂等）。
//
// 已过期但尚未清理的消息视为不存在。
func (s *Store) MarkMessageRead(messageID string) (*domain.Message, error) {
	query := `
		SELECT id, recipient_token, content, created_at, is_read
		FROM messages
		WHERE id = ?
	`
	args := []interface{}{messageID}
	if cutoff, ok := s.cutoff(time.Now().UTC()); ok {
		query += ` AND created_at > ?`
		args = append(args, cutoff)
	}

	var msg domain.Message
	err := s.db.QueryRow(s.rebind(query), args...).Scan(
		&msg.ID, &msg.RecipientToken, &msg.Content, &msg.CreatedAt, &msg.IsRead,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}

	if !msg.IsRead {
		update := s.rebind(`UPDATE messages SET is_read = TRUE WHERE id = ?`)
		if _, err := s.db.Exec(update, messageID); err != nil {
			return nil, err
		}
		msg.IsRead = true
	}
	return &msg, nil
}

// DeleteExpiredMessages 删除所有早于 cutoff 的消息，返回删除数量。
func (s *Store) DeleteExpiredMessages(cutoff time.Time) (int, error) {
	query := s.rebind(`DELETE FROM messages WHERE created_at < ?`)
	result, err := s.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
