package sql

import (
	"database/sql"
	"errors"

	"murmur/backend/internal/domain"
	"murmur/backend/internal/storage"
)

// ========== Identity Repository ==========

// SaveIdentity 保存新身份。
//
// 昵称与令牌的唯一性由数据库唯一索引保证，并发创建相同昵称时
// 落败方得到索引冲突错误，这里翻译为对应的业务错误。
func (s *Store) SaveIdentity(identity *domain.Identity) error {
	if identity.HandleKey == "" {
		identity.HandleKey = domain.NormalizeHandle(identity.Handle)
	}

	query := s.rebind(`
		INSERT INTO identities (id, handle, handle_key, link_token, created_at, message_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.Exec(query,
		identity.ID,
		identity.Handle,
		identity.HandleKey,
		identity.LinkToken,
		identity.CreatedAt,
		identity.MessageCount,
	)
	if err != nil {
		if isDuplicateKeyError(err, "idx_identities_handle_key") {
			return storage.ErrHandleTaken
		}
		if isDuplicateKeyError(err, "idx_identities_link_token") {
			return storage.ErrTokenExists
		}
		return err
	}
	return nil
}

// GetIdentityByHandle 根据昵称获取身份（大小写不敏感）。
func (s *Store) GetIdentityByHandle(handle string) (*domain.Identity, error) {
	query := s.rebind(`
		SELECT id, handle, handle_key, link_token, created_at, message_count
		FROM identities
		WHERE handle_key = ?
	`)
	return s.scanIdentity(s.db.QueryRow(query, domain.NormalizeHandle(handle)))
}

// GetIdentityByToken 根据访问令牌获取身份。
func (s *Store) GetIdentityByToken(linkToken string) (*domain.Identity, error) {
	query := s.rebind(`
		SELECT id, handle, handle_key, link_token, created_at, message_count
		FROM identities
		WHERE link_token = ?
	`)
	return s.scanIdentity(s.db.QueryRow(query, linkToken))
}

// IncrementMessageCount 累加身份的消息计数（单条原子更新）。
func (s *Store) IncrementMessageCount(linkToken string) error {
	query := s.rebind(`
		UPDATE identities
		SET message_count = message_count + 1
		WHERE link_token = ?
	`)
	result, err := s.db.Exec(query, linkToken)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrIdentityNotFound
	}
	return nil
}

// scanIdentity 扫描单行身份记录。
func (s *Store) scanIdentity(row *sql.Row) (*domain.Identity, error) {
	var identity domain.Identity
	err := row.Scan(
		&identity.ID,
		&identity.Handle,
		&identity.HandleKey,
		&identity.LinkToken,
		&identity.CreatedAt,
		&identity.MessageCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}
