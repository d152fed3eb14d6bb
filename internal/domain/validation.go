package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 验证相关的错误定义
var (
	ErrHandleTooShort = errors.New("handle too short (min 3 chars)")
	ErrHandleTooLong  = errors.New("handle too long (max 20 chars)")
	ErrInvalidHandle  = errors.New("invalid handle format")
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content too long (max 500 chars)")
)

// 验证常量
const (
	MinHandleLength = 3
	MaxHandleLength = 20

	MaxContentLength = 500
)

// 昵称只允许字母、数字和下划线
var handleRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateHandle 验证昵称格式。
func ValidateHandle(handle string) error {
	if len(handle) < MinHandleLength {
		return ErrHandleTooShort
	}
	if len(handle) > MaxHandleLength {
		return ErrHandleTooLong
	}
	if !handleRegex.MatchString(handle) {
		return ErrInvalidHandle
	}
	return nil
}

// NormalizeContent 去除消息内容两端空白。
func NormalizeContent(content string) string {
	return strings.TrimSpace(content)
}

// ValidateContent 验证消息内容（应先经过 NormalizeContent）。
//
// 长度按字符数（rune）而非字节数计算，超长判定发生在任何持久化之前。
func ValidateContent(content string) error {
	if len(content) == 0 {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}
