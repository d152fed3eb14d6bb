package token

import (
	"crypto/rand"
	"fmt"
)

// 令牌字符集：大小写字母 + 数字
const alphabet = "abcdefghijklmnopqrstuvwxyz" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength 默认令牌长度。
//
// 62^24 的取值空间在预期身份规模下碰撞概率可以忽略，
// 令牌因此可以直接充当持有即授权的访问凭证。
const DefaultLength = 24

// MinLength 允许配置的最小令牌长度。
const MinLength = 20

// Generator 基于 crypto/rand 生成不可猜测的访问令牌。
type Generator struct {
	length int
}

// NewGenerator 创建令牌生成器，length 小于 MinLength 时使用默认长度。
func NewGenerator(length int) *Generator {
	if length < MinLength {
		length = DefaultLength
	}
	return &Generator{length: length}
}

// Length 返回生成令牌的长度。
func (g *Generator) Length() int {
	return g.length
}

// Generate 生成一个新令牌。
//
// 使用拒绝采样消除取模偏差，保证每个字符在字符集上均匀分布。
func (g *Generator) Generate() (string, error) {
	// 大于 limit 的随机字节丢弃重采样
	limit := byte(256 - 256%len(alphabet))

	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length)
	for len(out) < g.length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == g.length {
				break
			}
		}
	}
	return string(out), nil
}
