package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	t.Run("默认长度", func(t *testing.T) {
		g := NewGenerator(0)
		tok, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, tok, DefaultLength)
	})

	t.Run("自定义长度", func(t *testing.T) {
		g := NewGenerator(32)
		tok, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, tok, 32)
	})

	t.Run("低于最小长度回退默认值", func(t *testing.T) {
		g := NewGenerator(8)
		assert.Equal(t, DefaultLength, g.Length())
	})

	t.Run("只包含字母和数字", func(t *testing.T) {
		g := NewGenerator(DefaultLength)
		tok, err := g.Generate()
		require.NoError(t, err)
		for _, r := range tok {
			valid := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
			assert.True(t, valid, "unexpected character %q", r)
		}
	})

	t.Run("连续生成不重复", func(t *testing.T) {
		g := NewGenerator(DefaultLength)
		seen := make(map[string]bool)
		for i := 0; i < 1000; i++ {
			tok, err := g.Generate()
			require.NoError(t, err)
			assert.False(t, seen[tok], "duplicate token generated")
			seen[tok] = true
		}
	})
}
