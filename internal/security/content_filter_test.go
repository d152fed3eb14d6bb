package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentFilter_Scan(t *testing.T) {
	filter := NewContentFilter()

	t.Run("普通消息不标记", func(t *testing.T) {
		suspicious, reason := filter.Scan("hey, I really liked your talk today")
		assert.False(t, suspicious)
		assert.Empty(t, reason)
	})

	t.Run("脚本注入被标记", func(t *testing.T) {
		cases := []string{
			"<script>alert(1)</script>",
			"click javascript:void(0)",
			"<img onerror=steal()>",
			"<iframe src=\"evil\">",
		}
		for _, content := range cases {
			suspicious, reason := filter.Scan(content)
			assert.True(t, suspicious, content)
			assert.NotEmpty(t, reason)
		}
	})

	t.Run("单个垃圾关键词不标记", func(t *testing.T) {
		suspicious, _ := filter.Scan("congratulations on the new job")
		assert.False(t, suspicious)
	})

	t.Run("多个垃圾关键词被标记", func(t *testing.T) {
		suspicious, reason := filter.Scan("congratulations winner, claim your free money now")
		assert.True(t, suspicious)
		assert.Equal(t, "multiple spam keywords", reason)
	})
}
