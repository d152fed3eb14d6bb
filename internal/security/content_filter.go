// Package security 提供匿名消息内容的审核信号。
//
// 过滤器不拦截投递：消息是否可见由收件人决定，这里只产生
// 日志与指标可以消费的标记。
package security

import (
	"regexp"
	"strings"
)

// ContentFilter 消息内容过滤器
type ContentFilter struct {
	// 脚本注入模式：消息会在收件人的仪表盘中渲染
	injectionPatterns []*regexp.Regexp

	// 垃圾消息关键词
	spamKeywords []string
}

// NewContentFilter 创建内容过滤器
func NewContentFilter() *ContentFilter {
	return &ContentFilter{
		injectionPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script[^>]*>`),
			regexp.MustCompile(`(?i)javascript:`),
			regexp.MustCompile(`(?i)onload\s*=`),
			regexp.MustCompile(`(?i)onerror\s*=`),
			regexp.MustCompile(`(?i)<iframe[^>]*>`),
			regexp.MustCompile(`(?i)<object[^>]*>`),
			regexp.MustCompile(`(?i)<embed[^>]*>`),
		},
		spamKeywords: []string{
			"viagra", "casino", "lottery", "winner", "congratulations",
			"free money", "click here", "limited time", "act now",
			"guaranteed", "no risk", "earn money", "work from home",
		},
	}
}

// Scan 检查消息内容，返回是否可疑及原因。
func (cf *ContentFilter) Scan(content string) (bool, string) {
	if suspicious, reason := cf.checkInjection(content); suspicious {
		return true, reason
	}
	if suspicious, reason := cf.checkSpam(content); suspicious {
		return true, reason
	}
	return false, ""
}

// checkInjection 检查脚本注入片段
func (cf *ContentFilter) checkInjection(content string) (bool, string) {
	for _, pattern := range cf.injectionPatterns {
		if pattern.MatchString(content) {
			return true, "injection pattern: " + pattern.String()
		}
	}
	return false, ""
}

// checkSpam 检查垃圾消息关键词，命中 3 个以上才算可疑
func (cf *ContentFilter) checkSpam(content string) (bool, string) {
	contentLower := strings.ToLower(content)

	spamCount := 0
	for _, keyword := range cf.spamKeywords {
		if strings.Contains(contentLower, keyword) {
			spamCount++
		}
	}

	if spamCount >= 3 {
		return true, "multiple spam keywords"
	}

	return false, ""
}
