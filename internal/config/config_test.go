package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// 保存原始环境变量
	originalEnvs := make(map[string]string)
	envKeys := []string{
		"MURMUR_SERVER_HOST",
		"MURMUR_SERVER_PORT",
		"MURMUR_RETENTION_MESSAGE_TTL",
		"MURMUR_RETENTION_SWEEP_INTERVAL",
		"MURMUR_RATELIMIT_GLOBAL_LIMIT",
		"MURMUR_RATELIMIT_SEND_LIMIT",
		"MURMUR_TOKEN_LENGTH",
		"MURMUR_CORS_ALLOWED_ORIGINS",
		"MURMUR_LOG_LEVEL",
		"MURMUR_LOG_DEVELOPMENT",
		"MURMUR_DATABASE_TYPE",
		"MURMUR_DATABASE_DSN",
	}

	for _, key := range envKeys {
		originalEnvs[key] = os.Getenv(key)
	}

	// 测试后恢复环境变量
	defer func() {
		for key, value := range originalEnvs {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	clearEnv := func() {
		for _, key := range envKeys {
			os.Unsetenv(key)
		}
	}

	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv()

		cfg, err := Load()

		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		// 验证默认值
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 48*time.Hour, cfg.Retention.MessageTTL)
		assert.Equal(t, 24*time.Hour, cfg.Retention.SweepInterval)
		assert.Equal(t, int64(100), cfg.RateLimit.GlobalLimit)
		assert.Equal(t, 15*time.Minute, cfg.RateLimit.GlobalWindow)
		assert.Equal(t, int64(5), cfg.RateLimit.SendLimit)
		assert.Equal(t, time.Minute, cfg.RateLimit.SendWindow)
		assert.Equal(t, 24, cfg.Token.Length)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
		assert.Equal(t, "", cfg.Database.Type)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv()

		os.Setenv("MURMUR_SERVER_HOST", "127.0.0.1")
		os.Setenv("MURMUR_SERVER_PORT", "9090")
		os.Setenv("MURMUR_RETENTION_MESSAGE_TTL", "24h")
		os.Setenv("MURMUR_RETENTION_SWEEP_INTERVAL", "1h")
		os.Setenv("MURMUR_RATELIMIT_SEND_LIMIT", "10")
		os.Setenv("MURMUR_CORS_ALLOWED_ORIGINS", "https://murmur.example.com,https://app.example.com")
		os.Setenv("MURMUR_LOG_LEVEL", "debug")

		cfg, err := Load()

		assert.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, 24*time.Hour, cfg.Retention.MessageTTL)
		assert.Equal(t, time.Hour, cfg.Retention.SweepInterval)
		assert.Equal(t, int64(10), cfg.RateLimit.SendLimit)
		assert.Equal(t, []string{"https://murmur.example.com", "https://app.example.com"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("非法保留期返回错误", func(t *testing.T) {
		clearEnv()
		os.Setenv("MURMUR_RETENTION_MESSAGE_TTL", "not-a-duration")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("令牌长度过短返回错误", func(t *testing.T) {
		clearEnv()
		os.Setenv("MURMUR_TOKEN_LENGTH", "8")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("数据库类型需要搭配DSN", func(t *testing.T) {
		clearEnv()
		os.Setenv("MURMUR_DATABASE_TYPE", "postgres")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("不支持的数据库类型返回错误", func(t *testing.T) {
		clearEnv()
		os.Setenv("MURMUR_DATABASE_TYPE", "mongodb")
		os.Setenv("MURMUR_DATABASE_DSN", "mongodb://localhost")

		_, err := Load()
		assert.Error(t, err)
	})
}
