package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// RetentionConfig 定义消息保留策略
type RetentionConfig struct {
	MessageTTL    time.Duration // 消息保留期，默认 48h，到期后对读取不可见
	SweepInterval time.Duration // 清理任务扫描周期，默认 24h
}

// RateLimitConfig 定义限流配置
type RateLimitConfig struct {
	GlobalLimit   int64         // 单 IP 全局窗口内最大请求数，默认 100
	GlobalWindow  time.Duration // 全局限流窗口，默认 15m
	SendLimit     int64         // 单 IP 发送消息窗口内最大次数，默认 5
	SendWindow    time.Duration // 发送限流窗口，默认 1m
	ThrottleRPS   float64       // 进程级令牌桶速率，默认 200
	ThrottleBurst int           // 进程级令牌桶容量，默认 400
}

// TokenConfig 定义链接令牌生成配置
type TokenConfig struct {
	Length int // 令牌长度，默认 24，最小 20
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到标准输出
}

// DatabaseConfig 定义数据库连接配置（支持 MySQL 和 PostgreSQL）
type DatabaseConfig struct {
	Type            string        // 数据库类型: "mysql" 或 "postgres"，留空使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 缓存服务配置
//
// 数据库存储模式下 Redis 承担身份缓存与跨实例限流计数；
// 内存存储模式下不使用。
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server    ServerConfig    // HTTP 服务器配置
	Retention RetentionConfig // 消息保留策略
	RateLimit RateLimitConfig // 限流配置
	Token     TokenConfig     // 链接令牌配置
	CORS      CORSConfig      // 跨域配置
	Log       LogConfig       // 日志配置
	Database  DatabaseConfig  // 数据库配置
	Redis     RedisConfig     // Redis 配置
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//   1. 系统环境变量（最高优先级）
//   2. .env 文件（如果存在）
//   3. 默认值
//
// 环境变量前缀: MURMUR_
// 例如: MURMUR_SERVER_PORT, MURMUR_RETENTION_MESSAGE_TTL
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	viper.SetEnvPrefix("murmur")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("retention.message_ttl", "48h")
	viper.SetDefault("retention.sweep_interval", "24h")
	viper.SetDefault("ratelimit.global_limit", 100)
	viper.SetDefault("ratelimit.global_window", "15m")
	viper.SetDefault("ratelimit.send_limit", 5)
	viper.SetDefault("ratelimit.send_window", "1m")
	viper.SetDefault("ratelimit.throttle_rps", 200)
	viper.SetDefault("ratelimit.throttle_burst", 400)
	viper.SetDefault("token.length", 24)
	viper.SetDefault("cors.allowed_origins", "*")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	messageTTL, err := time.ParseDuration(viper.GetString("retention.message_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid retention.message_ttl: %w", err)
	}
	if messageTTL <= 0 {
		return nil, fmt.Errorf("retention.message_ttl must be positive")
	}

	sweepInterval, err := time.ParseDuration(viper.GetString("retention.sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid retention.sweep_interval: %w", err)
	}
	if sweepInterval <= 0 {
		return nil, fmt.Errorf("retention.sweep_interval must be positive")
	}

	globalWindow, err := time.ParseDuration(viper.GetString("ratelimit.global_window"))
	if err != nil {
		return nil, fmt.Errorf("invalid ratelimit.global_window: %w", err)
	}

	sendWindow, err := time.ParseDuration(viper.GetString("ratelimit.send_window"))
	if err != nil {
		return nil, fmt.Errorf("invalid ratelimit.send_window: %w", err)
	}

	tokenLength := viper.GetInt("token.length")
	if tokenLength < 20 {
		return nil, fmt.Errorf("token.length must be at least 20 to stay unguessable")
	}

	dbType := strings.ToLower(viper.GetString("database.type"))
	switch dbType {
	case "", "mysql", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database.type %q (expected mysql or postgres)", dbType)
	}
	if dbType != "" && viper.GetString("database.dsn") == "" {
		return nil, fmt.Errorf("database.dsn is required when database.type is set")
	}

	corsOrigins := parseList(viper.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		Retention: RetentionConfig{
			MessageTTL:    messageTTL,
			SweepInterval: sweepInterval,
		},
		RateLimit: RateLimitConfig{
			GlobalLimit:   viper.GetInt64("ratelimit.global_limit"),
			GlobalWindow:  globalWindow,
			SendLimit:     viper.GetInt64("ratelimit.send_limit"),
			SendWindow:    sendWindow,
			ThrottleRPS:   viper.GetFloat64("ratelimit.throttle_rps"),
			ThrottleBurst: viper.GetInt("ratelimit.throttle_burst"),
		},
		Token: TokenConfig{
			Length: tokenLength,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            dbType,
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// parseList 将逗号分隔的字符串解析为字符串切片
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//   1. 当前目录的 .env
//   2. 父目录的 .env（用于从 backend/ 子目录运行的情况）
//
// 注意：
//   - 如果文件不存在，静默失败（.env 是可选的）
//   - 环境变量不会被覆盖（已存在的环境变量优先级更高）
func loadEnvFile() {
	// 尝试当前目录的 .env
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	// 尝试父目录的 .env（从 backend/ 目录运行时）
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
