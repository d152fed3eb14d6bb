package sql

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"murmur/backend/internal/domain"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB // GORM 实例，用于自动迁移
	driverName string   // "mysql" or "postgres"
	retention  time.Duration
}

// NewStore 创建 SQL 数据库存储。
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
	retention time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormDB, err := openGORM(driverName, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
		retention:  retention,
	}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// openGORM 在既有连接上初始化 GORM。
func openGORM(driverName string, db *sql.DB) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	if driverName == "mysql" {
		return gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	}
	return gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
}

// Stats 返回底层连接池统计。
func (s *Store) Stats() sql.DBStats {
	return s.db.Stats()
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

// migrate 执行数据库迁移（使用 GORM AutoMigrate）。
func (s *Store) migrate() error {
	if s.gormDB == nil {
		return nil
	}
	return s.gormDB.AutoMigrate(
		&domain.Identity{},
		&domain.Message{},
	)
}

// cutoff 返回被动过期的时间下界；retention 为 0 表示不过期。
func (s *Store) cutoff(now time.Time) (time.Time, bool) {
	if s.retention <= 0 {
		return time.Time{}, false
	}
	return now.Add(-s.retention), true
}

// rebind 将 ? 占位符转换为当前驱动的形式。
func (s *Store) rebind(query string) string {
	if s.driverName != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(fmt.Sprintf("$%d", n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isDuplicateKeyError 判断是否为指定唯一索引的冲突错误。
//
// lib/pq 与 go-sql-driver 的错误文本都会带上索引名，
// 据此区分昵称冲突和令牌冲突。
func isDuplicateKeyError(err error, indexName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, indexName) {
		return false
	}
	return strings.Contains(msg, "duplicate key") || // postgres
		strings.Contains(msg, "Duplicate entry") // mysql
}
