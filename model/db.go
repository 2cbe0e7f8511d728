package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DBFileName 数据库文件名
const DBFileName = "raydesk.db"

// ErrDBMissing 数据库文件不存在
var ErrDBMissing = errors.New("数据库文件不存在")

// DBPath 返回数据目录下的数据库文件路径
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFileName)
}

// Exists 判断数据库文件是否存在
func Exists(dataDir string) bool {
	_, err := os.Stat(DBPath(dataDir))
	return err == nil
}

// InitDB 初始化数据库，自动迁移所有表
func InitDB(dataDir string) (*gorm.DB, error) {
	// 确保目录存在
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	db, err := Open(DBPath(dataDir))
	if err != nil {
		return nil, err
	}

	// 自动迁移所有表
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

// OpenExisting 只打开已存在的数据库，不存在时返回 ErrDBMissing
func OpenExisting(dataDir string) (*gorm.DB, error) {
	if !Exists(dataDir) {
		return nil, ErrDBMissing
	}
	return Open(DBPath(dataDir))
}

// Open 打开指定路径的 SQLite 数据库
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // SQLite 单连接
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 启用 WAL 模式，前端进程会同时读写同一个文件
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")
	db.Exec("PRAGMA busy_timeout=5000")
	return db, nil
}

// AutoMigrate 创建核心读写的表（仅在空库时生效，不做结构演进）
func AutoMigrate(db *gorm.DB) error {
	return autoMigrate(db)
}

func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&EndpointsGroup{},
		&Endpoint{},
		&VmessVnext{},
		&VmessUser{},
		&Shadowsocks{},
		&TrojanServer{},
		&Hysteria2{},
		&Outbound{},
		&StreamSettings{},
		&TcpSettings{},
		&KcpSettings{},
		&Http2Settings{},
		&QuicSettings{},
		&GrpcSettings{},
		&WsSettings{},
		&TlsSettings{},
		&Inbound{},
		&Log{},
		&DNS{},
		&AppSettings{},
		&AppStatus{},
	)
}
