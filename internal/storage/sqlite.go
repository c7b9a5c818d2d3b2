package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// MemoryDSN opens a private in-memory database
const MemoryDSN = ":memory:"

// Entry is one row of the key/value table
type Entry struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SQLiteOptions настройки подключения к базе
type SQLiteOptions struct {
	// Name is a file name under the data dir, an absolute path, or MemoryDSN
	Name string
	// Prefix is prepended to table names
	Prefix string
	// Logger receives GORM logs, nil silences them
	Logger glog.Interface
}

// SQLiteBackend stores entries in a single sqlite table through GORM
type SQLiteBackend struct {
	db *gorm.DB
}

var _ Backend = (*SQLiteBackend)(nil)

// OpenSQLite opens (and migrates) the database described by opts
func OpenSQLite(opts SQLiteOptions) (*SQLiteBackend, error) {
	dsn, err := resolvePath(opts.Name)
	if err != nil {
		return nil, err
	}

	gormLogger := opts.Logger
	if gormLogger == nil {
		gormLogger = glog.Discard
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   opts.Prefix,
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	if dsn == MemoryDSN {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetMaxOpenConns(4)
	}

	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	var entry Entry
	err := b.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Value, nil
}

// Set creates or overwrites the entry
func (b *SQLiteBackend) Set(ctx context.Context, key, value string) error {
	entry := Entry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return b.db.WithContext(ctx).Save(&entry).Error
}

func (b *SQLiteBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolvePath(name string) (string, error) {
	if name == MemoryDSN {
		return name, nil
	}
	if name == "" {
		name = "history.db"
	}

	path := name
	if !filepath.IsAbs(name) {
		dir, err := dataDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(dir, name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}
	return path, nil
}

// dataDir returns the platform data directory of the app
func dataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			baseDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(home, "Library", "Application Support")
	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(home, ".local", "share")
		}
	}

	return filepath.Join(baseDir, "ssti-master"), nil
}
