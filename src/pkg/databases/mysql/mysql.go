package mysql

import (
	"errors"
	"fmt"
	"time"

	"wallet-engine/src/pkg/log"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

type DBInterface interface {
	GetDB() (*sqlx.DB, error)
	Close() error
}

type Cfg struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type connection struct {
	db *sqlx.DB
}

// InitConnection opens a MySQL pool and pings it. The DSN must carry
// parseTime=true when DATETIME columns are scanned into time.Time.
func InitConnection(cfg Cfg, logger log.Log) (DBInterface, error) {
	db, err := sqlx.Connect("mysql", cfg.DSN)
	if err != nil {
		logger.Error("mysql", fmt.Sprintf("failed to connect: %v", err), "InitConnection", "")
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	logger.Info("mysql", "connection established", "InitConnection", "")
	return &connection{db: db}, nil
}

// Wrap exposes an already opened pool through DBInterface.
func Wrap(db *sqlx.DB) DBInterface {
	return &connection{db: db}
}

func (c *connection) GetDB() (*sqlx.DB, error) {
	if c.db == nil {
		return nil, errors.New("database connection is not initialized")
	}
	return c.db, nil
}

func (c *connection) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
