package server

import (
	"database/sql"
	"fmt"

	"example/marketplace/internal/config"
	"example/marketplace/internal/logger"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens and pings the configured store
func OpenDatabase(cfg config.DB) (*sql.DB, error) {
	logger.Log.Debugw("Initializing database connection", "driver", cfg.Driver)

	var dsn, where string
	switch cfg.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Passwd
		mc.Net = "tcp"
		mc.Addr = cfg.Addr
		mc.DBName = cfg.Name
		mc.ParseTime = true
		dsn, where = mc.FormatDSN(), cfg.Addr+"/"+cfg.Name
	case "sqlite3":
		dsn, where = "file:"+cfg.Path+"?_foreign_keys=on&_busy_timeout=5000", cfg.Path
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		logger.Log.Errorw("Failed to open database", "error", err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		logger.Log.Errorw("Failed to ping database", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Infow("Database connection established", "driver", cfg.Driver, "database", where)
	return db, nil
}

// CloseDatabase closes the database connection
func CloseDatabase(db *sql.DB) error {
	if db == nil {
		return nil
	}
	logger.Log.Debug("Closing database connection")
	err := db.Close()
	if err != nil {
		logger.Log.Errorw("Error closing database", "error", err)
	} else {
		logger.Log.Info("Database connection closed")
	}
	return err
}
