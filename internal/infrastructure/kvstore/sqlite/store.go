package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/ports"
	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	sqliteDbFile = "wallet.sqlite.db"
	driverName   = "sqlite"
)

//go:embed migration/*.sql
var migrations embed.FS

type store struct {
	db *sql.DB
}

func NewStore(baseDir string) (ports.KVStore, error) {
	dbFile := filepath.Join(baseDir, sqliteDbFile)
	db, err := openDb(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %s", err)
	}

	if err := migrateDb(db); err != nil {
		db.Close()
		return nil, err
	}

	return &store{db}, nil
}

func (s *store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(
		ctx, "SELECT value FROM kv WHERE key = ?", key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ports.ErrKeyNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	return err
}

func (s *store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key)
	return err
}

func (s *store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key",
		prefix, prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnf("failed to close sqlite store: %v", err)
	}
}

func migrateDb(db *sql.DB) error {
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrations, "migration")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %s", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "wallet.db", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %s", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %s", err)
	}
	return nil
}

func openDb(dbPath string) (*sql.DB, error) {
	dir := filepath.Dir(dbPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	db.SetMaxOpenConns(1)

	return db, nil
}
