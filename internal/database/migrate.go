// Package database はデータベース接続とマイグレーション管理を提供する。
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationDirection はマイグレーションの適用方向を表す。
type MigrationDirection string

const (
	// MigrateUp は未適用のマイグレーションをすべて適用する。
	MigrateUp MigrationDirection = "up"
	// MigrateDown は適用済みのマイグレーションをすべて戻す。
	MigrateDown MigrationDirection = "down"
)

// NewMigrator はマイグレーション実行用のmigrateインスタンスを生成する。
// databaseURLはPostgreSQLの接続URLを指定する。
func NewMigrator(databaseURL string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, nil
}

// RunMigrations はすべてのマイグレーションを適用する。
// すでに最新の場合はエラーなしで返る。
func RunMigrations(databaseURL string) error {
	return Migrate(databaseURL, MigrateUp)
}

// Migrate は指定方向にマイグレーションを実行する。
// 変更が無い場合（ErrNoChange）はエラーとしない。
func Migrate(databaseURL string, direction MigrationDirection) error {
	m, err := NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	switch direction {
	case MigrateUp:
		err = m.Up()
	case MigrateDown:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction: %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations (%s): %w", direction, err)
	}

	return nil
}

// ParseMigrationDirection はコマンドライン引数から適用方向を解析する。
// 空文字列はMigrateUpとして扱う。
func ParseMigrationDirection(s string) (MigrationDirection, error) {
	switch s {
	case "", string(MigrateUp):
		return MigrateUp, nil
	case string(MigrateDown):
		return MigrateDown, nil
	default:
		return "", fmt.Errorf("unknown migration direction: %q", s)
	}
}
