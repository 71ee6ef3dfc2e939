package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/iliyamo/cityinfo-api/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationsDir  = "migrations"
	migrationTable = "schema_migrations"
)

// goose keeps its settings in package globals
var gooseMu sync.Mutex

// gooseLogger forwards goose output to zap. Fatalf does not exit; the
// error is returned to the caller instead.
type gooseLogger struct{ l *zap.Logger }

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.l.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Migrate runs a goose command (up, down, status, version, reset, redo,
// up-to, down-to) against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{l: logger.Named("migrate")})
	goose.SetTableName(migrationTable)
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, db, migrationsDir, args...); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
