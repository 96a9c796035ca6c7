package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed mysql/*.sql postgres/*.sql
var files embed.FS

// Up applies the embedded migrations of driver (mysql or postgres).
func Up(ctx context.Context, db *sql.DB, driver string) error {
	if db == nil {
		return nil
	}
	switch driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("migrations: unsupported driver %q", driver)
	}
	goose.SetBaseFS(files)
	if err := goose.SetDialect(driver); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, driver)
}
