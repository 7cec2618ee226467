package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_session_tables.sql
var createSessionTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createSessionTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS attempt_metrics;
				DROP TABLE IF EXISTS attempts;
				DROP TABLE IF EXISTS quiz_results;
				DROP TABLE IF EXISTS session_quizzes;
				DROP TABLE IF EXISTS quiz_sessions;
				DROP TABLE IF EXISTS answers;
				DROP TABLE IF EXISTS quizzes;
			`)
			return err
		},
	)
}
