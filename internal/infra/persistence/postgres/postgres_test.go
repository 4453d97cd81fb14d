package postgres

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"authservice/config"
	"authservice/internal/errors"
	"authservice/internal/infra/persistence/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	cfg := &config.PostgresConfig{Database: "auth"}
	conn := config.ConnectionConfig{Host: "db", Port: "5432", UserName: "svc", Password: "pw"}

	assert.Equal(t,
		"host=db port=5432 user=svc password=pw dbname=auth sslmode=disable TimeZone=UTC",
		DSN(cfg, conn),
	)

	cfg.SSLMode = "require"
	cfg.TimeZone = "Asia/Taipei"
	assert.Contains(t, DSN(cfg, conn), "sslmode=require TimeZone=Asia/Taipei")
}

func TestMigrationsAreEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)

	assert.Equal(t, []string{"00001_create_users.sql", "00002_create_refresh_tokens.sql"}, files)

	for _, name := range files {
		body, err := fs.ReadFile(migrations.FS, name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}

func TestMigrate(t *testing.T) {
	original := gooseUp
	t.Cleanup(func() { gooseUp = original })

	var gotDir string
	gooseUp = func(_ context.Context, _ *sql.DB, dir string) error {
		gotDir = dir

		return nil
	}
	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, ".", gotDir)

	gooseUp = func(context.Context, *sql.DB, string) error {
		return errors.New("boom")
	}
	err := Migrate(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migrations")
}

func TestNew_RequiresPostgresConfig(t *testing.T) {
	_, err := New(Params{Config: &config.Config{}})
	require.Error(t, err)
}
