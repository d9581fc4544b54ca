package database

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrationName = regexp.MustCompile(`^(\d{6})_[a-z0-9_]+\.(up|down)\.sql$`)

// upMigrations returns db/migrations/*.up.sql in version order.
func upMigrations(t *testing.T) []string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok)

	dir := filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations in %s", dir)
	return files
}

func TestMigrations_EveryUpHasDown(t *testing.T) {
	for _, up := range upMigrations(t) {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		assert.FileExists(t, down)
	}
}

func TestMigrations_VersionsAreSequential(t *testing.T) {
	for i, f := range upMigrations(t) {
		name := filepath.Base(f)
		m := migrationName.FindStringSubmatch(name)
		if !assert.NotNil(t, m, "%s: want NNNNNN_snake_case.up.sql", name) {
			continue
		}
		assert.Equal(t, fmt.Sprintf("%06d", i+1), m[1], name)
	}
}

func TestMigrations_CreateRepositoryTables(t *testing.T) {
	var schema strings.Builder
	for _, f := range upMigrations(t) {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		schema.Write(data)
	}

	for _, table := range []string{"accounts", "documents", "account_activity"} {
		assert.Contains(t, schema.String(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}
