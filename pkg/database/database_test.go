package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shishobooks/circulation/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "circulation.db")
	return cfg
}

func TestNew_SerializesConcurrentWriters(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE counters (id INTEGER PRIMARY KEY, value INTEGER NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO counters (id, value) VALUES (1, 0)`)
	require.NoError(t, err)

	const workers = 10
	const increments = 20

	var wg sync.WaitGroup
	errs := make(chan error, workers*increments)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < increments; i++ {
				if _, err := db.Exec(`UPDATE counters SET value = value + 1 WHERE id = 1`); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	var value int
	err = db.QueryRow(`SELECT value FROM counters WHERE id = 1`).Scan(&value)
	require.NoError(t, err)
	assert.Equal(t, workers*increments, value)
}

func TestNew_EnablesForeignKeys(t *testing.T) {
	t.Parallel()

	db, err := New(config.NewForTest())
	require.NoError(t, err)
	defer db.Close()

	var enabled int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	assert.Equal(t, 1, enabled)
}

func TestBackup(t *testing.T) {
	t.Parallel()

	db, err := New(newFileConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "backup.db")
	require.NoError(t, Backup(context.Background(), db, target))

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestUniqueViolation(t *testing.T) {
	table, column, ok := UniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: members.member_code (2067)"))
	assert.True(t, ok)
	assert.Equal(t, "members", table)
	assert.Equal(t, "member_code", column)

	_, _, ok = UniqueViolation(errors.New("database is locked"))
	assert.False(t, ok)

	_, _, ok = UniqueViolation(nil)
	assert.False(t, ok)
}

func TestCheckViolation(t *testing.T) {
	name, ok := CheckViolation(errors.New("CHECK constraint failed: ck_books_available_copies"))
	assert.True(t, ok)
	assert.Equal(t, "ck_books_available_copies", name)

	_, ok = CheckViolation(errors.New("no such table: books"))
	assert.False(t, ok)
}
