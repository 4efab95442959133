package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climate-server/internal/config"
)

// createDataset writes a small sqlite file and returns its path.
func createDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hawaii.sqlite")
	rw, err := sql.Open("sqlite3", "file:"+path)
	require.NoError(t, err)
	_, err = rw.Exec(`CREATE TABLE station (station TEXT); INSERT INTO station VALUES ('USC00519281');`)
	require.NoError(t, err)
	require.NoError(t, rw.Close())
	return path
}

func TestBuildDSN(t *testing.T) {
	path := createDataset(t)

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit DSN wins",
			cfg:  config.Config{DSN: "file::memory:?cache=shared", Path: path},
			want: "file::memory:?cache=shared",
		},
		{
			name: "plain path",
			cfg:  config.Config{Path: path},
			want: "file:" + path + "?mode=ro&_busy_timeout=5000",
		},
		{
			name: "file URI without params",
			cfg:  config.Config{Path: "file:/data/hawaii.sqlite"},
			want: "file:/data/hawaii.sqlite?mode=ro&_busy_timeout=5000",
		},
		{
			name: "file URI with params",
			cfg:  config.Config{Path: "file:/data/hawaii.sqlite?cache=shared"},
			want: "file:/data/hawaii.sqlite?cache=shared&mode=ro&_busy_timeout=5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildDSN_MissingFile(t *testing.T) {
	_, err := buildDSN(config.Config{Path: filepath.Join(t.TempDir(), "nope.sqlite")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.sqlite")
}

func TestOpen_ReadOnly(t *testing.T) {
	path := createDataset(t)
	db, err := Open(config.Config{Driver: "sqlite3", Path: path, MaxOpenConns: 2, MaxIdleConns: 2}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM station`).Scan(&n))
	assert.Equal(t, 1, n)

	_, err = db.Exec(`INSERT INTO station VALUES ('USC00513117')`)
	assert.Error(t, err, "writes must fail on a read-only handle")
}

func TestOpen_WithSQLLogging(t *testing.T) {
	path := createDataset(t)
	db, err := Open(config.Config{Driver: "sqlite3", Path: path, LogSQL: true}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM station`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpen_SQLLoggingRequiresSQLite(t *testing.T) {
	path := createDataset(t)
	_, err := Open(config.Config{Driver: "postgres", Path: path, LogSQL: true}, nil)
	assert.Error(t, err)
}

func TestClose_Nil(t *testing.T) {
	assert.NoError(t, Close(nil))
}

func TestSessions_DoReleasesConnection(t *testing.T) {
	path := createDataset(t)
	db, err := Open(config.Config{Driver: "sqlite3", Path: path, MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	sessions := NewSessions(db, 0)
	boom := errors.New("boom")

	// With a single pooled connection every later session would block if an
	// earlier one leaked.
	err = sessions.Do(context.Background(), func(ctx context.Context, conn *sql.Conn) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)

	func() {
		defer func() { _ = recover() }()
		_ = sessions.Do(context.Background(), func(ctx context.Context, conn *sql.Conn) error {
			panic("handler bug")
		})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, sessions.Ping(ctx))
	assert.Equal(t, 0, db.Stats().InUse)
}

func TestSessions_Timeout(t *testing.T) {
	path := createDataset(t)
	db, err := Open(config.Config{Driver: "sqlite3", Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	sessions := NewSessions(db, 10*time.Millisecond)
	err = sessions.Do(context.Background(), func(ctx context.Context, conn *sql.Conn) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessions_CanceledContext(t *testing.T) {
	path := createDataset(t)
	db, err := Open(config.Config{Driver: "sqlite3", Path: path}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewSessions(db, 0).Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		require.Fail(t, "fn must not run without a session")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
