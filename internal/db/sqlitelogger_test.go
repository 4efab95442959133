package db

import (
	"context"
	"database/sql"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler records log records for assertion in tests.
type captureHandler struct {
	mu    sync.Mutex
	attrs []map[string]slog.Value
}

func (h *captureHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *captureHandler) Handle(ctx context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := make(map[string]slog.Value)
	m["msg"] = slog.StringValue(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		m[a.Key] = a.Value
		return true
	})
	h.attrs = append(h.attrs, m)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }

func (h *captureHandler) WithGroup(name string) slog.Handler { return h }

func (h *captureHandler) recordsFor(t *testing.T, msg string) []map[string]slog.Value {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]slog.Value
	for _, m := range h.attrs {
		if m["msg"].String() == msg {
			out = append(out, m)
		}
	}
	return out
}

func (h *captureHandler) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attrs = nil
}

func tempDSN(t *testing.T) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "log.db")
}

func openLogged(t *testing.T, handler slog.Handler) *sql.DB {
	t.Helper()
	connector, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, tempDSN(t), slog.New(handler))
	require.NoError(t, err)
	db := sql.OpenDB(connector)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func lastSQLRecord(t *testing.T, h *captureHandler) map[string]slog.Value {
	t.Helper()
	recs := h.recordsFor(t, "sql")
	require.NotEmpty(t, recs, "no sql log records")
	return recs[len(recs)-1]
}

func TestNewLoggingConnector_nilDriver(t *testing.T) {
	_, err := NewLoggingConnector(nil, tempDSN(t), nil)
	assert.Error(t, err)
}

func TestNewLoggingConnector_nilLoggerUsesDefault(t *testing.T) {
	conn, err := NewLoggingConnector(&sqlite3.SQLiteDriver{}, tempDSN(t), nil)
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.Same(t, slog.Default(), conn.(*loggingConnector).logger)
}

func TestLoggingConnector_ExecAndQueryLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	got := lastSQLRecord(t, handler)
	assert.Equal(t, "exec", got["op"].String())
	assert.Equal(t, `CREATE TABLE t (id INTEGER PRIMARY KEY)`, got["sql"].String())

	handler.reset()
	var one int
	require.NoError(t, db.QueryRow(`SELECT 1`).Scan(&one))
	got = lastSQLRecord(t, handler)
	assert.Equal(t, "query", got["op"].String())
	assert.Equal(t, `SELECT 1`, got["sql"].String())
}

func TestLoggingConnector_QueryWithArgsLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	handler.reset()

	_, err = db.Exec(`INSERT INTO t (id, name) VALUES (?, ?)`, 1, "alice")
	require.NoError(t, err)
	got := lastSQLRecord(t, handler)
	assert.Equal(t, "exec", got["op"].String())
	assert.Equal(t, `INSERT INTO t (id, name) VALUES (?, ?)`, got["sql"].String())
	assert.Equal(t, []string{"1", "alice"}, got["args"].Any())
	assert.Contains(t, got, "duration")
}

func TestLoggingConnector_FailedQueryLogsError(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t (id) VALUES (?)`, 1)
	require.NoError(t, err)
	handler.reset()

	_, err = db.Exec(`INSERT INTO t (id) VALUES (?)`, 1)
	require.Error(t, err, "duplicate insert should violate the primary key")
	assert.Contains(t, lastSQLRecord(t, handler), "error")
}

func TestLoggingConnector_QueryRowsLogged(t *testing.T) {
	handler := &captureHandler{}
	db := openLogged(t, handler)

	_, err := db.Exec(`CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	handler.reset()

	rows, err := db.Query(`SELECT id FROM t`)
	require.NoError(t, err)
	_ = rows.Close()
	got := lastSQLRecord(t, handler)
	assert.Equal(t, "query", got["op"].String())
	assert.Equal(t, `SELECT id FROM t`, got["sql"].String())
}

func TestLoggingConnector_PingSucceeds(t *testing.T) {
	db := openLogged(t, slog.Default().Handler())
	assert.NoError(t, db.Ping())
}
