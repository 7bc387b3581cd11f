package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/edgeflare/tablegate/internal/testutil/dbtest"
	"github.com/edgeflare/tablegate/pkg/record"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func rowsJSON(t *testing.T, rows []*record.Record) string {
	t.Helper()
	b, err := json.Marshal(rows)
	require.NoError(t, err)
	return string(b)
}

func requireKind(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), err.Error())
	if msg != "" {
		assert.Equal(t, msg, err.Error())
	}
}

func TestListTables(t *testing.T) {
	ctx := context.Background()

	t.Run("starter schema", func(t *testing.T) {
		gw := New(dbtest.Starter(t), nil)
		tables, err := gw.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "orders", "products"}, tables)
	})

	t.Run("empty database", func(t *testing.T) {
		gw := New(dbtest.Empty(t), nil)
		tables, err := gw.ListTables(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tables)
		assert.Empty(t, tables)
	})

	t.Run("tables created later are visible", func(t *testing.T) {
		p := dbtest.Starter(t)
		gw := New(p, nil)
		dbtest.Exec(t, p, `CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)`)

		tables, err := gw.ListTables(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"users", "orders", "products", "notes"}, tables)

		require.NoError(t, gw.Create(ctx, "notes", []byte(`{"body":"hi"}`)))
		rows, err := gw.ReadTable(ctx, "notes")
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":1,"body":"hi"}]`, rowsJSON(t, rows))
	})
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := New(dbtest.Starter(t), nil)

	require.NoError(t, gw.Create(ctx, "users", []byte(`{"name":"Ann","age":30}`)))
	rows, err := gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Ann","age":30}]`, rowsJSON(t, rows))

	require.NoError(t, gw.Update(ctx, "users", 1, []byte(`{"age":31}`)))
	rows, err = gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Ann","age":31}]`, rowsJSON(t, rows))

	require.NoError(t, gw.Delete(ctx, "users", 1))
	rows, err = gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[]`, rowsJSON(t, rows))
}

func TestReadTable(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)

	t.Run("fields follow column order not payload order", func(t *testing.T) {
		require.NoError(t, gw.Create(ctx, "users", []byte(`{"age":44,"name":"Bo"}`)))
		rows, err := gw.ReadTable(ctx, "users")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, []string{"id", "name", "age"}, rows[0].Columns())
	})

	t.Run("real and null values", func(t *testing.T) {
		require.NoError(t, gw.Create(ctx, "products", []byte(`{"name":"Pen","price":9.5}`)))
		require.NoError(t, gw.Create(ctx, "orders", []byte(`{"user_id":null,"product_name":"Pen","quantity":2}`)))

		rows, err := gw.ReadTable(ctx, "products")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1,"name":"Pen","price":9.5}]`, rowsJSON(t, rows))

		rows, err = gw.ReadTable(ctx, "orders")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1,"user_id":null,"product_name":"Pen","quantity":2}]`, rowsJSON(t, rows))
	})

	t.Run("unknown table", func(t *testing.T) {
		_, err := gw.ReadTable(ctx, "ghost")
		requireKind(t, err, KindNotFound, "Table 'ghost' not found")
	})

	t.Run("views are not tables", func(t *testing.T) {
		dbtest.Exec(t, p, `CREATE VIEW adults AS SELECT * FROM users WHERE age >= 18`)
		_, err := gw.ReadTable(ctx, "adults")
		requireKind(t, err, KindNotFound, "Table 'adults' not found")
	})
}

func TestNotFoundOnEveryOperation(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)

	for _, table := range []string{"ghost", "users; DROP TABLE users", `users" --`, "sqlite_master", ""} {
		want := fmt.Sprintf("Table '%s' not found", table)

		_, err := gw.ReadTable(ctx, table)
		requireKind(t, err, KindNotFound, want)
		requireKind(t, gw.Create(ctx, table, []byte(`{"name":"x"}`)), KindNotFound, want)
		requireKind(t, gw.Update(ctx, table, 1, []byte(`{"name":"x"}`)), KindNotFound, want)
		requireKind(t, gw.Delete(ctx, table, 1), KindNotFound, want)
	}

	tables, err := gw.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"users", "orders", "products"}, tables)
}

func TestValidationOrder(t *testing.T) {
	ctx := context.Background()
	gw := New(dbtest.Starter(t), nil)

	t.Run("missing table wins over missing data", func(t *testing.T) {
		requireKind(t, gw.Create(ctx, "ghost", []byte(`{}`)), KindNotFound, "Table 'ghost' not found")
		requireKind(t, gw.Update(ctx, "ghost", 1, nil), KindNotFound, "Table 'ghost' not found")
	})

	t.Run("missing data wins over invalid columns", func(t *testing.T) {
		requireKind(t, gw.Create(ctx, "users", []byte(`{}`)), KindInvalidInput, "No data provided")
	})
}

func TestWritePayloadErrors(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)
	dbtest.Exec(t, p, `INSERT INTO users (name, age) VALUES ('Ann', 30)`)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"empty body", ``, "No data provided"},
		{"empty object", `{}`, "No data provided"},
		{"null", `null`, "No data provided"},
		{"malformed", `{"name":`, "Invalid JSON body"},
		{"array", `[{"name":"x"}]`, "Payload must be a JSON object"},
		{"string", `"hello"`, "Payload must be a JSON object"},
		{"nested value", `{"name":{"first":"Ann"}}`, "Unsupported value for column 'name'"},
		{"unknown columns", `{"name":"Bo","email":"b@x","age":2,"nick":"b"}`, "Invalid columns: email, nick"},
		{"id is a column", `{"id":1,"bogus":true}`, "Invalid columns: bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireKind(t, gw.Create(ctx, "users", []byte(tt.body)), KindInvalidInput, tt.msg)
			requireKind(t, gw.Update(ctx, "users", 1, []byte(tt.body)), KindInvalidInput, tt.msg)
		})
	}

	assert.Equal(t, 1, dbtest.Count(t, p, "users"))
	rows, err := gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Ann","age":30}]`, rowsJSON(t, rows))
}

func TestStorageErrors(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)

	t.Run("constraint violation on create", func(t *testing.T) {
		err := gw.Create(ctx, "users", []byte(`{"name":"Bo"}`))
		requireKind(t, err, KindStorage, "")
		assert.Contains(t, err.Error(), "NOT NULL constraint failed: users.age")
		assert.Zero(t, dbtest.Count(t, p, "users"))
	})

	t.Run("constraint violation on update", func(t *testing.T) {
		dbtest.Exec(t, p, `INSERT INTO users (name, age) VALUES ('Ann', 30)`)
		err := gw.Update(ctx, "users", 1, []byte(`{"name":null}`))
		requireKind(t, err, KindStorage, "")
		assert.Contains(t, err.Error(), "NOT NULL constraint failed: users.name")

		rows, err := gw.ReadTable(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":1,"name":"Ann","age":30}]`, rowsJSON(t, rows))
	})

	t.Run("table without id column", func(t *testing.T) {
		dbtest.Exec(t, p,
			`CREATE TABLE notes (note_id INTEGER PRIMARY KEY, body TEXT)`,
			`INSERT INTO notes (note_id, body) VALUES (1, 'x')`,
		)

		err := gw.Update(ctx, "notes", 1, []byte(`{"body":"y"}`))
		requireKind(t, err, KindStorage, "")
		assert.Contains(t, err.Error(), "no such column: id")

		err = gw.Delete(ctx, "notes", 1)
		requireKind(t, err, KindStorage, "")
		assert.Contains(t, err.Error(), "no such column: id")

		rows, err := gw.ReadTable(ctx, "notes")
		require.NoError(t, err)
		assert.Equal(t, `[{"note_id":1,"body":"x"}]`, rowsJSON(t, rows))
	})
}

func TestValuesAreBound(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)

	evil := `x'); DROP TABLE users; --`
	body, err := json.Marshal(map[string]any{"name": evil, "age": 1})
	require.NoError(t, err)
	require.NoError(t, gw.Create(ctx, "users", body))

	rows, err := gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, ok := rows[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, evil, name.Str())
}

func TestNoRowsMatched(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	p := dbtest.Starter(t)
	gw := New(p, zap.New(core))
	dbtest.Exec(t, p, `INSERT INTO users (name, age) VALUES ('Ann', 30)`)

	require.NoError(t, gw.Update(ctx, "users", 999, []byte(`{"age":1}`)))
	require.NoError(t, gw.Delete(ctx, "users", 999))
	require.NoError(t, gw.Delete(ctx, "users", -5))

	entries := logs.FilterMessage("no rows matched").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "update", entries[0].ContextMap()["operation"])
	assert.Equal(t, int64(999), entries[0].ContextMap()["id"])

	rows, err := gw.ReadTable(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1,"name":"Ann","age":30}]`, rowsJSON(t, rows))
}

func TestConnectionError(t *testing.T) {
	ctx := context.Background()
	p, err := sqldb.NewProvider(sqldb.Config{Path: filepath.Join(t.TempDir(), "missing", "db.sqlite")})
	require.NoError(t, err)

	core, logs := observer.New(zap.ErrorLevel)
	gw := New(p, zap.New(core))

	_, err = gw.ListTables(ctx)
	requireKind(t, err, KindConnection, "")
	assert.NotEmpty(t, err.Error())

	_, err = gw.ReadTable(ctx, "users")
	requireKind(t, err, KindConnection, "")

	assert.Equal(t, 2, logs.Len())
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	p := dbtest.Starter(t)
	gw := New(p, nil)

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = gw.Create(ctx, "users", fmt.Appendf(nil, `{"name":"u%d","age":%d}`, i, i))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, n, dbtest.Count(t, p, "users"))
}
