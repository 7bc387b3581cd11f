package rest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edgeflare/tablegate/internal/testutil/dbtest"
	"github.com/edgeflare/tablegate/pkg/gateway"
	"github.com/edgeflare/tablegate/pkg/httputil"
	"github.com/edgeflare/tablegate/pkg/httputil/middleware"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type client struct {
	t    *testing.T
	base string
}

func (c client) do(method, path, body string) (int, string) {
	c.t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	assert.Equal(c.t, "application/json", resp.Header.Get("Content-Type"))
	return resp.StatusCode, string(b)
}

func newTestServer(t *testing.T, p *sqldb.Provider, opts Options) client {
	t.Helper()
	r := httputil.NewRouter()
	NewServer(gateway.New(p, nil), opts).Register(r)
	ts := httptest.NewServer(r.Handler())
	t.Cleanup(ts.Close)
	return client{t: t, base: ts.URL + strings.TrimRight(opts.BaseURL, "/")}
}

func TestEndToEnd(t *testing.T) {
	c := newTestServer(t, dbtest.Starter(t), Options{})

	status, body := c.do(http.MethodGet, "/tables", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"tables":["users","orders","products"]}`, body)

	status, body = c.do(http.MethodPost, "/tables/users", `{"name":"Ann","age":30}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Data inserted successfully"}`, body)

	_, body = c.do(http.MethodGet, "/tables/users", "")
	assert.Equal(t, "{\"users\":[{\"id\":1,\"name\":\"Ann\",\"age\":30}]}\n", body, "fields keep column order")

	_, body = c.do(http.MethodPut, "/tables/users/1", `{"age":31}`)
	assert.JSONEq(t, `{"message":"Record updated successfully"}`, body)

	_, body = c.do(http.MethodGet, "/tables/users", "")
	assert.JSONEq(t, `{"users":[{"id":1,"name":"Ann","age":31}]}`, body)

	_, body = c.do(http.MethodDelete, "/tables/users/1", "")
	assert.JSONEq(t, `{"message":"Record deleted successfully"}`, body)

	_, body = c.do(http.MethodGet, "/tables/users", "")
	assert.JSONEq(t, `{"users":[]}`, body)

	status, body = c.do(http.MethodGet, "/tables/ghost", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"error":"Table 'ghost' not found"}`, body)
}

func TestErrors(t *testing.T) {
	p := dbtest.Starter(t)
	dbtest.Exec(t, p, `INSERT INTO users (name, age) VALUES ('Ann', 30)`)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		want       string
		wantStatus int
	}{
		{"unknown table read", http.MethodGet, "/tables/ghost", "", "Table 'ghost' not found", http.StatusNotFound},
		{"unknown table create", http.MethodPost, "/tables/ghost", `{"a":1}`, "Table 'ghost' not found", http.StatusNotFound},
		{"unknown table update", http.MethodPut, "/tables/ghost/1", `{"a":1}`, "Table 'ghost' not found", http.StatusNotFound},
		{"unknown table delete", http.MethodDelete, "/tables/ghost/1", "", "Table 'ghost' not found", http.StatusNotFound},
		{"escaped injection", http.MethodGet, "/tables/users%3B%20DROP%20TABLE%20users", "", "Table 'users; DROP TABLE users' not found", http.StatusNotFound},
		{"no data", http.MethodPost, "/tables/users", "", "No data provided", http.StatusBadRequest},
		{"empty object", http.MethodPut, "/tables/users/1", `{}`, "No data provided", http.StatusBadRequest},
		{"malformed", http.MethodPost, "/tables/users", `{"name":`, "Invalid JSON body", http.StatusBadRequest},
		{"invalid columns", http.MethodPost, "/tables/users", `{"name":"Bo","age":1,"email":"x"}`, "Invalid columns: email", http.StatusBadRequest},
		{"bad id", http.MethodPut, "/tables/users/abc", `{"age":1}`, "Invalid record id 'abc'", http.StatusBadRequest},
		{"bad id on delete", http.MethodDelete, "/tables/users/1.5", "", "Invalid record id '1.5'", http.StatusBadRequest},
		{"constraint", http.MethodPost, "/tables/users", `{"name":"Bo"}`, "NOT NULL constraint failed: users.age", http.StatusInternalServerError},
	}

	for _, statusCodes := range []bool{false, true} {
		c := newTestServer(t, p, Options{StatusCodes: statusCodes})
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c.t = t
				status, body := c.do(tt.method, tt.path, tt.body)
				if statusCodes {
					assert.Equal(t, tt.wantStatus, status)
				} else {
					assert.Equal(t, http.StatusOK, status)
				}
				assert.JSONEq(t, `{"error":`+quote(tt.want)+`}`, body)
			})
		}
	}

	assert.Equal(t, 1, dbtest.Count(t, p, "users"))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func TestMissingIDSucceeds(t *testing.T) {
	p := dbtest.Starter(t)
	c := newTestServer(t, p, Options{StatusCodes: true})

	status, body := c.do(http.MethodPut, "/tables/users/42", `{"age":1}`)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Record updated successfully"}`, body)

	status, body = c.do(http.MethodDelete, "/tables/users/42", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Record deleted successfully"}`, body)

	status, _ = c.do(http.MethodPost, "/tables/users", `{"name":"Ann","age":30}`)
	assert.Equal(t, http.StatusCreated, status)
}

func TestConnectionFailure(t *testing.T) {
	p, err := sqldb.NewProvider(sqldb.Config{Path: t.TempDir() + "/missing/x.db"})
	require.NoError(t, err)
	c := newTestServer(t, p, Options{StatusCodes: true})

	status, body := c.do(http.MethodGet, "/tables", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `"error"`)
}

func TestBaseURLAndHealth(t *testing.T) {
	c := newTestServer(t, dbtest.Starter(t), Options{BaseURL: "/api/"})

	status, body := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	_, body = c.do(http.MethodGet, "/tables", "")
	assert.JSONEq(t, `{"tables":["users","orders","products"]}`, body)
}

func TestWithMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := httputil.NewRouter()
	r.Use(middleware.RequestID, middleware.LoggerWithOptions(&middleware.LoggerOptions{Logger: zap.New(core)}), middleware.Metrics)
	NewServer(gateway.New(dbtest.Starter(t), nil), Options{}).Register(r)

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/tables/users", nil))

	assert.JSONEq(t, `{"users":[]}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(middleware.RequestIDHeader))
	require.Equal(t, 1, logs.FilterMessage("response").Len())
	assert.Equal(t, rr.Header().Get(middleware.RequestIDHeader), logs.All()[0].ContextMap()["req_id"])
}
