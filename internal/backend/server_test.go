package backend

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "apicatalog/internal/db/extractors"
	"apicatalog/pkg/config"
)

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(NewRepository(), opts...).Router())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// sqliteFixture creates a database file with a users table.
func sqliteFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, active BOOLEAN)`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	return path
}

func TestDomains(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api"

	code, _ := do(t, http.MethodPost, api+"/domain/post", map[string]string{"url": "https://x.com"})
	assert.Equal(t, http.StatusCreated, code)

	code, body := do(t, http.MethodPost, api+"/domain/post", map[string]string{"url": "https://x.com"})
	assert.Equal(t, http.StatusConflict, code)
	assert.JSONEq(t, `{"error": "Domain sudah ada"}`, string(body))

	code, _ = do(t, http.MethodPost, api+"/domain/post", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, code)

	_, body = do(t, http.MethodGet, api+"/domain/get", nil)
	var domains []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(body, &domains))
	require.Len(t, domains, 1)
	assert.Equal(t, "https://x.com", domains[0].URL)

	code, _ = do(t, http.MethodDelete, api+"/domain/delete/"+domains[0].ID, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, http.MethodDelete, api+"/domain/delete/"+domains[0].ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestEndpointLifecycle(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api"

	code, body := do(t, http.MethodPost, api+"/post", map[string]any{
		"baseUrl":     "https://x.com",
		"method":      "get",
		"path":        "users",
		"description": "list users",
		"websites":    []string{"shop", "blog"},
		"response":    map[string]any{"users": []int{}},
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var created storedEndpoint
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "/users", created.Path)
	assert.Equal(t, "GET", string(created.Method))
	assert.Equal(t, "Develop", string(created.Status))
	assert.Equal(t, "shop, blog", created.Websites)

	code, _ = do(t, http.MethodPost, api+"/post", map[string]any{"baseUrl": "https://x.com"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, http.MethodPut, api+"/put/"+created.ID, map[string]any{
		"description": "all users",
		"websites":    "admin",
		"status":      "Production",
	})
	require.Equal(t, http.StatusOK, code, string(body))
	var updated storedEndpoint
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "all users", updated.Description)
	assert.Equal(t, "admin", updated.Websites)
	assert.Equal(t, "Production", string(updated.Status))
	assert.Equal(t, "/users", updated.Path)

	code, _ = do(t, http.MethodPut, api+"/put/"+created.ID, map[string]any{"method": "PATCH"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, http.MethodPut, api+"/put/nope", map[string]any{"description": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, http.MethodDelete, api+"/delete/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, code)
	_, body = do(t, http.MethodGet, api+"/get", nil)
	assert.JSONEq(t, `[]`, string(body))
}

func TestTestConnectionAndDescribe(t *testing.T) {
	path := sqliteFixture(t)
	srv := newTestServer(t)
	api := srv.URL + "/api"
	params := map[string]any{"engine": "SQLite", "ip": "local", "username": "u", "database_name": path}

	code, body := do(t, http.MethodPost, api+"/testconn", params)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.JSONEq(t, `{"tables": ["users"]}`, string(body))

	params["table"] = "users"
	code, body = do(t, http.MethodPost, api+"/describe", params)
	require.Equal(t, http.StatusOK, code, string(body))
	var res struct {
		Structure []struct {
			Field string `json:"Field"`
			Key   string `json:"Key"`
		} `json:"structure"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Structure, 3)
	assert.Equal(t, "id", res.Structure[0].Field)
	assert.Equal(t, "PRI", res.Structure[0].Key)

	code, _ = do(t, http.MethodPost, api+"/testconn", map[string]any{"engine": "Oracle", "ip": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = do(t, http.MethodPost, api+"/testconn", map[string]any{
		"engine": "SQLite", "database_name": filepath.Join(t.TempDir(), "missing", "none.db"),
	})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, string(body), "connection failed")
}

func TestDescribeDefault(t *testing.T) {
	path := sqliteFixture(t)
	srv := newTestServer(t, WithDefaultDatabase(config.DBConfig{Engine: "sqlite", DatabaseName: path}))

	code, body := do(t, http.MethodGet, srv.URL+"/api/describe/users", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.JSONEq(t, `{"success": true, "data": [{"id": 1, "name": "name", "active": true}]}`, string(body))

	code, body = do(t, http.MethodGet, srv.URL+"/api/describe/missing", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, string(body), `"success":false`)

	bare := newTestServer(t)
	code, _ = do(t, http.MethodGet, bare.URL+"/api/describe/users", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGenerateOne(t *testing.T) {
	path := sqliteFixture(t)
	srv := newTestServer(t)
	api := srv.URL + "/api"

	do(t, http.MethodPost, api+"/domain/post", map[string]string{"url": "https://data.example.com"})
	code, body := do(t, http.MethodPost, api+"/restapi/post", map[string]any{
		"projectName": "Fixture", "engine": "SQLite", "ip": "local", "username": "u", "database_name": path,
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	var conn struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &conn))

	code, body = do(t, http.MethodPost, api+"/restapi/generateone/"+conn.ID, map[string]string{"table": "users"})
	require.Equal(t, http.StatusCreated, code, string(body))
	var ep storedEndpoint
	require.NoError(t, json.Unmarshal(body, &ep))
	assert.Equal(t, "/users", ep.Path)
	assert.Equal(t, "https://data.example.com", ep.BaseURL)
	assert.JSONEq(t, `[{"id": 1, "name": "name", "active": true}]`, string(ep.Response))

	code, _ = do(t, http.MethodPost, api+"/restapi/generateone/"+conn.ID, map[string]string{"table": "ghosts"})
	assert.Equal(t, http.StatusBadGateway, code)
	code, _ = do(t, http.MethodPost, api+"/restapi/generateone/nope", map[string]string{"table": "users"})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestConnectionDefaults(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api"

	code, body := do(t, http.MethodPost, api+"/restapi/post", map[string]any{
		"projectName": " Finance ", "engine": "MySQL", "ip": "127.0.0.1", "username": "root", "database_name": "api_db",
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Contains(t, string(body), `"port":3306`)
	assert.Contains(t, string(body), `"projectName":"Finance"`)

	code, _ = do(t, http.MethodPost, api+"/restapi/post", map[string]any{"projectName": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCallEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"path": "` + r.URL.Path + `", "q": "` + r.URL.RawQuery + `"}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t)
	api := srv.URL + "/api"
	_, body := do(t, http.MethodPost, api+"/post", map[string]any{
		"baseUrl": upstream.URL, "method": "GET", "path": "/users", "description": "d", "response": []int{},
	})
	var ep storedEndpoint
	require.NoError(t, json.Unmarshal(body, &ep))

	code, body := do(t, http.MethodGet, api+"/call/"+ep.ID+"/users/1?x=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"path": "/users/1", "q": "x=2"}`, string(body))

	code, _ = do(t, http.MethodGet, api+"/call/nope/users", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
