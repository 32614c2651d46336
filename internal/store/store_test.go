package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apicatalog/internal/apiclient"
	"apicatalog/internal/model"
)

// fakeBackend serves canned handlers under /api and counts requests per
// route pattern.
type fakeBackend struct {
	mux  *http.ServeMux
	srv  *httptest.Server
	mu   sync.Mutex
	hits map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	f := &fakeBackend{mux: http.NewServeMux(), hits: make(map[string]int)}
	f.srv = httptest.NewServer(f.mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeBackend) handle(pattern string, h http.HandlerFunc) {
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[pattern]++
		f.mu.Unlock()
		h(w, r)
	})
}

func (f *fakeBackend) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[pattern]
}

func (f *fakeBackend) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.hits {
		n += v
	}
	return n
}

func (f *fakeBackend) catalog(opts ...Option) *Catalog {
	return New(apiclient.New(f.srv.URL+"/api"), opts...)
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(body))
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *noticeRecorder) all() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

func TestDomainAddValidation(t *testing.T) {
	f := newFakeBackend(t)
	c := f.catalog()

	for _, url := range []string{"", "   ", "not-a-url", "ftp://x.com", "http://localhost"} {
		err := c.Domains.Add(context.Background(), url)
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, url)
	}
	assert.Zero(t, f.total())
}

func TestDomainAddAndFetch(t *testing.T) {
	f := newFakeBackend(t)
	var posted model.Domain
	f.handle("POST /api/domain/post", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&posted)
		writeJSON(w, http.StatusCreated, `{"id": 1, "url": "https://x.com"}`)
	})
	f.handle("GET /api/domain/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id": 1, "url": "https://x.com"}]`)
	})
	c := f.catalog()

	require.NoError(t, c.Domains.Add(context.Background(), "  https://x.com "))
	assert.Equal(t, "https://x.com", posted.URL)
	assert.Equal(t, []model.Domain{{ID: "1", URL: "https://x.com"}}, c.Domains.All())
	assert.Equal(t, []string{"https://x.com"}, c.Domains.URLs())

	// known locally, no second POST
	err := c.Domains.Add(context.Background(), "https://x.com")
	assert.ErrorIs(t, err, ErrDuplicateDomain)
	assert.Equal(t, 1, f.count("POST /api/domain/post"))
}

func TestDomainAddDuplicateFromBackend(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("POST /api/domain/post", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"error": "Domain sudah ada"}`)
	})
	c := f.catalog()

	err := c.Domains.Add(context.Background(), "https://x.com")
	require.ErrorIs(t, err, ErrDuplicateDomain)
	n := Classify(err)
	assert.Equal(t, SeverityWarning, n.Severity)
	assert.Equal(t, "Duplicate domain", n.Title)
	assert.Zero(t, f.count("GET /api/domain/get"))
}

func TestEndpointFetchNormalizesWebsites(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "baseUrl": "https://x.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": "shop , blog", "response": {}},
			{"id": 2, "baseUrl": "https://x.com", "method": "GET", "path": "/b", "description": "b", "status": "Develop", "websites": ["x, y"], "response": []},
			{"id": 3, "baseUrl": "https://x.com", "method": "GET", "path": "/c", "description": "c", "status": "Develop", "websites": null, "response": 1},
			{"id": 4, "baseUrl": "https://x.com", "method": "GET", "path": "/d", "description": "d", "status": "Develop", "websites": "", "response": "s"}
		]`)
	})
	c := f.catalog()

	c.Endpoints.Fetch(context.Background())
	got := c.Endpoints.All()
	require.Len(t, got, 4)
	assert.Equal(t, []string{"shop", "blog"}, got[0].Websites)
	assert.Equal(t, []string{"x, y"}, got[1].Websites)
	assert.Equal(t, []string{}, got[2].Websites)
	assert.Equal(t, []string{}, got[3].Websites)

	c.Endpoints.Fetch(context.Background())
	assert.Equal(t, got, c.Endpoints.All())
	assert.False(t, c.Endpoints.Loading())
}

func TestEndpointFetchSkipsMalformedWebsites(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "baseUrl": "https://x.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": 7, "response": {}},
			{"id": 2, "baseUrl": "https://x.com", "method": "GET", "path": "/b", "description": "b", "status": "Develop", "websites": "shop", "response": {}}
		]`)
	})
	rec := &noticeRecorder{}
	c := f.catalog(WithNotifier(rec))

	c.Endpoints.Fetch(context.Background())
	got := c.Endpoints.All()
	require.Len(t, got, 2)
	assert.Equal(t, []string{}, got[0].Websites)
	assert.Equal(t, []string{"shop"}, got[1].Websites)
	assert.Empty(t, rec.all())
}

func TestFetchFailureKeepsList(t *testing.T) {
	f := newFakeBackend(t)
	var fail atomic.Bool
	f.handle("GET /api/restapi/get", func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			writeJSON(w, http.StatusInternalServerError, `{"message": "db down"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id": "a", "projectName": "Finance", "engine": "MySQL", "ip": "10.0.0.5", "port": 3306, "username": "root", "password": "", "database_name": "fin"}]`)
	})
	rec := &noticeRecorder{}
	c := f.catalog(WithNotifier(rec))

	c.RestApis.Fetch(context.Background())
	require.Len(t, c.RestApis.All(), 1)
	conn, ok := c.RestApis.Get("a")
	require.True(t, ok)
	require.NotNil(t, conn.Port)
	assert.Equal(t, 3306, *conn.Port)

	fail.Store(true)
	c.RestApis.Fetch(context.Background())
	assert.Len(t, c.RestApis.All(), 1)

	notices := rec.all()
	require.Len(t, notices, 1)
	assert.Equal(t, "fetch connections", notices[0].Op)
	assert.Equal(t, SeverityError, notices[0].Severity)
	assert.Equal(t, "db down", notices[0].Message)
}

func TestEndpointAddValidation(t *testing.T) {
	f := newFakeBackend(t)
	c := f.catalog()

	tests := []struct {
		name  string
		draft model.EndpointDraft
		field string
	}{
		{"no domain", model.EndpointDraft{Path: "/a", Description: "d", Response: "{}"}, "baseUrl"},
		{"no path", model.EndpointDraft{BaseURL: "https://x.com", Description: "d", Response: "{}"}, "path"},
		{"bad json", model.EndpointDraft{BaseURL: "https://x.com", Path: "/a", Description: "d", Response: "{oops"}, "response"},
		{"bad method", model.EndpointDraft{BaseURL: "https://x.com", Method: "PATCH", Path: "/a", Description: "d", Response: "{}"}, "method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Endpoints.Add(context.Background(), tt.draft)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
	assert.Zero(t, f.total())
}

func TestEndpointAddSendsNormalizedRecord(t *testing.T) {
	f := newFakeBackend(t)
	var body map[string]any
	f.handle("POST /api/post", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, `{"id": 9, "baseUrl": "https://x.com", "method": "GET", "path": "/users", "description": "d", "status": "Develop", "websites": "", "response": {"a": 1}}`)
	})
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	c := f.catalog()

	created, err := c.Endpoints.Add(context.Background(), model.EndpointDraft{
		BaseURL: "https://x.com", Path: "users", Description: "d", Response: ` {"a": 1} `,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ID("9"), created.ID)
	assert.Equal(t, "/users", body["path"])
	assert.Equal(t, "GET", body["method"])
	assert.Equal(t, "Develop", body["status"])
	assert.Equal(t, []any{}, body["websites"])
	assert.Equal(t, map[string]any{"a": float64(1)}, body["response"])
	assert.Equal(t, 1, f.count("GET /api/get"))
}

func TestDeleteMissingReportsNotice(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id": 1, "baseUrl": "https://x.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": [], "response": {}}]`)
	})
	f.handle("DELETE /api/delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": "endpoint not found"}`)
	})
	rec := &noticeRecorder{}
	c := f.catalog(WithNotifier(rec))
	c.Endpoints.Fetch(context.Background())
	before := c.Endpoints.All()

	c.Endpoints.Delete(context.Background(), "999")

	assert.Equal(t, before, c.Endpoints.All())
	assert.Equal(t, 1, f.count("GET /api/get"))
	notices := rec.all()
	require.Len(t, notices, 1)
	assert.Equal(t, "delete endpoint", notices[0].Op)
	assert.Equal(t, "endpoint not found", notices[0].Message)
}

func TestUpdateSupersedesOlder(t *testing.T) {
	f := newFakeBackend(t)
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int32
	f.handle("PUT /api/put/{id}", func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			arrived <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}
		writeJSON(w, http.StatusOK, `{}`)
	})
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	c := f.catalog()

	first := "first"
	second := "second"
	errc := make(chan error, 1)
	go func() {
		errc <- c.Endpoints.Update(context.Background(), "1", model.EndpointPatch{Description: &first})
	}()
	<-arrived

	require.NoError(t, c.Endpoints.Update(context.Background(), "1", model.EndpointPatch{Description: &second}))

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Contains(t, err.Error(), "superseded")
	case <-time.After(5 * time.Second):
		t.Fatal("older update was not cancelled")
	}
}

func TestUpdateRejectsEmptyPatch(t *testing.T) {
	f := newFakeBackend(t)
	c := f.catalog()
	err := c.Endpoints.Update(context.Background(), "1", model.EndpointPatch{})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Zero(t, f.total())
}

func TestUpdateInvalidResponseMakesNoRequest(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id": 1, "baseUrl": "https://x.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": "shop", "response": {"a": 1}}]`)
	})
	f.handle("PUT /api/put/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	c := f.catalog()
	c.Endpoints.Fetch(context.Background())
	before := c.Endpoints.All()
	hits := f.total()

	bad := "{not json"
	desc := "still valid"
	err := c.Endpoints.Update(context.Background(), "1", model.EndpointPatch{Description: &desc, Response: &bad})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "response", verr.Field)

	assert.Equal(t, hits, f.total())
	assert.Zero(t, f.count("PUT /api/put/{id}"))
	assert.Equal(t, before, c.Endpoints.All())
}

func TestFetchEndpointsTwiceIsStable(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "baseUrl": "https://x.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": "a, b,c", "response": {"a": 1}},
			{"id": 2, "baseUrl": "https://y.com", "method": "PUT", "path": "/b", "description": "b", "status": "Production", "websites": ["a", "b,c"], "response": [1, 2]}
		]`)
	})
	c := f.catalog()

	c.Endpoints.Fetch(context.Background())
	first := c.Endpoints.All()
	c.Endpoints.Fetch(context.Background())
	second := c.Endpoints.All()

	assert.Equal(t, 2, f.total())
	assert.Equal(t, first, second)
	require.Len(t, second, 2)
	assert.Equal(t, []string{"a", "b", "c"}, second[0].Websites)
	assert.Equal(t, []string{"a", "b,c"}, second[1].Websites)
}

func TestCloseDiscardsInflightFetch(t *testing.T) {
	f := newFakeBackend(t)
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})
	defer close(release)
	f.handle("GET /api/domain/get", func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		select {
		case <-release:
		case <-r.Context().Done():
		}
		writeJSON(w, http.StatusOK, `[{"id": 1, "url": "https://late.com"}]`)
	})
	rec := &noticeRecorder{}
	c := f.catalog(WithNotifier(rec))

	var changed atomic.Int32
	unsubscribe := c.Subscribe(func(e Event) {
		if e.Kind == DomainsChanged {
			changed.Add(1)
		}
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		c.Domains.Fetch(context.Background())
		close(done)
	}()
	<-arrived
	assert.True(t, c.Domains.Loading())
	c.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not return after Close")
	}
	assert.Empty(t, c.Domains.All())
	assert.Empty(t, rec.all())
	assert.Zero(t, changed.Load())
	assert.False(t, c.Domains.Loading())
}

func TestFiltered(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"id": 1, "baseUrl": "https://Shop.example.com", "method": "GET", "path": "/a", "description": "a", "status": "Develop", "websites": [], "response": {}},
			{"id": 2, "baseUrl": "https://blog.example.com", "method": "GET", "path": "/b", "description": "b", "status": "Production", "websites": [], "response": {}},
			{"id": 3, "baseUrl": "https://shop.example.com", "method": "POST", "path": "/c", "description": "c", "status": "Production", "websites": [], "response": {}}
		]`)
	})
	c := f.catalog()
	c.Endpoints.Fetch(context.Background())

	ids := func(eps []model.Endpoint) []model.ID {
		var out []model.ID
		for _, ep := range eps {
			out = append(out, ep.ID)
		}
		return out
	}
	assert.Equal(t, []model.ID{"1", "2", "3"}, ids(c.Endpoints.Filtered("")))
	assert.Equal(t, []model.ID{"1", "3"}, ids(c.Endpoints.Filtered("SHOP")))

	c.Endpoints.SetStatusFilter(model.StatusProduction)
	assert.Equal(t, model.StatusProduction, c.Endpoints.StatusFilter())
	assert.Equal(t, []model.ID{"3"}, ids(c.Endpoints.Filtered("shop")))
	assert.Len(t, c.Endpoints.All(), 3)

	c.Endpoints.SetStatusFilter("")
	assert.Len(t, c.Endpoints.Filtered(""), 3)
}

func TestGenerateResponseJSON(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/describe/{table}", func(w http.ResponseWriter, r *http.Request) {
		switch r.PathValue("table") {
		case "users":
			writeJSON(w, http.StatusOK, `{"success": true, "data": [{"id": 1}]}`)
		case "empty":
			writeJSON(w, http.StatusOK, `{"success": false}`)
		default:
			writeJSON(w, http.StatusBadGateway, `{"success": false, "error": "no such table"}`)
		}
	})
	c := f.catalog()

	assert.JSONEq(t, `[{"id": 1}]`, string(c.Endpoints.GenerateResponseJSON(context.Background(), "users")))
	assert.Nil(t, c.Endpoints.GenerateResponseJSON(context.Background(), "empty"))
	assert.Nil(t, c.Endpoints.GenerateResponseJSON(context.Background(), "ghosts"))
	assert.Nil(t, c.Endpoints.GenerateResponseJSON(context.Background(), "  "))
	assert.Equal(t, 3, f.count("GET /api/describe/{table}"))
}

func TestGenerateFromTable(t *testing.T) {
	f := newFakeBackend(t)
	var body map[string]any
	f.handle("POST /api/restapi/generateone/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "c1", r.PathValue("id"))
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, `{"id": 5, "baseUrl": "https://x.com", "method": "GET", "path": "/people", "description": "List users (P)", "status": "Develop", "websites": "", "response": [{}]}`)
	})
	f.handle("GET /api/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	c := f.catalog()

	_, err := c.Endpoints.GenerateFromTable(context.Background(), "c1", " ", "")
	assert.Error(t, err)
	_, err = c.Endpoints.GenerateFromTable(context.Background(), "", "users", "")
	assert.Error(t, err)
	assert.Zero(t, f.total())

	ep, err := c.Endpoints.GenerateFromTable(context.Background(), "c1", "users", "people")
	require.NoError(t, err)
	assert.Equal(t, "/people", ep.Path)
	assert.Equal(t, map[string]any{"table": "users", "path": "/people"}, body)
	assert.Equal(t, 1, f.count("GET /api/get"))
}

func TestCallPublicAPI(t *testing.T) {
	f := newFakeBackend(t)
	f.handle("GET /api/call/{id}/{rest...}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"id": "`+r.PathValue("id")+`", "rest": "`+r.PathValue("rest")+`"}`)
	})
	f.handle("GET /public/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, `{"error": "maintenance"}`)
	})
	c := f.catalog()

	res := c.Endpoints.CallPublicAPIByIDAndPath(context.Background(), "7", "users/1")
	assert.True(t, res.OK)
	assert.JSONEq(t, `{"id": "7", "rest": "users/1"}`, string(res.Body))

	res = c.Endpoints.CallPublicAPI(context.Background(), model.Endpoint{BaseURL: f.srv.URL + "/public/", Path: "users"})
	assert.False(t, res.OK)
	assert.Equal(t, http.StatusServiceUnavailable, res.Status)
	assert.Equal(t, "maintenance", res.Error)
}

func TestRestApiAdd(t *testing.T) {
	f := newFakeBackend(t)
	var body map[string]any
	f.handle("POST /api/restapi/post", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, `{"id": 3, "projectName": "Finance", "engine": "MySQL", "ip": "10.0.0.5", "username": "root", "password": "", "database_name": "fin"}`)
	})
	f.handle("GET /api/restapi/get", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id": 3, "projectName": "Finance", "engine": "MySQL", "ip": "10.0.0.5", "username": "root", "password": "", "database_name": "fin"}]`)
	})
	c := f.catalog()

	_, err := c.RestApis.Add(context.Background(), model.RestApiInput{ProjectName: "Finance", Engine: "MySQL"})
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "ip", verr.Field)
	assert.Zero(t, f.total())

	created, err := c.RestApis.Add(context.Background(), model.RestApiInput{
		ProjectName: " Finance ", Engine: "MySQL", IP: "10.0.0.5", Port: "abc", Username: "root", DatabaseName: "fin",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ID("3"), created.ID)
	assert.Equal(t, "Finance", body["projectName"])
	_, hasPort := body["port"]
	assert.False(t, hasPort)
	assert.Len(t, c.RestApis.All(), 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		severity Severity
		title    string
	}{
		{"validation", &model.ValidationError{Field: "path", Message: "is required"}, SeverityWarning, "Invalid input"},
		{"duplicate", ErrDuplicateDomain, SeverityWarning, "Duplicate domain"},
		{"timeout", context.DeadlineExceeded, SeverityError, "Request timeout"},
		{"cancelled", context.Canceled, SeverityInfo, "Cancelled"},
		{"transport", &apiclient.APIError{Message: "connection refused"}, SeverityError, "Backend unreachable"},
		{"status", &apiclient.APIError{Status: 500, Message: "boom"}, SeverityError, "Request failed"},
		{"other", errors.New("x"), SeverityError, "Unexpected error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := Classify(tt.err)
			assert.Equal(t, tt.severity, n.Severity)
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.err, n.Err)
		})
	}
	assert.Equal(t, Notice{}, Classify(nil))
}
