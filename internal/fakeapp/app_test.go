package fakeapp

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

type browser struct {
	t      *testing.T
	client *http.Client
	base   string
}

func newBrowser(t *testing.T, srv *httptest.Server) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &browser{t: t, client: &http.Client{Jar: jar}, base: srv.URL}
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.base + path)
	if err != nil {
		b.t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) post(path string, form url.Values) (int, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.base+path, form)
	if err != nil {
		b.t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func (b *browser) register(login string) {
	b.t.Helper()
	b.get("/registration")
	status, body := b.post("/registration", url.Values{
		"_csrf": {"_csrf"}, "login": {login}, "password": {"pw"}, "conformation": {"pw"},
	})
	if status != http.StatusOK || !strings.Contains(body, login) {
		b.t.Fatalf("registration failed: %d %s", status, body)
	}
}

func mustContain(t *testing.T, body string, markers ...string) {
	t.Helper()
	for _, m := range markers {
		if !strings.Contains(body, m) {
			t.Fatalf("expected body to contain %q:\n%s", m, body)
		}
	}
}

func TestAnonymousIsRedirectedToRegistration(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	b := newBrowser(t, srv)
	status, body := b.get("/profile")
	if status != http.StatusOK {
		t.Fatalf("expected redirect to end on registration page, got %d", status)
	}
	mustContain(t, body, "Registration")
	if strings.Contains(body, "User Preset") {
		t.Fatalf("anonymous user must not see the profile")
	}
}

func TestProfileUpgrade(t *testing.T) {
	srv := httptest.NewServer(New(Options{}))
	defer srv.Close()

	b := newBrowser(t, srv)
	b.register("1@testv.com")

	_, body := b.get("/profile")
	mustContain(t, body, "User Preset", "API's keys", "Database user")
	if strings.Contains(body, "It's your") {
		t.Fatalf("fresh profile must not be upgraded")
	}

	status, body := b.post("/profile/upgrade", url.Values{"role": {"BASIC_USER"}})
	if status != http.StatusOK {
		t.Fatalf("upgrade status %d", status)
	}
	mustContain(t, body, "It's your BASIC_USER plan")

	if status, _ := b.post("/profile/upgrade", url.Values{"role": {"ROOT"}}); status != http.StatusBadRequest {
		t.Fatalf("expected unknown role to be rejected, got %d", status)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	app := New(Options{})
	srv := httptest.NewServer(app)
	defer srv.Close()

	newBrowser(t, srv).register("dup@testv.com")
	b := newBrowser(t, srv)
	_, body := b.post("/registration", url.Values{"login": {"dup@testv.com"}, "password": {"pw"}, "conformation": {"pw"}})
	mustContain(t, body, "User already exists")
	if app.Users() != 1 {
		t.Fatalf("expected 1 user, got %d", app.Users())
	}
}

func TestDatabaseJourney(t *testing.T) {
	app := New(Options{})
	srv := httptest.NewServer(app)
	defer srv.Close()

	b := newBrowser(t, srv)
	b.register("2@testv.com")

	_, body := b.post("/database", url.Values{"_csrf": {"_csrf"}})
	mustContain(t, body, "Database created", "Total Space", "Bases", "Databases")

	_, home := b.get("/home")
	mustContain(t, home, "<h6>", "db_1")

	_, body = b.get("/database/db_1")
	mustContain(t, body, "db_1", "Investigate your database. Look to your data from browser.")

	_, body = b.post("/database/db_1/point/", url.Values{"point": {"somePointName"}})
	mustContain(t, body, "Backup created successfully", "somePointName")
	if got := app.Points("db_1"); len(got) != 1 || got[0] != "somePointName" {
		t.Fatalf("Points() = %v", got)
	}

	_, body = b.post("/database/db_1/sql", url.Values{"query": {"CREATE TABLE test (col_name varchar(20), col_value int);"}})
	mustContain(t, body, "DDL/DML performed Changed: 0")
	_, body = b.post("/database/db_1/sql", url.Values{"query": {"INSERT INTO test VALUES ('test1', 1)"}})
	mustContain(t, body, "DDL/DML performed Changed: 1")
	_, body = b.post("/database/db_1/sql", url.Values{"query": {"CREATE TABLE test (col_name varchar(20), col_value int);"}})
	mustContain(t, body, "Error:")

	_, body = b.get("/database/db_1/table")
	mustContain(t, body, "Table name", "test")
	_, body = b.get("/database/db_1/table/test")
	mustContain(t, body, "col_name", "col_value", "test1")

	if status, _ := b.get("/database/missing/"); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown database, got %d", status)
	}
	if rows := app.Rows("db_1", "test"); len(rows) != 1 || rows[0][0] != "test1" {
		t.Fatalf("Rows() = %v", rows)
	}
}

func TestRequireCSRF(t *testing.T) {
	srv := httptest.NewServer(New(Options{RequireCSRF: true}))
	defer srv.Close()

	b := newBrowser(t, srv)
	b.get("/registration")
	status, _ := b.post("/registration", url.Values{"_csrf": {"_csrf"}, "login": {"x"}, "password": {"p"}, "conformation": {"p"}})
	if status != http.StatusForbidden {
		t.Fatalf("expected literal token to be rejected, got %d", status)
	}
}

func TestGzipResponses(t *testing.T) {
	srv := httptest.NewServer(New(Options{Gzip: true}))
	defer srv.Close()

	// The default transport adds Accept-Encoding: gzip and decodes for us.
	resp, err := http.Get(srv.URL + "/registration")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !resp.Uncompressed {
		t.Fatalf("expected a compressed response")
	}
	mustContain(t, string(body), "Registration")
}

func TestExecute(t *testing.T) {
	tables := map[string]*table{}
	cases := []struct {
		query   string
		changed int
		wantErr bool
	}{
		{"CREATE TABLE test (col_name varchar(20), col_value int);", 0, false},
		{"insert into test values ('a, b', 2)", 1, false},
		{"INSERT INTO test VALUES ('only')", 0, true},
		{"INSERT INTO missing VALUES (1)", 0, true},
		{"SELECT * FROM test", 0, true},
		{"DROP TABLE test", 0, false},
		{"DROP TABLE test", 0, true},
	}
	for _, tc := range cases {
		changed, err := execute(tables, tc.query)
		if (err != nil) != tc.wantErr {
			t.Fatalf("%q: err = %v, wantErr %v", tc.query, err, tc.wantErr)
		}
		if changed != tc.changed {
			t.Fatalf("%q: changed = %d, want %d", tc.query, changed, tc.changed)
		}
	}
}
