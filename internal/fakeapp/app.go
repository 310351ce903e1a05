// Package fakeapp is an in-memory stand-in for the database administration
// web application the journey drives. It renders the same page markers as the
// real UI, keeps users, databases, backup points and tables in memory, and
// authenticates with a session cookie.
//
// Databases are visible to every user and /home lists them in creation order,
// so sessions sharing one App also share the first listed database.
package fakeapp

import (
	"compress/gzip"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const sessionCookie = "SESSION"

// Options tunes the fake application.
type Options struct {
	// RequireCSRF rejects POSTs carrying a _csrf field that does not match
	// the session token. Forms without the field are accepted.
	RequireCSRF bool
	// Gzip compresses responses for clients that accept it.
	Gzip bool
	// Latency delays every response.
	Latency time.Duration
}

type user struct {
	password string
	role     string
}

type database struct {
	name   string
	owner  string
	points []string
	tables map[string]*table
}

type session struct {
	csrf  string
	login string
}

// App is an http.Handler. The zero value is not usable; call New.
type App struct {
	opts Options
	mux  *http.ServeMux

	mu        sync.Mutex
	users     map[string]*user
	sessions  map[string]*session
	databases map[string]*database
	order     []string
	seq       int
}

// New creates an empty application.
func New(opts Options) *App {
	a := &App{
		opts:      opts,
		mux:       http.NewServeMux(),
		users:     make(map[string]*user),
		sessions:  make(map[string]*session),
		databases: make(map[string]*database),
	}
	a.routes()
	return a
}

func (a *App) routes() {
	a.mux.HandleFunc("GET /registration", a.registrationPage)
	a.mux.HandleFunc("POST /registration", a.register)
	a.mux.HandleFunc("GET /profile", a.authed(a.profile))
	a.mux.HandleFunc("POST /profile/upgrade", a.authed(a.upgrade))
	a.mux.HandleFunc("GET /{$}", a.authed(a.dashboard))
	a.mux.HandleFunc("GET /home", a.authed(a.dashboard))
	a.mux.HandleFunc("POST /database", a.authed(a.createDatabase))
	a.mux.HandleFunc("GET /database/{db}", a.authed(a.withDatabase(a.databasePage)))
	a.mux.HandleFunc("GET /database/{db}/{$}", a.authed(a.withDatabase(a.databasePage)))
	a.mux.HandleFunc("GET /database/{db}/point", a.authed(a.withDatabase(a.pointsPage)))
	a.mux.HandleFunc("POST /database/{db}/point/{$}", a.authed(a.withDatabase(a.createPoint)))
	a.mux.HandleFunc("POST /database/{db}/point", a.authed(a.withDatabase(a.createPoint)))
	a.mux.HandleFunc("GET /database/{db}/sql", a.authed(a.withDatabase(a.sqlPage)))
	a.mux.HandleFunc("POST /database/{db}/sql", a.authed(a.withDatabase(a.runSQL)))
	a.mux.HandleFunc("GET /database/{db}/table", a.authed(a.withDatabase(a.tablesPage)))
	a.mux.HandleFunc("GET /database/{db}/table/{table}", a.authed(a.withDatabase(a.tablePage)))
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.opts.Latency > 0 {
		select {
		case <-time.After(a.opts.Latency):
		case <-r.Context().Done():
			return
		}
	}
	if a.opts.Gzip && strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		zw := gzip.NewWriter(w)
		defer zw.Close()
		w = &gzipResponseWriter{ResponseWriter: w, w: zw}
	}
	a.mux.ServeHTTP(w, r)
}

type gzipResponseWriter struct {
	http.ResponseWriter
	w           *gzip.Writer
	wroteHeader bool
}

// WriteHeader sets the encoding last because http.Error strips it.
func (g *gzipResponseWriter) WriteHeader(status int) {
	if g.wroteHeader {
		return
	}
	g.wroteHeader = true
	g.Header().Set("Content-Encoding", "gzip")
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(status)
}

func (g *gzipResponseWriter) Write(p []byte) (int, error) {
	if !g.wroteHeader {
		g.WriteHeader(http.StatusOK)
	}
	return g.w.Write(p)
}

// Users returns the number of registered users.
func (a *App) Users() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.users)
}

// Databases returns database names in creation order.
func (a *App) Databases() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.order...)
}

// Points returns the backup points of a database.
func (a *App) Points(db string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.databases[db]; ok {
		return append([]string(nil), d.points...)
	}
	return nil
}

// Rows returns the rows of a table.
func (a *App) Rows(db, tableName string) [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	d, ok := a.databases[db]
	if !ok {
		return nil
	}
	t, ok := d.tables[tableName]
	if !ok {
		return nil
	}
	return append([][]string(nil), t.rows...)
}

// session returns the caller's session, creating an anonymous one.
func (a *App) session(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		a.mu.Lock()
		s, ok := a.sessions[c.Value]
		a.mu.Unlock()
		if ok {
			return s
		}
	}
	id := randomHex(16)
	s := &session{csrf: randomHex(12)}
	a.mu.Lock()
	a.sessions[id] = s
	a.mu.Unlock()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	return s
}

func (a *App) authed(next func(http.ResponseWriter, *http.Request, *session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := a.session(w, r)
		a.mu.Lock()
		login := s.login
		a.mu.Unlock()
		if login == "" {
			http.Redirect(w, r, "/registration", http.StatusFound)
			return
		}
		if r.Method == http.MethodPost && !a.csrfOK(r, s) {
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}
		next(w, r, s)
	}
}

func (a *App) withDatabase(next func(http.ResponseWriter, *http.Request, *session, *database)) func(http.ResponseWriter, *http.Request, *session) {
	return func(w http.ResponseWriter, r *http.Request, s *session) {
		a.mu.Lock()
		d, ok := a.databases[r.PathValue("db")]
		a.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		next(w, r, s, d)
	}
}

func (a *App) csrfOK(r *http.Request, s *session) bool {
	if !a.opts.RequireCSRF {
		return true
	}
	if err := r.ParseForm(); err != nil {
		return false
	}
	tokens, present := r.PostForm["_csrf"]
	return !present || (len(tokens) > 0 && tokens[0] == s.csrf)
}

func (a *App) registrationPage(w http.ResponseWriter, r *http.Request) {
	s := a.session(w, r)
	a.write(w, http.StatusOK, "registration", page{CSRF: s.csrf})
}

func (a *App) register(w http.ResponseWriter, r *http.Request) {
	s := a.session(w, r)
	if !a.csrfOK(r, s) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}
	login := strings.TrimSpace(r.PostFormValue("login"))
	password := r.PostFormValue("password")
	if login == "" || password == "" || password != r.PostFormValue("conformation") {
		a.write(w, http.StatusOK, "registration", page{CSRF: s.csrf, Flash: "Passwords do not match"})
		return
	}

	a.mu.Lock()
	if _, exists := a.users[login]; exists {
		a.mu.Unlock()
		a.write(w, http.StatusOK, "registration", page{CSRF: s.csrf, Flash: "User already exists"})
		return
	}
	a.users[login] = &user{password: password, role: "FREE_USER"}
	s.login = login
	a.mu.Unlock()

	a.write(w, http.StatusOK, "registered", page{CSRF: s.csrf, Login: login})
}

func (a *App) profilePage(s *session, flash string) page {
	a.mu.Lock()
	defer a.mu.Unlock()
	u := a.users[s.login]
	return page{
		CSRF:     s.csrf,
		Flash:    flash,
		Login:    s.login,
		Role:     u.role,
		Upgraded: u.role != "FREE_USER",
	}
}

func (a *App) profile(w http.ResponseWriter, r *http.Request, s *session) {
	a.write(w, http.StatusOK, "profile", a.profilePage(s, ""))
}

func (a *App) upgrade(w http.ResponseWriter, r *http.Request, s *session) {
	role := strings.TrimSpace(r.PostFormValue("role"))
	switch role {
	case "BASIC_USER", "PRO_USER":
	default:
		http.Error(w, fmt.Sprintf("unknown role %q", role), http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	a.users[s.login].role = role
	a.mu.Unlock()
	a.write(w, http.StatusOK, "profile", a.profilePage(s, "Profile upgraded"))
}

func (a *App) dashboardPage(s *session, flash string) page {
	a.mu.Lock()
	defer a.mu.Unlock()
	return page{
		Title:     "Dashboard",
		CSRF:      s.csrf,
		Flash:     flash,
		Login:     s.login,
		Databases: append([]string(nil), a.order...),
	}
}

func (a *App) dashboard(w http.ResponseWriter, r *http.Request, s *session) {
	a.write(w, http.StatusOK, "dashboard", a.dashboardPage(s, ""))
}

func (a *App) createDatabase(w http.ResponseWriter, r *http.Request, s *session) {
	a.mu.Lock()
	a.seq++
	name := fmt.Sprintf("db_%d", a.seq)
	a.databases[name] = &database{name: name, owner: s.login, tables: make(map[string]*table)}
	a.order = append(a.order, name)
	a.mu.Unlock()
	a.write(w, http.StatusOK, "dashboard", a.dashboardPage(s, "Database created"))
}

func (a *App) databasePage(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	a.write(w, http.StatusOK, "database", page{CSRF: s.csrf, Database: d.name})
}

func (a *App) pointsPage(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	a.mu.Lock()
	points := append([]string(nil), d.points...)
	a.mu.Unlock()
	a.write(w, http.StatusOK, "points", page{CSRF: s.csrf, Database: d.name, Points: points})
}

func (a *App) createPoint(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	point := strings.TrimSpace(r.PostFormValue("point"))
	if point == "" {
		http.Error(w, "point name is required", http.StatusBadRequest)
		return
	}
	a.mu.Lock()
	d.points = append(d.points, point)
	points := append([]string(nil), d.points...)
	a.mu.Unlock()
	a.write(w, http.StatusOK, "points", page{CSRF: s.csrf, Database: d.name, Points: points, Flash: "Backup created successfully"})
}

func (a *App) sqlPage(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	a.write(w, http.StatusOK, "sql", page{CSRF: s.csrf, Database: d.name})
}

func (a *App) runSQL(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	query := r.PostFormValue("query")
	a.mu.Lock()
	changed, err := execute(d.tables, query)
	a.mu.Unlock()
	result := fmt.Sprintf("DDL/DML performed Changed: %d", changed)
	if err != nil {
		result = "Error: " + err.Error()
	}
	a.write(w, http.StatusOK, "sql", page{CSRF: s.csrf, Database: d.name, Result: result})
}

func (a *App) tablesPage(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	a.mu.Lock()
	summaries := make([]tableSummary, 0, len(d.tables))
	for name, t := range d.tables {
		summaries = append(summaries, tableSummary{Name: name, Rows: len(t.rows)})
	}
	a.mu.Unlock()
	a.write(w, http.StatusOK, "tables", page{CSRF: s.csrf, Database: d.name, Tables: summaries})
}

func (a *App) tablePage(w http.ResponseWriter, r *http.Request, s *session, d *database) {
	name := r.PathValue("table")
	a.mu.Lock()
	t, ok := d.tables[name]
	var p page
	if ok {
		p = page{
			CSRF:     s.csrf,
			Database: d.name,
			Table:    name,
			Columns:  append([]string(nil), t.columns...),
			Rows:     append([][]string(nil), t.rows...),
		}
	}
	a.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	a.write(w, http.StatusOK, "table", p)
}

func (a *App) write(w http.ResponseWriter, status int, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = render(w, name, p)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
