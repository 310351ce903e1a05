// Package scenario drives one user through the database administration
// journey: registration, profile upgrade, database creation, backup points,
// SQL execution and table browsing. A Runner knows nothing about
// concurrency; the executor calls Run once per iteration from many goroutines.
package scenario

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/qa21t02/dbjourney/internal/extractor"
	"github.com/qa21t02/dbjourney/internal/httpclient"
	"github.com/qa21t02/dbjourney/internal/markers"
	"github.com/qa21t02/dbjourney/internal/metrics"
	"github.com/qa21t02/dbjourney/internal/tracing"
)

const (
	DefaultPassword    = "Testing9874!"
	DefaultLoginSuffix = "@testv.com"
	DefaultPointName   = "somePointName"
	DefaultThinkTime   = time.Second
)

// Step names group the requests of the journey in metrics and traces.
const (
	StepRegistration   = "registration"
	StepProfile        = "go-to-profile"
	StepUpgrade        = "upgrade-user"
	StepDashboard      = "go-to-dashboard"
	StepCreateDatabase = "create-database"
	StepProfileAgain   = "second-go-to-profile"
	StepHome           = "go-to-home"
	StepDiscover       = "discover-database"
	StepDatabase       = "go-to-database"
	StepBackups        = "go-to-backups"
	StepCreatePoint    = "create-new-point"
	StepCreateTable    = "create-table-sql"
	StepDatabaseAgain  = "second-go-to-database"
	StepTables         = "go-to-tables"
	StepTable          = "go-to-table"
	StepDatabaseThird  = "third-go-to-database"
	StepResetPoints    = "reset-points"
)

const (
	createTableQuery  = "CREATE TABLE test (col_name varchar(20), col_value int);"
	insertFirstQuery  = "INSERT INTO test VALUES ('test1', 1)"
	insertSecondQuery = "INSERT INTO test VALUES ('test2', 2)"
	upgradeRole       = "BASIC_USER"
)

// Options configures a Runner. Empty strings fall back to the journey
// defaults; a zero ThinkTime skips the final pause.
type Options struct {
	// Target is the base URL of the application, without a trailing slash.
	Target string
	// Client returns the HTTP client for a new session. Each call should
	// hand out a client with its own cookie jar.
	Client func() *http.Client
	// Catalogue holds the assertions; nil means markers.Strict().
	Catalogue *markers.Catalogue
	Recorder  Recorder

	ThinkTime   time.Duration
	Password    string
	LoginSuffix string
	PointName   string

	// Tracer receives a span per session and per request. Nil disables tracing.
	Tracer trace.Tracer
	// Propagate injects W3C trace headers into requests that carry the header set.
	Propagate bool
	Logger    *zap.Logger
	// Clock supplies the time the login is derived from.
	Clock func() time.Time
}

// Runner executes the journey.
type Runner struct {
	builder   *httpclient.RequestBuilder
	client    func() *http.Client
	catalogue *markers.Catalogue
	recorder  Recorder
	requests  requestRecorder
	outcomes  outcomeRecorder
	thinkTime time.Duration
	password  string
	suffix    string
	point     string
	tracer    trace.Tracer
	propagate bool
	logger    *zap.Logger
	logins    *loginClock
}

// New creates a Runner. It fails only when Target is not an absolute URL.
func New(opts Options) (*Runner, error) {
	builder, err := httpclient.NewRequestBuilder(opts.Target, httpclient.BrowserHeaders())
	if err != nil {
		return nil, err
	}

	r := &Runner{
		builder:   builder,
		client:    opts.Client,
		catalogue: opts.Catalogue,
		recorder:  opts.Recorder,
		thinkTime: opts.ThinkTime,
		password:  opts.Password,
		suffix:    opts.LoginSuffix,
		point:     opts.PointName,
		tracer:    opts.Tracer,
		propagate: opts.Propagate,
		logger:    opts.Logger,
		logins:    &loginClock{now: opts.Clock},
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	if r.client == nil {
		base := httpclient.NewClient(60 * time.Second)
		r.client = httpclient.SessionFactory(base)
	}
	if r.catalogue == nil {
		r.catalogue = markers.Strict()
	}
	if r.recorder == nil {
		r.recorder = nopRecorder{}
	}
	if rr, ok := r.recorder.(requestRecorder); ok {
		r.requests = rr
	}
	if orec, ok := r.recorder.(outcomeRecorder); ok {
		r.outcomes = orec
	}
	if r.password == "" {
		r.password = DefaultPassword
	}
	if r.suffix == "" {
		r.suffix = DefaultLoginSuffix
	}
	if r.point == "" {
		r.point = DefaultPointName
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer("")
	}
	if r.logins.now == nil {
		r.logins.now = time.Now
	}
	return r, nil
}

// NewSession creates the state for one iteration with a fresh login.
func (r *Runner) NewSession() *Session {
	return &Session{
		Login:    newLogin(r.logins.next(), r.suffix),
		Password: r.password,
		CSRF:     defaultCSRF,
	}
}

// iteration carries what one Run call accumulates.
type iteration struct {
	ctx      context.Context
	client   *http.Client
	session  *Session
	checks   int
	failures []CheckFailure
}

// Run performs the journey once. Failed checks never stop it; they are
// recorded and summarised in the returned *CheckFailures. If ctx is cancelled
// the remaining steps are skipped unrecorded and ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context) error {
	sess := r.NewSession()
	ctx, span := tracing.StartSessionSpan(ctx, r.tracer, sess.Login)
	it := &iteration{ctx: ctx, client: r.client(), session: sess}

	err := r.journey(it)
	if err == nil && len(it.failures) > 0 {
		err = &CheckFailures{Login: sess.Login, Checks: it.checks, Failures: it.failures}
	}
	tracing.EndSpan(span, err)
	return err
}

func (r *Runner) journey(it *iteration) error {
	sess := it.session

	steps := []func(*iteration) error{
		func(it *iteration) error {
			if err := r.get(it, StepRegistration, "/registration", markers.LoadRegistration); err != nil {
				return err
			}
			return r.post(it, StepRegistration, "/registration", url.Values{
				"_csrf":        {sess.CSRF},
				"conformation": {sess.Password},
				"login":        {sess.Login},
				"password":     {sess.Password},
			}, markers.FillRegistration)
		},
		func(it *iteration) error {
			return r.get(it, StepProfile, "/profile", markers.LoadProfile)
		},
		func(it *iteration) error {
			return r.post(it, StepUpgrade, "/profile/upgrade", url.Values{"role": {upgradeRole}}, markers.UpgradeUser)
		},
		func(it *iteration) error {
			return r.get(it, StepDashboard, "/", markers.LoadDashboard)
		},
		func(it *iteration) error {
			return r.post(it, StepCreateDatabase, "/database", url.Values{"_csrf": {sess.CSRF}}, markers.CreateDatabase)
		},
		func(it *iteration) error {
			return r.get(it, StepProfileAgain, "/profile", markers.LoadProfileAgain)
		},
		func(it *iteration) error {
			return r.get(it, StepHome, "/", markers.LoadHome)
		},
		r.discoverDatabase,
		func(it *iteration) error {
			return r.get(it, StepDatabase, r.databasePath(sess, ""), markers.LoadDatabase)
		},
		func(it *iteration) error {
			return r.get(it, StepBackups, r.databasePath(sess, "/point"), markers.LoadBackups)
		},
		func(it *iteration) error {
			return r.post(it, StepCreatePoint, r.databasePath(sess, "/point/"), url.Values{
				"_csrf": {sess.CSRF},
				"point": {r.point},
			}, markers.CreatePoint)
		},
		func(it *iteration) error {
			sqlPath := r.databasePath(sess, "/sql")
			if err := r.get(it, StepCreateTable, sqlPath, markers.LoadSQL); err != nil {
				return err
			}
			for _, q := range []struct{ query, check string }{
				{createTableQuery, markers.CreateTable},
				{insertFirstQuery, markers.InsertFirst},
				{insertSecondQuery, markers.InsertSecond},
			} {
				if err := r.post(it, StepCreateTable, sqlPath, url.Values{"query": {q.query}}, q.check); err != nil {
					return err
				}
			}
			return nil
		},
		func(it *iteration) error {
			return r.get(it, StepDatabaseAgain, r.databasePath(sess, "/"), markers.LoadDatabaseAgain)
		},
		func(it *iteration) error {
			return r.get(it, StepTables, r.databasePath(sess, "/table"), markers.LoadTables)
		},
		func(it *iteration) error {
			return r.get(it, StepTable, r.databasePath(sess, "/table/test"), markers.LoadTable)
		},
		func(it *iteration) error {
			return r.get(it, StepDatabaseThird, r.databasePath(sess, "/"), markers.LoadDatabaseThird)
		},
	}
	if r.catalogue.ResetPoints {
		steps = append(steps, func(it *iteration) error {
			return r.get(it, StepResetPoints, r.databasePath(sess, "/point"), markers.ResetPoints)
		})
	}

	for _, step := range steps {
		if err := step(it); err != nil {
			return err
		}
	}
	return r.think(it.ctx)
}

// discoverDatabase reads the database name from /home. The request goes out
// without the browser header set and is not checked.
func (r *Runner) discoverDatabase(it *iteration) error {
	resp, err := r.exchange(it, StepDiscover, http.MethodGet, "/home", nil, false)
	if err != nil {
		return err
	}
	it.session.Database = extractor.DatabaseName(resp.Body, r.logger.Sugar().With(
		"step", StepDiscover,
		"login", it.session.Login,
		"status", resp.Status,
	))
	return nil
}

func (r *Runner) databasePath(sess *Session, suffix string) string {
	return "/database/" + url.PathEscape(sess.Database) + suffix
}

func (r *Runner) get(it *iteration, step, path, check string) error {
	resp, err := r.exchange(it, step, http.MethodGet, path, nil, true)
	if err != nil {
		return err
	}
	r.check(it, step, check, resp)
	return nil
}

func (r *Runner) post(it *iteration, step, path string, form url.Values, check string) error {
	resp, err := r.exchange(it, step, http.MethodPost, path, form, true)
	if err != nil {
		return err
	}
	r.check(it, step, check, resp)
	return nil
}

// exchange sends one request and stores the response in the session. It
// returns an error only when ctx was cancelled.
func (r *Runner) exchange(it *iteration, step, method, path string, form url.Values, withHeaders bool) (httpclient.Response, error) {
	if err := it.ctx.Err(); err != nil {
		return httpclient.Response{}, err
	}

	var body httpclient.BodySource
	if form != nil {
		body = httpclient.NewFormBody(form)
	}

	ctx, span := tracing.StartStepSpan(it.ctx, r.tracer, step, method, r.builder.URL(path))
	req, err := r.builder.Build(ctx, method, path, body, withHeaders)
	var resp httpclient.Response
	if err != nil {
		resp = httpclient.Response{Err: err}
	} else {
		if withHeaders && r.propagate {
			tracing.InjectHTTPHeaders(ctx, req.Header)
		}
		resp = httpclient.Do(it.client, req)
	}

	if cerr := it.ctx.Err(); cerr != nil && resp.Failed() {
		tracing.EndSpan(span, cerr)
		return httpclient.Response{}, cerr
	}

	if r.requests != nil {
		r.requests.RecordRequest(resp.Latency, resp.Err, &metrics.RequestMetadata{
			Endpoint:   step,
			Method:     method,
			StatusCode: resp.Status,
		})
	}

	var spanErr error
	if resp.Failed() {
		spanErr = resp.Err
	} else if resp.Status >= http.StatusBadRequest {
		spanErr = errors.New(http.StatusText(resp.Status))
	}
	tracing.EndSpan(span, spanErr)

	it.session.Response = resp
	if method == http.MethodGet {
		if token, ok := extractor.CSRFToken(resp.Body); ok {
			it.session.CSRF = token
		}
	}
	return resp, nil
}

// recordOutcome feeds the errors counter and the error_rate metric. A
// recorder that can update both atomically gets one call.
func (r *Runner) recordOutcome(failed bool) {
	if r.outcomes != nil {
		r.outcomes.RecordOutcome(failed)
		return
	}
	if failed {
		r.recorder.Increment()
	}
	r.recorder.Record(failed)
}

// check evaluates and records exactly one outcome for the named check.
func (r *Runner) check(it *iteration, step, name string, resp httpclient.Response) {
	spec := r.catalogue.Lookup(name).Render(it.session.values(r.point))
	passed, reason := evaluate(spec, resp)

	it.checks++
	r.recorder.RecordCheck(name, passed)
	tracing.RecordCheck(trace.SpanFromContext(it.ctx), name, passed)
	r.recordOutcome(!passed)
	if passed {
		return
	}

	it.failures = append(it.failures, CheckFailure{Step: step, Check: name, Status: resp.Status, Reason: reason})
	r.logger.Warn("check failed",
		zap.String("check", name),
		zap.String("step", step),
		zap.String("login", it.session.Login),
		zap.Int("status", resp.Status),
		zap.String("reason", strings.TrimSpace(reason)))
}

func (r *Runner) think(ctx context.Context) error {
	if r.thinkTime <= 0 {
		return nil
	}
	timer := time.NewTimer(r.thinkTime)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
