package scenario

import (
	"strconv"
	"sync"
	"time"

	"github.com/qa21t02/dbjourney/internal/httpclient"
)

// defaultCSRF is what the journey posts when no page handed out a token.
const defaultCSRF = "_csrf"

// Session is the state of one journey iteration. It is created when the
// iteration starts and dropped when it ends.
type Session struct {
	Login    string
	Password string
	Response httpclient.Response
	Database string
	CSRF     string
}

func (s *Session) values(point string) map[string]string {
	return map[string]string{
		"login":    s.Login,
		"database": s.Database,
		"point":    point,
	}
}

// loginClock hands out strictly increasing millisecond stamps so that two
// sessions started in the same millisecond still register different logins.
type loginClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func (c *loginClock) next() int64 {
	ms := c.now().UnixMilli()
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

func newLogin(stamp int64, suffix string) string {
	return strconv.FormatInt(stamp, 10) + suffix
}
