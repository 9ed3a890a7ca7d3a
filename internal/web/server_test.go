package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/gymbook/internal/auth"
	"github.com/example/gymbook/internal/history"
	"github.com/example/gymbook/internal/scheduler"
)

type fakeTask struct {
	mu       sync.Mutex
	snap     scheduler.Snapshot
	triggers int
}

func (f *fakeTask) Snapshot() scheduler.Snapshot { return f.snap }

func (f *fakeTask) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}

func (f *fakeTask) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

type fakeHistory struct{ attempts []history.Attempt }

func (f *fakeHistory) Record(context.Context, history.Attempt) error { return nil }
func (f *fakeHistory) Recent(context.Context, int) ([]history.Attempt, error) {
	return f.attempts, nil
}
func (f *fakeHistory) Close() {}

func newServer(t *testing.T, passwordHash string) (*httptest.Server, *fakeTask) {
	t.Helper()
	task := &fakeTask{snap: scheduler.Snapshot{
		Pending:     true,
		NextRunAt:   time.Date(2026, 10, 20, 0, 0, 30, 0, time.UTC),
		RetriesLeft: 5,
		MaxRetries:  5,
		Weekdays:    "Mon,Tue,Thu,Fri",
		TargetTime:  "7:30AM",
	}}
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "gymbook_test_total", Help: "test"}))

	s := &Server{
		Auth:     auth.NewStore("admin", passwordHash, nil, nil),
		Task:     task,
		Gatherer: reg,
		History: &fakeHistory{attempts: []history.Attempt{
			{AttemptedAt: time.Now(), Day: "2026-10-26", Action: "booked", Outcome: "booked", Detail: "7:30AM (id=102)"},
		}},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return srv, task
}

func hash(t *testing.T) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

// noRedirect keeps 302s visible to the test.
func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func login(t *testing.T, srv *httptest.Server, password string) *http.Response {
	t.Helper()
	res, err := noRedirect().PostForm(srv.URL+"/login", url.Values{"username": {"admin"}, "password": {password}})
	require.NoError(t, err)
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func TestHealthzAndMetricsAreOpen(t *testing.T) {
	srv, _ := newServer(t, "")

	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close()
	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "gymbook_test_total")
}

func TestProtectedRoutesForbiddenWithoutAdmin(t *testing.T) {
	srv, task := newServer(t, "")

	res, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	res, err = http.Post(srv.URL+"/run", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Zero(t, task.count())

	assert.Equal(t, http.StatusForbidden, login(t, srv, "anything").StatusCode)
}

func TestStatusRequiresSession(t *testing.T) {
	srv, _ := newServer(t, hash(t))

	res, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newServer(t, hash(t))

	res := login(t, srv, "wrong")

	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	assert.Empty(t, res.Cookies())
}

func TestLoginThenStatusAndRun(t *testing.T) {
	srv, task := newServer(t, hash(t))

	// Given an admin session
	res := login(t, srv, "s3cret")
	require.Equal(t, http.StatusFound, res.StatusCode)
	cookies := res.Cookies()
	require.NotEmpty(t, cookies)

	// When reading /status
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	req.AddCookie(cookies[0])
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	// Then the snapshot comes back as JSON
	require.Equal(t, http.StatusOK, res.StatusCode)
	var snap map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	assert.Equal(t, true, snap["pending"])
	assert.Equal(t, "7:30AM", snap["target_time"])
	assert.EqualValues(t, 5, snap["retries_left"])

	// And POST /run triggers a cycle
	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/run", nil)
	req.AddCookie(cookies[0])
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
	assert.Equal(t, 1, task.count())
}

func TestHomePageRendersHistory(t *testing.T) {
	srv, _ := newServer(t, hash(t))
	cookies := login(t, srv, "s3cret").Cookies()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/", nil)
	req.AddCookie(cookies[0])
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.True(t, strings.Contains(string(body), "Mon,Tue,Thu,Fri"))
	assert.Contains(t, string(body), "7:30AM (id=102)")
}

func TestLoginFormAndLogout(t *testing.T) {
	srv, _ := newServer(t, hash(t))

	res, err := http.Get(srv.URL + "/login")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `name="password"`)

	res, err = noRedirect().Post(srv.URL+"/logout", "", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))
}
