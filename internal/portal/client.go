package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/gymbook/internal/domain/booking"
)

const (
	DefaultBaseURL = "https://www.goodlifefitness.com"

	authenticatePath = "/memberauth/authenticate"
	schedulePath     = "/club-occupancy/club-workout-schedule"
	bookPath         = "/club-occupancy/book"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36"

	maxErrorBody = 256
)

// Operation names passed to the Observer and used in errors.
const (
	OpAuthenticate = "authenticate"
	OpListSlots    = "list_slots"
	OpBook         = "book"
)

// Observer is told about every remote call once it completes.
type Observer func(op string, elapsed time.Duration, err error)

// Client talks to the gym portal's member and club-occupancy endpoints.
// It implements booking.Provider.
type Client struct {
	hc      *http.Client
	baseURL string
	observe Observer
}

type Option func(*Client)

func WithObserver(o Observer) Option { return func(c *Client) { c.observe = o } }

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		hc: &http.Client{
			Timeout: timeout,
			// the login response carries the cookies; don't let a redirect swallow them
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var _ booking.Provider = (*Client)(nil)

func (c *Client) Authenticate(ctx context.Context, username, password string) (s booking.Session, err error) {
	defer c.track(OpAuthenticate, time.Now(), &err)

	body, contentType, err := formBody(map[string]string{"Login": username, "Password": password})
	if err != nil {
		return "", err
	}
	res, status, b, err := c.do(ctx, http.MethodPost, authenticatePath, contentType, "", nil, body)
	if err != nil {
		return "", fmt.Errorf("%s: %w", OpAuthenticate, err)
	}
	if status >= 400 {
		return "", httpError(OpAuthenticate, status, b)
	}
	s = booking.JoinSetCookies(res.Header.Values("Set-Cookie"))
	if s == "" {
		return "", fmt.Errorf("%s: %w", OpAuthenticate, booking.ErrNoSession)
	}
	return s, nil
}

// ListSlots fetches the studio schedule for day and flattens every time-of-day
// group into one sequence, groups in document order.
func (c *Client) ListSlots(ctx context.Context, session booking.Session, clubID int, day time.Time, studio string) (slots []booking.Slot, err error) {
	defer c.track(OpListSlots, time.Now(), &err)

	params := map[string]string{
		"club":   strconv.Itoa(clubID),
		"day":    day.Format("2006-01-02"),
		"studio": studio,
	}
	_, status, b, err := c.do(ctx, http.MethodGet, schedulePath, "", session, params, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpListSlots, err)
	}
	if status >= 400 {
		return nil, httpError(OpListSlots, status, b)
	}
	slots, err = FlattenSchedule(b)
	if err != nil {
		return nil, fmt.Errorf("%s: decode: %w", OpListSlots, err)
	}
	return slots, nil
}

// Book reserves slotID. The portal signals success only through the status
// code; the body is not inspected.
func (c *Client) Book(ctx context.Context, session booking.Session, clubID int, slotID string) (err error) {
	defer c.track(OpBook, time.Now(), &err)

	body, contentType, err := formBody(map[string]string{"ClubId": strconv.Itoa(clubID), "TimeSlotId": slotID})
	if err != nil {
		return err
	}
	_, status, b, err := c.do(ctx, http.MethodPost, bookPath, contentType, session, nil, body)
	if err != nil {
		return fmt.Errorf("%s: %w", OpBook, err)
	}
	if status >= 400 {
		return httpError(OpBook, status, b)
	}
	return nil
}

// Ping issues a GET to an arbitrary URL; used by the keep-alive loop.
func (c *Client) Ping(ctx context.Context, rawURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.StatusCode >= 400 {
		return fmt.Errorf("ping %s (status=%d)", rawURL, res.StatusCode)
	}
	return nil
}

// slotRecord is the wire shape of one schedule entry. Id arrives as a number
// on some clubs and as a string on others.
type slotRecord struct {
	ID             json.RawMessage `json:"Id"`
	StartAtDisplay string          `json:"StartAtDisplay"`
}

func (r slotRecord) slot() booking.Slot {
	id := strings.TrimSpace(string(r.ID))
	if strings.HasPrefix(id, `"`) {
		var s string
		if err := json.Unmarshal(r.ID, &s); err == nil {
			id = s
		}
	}
	return booking.Slot{ID: id, StartAtDisplay: r.StartAtDisplay}
}

// FlattenSchedule decodes a schedule object such as
// {"MorningList":[...],"AfternoonList":[...],"EveningList":[...]} into a
// single slot sequence. Keys are visited in document order; values that are
// not arrays of slot records are ignored.
func FlattenSchedule(body []byte) ([]booking.Slot, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var out []booking.Slot
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		var group []slotRecord
		if err := json.Unmarshal(raw, &group); err != nil {
			continue
		}
		for _, r := range group {
			out = append(out, r.slot())
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func formBody(fields map[string]string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	// deterministic field order
	keys := []string{"Login", "Password", "ClubId", "TimeSlotId"}
	for _, k := range keys {
		v, ok := fields[k]
		if !ok {
			continue
		}
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func httpError(op string, status int, body []byte) error {
	b := strings.TrimSpace(string(body))
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody] + "..."
	}
	return &booking.HTTPError{Op: op, Status: status, Body: b}
}

func (c *Client) track(op string, start time.Time, err *error) {
	if c.observe != nil {
		c.observe(op, time.Since(start), *err)
	}
}

func (c *Client) do(ctx context.Context, method, path, contentType string, session booking.Session, query map[string]string, body io.Reader) (*http.Response, int, []byte, error) {
	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, 0, nil, err
	}
	req.Header.Set("user-agent", userAgent)
	req.Header.Set("accept", "application/json, text/plain, */*")
	if contentType != "" {
		req.Header.Set("content-type", contentType)
	}
	if session != "" {
		req.Header.Set("cookie", string(session))
	}

	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res, res.StatusCode, nil, err
	}
	return res, res.StatusCode, b, nil
}

// IsHTTPStatus reports whether err is a portal error with the given status.
func IsHTTPStatus(err error, status int) bool {
	var he *booking.HTTPError
	return errors.As(err, &he) && he.Status == status
}
