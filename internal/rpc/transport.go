package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raveportal/pageshare/internal/eventloop"
	"github.com/raveportal/pageshare/internal/ratelimit"
)

// maxResponseSize caps how much of a portal response is read (4 MB).
const maxResponseSize = 4 << 20

// Limiter decides whether a call identified by key may be sent now.
type Limiter interface {
	Allow(key string, customRate int) bool
}

// Observer receives call instrumentation.
type Observer interface {
	ObserveRemoteCall(op string, status string, seconds float64)
	IncRemoteFailure(op, reason string)
	IncRateLimitRejection(limiterType, scope string)
}

// Transport sends remote calls over HTTP to the portal's RPC endpoints. A
// single Transport is shared by every session; Session binds it to one
// session's event loop.
type Transport struct {
	baseURL   *url.URL
	client    *http.Client
	limiter   Limiter
	observer  Observer
	onFailure FailureHandler
	logger    *slog.Logger
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *Transport) { t.client = c }
}

// WithLimiter throttles calls per session and operation.
func WithLimiter(l Limiter) TransportOption {
	return func(t *Transport) { t.limiter = l }
}

// WithObserver installs call instrumentation.
func WithObserver(o Observer) TransportOption {
	return func(t *Transport) { t.observer = o }
}

// WithFailureHandler replaces the default log-only failure handling.
func WithFailureHandler(fn FailureHandler) TransportOption {
	return func(t *Transport) { t.onFailure = fn }
}

// WithLogger sets the transport's logger.
func WithLogger(l *slog.Logger) TransportOption {
	return func(t *Transport) { t.logger = l }
}

// NewTransport creates a transport rooted at baseURL, for example
// "https://portal.example.com/api/rpc/".
func NewTransport(baseURL string, timeout time.Duration, opts ...TransportOption) (*Transport, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing portal base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("portal base url %q must be absolute", baseURL)
	}

	t := &Transport{
		baseURL: u,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.onFailure == nil {
		t.onFailure = t.logFailure
	}
	return t, nil
}

func (t *Transport) logFailure(op Operation, err error) {
	t.logger.Warn("remote call failed", "operation", string(op), "error", err)
}

// Session returns a Client whose callbacks run on poster. key scopes rate
// limiting, usually the session ID.
func (t *Transport) Session(poster eventloop.Poster, key string) Client {
	return &sessionClient{t: t, poster: poster, key: key}
}

// call is one prepared request.
type call struct {
	op     Operation
	method string
	path   string
	query  url.Values
}

type sessionClient struct {
	t      *Transport
	poster eventloop.Poster
	key    string
}

func (c *sessionClient) ListUsers(p ListUsersParams, onSuccess SuccessFunc) {
	c.send(call{
		op:     OpListUsers,
		method: http.MethodGet,
		path:   "person/get",
		query:  url.Values{"offset": {strconv.Itoa(p.Offset)}},
	}, onSuccess)
}

func (c *sessionClient) SearchUsers(p SearchUsersParams, onSuccess SuccessFunc) {
	c.send(call{
		op:     OpSearchUsers,
		method: http.MethodGet,
		path:   "person/search",
		query: url.Values{
			"searchTerm": {p.SearchTerm},
			"offset":     {strconv.Itoa(p.Offset)},
		},
	}, onSuccess)
}

func (c *sessionClient) AddMemberToPage(p MemberParams, onSuccess SuccessFunc) {
	c.send(call{
		op:     OpAddMemberToPage,
		method: http.MethodPost,
		path:   fmt.Sprintf("page/%d/addmember", p.PageID),
		query:  url.Values{"userId": {strconv.FormatInt(p.UserID, 10)}},
	}, onSuccess)
}

func (c *sessionClient) RemoveMemberFromPage(p MemberParams, onSuccess SuccessFunc) {
	c.send(call{
		op:     OpRemoveMemberFromPage,
		method: http.MethodPost,
		path:   fmt.Sprintf("page/%d/removemember", p.PageID),
		query:  url.Values{"userId": {strconv.FormatInt(p.UserID, 10)}},
	}, onSuccess)
}

func (c *sessionClient) UpdatePageEditingStatus(p EditingStatusParams, onSuccess SuccessFunc) {
	q := url.Values{
		"userId":   {strconv.FormatInt(p.UserID, 10)},
		"isEditor": {strconv.FormatBool(p.IsEditor)},
	}
	if p.PageName != "" {
		q.Set("pageName", p.PageName)
	}
	c.send(call{
		op:     OpUpdatePageEditingStatus,
		method: http.MethodPost,
		path:   fmt.Sprintf("page/%d/editing/update", p.PageID),
		query:  q,
	}, onSuccess)
}

// send checks the limiter and performs the request on its own goroutine.
// The outcome is posted back to the session loop.
func (c *sessionClient) send(cl call, onSuccess SuccessFunc) {
	t := c.t
	if t.limiter != nil && !t.limiter.Allow(ratelimit.SessionKey(c.key, string(cl.op)), 0) {
		if t.observer != nil {
			t.observer.IncRateLimitRejection("remote", string(cl.op))
		}
		c.fail(cl.op, "rate_limited", ErrRateLimited)
		return
	}

	go func() {
		start := time.Now()
		resp, err := t.do(context.Background(), cl)
		if t.observer != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			t.observer.ObserveRemoteCall(string(cl.op), status, time.Since(start).Seconds())
		}
		if err != nil {
			c.fail(cl.op, failureReason(err), err)
			return
		}
		if !c.poster.Post(func() { onSuccess(resp) }) {
			t.logger.Debug("dropping remote result for stopped session", "operation", string(cl.op), "session", c.key)
		}
	}()
}

func (c *sessionClient) fail(op Operation, reason string, err error) {
	t := c.t
	if t.observer != nil {
		t.observer.IncRemoteFailure(string(op), reason)
	}
	c.poster.Post(func() { t.onFailure(op, err) })
}

func failureReason(err error) string {
	var re *RemoteError
	if !errors.As(err, &re) {
		return "transport"
	}
	if re.Code != "" {
		return "remote"
	}
	return "status"
}

func (t *Transport) do(ctx context.Context, cl call) (Response, error) {
	ref := &url.URL{Path: cl.path, RawQuery: cl.query.Encode()}
	target := t.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, cl.method, target.String(), nil)
	if err != nil {
		return Response{}, fmt.Errorf("building %s request: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := t.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("calling %s: %w", cl.op, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, maxResponseSize))
		return Response{}, &RemoteError{Op: cl.op, StatusCode: httpResp.StatusCode}
	}

	var resp Response
	if err := json.NewDecoder(io.LimitReader(httpResp.Body, maxResponseSize)).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("decoding %s response: %w", cl.op, err)
	}
	if resp.Error {
		return Response{}, &RemoteError{
			Op:         cl.op,
			StatusCode: httpResp.StatusCode,
			Code:       resp.ErrorCode,
			Message:    resp.ErrorMessage,
		}
	}
	return resp, nil
}
