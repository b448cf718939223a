package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"opine/internal/api"
	"opine/internal/config"
)

// ErrDaemonNotRunning indicates the daemon API is unreachable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// APIError carries a decoded error payload from a failed daemon API
// call.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if strings.TrimSpace(e.Code) != "" {
		return e.Code
	}
	return fmt.Sprintf("api returned status %d", e.StatusCode)
}

// Client talks to the daemon control API over HTTP.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
}

// NewClient builds a client for the configured api_bind address.
// Returns nil without error when no bind address is configured.
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""
	return &Client{
		base:  base,
		token: strings.TrimSpace(cfg.Paths.APIToken),
		http:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Status fetches the daemon runtime report.
func (c *Client) Status(ctx context.Context) (api.StatusReport, error) {
	var out api.StatusReport
	err := c.get(ctx, "/api/status", nil, &out)
	return out, err
}

// Claim asks the daemon for the next reviewable response.
func (c *Client) Claim(ctx context.Context, req api.ClaimRequest) (api.ClaimResult, error) {
	var out api.ClaimResult
	err := c.post(ctx, "/api/review/claim", req, &out)
	return out, err
}

// Renew extends a held review lease.
func (c *Client) Renew(ctx context.Context, req api.RenewRequest) (api.RenewResult, error) {
	var out api.RenewResult
	err := c.post(ctx, "/api/review/renew", req, &out)
	return out, err
}

// Release records a review verdict and frees the response.
func (c *Client) Release(ctx context.Context, req api.ReleaseRequest) (api.AckResult, error) {
	var out api.AckResult
	err := c.post(ctx, "/api/review/release", req, &out)
	return out, err
}

// Skip returns a claimed response to the pool without a verdict.
func (c *Client) Skip(ctx context.Context, req api.SkipRequest) (api.AckResult, error) {
	var out api.AckResult
	err := c.post(ctx, "/api/review/skip", req, &out)
	return out, err
}

// ScanDuplicates runs a duplicate scan, optionally scoped to one
// survey.
func (c *Client) ScanDuplicates(ctx context.Context, surveyID string) (api.ScanReport, error) {
	values := url.Values{}
	if s := strings.TrimSpace(surveyID); s != "" {
		values.Set("survey", s)
	}
	var out api.ScanReport
	err := c.get(ctx, "/api/duplicates/scan", values, &out)
	return out, err
}

// Restore moves a cohort of responses between statuses.
func (c *Client) Restore(ctx context.Context, req api.RestoreRequest) (api.RestoreResult, error) {
	var out api.RestoreResult
	err := c.post(ctx, "/api/maintenance/restore", req, &out)
	return out, err
}

// TestNotify asks the daemon to push a test notification.
func (c *Client) TestNotify(ctx context.Context) (api.TestNotifyResult, error) {
	var out api.TestNotifyResult
	err := c.post(ctx, "/api/test-notify", struct{}{}, &out)
	return out, err
}

// LogQuery selects a page of daemon log events.
type LogQuery struct {
	Since     uint64
	Limit     int
	Follow    bool
	Tail      bool
	Survey    string
	Component string
}

// Logs fetches buffered daemon log events. With Follow set the daemon
// holds the request until new events arrive.
func (c *Client) Logs(ctx context.Context, q LogQuery) (api.LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if s := strings.TrimSpace(q.Survey); s != "" {
		values.Set("survey", s)
	}
	if comp := strings.TrimSpace(q.Component); comp != "" {
		values.Set("component", comp)
	}
	var out api.LogStreamResponse
	err := c.get(ctx, "/api/logs", values, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out any) error {
	if c == nil {
		return ErrDaemonNotRunning
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path, RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	if c == nil {
		return ErrDaemonNotRunning
	}
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload api.ErrorPayload
		if decodeErr := json.NewDecoder(resp.Body).Decode(&payload); decodeErr == nil {
			apiErr.Code = payload.Error
			apiErr.Message = payload.Message
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsUnavailable reports whether err means the daemon API could not be
// reached at all, as opposed to answering with an error.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDaemonNotRunning) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsTimeout reports whether err is a request deadline expiring, which
// a follow loop treats as an empty poll rather than a failure.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
