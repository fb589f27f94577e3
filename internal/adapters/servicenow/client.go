// Package servicenow implements the ServiceNow REST table API client and the
// Basic Auth credential exchanger built on top of it.
package servicenow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/target/snowdash/internal/domain/auth"
	"github.com/target/snowdash/internal/domain/record"
	"github.com/target/snowdash/internal/observability/metrics"
	"github.com/target/snowdash/internal/observability/statsd"
	"github.com/target/snowdash/internal/ports"
)

const (
	tablePathPrefix = "/api/now/table/"
	userTable       = "sys_user"

	// currentUserQuery matches the sys_user row of whoever the request authenticates as.
	currentUserQuery = "sys_id=javascript:gs.getUserID()"
)

// Config configures a table client bound to one credential.
type Config struct {
	InstanceURL string
	Credential  domainauth.Credential
	// HTTPClient is optional; defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// Metrics is optional.
	Metrics statsd.Sink
}

// Client talks to /api/now/table/* on behalf of a single credential.
// It holds no state beyond the base URL and the authorization header.
type Client struct {
	baseURL    *url.URL
	authHeader string
	httpClient *http.Client
	metrics    statsd.Sink
}

var _ ports.TableAPI = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	base, err := parseInstanceURL(cfg.InstanceURL)
	if err != nil {
		return nil, err
	}
	if !cfg.Credential.Valid() {
		return nil, errors.New("servicenow: credential is required")
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    base,
		authHeader: cfg.Credential.AuthorizationHeader(),
		httpClient: hc,
		metrics:    cfg.Metrics,
	}, nil
}

func parseInstanceURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("servicenow: instance URL is required")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("servicenow: parse instance URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("servicenow: instance URL %q must be absolute", raw)
	}
	return u, nil
}

// List returns rows of table matching opts. Zero-valued options are omitted
// so ServiceNow applies its own defaults.
func (c *Client) List(ctx context.Context, table string, opts ports.ListOptions) ([]record.Record, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("sysparm_limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("sysparm_offset", strconv.Itoa(opts.Offset))
	}
	if opts.Query != "" {
		q.Set("sysparm_query", opts.Query)
	}
	if opts.Fields != "" {
		q.Set("sysparm_fields", opts.Fields)
	}

	var out struct {
		Result []record.Record `json:"result"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, table: table, op: "list", query: q}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Get fetches a single row by sys_id.
func (c *Client) Get(ctx context.Context, table, sysID string) (record.Record, error) {
	if sysID == "" {
		return nil, errors.New("servicenow: sys_id is required")
	}
	var out struct {
		Result record.Record `json:"result"`
	}
	if err := c.do(ctx, call{method: http.MethodGet, table: table, sysID: sysID, op: "get"}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Create inserts a row and returns it as stored by ServiceNow.
func (c *Client) Create(ctx context.Context, table string, rec record.Record) (record.Record, error) {
	var out struct {
		Result record.Record `json:"result"`
	}
	if err := c.do(ctx, call{method: http.MethodPost, table: table, op: "create", body: rec}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Update patches the given fields of a row. Last write wins.
func (c *Client) Update(ctx context.Context, table, sysID string, rec record.Record) (record.Record, error) {
	if sysID == "" {
		return nil, errors.New("servicenow: sys_id is required")
	}
	var out struct {
		Result record.Record `json:"result"`
	}
	if err := c.do(ctx, call{method: http.MethodPatch, table: table, sysID: sysID, op: "update", body: rec}, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

// Delete removes a row.
func (c *Client) Delete(ctx context.Context, table, sysID string) error {
	if sysID == "" {
		return errors.New("servicenow: sys_id is required")
	}
	return c.do(ctx, call{method: http.MethodDelete, table: table, sysID: sysID, op: "delete"}, nil)
}

// UserProfile returns the sys_user row of the authenticated user.
func (c *Client) UserProfile(ctx context.Context) (record.Record, error) {
	rows, err := c.List(ctx, userTable, ports.ListOptions{Limit: 1, Query: currentUserQuery})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &UpstreamError{Status: http.StatusNotFound, Message: "user profile not found"}
	}
	return rows[0], nil
}

type call struct {
	method string
	table  string
	sysID  string
	op     string
	query  url.Values
	body   any
}

func (c *Client) endpoint(table, sysID string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" || strings.ContainsAny(table, "/?#") {
		return "", fmt.Errorf("servicenow: invalid table name %q", table)
	}
	p := tablePathPrefix + table
	if sysID != "" {
		p += "/" + url.PathEscape(sysID)
	}
	return c.baseURL.JoinPath(p).String(), nil
}

// do executes one request. A nil dst discards the response body.
func (c *Client) do(ctx context.Context, in call, dst any) (err error) {
	start := time.Now()
	status := 0
	defer func() {
		metrics.EmitUpstreamCall(c.metrics, metrics.UpstreamCall{
			Table:     in.table,
			Operation: in.op,
			Status:    status,
			Duration:  time.Since(start),
			Err:       err,
		})
	}()

	target, err := c.endpoint(in.table, in.sysID)
	if err != nil {
		return err
	}
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}

	var body io.Reader
	if in.body != nil {
		buf, marshalErr := json.Marshal(in.body)
		if marshalErr != nil {
			return fmt.Errorf("servicenow: encode %s body: %w", in.op, marshalErr)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return fmt.Errorf("servicenow: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Message: in.op + " " + in.table + " failed", Cause: err}
	}
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newUpstreamError(resp)
	}
	defer resp.Body.Close()

	if dst == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(dst); decodeErr != nil {
		return &UpstreamError{Status: resp.StatusCode, Message: "decode " + in.op + " response", Cause: decodeErr}
	}
	return nil
}

// Factory builds per-credential clients for one instance.
type Factory struct {
	InstanceURL string
	HTTPClient  *http.Client
	Metrics     statsd.Sink
}

var _ ports.TableClientFactory = (*Factory)(nil)

// ForCredential returns a client bound to cred.
func (f *Factory) ForCredential(cred domainauth.Credential) (ports.TableAPI, error) {
	return New(Config{
		InstanceURL: f.InstanceURL,
		Credential:  cred,
		HTTPClient:  f.HTTPClient,
		Metrics:     f.Metrics,
	})
}
