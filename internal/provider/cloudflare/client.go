// Package cloudflare is a small client for the Cloudflare v4 zone and DNS record API
package cloudflare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mrled/suns/dnsrenew/internal/model"
	"github.com/mrled/suns/dnsrenew/internal/pagewalk"
)

// DefaultBaseURL is the public Cloudflare v4 API
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Config holds the API endpoint and credentials.
// A non-empty APIToken is preferred over the Email/APIKey pair.
type Config struct {
	BaseURL  string
	Email    string
	APIKey   string
	APIToken string
	Timeout  time.Duration
}

// Client talks to the Cloudflare API
type Client struct {
	cfg  Config
	http *http.Client
}

// RequestError is returned when a non-paginated call fails
type RequestError struct {
	Method string
	Path   string
	Status int
	Errors []pagewalk.APIError
}

func (e *RequestError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ae := range e.Errors {
		msgs[i] = fmt.Sprintf("%d: %s", ae.Code, ae.Message)
	}
	return fmt.Sprintf("cloudflare %s %s returned status %d: %s", e.Method, e.Path, e.Status, strings.Join(msgs, "; "))
}

type envelope[T any] struct {
	Success bool                `json:"success"`
	Errors  []pagewalk.APIError `json:"errors"`
	Result  T                   `json:"result"`
}

// NewClient creates a client; a zero Timeout means 30 seconds
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	} else {
		req.Header.Set("X-Auth-Email", c.cfg.Email)
		req.Header.Set("X-Auth-Key", c.cfg.APIKey)
	}
	return req, nil
}

// do sends the request and decodes the response envelope into out whatever the
// status, so provider error payloads reach the caller.
func (c *Client) do(req *http.Request, out any) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s response: %w", req.URL.Path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response (status %d): %w", req.URL.Path, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func pageQuery(req pagewalk.PageRequest) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(req.Page))
	q.Set("per_page", strconv.Itoa(req.PerPage))
	return q
}

// ListZones returns one page of zones. A failed envelope is returned as a
// result with Success false, not as an error.
func (c *Client) ListZones(ctx context.Context, page pagewalk.PageRequest) (*pagewalk.PageResult[model.Zone], error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/zones", pageQuery(page), nil)
	if err != nil {
		return nil, err
	}
	var out pagewalk.PageResult[model.Zone]
	if _, err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTXTRecords returns one page of TXT records named name in zoneID
func (c *Client) ListTXTRecords(ctx context.Context, zoneID, name string, page pagewalk.PageRequest) (*pagewalk.PageResult[model.DNSRecord], error) {
	q := pageQuery(page)
	q.Set("type", model.RecordTypeTXT)
	q.Set("name", name)

	req, err := c.newRequest(ctx, http.MethodGet, recordsPath(zoneID), q, nil)
	if err != nil {
		return nil, err
	}
	var out pagewalk.PageResult[model.DNSRecord]
	if _, err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecord adds a record to zoneID
func (c *Client) CreateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error) {
	record.ID = ""
	return c.writeRecord(ctx, http.MethodPost, recordsPath(zoneID), record)
}

// UpdateRecord replaces record, identified by record.ID, in zoneID
func (c *Client) UpdateRecord(ctx context.Context, zoneID string, record model.DNSRecord) (*model.DNSRecord, error) {
	if record.ID == "" {
		return nil, fmt.Errorf("update record: missing record ID")
	}
	return c.writeRecord(ctx, http.MethodPut, recordsPath(zoneID)+"/"+url.PathEscape(record.ID), record)
}

// DeleteRecord removes recordID from zoneID
func (c *Client) DeleteRecord(ctx context.Context, zoneID, recordID string) error {
	path := recordsPath(zoneID) + "/" + url.PathEscape(recordID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return err
	}
	var out envelope[json.RawMessage]
	status, err := c.do(req, &out)
	if err != nil {
		return err
	}
	if !out.Success {
		return &RequestError{Method: req.Method, Path: path, Status: status, Errors: out.Errors}
	}
	return nil
}

func (c *Client) writeRecord(ctx context.Context, method, path string, record model.DNSRecord) (*model.DNSRecord, error) {
	req, err := c.newRequest(ctx, method, path, nil, record)
	if err != nil {
		return nil, err
	}
	var out envelope[model.DNSRecord]
	status, err := c.do(req, &out)
	if err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, &RequestError{Method: method, Path: path, Status: status, Errors: out.Errors}
	}
	return &out.Result, nil
}

func recordsPath(zoneID string) string {
	return "/zones/" + url.PathEscape(zoneID) + "/dns_records"
}
