// Package upstream implements the client for the external vehicle tracking
// API: token exchange, paged record fetching, and normalization into the
// record store's schema.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fleetsync-io/fleetsync/internal/model"
	"github.com/fleetsync-io/fleetsync/pkg/log"
	"github.com/fleetsync-io/fleetsync/pkg/options"
)

const (
	pathGenerateToken  = "/generateAccessToken"
	pathGetAdminData   = "/getAdminData"
	pathGetERPVehicles = "/getERPVehicleData"

	// authHeader is the custom header carrying the access token, alongside the
	// session cookie the token exchange sets.
	authHeader = "X-Auth-Token"

	// maxErrorBody caps how much of an upstream error body ends up in logs.
	maxErrorBody = 2048
)

// Client talks to the tracking API. It is stateless between Fetch calls; each
// sync authenticates afresh since tokens are short-lived.
type Client struct {
	opts   *options.UpstreamOptions
	http   *http.Client
	logger log.Logger
}

// session is the result of a token exchange.
type session struct {
	token   string
	cookies []*http.Cookie
}

// NewClient builds a Client from options. logger may be nil.
func NewClient(opts *options.UpstreamOptions, logger log.Logger) *Client {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		opts:   opts,
		http:   &http.Client{Timeout: opts.RequestTimeout},
		logger: logger.WithName("upstream"),
	}
}

// Authenticate exchanges the configured credentials for a short-lived token.
// Nothing else can proceed without it, so failures propagate loudly with the
// upstream status and body.
func (c *Client) Authenticate(ctx context.Context) (*session, error) {
	body := map[string]string{
		"username": c.opts.Username,
		"password": c.opts.Password,
	}

	var resp struct {
		Token string `json:"token"`
	}
	cookies, err := c.post(ctx, pathGenerateToken, nil, body, &resp)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if resp.Token == "" {
		return nil, &APIError{Op: "generateAccessToken", Status: http.StatusOK, Body: "response contained no token"}
	}

	return &session{token: resp.Token, cookies: cookies}, nil
}

// FetchAll authenticates and retrieves the complete record set for the given
// window, normalized into the store's schema. Any failure discards pages
// already fetched; there is no partial result.
func (c *Client) FetchAll(ctx context.Context, window DateWindow) ([]model.VehicleRecord, error) {
	sess, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	if c.opts.Mode == options.UpstreamModeERP {
		return c.fetchERP(ctx, sess)
	}
	return c.fetchAdminData(ctx, sess, window)
}

// fetchAdminData pages through getAdminData starting at page 1, accumulating
// while each returned page is full. A short or empty page means exhaustion.
// MaxPages/MaxRecords bound the loop against an upstream that repeats full
// pages forever.
func (c *Client) fetchAdminData(ctx context.Context, sess *session, window DateWindow) ([]model.VehicleRecord, error) {
	pageSize := c.opts.PageSize
	var (
		out         []model.VehicleRecord
		quarantined int
	)

	for page := 1; ; page++ {
		if page > c.opts.MaxPages || len(out) > c.opts.MaxRecords {
			return nil, fmt.Errorf("fetch aborted: %w", &ErrTooManyPages{Pages: page - 1, Records: len(out)})
		}

		body := map[string]any{
			"adminCode":  c.opts.AdminCode,
			"projectIds": c.opts.ProjectIDs,
			"startDate":  window.StartDate,
			"endDate":    window.EndDate,
			"pageNumber": page,
			"pageSize":   pageSize,
		}

		var resp struct {
			Data []rawRecord `json:"data"`
		}
		if _, err := c.post(ctx, pathGetAdminData, sess, body, &resp); err != nil {
			return nil, fmt.Errorf("fetch page %d failed: %w", page, err)
		}

		for _, raw := range resp.Data {
			if !raw.identifiable() {
				quarantined++
				continue
			}
			out = append(out, raw.normalize())
		}

		c.logger.Debug("Fetched page", "page", page, "pageRecords", len(resp.Data), "accumulated", len(out))

		if len(resp.Data) < pageSize {
			break
		}
	}

	if quarantined > 0 {
		c.logger.Warn("Quarantined records without device or vehicle identity", "count", quarantined)
	}
	return out, nil
}

// fetchERP retrieves the full record set from the unpaged ERP endpoint.
func (c *Client) fetchERP(ctx context.Context, sess *session) ([]model.VehicleRecord, error) {
	var resp struct {
		Data []rawRecord `json:"data"`
	}
	if _, err := c.post(ctx, pathGetERPVehicles, sess, map[string]any{}, &resp); err != nil {
		return nil, fmt.Errorf("erp fetch failed: %w", err)
	}

	out := make([]model.VehicleRecord, 0, len(resp.Data))
	var quarantined int
	for _, raw := range resp.Data {
		if !raw.identifiable() {
			quarantined++
			continue
		}
		out = append(out, raw.normalize())
	}
	if quarantined > 0 {
		c.logger.Warn("Quarantined records without device or vehicle identity", "count", quarantined)
	}
	return out, nil
}

// post issues one JSON POST, decoding a 2xx response into respBody. A non-2xx
// status yields an *APIError with the status and a body excerpt. The returned
// cookies are whatever the upstream set (the token exchange sets the session).
func (c *Client) post(ctx context.Context, path string, sess *session, reqBody, respBody any) ([]*http.Cookie, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.opts.BaseURL, "/")+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if sess != nil {
		req.Header.Set(authHeader, sess.token)
		for _, ck := range sess.cookies {
			req.AddCookie(ck)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{Op: strings.TrimPrefix(path, "/"), Status: resp.StatusCode, Body: string(excerpt)}
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return resp.Cookies(), nil
}
