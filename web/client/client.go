// Package client is an HTTP client of the forage API. A Client is also a
// facade driver, so a forage instance can use a remote server as its store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.hackfix.me/forage/facade"
	"go.hackfix.me/forage/web/server/types"
)

// DriverName is the name the Client is registered with as a facade driver.
const DriverName = "remote"

// Client is an HTTP client of the forage API.
type Client struct {
	*http.Client
	baseURL *url.URL
}

var (
	_ facade.Driver  = (*Client)(nil)
	_ facade.Storage = (*Client)(nil)
)

// New returns a new client of the server at address, which is either a
// [host]:port pair or an HTTP URL.
func New(address string) (*Client, error) {
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}

	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("failed parsing server address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme '%s'", u.Scheme)
	}

	return &Client{
		Client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: u,
	}, nil
}

// Name returns DriverName.
func (c *Client) Name() string {
	return DriverName
}

// Supported returns true if the server responds to health checks.
func (c *Client) Supported(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL.JoinPath("ping").String(), nil)
	if err != nil {
		return false
	}

	resp, err := c.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Open returns the client itself. Keys are namespaced with the configuration
// name of the server, so cfg.Name is only validated.
func (c *Client) Open(_ context.Context, cfg facade.Config) (facade.Storage, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty name", facade.ErrInvalidConfig)
	}
	return c, nil
}

// endpoint returns the URL of the API endpoint at path.
func (c *Client) endpoint(path ...string) *url.URL {
	return c.baseURL.JoinPath(append([]string{"api", "v1"}, path...)...)
}

// itemURL returns the URL of the item endpoint of key. The key is appended as
// a single escaped path segment, so that the URL path is never cleaned, and
// keys with empty or dot segments reach the server unchanged.
func (c *Client) itemURL(key string) *url.URL {
	u := c.endpoint("items")
	escKey := strings.ReplaceAll(url.PathEscape(key), ".", "%2E")
	u.RawPath = u.EscapedPath() + "/" + escKey
	u.Path += "/" + key

	return u
}

// request sends a request to the API endpoint at u, and decodes the response
// body into out. It returns the response status code, and an error for any
// unsuccessful response.
func (c *Client) request(ctx context.Context, method string, u *url.URL, body, out any) (int, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return 0, fmt.Errorf("failed creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		errResp := &types.Response{}
		if err = json.Unmarshal(data, errResp); err != nil || errResp.Error == "" {
			return resp.StatusCode, fmt.Errorf("request '%s %s' failed with status %s",
				method, u.Path, resp.Status)
		}
		return resp.StatusCode, fmt.Errorf("request '%s %s' failed: %s",
			method, u.Path, errResp.Error)
	}

	if out != nil {
		if err = json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed decoding response body: %w", err)
		}
	}

	return resp.StatusCode, nil
}
