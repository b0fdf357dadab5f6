package client

import (
	"context"
	"net/http"

	"go.hackfix.me/forage/facade"
	"go.hackfix.me/forage/web/server/types"
)

// GetItem returns the value of key, or nil if it doesn't exist.
func (c *Client) GetItem(ctx context.Context, key string) (any, error) {
	resp := &types.ItemResponse{}
	status, err := c.request(ctx, http.MethodGet, c.itemURL(key), nil, resp)
	if status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return resp.Value, nil
}

// SetItem stores value under key, and returns value.
func (c *Client) SetItem(ctx context.Context, key string, value any) (any, error) {
	req := &types.ItemSetRequest{Value: value}
	if _, err := c.request(ctx, http.MethodPut, c.itemURL(key), req, nil); err != nil {
		return nil, err
	}

	return value, nil
}

// RemoveItem removes key.
func (c *Client) RemoveItem(ctx context.Context, key string) error {
	_, err := c.request(ctx, http.MethodDelete, c.itemURL(key), nil, nil)
	return err
}

// Clear removes all keys.
func (c *Client) Clear(ctx context.Context) error {
	_, err := c.request(ctx, http.MethodDelete, c.endpoint("items"), nil, nil)
	return err
}

// Keys returns all keys in insertion order.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	resp := &types.KeysResponse{}
	if _, err := c.request(ctx, http.MethodGet, c.endpoint("keys"), nil, resp); err != nil {
		return nil, err
	}
	if resp.Keys == nil {
		resp.Keys = []string{}
	}

	return resp.Keys, nil
}

// Iterate fetches all entries, and calls fn for each of them in insertion
// order.
func (c *Client) Iterate(ctx context.Context, fn facade.IterateFunc) (any, error) {
	resp := &types.ItemsResponse{}
	if _, err := c.request(ctx, http.MethodGet, c.endpoint("items"), nil, resp); err != nil {
		return nil, err
	}

	for _, item := range resp.Items {
		if res, stop := fn(item.Value, item.Key, item.Ordinal); stop {
			return res, nil
		}
	}

	return nil, nil
}

// Length returns the number of stored entries.
func (c *Client) Length(ctx context.Context) (int, error) {
	resp := &types.LengthResponse{}
	if _, err := c.request(ctx, http.MethodGet, c.endpoint("length"), nil, resp); err != nil {
		return 0, err
	}

	return resp.Length, nil
}
