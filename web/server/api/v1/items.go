package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"go.hackfix.me/forage/serializer"
	"go.hackfix.me/forage/web/server/types"
)

func itemKey(r *http.Request) (string, error) {
	key := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		// Routing was done on the escaped path.
		var err error
		if key, err = url.PathUnescape(key); err != nil {
			return "", fmt.Errorf("invalid key: %w", err)
		}
	}
	if key == "" {
		return "", errors.New("key not provided")
	}
	return key, nil
}

// ItemGet returns the value of the requested key.
func (h *Handler) ItemGet(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		_ = render.Render(w, r, types.ErrBadRequest(err))
		return
	}

	val, err := h.appCtx.Storage.GetItem(r.Context(), key)
	if err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}
	if val == nil {
		_ = render.Render(w, r, types.ErrNotFound(fmt.Errorf("key '%s' doesn't exist", key)))
		return
	}

	_ = render.Render(w, r, &types.ItemResponse{
		Response: types.OK(), Key: key, Value: val,
	})
}

// ItemSet stores the value in the request body under the requested key.
func (h *Handler) ItemSet(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		_ = render.Render(w, r, types.ErrBadRequest(err))
		return
	}

	req := &types.ItemSetRequest{}
	if err = render.Bind(r, req); err != nil {
		_ = render.Render(w, r, types.ErrBadRequest(err))
		return
	}

	val, err := h.appCtx.Storage.SetItem(r.Context(), key, req.Value)
	if err != nil {
		if errors.Is(err, serializer.ErrSerialize) {
			_ = render.Render(w, r, types.ErrBadRequest(err))
		} else {
			_ = render.Render(w, r, types.ErrInternal(err))
		}
		return
	}

	_ = render.Render(w, r, &types.ItemResponse{
		Response: types.OK(), Key: key, Value: val,
	})
}

// ItemRemove removes the requested key. Removing a key that doesn't exist
// succeeds.
func (h *Handler) ItemRemove(w http.ResponseWriter, r *http.Request) {
	key, err := itemKey(r)
	if err != nil {
		_ = render.Render(w, r, types.ErrBadRequest(err))
		return
	}

	if err = h.appCtx.Storage.RemoveItem(r.Context(), key); err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}

	_ = render.Render(w, r, &types.ItemResponse{Response: types.OK(), Key: key})
}

// ItemsList returns all entries in insertion order.
func (h *Handler) ItemsList(w http.ResponseWriter, r *http.Request) {
	items := []types.Item{}
	_, err := h.appCtx.Storage.Iterate(r.Context(), func(value any, key string, ordinal int) (any, bool) {
		items = append(items, types.Item{Ordinal: ordinal, Key: key, Value: value})
		return nil, false
	})
	if err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}

	_ = render.Render(w, r, &types.ItemsResponse{Response: types.OK(), Items: items})
}

// ItemsClear removes all entries.
func (h *Handler) ItemsClear(w http.ResponseWriter, r *http.Request) {
	if err := h.appCtx.Storage.Clear(r.Context()); err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}

	_ = render.Render(w, r, types.OK())
}

// Keys returns all keys in insertion order.
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.appCtx.Storage.Keys(r.Context())
	if err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}

	_ = render.Render(w, r, &types.KeysResponse{Response: types.OK(), Keys: keys})
}

// Length returns the number of stored entries.
func (h *Handler) Length(w http.ResponseWriter, r *http.Request) {
	n, err := h.appCtx.Storage.Length(r.Context())
	if err != nil {
		_ = render.Render(w, r, types.ErrInternal(err))
		return
	}

	_ = render.Render(w, r, &types.LengthResponse{Response: types.OK(), Length: n})
}
