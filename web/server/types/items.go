package types

import (
	"errors"
	"net/http"
)

// Item is a stored entry, as visited by iteration.
type Item struct {
	Ordinal int    `json:"ordinal"`
	Key     string `json:"key"`
	Value   any    `json:"value"`
}

type ItemSetRequest struct {
	Value any `json:"value"`
}

// Bind implements render.Binder.
func (req *ItemSetRequest) Bind(_ *http.Request) error {
	if req.Value == nil {
		return errors.New("value not provided")
	}
	return nil
}

type ItemResponse struct {
	*Response
	Key   string `json:"key"`
	Value any    `json:"value,omitempty"`
}

type ItemsResponse struct {
	*Response
	Items []Item `json:"items"`
}

type KeysResponse struct {
	*Response
	Keys []string `json:"keys"`
}

type LengthResponse struct {
	*Response
	Length int `json:"length"`
}
